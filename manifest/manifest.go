// Package manifest implements the Manifest Emitter (introspect phase) and
// Manifest Store (runtime phase), generalized from the teacher's
// utils.FileHandler directory-lifecycle helpers (create/clear a working
// directory, write files into it, read them back).
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/browserbase/sdk-functions-go/registry"
)

// PersistedConfig is the config subset written to and read from disk.
type PersistedConfig struct {
	SessionConfig    map[string]interface{} `json:"sessionConfig,omitempty"`
	ParametersSchema map[string]interface{} `json:"parametersSchema,omitempty"`
}

// PersistedManifest is the JSON shape of one {name}.json file.
type PersistedManifest struct {
	Name   string          `json:"name"`
	Config PersistedConfig `json:"config"`
}

// Emitter writes one manifest file per registration during the introspect
// phase. The first write within a process run clears Dir recursively and
// recreates it, so stale manifests from prior runs don't linger.
type Emitter struct {
	Dir     string
	cleared bool
	mu      sync.Mutex
}

// NewEmitter returns an Emitter rooted at dir.
func NewEmitter(dir string) *Emitter {
	return &Emitter{Dir: dir}
}

// Emit writes {dir}/{name}.json for one manifest. reg is used only to detect
// "first write of this run" via registry size transitioning to 1 (spec §4.3).
func (e *Emitter) Emit(reg *registry.Registry, m registry.Manifest) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.cleared && reg.Size() <= 1 {
		if err := os.RemoveAll(e.Dir); err != nil {
			return fmt.Errorf("clear manifests dir: %w", err)
		}
		e.cleared = true
	}
	if err := os.MkdirAll(e.Dir, 0755); err != nil {
		return fmt.Errorf("create manifests dir: %w", err)
	}

	pm := PersistedManifest{
		Name: m.Name,
		Config: PersistedConfig{
			SessionConfig: m.Config.SessionConfig,
		},
	}
	if m.Config.ParametersSchema != nil {
		pm.Config.ParametersSchema = m.Config.ParametersSchema.Schema()
	}

	data, err := json.MarshalIndent(pm, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest %q: %w", m.Name, err)
	}

	path := filepath.Join(e.Dir, m.Name+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write manifest %q: %w", m.Name, err)
	}

	log.Info().Str("function", m.Name).Str("path", path).Msg("manifest written")
	return nil
}

// Store holds PersistedManifest entries loaded from disk at server startup.
type Store struct {
	dir       string
	mu        sync.RWMutex
	manifests map[string]PersistedManifest
	once      sync.Once
}

// NewStore loads every *.json under dir into memory. A missing directory is
// not an error - it is logged and the store starts empty.
func NewStore(dir string) *Store {
	s := &Store{dir: dir, manifests: make(map[string]PersistedManifest)}
	s.load()
	return s
}

func (s *Store) load() {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		log.Info().Str("dir", s.dir).Err(err).Msg("manifests directory not found, starting empty")
		return
	}

	loaded := make(map[string]PersistedManifest)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Str("path", path).Err(err).Msg("failed to read manifest")
			continue
		}
		var pm PersistedManifest
		if err := json.Unmarshal(data, &pm); err != nil {
			log.Warn().Str("path", path).Err(err).Msg("failed to parse manifest")
			continue
		}
		loaded[pm.Name] = pm
	}

	s.mu.Lock()
	s.manifests = loaded
	s.mu.Unlock()

	log.Info().Str("dir", s.dir).Int("count", len(loaded)).Msg("manifests loaded")
}

// ReloadOnce re-reads the manifests directory, but only the first time it is
// called - spec §4.3's "reloaded once after the handler process first
// connects."
func (s *Store) ReloadOnce() {
	s.once.Do(s.load)
}

// Get returns the persisted manifest for name, or ok=false.
func (s *Store) Get(name string) (PersistedManifest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pm, ok := s.manifests[name]
	return pm, ok
}
