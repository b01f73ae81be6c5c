// Package registry implements the process-wide function registry: a
// name-keyed map of handlers and their configuration, generalized from the
// teacher's in-memory FunctionStore.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"
)

// Handler is a user-registered function body.
type Handler func(ctx context.Context, params map[string]interface{}) (interface{}, error)

// Validator checks params against a parameter schema before execution.
// Returning a non-nil error counts as a user error, not a FatalSystem one:
// the runtime loop posts it to the bridge's error endpoint like a handler
// failure, so the external caller receives the 500 handler-failure body. It
// is not turned into a 400 BadRequest.
type Validator interface {
	Validate(params map[string]interface{}) error
	// Schema renders the validator to a JSON Schema object for manifest
	// persistence.
	Schema() map[string]interface{}
}

// Config is the per-function configuration a Manifest carries.
type Config struct {
	SessionConfig    map[string]interface{}
	ParametersSchema Validator
}

// Manifest is the in-process record created by Register.
type Manifest struct {
	Name    string
	Handler Handler
	Config  Config
}

// ErrFunctionNotFound is returned by Execute when name is absent.
type ErrFunctionNotFound struct {
	Name string
}

func (e *ErrFunctionNotFound) Error() string {
	return fmt.Sprintf("FunctionNotFoundInRegistry: %q", e.Name)
}

// Registry is the process-wide name -> Manifest map. Last registration wins;
// Size counts distinct names (spec I6).
type Registry struct {
	mu        sync.RWMutex
	manifests map[string]Manifest
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{manifests: make(map[string]Manifest)}
}

// Register inserts or replaces the manifest for name.
func (r *Registry) Register(name string, handler Handler, config Config) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, replaced := r.manifests[name]
	r.manifests[name] = Manifest{Name: name, Handler: handler, Config: config}

	log.Info().
		Str("function", name).
		Bool("replaced", replaced).
		Int("registry_size", len(r.manifests)).
		Msg("function registered")
}

// GetByName returns the manifest for an exact-match name, or ok=false.
func (r *Registry) GetByName(name string) (Manifest, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.manifests[name]
	return m, ok
}

// Size returns the number of distinct registered names.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.manifests)
}

// Execute looks up name, validates params against its ParametersSchema when
// present, and invokes its handler. A missing function is
// ErrFunctionNotFound; a validation failure is returned wrapped (%w) in a
// "parameters schema validation failed" error, which the runtime loop treats
// as a user error; handler errors propagate unchanged.
func (r *Registry) Execute(ctx context.Context, name string, params map[string]interface{}) (interface{}, error) {
	manifest, ok := r.GetByName(name)
	if !ok {
		return nil, &ErrFunctionNotFound{Name: name}
	}

	if manifest.Config.ParametersSchema != nil {
		if err := manifest.Config.ParametersSchema.Validate(params); err != nil {
			return nil, fmt.Errorf("parameters schema validation failed: %w", err)
		}
	}

	return manifest.Handler(ctx, params)
}
