// Package config implements the Environment & Phase Selector: it reads
// process environment once at construction and exposes an immutable snapshot
// deciding whether this process runs as the polling runtime or the
// manifest-emitting introspect phase.
package config

import (
	"os"
	"path/filepath"
	"time"
)

// Phase is one of Runtime (poll-and-execute) or Introspect (emit manifests
// and exit without serving).
type Phase string

const (
	PhaseRuntime    Phase = "runtime"
	PhaseIntrospect Phase = "introspect"
)

// Environment tags the deployment target; it changes the runtime loop's
// fatal-error policy.
type Environment string

const (
	EnvProduction Environment = "production"
	EnvLocal      Environment = "local"
)

// Config is a snapshot of process environment taken once at LoadConfig.
// Later mutation of the environment does not affect an already-loaded
// Config.
type Config struct {
	Environment Environment
	Phase       Phase
	RuntimeAPI  string
	MetricsAddr string
	ManifestDir string

	Server      ServerConfig
	Browserbase BrowserbaseConfig
}

// BrowserbaseConfig configures the real Browserbase session provider. When
// APIKey is empty, the App falls back to the in-memory StaticProvider.
type BrowserbaseConfig struct {
	APIKey      string
	ProjectID   string
	TemplateDir string
}

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables with defaults,
// exactly as spec §6 names them.
func LoadConfig() *Config {
	environment := EnvLocal
	if getEnv("NODE_ENV", "") == string(EnvProduction) {
		environment = EnvProduction
	}

	phase := PhaseRuntime
	if getEnv("BB_FUNCTIONS_PHASE", string(PhaseRuntime)) == string(PhaseIntrospect) {
		phase = PhaseIntrospect
	}

	manifestDir := getEnv("BB_MANIFESTS_DIR", defaultManifestDir())

	return &Config{
		Environment: environment,
		Phase:       phase,
		RuntimeAPI:  getEnv("AWS_LAMBDA_RUNTIME_API", "127.0.0.1:14113"),
		MetricsAddr: getEnv("BB_METRICS_ADDR", "127.0.0.1:14114"),
		ManifestDir: manifestDir,
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "14113"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 310*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
		},
		Browserbase: BrowserbaseConfig{
			APIKey:      getEnv("BROWSERBASE_API_KEY", ""),
			ProjectID:   getEnv("BROWSERBASE_PROJECT_ID", ""),
			TemplateDir: getEnv("BROWSERBASE_TEMPLATE_DIR", "config/session-templates"),
		},
	}
}

// IsProduction reports whether system errors in the runtime loop should be
// fatal.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvProduction
}

func defaultManifestDir() string {
	cwd, err := os.Getwd()
	if err != nil {
		return filepath.Join(".browserbase", "functions", "manifests")
	}
	return filepath.Join(cwd, ".browserbase", "functions", "manifests")
}

// Helper functions to get environment variables with defaults.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
