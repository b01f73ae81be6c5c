package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
)

func clearEnv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		prev, existed := os.LookupEnv(k)
		_ = os.Unsetenv(k)
		t.Cleanup(func() {
			if existed {
				_ = os.Setenv(k, prev)
			}
		})
	}
}

func TestLoadConfigDefaultsToLocalAndRuntime(t *testing.T) {
	clearEnv(t, "NODE_ENV", "BB_FUNCTIONS_PHASE", "AWS_LAMBDA_RUNTIME_API", "BB_METRICS_ADDR")

	cfg := LoadConfig()
	assert.Equal(t, EnvLocal, cfg.Environment)
	assert.Equal(t, PhaseRuntime, cfg.Phase)
	assert.Equal(t, "127.0.0.1:14113", cfg.RuntimeAPI)
	assert.Equal(t, "127.0.0.1:14114", cfg.MetricsAddr)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigReadsProductionAndIntrospectPhase(t *testing.T) {
	clearEnv(t, "NODE_ENV", "BB_FUNCTIONS_PHASE")
	os.Setenv("NODE_ENV", "production")
	os.Setenv("BB_FUNCTIONS_PHASE", "introspect")

	cfg := LoadConfig()
	assert.Equal(t, EnvProduction, cfg.Environment)
	assert.Equal(t, PhaseIntrospect, cfg.Phase)
	assert.True(t, cfg.IsProduction())
}

func TestLoadConfigUnrecognizedNodeEnvStaysLocal(t *testing.T) {
	clearEnv(t, "NODE_ENV")
	os.Setenv("NODE_ENV", "staging")

	cfg := LoadConfig()
	assert.Equal(t, EnvLocal, cfg.Environment)
}
