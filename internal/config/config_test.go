package config

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultGlobalConfig(t *testing.T) {
	cfg := NewDefaultGlobalConfig()

	require.NotNil(t, cfg)
	assert.Equal(t, 10*time.Second, cfg.ScanConfig.Probe.Timeout)
	assert.Equal(t, 5, cfg.ScanConfig.Probe.FixedBatchSize)
	assert.Equal(t, 3, cfg.ScanConfig.Discovery.DepthBudget)
	assert.Equal(t, 50, cfg.ScanConfig.Discovery.PageBudget)
	assert.Equal(t, 10, cfg.ScanConfig.Discovery.RoundSize)
	assert.Equal(t, 200, cfg.ScanConfig.Discovery.DeepCrawlProbeCap)
	assert.Equal(t, 50, cfg.ScanConfig.Injection.CandidateCap)
	assert.Equal(t, "HIGH", cfg.ScanConfig.Injection.Severity)
	assert.False(t, cfg.HeadlessBrowserConfig.Enabled)
	assert.NoError(t, ValidateConfig(cfg))
}

func TestLoadGlobalConfig_NoConfigFile(t *testing.T) {
	t.Setenv(ConfigPathEnv, "")

	cfg, err := LoadGlobalConfig("", zerolog.Nop())

	require.NoError(t, err)
	assert.Equal(t, DefaultServerListenAddress, cfg.ServerConfig.ListenAddress)
}

func TestLoadGlobalConfig_NonExistentFile(t *testing.T) {
	cfg, err := LoadGlobalConfig("/nonexistent/config.yaml", zerolog.Nop())

	assert.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLoadGlobalConfig_YAMLFile(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
server_config:
  listen_address: "127.0.0.1:9000"
log_config:
  log_level: debug
  log_format: json
scan_config:
  probe:
    timeout: 3s
  discovery:
    page_budget: 20
`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0o600))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1:9000", cfg.ServerConfig.ListenAddress)
	assert.Equal(t, "debug", cfg.LogConfig.LogLevel)
	assert.Equal(t, "json", cfg.LogConfig.LogFormat)
	assert.Equal(t, 3*time.Second, cfg.ScanConfig.Probe.Timeout)
	assert.Equal(t, 20, cfg.ScanConfig.Discovery.PageBudget)
	// untouched values keep their defaults
	assert.Equal(t, DefaultDepthBudget, cfg.ScanConfig.Discovery.DepthBudget)
}

func TestLoadGlobalConfig_JSONFileFromEnv(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(configFile, []byte(`{"metrics_config": {"enabled": true, "listen_address": ":9191"}}`), 0o600))
	t.Setenv(ConfigPathEnv, configFile)

	cfg, err := LoadGlobalConfig("", zerolog.Nop())
	require.NoError(t, err)

	assert.True(t, cfg.MetricsConfig.Enabled)
	assert.Equal(t, ":9191", cfg.MetricsConfig.ListenAddress)
}

func TestLoadGlobalConfig_InvalidValues(t *testing.T) {
	configFile := filepath.Join(t.TempDir(), "config.yaml")
	configData := `
log_config:
  log_level: loud
scan_config:
  discovery:
    script_fetches_per_page: 40
`
	require.NoError(t, os.WriteFile(configFile, []byte(configData), 0o600))

	cfg, err := LoadGlobalConfig(configFile, zerolog.Nop())

	require.Error(t, err)
	assert.Nil(t, cfg)
	assert.Contains(t, err.Error(), "LogLevel")
	assert.Contains(t, err.Error(), "ScriptFetchesPerPage")
}

func TestValidateConfig_HostPort(t *testing.T) {
	tests := []struct {
		address string
		valid   bool
	}{
		{address: ":8080", valid: true},
		{address: "0.0.0.0:443", valid: true},
		{address: "localhost", valid: false},
		{address: "host:notaport", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.address, func(t *testing.T) {
			cfg := NewDefaultGlobalConfig()
			cfg.ServerConfig.ListenAddress = tt.address
			if tt.valid {
				assert.NoError(t, ValidateConfig(cfg))
			} else {
				assert.Error(t, ValidateConfig(cfg))
			}
		})
	}
}

func TestDatabaseErrorSignatures_Compile(t *testing.T) {
	for dbms, patterns := range DatabaseErrorSignatures {
		for _, pattern := range patterns {
			_, err := regexp.Compile(pattern)
			assert.NoError(t, err, "%s: %s", dbms, pattern)
		}
	}
}

func TestTables(t *testing.T) {
	assert.Len(t, InjectionTemplates, 10)
	assert.GreaterOrEqual(t, len(InjectionPayloads), DefaultInjectionMaxPayloads)
	assert.Equal(t, "'", InjectionPayloads[0])
	assert.Equal(t, "' OR '1'='1", InjectionPayloads[1])
	assert.Contains(t, SensitiveFiles, "/.env")
	assert.Contains(t, SensitiveFiles, "/.git/HEAD")
	assert.Contains(t, CommonEndpoints, "/graphql")
}
