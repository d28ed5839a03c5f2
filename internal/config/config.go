package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/dev-fuadhasan/openapi/internal/common"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// maxConfigFileSize bounds the size of a config file read from disk
const maxConfigFileSize = 1024 * 1024

type GlobalConfig struct {
	ServerConfig          ServerConfig          `json:"server_config,omitempty" yaml:"server_config,omitempty"`
	LogConfig             LogConfig             `json:"log_config,omitempty" yaml:"log_config,omitempty"`
	HTTPClientConfig      HTTPClientConfig      `json:"http_client_config,omitempty" yaml:"http_client_config,omitempty"`
	ScanConfig            ScanConfig            `json:"scan_config,omitempty" yaml:"scan_config,omitempty"`
	HeadlessBrowserConfig HeadlessBrowserConfig `json:"headless_browser_config,omitempty" yaml:"headless_browser_config,omitempty"`
	MetricsConfig         MetricsConfig         `json:"metrics_config,omitempty" yaml:"metrics_config,omitempty"`
	ResourceLimiterConfig ResourceLimiterConfig `json:"resource_limiter_config,omitempty" yaml:"resource_limiter_config,omitempty"`
}

func NewDefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		ServerConfig:          NewDefaultServerConfig(),
		LogConfig:             NewDefaultLogConfig(),
		HTTPClientConfig:      NewDefaultHTTPClientConfig(),
		ScanConfig:            NewDefaultScanConfig(),
		HeadlessBrowserConfig: NewDefaultHeadlessBrowserConfig(),
		MetricsConfig:         NewDefaultMetricsConfig(),
		ResourceLimiterConfig: NewDefaultResourceLimiterConfig(),
	}
}

// LoadGlobalConfig loads the configuration from a file or default locations.
// Without a config file the compiled-in defaults are returned.
// YAML is used if the file extension is .yaml or .yml, JSON otherwise.
func LoadGlobalConfig(providedPath string, logger zerolog.Logger) (*GlobalConfig, error) {
	cfg := NewDefaultGlobalConfig()

	filePath := GetConfigPath(providedPath)
	if filePath == "" {
		if providedPath != "" {
			return nil, common.NewValidationError("config_file", providedPath, "config file does not exist")
		}
		logger.Debug().Msg("No config file found, using built-in defaults")
		return cfg, nil
	}

	data, err := loadConfigFileContent(filePath)
	if err != nil {
		return nil, common.WrapError(err, "failed to load config file content")
	}

	if err := parseConfigContent(data, filePath, cfg); err != nil {
		return nil, common.WrapError(err, "failed to parse config content")
	}

	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	logger.Info().Str("path", filePath).Msg("Configuration loaded")
	return cfg, nil
}

func loadConfigFileContent(filePath string) ([]byte, error) {
	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	if info.Size() > maxConfigFileSize {
		return nil, common.NewValidationError("config_file", filePath, "config file too large")
	}
	return os.ReadFile(filePath)
}

// parseConfigContent parses the config content based on file extension
func parseConfigContent(data []byte, filePath string, cfg *GlobalConfig) error {
	ext := filepath.Ext(filePath)
	if isYAMLFile(ext) {
		return parseYAMLConfig(data, filePath, cfg)
	}
	return parseJSONConfig(data, filePath, cfg)
}

// isYAMLFile checks if the file extension indicates a YAML file
func isYAMLFile(ext string) bool {
	return ext == ".yaml" || ext == ".yml"
}

// parseYAMLConfig parses YAML configuration
func parseYAMLConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal YAML from '%s': %w", filePath, err)
	}
	return nil
}

// parseJSONConfig parses JSON configuration
func parseJSONConfig(data []byte, filePath string, cfg *GlobalConfig) error {
	if err := json.Unmarshal(data, cfg); err != nil {
		return common.NewError("failed to unmarshal JSON from '%s': %w", filePath, err)
	}
	return nil
}

type ServerConfig struct {
	ListenAddress    string `json:"listen_address,omitempty" yaml:"listen_address,omitempty" validate:"required,hostport"`
	ReadTimeoutSecs  int    `json:"read_timeout_secs,omitempty" yaml:"read_timeout_secs,omitempty" validate:"min=1"`
	WriteTimeoutSecs int    `json:"write_timeout_secs,omitempty" yaml:"write_timeout_secs,omitempty" validate:"min=1"`
	MaxBodyBytes     int64  `json:"max_body_bytes,omitempty" yaml:"max_body_bytes,omitempty" validate:"min=1"`
}

func NewDefaultServerConfig() ServerConfig {
	return ServerConfig{
		ListenAddress:    DefaultServerListenAddress,
		ReadTimeoutSecs:  DefaultServerReadTimeoutSecs,
		WriteTimeoutSecs: DefaultServerWriteTimeoutSecs,
		MaxBodyBytes:     DefaultServerMaxBodyBytes,
	}
}

type LogConfig struct {
	LogFile       string `json:"log_file,omitempty" yaml:"log_file,omitempty"`
	LogFormat     string `json:"log_format,omitempty" yaml:"log_format,omitempty" validate:"omitempty,logformat"`
	LogLevel      string `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,loglevel"`
	MaxLogBackups int    `json:"max_log_backups,omitempty" yaml:"max_log_backups,omitempty" validate:"min=0"`
	MaxLogSizeMB  int    `json:"max_log_size_mb,omitempty" yaml:"max_log_size_mb,omitempty" validate:"min=0"`
}

func NewDefaultLogConfig() LogConfig {
	return LogConfig{
		LogFile:       DefaultLogFile,
		LogFormat:     DefaultLogFormat,
		LogLevel:      DefaultLogLevel,
		MaxLogBackups: DefaultMaxLogBackups,
		MaxLogSizeMB:  DefaultMaxLogSizeMB,
	}
}

// HTTPClientConfig describes the outbound client shared by every probe
type HTTPClientConfig struct {
	UserAgent           string        `json:"user_agent,omitempty" yaml:"user_agent,omitempty" validate:"required"`
	Timeout             time.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" validate:"min=1ms"`
	MaxContentBytes     int           `json:"max_content_bytes,omitempty" yaml:"max_content_bytes,omitempty" validate:"min=1024"`
	FollowRedirects     bool          `json:"follow_redirects" yaml:"follow_redirects"`
	MaxRedirects        int           `json:"max_redirects,omitempty" yaml:"max_redirects,omitempty" validate:"min=0"`
	InsecureSkipVerify  bool          `json:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	EnableHTTP2         bool          `json:"enable_http2" yaml:"enable_http2"`
	MaxIdleConns        int           `json:"max_idle_conns,omitempty" yaml:"max_idle_conns,omitempty" validate:"min=0"`
	MaxConnsPerHost     int           `json:"max_conns_per_host,omitempty" yaml:"max_conns_per_host,omitempty" validate:"min=0"`
	IdleConnTimeout     time.Duration `json:"idle_conn_timeout,omitempty" yaml:"idle_conn_timeout,omitempty"`
	DialTimeout         time.Duration `json:"dial_timeout,omitempty" yaml:"dial_timeout,omitempty"`
	TLSHandshakeTimeout time.Duration `json:"tls_handshake_timeout,omitempty" yaml:"tls_handshake_timeout,omitempty"`
	Proxy               string        `json:"proxy,omitempty" yaml:"proxy,omitempty" validate:"omitempty,url"`
}

func NewDefaultHTTPClientConfig() HTTPClientConfig {
	return HTTPClientConfig{
		UserAgent:           DefaultUserAgent,
		Timeout:             DefaultProbeTimeout,
		MaxContentBytes:     DefaultMaxContentBytes,
		FollowRedirects:     DefaultFollowRedirects,
		MaxRedirects:        DefaultMaxRedirects,
		InsecureSkipVerify:  DefaultInsecureSkipTLS,
		EnableHTTP2:         DefaultEnableHTTP2,
		MaxIdleConns:        DefaultMaxIdleConns,
		MaxConnsPerHost:     DefaultMaxConnsPerHost,
		IdleConnTimeout:     DefaultIdleConnTimeout,
		DialTimeout:         DefaultDialTimeout,
		TLSHandshakeTimeout: DefaultTLSHandshakeTime,
	}
}

type HeadlessBrowserConfig struct {
	Enabled             bool   `json:"enabled" yaml:"enabled"`
	ChromePath          string `json:"chrome_path,omitempty" yaml:"chrome_path,omitempty"`
	PoolSize            int    `json:"pool_size,omitempty" yaml:"pool_size,omitempty" validate:"min=1"`
	PageLoadTimeoutSecs int    `json:"page_load_timeout_secs,omitempty" yaml:"page_load_timeout_secs,omitempty" validate:"min=1"`
	WaitAfterLoadMs     int    `json:"wait_after_load_ms,omitempty" yaml:"wait_after_load_ms,omitempty" validate:"min=0"`
	WindowWidth         int    `json:"window_width,omitempty" yaml:"window_width,omitempty" validate:"min=1"`
	WindowHeight        int    `json:"window_height,omitempty" yaml:"window_height,omitempty" validate:"min=1"`
	DisableImages       bool   `json:"disable_images" yaml:"disable_images"`
}

func NewDefaultHeadlessBrowserConfig() HeadlessBrowserConfig {
	return HeadlessBrowserConfig{
		Enabled:             DefaultHeadlessEnabled,
		PoolSize:            DefaultHeadlessPoolSize,
		PageLoadTimeoutSecs: DefaultHeadlessPageLoadTimeout,
		WaitAfterLoadMs:     DefaultHeadlessWaitAfterLoadMs,
		WindowWidth:         DefaultHeadlessWindowWidth,
		WindowHeight:        DefaultHeadlessWindowHeight,
		DisableImages:       true,
	}
}

type MetricsConfig struct {
	Enabled       bool   `json:"enabled" yaml:"enabled"`
	ListenAddress string `json:"listen_address,omitempty" yaml:"listen_address,omitempty" validate:"omitempty,hostport"`
	Path          string `json:"path,omitempty" yaml:"path,omitempty" validate:"omitempty,startswith=/"`
}

func NewDefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:       DefaultMetricsEnabled,
		ListenAddress: DefaultMetricsListenAddress,
		Path:          DefaultMetricsPath,
	}
}

type ResourceLimiterConfig struct {
	Enabled              bool          `json:"enabled" yaml:"enabled"`
	CheckInterval        time.Duration `json:"check_interval,omitempty" yaml:"check_interval,omitempty" validate:"min=1s"`
	SystemMemThreshold   float64       `json:"system_mem_threshold,omitempty" yaml:"system_mem_threshold,omitempty" validate:"gt=0,lte=1"`
	MaxGoroutines        int           `json:"max_goroutines,omitempty" yaml:"max_goroutines,omitempty" validate:"min=1"`
	GoroutineWarningRate float64       `json:"goroutine_warning_rate,omitempty" yaml:"goroutine_warning_rate,omitempty" validate:"gt=0,lte=1"`
}

func NewDefaultResourceLimiterConfig() ResourceLimiterConfig {
	return ResourceLimiterConfig{
		Enabled:              DefaultResourceLimiterEnabled,
		CheckInterval:        DefaultResourceCheckInterval,
		SystemMemThreshold:   DefaultSystemMemThreshold,
		MaxGoroutines:        DefaultResourceMaxGoroutines,
		GoroutineWarningRate: DefaultResourceGoroutineWarningRatio,
	}
}
