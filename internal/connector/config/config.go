// Package config holds the connector service configuration. Endpoints and
// timeouts come from a TOML file; credentials come from the environment,
// optionally loaded from a .env file.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Version is the supported configuration file format version.
const Version = "0.1.0"

// Environment variables carrying the connector credentials.
const (
	EnvSnowInstance = "SNOW_INSTANCE"
	EnvSnowUsername = "SNOW_USERNAME"
	EnvSnowPassword = "SNOW_PASSWORD"
	EnvRundeckToken = "RUNDECK_TOKEN"
	EnvSigningKey   = "CONNECTOR_SIGNING_KEY"
)

// ServiceNowConfig holds the ticketing system configuration
type ServiceNowConfig struct {
	InstanceURL    string `toml:"instance_url"`    // Base URL of the ServiceNow instance
	RequestTimeout string `toml:"request_timeout"` // Timeout for ServiceNow calls
	Username       string `toml:"-"`               // From SNOW_USERNAME
	Password       string `toml:"-"`               // From SNOW_PASSWORD
}

// Configured reports whether credentials are present.
func (s *ServiceNowConfig) Configured() bool {
	return s.InstanceURL != "" && s.Username != "" && s.Password != ""
}

// GetRequestTimeoutOrDefault returns the ServiceNow request timeout or panics
// if the value is invalid
func (s *ServiceNowConfig) GetRequestTimeoutOrDefault() time.Duration {
	duration, err := ParseDuration(s.RequestTimeout)
	if err != nil {
		panic(fmt.Sprintf("invalid servicenow request timeout: %v", err))
	}
	return duration
}

// RundeckConfig holds the job runner configuration
type RundeckConfig struct {
	URL            string `toml:"url"`             // Base URL of the Rundeck server
	RequestTimeout string `toml:"request_timeout"` // Timeout for Rundeck calls
	Token          string `toml:"-"`               // From RUNDECK_TOKEN
}

// Configured reports whether the API token is present.
func (r *RundeckConfig) Configured() bool {
	return r.URL != "" && r.Token != ""
}

// GetRequestTimeoutOrDefault returns the Rundeck request timeout or panics
// if the value is invalid
func (r *RundeckConfig) GetRequestTimeoutOrDefault() time.Duration {
	duration, err := ParseDuration(r.RequestTimeout)
	if err != nil {
		panic(fmt.Sprintf("invalid rundeck request timeout: %v", err))
	}
	return duration
}

// ConfigParam holds all configuration parameters for the connector service
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName     string `toml:"server_hostname"`       // Hostname for the server
	ServerPort         string `toml:"server_port"`           // Port for the connector server
	HandleCORS         bool   `toml:"handle_cors"`           // Whether to handle CORS
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // Maximum size of request body in bytes

	// ServiceNow configuration
	ServiceNow ServiceNowConfig `toml:"servicenow"`

	// Rundeck configuration
	Rundeck RundeckConfig `toml:"rundeck"`

	// SigningKey verifies inbound service tokens. From CONNECTOR_SIGNING_KEY.
	SigningKey string `toml:"-"`
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// ParseDuration parses a duration string in the format "<number><unit>" where
// unit can be d, h, m or s.
func ParseDuration(input string) (time.Duration, error) {
	if len(input) < 2 {
		return 0, fmt.Errorf("invalid input format")
	}

	unit := input[len(input)-1:]
	valueStr := input[:len(input)-1]
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid number: %s", err)
	}

	var duration time.Duration
	switch unit {
	case "d":
		duration = time.Duration(value) * 24 * time.Hour
	case "h":
		duration = time.Duration(value) * time.Hour
	case "m":
		duration = time.Duration(value) * time.Minute
	case "s":
		duration = time.Duration(value) * time.Second
	default:
		return 0, fmt.Errorf("unknown time unit: %s", unit)
	}

	return duration, nil
}

// ValidateConfig checks if all required configuration values are present and valid
func ValidateConfig(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20
	}
	if cfg.ServiceNow.RequestTimeout == "" {
		cfg.ServiceNow.RequestTimeout = "30s"
	}
	if _, err := ParseDuration(cfg.ServiceNow.RequestTimeout); err != nil {
		return fmt.Errorf("invalid servicenow.request_timeout: %v", err)
	}
	if cfg.Rundeck.RequestTimeout == "" {
		cfg.Rundeck.RequestTimeout = "30s"
	}
	if _, err := ParseDuration(cfg.Rundeck.RequestTimeout); err != nil {
		return fmt.Errorf("invalid rundeck.request_timeout: %v", err)
	}
	if cfg.SigningKey == "" {
		return fmt.Errorf("%s environment variable is required", EnvSigningKey)
	}
	return nil
}

// applyEnv overlays credentials and overrides from the environment.
func applyEnv(cfg *ConfigParam) {
	if v := os.Getenv(EnvSnowInstance); v != "" {
		cfg.ServiceNow.InstanceURL = v
	}
	cfg.ServiceNow.Username = os.Getenv(EnvSnowUsername)
	cfg.ServiceNow.Password = os.Getenv(EnvSnowPassword)
	cfg.Rundeck.Token = os.Getenv(EnvRundeckToken)
	cfg.SigningKey = os.Getenv(EnvSigningKey)
}

// LoadConfig loads configuration from a file, then overlays credentials from
// the environment. A .env file next to the working directory is honored.
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	cfg = &ConfigParam{}
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

	applyEnv(cfg)

	if err := ValidateConfig(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %v", err)
	}

	return nil
}

var isTest = false

func IsTest() bool {
	return isTest
}

func SetTestMode(test bool) {
	isTest = test
}

func TestInit() {
	isTest = true
	if os.Getenv(EnvSigningKey) == "" {
		os.Setenv(EnvSigningKey, "test-signing-key")
	}
	wd, err := os.Getwd()
	if err != nil {
		panic(err)
	}

	projectRoot := wd
	for {
		if _, err := os.Stat(filepath.Join(projectRoot, "go.mod")); err == nil {
			break
		}
		parent := filepath.Dir(projectRoot)
		if parent == projectRoot {
			panic("could not find project root (go.mod)")
		}
		projectRoot = parent
	}
	if err := LoadConfig(filepath.Join(projectRoot, "connector.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
