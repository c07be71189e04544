package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Version is the supported configuration file format version.
const Version = "0.1.0"

// ApprovalConfig holds approval workflow configuration
type ApprovalConfig struct {
	Approvers []string `toml:"approvers"` // Chat user ids allowed to approve or reject
}

// IsApprover reports whether the given user may approve or reject requests.
// An empty approver list means any user may decide.
func (a *ApprovalConfig) IsApprover(userID string) bool {
	if len(a.Approvers) == 0 {
		return true
	}
	for _, id := range a.Approvers {
		if id == userID {
			return true
		}
	}
	return false
}

// ConnectorConfig holds gateway connection configuration
type ConnectorConfig struct {
	URL            string `toml:"url"`             // Base URL of the connector gateway
	SigningKey     string `toml:"signing_key"`     // Shared HMAC key for service tokens
	RequestTimeout string `toml:"request_timeout"` // Timeout for connector calls
	TokenValidity  string `toml:"token_validity"`  // Validity window for minted service tokens
}

// GetRequestTimeout returns the connector request timeout as time.Duration
func (c *ConnectorConfig) GetRequestTimeout() (time.Duration, error) {
	return ParseDuration(c.RequestTimeout)
}

// GetRequestTimeoutOrDefault returns the connector request timeout as time.Duration
// or panics if the value is invalid
func (c *ConnectorConfig) GetRequestTimeoutOrDefault() time.Duration {
	duration, err := c.GetRequestTimeout()
	if err != nil {
		panic(fmt.Sprintf("invalid connector request timeout: %v", err))
	}
	return duration
}

// GetTokenValidity returns the service token validity as time.Duration
func (c *ConnectorConfig) GetTokenValidity() (time.Duration, error) {
	return ParseDuration(c.TokenValidity)
}

// GetTokenValidityOrDefault returns the service token validity as time.Duration
// or panics if the value is invalid
func (c *ConnectorConfig) GetTokenValidityOrDefault() time.Duration {
	duration, err := c.GetTokenValidity()
	if err != nil {
		panic(fmt.Sprintf("invalid connector token validity: %v", err))
	}
	return duration
}

// ConfigParam holds all configuration parameters for the deskhand service
type ConfigParam struct {
	// Configuration version
	FormatVersion string `toml:"format_version"` // Version of this configuration file format

	// Server configuration
	ServerHostName     string `toml:"server_hostname"`       // Hostname for the server
	ServerPort         string `toml:"server_port"`           // Port for the main server
	HandleCORS         bool   `toml:"handle_cors"`           // Whether to handle CORS
	MaxRequestBodySize int64  `toml:"max_request_body_size"` // Maximum size of request body in bytes

	// Approval configuration
	Approval ApprovalConfig `toml:"approval"`

	// Connector configuration
	Connector ConnectorConfig `toml:"connector"`

	// Database configuration
	DB struct {
		Host     string `toml:"host"`     // Database host
		Port     int    `toml:"port"`     // Database port
		DBName   string `toml:"dbname"`   // Database name
		User     string `toml:"user"`     // Database user
		Password string `toml:"password"` // Database password
		SSLMode  string `toml:"sslmode"`  // SSL mode for database connection
	} `toml:"db"`
}

var cfg *ConfigParam

// Config returns the current configuration
func Config() *ConfigParam {
	return cfg
}

// DSN returns the database connection string
func (c *ConfigParam) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.DBName, c.DB.SSLMode)
}

// ParseDuration parses a duration string in the format "<number><unit>" where unit can be:
// - d: days
// - h: hours
// - m: minutes
// - s: seconds
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
	if err := validateConfigFormatVersion(cfg); err != nil {
		return err
	}
	if err := validateServerConfig(cfg); err != nil {
		return err
	}
	if err := validateConnectorConfig(cfg); err != nil {
		return err
	}
	if err := validateDBConfig(cfg); err != nil {
		return err
	}
	return nil
}

func validateConfigFormatVersion(cfg *ConfigParam) error {
	if cfg.FormatVersion != Version {
		return fmt.Errorf("unsupported config file format version: %s", cfg.FormatVersion)
	}
	return nil
}

func validateServerConfig(cfg *ConfigParam) error {
	if cfg.ServerPort == "" {
		return fmt.Errorf("server_port is required")
	}
	if cfg.MaxRequestBodySize <= 0 {
		cfg.MaxRequestBodySize = 1 << 20
	}
	return nil
}

func validateConnectorConfig(cfg *ConfigParam) error {
	if cfg.Connector.URL == "" {
		return fmt.Errorf("connector.url is required")
	}
	if cfg.Connector.SigningKey == "" {
		return fmt.Errorf("connector.signing_key is required")
	}
	if cfg.Connector.RequestTimeout == "" {
		cfg.Connector.RequestTimeout = "30s"
	}
	if _, err := ParseDuration(cfg.Connector.RequestTimeout); err != nil {
		return fmt.Errorf("invalid connector.request_timeout: %v", err)
	}
	if cfg.Connector.TokenValidity == "" {
		cfg.Connector.TokenValidity = "5m"
	}
	if _, err := ParseDuration(cfg.Connector.TokenValidity); err != nil {
		return fmt.Errorf("invalid connector.token_validity: %v", err)
	}
	return nil
}

func validateDBConfig(cfg *ConfigParam) error {
	if cfg.DB.Host == "" {
		return fmt.Errorf("db.host is required")
	}
	if cfg.DB.Port <= 0 {
		return fmt.Errorf("db.port must be positive")
	}
	if cfg.DB.DBName == "" {
		return fmt.Errorf("db.dbname is required")
	}
	if cfg.DB.User == "" {
		return fmt.Errorf("db.user is required")
	}
	if cfg.DB.Password == "" {
		return fmt.Errorf("db.password is required")
	}
	if cfg.DB.SSLMode == "" {
		return fmt.Errorf("db.sslmode is required")
	}
	return nil
}

// LoadConfig loads configuration from a file
func LoadConfig(filename string) error {
	if filename == "" {
		return fmt.Errorf("config filename is required")
	}

	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("error reading config file: %v", err)
	}

	cfg = &ConfigParam{}
	if _, err := toml.Decode(string(content), cfg); err != nil {
		return fmt.Errorf("error parsing config file: %v", err)
	}

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
	if err := LoadConfig(filepath.Join(projectRoot, "deskhand.conf")); err != nil {
		panic(fmt.Errorf("error loading config: %v", err))
	}
}
