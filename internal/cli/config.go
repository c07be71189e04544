package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"sigs.k8s.io/yaml"
)

// DefaultConfigFile is the default name of the config file
const DefaultConfigFile = "config.yaml"

// Config represents the configuration for deskctl.
// It contains the deskhand server connection details.
type Config struct {
	// Version of the configuration file format
	Version string `json:"version"`
	// ServerURL is the URL and port of the deskhand server
	ServerURL string `json:"server_url"`
	// RequestTimeout is the per-request timeout, e.g. "30s"
	RequestTimeout string `json:"request_timeout,omitempty"`
}

var config *Config

// GetDefaultConfigPath returns the default path for the config file
// It uses the OS-specific config directory (e.g., ~/.config/deskctl on Linux)
func GetDefaultConfigPath() (string, error) {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(configDir, "deskctl", DefaultConfigFile), nil
}

// LoadConfig loads the configuration from the specified file
// If no file is specified, it uses the default config location
func LoadConfig(file string) error {
	if file == "" {
		var err error
		file, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	yamlStr, err := os.ReadFile(file)
	if err != nil {
		return fmt.Errorf("unable to read config file: %w", err)
	}

	var c Config
	if err = yaml.Unmarshal(yamlStr, &c); err != nil {
		return fmt.Errorf("unable to parse config file: %w", err)
	}

	if c.ServerURL == "" {
		return errors.New("server:port is required")
	}
	if !strings.Contains(c.ServerURL, ":") {
		return errors.New("server:port must include port number")
	}

	// Morph the server URL before storing
	c.ServerURL = MorphServer(c.ServerURL)

	config = &c
	return nil
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	return config
}

// WriteConfig writes the current configuration to the specified file
func (cfg *Config) WriteConfig(file string) error {
	if file == "" {
		return errors.New("file path cannot be empty")
	}

	err := os.MkdirAll(filepath.Dir(file), os.ModePerm)
	if err != nil {
		return fmt.Errorf("unable to create config directory: %w", err)
	}

	yamlStr, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("unable to generate configuration: %w", err)
	}

	err = os.WriteFile(file, yamlStr, os.FileMode(0600))
	if err != nil {
		return fmt.Errorf("unable to write config file: %w", err)
	}

	return nil
}

// MorphServer ensures the server URL is properly formatted
// Adds http:// prefix if missing and removes trailing slashes
func MorphServer(server string) string {
	if server == "" {
		return server
	}

	server = strings.TrimRight(server, "/")

	if !strings.HasPrefix(server, "http://") && !strings.HasPrefix(server, "https://") {
		server = "http://" + server
	}

	return server
}

// GetServerURL returns the properly formatted server URL
func (cfg *Config) GetServerURL() string {
	return MorphServer(cfg.ServerURL)
}

// GetToken returns the bearer token for requests. The deskhand admin
// surface is unauthenticated, so there is none.
func (cfg *Config) GetToken() string {
	return ""
}

// GetTimeout returns the per-request timeout from the configuration
func (cfg *Config) GetTimeout() time.Duration {
	if cfg.RequestTimeout == "" {
		return 30 * time.Second
	}
	d, err := time.ParseDuration(cfg.RequestTimeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage CLI configuration",
	Long:  `Manage CLI configuration settings like the deskhand server connection.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		serverFlag, _ := cmd.Flags().GetString("server")
		if serverFlag != "" {
			return setServerConfig(serverFlag)
		}

		// If no specific flag is provided, show help
		cmd.Help()
		return nil
	},
}

func init() {
	configCmd.Flags().String("server", "", "Set the server URL and port (e.g., example.com:8080)")
	rootCmd.AddCommand(configCmd)
}

// setServerConfig sets the server configuration in the config file
func setServerConfig(server string) error {
	configPath := configFile
	if configPath == "" {
		var err error
		configPath, err = GetDefaultConfigPath()
		if err != nil {
			return fmt.Errorf("failed to get default config path: %w", err)
		}
	}

	if !strings.Contains(server, ":") {
		return errors.New("server must include port number (e.g., example.com:8080)")
	}

	cfg := &Config{
		Version:   "0.1.0",
		ServerURL: MorphServer(server),
	}

	if err := cfg.WriteConfig(configPath); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	if jsonOutput {
		printJSON(map[string]string{
			"server":      cfg.ServerURL,
			"config_file": configPath,
		})
	} else {
		fmt.Printf("Server configured: %s\n", cfg.ServerURL)
		fmt.Printf("Config file: %s\n", configPath)
	}

	return nil
}
