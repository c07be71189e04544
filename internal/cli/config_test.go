package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMorphServer(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"localhost:8080", "http://localhost:8080"},
		{"http://localhost:8080/", "http://localhost:8080"},
		{"https://deskhand.example.com:443", "https://deskhand.example.com:443"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MorphServer(tt.in), tt.in)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := &Config{
		Version:        "0.1.0",
		ServerURL:      "localhost:8080",
		RequestTimeout: "10s",
	}
	require.NoError(t, cfg.WriteConfig(path))

	require.NoError(t, LoadConfig(path))
	loaded := GetConfig()
	require.NotNil(t, loaded)
	assert.Equal(t, "http://localhost:8080", loaded.GetServerURL())
	assert.Equal(t, 10*time.Second, loaded.GetTimeout())
	assert.Empty(t, loaded.GetToken())
}

func TestLoadConfigMissingServer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("version: \"0.1.0\"\n"), 0600))

	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server:port is required")
}

func TestLoadConfigMissingPort(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server_url: localhost\n"), 0600))

	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "port number")
}

func TestGetTimeoutDefaults(t *testing.T) {
	cfg := &Config{ServerURL: "localhost:8080"}
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())

	cfg.RequestTimeout = "garbage"
	assert.Equal(t, 30*time.Second, cfg.GetTimeout())
}

func TestIsApiVersionCompatible(t *testing.T) {
	assert.True(t, isApiVersionCompatible("0.1.0"))
	assert.True(t, isApiVersionCompatible("0.1.3"))
	assert.False(t, isApiVersionCompatible("0.2.0"))
	assert.False(t, isApiVersionCompatible("1.0.0"))
	assert.False(t, isApiVersionCompatible("not-a-version"))
}
