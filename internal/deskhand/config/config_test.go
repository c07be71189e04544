package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "deskhand.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

const validConfig = `
format_version = "0.1.0"
server_port = "8080"

[connector]
url = "http://127.0.0.1:8081"
signing_key = "test-key"

[db]
host = "localhost"
port = 5432
dbname = "deskhand"
user = "deskhand"
password = "secret"
sslmode = "disable"
`

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, validConfig)
	require.NoError(t, LoadConfig(path))

	cfg := Config()
	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "http://127.0.0.1:8081", cfg.Connector.URL)
	assert.Equal(t, "host=localhost port=5432 user=deskhand password=secret dbname=deskhand sslmode=disable", cfg.DSN())

	// defaults filled in during validation
	assert.Equal(t, 30*time.Second, cfg.Connector.GetRequestTimeoutOrDefault())
	assert.Equal(t, 5*time.Minute, cfg.Connector.GetTokenValidityOrDefault())
	assert.Equal(t, int64(1<<20), cfg.MaxRequestBodySize)
}

func TestLoadConfigBadVersion(t *testing.T) {
	path := writeConfig(t, `
format_version = "9.9.9"
server_port = "8080"
`)
	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported config file format version")
}

func TestLoadConfigMissingConnector(t *testing.T) {
	path := writeConfig(t, `
format_version = "0.1.0"
server_port = "8080"

[db]
host = "localhost"
port = 5432
dbname = "deskhand"
user = "deskhand"
password = "secret"
sslmode = "disable"
`)
	err := LoadConfig(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connector.url is required")
}

func TestIsApprover(t *testing.T) {
	open := ApprovalConfig{}
	assert.True(t, open.IsApprover("anyone"))

	scoped := ApprovalConfig{Approvers: []string{"it-lead", "it-admin"}}
	assert.True(t, scoped.IsApprover("it-admin"))
	assert.False(t, scoped.IsApprover("intern"))
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		input   string
		want    time.Duration
		wantErr bool
	}{
		{"30s", 30 * time.Second, false},
		{"5m", 5 * time.Minute, false},
		{"2h", 2 * time.Hour, false},
		{"1d", 24 * time.Hour, false},
		{"", 0, true},
		{"10x", 0, true},
		{"abch", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseDuration(tt.input)
		if tt.wantErr {
			assert.Error(t, err, tt.input)
		} else {
			require.NoError(t, err, tt.input)
			assert.Equal(t, tt.want, got, tt.input)
		}
	}
}
