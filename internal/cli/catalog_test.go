package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadCatalogFile(t *testing.T) {
	path := writeTempFile(t, `
- software_name: Slack
  version: "4.35"
  job_id: universal-install-job
  winget_id: SlackTechnologies.Slack
- software_name: Zoom
  version: latest
  job_id: universal-install-job
  winget_id: Zoom.Zoom
`)

	entries, err := LoadCatalogFile(path)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "Slack", entries[0].SoftwareName)
	assert.Equal(t, "4.35", entries[0].Version)
	assert.Equal(t, "universal-install-job", entries[0].JobID)
	assert.Equal(t, "SlackTechnologies.Slack", entries[0].WingetID)
	assert.Equal(t, "Zoom", entries[1].SoftwareName)
}

func TestLoadCatalogFileMissingFields(t *testing.T) {
	path := writeTempFile(t, `
- software_name: Slack
  job_id: universal-install-job
`)

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "software_name and version are required")
}

func TestLoadCatalogFileMissingJobMapping(t *testing.T) {
	path := writeTempFile(t, `
- software_name: Slack
  version: "4.35"
  winget_id: SlackTechnologies.Slack
`)

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job_id and winget_id are required")
}

func TestLoadCatalogFileEmpty(t *testing.T) {
	path := writeTempFile(t, "[]\n")

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no entries")
}

func TestLoadCatalogFileBadYAML(t *testing.T) {
	path := writeTempFile(t, "not: [valid")

	_, err := LoadCatalogFile(path)
	require.Error(t, err)
}

func TestLoadCatalogFileMissing(t *testing.T) {
	_, err := LoadCatalogFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}
