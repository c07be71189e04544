package rundeck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhand/deskhand/internal/connector/config"
	"github.com/deskhand/deskhand/pkg/api"
)

func testClient(url string) *Client {
	return NewClient(&config.RundeckConfig{
		URL:            url,
		RequestTimeout: "5s",
		Token:          "rd-token",
	})
}

func TestRunJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/40/job/universal-install-job/run", r.URL.Path)
		assert.Equal(t, "rd-token", r.Header.Get("X-Rundeck-Auth-Token"))

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "-software 'Slack' -winget_id 'SlackTechnologies.Slack' -version '4.35'", payload["argString"])

		w.Write([]byte(`{"id":42,"href":"..."}`))
	}))
	defer srv.Close()

	status, message := testClient(srv.URL).RunJob(context.Background(),
		"universal-install-job", "Slack", "SlackTechnologies.Slack", "4.35")
	assert.Equal(t, api.JobStatusSuccess, status)
	assert.Equal(t, "Rundeck execution started. Execution ID: 42", message)
}

func TestRunJobServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("unauthorized"))
	}))
	defer srv.Close()

	status, message := testClient(srv.URL).RunJob(context.Background(), "job", "s", "w", "v")
	assert.Equal(t, api.JobStatusFailed, status)
	assert.Contains(t, message, "Rundeck API error")
}

func TestRunJobUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	status, message := testClient(url).RunJob(context.Background(), "job", "s", "w", "v")
	assert.Equal(t, api.JobStatusFailed, status)
	assert.Contains(t, message, "Rundeck API error")
}

func TestRunJobNotConfigured(t *testing.T) {
	client := NewClient(&config.RundeckConfig{RequestTimeout: "5s"})
	status, message := client.RunJob(context.Background(), "job", "s", "w", "v")
	assert.Equal(t, api.JobStatusFailed, status)
	assert.Equal(t, "Rundeck API token not configured", message)
}

func TestConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/40/projects", r.URL.Path)
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	ok, message := testClient(srv.URL).TestConnection(context.Background())
	assert.True(t, ok)
	assert.Equal(t, "Connection successful", message)
}
