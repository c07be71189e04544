// Package rundeck is a minimal client for the Rundeck job-run REST API. A
// job run either starts, yielding an execution id, or fails with a message;
// the client never reports transport details past that boundary.
package rundeck

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/deskhand/deskhand/internal/connector/config"
	"github.com/deskhand/deskhand/pkg/api"
)

const apiVersion = "40"

// Client talks to one Rundeck server with token auth.
type Client struct {
	cfg        *config.RundeckConfig
	httpClient *http.Client
}

// NewClient creates a Rundeck client from the connector configuration.
func NewClient(cfg *config.RundeckConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.GetRequestTimeoutOrDefault(),
		},
	}
}

// RunJob starts the install job and returns the runner's outcome. Every
// failure mode collapses into (failed, message); the caller never sees an
// error value.
func (c *Client) RunJob(ctx context.Context, jobID, software, wingetID, version string) (api.JobStatus, string) {
	if !c.cfg.Configured() {
		return api.JobStatusFailed, "Rundeck API token not configured"
	}

	payload, _ := sjson.SetBytes(nil, "argString",
		fmt.Sprintf("-software '%s' -winget_id '%s' -version '%s'", software, wingetID, version))

	runURL := fmt.Sprintf("%s/api/%s/job/%s/run", c.cfg.URL, apiVersion, jobID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, runURL, bytes.NewReader(payload))
	if err != nil {
		return api.JobStatusFailed, fmt.Sprintf("Rundeck API error: %v", err)
	}
	req.Header.Set("X-Rundeck-Auth-Token", c.cfg.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("rundeck request failed")
		return api.JobStatusFailed, fmt.Sprintf("Rundeck API error: %v", err)
	}
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return api.JobStatusFailed, fmt.Sprintf("Rundeck API error: %v", err)
	}
	if rsp.StatusCode >= 400 {
		log.Ctx(ctx).Error().Int("status", rsp.StatusCode).Str("job_id", jobID).Msg("rundeck job run rejected")
		return api.JobStatusFailed, fmt.Sprintf("Rundeck API error: %d - %s", rsp.StatusCode, string(body))
	}

	executionID := gjson.GetBytes(body, "id").String()
	return api.JobStatusSuccess, fmt.Sprintf("Rundeck execution started. Execution ID: %s", executionID)
}

// TestConnection verifies the server is reachable with the configured token.
func (c *Client) TestConnection(ctx context.Context) (bool, string) {
	if !c.cfg.Configured() {
		return false, "API token not configured"
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/api/%s/projects", c.cfg.URL, apiVersion), nil)
	if err != nil {
		return false, fmt.Sprintf("Connection error: %v", err)
	}
	req.Header.Set("X-Rundeck-Auth-Token", c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Sprintf("Connection error: %v", err)
	}
	defer rsp.Body.Close()

	if rsp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(rsp.Body)
		return false, fmt.Sprintf("Connection failed: %d - %s", rsp.StatusCode, string(body))
	}
	return true, "Connection successful"
}
