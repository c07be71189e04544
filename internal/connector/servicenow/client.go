// Package servicenow is a minimal client for the ServiceNow incident table
// REST API, covering the two calls the connector needs: incident creation and
// incident update.
package servicenow

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/connector/config"
)

var (
	// ErrServiceNow is the base error for ServiceNow API failures.
	ErrServiceNow apperrors.Error = apperrors.New("servicenow error").SetStatusCode(http.StatusBadGateway)

	// ErrNotConfigured indicates missing instance URL or credentials.
	ErrNotConfigured apperrors.Error = ErrServiceNow.New("servicenow credentials not configured")

	// ErrIncidentNotFound indicates no incident matched the given number.
	ErrIncidentNotFound apperrors.Error = ErrServiceNow.New("incident not found").SetStatusCode(http.StatusNotFound)
)

// Incident states used by the update call.
// 1=New, 2=In Progress, 6=Resolved, 7=Closed.
const (
	StateInProgress = "2"
	StateResolved   = "6"
	StateClosed     = "7"
)

// stateMap translates request lifecycle words into incident states.
var stateMap = map[string]string{
	"approved":  StateInProgress,
	"rejected":  StateClosed,
	"completed": StateResolved,
	"failed":    StateClosed,
}

// StateFor returns the incident state for a lifecycle status word.
// Unknown words map to in-progress.
func StateFor(status string) string {
	if state, ok := stateMap[status]; ok {
		return state
	}
	return StateInProgress
}

// Client talks to one ServiceNow instance with basic auth.
type Client struct {
	cfg        *config.ServiceNowConfig
	httpClient *http.Client
}

// NewClient creates a ServiceNow client from the connector configuration.
func NewClient(cfg *config.ServiceNowConfig) *Client {
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.GetRequestTimeoutOrDefault(),
		},
	}
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body []byte) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, apperrors.Error) {
	rsp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, ErrServiceNow.Err(err)
	}
	defer rsp.Body.Close()

	body, err := io.ReadAll(rsp.Body)
	if err != nil {
		return nil, ErrServiceNow.Err(err)
	}
	if rsp.StatusCode >= 400 {
		return nil, ErrServiceNow.Msg(fmt.Sprintf("servicenow returned %d: %s", rsp.StatusCode, string(body)))
	}
	return body, nil
}

// CreateIncident opens an incident for a software install request and
// returns its number.
func (c *Client) CreateIncident(ctx context.Context, userID, software, version string) (string, apperrors.Error) {
	if !c.cfg.Configured() {
		return "", ErrNotConfigured
	}

	payload, _ := sjson.SetBytes(nil, "short_description",
		fmt.Sprintf("Software installation request: %s %s", software, version))
	payload, _ = sjson.SetBytes(payload, "description",
		fmt.Sprintf("User %s requested installation of %s version %s via chat", userID, software, version))
	payload, _ = sjson.SetBytes(payload, "urgency", "3")
	payload, _ = sjson.SetBytes(payload, "impact", "3")
	payload, _ = sjson.SetBytes(payload, "caller_id", userID)
	payload, _ = sjson.SetBytes(payload, "category", "software")
	payload, _ = sjson.SetBytes(payload, "subcategory", "installation")
	payload, _ = sjson.SetBytes(payload, "assignment_group", "it support")

	req, err := c.newRequest(ctx, http.MethodPost, c.cfg.InstanceURL+"/api/now/table/incident", payload)
	if err != nil {
		return "", ErrServiceNow.Err(err)
	}

	body, derr := c.do(req)
	if derr != nil {
		log.Ctx(ctx).Error().Err(derr).Msg("incident creation failed")
		return "", derr
	}

	number := gjson.GetBytes(body, "result.number").String()
	if number == "" {
		return "", ErrServiceNow.Msg("unexpected servicenow response: no incident number")
	}
	return number, nil
}

// UpdateIncident looks up an incident by number and patches its state and
// comments. Resolved and closed states also get the resolution fields the
// incident table requires.
func (c *Client) UpdateIncident(ctx context.Context, number, state, comments string) apperrors.Error {
	if !c.cfg.Configured() {
		return ErrNotConfigured
	}

	lookupURL := c.cfg.InstanceURL + "/api/now/table/incident?number=" + url.QueryEscape(number)
	req, err := c.newRequest(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return ErrServiceNow.Err(err)
	}
	body, derr := c.do(req)
	if derr != nil {
		return derr
	}

	sysID := gjson.GetBytes(body, "result.0.sys_id").String()
	if sysID == "" {
		return ErrIncidentNotFound.Msg("no incident found with number " + number)
	}

	payload, _ := sjson.SetBytes(nil, "state", state)
	payload, _ = sjson.SetBytes(payload, "comments", comments)
	if state == StateResolved || state == StateClosed {
		notes := "Resolved via deskhand automation: " + comments
		payload, _ = sjson.SetBytes(payload, "close_notes", notes)
		payload, _ = sjson.SetBytes(payload, "close_code", "Solved (Work Around)")
		payload, _ = sjson.SetBytes(payload, "resolution_code", "Solved (Work Around)")
	}

	req, err = c.newRequest(ctx, http.MethodPatch, c.cfg.InstanceURL+"/api/now/table/incident/"+sysID, payload)
	if err != nil {
		return ErrServiceNow.Err(err)
	}
	if _, derr := c.do(req); derr != nil {
		log.Ctx(ctx).Error().Err(derr).Str("incident", number).Msg("incident update failed")
		return derr
	}
	return nil
}
