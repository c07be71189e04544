// Package connector is the deskhand-side client for the connector gateway.
// The gateway fronts the ticketing system and the job runner; this package
// speaks its REST API and hides transport details from the bot.
package connector

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/common/httpclient"
	"github.com/deskhand/deskhand/internal/common/svcauth"
	"github.com/deskhand/deskhand/internal/deskhand/config"
	"github.com/deskhand/deskhand/pkg/api"
)

// Gateway is the connector surface the bot depends on. Tests substitute a
// fake; production code uses Client.
type Gateway interface {
	CreateTicket(ctx context.Context, userID, software, version string) (string, apperrors.Error)
	UpdateTicket(ctx context.Context, ticketNumber, status, comments string) apperrors.Error
	RunJob(ctx context.Context, req *api.RunJobRequest) (*api.RunJobResponse, apperrors.Error)
}

// tokenConfigurator mints a fresh service token per request so the client
// never holds a token across its validity window.
type tokenConfigurator struct {
	cfg *config.ConfigParam
}

func (c *tokenConfigurator) GetServerURL() string {
	return c.cfg.Connector.URL
}

func (c *tokenConfigurator) GetToken() string {
	token, err := svcauth.MintServiceToken(
		[]byte(c.cfg.Connector.SigningKey),
		"deskhand",
		c.cfg.Connector.GetTokenValidityOrDefault(),
	)
	if err != nil {
		log.Error().Err(err).Msg("unable to mint connector service token")
		return ""
	}
	return token
}

func (c *tokenConfigurator) GetTimeout() time.Duration {
	return c.cfg.Connector.GetRequestTimeoutOrDefault()
}

// Client talks to the connector gateway over its REST API.
type Client struct {
	client *httpclient.HTTPClient
}

var _ Gateway = &Client{}

// NewClient creates a gateway client from the deskhand configuration.
func NewClient(cfg *config.ConfigParam) *Client {
	return &Client{
		client: httpclient.NewClient(&tokenConfigurator{cfg: cfg}),
	}
}

// CreateTicket opens a ticket for the given request and returns its number.
func (c *Client) CreateTicket(ctx context.Context, userID, software, version string) (string, apperrors.Error) {
	body, err := json.Marshal(&api.CreateTicketRequest{
		UserID:   userID,
		Software: software,
		Version:  version,
	})
	if err != nil {
		return "", ErrTicketCreateFailed.Err(err)
	}

	rsp, _, err := c.client.DoRequest(httpclient.RequestOptions{
		Method:  http.MethodPost,
		Path:    "/api/create_ticket",
		Body:    body,
		Context: ctx,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("create_ticket request failed")
		return "", ErrTicketCreateFailed.Err(err)
	}

	var ticketRsp api.CreateTicketResponse
	if err := json.Unmarshal(rsp, &ticketRsp); err != nil {
		return "", ErrTicketCreateFailed.Err(err)
	}
	if !ticketRsp.Success || ticketRsp.TicketNumber == "" {
		return "", ErrTicketCreateFailed.Msg(ticketRsp.Message)
	}

	return ticketRsp.TicketNumber, nil
}

// UpdateTicket reports a lifecycle change on an existing ticket. Callers
// treat failures as advisory; the request itself is the source of truth.
func (c *Client) UpdateTicket(ctx context.Context, ticketNumber, status, comments string) apperrors.Error {
	body, err := json.Marshal(&api.UpdateTicketRequest{
		TicketNumber: ticketNumber,
		Status:       status,
		Comments:     comments,
	})
	if err != nil {
		return ErrTicketUpdateFailed.Err(err)
	}

	rsp, _, err := c.client.DoRequest(httpclient.RequestOptions{
		Method:  http.MethodPost,
		Path:    "/api/update_ticket",
		Body:    body,
		Context: ctx,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("ticket", ticketNumber).Msg("update_ticket request failed")
		return ErrTicketUpdateFailed.Err(err)
	}

	var updateRsp api.UpdateTicketResponse
	if err := json.Unmarshal(rsp, &updateRsp); err != nil {
		return ErrTicketUpdateFailed.Err(err)
	}
	if !updateRsp.Success {
		return ErrTicketUpdateFailed.Msg(updateRsp.Message)
	}

	return nil
}

// RunJob triggers the install job and waits for the runner's outcome. A
// transport failure is returned as an error; a job that ran and failed is a
// normal response with status failed.
func (c *Client) RunJob(ctx context.Context, req *api.RunJobRequest) (*api.RunJobResponse, apperrors.Error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, ErrJobRunFailed.Err(err)
	}

	rsp, _, err := c.client.DoRequest(httpclient.RequestOptions{
		Method:  http.MethodPost,
		Path:    "/api/run_job",
		Body:    body,
		Context: ctx,
	})
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("job_id", req.JobID).Msg("run_job request failed")
		return nil, ErrJobRunFailed.Err(err)
	}

	var jobRsp api.RunJobResponse
	if err := json.Unmarshal(rsp, &jobRsp); err != nil {
		return nil, ErrJobRunFailed.Err(err)
	}
	if jobRsp.Status != api.JobStatusSuccess {
		jobRsp.Status = api.JobStatusFailed
	}

	return &jobRsp, nil
}
