package server

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/httpx"
	"github.com/deskhand/deskhand/internal/connector/servicenow"
	"github.com/deskhand/deskhand/pkg/api"
)

var payloadValidator = validator.New()

// createTicket opens a ticket for an install request.
func (s *ConnectorServer) createTicket(r *http.Request) (*httpx.Response, error) {
	req := &api.CreateTicketRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := payloadValidator.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest("missing required fields")
	}

	number, err := s.tickets.CreateIncident(r.Context(), req.UserID, req.Software, req.Version)
	if err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("software", req.Software).Msg("ticket creation failed")
		return nil, err
	}

	log.Ctx(r.Context()).Info().Str("ticket", number).Msg("incident created")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &api.CreateTicketResponse{
			Success:      true,
			TicketNumber: number,
			Message:      "Incident created successfully",
		},
	}, nil
}

// updateTicket records a lifecycle change on an existing ticket.
func (s *ConnectorServer) updateTicket(r *http.Request) (*httpx.Response, error) {
	req := &api.UpdateTicketRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := payloadValidator.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest("missing required fields")
	}

	state := servicenow.StateFor(req.Status)
	if err := s.tickets.UpdateIncident(r.Context(), req.TicketNumber, state, req.Comments); err != nil {
		log.Ctx(r.Context()).Error().Err(err).Str("ticket", req.TicketNumber).Msg("ticket update failed")
		return nil, err
	}

	log.Ctx(r.Context()).Info().Str("ticket", req.TicketNumber).Str("state", state).Msg("incident updated")
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &api.UpdateTicketResponse{
			Success: true,
			Message: "Incident updated successfully",
		},
	}, nil
}

// runJob executes the install job. The outcome is always a 200 with the
// runner's status; infrastructure failures surface as status failed.
func (s *ConnectorServer) runJob(r *http.Request) (*httpx.Response, error) {
	req := &api.RunJobRequest{}
	if err := httpx.GetRequestData(r, req); err != nil {
		return nil, err
	}
	if err := payloadValidator.Struct(req); err != nil {
		return nil, httpx.ErrInvalidRequest("missing required fields")
	}

	status, message := s.runner.RunJob(r.Context(), req.JobID, req.Software, req.WingetID, req.Version)
	log.Ctx(r.Context()).Info().Str("job_id", req.JobID).Str("status", string(status)).Msg("job run finished")

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response: &api.RunJobResponse{
			Status:  status,
			Message: message,
		},
	}, nil
}
