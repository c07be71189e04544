package connector

import (
	"net/http"

	"github.com/deskhand/deskhand/internal/common/apperrors"
)

var (
	// ErrConnector is the base error for connector gateway failures.
	ErrConnector apperrors.Error = apperrors.New("connector error").SetStatusCode(http.StatusBadGateway)

	// ErrTicketCreateFailed indicates the gateway could not open a ticket.
	ErrTicketCreateFailed apperrors.Error = ErrConnector.New("unable to create ticket")

	// ErrTicketUpdateFailed indicates the gateway could not update a ticket.
	ErrTicketUpdateFailed apperrors.Error = ErrConnector.New("unable to update ticket")

	// ErrJobRunFailed indicates the gateway could not reach the job runner.
	ErrJobRunFailed apperrors.Error = ErrConnector.New("unable to run job")
)
