package bot

import (
	"net/http"

	"github.com/deskhand/deskhand/internal/common/apperrors"
)

var (
	// ErrBot is the base error for the chat handler.
	ErrBot apperrors.Error = apperrors.New("chat handler error").SetStatusCode(http.StatusInternalServerError)

	// ErrInvalidActivity indicates an inbound activity the handler cannot act on.
	ErrInvalidActivity apperrors.Error = ErrBot.New("invalid activity").SetStatusCode(http.StatusBadRequest)
)
