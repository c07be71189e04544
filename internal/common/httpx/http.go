// Package httpx provides HTTP request/response handling utilities shared by
// the deskhand and connector servers. It includes JSON request parsing, a
// standard error envelope, and a handler wrapper that converts application
// errors into HTTP responses.
package httpx

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
)

// GetRequestData parses a JSON request body into the provided data structure.
// Only POST and PUT are supported. Returns an error if the body is empty or
// cannot be parsed.
func GetRequestData(r *http.Request, data any) error {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		return ErrReqMethodNotSupported()
	}
	if r.Body == nil {
		log.Ctx(r.Context()).Error().Msg("empty request body")
		return ErrUnableToParseReqData()
	}
	if err := json.NewDecoder(r.Body).Decode(data); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			log.Ctx(r.Context()).Error().Int64("limit", maxBytesErr.Limit).Msg("request body too large")
			return ErrRequestTooLarge(maxBytesErr.Limit)
		}
		return ErrUnableToParseReqData()
	}
	return nil
}

// Response represents an HTTP response with configurable status code and
// content type.
type Response struct {
	StatusCode  int
	Location    string
	Response    any
	ContentType string
}

// RequestHandler defines a function type for handling HTTP requests.
type RequestHandler func(r *http.Request) (*Response, error)

// WrapHttpRsp wraps a RequestHandler to provide standardized HTTP response
// handling, including error translation and content type management.
func WrapHttpRsp(handler RequestHandler) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rsp, err := handler(r)
		if err != nil {
			if httperror, ok := err.(*Error); ok {
				httperror.Send(w)
			} else if appErr, ok := err.(apperrors.Error); ok {
				statusCode := appErr.StatusCode()
				if statusCode == 0 {
					statusCode = http.StatusInternalServerError
				}
				httperror := &Error{
					StatusCode:  statusCode,
					Description: appErr.ErrorAll(),
				}
				httperror.Send(w)
			} else {
				ErrApplicationError(err.Error()).Send(w)
			}
			return
		}
		if rsp == nil {
			ErrApplicationError().Send(w)
			return
		}

		if rsp.ContentType == "" {
			rsp.ContentType = "application/json"
		}
		var location []string
		if rsp.Location != "" {
			location = append(location, rsp.Location)
		}
		switch rsp.ContentType {
		case "application/json":
			SendJsonRsp(r.Context(), w, rsp.StatusCode, rsp.Response, location...)
		case "text/plain":
			w.Header().Set("Content-Type", "text/plain")
			if rsp.StatusCode == http.StatusCreated && len(location) > 0 {
				w.Header().Set("Location", location[0])
			}
			w.WriteHeader(rsp.StatusCode)
			w.Write([]byte(rsp.Response.(string)))
		default:
			ErrApplicationError("unsupported response type").Send(w)
		}
	})
}
