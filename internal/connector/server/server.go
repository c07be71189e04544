// Package server provides the HTTP surface of the connector gateway: ticket
// creation and update backed by ServiceNow, job runs backed by Rundeck, and
// a health endpoint. All /api routes except health require a service token.
package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/common/httpx"
	"github.com/deskhand/deskhand/internal/common/middleware"
	"github.com/deskhand/deskhand/internal/common/svcauth"
	"github.com/deskhand/deskhand/internal/connector/config"
	"github.com/deskhand/deskhand/pkg/api"
)

// TicketClient is the ticketing surface the handlers depend on.
type TicketClient interface {
	CreateIncident(ctx context.Context, userID, software, version string) (string, apperrors.Error)
	UpdateIncident(ctx context.Context, number, state, comments string) apperrors.Error
}

// JobRunner is the job execution surface the handlers depend on.
type JobRunner interface {
	RunJob(ctx context.Context, jobID, software, wingetID, version string) (api.JobStatus, string)
}

// ConnectorServer is the main HTTP server for the connector gateway.
type ConnectorServer struct {
	Router  *chi.Mux
	tickets TicketClient
	runner  JobRunner
}

// CreateNewServer creates a connector server over the given clients.
func CreateNewServer(tickets TicketClient, runner JobRunner) (*ConnectorServer, error) {
	s := &ConnectorServer{
		Router:  chi.NewRouter(),
		tickets: tickets,
		runner:  runner,
	}
	return s, nil
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *ConnectorServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	s.Router.Use(middleware.SetRequestBodyLimit(config.Config().MaxRequestBodySize))
	if config.Config().HandleCORS {
		s.Router.Use(s.HandleCORS)
	}

	s.Router.Route("/api", func(r chi.Router) {
		r.Get("/health", s.getHealth)

		r.Group(func(r chi.Router) {
			r.Use(serviceTokenAuthenticator)
			r.Method(http.MethodPost, "/create_ticket", httpx.WrapHttpRsp(s.createTicket))
			r.Method(http.MethodPost, "/update_ticket", httpx.WrapHttpRsp(s.updateTicket))
			r.Method(http.MethodPost, "/run_job", httpx.WrapHttpRsp(s.runJob))
		})
	})
}

// getHealth handles liveness checks. Unauthenticated so probes can reach it.
func (s *ConnectorServer) getHealth(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, &api.HealthResponse{
		Status:  "healthy",
		Service: "connector",
	})
}

// serviceTokenAuthenticator verifies the bearer service token minted by the
// deskhand server.
func serviceTokenAuthenticator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authz := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(authz, "Bearer ")
		if !ok || token == "" {
			httpx.ErrUnAuthorized("missing bearer token").Send(w)
			return
		}

		issuer, err := svcauth.VerifyServiceToken([]byte(config.Config().SigningKey), token)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("service token rejected")
			httpx.ErrUnAuthorized("invalid service token").Send(w)
			return
		}

		ctx := log.Ctx(r.Context()).With().Str("caller", issuer).Logger().WithContext(r.Context())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *ConnectorServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding"},
		ExposedHeaders:   []string{"Link", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
