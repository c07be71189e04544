// Package server provides the HTTP surface of the deskhand service: the chat
// message endpoint, the admin catalog and request listings used by deskctl,
// and the usual health, readiness and version endpoints.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/httpx"
	"github.com/deskhand/deskhand/internal/common/middleware"
	"github.com/deskhand/deskhand/internal/deskhand/bot"
	"github.com/deskhand/deskhand/internal/deskhand/config"
	"github.com/deskhand/deskhand/internal/deskhand/connector"
	"github.com/deskhand/deskhand/internal/deskhand/db"
)

// DeskhandServer is the main HTTP server for the deskhand service.
type DeskhandServer struct {
	Router *chi.Mux
	store  db.Store
	bot    *bot.Handler
}

// CreateNewServer creates a server over the given store and gateway.
func CreateNewServer(store db.Store, gateway connector.Gateway) (*DeskhandServer, error) {
	s := &DeskhandServer{
		Router: chi.NewRouter(),
		store:  store,
		bot:    bot.NewHandler(store, gateway, &config.Config().Approval),
	}
	return s, nil
}

// MountHandlers sets up all HTTP routes and middleware for the server.
func (s *DeskhandServer) MountHandlers() {
	s.Router.Use(middleware.RequestLogger)
	s.Router.Use(middleware.PanicHandler)
	s.Router.Use(middleware.SetRequestBodyLimit(config.Config().MaxRequestBodySize))
	if config.Config().HandleCORS {
		s.Router.Use(s.HandleCORS)
	}

	s.Router.Route("/api", func(r chi.Router) {
		// A chat turn may wait on the connector twice (ticket then job),
		// so the handler budget is double the connector timeout.
		r.Use(middleware.SetTimeout(2 * config.Config().Connector.GetRequestTimeoutOrDefault()))
		r.Method(http.MethodPost, "/messages", httpx.WrapHttpRsp(s.postMessages))
	})
	s.Router.Route("/catalog", func(r chi.Router) {
		r.Method(http.MethodGet, "/", httpx.WrapHttpRsp(s.getCatalog))
		r.Method(http.MethodPost, "/", httpx.WrapHttpRsp(s.postCatalog))
	})
	s.Router.Route("/requests", func(r chi.Router) {
		r.Method(http.MethodGet, "/", httpx.WrapHttpRsp(s.getRequests))
		r.Method(http.MethodGet, "/{id}", httpx.WrapHttpRsp(s.getRequestByID))
	})
	s.Router.Get("/version", s.getVersion)
	s.Router.Get("/health", s.getHealth)
	s.Router.Get("/ready", s.getReadiness)
}

// getVersion handles version information requests.
func (s *DeskhandServer) getVersion(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("GetVersion")
	rsp := map[string]string{
		"serverVersion": "Deskhand Server: " + Version,
		"apiVersion":    ApiVersion,
	}
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, rsp)
}

// getHealth handles liveness checks.
func (s *DeskhandServer) getHealth(w http.ResponseWriter, r *http.Request) {
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "deskhand",
	})
}

// getReadiness handles readiness checks for load balancers.
func (s *DeskhandServer) getReadiness(w http.ResponseWriter, r *http.Request) {
	log.Ctx(r.Context()).Debug().Msg("Readiness check")
	httpx.SendJsonRsp(r.Context(), w, http.StatusOK, map[string]string{
		"status": "ready",
	})
}

// HandleCORS provides CORS middleware for cross-origin requests.
func (s *DeskhandServer) HandleCORS(next http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Content-Length", "Accept-Encoding"},
		ExposedHeaders:   []string{"Link", "Location", middleware.RequestIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	})(next)
}
