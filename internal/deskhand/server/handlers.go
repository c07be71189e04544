package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/httpx"
	"github.com/deskhand/deskhand/internal/deskhand/bot"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
	"github.com/deskhand/deskhand/pkg/api"
)

// postMessages receives one inbound chat activity and returns the outbound
// activities for the turn.
func (s *DeskhandServer) postMessages(r *http.Request) (*httpx.Response, error) {
	activity := &bot.Activity{}
	if err := httpx.GetRequestData(r, activity); err != nil {
		return nil, err
	}

	rsp, err := s.bot.HandleActivity(r.Context(), activity)
	if err != nil {
		return nil, err
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   rsp,
	}, nil
}

// getCatalog lists the software catalog.
func (s *DeskhandServer) getCatalog(r *http.Request) (*httpx.Response, error) {
	entries, err := s.store.ListCatalogEntries(r.Context())
	if err != nil {
		return nil, err
	}

	out := make([]api.CatalogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, api.CatalogEntry{
			ID:           e.ID,
			SoftwareName: e.SoftwareName,
			Version:      e.Version,
			JobID:        e.JobID,
			WingetID:     e.WingetID,
		})
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   out,
	}, nil
}

// postCatalog upserts a batch of catalog entries.
func (s *DeskhandServer) postCatalog(r *http.Request) (*httpx.Response, error) {
	var entries []api.CatalogEntry
	if err := httpx.GetRequestData(r, &entries); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, httpx.ErrInvalidRequest("no catalog entries in request")
	}

	for _, e := range entries {
		if e.SoftwareName == "" || e.Version == "" {
			return nil, httpx.ErrInvalidRequest("software_name and version are required")
		}
		// An entry without a job or package mapping would make every install
		// of that title fail at the connector.
		if e.JobID == "" || e.WingetID == "" {
			return nil, httpx.ErrInvalidRequest("job_id and winget_id are required")
		}
		entry := &models.CatalogEntry{
			SoftwareName: e.SoftwareName,
			Version:      e.Version,
			JobID:        e.JobID,
			WingetID:     e.WingetID,
		}
		if err := s.store.UpsertCatalogEntry(r.Context(), entry); err != nil {
			log.Ctx(r.Context()).Error().Err(err).Str("software", e.SoftwareName).Msg("catalog upsert failed")
			return nil, err
		}
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   map[string]int{"upserted": len(entries)},
	}, nil
}

// getRequests lists all install requests.
func (s *DeskhandServer) getRequests(r *http.Request) (*httpx.Response, error) {
	reqs, err := s.store.ListRequests(r.Context())
	if err != nil {
		return nil, err
	}

	out := make([]api.RequestSummary, 0, len(reqs))
	for _, req := range reqs {
		out = append(out, toRequestSummary(req))
	}

	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   out,
	}, nil
}

// getRequestByID shows one install request.
func (s *DeskhandServer) getRequestByID(r *http.Request) (*httpx.Response, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return nil, httpx.ErrInvalidRequest("invalid request id")
	}

	req, derr := s.store.GetRequest(r.Context(), id)
	if derr != nil {
		return nil, derr
	}

	summary := toRequestSummary(req)
	return &httpx.Response{
		StatusCode: http.StatusOK,
		Response:   &summary,
	}, nil
}

func toRequestSummary(req *models.Request) api.RequestSummary {
	summary := api.RequestSummary{
		ID:           req.ID,
		UserID:       req.UserID,
		SoftwareName: req.SoftwareName,
		Version:      req.Version,
		Status:       req.Status.String(),
		RequestedAt:  req.RequestedAt.Format(time.RFC3339),
	}
	if req.TicketNumber.Valid {
		summary.TicketNumber = req.TicketNumber.String
	}
	if req.Logs.Valid {
		summary.Logs = req.Logs.String
	}
	if req.ApprovedBy.Valid {
		summary.ApprovedBy = req.ApprovedBy.String
	}
	if req.ApprovedAt.Valid {
		summary.ApprovedAt = req.ApprovedAt.Time.Format(time.RFC3339)
	}
	if req.AcceptedAt.Valid {
		summary.AcceptedAt = req.AcceptedAt.Time.Format(time.RFC3339)
	}
	if req.FinishedAt.Valid {
		summary.FinishedAt = req.FinishedAt.Time.Format(time.RFC3339)
	}
	return summary
}
