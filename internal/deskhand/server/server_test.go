package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/deskhand/bot"
	"github.com/deskhand/deskhand/internal/deskhand/config"
	"github.com/deskhand/deskhand/internal/deskhand/db/dberror"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
	"github.com/deskhand/deskhand/internal/deskhand/lifecycle"
	"github.com/deskhand/deskhand/pkg/api"
)

func TestMain(m *testing.M) {
	config.TestInit()
	os.Exit(m.Run())
}

// fakeStore serves the handlers under test with canned data.
type fakeStore struct {
	entries  []*models.CatalogEntry
	requests []*models.Request
	upserted []*models.CatalogEntry
}

func (f *fakeStore) UpsertCatalogEntry(_ context.Context, entry *models.CatalogEntry) apperrors.Error {
	f.upserted = append(f.upserted, entry)
	return nil
}

func (f *fakeStore) GetCatalogEntryBySoftware(_ context.Context, name string) (*models.CatalogEntry, apperrors.Error) {
	for _, e := range f.entries {
		if e.SoftwareName == name {
			return e, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("catalog entry not found")
}

func (f *fakeStore) ListCatalogEntries(_ context.Context) ([]*models.CatalogEntry, apperrors.Error) {
	return f.entries, nil
}

func (f *fakeStore) CreateRequest(_ context.Context, req *models.Request) apperrors.Error {
	req.ID = int64(len(f.requests) + 1)
	req.RequestedAt = time.Now()
	f.requests = append(f.requests, req)
	return nil
}

func (f *fakeStore) GetRequest(_ context.Context, id int64) (*models.Request, apperrors.Error) {
	for _, r := range f.requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, dberror.ErrNotFound.Msg("request not found")
}

func (f *fakeStore) ListRequests(_ context.Context) ([]*models.Request, apperrors.Error) {
	return f.requests, nil
}

func (f *fakeStore) SetTicketCreated(_ context.Context, id int64, ticket string) apperrors.Error {
	req, err := f.GetRequest(context.Background(), id)
	if err != nil {
		return err
	}
	req.Status = lifecycle.StatusTicketCreated
	req.TicketNumber = sql.NullString{String: ticket, Valid: true}
	return nil
}

func (f *fakeStore) SetDecision(_ context.Context, id int64, decision lifecycle.Status, by string, at time.Time) apperrors.Error {
	req, err := f.GetRequest(context.Background(), id)
	if err != nil {
		return err
	}
	req.Status = decision
	req.ApprovedBy = sql.NullString{String: by, Valid: true}
	req.ApprovedAt = sql.NullTime{Time: at, Valid: true}
	return nil
}

func (f *fakeStore) SetAccepted(context.Context, int64, time.Time) apperrors.Error { return nil }
func (f *fakeStore) SetRunning(context.Context, int64) apperrors.Error             { return nil }
func (f *fakeStore) SetFinished(context.Context, int64, lifecycle.Status, string, time.Time) apperrors.Error {
	return nil
}
func (f *fakeStore) Close() error { return nil }

type stubGateway struct{}

func (stubGateway) CreateTicket(context.Context, string, string, string) (string, apperrors.Error) {
	return "INC0000001", nil
}
func (stubGateway) UpdateTicket(context.Context, string, string, string) apperrors.Error {
	return nil
}
func (stubGateway) RunJob(context.Context, *api.RunJobRequest) (*api.RunJobResponse, apperrors.Error) {
	return &api.RunJobResponse{Status: api.JobStatusSuccess}, nil
}

func executeTestRequest(t *testing.T, store *fakeStore, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	s, err := CreateNewServer(store, stubGateway{})
	require.NoError(t, err, "create new server")

	s.MountHandlers()

	rr := httptest.NewRecorder()
	s.Router.ServeHTTP(rr, req)
	return rr
}

func jsonBody(t *testing.T, data any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(data)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

func TestGetVersion(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/version", nil)
	rr := executeTestRequest(t, &fakeStore{}, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var rsp map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rsp))
	assert.Contains(t, rsp["serverVersion"], Version)
	assert.Equal(t, ApiVersion, rsp["apiVersion"])
}

func TestGetHealthAndReady(t *testing.T) {
	rr := executeTestRequest(t, &fakeStore{}, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "healthy")

	rr = executeTestRequest(t, &fakeStore{}, httptest.NewRequest(http.MethodGet, "/ready", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ready")
}

func TestIsVersionCompatible(t *testing.T) {
	assert.True(t, IsVersionCompatible(Version))
	assert.False(t, IsVersionCompatible("0.0.1"))
	assert.False(t, IsVersionCompatible("not-a-version"))
}

func TestPostMessagesFreeText(t *testing.T) {
	store := &fakeStore{entries: []*models.CatalogEntry{
		{ID: 1, SoftwareName: "Zoom", Version: "latest", JobID: "universal-install-job", WingetID: "Zoom.Zoom"},
	}}

	activity := &bot.Activity{
		Type: bot.ActivityTypeMessage,
		Text: "please install zoom",
		From: bot.ChannelAccount{ID: "alice"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/messages", jsonBody(t, activity))
	rr := executeTestRequest(t, store, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var rsp bot.TurnResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rsp))
	require.Len(t, rsp.Activities, 1)
	require.Len(t, rsp.Activities[0].Attachments, 1)
	assert.Contains(t, string(rsp.Activities[0].Attachments[0].Content), "Zoom (latest)")
}

func TestPostMessagesBadBody(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/messages", bytes.NewBufferString("{not json"))
	rr := executeTestRequest(t, &fakeStore{}, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostMessagesBodyTooLarge(t *testing.T) {
	limit := config.Config().MaxRequestBodySize
	activity := &bot.Activity{
		Type: bot.ActivityTypeMessage,
		Text: strings.Repeat("x", int(limit)+1024),
		From: bot.ChannelAccount{ID: "alice"},
	}
	req := httptest.NewRequest(http.MethodPost, "/api/messages", jsonBody(t, activity))
	rr := executeTestRequest(t, &fakeStore{}, req)

	require.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Contains(t, rr.Body.String(), "request body too large")
}

func TestGetCatalog(t *testing.T) {
	store := &fakeStore{entries: []*models.CatalogEntry{
		{ID: 1, SoftwareName: "Zoom", Version: "latest", JobID: "universal-install-job", WingetID: "Zoom.Zoom"},
	}}
	rr := executeTestRequest(t, store, httptest.NewRequest(http.MethodGet, "/catalog", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var entries []api.CatalogEntry
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Zoom", entries[0].SoftwareName)
}

func TestPostCatalog(t *testing.T) {
	store := &fakeStore{}
	entries := []api.CatalogEntry{
		{SoftwareName: "Firefox", Version: "latest", JobID: "universal-install-job", WingetID: "Mozilla.Firefox"},
	}
	rr := executeTestRequest(t, store, httptest.NewRequest(http.MethodPost, "/catalog", jsonBody(t, entries)))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, store.upserted, 1)
	assert.Equal(t, "Firefox", store.upserted[0].SoftwareName)
}

func TestPostCatalogRejectsEmpty(t *testing.T) {
	rr := executeTestRequest(t, &fakeStore{}, httptest.NewRequest(http.MethodPost, "/catalog", jsonBody(t, []api.CatalogEntry{})))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestPostCatalogRejectsMissingJobMapping(t *testing.T) {
	store := &fakeStore{}
	entries := []api.CatalogEntry{
		{SoftwareName: "Firefox", Version: "latest", WingetID: "Mozilla.Firefox"},
	}
	rr := executeTestRequest(t, store, httptest.NewRequest(http.MethodPost, "/catalog", jsonBody(t, entries)))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "job_id and winget_id are required")
	assert.Empty(t, store.upserted)
}

func TestGetRequests(t *testing.T) {
	store := &fakeStore{requests: []*models.Request{
		{
			ID:           1,
			UserID:       "alice",
			SoftwareName: "Zoom",
			Version:      "latest",
			Status:       lifecycle.StatusInstalled,
			TicketNumber: sql.NullString{String: "INC0000001", Valid: true},
			RequestedAt:  time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC),
		},
	}}
	rr := executeTestRequest(t, store, httptest.NewRequest(http.MethodGet, "/requests", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	var reqs []api.RequestSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &reqs))
	require.Len(t, reqs, 1)
	assert.Equal(t, "installed", reqs[0].Status)
	assert.Equal(t, "INC0000001", reqs[0].TicketNumber)
}

func TestGetRequestByID(t *testing.T) {
	store := &fakeStore{requests: []*models.Request{
		{ID: 7, UserID: "alice", SoftwareName: "Zoom", Version: "latest", Status: lifecycle.StatusApproved, RequestedAt: time.Now()},
	}}

	rr := executeTestRequest(t, store, httptest.NewRequest(http.MethodGet, "/requests/7", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var summary api.RequestSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summary))
	assert.Equal(t, int64(7), summary.ID)

	rr = executeTestRequest(t, store, httptest.NewRequest(http.MethodGet, "/requests/99", nil))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = executeTestRequest(t, store, httptest.NewRequest(http.MethodGet, "/requests/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}
