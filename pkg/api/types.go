// Package api defines the wire types shared between the deskhand server, the
// connector service, and the deskctl CLI.
package api

// JobStatus is the result status reported by the job runner boundary.
type JobStatus string

const (
	JobStatusSuccess JobStatus = "success"
	JobStatusFailed  JobStatus = "failed"
)

// CreateTicketRequest is the payload for POST /api/create_ticket.
type CreateTicketRequest struct {
	UserID   string `json:"user_id" validate:"required"`
	Software string `json:"software" validate:"required"`
	Version  string `json:"version" validate:"required"`
}

// CreateTicketResponse is the connector's reply to a ticket creation.
type CreateTicketResponse struct {
	Success      bool   `json:"success"`
	TicketNumber string `json:"ticket_number,omitempty"`
	Message      string `json:"message,omitempty"`
}

// UpdateTicketRequest is the payload for POST /api/update_ticket.
type UpdateTicketRequest struct {
	TicketNumber string `json:"ticket_number" validate:"required"`
	Status       string `json:"status" validate:"required"`
	Comments     string `json:"comments"`
}

// UpdateTicketResponse is the connector's reply to a ticket update.
type UpdateTicketResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// RunJobRequest is the payload for POST /api/run_job.
type RunJobRequest struct {
	JobID    string `json:"job_id" validate:"required"`
	Software string `json:"software" validate:"required"`
	WingetID string `json:"winget_id" validate:"required"`
	Version  string `json:"version" validate:"required"`
}

// RunJobResponse is the connector's reply to a job execution request.
// Status is always one of JobStatusSuccess or JobStatusFailed.
type RunJobResponse struct {
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// HealthResponse is the reply to GET /api/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// CatalogEntry describes one installable software title as exposed on the
// deskhand admin surface.
type CatalogEntry struct {
	ID           int64  `json:"id,omitempty"`
	SoftwareName string `json:"software_name" validate:"required"`
	Version      string `json:"version" validate:"required"`
	JobID        string `json:"job_id"`
	WingetID     string `json:"winget_id"`
}

// RequestSummary describes one install request as exposed on the deskhand
// admin surface.
type RequestSummary struct {
	ID           int64  `json:"id"`
	UserID       string `json:"user_id"`
	SoftwareName string `json:"software_name"`
	Version      string `json:"version"`
	Status       string `json:"status"`
	TicketNumber string `json:"ticket_number,omitempty"`
	Logs         string `json:"logs,omitempty"`
	RequestedAt  string `json:"requested_at,omitempty"`
	ApprovedBy   string `json:"approved_by,omitempty"`
	ApprovedAt   string `json:"approved_at,omitempty"`
	AcceptedAt   string `json:"accepted_at,omitempty"`
	FinishedAt   string `json:"finished_at,omitempty"`
}

// VersionResponse is the reply to GET /version.
type VersionResponse struct {
	ServerVersion string `json:"serverVersion"`
	ApiVersion    string `json:"apiVersion"`
}
