package bot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"github.com/rs/zerolog/log"

	"github.com/deskhand/deskhand/internal/common/apperrors"
	"github.com/deskhand/deskhand/internal/deskhand/config"
	"github.com/deskhand/deskhand/internal/deskhand/connector"
	"github.com/deskhand/deskhand/internal/deskhand/db"
	"github.com/deskhand/deskhand/internal/deskhand/db/dberror"
	"github.com/deskhand/deskhand/internal/deskhand/db/models"
	"github.com/deskhand/deskhand/internal/deskhand/lifecycle"
	"github.com/deskhand/deskhand/pkg/api"
)

// Ticket status words reported to the connector on lifecycle changes.
const (
	ticketStatusApproved  = "approved"
	ticketStatusRejected  = "rejected"
	ticketStatusCompleted = "completed"
	ticketStatusFailed    = "failed"
)

// Handler drives one chat turn at a time. It holds no per-conversation
// state; everything it needs lives in the store.
type Handler struct {
	store    db.Store
	gateway  connector.Gateway
	approval *config.ApprovalConfig
	now      func() time.Time
}

// NewHandler creates a chat handler over the given store and gateway.
func NewHandler(store db.Store, gateway connector.Gateway, approval *config.ApprovalConfig) *Handler {
	return &Handler{
		store:    store,
		gateway:  gateway,
		approval: approval,
		now:      time.Now,
	}
}

// HandleActivity processes one inbound activity and returns the outbound
// activities for the turn. Every error path terminates in a reply; the
// returned error is reserved for malformed activities the handler cannot
// answer at all.
func (h *Handler) HandleActivity(ctx context.Context, a *Activity) (*TurnResponse, apperrors.Error) {
	if a == nil || a.Type != ActivityTypeMessage {
		return &TurnResponse{Activities: []*Activity{}}, nil
	}
	if a.From.ID == "" {
		return nil, ErrInvalidActivity.Msg("activity has no sender")
	}

	if action := actionName(a.Value); action != "" {
		return h.handleAction(ctx, a, action), nil
	}
	return h.handleText(ctx, a), nil
}

func (h *Handler) handleAction(ctx context.Context, a *Activity, action string) *TurnResponse {
	switch action {
	case ActionSelectSoftware:
		return h.handleSelectSoftware(ctx, a)
	case ActionApproveRequest, ActionRejectRequest:
		return h.handleDecision(ctx, a, action)
	case ActionAcceptInstall:
		return h.handleAcceptInstall(ctx, a)
	default:
		log.Ctx(ctx).Warn().Str("action", action).Msg("unknown card action")
		return singleReply(replyText("Sorry, I didn't understand that action."))
	}
}

func (h *Handler) handleText(ctx context.Context, a *Activity) *TurnResponse {
	if !wantsInstall(a.Text) {
		return singleReply(replyText(helpText))
	}

	entries, err := h.store.ListCatalogEntries(ctx)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to list catalog")
		return singleReply(replyText("I couldn't load the software catalog. Please try again later."))
	}
	if len(entries) == 0 {
		return singleReply(replyText("The software catalog is empty right now."))
	}

	card, cerr := selectionCard(entries)
	if cerr != nil {
		log.Ctx(ctx).Error().Err(cerr).Msg("failed to build selection card")
		return singleReply(replyText("I couldn't build the software list. Please try again later."))
	}
	return singleReply(replyWithCard("Here's what I can install for you:", card))
}

func (h *Handler) handleSelectSoftware(ctx context.Context, a *Activity) *TurnResponse {
	var payload SelectSoftwarePayload
	if err := decodeAction(ActionSelectSoftware, a.Value, &payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("bad select_software payload")
		return singleReply(replyText("Please pick a software title from the list before submitting."))
	}

	var choice softwareChoice
	if err := jsonit.Unmarshal([]byte(payload.Selection), &choice); err != nil ||
		choice.Software == "" || choice.Version == "" {
		return singleReply(replyText("Please pick a software title from the list before submitting."))
	}

	entry, err := h.store.GetCatalogEntryBySoftware(ctx, choice.Software)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return singleReply(replyText(fmt.Sprintf("%s is not in the software catalog.", choice.Software)))
		}
		log.Ctx(ctx).Error().Err(err).Msg("catalog lookup failed")
		return singleReply(replyText("Something went wrong looking up the catalog. Please try again later."))
	}

	req := &models.Request{
		UserID:       a.From.ID,
		SoftwareName: entry.SoftwareName,
		Version:      entry.Version,
	}
	if a.Conversation.ID != "" {
		info := pgtype.JSONB{}
		if serr := info.Set(map[string]string{"conversation_id": a.Conversation.ID}); serr == nil {
			req.Info = info
		}
	}
	if err := h.store.CreateRequest(ctx, req); err != nil {
		log.Ctx(ctx).Error().Err(err).Msg("failed to create request")
		return singleReply(replyText("I couldn't record your request. Please try again later."))
	}

	ticket, terr := h.gateway.CreateTicket(ctx, req.UserID, req.SoftwareName, req.Version)
	if terr != nil {
		// The request stays at requested; a ticket can be raised later.
		log.Ctx(ctx).Error().Err(terr).Int64("request_id", req.ID).Msg("ticket creation failed")
		return singleReply(replyText(fmt.Sprintf(
			"I recorded your request for %s %s (request #%d), but couldn't open a ticket. The IT team will follow up.",
			req.SoftwareName, req.Version, req.ID)))
	}

	if err := h.store.SetTicketCreated(ctx, req.ID, ticket); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("request_id", req.ID).Msg("failed to record ticket")
		return singleReply(replyText(fmt.Sprintf(
			"Ticket %s was opened for %s %s, but I couldn't record it. The IT team will follow up.",
			ticket, req.SoftwareName, req.Version)))
	}

	updated, gerr := h.store.GetRequest(ctx, req.ID)
	if gerr != nil {
		updated = req
	}

	card, cerr := approvalCard(updated)
	if cerr != nil {
		log.Ctx(ctx).Error().Err(cerr).Msg("failed to build approval card")
		return singleReply(replyText(fmt.Sprintf(
			"Ticket %s opened for %s %s (request #%d). Awaiting approval.",
			ticket, req.SoftwareName, req.Version, req.ID)))
	}
	return singleReply(replyWithCard(fmt.Sprintf(
		"Ticket %s opened for %s %s (request #%d). Awaiting approval.",
		ticket, req.SoftwareName, req.Version, req.ID), card))
}

func (h *Handler) handleDecision(ctx context.Context, a *Activity, action string) *TurnResponse {
	var payload DecisionPayload
	if err := decodeAction(action, a.Value, &payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("bad decision payload")
		return singleReply(replyText("I couldn't read that decision. Please use the approval card."))
	}

	req, err := h.store.GetRequest(ctx, payload.RequestID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return singleReply(replyText(fmt.Sprintf("Request #%d was not found.", payload.RequestID)))
		}
		log.Ctx(ctx).Error().Err(err).Msg("request lookup failed")
		return singleReply(replyText("Something went wrong looking up the request. Please try again later."))
	}

	if !h.approval.IsApprover(a.From.ID) {
		return singleReply(replyText("You're not allowed to approve or reject install requests."))
	}

	decision := lifecycle.StatusApproved
	ticketStatus := ticketStatusApproved
	if action == ActionRejectRequest {
		decision = lifecycle.StatusRejected
		ticketStatus = ticketStatusRejected
	}

	if err := h.store.SetDecision(ctx, req.ID, decision, a.From.ID, h.now()); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("request_id", req.ID).Msg("failed to record decision")
		return singleReply(replyText("I couldn't record the decision. Please try again later."))
	}

	// Best effort: the local decision stands even if the ticket system is
	// unreachable, only the reply text degrades.
	ticketNote := ""
	if req.TicketNumber.Valid {
		comment := fmt.Sprintf("Request %s by %s", ticketStatus, a.From.ID)
		if uerr := h.gateway.UpdateTicket(ctx, req.TicketNumber.String, ticketStatus, comment); uerr != nil {
			log.Ctx(ctx).Warn().Err(uerr).Str("ticket", req.TicketNumber.String).Msg("ticket update failed")
			ticketNote = fmt.Sprintf(" (ticket %s could not be updated)", req.TicketNumber.String)
		}
	}

	if decision == lifecycle.StatusRejected {
		return singleReply(replyText(fmt.Sprintf(
			"Request #%d for %s %s was rejected.%s", req.ID, req.SoftwareName, req.Version, ticketNote)))
	}

	updated, gerr := h.store.GetRequest(ctx, req.ID)
	if gerr != nil {
		updated = req
	}
	card, cerr := confirmCard(updated)
	text := fmt.Sprintf("Request #%d for %s %s was approved.%s", req.ID, req.SoftwareName, req.Version, ticketNote)
	if cerr != nil {
		log.Ctx(ctx).Error().Err(cerr).Msg("failed to build confirm card")
		return singleReply(replyText(text))
	}
	return singleReply(replyWithCard(text, card))
}

func (h *Handler) handleAcceptInstall(ctx context.Context, a *Activity) *TurnResponse {
	var payload AcceptInstallPayload
	if err := decodeAction(ActionAcceptInstall, a.Value, &payload); err != nil {
		log.Ctx(ctx).Warn().Err(err).Msg("bad accept_install payload")
		return singleReply(replyText("I couldn't read that confirmation. Please use the install card."))
	}

	req, err := h.store.GetRequest(ctx, payload.RequestID)
	if err != nil {
		if errors.Is(err, dberror.ErrNotFound) {
			return singleReply(replyText(fmt.Sprintf("Request #%d was not found.", payload.RequestID)))
		}
		log.Ctx(ctx).Error().Err(err).Msg("request lookup failed")
		return singleReply(replyText("Something went wrong looking up the request. Please try again later."))
	}

	if req.Status != lifecycle.StatusApproved {
		return singleReply(replyText(fmt.Sprintf(
			"Request #%d is not approved yet (current status: %s).", req.ID, req.Status)))
	}

	entry, err := h.store.GetCatalogEntryBySoftware(ctx, req.SoftwareName)
	if err != nil {
		log.Ctx(ctx).Error().Err(err).Str("software", req.SoftwareName).Msg("catalog lookup failed")
		return singleReply(replyText(fmt.Sprintf(
			"%s is missing from the catalog, so I can't start the install. The IT team will follow up.",
			req.SoftwareName)))
	}

	if err := h.store.SetAccepted(ctx, req.ID, h.now()); err != nil {
		if errors.Is(err, lifecycle.ErrInvalidTransition) {
			return singleReply(replyText(fmt.Sprintf(
				"Request #%d is not approved yet.", req.ID)))
		}
		log.Ctx(ctx).Error().Err(err).Int64("request_id", req.ID).Msg("failed to accept request")
		return singleReply(replyText("I couldn't start the install. Please try again later."))
	}

	if err := h.store.SetRunning(ctx, req.ID); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("request_id", req.ID).Msg("failed to mark request running")
		return singleReply(replyText("I couldn't start the install. Please try again later."))
	}

	rsp, jerr := h.gateway.RunJob(ctx, &api.RunJobRequest{
		JobID:    entry.JobID,
		Software: entry.SoftwareName,
		WingetID: entry.WingetID,
		Version:  req.Version,
	})

	result := lifecycle.StatusInstalled
	ticketStatus := ticketStatusCompleted
	message := ""
	if jerr != nil {
		result = lifecycle.StatusFailed
		ticketStatus = ticketStatusFailed
		message = jerr.Error()
	} else {
		message = rsp.Message
		if rsp.Status != api.JobStatusSuccess {
			result = lifecycle.StatusFailed
			ticketStatus = ticketStatusFailed
		}
	}

	if err := h.store.SetFinished(ctx, req.ID, result, message, h.now()); err != nil {
		log.Ctx(ctx).Error().Err(err).Int64("request_id", req.ID).Msg("failed to record job outcome")
	}

	if req.TicketNumber.Valid {
		if uerr := h.gateway.UpdateTicket(ctx, req.TicketNumber.String, ticketStatus, message); uerr != nil {
			log.Ctx(ctx).Warn().Err(uerr).Str("ticket", req.TicketNumber.String).Msg("ticket update failed")
		}
	}

	if result == lifecycle.StatusFailed {
		return singleReply(replyText(fmt.Sprintf(
			"The install of %s %s failed: %s", req.SoftwareName, req.Version, message)))
	}
	return singleReply(replyText(fmt.Sprintf(
		"%s %s was installed successfully.", req.SoftwareName, req.Version)))
}
