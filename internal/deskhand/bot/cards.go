package bot

import (
	"encoding/json"
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/deskhand/deskhand/internal/deskhand/db/models"
)

var jsonit = jsoniter.ConfigCompatibleWithStandardLibrary

const cardSchema = "http://adaptivecards.io/schemas/adaptive-card.json"

type adaptiveCard struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []any        `json:"body"`
	Actions []cardAction `json:"actions,omitempty"`
}

type textBlock struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Weight string `json:"weight,omitempty"`
	Size   string `json:"size,omitempty"`
	Wrap   bool   `json:"wrap,omitempty"`
}

type choiceSetInput struct {
	Type    string       `json:"type"`
	ID      string       `json:"id"`
	Style   string       `json:"style"`
	Choices []cardChoice `json:"choices"`
}

type cardChoice struct {
	Title string `json:"title"`
	Value string `json:"value"`
}

type cardAction struct {
	Type  string         `json:"type"`
	Title string         `json:"title"`
	Data  map[string]any `json:"data"`
}

func newCard(body []any, actions []cardAction) adaptiveCard {
	return adaptiveCard{
		Schema:  cardSchema,
		Type:    "AdaptiveCard",
		Version: "1.4",
		Body:    body,
		Actions: actions,
	}
}

// softwareChoice is the JSON value carried by one catalog choice on the
// selection card, echoed back on submit.
type softwareChoice struct {
	Software string `json:"software"`
	Version  string `json:"version"`
	WingetID string `json:"winget_id"`
}

// selectionCard builds the software picker from the catalog.
func selectionCard(entries []*models.CatalogEntry) (json.RawMessage, error) {
	choices := make([]cardChoice, 0, len(entries))
	for _, e := range entries {
		value, err := jsonit.Marshal(&softwareChoice{
			Software: e.SoftwareName,
			Version:  e.Version,
			WingetID: e.WingetID,
		})
		if err != nil {
			return nil, err
		}
		choices = append(choices, cardChoice{
			Title: fmt.Sprintf("%s (%s)", e.SoftwareName, e.Version),
			Value: string(value),
		})
	}

	card := newCard(
		[]any{
			textBlock{Type: "TextBlock", Text: "Which software would you like installed?", Weight: "Bolder", Wrap: true},
			choiceSetInput{Type: "Input.ChoiceSet", ID: "selection", Style: "compact", Choices: choices},
		},
		[]cardAction{{
			Type:  "Action.Submit",
			Title: "Request install",
			Data:  map[string]any{"action": ActionSelectSoftware},
		}},
	)
	return jsonit.Marshal(card)
}

// approvalCard builds the approve/reject prompt for a pending request.
func approvalCard(req *models.Request) (json.RawMessage, error) {
	summary := fmt.Sprintf("%s requested %s %s", req.UserID, req.SoftwareName, req.Version)
	if req.TicketNumber.Valid {
		summary += fmt.Sprintf(" (ticket %s)", req.TicketNumber.String)
	}

	card := newCard(
		[]any{
			textBlock{Type: "TextBlock", Text: "Install request pending approval", Weight: "Bolder", Size: "Medium"},
			textBlock{Type: "TextBlock", Text: summary, Wrap: true},
		},
		[]cardAction{
			{
				Type:  "Action.Submit",
				Title: "Approve",
				Data:  map[string]any{"action": ActionApproveRequest, "request_id": req.ID},
			},
			{
				Type:  "Action.Submit",
				Title: "Reject",
				Data:  map[string]any{"action": ActionRejectRequest, "request_id": req.ID},
			},
		},
	)
	return jsonit.Marshal(card)
}

// confirmCard builds the proceed-with-install prompt shown to the requester
// after approval.
func confirmCard(req *models.Request) (json.RawMessage, error) {
	card := newCard(
		[]any{
			textBlock{Type: "TextBlock", Text: fmt.Sprintf("%s %s is approved", req.SoftwareName, req.Version), Weight: "Bolder"},
			textBlock{Type: "TextBlock", Text: "The install will run on your machine. Proceed?", Wrap: true},
		},
		[]cardAction{{
			Type:  "Action.Submit",
			Title: "Proceed",
			Data:  map[string]any{"action": ActionAcceptInstall, "request_id": req.ID},
		}},
	)
	return jsonit.Marshal(card)
}
