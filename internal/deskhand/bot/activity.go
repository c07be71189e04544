// Package bot implements the conversational mediator: it classifies inbound
// chat activities, drives the install-request lifecycle, and produces the
// outbound replies and cards for each turn.
package bot

import "encoding/json"

// ActivityTypeMessage is the only activity type the bot acts on.
const ActivityTypeMessage = "message"

// CardContentType is the attachment content type for adaptive cards.
const CardContentType = "application/vnd.microsoft.card.adaptive"

// ChannelAccount identifies a chat user.
type ChannelAccount struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies the conversation a turn belongs to.
type ConversationAccount struct {
	ID string `json:"id,omitempty"`
}

// Attachment carries a card payload on an outbound activity.
type Attachment struct {
	ContentType string          `json:"contentType"`
	Content     json.RawMessage `json:"content"`
}

// Activity is one chat turn, inbound or outbound. Inbound activities carry
// either free text or a structured Value from a card submit; outbound ones
// carry reply text and optional card attachments.
type Activity struct {
	Type         string              `json:"type"`
	Text         string              `json:"text,omitempty"`
	From         ChannelAccount      `json:"from,omitempty"`
	Conversation ConversationAccount `json:"conversation,omitempty"`
	Value        map[string]any      `json:"value,omitempty"`
	Attachments  []Attachment        `json:"attachments,omitempty"`
}

// TurnResponse is the set of outbound activities produced by one turn.
type TurnResponse struct {
	Activities []*Activity `json:"activities"`
}

func replyText(text string) *Activity {
	return &Activity{
		Type: ActivityTypeMessage,
		Text: text,
	}
}

func replyWithCard(text string, card json.RawMessage) *Activity {
	a := replyText(text)
	a.Attachments = []Attachment{{
		ContentType: CardContentType,
		Content:     card,
	}}
	return a
}

func singleReply(a *Activity) *TurnResponse {
	return &TurnResponse{Activities: []*Activity{a}}
}
