package whatsapp

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoMatch means no recognized payload shape yielded both a sender
// and message text. Partial matches count as no match.
var ErrNoMatch = errors.New("whatsapp: no recognized payload shape")

// Payload shape names, in extraction priority order.
const (
	ShapeContactsEnvelope = "contacts_envelope"
	ShapeMessagesEnvelope = "messages_envelope"
	ShapeDirect           = "direct"
)

// Extraction is the normalized result of parsing an inbound webhook
// payload.
type Extraction struct {
	Sender            string
	Text              string
	Shape             string
	ProviderMessageID string
}

// textField accepts both the Cloud API object form {"body": "..."} and
// a bare string, which some provider variants emit.
type textField struct {
	Body string
}

func (t *textField) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		t.Body = s
		return nil
	}
	var obj struct {
		Body string `json:"body"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return err
	}
	t.Body = obj.Body
	return nil
}

// inboundMessage is the nested message object shared by the envelope
// shapes.
type inboundMessage struct {
	ID   string    `json:"id"`
	From string    `json:"from"`
	Type string    `json:"type"`
	Text textField `json:"text"`
}

type contactsEnvelope struct {
	Contacts []struct {
		WaID string `json:"wa_id"`
	} `json:"contacts"`
	Messages inboundMessage `json:"messages"`
}

type messagesEnvelope struct {
	Messages inboundMessage `json:"messages"`
}

type directPayload struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Phone   string    `json:"phone"`
	Sender  string    `json:"sender"`
	Text    textField `json:"text"`
	Message textField `json:"message"`
	Content string    `json:"content"`
	Body    string    `json:"body"`
}

type shapeParser struct {
	name  string
	parse func(data []byte) (Extraction, bool)
}

// Parsers are tried in order; the first that yields both a non-empty
// sender and non-empty text wins.
var shapeParsers = []shapeParser{
	{ShapeContactsEnvelope, parseContactsEnvelope},
	{ShapeMessagesEnvelope, parseMessagesEnvelope},
	{ShapeDirect, parseDirect},
}

// Extract normalizes an inbound webhook body into (sender, text).
// Unrecognized or partial payloads return ErrNoMatch, never a panic:
// the webhook controller acknowledges those without further processing.
func Extract(data []byte) (Extraction, error) {
	for _, p := range shapeParsers {
		if ext, ok := p.parse(data); ok {
			ext.Shape = p.name
			return ext, nil
		}
	}
	return Extraction{}, ErrNoMatch
}

func parseContactsEnvelope(data []byte) (Extraction, bool) {
	var payload contactsEnvelope
	if err := json.Unmarshal(data, &payload); err != nil {
		return Extraction{}, false
	}
	if len(payload.Contacts) == 0 {
		return Extraction{}, false
	}
	sender := strings.TrimSpace(payload.Contacts[0].WaID)
	text := strings.TrimSpace(payload.Messages.Text.Body)
	if sender == "" || text == "" {
		return Extraction{}, false
	}
	return Extraction{Sender: sender, Text: text, ProviderMessageID: payload.Messages.ID}, true
}

func parseMessagesEnvelope(data []byte) (Extraction, bool) {
	var payload messagesEnvelope
	if err := json.Unmarshal(data, &payload); err != nil {
		return Extraction{}, false
	}
	sender := strings.TrimSpace(payload.Messages.From)
	text := strings.TrimSpace(payload.Messages.Text.Body)
	if sender == "" || text == "" {
		return Extraction{}, false
	}
	return Extraction{Sender: sender, Text: text, ProviderMessageID: payload.Messages.ID}, true
}

func parseDirect(data []byte) (Extraction, bool) {
	var payload directPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return Extraction{}, false
	}
	sender := firstNonEmpty(payload.From, payload.Phone, payload.Sender)
	text := firstNonEmpty(payload.Text.Body, payload.Message.Body, payload.Content, payload.Body)
	if sender == "" || text == "" {
		return Extraction{}, false
	}
	return Extraction{Sender: sender, Text: text, ProviderMessageID: payload.ID}, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
