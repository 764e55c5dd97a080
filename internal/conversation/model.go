package conversation

import "time"

// Direction distinguishes messages received from the customer from
// messages sent back through the provider.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Origin records who produced a message.
type Origin string

const (
	OriginUser   Origin = "user"
	OriginAI     Origin = "ai"
	OriginAgent  Origin = "agent"
	OriginSystem Origin = "system"
)

// Message is a single exchanged message. Immutable once recorded.
type Message struct {
	ID                string    `json:"id"`
	Text              string    `json:"text"`
	Direction         Direction `json:"direction"`
	Origin            Origin    `json:"origin"`
	Timestamp         time.Time `json:"timestamp"`
	ProviderMessageID string    `json:"provider_message_id,omitempty"`
}

// Summary describes one conversation for dashboard listings.
type Summary struct {
	Sender       string    `json:"sender"`
	LastText     string    `json:"last_text"`
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
	AIEnabled    bool      `json:"ai_enabled"`
}
