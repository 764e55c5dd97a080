package whatsapp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractContactsEnvelope(t *testing.T) {
	payload := []byte(`{
		"contacts": [{"wa_id": "919000000001"}],
		"messages": {"id": "wamid.abc", "type": "text", "text": {"body": "Hi"}}
	}`)

	ext, err := Extract(payload)
	require.NoError(t, err)
	assert.Equal(t, "919000000001", ext.Sender)
	assert.Equal(t, "Hi", ext.Text)
	assert.Equal(t, ShapeContactsEnvelope, ext.Shape)
	assert.Equal(t, "wamid.abc", ext.ProviderMessageID)
}

func TestExtractMessagesEnvelope(t *testing.T) {
	payload := []byte(`{
		"messages": {"id": "wamid.def", "from": "919000000002", "text": {"body": "Hello"}}
	}`)

	ext, err := Extract(payload)
	require.NoError(t, err)
	assert.Equal(t, "919000000002", ext.Sender)
	assert.Equal(t, "Hello", ext.Text)
	assert.Equal(t, ShapeMessagesEnvelope, ext.Shape)
	assert.Equal(t, "wamid.def", ext.ProviderMessageID)
}

func TestExtractDirectVariants(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		sender  string
		text    string
	}{
		{"from and text object", `{"from": "91900", "text": {"body": "yo"}}`, "91900", "yo"},
		{"from and bare text", `{"from": "91900", "text": "yo"}`, "91900", "yo"},
		{"phone and message", `{"phone": "91901", "message": "hello"}`, "91901", "hello"},
		{"sender and content", `{"sender": "91902", "content": "hey"}`, "91902", "hey"},
		{"sender and body", `{"sender": "91903", "body": "sup"}`, "91903", "sup"},
		{"whitespace trimmed", `{"from": "  91904  ", "text": "  hi  "}`, "91904", "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ext, err := Extract([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.sender, ext.Sender)
			assert.Equal(t, tt.text, ext.Text)
			assert.Equal(t, ShapeDirect, ext.Shape)
		})
	}
}

// Any shape that matches must normalize to the same (sender, text)
// pair; downstream code never sees which wire form arrived.
func TestExtractShapeEquivalence(t *testing.T) {
	payloads := [][]byte{
		[]byte(`{"contacts": [{"wa_id": "91905"}], "messages": {"text": {"body": "same"}}}`),
		[]byte(`{"messages": {"from": "91905", "text": {"body": "same"}}}`),
		[]byte(`{"from": "91905", "text": "same"}`),
	}

	for _, payload := range payloads {
		ext, err := Extract(payload)
		require.NoError(t, err)
		assert.Equal(t, "91905", ext.Sender)
		assert.Equal(t, "same", ext.Text)
	}
}

func TestExtractPartialMatchFails(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"contacts without text", `{"contacts": [{"wa_id": "91906"}], "messages": {"type": "image"}}`},
		{"messages without sender", `{"messages": {"text": {"body": "hi"}}}`},
		{"direct sender only", `{"from": "91907"}`},
		{"direct text only", `{"text": "hi"}`},
		{"empty strings", `{"from": "", "text": ""}`},
		{"whitespace only", `{"from": "   ", "text": "  "}`},
		{"empty object", `{}`},
		{"not json", `not json at all`},
		{"empty contacts array", `{"contacts": [], "messages": {"text": {"body": "hi"}}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Extract([]byte(tt.payload))
			assert.ErrorIs(t, err, ErrNoMatch)
		})
	}
}

func TestExtractPriorityOrder(t *testing.T) {
	// Contacts envelope beats direct fields present in the same body.
	payload := []byte(`{
		"contacts": [{"wa_id": "envelope_sender"}],
		"messages": {"text": {"body": "envelope text"}},
		"from": "direct_sender",
		"text": {"body": "direct text"}
	}`)

	ext, err := Extract(payload)
	require.NoError(t, err)
	assert.Equal(t, ShapeContactsEnvelope, ext.Shape)
	assert.Equal(t, "envelope_sender", ext.Sender)
	assert.Equal(t, "envelope text", ext.Text)
}
