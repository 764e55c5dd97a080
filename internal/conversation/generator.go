package conversation

import (
	"context"
	"errors"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/relaydesk/warelay/pkg/logging"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

const systemPrompt = "You are a helpful WhatsApp assistant. Keep responses brief and friendly."

// FallbackReply is sent when every generation attempt fails. The user
// must still receive some reply once inbound processing got this far.
const FallbackReply = "Sorry, I'm having trouble responding right now."

var generatorTracer = otel.Tracer("warelay.internal.conversation.generator")

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// LLMClient is the secondary-provider completion interface.
type LLMClient interface {
	Complete(ctx context.Context, message string, maxTokens int) (string, error)
}

// ReplyGenerator produces assistant replies for inbound messages.
// Generation failures are recovered locally: Reply always returns a
// non-empty string, falling back to FallbackReply as a last resort.
type ReplyGenerator struct {
	client    chatClient
	secondary LLMClient
	model     string
	maxTokens int
	logger    *logging.Logger
}

// NewReplyGenerator returns an OpenAI-backed generator. secondary may
// be nil; when set it is tried before the local fallback reply.
func NewReplyGenerator(client chatClient, secondary LLMClient, model string, maxTokens int, logger *logging.Logger) *ReplyGenerator {
	if client == nil {
		panic("conversation: chat client cannot be nil")
	}
	if model == "" {
		model = openai.GPT4oMini
	}
	if maxTokens <= 0 {
		maxTokens = 150
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &ReplyGenerator{
		client:    client,
		secondary: secondary,
		model:     model,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

// Reply generates a reply to the given message text. The returned
// error is informational only: when it is non-nil the reply is the
// fixed fallback string and the caller should still deliver it.
func (g *ReplyGenerator) Reply(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", errors.New("conversation: message text required")
	}

	ctx, span := generatorTracer.Start(ctx, "conversation.generate_reply")
	defer span.End()
	span.SetAttributes(attribute.String("warelay.model", g.model))

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: message},
		},
	})
	if err == nil {
		if reply := completionText(resp); reply != "" {
			return reply, nil
		}
		err = errors.New("conversation: completion returned no choices")
	}
	span.RecordError(err)
	g.logger.Warn("primary completion failed", "error", err, "fallback_available", g.secondary != nil)

	if g.secondary != nil {
		reply, secondaryErr := g.secondary.Complete(ctx, message, g.maxTokens)
		if secondaryErr == nil && strings.TrimSpace(reply) != "" {
			g.logger.Info("secondary completion succeeded after primary failure")
			return strings.TrimSpace(reply), nil
		}
		if secondaryErr != nil {
			span.RecordError(secondaryErr)
			g.logger.Error("secondary completion failed",
				"primary_error", err,
				"secondary_error", secondaryErr,
			)
		}
	}

	return FallbackReply, err
}

func completionText(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		return ""
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content)
}
