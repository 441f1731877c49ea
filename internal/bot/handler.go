package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kitazume/personabot/internal/completion"
	"github.com/kitazume/personabot/internal/persona"
)

// Completer is the remote completion collaborator.
type Completer interface {
	Complete(ctx context.Context, req completion.Request) (string, error)
}

// Responder delivers user-visible replies back over the channel.
type Responder interface {
	Send(ctx context.Context, text string) error
}

// TurnContext identifies one inbound message and its conversation.
type TurnContext struct {
	ConversationID string
	UserID         string
	ChannelID      string
	Timestamp      string
	Text           string
	SenderName     string
}

// Handler composes the turn processor, the completion client, and the error
// classifier for one turn. Errors raised by the completion call are always
// recovered into a chat reply here; only store and send failures escape to
// the transport boundary.
type Handler struct {
	store     Store
	processor *Processor
	completer Completer
	logger    *slog.Logger
}

func NewHandler(store Store, registry *persona.Registry, completer Completer, logger *slog.Logger) *Handler {
	return &Handler{
		store:     store,
		processor: NewProcessor(registry),
		completer: completer,
		logger:    logger,
	}
}

// Handle processes one turn end to end: load state, run the state machine,
// call the completion service for chat turns, reply, and persist.
//
// Both records are saved on every exit path, including classified failures
// and cancellation; persistence is at-least-once per turn and deliberately
// not transactional with the outbound reply.
func (h *Handler) Handle(ctx context.Context, tc TurnContext, respond Responder) error {
	conv, err := h.store.GetOrCreateConversation(ctx, tc.ConversationID)
	if err != nil {
		return fmt.Errorf("loading conversation %s: %w", tc.ConversationID, err)
	}
	user, err := h.store.GetOrCreateUser(ctx, tc.UserID)
	if err != nil {
		return fmt.Errorf("loading user %s: %w", tc.UserID, err)
	}

	defer func() {
		saveCtx := context.WithoutCancel(ctx)
		if err := h.store.SaveConversation(saveCtx, tc.ConversationID, conv); err != nil {
			h.logger.Error("saving conversation state", "conversation_id", tc.ConversationID, "error", err)
		}
		if err := h.store.SaveUser(saveCtx, tc.UserID, user); err != nil {
			h.logger.Error("saving user profile", "user_id", tc.UserID, "error", err)
		}
	}()

	h.logger.Info("received message",
		"conversation_id", tc.ConversationID,
		"channel_id", tc.ChannelID,
		"length", len(tc.Text),
	)

	outcome := h.processor.Process(&conv, &user, tc.Text, tc.SenderName)
	if outcome.Reply != "" {
		return respond.Send(ctx, outcome.Reply)
	}

	pending := outcome.Completion
	// Keep the pending user message in the stored history whatever happens
	// next, so a retried turn resumes with full context. The assistant
	// message and the success markers are only committed below.
	conv.Messages = pending.Messages

	h.logger.Info("calling completion service",
		"persona", pending.Persona.ID,
		"messages", len(pending.Messages),
	)

	reply, err := h.completer.Complete(ctx, completionRequest(pending))
	if err != nil {
		if ctx.Err() != nil {
			// The inbound request was cancelled; there is nobody left to
			// answer and the turn must not be marked successful.
			h.logger.Warn("turn cancelled during completion call",
				"conversation_id", tc.ConversationID, "error", err)
			return nil
		}

		ce := Classify(err)
		h.logClassified(ctx, ce, err, tc)
		if sendErr := respond.Send(ctx, ce.UserMessage); sendErr != nil {
			h.logger.Error("sending failure reply", "conversation_id", tc.ConversationID, "error", sendErr)
		}
		return nil
	}

	h.logger.Info("completion succeeded", "persona", pending.Persona.ID, "reply_length", len(reply))

	if err := respond.Send(ctx, reply); err != nil {
		return fmt.Errorf("sending reply: %w", err)
	}

	conv.Messages = append(pending.Messages, Message{Role: RoleAssistant, Content: reply})
	conv.LastTimestamp = tc.Timestamp
	conv.ChannelID = tc.ChannelID
	return nil
}

func completionRequest(p *PendingCompletion) completion.Request {
	msgs := make([]completion.Message, len(p.Messages))
	for i, m := range p.Messages {
		msgs[i] = completion.Message{Role: m.Role, Content: m.Content}
	}
	return completion.Request{
		Messages:    msgs,
		Temperature: p.Persona.Temperature,
		MaxTokens:   p.Persona.MaxTokens,
	}
}

// logClassified records the full failure detail. Transport errors include
// the request line and headers with credential-bearing values redacted.
func (h *Handler) logClassified(ctx context.Context, ce ClassifiedError, err error, tc TurnContext) {
	attrs := []any{
		"kind", ce.Kind.String(),
		"conversation_id", tc.ConversationID,
		"error", err,
	}
	var reqErr *completion.RequestError
	if errors.As(err, &reqErr) {
		attrs = append(attrs,
			"url", reqErr.URL,
			"method", reqErr.Method,
			"status", reqErr.Status,
			"remote_code", reqErr.Code,
			"headers", redactHeaders(reqErr.Header),
		)
	}
	h.logger.Log(ctx, ce.Severity, "completion call failed", attrs...)
}
