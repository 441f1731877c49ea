package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kitazume/personabot/internal/bot"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Deps holds the collaborators of the transport boundary.
type Deps struct {
	Turns   *bot.Handler
	Channel ChannelAuthenticator
	Logger  *slog.Logger
}

// NewHandler returns the channel-facing HTTP handler: the messages endpoint
// plus a health probe.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	AddRoutes(r, deps)
	return r
}

// AddRoutes registers the channel-facing routes on r. The server composes
// these and the admin routes onto one router; chi does not allow mounting two
// sub-routers at the same path.
func AddRoutes(r chi.Router, deps Deps) {
	r.Get("/health", handleHealth)
	r.Post("/api/messages", handleMessages(deps))
	// Some channels probe the endpoint with GET before posting turns.
	r.Get("/api/messages", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, TurnResponse{Replies: []Activity{}})
	})
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func handleMessages(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// Channel authentication runs before turn handling, so its failures
		// cannot be recovered into a chat reply and go through the boundary
		// classification instead.
		if err := deps.Channel.Authenticate(r); err != nil {
			writeBoundaryFailure(deps.Logger, w, err)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var activity Activity
		if err := json.NewDecoder(r.Body).Decode(&activity); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid activity body: %v", err)
			return
		}

		collector := newReplyCollector(activity)

		switch activity.Type {
		case ActivityMessage:
			if activity.Text == "" {
				break
			}
			tc := bot.TurnContext{
				ConversationID: activity.Conversation.ID,
				UserID:         activity.From.ID,
				ChannelID:      activity.ChannelID,
				Timestamp:      activity.Timestamp,
				Text:           activity.Text,
				SenderName:     activity.From.Name,
			}
			if err := deps.Turns.Handle(r.Context(), tc, collector); err != nil {
				writeBoundaryFailure(deps.Logger, w, err)
				return
			}
		case ActivityConversationUpdate:
			// Greet new members. The bot itself appears in membersAdded when
			// it joins; skip it.
			for _, member := range activity.MembersAdded {
				if member.ID == activity.Recipient.ID {
					continue
				}
				collector.Send(r.Context(), "こんにちは。")
			}
		default:
			// Typing indicators, reactions and the like are acknowledged
			// without processing.
		}

		writeJSON(w, http.StatusOK, TurnResponse{Replies: collector.replies})
	}
}

// identityProviderMarkers flag failures caused by the identity provider
// rejecting the token request (vendor error-code prefix or a conditional
// access block). The full error text is searched, so markers buried in a
// joined or wrapped aggregate are found too.
var identityProviderMarkers = []string{"aadsts", "conditional access"}

func isIdentityProviderRejection(err error) bool {
	msg := strings.ToLower(err.Error())
	for _, marker := range identityProviderMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// writeBoundaryFailure maps a failure that escaped (or preceded) turn
// handling to an HTTP status and a log entry.
//
// Identity-provider rejections and unauthorized callers get 200 on purpose:
// a persistent auth condition would otherwise make the channel retry the
// same turn indefinitely. This inverts the usual "unauthorized means error
// status" convention, and is intentional — the Warning log is the signal.
func writeBoundaryFailure(logger *slog.Logger, w http.ResponseWriter, err error) {
	switch {
	case isIdentityProviderRejection(err):
		logger.Warn("authentication error during token acquisition; returning 200 to avoid channel retries", "error", err)
		writeJSON(w, http.StatusOK, TurnResponse{Replies: []Activity{}})
	case errors.Is(err, ErrCallerUnauthorized):
		logger.Warn("authentication failure while processing turn; returning 200 to avoid channel retries", "error", err)
		writeJSON(w, http.StatusOK, TurnResponse{Replies: []Activity{}})
	default:
		logger.Error("unhandled error while processing turn", "error", err)
		httpError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// replyCollector gathers outbound activities for the turn response.
type replyCollector struct {
	inbound Activity
	replies []Activity
}

func newReplyCollector(inbound Activity) *replyCollector {
	return &replyCollector{inbound: inbound, replies: []Activity{}}
}

func (c *replyCollector) Send(_ context.Context, text string) error {
	c.replies = append(c.replies, Activity{
		Type:         ActivityMessage,
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
		ChannelID:    c.inbound.ChannelID,
		Conversation: c.inbound.Conversation,
		Text:         text,
	})
	return nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, errType string, format string, args ...any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	msg := fmt.Sprintf(format, args...)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"message": msg,
			"type":    errType,
		},
	})
}
