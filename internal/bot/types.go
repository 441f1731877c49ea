package bot

import "context"

// Message roles. The completion service only understands these three.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single role-tagged entry in a conversation history.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ConversationState is the per-conversation record. Messages is ordered and
// append-only between resets; when non-empty its first entry is always the
// system message of the persona active at the time it was seeded.
//
// Histories are replaced wholesale on every mutation (reset, persona switch,
// commit) rather than appended in place, so a cancelled turn can never leave
// a half-updated slice visible to the store.
type ConversationState struct {
	PersonaID     string    `json:"persona_id,omitempty"`
	Messages      []Message `json:"messages,omitempty"`
	LastTimestamp string    `json:"last_timestamp,omitempty"`
	ChannelID     string    `json:"channel_id,omitempty"`
}

// UserProfile is the per-user record. DisplayName is filled once from the
// inbound sender name and not overwritten afterwards.
type UserProfile struct {
	DisplayName string `json:"display_name,omitempty"`
}

// Store is the persistence collaborator for conversation and user records.
// Implementations provide get-or-create semantics per key; the core never
// deletes records (eviction belongs to the store owner).
type Store interface {
	GetOrCreateConversation(ctx context.Context, id string) (ConversationState, error)
	GetOrCreateUser(ctx context.Context, id string) (UserProfile, error)
	SaveConversation(ctx context.Context, id string, state ConversationState) error
	SaveUser(ctx context.Context, id string, profile UserProfile) error
}
