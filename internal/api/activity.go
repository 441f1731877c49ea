package api

// Activity types the boundary understands. Anything else is acknowledged
// and ignored.
const (
	ActivityMessage            = "message"
	ActivityConversationUpdate = "conversationUpdate"
)

// Account identifies a channel participant.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// ConversationAccount identifies the conversation an activity belongs to.
type ConversationAccount struct {
	ID string `json:"id"`
}

// Activity is one channel event: a user message, a roster update, or
// anything else the channel chooses to deliver.
type Activity struct {
	Type         string              `json:"type"`
	ID           string              `json:"id,omitempty"`
	Timestamp    string              `json:"timestamp,omitempty"`
	ChannelID    string              `json:"channelId,omitempty"`
	From         Account             `json:"from,omitempty"`
	Recipient    Account             `json:"recipient,omitempty"`
	Conversation ConversationAccount `json:"conversation,omitempty"`
	Text         string              `json:"text,omitempty"`
	MembersAdded []Account           `json:"membersAdded,omitempty"`
}

// TurnResponse is the envelope returned for a processed turn: the outbound
// reply activities, in send order.
type TurnResponse struct {
	Replies []Activity `json:"replies"`
}
