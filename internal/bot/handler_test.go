package bot

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/kitazume/personabot/internal/completion"
)

// memStore is an in-memory Store for handler tests.
type memStore struct {
	convs    map[string]ConversationState
	users    map[string]UserProfile
	loadErr  error
	saveErr  error
	saves    int
	userSave int
}

func newMemStore() *memStore {
	return &memStore{
		convs: make(map[string]ConversationState),
		users: make(map[string]UserProfile),
	}
}

func (m *memStore) GetOrCreateConversation(ctx context.Context, id string) (ConversationState, error) {
	if m.loadErr != nil {
		return ConversationState{}, m.loadErr
	}
	return m.convs[id], nil
}

func (m *memStore) GetOrCreateUser(ctx context.Context, id string) (UserProfile, error) {
	if m.loadErr != nil {
		return UserProfile{}, m.loadErr
	}
	return m.users[id], nil
}

func (m *memStore) SaveConversation(ctx context.Context, id string, state ConversationState) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	m.convs[id] = state
	return nil
}

func (m *memStore) SaveUser(ctx context.Context, id string, profile UserProfile) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.userSave++
	m.users[id] = profile
	return nil
}

// stubCompleter returns a canned reply or error and records the last request.
type stubCompleter struct {
	reply   string
	err     error
	calls   int
	lastReq completion.Request
}

func (s *stubCompleter) Complete(ctx context.Context, req completion.Request) (string, error) {
	s.calls++
	s.lastReq = req
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

// recordingResponder captures outbound replies.
type recordingResponder struct {
	sent    []string
	sendErr error
}

func (r *recordingResponder) Send(ctx context.Context, text string) error {
	if r.sendErr != nil {
		return r.sendErr
	}
	r.sent = append(r.sent, text)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func turn(text string) TurnContext {
	return TurnContext{
		ConversationID: "conv-1",
		UserID:         "user-1",
		ChannelID:      "msteams",
		Timestamp:      "2026-08-31T09:00:00Z",
		Text:           text,
		SenderName:     "Nobita",
	}
}

func TestHandle_SwitchThenChat(t *testing.T) {
	store := newMemStore()
	comp := &stubCompleter{reply: "bonjour"}
	h := NewHandler(store, testRegistry(t), comp, discardLogger())

	// Turn 1: switch to the translate persona.
	resp := &recordingResponder{}
	if err := h.Handle(context.Background(), turn("/translate"), resp); err != nil {
		t.Fatalf("Handle(/translate): %v", err)
	}
	if len(resp.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(resp.sent))
	}
	if !strings.Contains(resp.sent[0], "翻訳") || !strings.Contains(resp.sent[0], "日本語と英語を相互に翻訳します") {
		t.Errorf("switch reply %q does not announce the new mode", resp.sent[0])
	}
	if comp.calls != 0 {
		t.Errorf("completion called %d times on a command turn", comp.calls)
	}

	// Turn 2: chat in the new mode.
	resp = &recordingResponder{}
	if err := h.Handle(context.Background(), turn("hello"), resp); err != nil {
		t.Fatalf("Handle(hello): %v", err)
	}
	if len(resp.sent) != 1 || resp.sent[0] != "bonjour" {
		t.Fatalf("replies = %v, want [bonjour]", resp.sent)
	}
	if comp.lastReq.Temperature != 0.3 {
		t.Errorf("request temperature = %v, want the persona's 0.3", comp.lastReq.Temperature)
	}

	conv := store.convs["conv-1"]
	want := []Message{
		{Role: RoleSystem, Content: "You are a translator."},
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "bonjour"},
	}
	assertMessages(t, conv.Messages, want)
	if conv.LastTimestamp != "2026-08-31T09:00:00Z" {
		t.Errorf("LastTimestamp = %q, want the turn timestamp", conv.LastTimestamp)
	}
	if conv.ChannelID != "msteams" {
		t.Errorf("ChannelID = %q, want msteams", conv.ChannelID)
	}
	if store.users["user-1"].DisplayName != "Nobita" {
		t.Errorf("DisplayName = %q, want Nobita", store.users["user-1"].DisplayName)
	}
}

func TestHandle_CompletionFailureRecoversIntoReply(t *testing.T) {
	store := newMemStore()
	comp := &stubCompleter{err: &completion.RequestError{
		Status: http.StatusForbidden, Code: "insufficient_quota", Message: "no role assignment",
	}}
	h := NewHandler(store, testRegistry(t), comp, discardLogger())

	resp := &recordingResponder{}
	if err := h.Handle(context.Background(), turn("hello"), resp); err != nil {
		t.Fatalf("classified failure must not escape: %v", err)
	}
	if len(resp.sent) != 1 {
		t.Fatalf("sent %d replies, want 1", len(resp.sent))
	}
	if !strings.Contains(resp.sent[0], "アクセスが拒否されました") {
		t.Errorf("reply %q is not the access-denied message", resp.sent[0])
	}
	if strings.Contains(resp.sent[0], "no role assignment") {
		t.Errorf("reply %q leaks the remote error detail", resp.sent[0])
	}

	// The pending user message is persisted, the turn is not marked
	// successful, and no assistant message is added.
	conv := store.convs["conv-1"]
	want := []Message{
		{Role: RoleSystem, Content: "You are a helpful assistant."},
		{Role: RoleUser, Content: "hello"},
	}
	assertMessages(t, conv.Messages, want)
	if conv.LastTimestamp != "" {
		t.Errorf("LastTimestamp = %q, want unset after a failed turn", conv.LastTimestamp)
	}
}

func TestHandle_EmptyResponseRecoversIntoReply(t *testing.T) {
	store := newMemStore()
	comp := &stubCompleter{err: completion.ErrEmptyResponse}
	h := NewHandler(store, testRegistry(t), comp, discardLogger())

	resp := &recordingResponder{}
	if err := h.Handle(context.Background(), turn("hello"), resp); err != nil {
		t.Fatalf("classified failure must not escape: %v", err)
	}
	if len(resp.sent) != 1 || !strings.Contains(resp.sent[0], "応答を取得できませんでした") {
		t.Errorf("replies = %v, want the empty-response message", resp.sent)
	}
}

func TestHandle_CancelledTurnStaysSilent(t *testing.T) {
	store := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	comp := &stubCompleter{err: context.Canceled}
	h := NewHandler(store, testRegistry(t), comp, discardLogger())

	cancel()
	resp := &recordingResponder{}
	if err := h.Handle(ctx, turn("hello"), resp); err != nil {
		t.Fatalf("cancelled turn must not escape: %v", err)
	}
	if len(resp.sent) != 0 {
		t.Errorf("replies = %v, want none on cancellation", resp.sent)
	}

	// State is still saved, with the pending user message and without success
	// markers.
	if store.saves != 1 {
		t.Fatalf("conversation saved %d times, want 1", store.saves)
	}
	conv := store.convs["conv-1"]
	if len(conv.Messages) != 2 || conv.Messages[1].Role != RoleUser {
		t.Errorf("history = %v, want system + pending user message", conv.Messages)
	}
	if conv.LastTimestamp != "" {
		t.Errorf("LastTimestamp = %q, want unset", conv.LastTimestamp)
	}
}

func TestHandle_SendFailurePropagates(t *testing.T) {
	store := newMemStore()
	comp := &stubCompleter{reply: "hi there"}
	h := NewHandler(store, testRegistry(t), comp, discardLogger())

	resp := &recordingResponder{sendErr: errors.New("channel gone")}
	err := h.Handle(context.Background(), turn("hello"), resp)
	if err == nil {
		t.Fatal("send failure must escape to the boundary")
	}

	// The reply never reached the user, so the assistant message is not
	// committed; the user message is.
	conv := store.convs["conv-1"]
	if len(conv.Messages) != 2 {
		t.Errorf("history = %v, want system + user only", conv.Messages)
	}
}

func TestHandle_LoadFailureEscapes(t *testing.T) {
	store := newMemStore()
	store.loadErr = errors.New("disk gone")
	h := NewHandler(store, testRegistry(t), &stubCompleter{}, discardLogger())

	resp := &recordingResponder{}
	if err := h.Handle(context.Background(), turn("hello"), resp); err == nil {
		t.Fatal("load failure must escape to the boundary")
	}
	if len(resp.sent) != 0 {
		t.Errorf("replies = %v, want none", resp.sent)
	}
}

func TestHandle_SavesBothRecordsOnEveryTurn(t *testing.T) {
	store := newMemStore()
	comp := &stubCompleter{err: errors.New("boom")}
	h := NewHandler(store, testRegistry(t), comp, discardLogger())

	if err := h.Handle(context.Background(), turn("hello"), &recordingResponder{}); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if store.saves != 1 || store.userSave != 1 {
		t.Errorf("saves = %d conversation, %d user; want 1 each", store.saves, store.userSave)
	}
}
