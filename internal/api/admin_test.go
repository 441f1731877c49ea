package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kitazume/personabot/internal/bot"
	"github.com/kitazume/personabot/internal/persona"
	"github.com/kitazume/personabot/internal/storage"
)

const testToken = "test-admin-token"

func newAdminFixture(t *testing.T) (http.Handler, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	registry, err := persona.NewRegistry(persona.Builtin())
	if err != nil {
		t.Fatalf("building registry: %v", err)
	}

	return NewAdminHandler(AdminDeps{
		Store:    store,
		Registry: registry,
		Token:    testToken,
		Version:  "test",
	}), store
}

func adminRequest(t *testing.T, handler http.Handler, method, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestAdmin_RequiresBearerToken(t *testing.T) {
	handler, _ := newAdminFixture(t)

	tests := []struct {
		name  string
		token string
	}{
		{name: "missing token", token: ""},
		{name: "wrong token", token: "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := adminRequest(t, handler, "GET", "/api/personas", tt.token)
			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
		})
	}
}

func TestAdmin_ListPersonas(t *testing.T) {
	handler, _ := newAdminFixture(t)

	rec := adminRequest(t, handler, "GET", "/api/personas", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Personas []map[string]any `json:"personas"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Personas) != len(persona.Builtin()) {
		t.Errorf("personas = %d, want %d", len(resp.Personas), len(persona.Builtin()))
	}
	for _, p := range resp.Personas {
		if _, ok := p["system_prompt"]; ok {
			t.Errorf("list view exposes the system prompt for %v", p["id"])
		}
	}
}

func TestAdmin_GetPersona(t *testing.T) {
	handler, _ := newAdminFixture(t)

	rec := adminRequest(t, handler, "GET", "/api/personas/translate", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var p persona.Persona
	if err := json.NewDecoder(rec.Body).Decode(&p); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if p.ID != "translate" || p.SystemPrompt == "" {
		t.Errorf("persona = %+v, want translate with its prompt", p)
	}

	rec = adminRequest(t, handler, "GET", "/api/personas/missing", testToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAdmin_ConversationLifecycle(t *testing.T) {
	handler, store := newAdminFixture(t)
	ctx := context.Background()

	if err := store.SaveConversation(ctx, "conv-1", bot.ConversationState{
		PersonaID: "default",
		Messages:  []bot.Message{{Role: bot.RoleSystem, Content: "prompt"}},
	}); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}

	rec := adminRequest(t, handler, "GET", "/api/conversations/conv-1", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec.Code)
	}
	var state bot.ConversationState
	if err := json.NewDecoder(rec.Body).Decode(&state); err != nil {
		t.Fatalf("decoding conversation: %v", err)
	}
	if state.PersonaID != "default" || len(state.Messages) != 1 {
		t.Errorf("conversation = %+v, want the seeded record", state)
	}

	rec = adminRequest(t, handler, "DELETE", "/api/conversations/conv-1", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d, want 200", rec.Code)
	}

	rec = adminRequest(t, handler, "GET", "/api/conversations/conv-1", testToken)
	if rec.Code != http.StatusNotFound {
		t.Errorf("GET after delete status = %d, want 404", rec.Code)
	}
}

func TestAdmin_Status(t *testing.T) {
	handler, store := newAdminFixture(t)

	if err := store.SaveConversation(context.Background(), "conv-1", bot.ConversationState{}); err != nil {
		t.Fatalf("seeding conversation: %v", err)
	}

	rec := adminRequest(t, handler, "GET", "/api/status", testToken)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Version       string `json:"version"`
		Personas      int    `json:"personas"`
		Conversations int    `json:"conversations"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Version != "test" {
		t.Errorf("version = %q, want test", resp.Version)
	}
	if resp.Conversations != 1 {
		t.Errorf("conversations = %d, want 1", resp.Conversations)
	}
	if resp.Personas != len(persona.Builtin()) {
		t.Errorf("personas = %d, want %d", resp.Personas, len(persona.Builtin()))
	}
}
