package completion

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestStaticKey(t *testing.T) {
	tok, err := StaticKey{Key: "sk-test"}.Token(context.Background())
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok != "sk-test" {
		t.Errorf("token = %q, want sk-test", tok)
	}

	_, err = StaticKey{}.Token(context.Background())
	var credErr *CredentialUnavailableError
	if !errors.As(err, &credErr) {
		t.Errorf("error = %v, want CredentialUnavailableError", err)
	}
}

func TestClientCredentials_FetchesAndCaches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if err := r.ParseForm(); err != nil {
			t.Errorf("parsing form: %v", err)
		}
		if got := r.Form.Get("grant_type"); got != "client_credentials" {
			t.Errorf("grant_type = %q", got)
		}
		if got := r.Form.Get("client_id"); got != "app-id" {
			t.Errorf("client_id = %q", got)
		}
		if got := r.Form.Get("scope"); got != "https://cognitiveservices.azure.com/.default" {
			t.Errorf("scope = %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok-1","expires_in":3600}`))
	}))
	defer srv.Close()

	cc := &ClientCredentials{
		TokenURL:     srv.URL,
		ClientID:     "app-id",
		ClientSecret: "shh",
		Scope:        "https://cognitiveservices.azure.com/.default",
	}

	for i := 0; i < 2; i++ {
		tok, err := cc.Token(context.Background())
		if err != nil {
			t.Fatalf("Token (call %d): %v", i+1, err)
		}
		if tok != "tok-1" {
			t.Errorf("token = %q, want tok-1", tok)
		}
	}
	if calls != 1 {
		t.Errorf("token endpoint called %d times, want 1 (cached)", calls)
	}
}

func TestClientCredentials_NotConfigured(t *testing.T) {
	cc := &ClientCredentials{}
	_, err := cc.Token(context.Background())

	var credErr *CredentialUnavailableError
	if !errors.As(err, &credErr) {
		t.Errorf("error = %v, want CredentialUnavailableError", err)
	}
}

func TestClientCredentials_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`AADSTS7000215: Invalid client secret provided.`))
	}))
	defer srv.Close()

	cc := &ClientCredentials{TokenURL: srv.URL, ClientID: "app-id", ClientSecret: "wrong"}
	_, err := cc.Token(context.Background())

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("error = %v, want AuthenticationError", err)
	}
	if authErr.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", authErr.Status)
	}
	if authErr.Message == "" {
		t.Error("Message is empty, want the provider's response body")
	}
}

func TestClientCredentials_NoAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"token_type":"Bearer"}`))
	}))
	defer srv.Close()

	cc := &ClientCredentials{TokenURL: srv.URL, ClientID: "app-id"}
	_, err := cc.Token(context.Background())

	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Errorf("error = %v, want AuthenticationError", err)
	}
}
