package completion

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

// TokenSource supplies the bearer credential for completion requests.
//
// Token returns a CredentialUnavailableError when no credential can be
// obtained at all, and an AuthenticationError when a token request is
// rejected. The classifier downstream depends on that distinction.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// StaticKey is a TokenSource backed by a pre-shared API key.
type StaticKey struct {
	Key string
}

func (s StaticKey) Token(context.Context) (string, error) {
	if s.Key == "" {
		return "", &CredentialUnavailableError{Reason: "no API key configured"}
	}
	return s.Key, nil
}

// ClientCredentials obtains short-lived tokens from an OAuth2 client
// credentials endpoint and caches them until shortly before expiry.
type ClientCredentials struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	HTTPClient   *http.Client

	mu     sync.Mutex
	token  string
	expiry time.Time
}

func (c *ClientCredentials) Token(ctx context.Context) (string, error) {
	if c.TokenURL == "" || c.ClientID == "" {
		return "", &CredentialUnavailableError{Reason: "token endpoint or client id not configured"}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && time.Now().Before(c.expiry) {
		return c.token, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.ClientID},
		"client_secret": {c.ClientSecret},
	}
	if c.Scope != "" {
		form.Set("scope", c.Scope)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := c.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("requesting token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &AuthenticationError{Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var tok struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tok); err != nil {
		return "", fmt.Errorf("parsing token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", &AuthenticationError{Status: resp.StatusCode, Message: "token response contained no access_token"}
	}

	c.token = tok.AccessToken
	ttl := time.Duration(tok.ExpiresIn) * time.Second
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	// Refresh a minute early so in-flight requests never carry a stale token.
	c.expiry = time.Now().Add(ttl - time.Minute)

	return c.token, nil
}
