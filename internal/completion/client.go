package completion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Message is a role-tagged chat message in the wire format the completion
// service expects.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request is one completion call: the full ordered history plus the active
// persona's generation parameters.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Client talks to an OpenAI-compatible chat completions endpoint.
type Client struct {
	baseURL    string
	deployment string
	creds      TokenSource
	httpClient *http.Client
}

// NewClient creates a completion client. baseURL is the service root
// (without the /chat/completions suffix), deployment is the model or
// deployment identifier sent in the request body.
func NewClient(baseURL, deployment string, creds TokenSource) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		deployment: deployment,
		creds:      creds,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

type apiError struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the history to the service and returns the reply text.
// Rate-limited calls (HTTP 429) are retried with exponential backoff; every
// other failure surfaces immediately as a typed error for classification.
func (c *Client) Complete(ctx context.Context, req Request) (string, error) {
	token, err := c.creds.Token(ctx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.deployment,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := range maxRetries {
		reply, err := c.doComplete(ctx, token, body)
		if err == nil {
			return reply, nil
		}

		if !isRateLimit(err) {
			return "", err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}
	}

	return "", fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func isRateLimit(err error) bool {
	re, ok := err.(*RequestError)
	return ok && re.Status == http.StatusTooManyRequests
}

func (c *Client) doComplete(ctx context.Context, token string, body []byte) (string, error) {
	endpoint := c.baseURL + "/chat/completions"

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reqErr := &RequestError{
			Status: resp.StatusCode,
			URL:    endpoint,
			Method: http.MethodPost,
			Header: httpReq.Header.Clone(),
		}
		var ae apiError
		if json.Unmarshal(respBody, &ae) == nil && ae.Error.Message != "" {
			reqErr.Code = ae.Error.Code
			reqErr.Message = ae.Error.Message
		} else {
			reqErr.Message = strings.TrimSpace(string(respBody))
		}
		return "", reqErr
	}

	var cr chatResponse
	if err := json.Unmarshal(respBody, &cr); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if len(cr.Choices) == 0 {
		return "", fmt.Errorf("response had no choices: %w", ErrEmptyResponse)
	}
	reply := cr.Choices[0].Message.Content
	if reply == "" {
		return "", fmt.Errorf("response content was empty: %w", ErrEmptyResponse)
	}

	return reply, nil
}
