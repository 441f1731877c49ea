package completion

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrEmptyResponse is returned when the service answered structurally but
// produced no choices or an empty message content.
var ErrEmptyResponse = errors.New("completion service returned no content")

// CredentialUnavailableError means the client has no way to obtain a
// credential at all (no API key configured, no token endpoint). This is
// distinct from AuthenticationError: the fix is provisioning, not permissions.
type CredentialUnavailableError struct {
	Reason string
}

func (e *CredentialUnavailableError) Error() string {
	return fmt.Sprintf("completion credential unavailable: %s", e.Reason)
}

// AuthenticationError means a credential exists but the token request was
// rejected by the identity provider.
type AuthenticationError struct {
	Status  int
	Message string
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("completion authentication failed (HTTP %d): %s", e.Status, e.Message)
}

// RequestError is a non-2xx response from the chat endpoint. It carries
// enough request detail for diagnostics; Header holds the request headers as
// sent and must be redacted before logging.
type RequestError struct {
	Status  int
	Code    string
	Message string
	URL     string
	Method  string
	Header  http.Header
}

func (e *RequestError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("completion request failed (HTTP %d, code %s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("completion request failed (HTTP %d): %s", e.Status, e.Message)
}
