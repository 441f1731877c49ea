package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/kitazume/personabot/internal/completion"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name          string
		err           error
		wantKind      Kind
		wantRetryable bool
		wantInMessage string
		notInMessage  string
	}{
		{
			name:          "credential unavailable",
			err:           &completion.CredentialUnavailableError{Reason: "no API key configured"},
			wantKind:      KindAuthUnavailable,
			wantInMessage: "認証情報が利用できません",
		},
		{
			name:          "authentication failed",
			err:           &completion.AuthenticationError{Status: 400, Message: "invalid_client"},
			wantKind:      KindAuthFailed,
			wantInMessage: "invalid_client",
		},
		{
			name: "access denied 401",
			err: &completion.RequestError{
				Status: http.StatusUnauthorized, Code: "invalid_api_key", Message: "bad key",
			},
			wantKind:      KindAccessDenied,
			wantInMessage: "HTTP 401",
			notInMessage:  "bad key",
		},
		{
			name: "access denied 403",
			err: &completion.RequestError{
				Status: http.StatusForbidden, Code: "insufficient_quota", Message: "no role assignment",
			},
			wantKind:      KindAccessDenied,
			wantInMessage: "HTTP 403",
			notInMessage:  "no role assignment",
		},
		{
			name:          "transport failure 503",
			err:           &completion.RequestError{Status: http.StatusServiceUnavailable},
			wantKind:      KindTransportFailure,
			wantRetryable: true,
			wantInMessage: "HTTP 503",
		},
		{
			name:          "empty response",
			err:           fmt.Errorf("response had no choices: %w", completion.ErrEmptyResponse),
			wantKind:      KindEmptyResponse,
			wantRetryable: true,
			wantInMessage: "応答を取得できませんでした",
		},
		{
			name:          "unexpected",
			err:           errors.New("boom"),
			wantKind:      KindUnexpected,
			wantInMessage: "boom",
		},
		{
			name: "wrapped credential error wins over wrapping text",
			err: fmt.Errorf("completing chat: %w",
				&completion.CredentialUnavailableError{Reason: "token endpoint not configured"}),
			wantKind:      KindAuthUnavailable,
			wantInMessage: "認証情報",
		},
		{
			name: "joined errors classify by the first recognized member",
			err: errors.Join(
				&completion.AuthenticationError{Status: 401, Message: "AADSTS700016: app not found"},
				errors.New("disposing pipeline"),
			),
			wantKind:      KindAuthFailed,
			wantInMessage: "AADSTS700016",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := Classify(tt.err)
			if ce.Kind != tt.wantKind {
				t.Errorf("Kind = %s, want %s", ce.Kind, tt.wantKind)
			}
			if ce.RetryableByChannel != tt.wantRetryable {
				t.Errorf("RetryableByChannel = %v, want %v", ce.RetryableByChannel, tt.wantRetryable)
			}
			if ce.Severity != slog.LevelError {
				t.Errorf("Severity = %v, want error", ce.Severity)
			}
			if ce.UserMessage == "" {
				t.Error("UserMessage is empty")
			}
			if !strings.Contains(ce.UserMessage, tt.wantInMessage) {
				t.Errorf("UserMessage %q missing %q", ce.UserMessage, tt.wantInMessage)
			}
			if tt.notInMessage != "" && strings.Contains(ce.UserMessage, tt.notInMessage) {
				t.Errorf("UserMessage %q leaks remote detail %q", ce.UserMessage, tt.notInMessage)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	err := &completion.RequestError{Status: http.StatusBadGateway}
	first := Classify(err)
	second := Classify(err)
	if first != second {
		t.Errorf("Classify is not deterministic: %+v vs %+v", first, second)
	}
}

func TestKindString(t *testing.T) {
	names := map[Kind]string{
		KindAuthUnavailable:  "auth_unavailable",
		KindAuthFailed:       "auth_failed",
		KindAccessDenied:     "access_denied",
		KindTransportFailure: "transport_failure",
		KindEmptyResponse:    "empty_response",
		KindUnexpected:       "unexpected",
	}
	for k, want := range names {
		if got := k.String(); got != want {
			t.Errorf("Kind(%d).String() = %q, want %q", k, got, want)
		}
	}
}
