package bot

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kitazume/personabot/internal/completion"
)

// Kind is the failure taxonomy for completion-call errors.
type Kind int

const (
	KindAuthUnavailable Kind = iota
	KindAuthFailed
	KindAccessDenied
	KindTransportFailure
	KindEmptyResponse
	KindUnexpected
)

func (k Kind) String() string {
	switch k {
	case KindAuthUnavailable:
		return "auth_unavailable"
	case KindAuthFailed:
		return "auth_failed"
	case KindAccessDenied:
		return "access_denied"
	case KindTransportFailure:
		return "transport_failure"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "unexpected"
	}
}

// ClassifiedError is the recovery decision for one completion failure:
// what the user is told, how it is logged, and whether the delivering
// channel may usefully retry the turn.
type ClassifiedError struct {
	Kind               Kind
	UserMessage        string
	RetryableByChannel bool
	Severity           slog.Level
}

// Classify maps a completion-call failure to its recovery policy. It is
// total and deterministic.
//
// The checks run narrowest first: a missing credential can also surface
// wrapped in a generic transport error, so the credential checks must win
// over the status-code checks, which must win over the fallback.
func Classify(err error) ClassifiedError {
	var credErr *completion.CredentialUnavailableError
	if errors.As(err, &credErr) {
		return ClassifiedError{
			Kind:               KindAuthUnavailable,
			UserMessage:        "申し訳ございません。認証情報が利用できません。マネージド ID と認証情報の設定を確認してください。",
			RetryableByChannel: false,
			Severity:           slog.LevelError,
		}
	}

	var authErr *completion.AuthenticationError
	if errors.As(err, &authErr) {
		return ClassifiedError{
			Kind: KindAuthFailed,
			UserMessage: fmt.Sprintf(
				"申し訳ございません。認証に失敗しました。マネージド ID の設定を確認してください。\n\nエラー: %s",
				authErr.Message),
			RetryableByChannel: false,
			Severity:           slog.LevelError,
		}
	}

	var reqErr *completion.RequestError
	if errors.As(err, &reqErr) {
		if reqErr.Status == http.StatusUnauthorized || reqErr.Status == http.StatusForbidden {
			// The remote error code and message stay in the log only.
			return ClassifiedError{
				Kind: KindAccessDenied,
				UserMessage: fmt.Sprintf(
					"申し訳ございません。AI サービスへのアクセスが拒否されました (HTTP %d)。ロールの割り当てを確認してください。",
					reqErr.Status),
				RetryableByChannel: false,
				Severity:           slog.LevelError,
			}
		}
		return ClassifiedError{
			Kind: KindTransportFailure,
			UserMessage: fmt.Sprintf(
				"申し訳ございません。AI サービスへの接続に失敗しました (HTTP %d)。",
				reqErr.Status),
			RetryableByChannel: true,
			Severity:           slog.LevelError,
		}
	}

	if errors.Is(err, completion.ErrEmptyResponse) {
		return ClassifiedError{
			Kind:               KindEmptyResponse,
			UserMessage:        "申し訳ございません。AIからの応答を取得できませんでした。",
			RetryableByChannel: true,
			Severity:           slog.LevelError,
		}
	}

	return ClassifiedError{
		Kind: KindUnexpected,
		UserMessage: fmt.Sprintf(
			"申し訳ございません。予期しないエラーが発生しました。\n\nエラーの種類: %T\n詳細: %s",
			err, err.Error()),
		RetryableByChannel: false,
		Severity:           slog.LevelError,
	}
}
