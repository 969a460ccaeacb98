package auth

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind は認証・認可失敗の種別を表す機械可読な識別子。
type Kind string

const (
	// KindUnauthenticated はトークン未指定、または未知のユーザーを表す。
	KindUnauthenticated Kind = "unauthenticated"
	// KindInvalidToken は署名不一致や形式不正のトークンを表す。
	KindInvalidToken Kind = "invalid_token"
	// KindTokenExpired は有効期限切れのトークンを表す。リフレッシュで回復できる。
	KindTokenExpired Kind = "token_expired"
	// KindAccountDeactivated は無効化済みアカウントを表す。
	KindAccountDeactivated Kind = "account_deactivated"
	// KindConfigurationError はサーバー側の設定不備を表す。呼び出し側の誤りではない。
	KindConfigurationError Kind = "configuration_error"
	// KindForbidden は認証済みだが必要な権限を持たないことを表す。
	KindForbidden Kind = "forbidden"
)

// Status は種別に対応するHTTPステータスコードを返す。
func (k Kind) Status() int {
	switch k {
	case KindForbidden:
		return http.StatusForbidden
	case KindConfigurationError:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}

// Error は認証・認可の失敗を表すエラー。
// Messageは呼び出し元にそのまま返してよい文言のみを持つ。
type Error struct {
	// Kind は失敗の種別。
	Kind Kind
	// Message は人間向けのメッセージ。
	Message string
	// Err は内部的な原因。レスポンスには含めない。
	Err error
}

// Error はerrorインターフェースを実装する。
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap は内部的な原因を返す。
func (e *Error) Unwrap() error {
	return e.Err
}

// Status はエラーに対応するHTTPステータスコードを返す。
func (e *Error) Status() int {
	return e.Kind.Status()
}

func newError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// KindOf はerrがAuth Gateの失敗であればその種別を返す。
func KindOf(err error) (Kind, bool) {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind, true
	}
	return "", false
}

func errNoCredential() *Error {
	return newError(KindUnauthenticated, "認証トークンが指定されていません", nil)
}

func errNotConfigured() *Error {
	return newError(KindConfigurationError, "認証サービスが正しく設定されていません", nil)
}

func errUserNotFound() *Error {
	return newError(KindUnauthenticated, "ユーザーが見つかりません", nil)
}

func errDeactivated() *Error {
	return newError(KindAccountDeactivated, "アカウントは無効化されています", nil)
}

func errNoPrincipal() *Error {
	return newError(KindUnauthenticated, "このリソースにアクセスするにはログインが必要です", nil)
}
