package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrPrincipalNotFound はユーザーストアに該当するユーザーが存在しないことを表す。
var ErrPrincipalNotFound = errors.New("ユーザーが見つかりません")

// PrincipalFinder はIDからPrincipalを解決するユーザーストア。
// 該当なしの場合はErrPrincipalNotFoundをラップしたエラーを返すこと。
type PrincipalFinder interface {
	FindPrincipalByID(ctx context.Context, id int64) (Principal, error)
}

// Gate はBearerトークンを検証し、リクエストの主体を解決する。
// 構築後は不変であり、複数のリクエストから並行に呼び出してよい。
type Gate struct {
	secret string
	codec  *Codec
	users  PrincipalFinder
}

// NewGate は新しいGateを生成する。
// secretはアクセストークンの署名用シークレットで、空の場合は全ての認証が
// KindConfigurationErrorで失敗する。
func NewGate(secret string, codec *Codec, users PrincipalFinder) *Gate {
	return &Gate{secret: secret, codec: codec, users: users}
}

// Authenticate はAuthorizationヘッダーの値からPrincipalを解決する。
// 失敗時は*Errorを返す。ユーザーストアの障害は*Errorではなくそのまま返す。
func (g *Gate) Authenticate(ctx context.Context, authorization string) (Principal, error) {
	token, ok := BearerToken(authorization)
	if !ok {
		return Principal{}, errNoCredential()
	}

	if g.secret == "" {
		return Principal{}, errNotConfigured()
	}

	claims, err := g.codec.Verify(token, g.secret, TokenTypeAccess)
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			return Principal{}, newError(KindTokenExpired, "認証トークンの有効期限が切れています。再度ログインしてください", err)
		}
		return Principal{}, newError(KindInvalidToken, "認証トークンが無効です", err)
	}

	// クレームは信用せず、現在のユーザー状態を毎回取得する
	p, err := g.users.FindPrincipalByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, ErrPrincipalNotFound) {
			return Principal{}, errUserNotFound()
		}
		return Principal{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}

	if !p.IsActive {
		return Principal{}, errDeactivated()
	}
	return p, nil
}

// AuthenticateOptional はAuthenticateと同じ検証を行い、失敗した場合は
// エラーを返さずに匿名として扱う。
func (g *Gate) AuthenticateOptional(ctx context.Context, authorization string) (Principal, bool) {
	p, err := g.Authenticate(ctx, authorization)
	if err != nil {
		return Principal{}, false
	}
	return p, true
}

// Authorize は解決済みの主体が権限を持つかを判定する。
// okがfalse（Authenticateが実行されていない）場合はKindUnauthenticatedで失敗する。
func Authorize(p Principal, ok bool, c Capability) error {
	if !ok {
		return errNoPrincipal()
	}
	if !p.Has(c) {
		return newError(KindForbidden, fmt.Sprintf("このリソースには%s権限が必要です", c), nil)
	}
	return nil
}

// BearerToken は"Bearer <token>"形式の値からトークンを取り出す。
// スキーム名の大文字小文字は区別しない。
func BearerToken(authorization string) (string, bool) {
	scheme, token, found := strings.Cut(strings.TrimSpace(authorization), " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", false
	}
	return token, true
}
