package auth

import "context"

// Capability はロールベース認可で要求される権限の名前。
type Capability string

// CapabilitySuperuser は管理者権限。
const CapabilitySuperuser Capability = "superuser"

// Principal はリクエストに紐付く認証済みの主体。
// ゲートがリクエストごとにユーザーストアから解決し、永続化もキャッシュもしない。
type Principal struct {
	// ID はユーザーの数値ID。
	ID int64 `json:"id"`
	// Username はユーザー名。
	Username string `json:"username"`
	// Email はメールアドレス。
	Email string `json:"email"`
	// FirstName は名。
	FirstName string `json:"first_name"`
	// MiddleName はミドルネーム。未設定の場合はnil。
	MiddleName *string `json:"middle_name,omitempty"`
	// LastName は姓。
	LastName string `json:"last_name"`
	// IsSuperuser は管理者フラグ。
	IsSuperuser bool `json:"is_superuser"`
	// IsActive は有効フラグ。
	IsActive bool `json:"is_active"`
}

// Has は主体が指定された権限を持つかを返す。
func (p Principal) Has(c Capability) bool {
	switch c {
	case CapabilitySuperuser:
		return p.IsSuperuser
	default:
		return false
	}
}

// contextKey はコンテキストキーの型。
type contextKey string

// principalKey はコンテキストにPrincipalを格納するためのキー。
const principalKey contextKey = "principal"

// WithPrincipal はコンテキストにPrincipalを設定する。
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext はコンテキストからPrincipalを取得する。
// 匿名リクエストの場合はfalseを返す。
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok
}
