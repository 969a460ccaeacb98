package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/auth"
)

// authFailureKey は認証失敗の種別をGinコンテキストに記録するキー。
// Metricsミドルウェアが集計に使う。
const authFailureKey = "auth_failure_kind"

// Authenticate はBearerトークンを必須とするGinミドルウェアを返す。
// 成功時は解決したPrincipalをリクエストのcontext.Contextに格納する。
func Authenticate(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, err := gate.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			abortAuth(c, err)
			return
		}
		setPrincipal(c, p)
		c.Next()
	}
}

// AuthenticateOptional はトークンがあれば検証するGinミドルウェアを返す。
// 検証に失敗してもリクエストは匿名として続行する。
func AuthenticateOptional(gate *auth.Gate) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := gate.AuthenticateOptional(c.Request.Context(), c.GetHeader("Authorization")); ok {
			setPrincipal(c, p)
		}
		c.Next()
	}
}

// RequireRole は主体が指定の権限を持つことを要求するGinミドルウェアを返す。
// Authenticateより後に適用する必要がある。
func RequireRole(capability auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if err := auth.Authorize(p, ok, capability); err != nil {
			abortAuth(c, err)
			return
		}
		c.Next()
	}
}

// CurrentPrincipal はリクエストに紐づく認証済みの主体を返す。
func CurrentPrincipal(c *gin.Context) (auth.Principal, bool) {
	return auth.PrincipalFromContext(c.Request.Context())
}

func setPrincipal(c *gin.Context, p auth.Principal) {
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}

// abortAuth はGateのエラーをレスポンスに変換する。
// *auth.Error以外はユーザーストアの障害として500を返す。
func abortAuth(c *gin.Context, err error) {
	var authErr *auth.Error
	if !errors.As(err, &authErr) {
		slog.ErrorContext(c.Request.Context(), "認証処理でエラーが発生しました",
			"error", err, "path", c.Request.URL.Path)
		AbortWithError(c, http.StatusInternalServerError, KindInternalError, "内部サーバーエラーが発生しました")
		return
	}

	if authErr.Kind == auth.KindConfigurationError {
		slog.ErrorContext(c.Request.Context(), "JWT署名シークレットが設定されていません")
	}
	c.Set(authFailureKey, string(authErr.Kind))
	AbortWithError(c, authErr.Status(), string(authErr.Kind), authErr.Message)
}
