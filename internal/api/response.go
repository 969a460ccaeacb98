package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/internal/project"
	"github.com/nao1215/projecthub/internal/user"
	"github.com/nao1215/projecthub/pkg/middleware"
)

// エラーレスポンスの"error"に入る種別。認証関連はauth.Kindを使う。
const (
	kindValidation         = "validation_error"
	kindInvalidID          = "invalid_id"
	kindNotFound           = "not_found"
	kindConflict           = "conflict"
	kindInvalidCredentials = "invalid_credentials"
)

// pagination は一覧レスポンスのページ情報。
type pagination struct {
	Skip    int   `json:"skip"`
	Limit   int   `json:"limit"`
	Total   int64 `json:"total"`
	HasMore bool  `json:"has_more"`
}

func newPagination(p db.Page, total int64) pagination {
	return pagination{Skip: p.Skip, Limit: p.Limit, Total: total, HasMore: p.HasMore(total)}
}

// respond は成功レスポンスを返す。dataがnilの場合は省略する。
func respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{"message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

func respondList(c *gin.Context, message string, data any, p db.Page, total int64) {
	c.JSON(http.StatusOK, gin.H{
		"message":    message,
		"data":       data,
		"pagination": newPagination(p, total),
	})
}

// respondError はサービス層のエラーをHTTPレスポンスに変換する。
// 分類できないエラーはログに残し、詳細を伏せて500を返す。
func respondError(c *gin.Context, err error) {
	status, kind, message := classify(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "リクエストの処理に失敗しました",
			"error", err,
			"path", c.Request.URL.Path,
			"request_id", middleware.RequestIDFrom(c),
		)
	}
	middleware.AbortWithError(c, status, kind, message)
}

func classify(err error) (int, string, string) {
	var authErr *auth.Error
	switch {
	case errors.As(err, &authErr):
		return authErr.Status(), string(authErr.Kind), authErr.Message

	case errors.Is(err, auth.ErrSecretNotConfigured):
		return http.StatusInternalServerError, string(auth.KindConfigurationError), "認証サービスが正しく設定されていません"

	case errors.Is(err, user.ErrNotFound),
		errors.Is(err, project.ErrNotFound),
		errors.Is(err, project.ErrOwnerNotFound):
		return http.StatusNotFound, kindNotFound, rootMessage(err)

	case errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, user.ErrUsernameTaken):
		return http.StatusConflict, kindConflict, rootMessage(err)

	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized, kindInvalidCredentials, user.ErrInvalidCredentials.Error()

	case errors.Is(err, user.ErrInvalidRefreshToken):
		return http.StatusUnauthorized, string(auth.KindInvalidToken), user.ErrInvalidRefreshToken.Error()

	case errors.Is(err, user.ErrValidation),
		errors.Is(err, user.ErrInvalidEmail),
		errors.Is(err, user.ErrWeakPassword),
		errors.Is(err, user.ErrIncorrectPassword),
		errors.Is(err, project.ErrValidation),
		errors.Is(err, project.ErrInvalidStatus),
		errors.Is(err, project.ErrInvalidDateRange):
		return http.StatusBadRequest, kindValidation, err.Error()

	default:
		return http.StatusInternalServerError, middleware.KindInternalError, "内部サーバーエラーが発生しました"
	}
}

// rootMessage はラップされたエラーのうち利用者向けの番兵エラーの文言を返す。
func rootMessage(err error) string {
	for _, sentinel := range []error{
		user.ErrNotFound, project.ErrNotFound, project.ErrOwnerNotFound,
		user.ErrEmailTaken, user.ErrUsernameTaken,
	} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

// bindJSON はリクエストボディを解析し、失敗した場合は400を返してfalseを返す。
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, kindValidation, "リクエストボディが不正です: "+err.Error())
		return false
	}
	return true
}

// bindQuery はクエリパラメータを解析し、失敗した場合は400を返してfalseを返す。
func bindQuery(c *gin.Context, dst any) bool {
	if err := c.ShouldBindQuery(dst); err != nil {
		middleware.AbortWithError(c, http.StatusBadRequest, kindValidation, "クエリパラメータが不正です: "+err.Error())
		return false
	}
	return true
}

// pathID はパスパラメータ:idを正の整数として解析する。
func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		middleware.AbortWithError(c, http.StatusBadRequest, kindInvalidID, "IDは正の整数である必要があります")
		return 0, false
	}
	return id, true
}

// principal はAuthenticate適用済みのルートで主体を取り出す。
func principal(c *gin.Context) (auth.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		middleware.AbortWithError(c, http.StatusUnauthorized, string(auth.KindUnauthenticated), "このリソースにアクセスするにはログインが必要です")
		return auth.Principal{}, false
	}
	return p, true
}
