package middleware

import (
	"github.com/gin-gonic/gin"
)

// KindInternalError は分類できないサーバー側の失敗を表すエラー種別。
const KindInternalError = "internal_error"

// AbortWithError は共通のエラーボディでリクエストを中断する。
func AbortWithError(c *gin.Context, status int, kind, message string) {
	c.AbortWithStatusJSON(status, gin.H{
		"error":   kind,
		"message": message,
	})
}
