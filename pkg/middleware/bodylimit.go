package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BodyLimit はリクエストボディの大きさを制限するGinミドルウェアを返す。
// Content-Lengthが上限を超える場合は413を返し、それ以外は読み込み時に上限を適用する。
// limitが0以下の場合は制限しない。
func BodyLimit(limit int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limit <= 0 {
			c.Next()
			return
		}
		if c.Request.ContentLength > limit {
			AbortWithProblem(c, http.StatusRequestEntityTooLarge, "Request body is too large")
			return
		}
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		c.Next()
	}
}
