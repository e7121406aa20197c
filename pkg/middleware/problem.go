package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// problemContentType はRFC 9457のproblem detailsのContent-Type。
const problemContentType = "application/problem+json"

// Problem はクライアントへ返すエラーレスポンス。
// 内部エラーの詳細や認証情報は含めない。
type Problem struct {
	// Type は問題の種類を表すURI。
	Type string `json:"type"`
	// Title はステータスコードに対応する短い説明。
	Title string `json:"title"`
	// Status はHTTPステータスコード。
	Status int `json:"status"`
	// Detail はクライアント向けの説明。
	Detail string `json:"detail,omitempty"`
	// RequestID はリクエストID。ログとの突き合わせに使用する。
	RequestID string `json:"requestId,omitempty"`
}

// NewProblem はステータスコードと説明からProblemを生成する。
func NewProblem(status int, detail string) Problem {
	return Problem{
		Type:   "about:blank",
		Title:  http.StatusText(status),
		Status: status,
		Detail: detail,
	}
}

// AbortWithProblem はproblem detailsを書き込み、以降のハンドラの実行を中止する。
func AbortWithProblem(c *gin.Context, status int, detail string) {
	p := NewProblem(status, detail)
	p.RequestID = GetRequestID(c)
	c.Header("Content-Type", problemContentType)
	c.AbortWithStatusJSON(status, p)
}
