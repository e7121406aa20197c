package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TestRequestLogger はRequestLoggerミドルウェアを検証する。
func TestRequestLogger(t *testing.T) {
	t.Parallel()

	t.Run("1リクエストにつき1行のログが出力されること", func(t *testing.T) {
		t.Parallel()

		var logs bytes.Buffer
		router := gin.New()
		router.Use(RequestID(), RequestLogger(zerolog.New(&logs)))
		router.POST("/login", func(c *gin.Context) {
			c.Status(http.StatusUnauthorized)
		})

		req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"id_token":"secret-token"}`))
		req.Header.Set("Authorization", "Bearer secret-bearer")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
		if len(lines) != 1 {
			t.Fatalf("出力行数 = %d, want 1: %q", len(lines), logs.String())
		}
		var event map[string]any
		if err := json.Unmarshal([]byte(lines[0]), &event); err != nil {
			t.Fatalf("JSONのパースに失敗: %v", err)
		}
		if event["level"] != "warn" {
			t.Errorf("level = %v, want %q", event["level"], "warn")
		}
		if event["status"] != float64(http.StatusUnauthorized) {
			t.Errorf("status = %v, want %d", event["status"], http.StatusUnauthorized)
		}
		if event["path"] != "/login" {
			t.Errorf("path = %v, want %q", event["path"], "/login")
		}
		if event["request_id"] == "" || event["request_id"] == nil {
			t.Error("request_idが出力されていない")
		}
		for _, secret := range []string{"secret-token", "secret-bearer"} {
			if strings.Contains(logs.String(), secret) {
				t.Errorf("ログに認証情報 %q が含まれている", secret)
			}
		}
	})
}
