package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nao1215/aida/internal/audit"
	"github.com/nao1215/aida/internal/auth"
	"github.com/nao1215/aida/pkg/middleware"
)

// レスポンスメッセージ。
const (
	msgLoginSuccessful   = "Login Successful"
	msgTokenMissing      = "Google ID Token is missing!"
	msgInvalidToken      = "Authentication Failed: Invalid Google Token"
	msgVerifyAborted     = "Google ID Token verification did not complete"
	msgVerifyUnavailable = "Google ID Token verification is temporarily unavailable"
	msgBodyTooLarge      = "Request body is too large"
	msgUnexpectedFailure = "An unexpected error occurred"
)

// 監査記録の拒否理由。
const (
	reasonRequestValidation = "request_validation"
	reasonInvalidToken      = "invalid_token"
	reasonAborted           = "verification_aborted"
	reasonUnavailable       = "verifier_unavailable"
	reasonInternal          = "internal_error"
)

// googleLoginRequest はGoogleログインのリクエストボディ。
type googleLoginRequest struct {
	// IDToken はGoogleが発行したIDトークン。
	IDToken string `json:"id_token" binding:"required"`
}

// loginResponse はログインのレスポンスボディ。
type loginResponse struct {
	// AccessToken はアプリケーショントークン。
	AccessToken string `json:"accessToken,omitempty"`
	// Message は結果のメッセージ。
	Message string `json:"message"`
}

// meResponse は認証済みユーザーの情報。
type meResponse struct {
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// handleGoogleLogin はGoogle IDトークンを検証し、アプリケーショントークンを発行するハンドラを返す。
func (s *Server) handleGoogleLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req googleLoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				middleware.AbortWithProblem(c, http.StatusRequestEntityTooLarge, msgBodyTooLarge)
				return
			}
			s.record(c, auth.LoginResult{State: auth.StateRejected}, auth.ErrRequestValidation)
			middleware.AbortWithProblem(c, http.StatusBadRequest, msgTokenMissing)
			return
		}

		result, err := s.login.Login(c.Request.Context(), req.IDToken)
		s.record(c, result, err)
		if err != nil {
			status, detail := loginErrorStatus(err)
			middleware.AbortWithProblem(c, status, detail)
			return
		}

		c.JSON(http.StatusOK, loginResponse{
			AccessToken: result.Token.Value,
			Message:     msgLoginSuccessful,
		})
	}
}

// loginErrorStatus はログインのエラーをHTTPステータスと説明に変換する。
func loginErrorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrRequestValidation):
		return http.StatusBadRequest, msgTokenMissing
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized, msgInvalidToken
	case errors.Is(err, auth.ErrVerificationAborted):
		return http.StatusGatewayTimeout, msgVerifyAborted
	case errors.Is(err, auth.ErrVerifierUnavailable):
		return http.StatusServiceUnavailable, msgVerifyUnavailable
	default:
		return http.StatusInternalServerError, msgUnexpectedFailure
	}
}

// rejectReason はエラーを監査記録の拒否理由に分類する。
func rejectReason(err error) string {
	switch {
	case errors.Is(err, auth.ErrRequestValidation):
		return reasonRequestValidation
	case errors.Is(err, auth.ErrInvalidToken):
		return reasonInvalidToken
	case errors.Is(err, auth.ErrVerificationAborted):
		return reasonAborted
	case errors.Is(err, auth.ErrVerifierUnavailable):
		return reasonUnavailable
	default:
		return reasonInternal
	}
}

// record はログイン試行を監査記録に保存する。保存に失敗してもレスポンスは変えない。
func (s *Server) record(c *gin.Context, result auth.LoginResult, err error) {
	entry := audit.Entry{
		RequestID: middleware.GetRequestID(c),
		Outcome:   audit.OutcomeIssued,
	}
	if err != nil {
		entry.Outcome = audit.OutcomeRejected
		entry.Reason = rejectReason(err)
	} else {
		entry.Email = result.Claims.Email
		entry.Role = result.Token.Role.String()
	}

	// クライアントが切断しても記録は残す
	ctx := context.WithoutCancel(c.Request.Context())
	if recErr := s.audit.Record(ctx, entry); recErr != nil {
		s.logger.Error().Err(recErr).Str("request_id", entry.RequestID).Msg("ログイン記録の保存に失敗しました")
	}
}

// handleMe は認証済みユーザーの情報を返すハンドラを返す。
func (s *Server) handleMe() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, meResponse{
			Email: middleware.GetEmail(c),
			Name:  middleware.GetName(c),
			Role:  middleware.GetRole(c),
		})
	}
}

// handleHealth は依存先の到達性を確認するハンドラを返す。
func (s *Server) handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		failed := make(map[string]string)
		for _, check := range s.checks {
			ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
			err := check.Check(ctx)
			cancel()
			if err != nil {
				s.logger.Warn().Err(err).Str("check", check.Name).Msg("ヘルスチェックに失敗しました")
				failed[check.Name] = "unavailable"
			}
		}

		if len(failed) > 0 {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "service": "aida-core", "checks": failed})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "aida-core"})
	}
}
