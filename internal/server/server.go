// Package server はログインAPIのHTTPサーバーを提供する。
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/nao1215/aida/internal/audit"
	"github.com/nao1215/aida/internal/auth"
	"github.com/nao1215/aida/internal/config"
	"github.com/nao1215/aida/pkg/middleware"
)

// HealthCheck はヘルスチェックで確認する依存先。
type HealthCheck struct {
	// Name は依存先の名前。
	Name string
	// Check は依存先へ到達できることを確認する。
	Check func(ctx context.Context) error
}

// Deps はサーバーが使用するコンポーネント。
type Deps struct {
	// Login はログイン処理。
	Login *auth.LoginService
	// Signing は発行したトークンの検証に使用する署名設定。
	Signing middleware.JWTConfig
	// Audit はログイン試行の記録先。nilなら記録しない。
	Audit audit.Recorder
	// Checks はヘルスチェックで確認する依存先。
	Checks []HealthCheck
	// Logger はログ出力先。
	Logger zerolog.Logger
}

// Server はログインAPIのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はリッスンアドレス。
	addr string
	// shutdownTimeout はグレースフルシャットダウンの待ち時間。
	shutdownTimeout time.Duration
	// login はログイン処理。
	login *auth.LoginService
	// signing はトークン検証の署名設定。
	signing middleware.JWTConfig
	// audit はログイン試行の記録先。
	audit audit.Recorder
	// checks はヘルスチェックの対象。
	checks []HealthCheck
	// logger はログ出力先。
	logger zerolog.Logger
}

// healthCheckTimeout はヘルスチェック1回あたりの上限時間。
const healthCheckTimeout = 2 * time.Second

// New はアプリケーション設定とコンポーネントからサーバーを生成する。
func New(app *config.App, deps Deps) *Server {
	recorder := deps.Audit
	if recorder == nil {
		recorder = audit.NopRecorder{}
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.Recovery(deps.Logger))
	router.Use(middleware.RequestLogger(deps.Logger))
	router.Use(middleware.CORS(app.AllowedOrigins))
	router.Use(middleware.BodyLimit(app.MaxRequestBodySize))

	s := &Server{
		router:          router,
		addr:            app.Server.Addr(),
		shutdownTimeout: app.Server.ShutdownTimeout(),
		login:           deps.Login,
		signing:         deps.Signing,
		audit:           recorder,
		checks:          deps.Checks,
		logger:          deps.Logger,
	}
	s.setupRoutes(app.Server.RoutePrefix)
	return s
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run はHTTPサーバーを起動し、ctxが終了するとグレースフルシャットダウンする。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.addr).Msg("HTTPサーバーを起動します")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Dur("timeout", s.shutdownTimeout).Msg("HTTPサーバーを停止します")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
	}
	return nil
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes(prefix string) {
	api := s.router.Group(prefix)

	authGroup := api.Group("/auth")
	{
		// 認証不要
		authGroup.POST("/google-login", s.handleGoogleLogin())
		// 発行したトークンで認証
		authGroup.GET("/me", middleware.JWTAuth(s.signing), s.handleMe())
	}

	s.router.GET("/health", s.handleHealth())
}
