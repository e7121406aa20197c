package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nao1215/aida/internal/audit"
	"github.com/nao1215/aida/internal/auth"
	"github.com/nao1215/aida/internal/config"
	"github.com/nao1215/aida/internal/database"
	"github.com/nao1215/aida/internal/server"
	"github.com/nao1215/aida/pkg/logger"
)

// newServeCmd はHTTPサーバーを起動するコマンドを生成する。
func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the HTTP API.

Required configuration and secret files are validated before anything else
is loaded; if any is missing the process exits without binding a listener.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, opts, port)
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "Listen port (overrides Server:Port)")
	return cmd
}

// runServe は設定を読み込み、各コンポーネントを組み立ててサーバーを起動する。
func runServe(cmd *cobra.Command, opts *rootOptions, port int) error {
	boot := logger.Bootstrap()
	app, err := loadConfig(opts, boot)
	if err != nil {
		boot.Error().Err(err).Msg("起動に必要な設定を読み込めませんでした")
		return err
	}
	if cmd.Flags().Changed("port") {
		app.Server.Port = port
	}

	log, closer, err := logger.New(logger.Config{
		Level:      app.Logging.Level,
		Format:     app.Logging.Format,
		File:       app.Logging.File,
		MaxSizeMB:  app.Logging.MaxSizeMB,
		MaxBackups: app.Logging.MaxBackups,
		MaxAgeDays: app.Logging.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("ロガーの初期化に失敗: %w", err)
	}
	defer func() { _ = closer.Close() }()

	if !strings.EqualFold(app.Environment, "Development") {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	verifier, err := auth.NewGoogleVerifier(ctx, app.Google)
	if err != nil {
		return err
	}
	issuer, err := auth.NewTokenIssuer(app.JwtAuth, app.Roles)
	if err != nil {
		return err
	}
	login := auth.NewLoginService(verifier, issuer, app.Google.VerifyTimeout(), log.With().Str("component", "auth").Logger())

	checks, closeDBs, err := openDatabases(app.Databases, log)
	if err != nil {
		return err
	}
	defer closeDBs()

	var recorder audit.Recorder = audit.NopRecorder{}
	if app.Audit.Path != "" {
		sqlite, err := audit.OpenSQLite(ctx, app.Audit.Path, log.With().Str("component", "audit").Logger())
		if err != nil {
			return err
		}
		defer func() { _ = sqlite.Close() }()
		recorder = sqlite
		checks = append(checks, server.HealthCheck{Name: "audit", Check: sqlite.Ping})
	}

	srv := server.New(app, server.Deps{
		Login:   login,
		Signing: issuer.SigningConfig(),
		Audit:   recorder,
		Checks:  checks,
		Logger:  log.With().Str("component", "http").Logger(),
	})
	return srv.Run(ctx)
}

// openDatabases は設定されたデータベースを開き、ヘルスチェックと終了処理を返す。
// 接続は遅延して確立されるため、起動時にはデータベースへ到達できなくてもよい。
func openDatabases(dbs map[string]config.Database, log zerolog.Logger) ([]server.HealthCheck, func(), error) {
	ids := make([]string, 0, len(dbs))
	for id := range dbs {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		checks  []server.HealthCheck
		handles []*sql.DB
	)
	closeAll := func() {
		for _, h := range handles {
			_ = h.Close()
		}
	}
	for _, id := range ids {
		db, err := database.Open(dbs[id])
		if err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("%s: %w", id, err)
		}
		handles = append(handles, db)
		checks = append(checks, server.HealthCheck{
			Name: id,
			Check: func(ctx context.Context) error {
				return database.Ping(ctx, db, database.DefaultPingTimeout)
			},
		})
		log.Info().Str("database", id).Str("engine", dbs[id].Engine).Msg("データベース接続を準備しました")
	}
	return checks, closeAll, nil
}
