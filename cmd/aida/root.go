package main

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nao1215/aida/internal/bootstrap"
	"github.com/nao1215/aida/internal/config"
)

// envEnvironment は有効な環境名を指定する環境変数。
const envEnvironment = "APP_ENVIRONMENT"

// defaultEnvironment は環境名が指定されない場合の環境。
const defaultEnvironment = "Production"

// rootOptions はすべてのサブコマンドで共通のフラグ。
type rootOptions struct {
	// contentRoot は設定ファイルとシークレットを置くディレクトリ。
	contentRoot string
	// environment は有効な環境名。
	environment string
}

// newRootCmd はルートコマンドを生成する。
func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "aida",
		Short: "aida is the login and token issuance API of aida-core",
		Long: `aida validates the required configuration and secret files at startup,
composes database connection strings from templates and secrets, and
exchanges Google ID tokens for signed application tokens.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.contentRoot, "content-root", ".", "Directory containing AppSettings*.json and Secrets/")
	cmd.PersistentFlags().StringVar(&opts.environment, "environment", environmentFromEnv(), "Active environment name (Development, Staging, Production)")

	cmd.AddCommand(newServeCmd(opts))
	cmd.AddCommand(newValidateCmd(opts))
	return cmd
}

// environmentFromEnv は環境変数から既定の環境名を返す。
func environmentFromEnv() string {
	if env := os.Getenv(envEnvironment); env != "" {
		return env
	}
	return defaultEnvironment
}

// loadConfig は必須ファイルを検証してアプリケーション設定を読み込む。
func loadConfig(opts *rootOptions, logger zerolog.Logger) (*config.App, error) {
	return bootstrap.Load(bootstrap.Options{
		FS:          os.DirFS(opts.contentRoot),
		Environment: opts.environment,
		Logger:      logger,
	})
}
