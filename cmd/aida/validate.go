package main

import (
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/nao1215/aida/internal/database"
	"github.com/nao1215/aida/pkg/logger"
)

// newValidateCmd は設定を検証するコマンドを生成する。
// HTTPサーバーは起動せず、データベースにも接続しない。
func newValidateCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate required files and configuration without starting the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := loadConfig(opts, logger.Bootstrap().Level(zerolog.WarnLevel))
			if err != nil {
				return err
			}

			ids := make([]string, 0, len(app.Databases))
			for id := range app.Databases {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				target, err := database.ParseTarget(app.Databases[id])
				if err != nil {
					return fmt.Errorf("%s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "database %s -> %s\n", id, target)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "configuration OK (%s)\n", app.Environment)
			return nil
		},
	}
}
