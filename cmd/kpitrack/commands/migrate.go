package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kpitrack/internal/platform/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		applied, err := db.Migrate(cmd.Context(), pool, cfg.MigrationsDir)
		if err != nil {
			return err
		}
		log.Info().Int("applied", applied).Str("dir", cfg.MigrationsDir).Msg("migrations complete")
		return nil
	},
}
