package commands

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"kpitrack/internal/platform/config"
	"kpitrack/internal/platform/logging"
)

var (
	// Version and Commit are set at build time via ldflags.
	Version = "dev"
	Commit  = "none"

	logLevel string
	cfg      config.Config
)

var rootCmd = &cobra.Command{
	Use:   "kpitrack",
	Short: "kpitrack resolves KPI targets and scores team performance",
	Long: `kpitrack keeps a registry of KPIs, designation and per-member targets and monthly
performance records, and turns them into achievement reports, categories,
insights and recommendations for any month window.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if err := logging.Init(cfg.LogLevel, cfg.LogDir); err != nil {
			return err
		}
		log.Debug().
			Str("version", Version).
			Str("commit", Commit).
			Str("command", cmd.Name()).
			Msg("kpitrack starting")
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd, reportCmd)
}
