package commands

import (
	"github.com/spf13/cobra"

	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/platform/db"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the KPIs, designation targets and members of a seed file",
	Long:  "Seeding only creates rows that are missing; existing KPIs, targets and members are left as they are.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		if seedFile == "" {
			seedFile = cfg.SeedFile
		}
		seed, err := db.LoadSeedFile(seedFile)
		if err != nil {
			return err
		}

		pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		return db.Seed(cmd.Context(), kpi.NewService(kpi.NewStore(pool), nil), seed)
	},
}

func init() {
	seedCmd.Flags().StringVar(&seedFile, "file", "", "seed file (defaults to SEED_FILE)")
}
