package commands

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"kpitrack/internal/domain/kpi"
	"kpitrack/internal/platform/db"
)

var (
	reportMember string
	reportFrom   string
	reportTo     string
	reportTeam   bool
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Print a member or team report for a month window as JSON",
	Example: `  kpitrack report --member 6f1c... --from 2024-01 --to 2024-12
  kpitrack report --team --from 2024-01 --to 2024-06`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if reportMember == "" && !reportTeam {
			return errors.New("either --member or --team is required")
		}
		window, err := parseWindow(reportFrom, reportTo)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		pool, err := db.Connect(cmd.Context(), cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer pool.Close()

		svc := kpi.NewService(kpi.NewStore(pool), nil)
		svc.Concurrency = cfg.ReportConcurrency

		var out any
		if reportTeam {
			out, err = svc.TeamReport(cmd.Context(), window)
		} else {
			out, err = svc.MemberReport(cmd.Context(), reportMember, window)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func parseWindow(from, to string) (kpi.PeriodWindow, error) {
	startYear, startMonth, err := kpi.ParseYearMonth(from)
	if err != nil {
		return kpi.PeriodWindow{}, fmt.Errorf("--from: %w", err)
	}
	endYear, endMonth, err := kpi.ParseYearMonth(to)
	if err != nil {
		return kpi.PeriodWindow{}, fmt.Errorf("--to: %w", err)
	}
	window := kpi.NewWindow(startYear, startMonth, endYear, endMonth)
	return window, window.Validate()
}

func init() {
	reportCmd.Flags().StringVar(&reportMember, "member", "", "member id")
	reportCmd.Flags().BoolVar(&reportTeam, "team", false, "report every active member")
	reportCmd.Flags().StringVar(&reportFrom, "from", "", "first month of the window (YYYY-MM)")
	reportCmd.Flags().StringVar(&reportTo, "to", "", "last month of the window (YYYY-MM)")
	_ = reportCmd.MarkFlagRequired("from")
	_ = reportCmd.MarkFlagRequired("to")
}
