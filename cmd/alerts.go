package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pivotpie/collection-insights/internal/engine"
	"github.com/pivotpie/collection-insights/internal/model"
)

var alertsFlags struct {
	csvPath  string
	xlsxPath string
	refDate  string
	limit    int
}

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Rank entities in the critical risk tier",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		events, stats, err := loadEvents(alertsFlags.csvPath, alertsFlags.xlsxPath)
		if err != nil {
			return err
		}
		logIngest(alertsFlags.csvPath+alertsFlags.xlsxPath, events, stats)

		reference, err := resolveReference(events, alertsFlags.refDate, cfg.Analysis.ReferenceDate)
		if err != nil {
			return err
		}

		opts := engineOptions(cfg)
		if alertsFlags.limit > 0 {
			opts.MaxCriticalAlerts = alertsFlags.limit
		}

		result, err := engine.New(opts).Run(ctx, events, reference)
		if err != nil {
			return err
		}

		formatAlerts(os.Stdout, result.CriticalAlerts, result.HighRiskAreas, result.HighRiskCategories)
		return nil
	},
}

func init() {
	alertsCmd.Flags().StringVar(&alertsFlags.csvPath, "csv", "", "path to a CSV export of collection events")
	alertsCmd.Flags().StringVar(&alertsFlags.xlsxPath, "xlsx", "", "path to an XLSX export of collection events")
	alertsCmd.Flags().StringVar(&alertsFlags.refDate, "ref-date", "", "reference date for risk classification (YYYY-MM-DD)")
	alertsCmd.Flags().IntVar(&alertsFlags.limit, "limit", 0, "max critical alerts to display (default from config)")
	rootCmd.AddCommand(alertsCmd)
}

// formatAlerts writes the critical alert table and high-risk rankings to w.
func formatAlerts(out io.Writer, alerts []model.EntityProfile, areas, categories []string) {
	if len(alerts) == 0 {
		_, _ = fmt.Fprintln(out, "No entities in the critical tier.")
	} else {
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		_, _ = fmt.Fprintln(w, "ENTITY\tOUTLET\tAREA\tCATEGORY\tOVERDUE\tLAST COLLECTED")
		_, _ = fmt.Fprintln(w, "------\t------\t----\t--------\t-------\t--------------")
		for _, a := range alerts {
			outlet := a.OutletName
			if len(outlet) > 30 {
				outlet = outlet[:27] + "..."
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%dd\t%s\n",
				a.EntityID, outlet, a.Area, a.Category,
				a.DaysOverdue, a.LastCollectionAt.Format(dateFlagLayout))
		}
		_ = w.Flush()
	}

	if len(areas) > 0 {
		_, _ = fmt.Fprintf(out, "\nHigh-risk areas: %s\n", strings.Join(areas, ", "))
	}
	if len(categories) > 0 {
		_, _ = fmt.Fprintf(out, "High-risk categories: %s\n", strings.Join(categories, ", "))
	}
}
