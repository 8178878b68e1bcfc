package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pivotpie/collection-insights/internal/engine"
	"github.com/pivotpie/collection-insights/internal/model"
)

var forecastFlags struct {
	csvPath   string
	xlsxPath  string
	refDate   string
	horizon   int
	tolerance int
}

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Project expected collection demand per day",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		events, stats, err := loadEvents(forecastFlags.csvPath, forecastFlags.xlsxPath)
		if err != nil {
			return err
		}
		logIngest(forecastFlags.csvPath+forecastFlags.xlsxPath, events, stats)

		reference, err := resolveReference(events, forecastFlags.refDate, cfg.Analysis.ReferenceDate)
		if err != nil {
			return err
		}

		opts := engineOptions(cfg)
		if forecastFlags.horizon > 0 {
			opts.HorizonDays = forecastFlags.horizon
		}
		if cmd.Flags().Changed("tolerance") {
			opts.ToleranceDays = forecastFlags.tolerance
		}

		result, err := engine.New(opts).Run(ctx, events, reference)
		if err != nil {
			return err
		}

		formatForecast(os.Stdout, result.Forecast, result.PeakDemandDays)
		return nil
	},
}

func init() {
	forecastCmd.Flags().StringVar(&forecastFlags.csvPath, "csv", "", "path to a CSV export of collection events")
	forecastCmd.Flags().StringVar(&forecastFlags.xlsxPath, "xlsx", "", "path to an XLSX export of collection events")
	forecastCmd.Flags().StringVar(&forecastFlags.refDate, "ref-date", "", "forecast start date (YYYY-MM-DD, default day after newest event)")
	forecastCmd.Flags().IntVar(&forecastFlags.horizon, "horizon", 0, "forecast horizon in days (default from config)")
	forecastCmd.Flags().IntVar(&forecastFlags.tolerance, "tolerance", 0, "matching tolerance in days (default from config)")
	rootCmd.AddCommand(forecastCmd)
}

// formatForecast writes the per-day demand table and the peak days to w.
func formatForecast(out io.Writer, days, peaks []model.ForecastDay) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "DATE\tEXPECTED")
	_, _ = fmt.Fprintln(w, "----\t--------")
	for _, d := range days {
		_, _ = fmt.Fprintf(w, "%s\t%d\n", d.Date.Format(dateFlagLayout), d.ExpectedCollections)
	}
	_ = w.Flush()

	if len(peaks) == 0 {
		return
	}
	_, _ = fmt.Fprintln(out, "\nPeak demand days:")
	for _, d := range peaks {
		_, _ = fmt.Fprintf(out, "  %s  %d expected\n", d.Date.Format(dateFlagLayout), d.ExpectedCollections)
	}
}
