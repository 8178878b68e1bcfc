package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/pivotpie/collection-insights/internal/engine"
	"github.com/pivotpie/collection-insights/internal/ingest"
	"github.com/pivotpie/collection-insights/internal/model"
	"github.com/pivotpie/collection-insights/internal/report"
)

var analyzeFlags struct {
	csvPath   string
	xlsxPath  string
	fromStore bool
	from      string
	to        string
	refDate   string
	outMD     string
	outJSON   string
	save      bool
	quiet     bool
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run the full collection pattern analysis",
	Long:  "Loads service events, infers per-entity intervals, classifies overdue risk, aggregates groups, forecasts demand, and ranks alerts.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		var (
			events []model.CollectionEvent
			stats  ingest.Stats
			source string
			err    error
		)
		if analyzeFlags.fromStore {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck
			events, err = st.LoadEvents(ctx)
			if err != nil {
				return err
			}
			source = "store"
		} else {
			source = analyzeFlags.csvPath + analyzeFlags.xlsxPath
			events, stats, err = loadEvents(analyzeFlags.csvPath, analyzeFlags.xlsxPath)
			if err != nil {
				return err
			}
			logIngest(source, events, stats)
		}

		from, to, err := parseWindow(analyzeFlags.from, analyzeFlags.to)
		if err != nil {
			return err
		}
		events = ingest.FilterWindow(events, from, to)

		reference, err := resolveReference(events, analyzeFlags.refDate, cfg.Analysis.ReferenceDate)
		if err != nil {
			return err
		}

		result, err := engine.New(engineOptions(cfg)).Run(ctx, events, reference)
		if err != nil {
			return err
		}

		if !analyzeFlags.quiet {
			fmt.Fprint(os.Stdout, report.FormatMarkdown(result))
		}
		if analyzeFlags.outMD != "" {
			if err := report.WriteMarkdown(analyzeFlags.outMD, result); err != nil {
				return err
			}
			zap.L().Info("markdown report written", zap.String("path", analyzeFlags.outMD))
		}
		if analyzeFlags.outJSON != "" {
			if err := report.WriteJSON(analyzeFlags.outJSON, result); err != nil {
				return err
			}
			zap.L().Info("json report written", zap.String("path", analyzeFlags.outJSON))
		}

		if analyzeFlags.save {
			st, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			snap := &model.Snapshot{
				ReferenceDate: reference,
				Source:        source,
				EventsTotal:   len(events),
				EntitiesTotal: len(result.Entities),
				Result:        result,
			}
			if err := st.SaveSnapshot(ctx, snap); err != nil {
				return eris.Wrap(err, "analyze: save snapshot")
			}
			zap.L().Info("snapshot saved", zap.String("id", snap.ID))
		}

		return nil
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeFlags.csvPath, "csv", "", "path to a CSV export of collection events")
	analyzeCmd.Flags().StringVar(&analyzeFlags.xlsxPath, "xlsx", "", "path to an XLSX export of collection events")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.fromStore, "from-store", false, "analyze events previously persisted with the import command")
	analyzeCmd.Flags().StringVar(&analyzeFlags.from, "from", "", "only include events collected on or after this date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.to, "to", "", "only include events collected on or before this date (YYYY-MM-DD)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.refDate, "ref-date", "", "reference date for risk classification (YYYY-MM-DD, default day after newest event)")
	analyzeCmd.Flags().StringVar(&analyzeFlags.outMD, "out-md", "", "write the markdown report to this path")
	analyzeCmd.Flags().StringVar(&analyzeFlags.outJSON, "out-json", "", "write the full JSON result to this path")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.save, "save", false, "persist the result as a snapshot in the store")
	analyzeCmd.Flags().BoolVar(&analyzeFlags.quiet, "quiet", false, "suppress the report on stdout")
	rootCmd.AddCommand(analyzeCmd)
}
