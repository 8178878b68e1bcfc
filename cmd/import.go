package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var importFlags struct {
	csvPath  string
	xlsxPath string
}

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Persist cleaned collection events into the store",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		source := importFlags.csvPath + importFlags.xlsxPath
		events, stats, err := loadEvents(importFlags.csvPath, importFlags.xlsxPath)
		if err != nil {
			return err
		}
		logIngest(source, events, stats)

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		n, err := st.SaveEvents(ctx, source, events)
		if err != nil {
			return eris.Wrap(err, "import: save events")
		}

		zap.L().Info("events imported",
			zap.String("source", source),
			zap.Int("saved", n),
		)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importFlags.csvPath, "csv", "", "path to a CSV export of collection events")
	importCmd.Flags().StringVar(&importFlags.xlsxPath, "xlsx", "", "path to an XLSX export of collection events")
	rootCmd.AddCommand(importCmd)
}
