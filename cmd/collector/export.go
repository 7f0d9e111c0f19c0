package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/monitor"
)

func newExportCmd(a *app) *cobra.Command {
	var (
		goal int
		out  string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the WDI series of a goal's catalogue indicators as CSV",
		Long: `export downloads every catalogue WDI series of a goal for the selected countries,
keeps the configured year range and writes one CSV row per country and year.
Without --out the file is named sdg_wdi_SDG_<goal>_<from>_<to>.csv; "-" writes to stdout.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			indicators, _, err := goalIndicators(goal)
			if err != nil {
				return err
			}
			countries, err := a.countries()
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			provider, err := a.buildProvider(model.SourceWorldBank, st)
			if err != nil {
				return err
			}
			rows, err := a.monitor(provider, st).Export(cmd.Context(), monitor.ExportRequest{
				Countries:  countries,
				Indicators: indicators,
				FromYear:   a.cfg.YearFrom,
				ToYear:     a.cfg.YearTo,
			})
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No WDI data to download for this selection.")
				return nil
			}

			if out == "-" {
				return monitor.WriteCSV(cmd.OutOrStdout(), rows)
			}
			if out == "" {
				out = monitor.ExportFileName(goal, a.cfg.YearFrom, a.cfg.YearTo)
			}
			file, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", out, err)
			}
			if err := monitor.WriteCSV(file, rows); err != nil {
				file.Close()
				return fmt.Errorf("failed to write %s: %w", out, err)
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collector export complete (file=%s rows=%d)\n", out, len(rows))
			return nil
		},
	}
	cmd.Flags().IntVarP(&goal, "goal", "g", 1, "SDG number (1-17)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output CSV path, - for stdout")
	return cmd
}
