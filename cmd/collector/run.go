package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdgmonitor/internal/logging"
	"sdgmonitor/internal/model"
	"sdgmonitor/internal/monitor"
	"sdgmonitor/internal/progress"
)

func newRunCmd(a *app) *cobra.Command {
	var (
		goal    int
		verbose bool
	)
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate every catalogue indicator of a goal against its 2030 target",
		RunE: func(cmd *cobra.Command, args []string) error {
			indicators, goalName, err := goalIndicators(goal)
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

			if a.cfg.Source != model.SourceWorldBank {
				logging.Log.WithField("source", a.cfg.Source).Warn("overview uses the WDI catalogue; source ignored")
				fmt.Fprintf(cmd.ErrOrStderr(), "note: run always reads World Bank WDI; --source %s applies to drilldown\n", a.cfg.Source)
			}
			provider, err := a.buildProvider(model.SourceWorldBank, st)
			if err != nil {
				return err
			}
			overview, err := a.monitor(provider, st).Overview(cmd.Context(), monitor.Request{
				Goal:       goal,
				Focal:      a.cfg.Focal,
				Countries:  countries,
				Indicators: indicators,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "SDG %d · %s (%s vs %s)\n\n", goal, goalName, a.cfg.Focal, strings.Join(countries[1:], ", "))
			if len(overview.Rows) == 0 {
				fmt.Fprintln(out, "No World Bank/WDI series found for this goal in the current catalogue.")
			} else {
				writeOverview(out, overview.Rows)
			}
			if verbose {
				for _, snapshot := range overview.Snapshots {
					writeSnapshot(out, snapshot)
				}
			}
			for _, indicator := range overview.Missing {
				fmt.Fprintf(out, "skip no-data indicator=%s\n", indicator.Code)
			}

			fmt.Fprintf(out, "collector run complete (run=%s indicators=%d rows=%d missing=%d)\n",
				overview.Run.ID, len(indicators), len(overview.Rows), len(overview.Missing),
			)
			return nil
		},
	}
	cmd.Flags().IntVarP(&goal, "goal", "g", 1, "SDG number (1-17)")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print the peer snapshot of every indicator")
	return cmd
}

func writeOverview(out io.Writer, rows []monitor.Row) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(w, "INDICATOR\tCODE\tBASELINE %d\tLATEST\tΔ SINCE BASELINE\t2030 CHECK\tPROGRESS\n", model.BaselineYear)
	for _, row := range rows {
		var baseline, latest *float64
		latestYear := ""
		if row.Baseline != nil {
			baseline = &row.Baseline.Value
		}
		if row.Latest != nil {
			latest = &row.Latest.Value
			latestYear = fmt.Sprintf(" (%d)", row.Latest.Year)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s%s\t%s\t%s\t%s\n",
			row.Indicator.Label,
			row.Indicator.Code,
			monitor.Format(baseline),
			monitor.Format(latest), latestYear,
			monitor.Format(row.Delta),
			row.Result.Status.Label(),
			progressBar(row.Result),
		)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func writeSnapshot(out io.Writer, snapshot monitor.PeerSnapshot) {
	fmt.Fprintf(out, "%s [%s]\n", snapshot.Indicator.Label, snapshot.Indicator.Code)
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for i, value := range snapshot.Values {
		fmt.Fprintf(w, "  %d.\t%s\t%s\t(%d)\n", i+1, value.Country, monitor.Format(&value.Value), value.Year)
	}
	w.Flush()
	fmt.Fprintln(out)
}

func progressBar(result progress.Result) string {
	ratio, ok := result.ClampedRatio()
	if !ok {
		return ""
	}
	const width = 10
	filled := int(ratio*width + 0.5)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + fmt.Sprintf("] %3.0f%%", ratio*100)
}
