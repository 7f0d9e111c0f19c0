package main

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdgmonitor/internal/model"
	"sdgmonitor/internal/monitor"
)

func newDrilldownCmd(a *app) *cobra.Command {
	var (
		goal      int
		indicator string
		search    string
		smooth    bool
	)
	cmd := &cobra.Command{
		Use:   "drilldown",
		Short: "Show one indicator year by year for the focal country and its peers",
		Long: `drilldown prints a single series. With the worldbank source the indicator is a WDI
code, picked from the goal's catalogue rows when --indicator is omitted. With the
unsdg source it is a UN series code such as SH_STA_MORT.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			code, label, err := resolveIndicator(a.cfg.Source, goal, indicator, search)
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

			provider, err := a.buildProvider(a.cfg.Source, st)
			if err != nil {
				return err
			}
			drill, err := a.monitor(provider, st).Drilldown(cmd.Context(), monitor.DrilldownRequest{
				Indicator: code,
				Focal:     a.cfg.Focal,
				Countries: countries,
				FromYear:  a.cfg.YearFrom,
				ToYear:    a.cfg.YearTo,
				Smooth:    smooth,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s [%s] %d-%d\n\n", label, code, a.cfg.YearFrom, a.cfg.YearTo)
			if len(drill.Observations) == 0 {
				fmt.Fprintln(out, "No data available for this selection.")
				return nil
			}
			writeDrilldown(out, drill)
			writeKPIs(out, a.cfg.Focal, drill)
			return nil
		},
	}
	cmd.Flags().IntVarP(&goal, "goal", "g", 1, "SDG number used to pick a catalogue indicator")
	cmd.Flags().StringVarP(&indicator, "indicator", "i", "", "indicator or UN series code")
	cmd.Flags().StringVar(&search, "search", "", "pick the first catalogue indicator whose name contains this text")
	cmd.Flags().BoolVar(&smooth, "smooth", false, "add a 3-year trailing mean column")
	return cmd
}

func resolveIndicator(source model.Source, goal int, code, search string) (string, string, error) {
	if code != "" {
		if indicator, ok := monitor.FindIndicator(monitor.DefaultCatalogue(), code); ok {
			return indicator.Code, indicator.Label, nil
		}
		return code, code, nil
	}
	if source != model.SourceWorldBank {
		return "", "", errors.New("--indicator is required for the unsdg source (see `collector browse`)")
	}

	indicators, _, err := goalIndicators(goal)
	if err != nil {
		return "", "", err
	}
	indicators = monitor.FilterIndicators(indicators, search)
	for _, indicator := range indicators {
		if indicator.Code != "" {
			return indicator.Code, indicator.Label, nil
		}
	}
	return "", "", fmt.Errorf("no catalogue indicator for goal %d matches %q", goal, search)
}

func writeDrilldown(out io.Writer, drill monitor.Drilldown) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	if drill.Smoothed != nil {
		fmt.Fprintln(w, "COUNTRY\tYEAR\tVALUE\t3-YR MEAN")
		for _, observation := range drill.Smoothed {
			raw := rawValue(drill.Observations, observation)
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", observation.Country, observation.Year, monitor.Format(raw), monitor.Format(&observation.Value))
		}
	} else {
		fmt.Fprintln(w, "COUNTRY\tYEAR\tVALUE")
		sorted := slices.Clone(drill.Observations)
		slices.SortStableFunc(sorted, func(x, y model.Observation) int {
			if c := strings.Compare(x.CountryISO3, y.CountryISO3); c != 0 {
				return c
			}
			return x.Year - y.Year
		})
		for _, observation := range sorted {
			fmt.Fprintf(w, "%s\t%d\t%s\n", observation.Country, observation.Year, monitor.Format(&observation.Value))
		}
	}
	w.Flush()
	fmt.Fprintln(out)
}

func rawValue(observations []model.Observation, smoothed model.Observation) *float64 {
	for _, observation := range observations {
		if observation.CountryISO3 == smoothed.CountryISO3 && observation.Year == smoothed.Year {
			value := observation.Value
			return &value
		}
	}
	return nil
}

func writeKPIs(out io.Writer, focal string, drill monitor.Drilldown) {
	latestYear := "—"
	var latest, baseline *float64
	if drill.Latest != nil {
		latest = &drill.Latest.Value
		latestYear = fmt.Sprint(drill.Latest.Year)
	}
	if drill.Baseline != nil {
		baseline = &drill.Baseline.Value
	}
	label := model.CountryLabel(focal, focal)
	fmt.Fprintf(out, "%s latest:     %s (year %s)\n", label, monitor.Format(latest), latestYear)
	fmt.Fprintf(out, "Baseline:          %s (year %d)\n", monitor.Format(baseline), model.BaselineYear)
	fmt.Fprintf(out, "Δ since baseline:  %s\n", monitor.Format(drill.Delta))
}
