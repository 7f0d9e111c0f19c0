package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"sdgmonitor/internal/providers/unsdg"
)

func newBrowseCmd(a *app) *cobra.Command {
	var goal, target, indicator string
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "List UN SDG goals, targets, indicators and series",
		Long: `browse walks the UN SDG catalogue one level at a time:

  collector browse                     goals
  collector browse --goal 3            targets of goal 3
  collector browse --target 3.1        indicators of target 3.1
  collector browse --indicator 3.1.1   series of indicator 3.1.1

Series codes can be passed to "collector drilldown --source unsdg --indicator".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := a.unSDG()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			var (
				entries []unsdg.Entry
				empty   string
			)
			switch {
			case strings.TrimSpace(indicator) != "":
				entries, err = provider.Series(ctx, indicator)
				empty = "This indicator currently has no published series in the UN Global Database."
			case strings.TrimSpace(target) != "":
				entries, err = provider.Indicators(ctx, target)
				empty = "No indicators returned for this target."
			case strings.TrimSpace(goal) != "":
				entries, err = provider.Targets(ctx, goal)
				empty = "No targets returned for this goal."
			default:
				entries, err = provider.Goals(ctx)
				empty = "No goals returned."
			}
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, empty)
				return nil
			}
			writeEntries(out, entries)
			return nil
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "list the targets of this goal")
	cmd.Flags().StringVar(&target, "target", "", "list the indicators of this target")
	cmd.Flags().StringVar(&indicator, "indicator", "", "list the series of this indicator")
	return cmd
}

func writeEntries(out io.Writer, entries []unsdg.Entry) {
	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, entry := range entries {
		text := entry.Title
		if text == "" {
			text = entry.Description
		}
		fmt.Fprintf(w, "%s\t%s\n", entry.Code, text)
	}
	w.Flush()
}
