package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newDefinitionsCmd(a *app) *cobra.Command {
	var goal int
	cmd := &cobra.Command{
		Use:   "definitions",
		Short: "Print WDI definitions for the catalogue indicators of a goal",
		RunE: func(cmd *cobra.Command, args []string) error {
			indicators, goalName, err := goalIndicators(goal)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(indicators) == 0 {
				fmt.Fprintf(out, "No indicators mapped for SDG %d · %s in the WDI catalogue yet.\n", goal, goalName)
				return nil
			}

			provider, err := a.worldBank()
			if err != nil {
				return err
			}
			definitions, err := a.monitor(provider, nil).Definitions(cmd.Context(), provider, indicators)
			if err != nil {
				return err
			}

			fmt.Fprintf(out, "SDG %d · %s\n\n", goal, goalName)
			for _, definition := range definitions {
				w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				fmt.Fprintf(w, "Indicator\t%s\n", definition.Indicator)
				fmt.Fprintf(w, "Code\t%s\n", definition.Code)
				fmt.Fprintf(w, "Unit\t%s\n", definition.Unit)
				fmt.Fprintf(w, "Source\t%s\n", definition.Source)
				fmt.Fprintf(w, "Definition\t%s\n", definition.Short)
				if definition.Code != "" && definition.Code != "—" {
					fmt.Fprintf(w, "Metadata\t%s\n", provider.MetadataURL(definition.Code))
				}
				w.Flush()
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().IntVarP(&goal, "goal", "g", 1, "SDG number (1-17)")
	return cmd
}
