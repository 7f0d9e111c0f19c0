package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPurgeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired series from the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()

			removed, err := st.PurgeExpired(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "collector purge complete (removed=%d)\n", removed)
			return nil
		},
	}
}
