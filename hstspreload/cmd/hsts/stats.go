package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/starius/hstspreload/jumptable"
)

var (
	statsIndex string

	statsCmd = &cobra.Command{
		Use:   "stats",
		Short: "Print a jump table summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(statsIndex)
			if err != nil {
				return err
			}
			defer f.Close()
			table, err := jumptable.ReadFrom(f)
			if err != nil {
				return fmt.Errorf("%s: %w", statsIndex, err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
)

func init() {
	statsCmd.Flags().StringVar(&statsIndex, "index", "hstspreload.idx", "path to the jump table")
}
