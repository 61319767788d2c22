package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ubc-iui/emdat-sweep/export"
	"github.com/ubc-iui/emdat-sweep/orchestrator"
)

func keysCmd(o *options) *cobra.Command {
	var mode string
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "List the sweep keys of the configured mode and the table each one produces",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := o.load()
			if err != nil {
				return err
			}
			if mode != "" {
				c.Sweep.Mode = mode
			}
			space, err := orchestrator.SpaceFromConfig(o.fs, c)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, k := range space.Keys() {
				fmt.Fprintf(w, "%s\t%s\n", k, export.PathFor(c.Paths.Outputs, k))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&mode, "mode", "m", "", "sweep mode: window, cumulative or tasks")
	return cmd
}
