package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"reelsmith/internal/deps"
	"reelsmith/internal/preflight"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show service readiness and external tool availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var rows [][]string
			for _, status := range deps.CheckBinaries(deps.Required(cfg)) {
				rows = append(rows, []string{status.Name, passCell(status.Available), status.Detail})
			}
			for _, result := range preflight.RunAll(cmd.Context(), cfg) {
				rows = append(rows, []string{result.Name, passCell(result.Passed), result.Detail})
			}

			table := renderTable(
				[]string{"Check", "OK", "Detail"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft},
			)
			fmt.Fprintln(cmd.OutOrStdout(), table)
			return nil
		},
	}
}

func passCell(ok bool) string {
	if ok {
		return "yes"
	}
	return "no"
}
