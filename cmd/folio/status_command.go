package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"folio/internal/catalog"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "status <group-id>",
		Short: "Show recognition progress for a group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			files, err := fetchFiles(cmd, client, args[0])
			if err != nil {
				return err
			}

			counts := map[catalog.Status]int{}
			for _, f := range files {
				counts[f.Status]++
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(map[string]any{
					"group_uuid": args[0],
					"total":      len(files),
					"progress":   counts[catalog.StatusProgress],
					"upgrading":  counts[catalog.StatusUpgrading],
					"done":       counts[catalog.StatusDone],
				})
			}

			colorize := isatty.IsTerminal(os.Stdout.Fd())
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Group %s: %d files\n", args[0], len(files))
			fmt.Fprintln(out, statusLine(catalog.StatusProgress, counts[catalog.StatusProgress], colorize))
			fmt.Fprintln(out, statusLine(catalog.StatusUpgrading, counts[catalog.StatusUpgrading], colorize))
			fmt.Fprintln(out, statusLine(catalog.StatusDone, counts[catalog.StatusDone], colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func statusLine(status catalog.Status, count int, colorize bool) string {
	line := fmt.Sprintf("  %-10s %d", status, count)
	if !colorize {
		return line
	}
	return statusColor(status) + line + ansiReset
}
