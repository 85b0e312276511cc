package main

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

func newReportCommand(ctx *commandContext) *cobra.Command {
	var stage string
	var format string
	var fields string
	var output string

	cmd := &cobra.Command{
		Use:   "report <group-id>",
		Short: "Download a recognition report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}

			query := url.Values{}
			if stage != "" {
				query.Set("stage", stage)
			}
			if format != "" {
				query.Set("format", format)
			}
			if fields != "" {
				query.Set("fields", fields)
			}

			body, err := client.getRaw(cmd.Context(), "/groups/"+args[0]+"/report", query)
			if err != nil {
				return err
			}

			if target := strings.TrimSpace(output); target != "" {
				if err := os.WriteFile(target, body, 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote report to %s\n", target)
				return nil
			}
			_, err = cmd.OutOrStdout().Write(body)
			return err
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "done", "Pipeline stage (progress or done)")
	cmd.Flags().StringVar(&format, "format", "table", "Report format (csv, table, or html)")
	cmd.Flags().StringVar(&fields, "fields", "", "Comma-separated field selection")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write the report to a file")
	return cmd
}
