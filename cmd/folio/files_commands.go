package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"folio/internal/catalog"
)

func newFilesCommand(ctx *commandContext) *cobra.Command {
	filesCmd := &cobra.Command{
		Use:   "files",
		Short: "Inspect files within a group",
	}
	filesCmd.AddCommand(newFilesListCommand(ctx))
	return filesCmd
}

func newFilesListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list <group-id>",
		Short: "List a group's files and statuses",
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
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(files)
			}
			colorize := isatty.IsTerminal(os.Stdout.Fd())
			fmt.Fprintln(cmd.OutOrStdout(), filesTable(files, colorize))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func fetchFiles(cmd *cobra.Command, client *apiClient, groupID string) ([]catalog.File, error) {
	var payload struct {
		Files []catalog.File `json:"files"`
	}
	if err := client.getJSON(cmd.Context(), "/groups/"+groupID+"/files", nil, &payload); err != nil {
		return nil, err
	}
	return payload.Files, nil
}
