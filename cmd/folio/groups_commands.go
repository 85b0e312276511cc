package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"folio/internal/catalog"
)

func newGroupsCommand(ctx *commandContext) *cobra.Command {
	groupsCmd := &cobra.Command{
		Use:   "groups",
		Short: "Manage scan groups",
	}
	groupsCmd.AddCommand(newGroupsListCommand(ctx))
	groupsCmd.AddCommand(newGroupsShowCommand(ctx))
	groupsCmd.AddCommand(newGroupsDeleteCommand(ctx))
	return groupsCmd
}

func newGroupsListCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List registered groups",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var payload struct {
				Groups []catalog.Group `json:"groups"`
			}
			if err := client.getJSON(cmd.Context(), "/groups", nil, &payload); err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(payload.Groups)
			}
			fmt.Fprintln(cmd.OutOrStdout(), groupsTable(payload.Groups))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newGroupsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "show <group-id>",
		Short: "Show one group",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			var group catalog.Group
			if err := client.getJSON(cmd.Context(), "/groups/"+args[0], nil, &group); err != nil {
				return err
			}
			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(group)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Group:   %s\n", group.GroupID)
			fmt.Fprintf(out, "Fond:    %s\n", group.Fond)
			fmt.Fprintf(out, "Opis:    %s\n", group.Opis)
			fmt.Fprintf(out, "Delo:    %s\n", group.Delo)
			fmt.Fprintf(out, "Created: %s\n", group.CreatedAt.Local().Format(dateTimeFormat))
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output JSON")
	return cmd
}

func newGroupsDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <group-id>",
		Short: "Delete a group and all of its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := ctx.client()
			if err != nil {
				return err
			}
			if err := client.delete(cmd.Context(), "/groups/"+args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted group %s\n", args[0])
			return nil
		},
	}
}
