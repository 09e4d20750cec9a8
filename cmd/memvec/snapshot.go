package main

import (
	"fmt"

	memhttp "github.com/fyrsmithlabs/memvec/internal/http"
	"github.com/spf13/cobra"
)

func newSnapshotCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Save or reload the server's snapshot file",
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "save",
			Short: "Write the store to the configured snapshot file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return snapshotCall(cmd, opts, "/api/v1/snapshot", "saved %d document(s) to %s\n")
			},
		},
		&cobra.Command{
			Use:   "load",
			Short: "Replace the store with the configured snapshot file",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return snapshotCall(cmd, opts, "/api/v1/snapshot/load", "loaded %d document(s) from %s\n")
			},
		},
	)

	return cmd
}

func snapshotCall(cmd *cobra.Command, opts *options, path, format string) error {
	var resp memhttp.SnapshotResponse
	client := newAPIClient(opts.serverURL)
	if err := client.do(cmd.Context(), "POST", path, nil, &resp); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, resp.Documents, resp.Path)
	return nil
}

func newHealthCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check memvec server health",
		Long: `Check the health status of the memvec HTTP server.

Examples:
  memvec health
  memvec health --server http://localhost:8080`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp memhttp.HealthResponse
			client := newAPIClient(opts.serverURL)
			if err := client.do(cmd.Context(), "GET", "/health", nil, &resp); err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), errorStyle.Render("unhealthy"))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %d document(s)\n", healthyStyle.Render(resp.Status), resp.Documents)
			return nil
		},
	}
}
