// Package main implements the memvec CLI: the server itself and client
// commands for a running server.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/fyrsmithlabs/memvec/internal/config"
	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

const defaultServerURL = "http://127.0.0.1:9191"

// options holds flags shared by every command.
type options struct {
	configPath string
	serverURL  string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "memvec",
		Short: "In-memory vector similarity store",
		Long: `memvec keeps text documents and their embeddings in memory, ranks them
by cosine similarity to a query, and persists them as a JSON snapshot.

Run "memvec serve" to start the HTTP API; the other commands talk to a
running server.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default ~/.config/memvec/config.yaml)")
	root.PersistentFlags().StringVar(&opts.serverURL, "server", defaultServerURL, "memvec server URL")

	root.AddCommand(
		newServeCmd(opts),
		newAddCmd(opts),
		newGetCmd(opts),
		newDeleteCmd(opts),
		newSearchCmd(opts),
		newSnapshotCmd(opts),
		newHealthCmd(opts),
		newMonitorCmd(opts),
		newInitCmd(opts),
		newVersionCmd(),
	)

	return root
}

func (o *options) loadConfig() (*config.Config, error) {
	cfg, err := config.LoadWithFile(o.configPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "memvec by Fyrsmith Labs\n")
	fmt.Fprintf(w, "Version:    %s\n", version)
	fmt.Fprintf(w, "Commit:     %s\n", gitCommit)
	fmt.Fprintf(w, "Build Date: %s\n", buildDate)
}
