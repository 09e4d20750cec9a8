package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fyrsmithlabs/memvec/internal/monitor"
	"github.com/spf13/cobra"
)

func newMonitorCmd(opts *options) *cobra.Command {
	var interval time.Duration

	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live terminal dashboard for a running server",
		Long: `Poll the server's stats endpoint and render document counts, operation
rates, search latency and process memory.

Examples:
  memvec monitor
  memvec monitor --interval 2s --server http://10.0.0.5:9191`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("--interval must be positive, got %s", interval)
			}
			p := tea.NewProgram(monitor.NewModel(opts.serverURL, interval), tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("monitor: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().DurationVarP(&interval, "interval", "i", 5*time.Second, "refresh interval")
	return cmd
}
