package main

import (
	"fmt"

	"github.com/fyrsmithlabs/memvec/internal/embeddings"
	"github.com/spf13/cobra"
)

func newInitCmd(_ *options) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize memvec dependencies",
		Long: `Initialize memvec by downloading required dependencies.

Currently this downloads the ONNX runtime library required for local
embeddings with FastEmbed. The library is installed to:
  ~/.local/share/memvec/lib/

If ONNX_PATH environment variable is set, that path takes precedence.

Examples:
  # Download the ONNX runtime
  memvec init

  # Force re-download even if already installed
  memvec init --force`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !force {
				if path := embeddings.GetONNXLibraryPath(); path != "" {
					cmd.Printf("ONNX runtime already installed at: %s\n", path)
					cmd.Println("Use --force to re-download.")
					return nil
				}
			}

			cmd.Printf("Downloading ONNX runtime v%s...\n", embeddings.DefaultONNXRuntimeVersion)
			if err := embeddings.DownloadONNXRuntime(cmd.Context(), ""); err != nil {
				return fmt.Errorf("failed to download ONNX runtime: %w", err)
			}

			path := embeddings.GetONNXLibraryPath()
			if path == "" {
				return fmt.Errorf("download completed but library not found")
			}

			cmd.Printf("Successfully installed ONNX runtime to: %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Force re-download even if ONNX runtime exists")
	return cmd
}
