package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	memhttp "github.com/fyrsmithlabs/memvec/internal/http"
	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
	"github.com/spf13/cobra"
)

func newAddCmd(opts *options) *cobra.Command {
	var (
		text     string
		id       string
		metadata map[string]string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "add [file...]",
		Short: "Add documents to the store",
		Long: `Add documents to a running memvec server.

Each file becomes one document; "-" reads a document from stdin. Use --text
to add a document given on the command line. Files get a "source" metadata
entry with their path.

Examples:
  # Add a document from text
  memvec add --text "cats purr when content" --meta kind=note

  # Add files
  memvec add notes/*.md

  # Replace a document by id
  memvec add --id readme README.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if text == "" && len(args) == 0 {
				return errors.New("nothing to add: pass --text or at least one file")
			}
			if id != "" && len(args)+boolToInt(text != "") > 1 {
				return errors.New("--id can only be used with a single document")
			}

			meta := parseMetadata(metadata)
			var docs []vectorstore.Document
			if text != "" {
				docs = append(docs, vectorstore.Document{ID: id, Content: text, Metadata: meta})
			}
			for _, path := range args {
				content, err := readInput(cmd.InOrStdin(), path)
				if err != nil {
					return err
				}
				docMeta := map[string]interface{}{"source": path}
				for k, v := range meta {
					docMeta[k] = v
				}
				docs = append(docs, vectorstore.Document{ID: id, Content: content, Metadata: docMeta})
			}

			var resp memhttp.AddDocumentsResponse
			client := newAPIClient(opts.serverURL)
			if err := client.do(cmd.Context(), "POST", "/api/v1/documents", memhttp.AddDocumentsRequest{Documents: docs}, &resp); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			for _, id := range resp.IDs {
				fmt.Fprintln(cmd.OutOrStdout(), id)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&text, "text", "", "document content")
	cmd.Flags().StringVar(&id, "id", "", "document id (generated when empty)")
	cmd.Flags().StringToStringVar(&metadata, "meta", nil, "metadata key=value pairs")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the response as JSON")

	return cmd
}

func newGetCmd(opts *options) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a stored document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var doc vectorstore.Document
			client := newAPIClient(opts.serverURL)
			err := client.do(cmd.Context(), "GET", "/api/v1/documents/"+args[0], nil, &doc)
			if isNotFound(err) {
				return fmt.Errorf("document %q not found", args[0])
			}
			if err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), doc)
			}
			printDocument(cmd.OutOrStdout(), doc)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the document as JSON")
	return cmd
}

func newDeleteCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Delete documents by id",
		Long: `Delete documents by id. Unknown ids are ignored.

Examples:
  memvec delete readme notes-1`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp memhttp.DeleteDocumentsResponse
			client := newAPIClient(opts.serverURL)
			if err := client.do(cmd.Context(), "DELETE", "/api/v1/documents", memhttp.DeleteDocumentsRequest{IDs: args}, &resp); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d id(s)\n", len(args))
			return nil
		},
	}
}

// readInput reads a file, or stdin when path is "-".
func readInput(stdin io.Reader, path string) (string, error) {
	var (
		content []byte
		err     error
	)
	if path == "-" {
		content, err = io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("failed to read from stdin: %w", err)
		}
	} else {
		content, err = os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("failed to read file %s: %w", path, err)
		}
	}
	if len(content) == 0 {
		return "", fmt.Errorf("%s is empty", path)
	}
	return string(content), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
