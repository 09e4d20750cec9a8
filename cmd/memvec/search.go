package main

import (
	"strings"

	memhttp "github.com/fyrsmithlabs/memvec/internal/http"
	"github.com/spf13/cobra"
)

func newSearchCmd(opts *options) *cobra.Command {
	var (
		topK      int
		threshold float64
		filter    map[string]string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Find documents similar to a query",
		Long: `Rank stored documents by cosine similarity to the query.

Top-k and threshold default to the server's configured values.

Examples:
  memvec search "how do cats communicate"
  memvec search --top-k 10 --threshold 0.3 --filter kind=note "cats"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := memhttp.SearchRequest{
				Query:  strings.Join(args, " "),
				Filter: parseMetadata(filter),
			}
			if cmd.Flags().Changed("top-k") {
				req.TopK = &topK
			}
			if cmd.Flags().Changed("threshold") {
				req.SimilarityThreshold = &threshold
			}

			var resp memhttp.SearchResponse
			client := newAPIClient(opts.serverURL)
			if err := client.do(cmd.Context(), "POST", "/api/v1/search", req, &resp); err != nil {
				return err
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			printResults(cmd.OutOrStdout(), resp.Results)
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "maximum number of results")
	cmd.Flags().Float64Var(&threshold, "threshold", 0, "minimum similarity score in [0,1]")
	cmd.Flags().StringToStringVar(&filter, "filter", nil, "metadata key=value pairs results must match")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}
