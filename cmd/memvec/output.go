package main

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fyrsmithlabs/memvec/internal/vectorstore"
)

const previewLen = 72

var (
	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	idStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("51"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)
)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printResults(w io.Writer, results []vectorstore.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no results"))
		return
	}
	for _, r := range results {
		fmt.Fprintf(w, "%s  %s  %s\n",
			scoreStyle.Render(fmt.Sprintf("%.4f", r.Score)),
			idStyle.Render(r.ID),
			preview(r.Content),
		)
		if meta := formatMetadata(r.Metadata); meta != "" {
			fmt.Fprintf(w, "        %s\n", dimStyle.Render(meta))
		}
	}
}

func printDocument(w io.Writer, doc vectorstore.Document) {
	fmt.Fprintln(w, idStyle.Render(doc.ID))
	if meta := formatMetadata(doc.Metadata); meta != "" {
		fmt.Fprintln(w, dimStyle.Render(meta))
	}
	fmt.Fprintln(w, doc.Content)
}

// preview collapses whitespace and truncates content to a single line.
func preview(content string) string {
	s := strings.Join(strings.Fields(content), " ")
	r := []rune(s)
	if len(r) <= previewLen {
		return s
	}
	return string(r[:previewLen-3]) + "..."
}

// formatMetadata renders metadata as sorted key=value pairs.
func formatMetadata(metadata map[string]interface{}) string {
	if len(metadata) == 0 {
		return ""
	}
	keys := make([]string, 0, len(metadata))
	for k := range metadata {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, metadata[k]))
	}
	return strings.Join(parts, " ")
}

// parseMetadata turns key=value flags into a metadata map. Values stay
// strings; filters compare by formatted value so "3" matches a stored 3.
func parseMetadata(pairs map[string]string) map[string]interface{} {
	if len(pairs) == 0 {
		return nil
	}
	out := make(map[string]interface{}, len(pairs))
	for k, v := range pairs {
		out[k] = v
	}
	return out
}
