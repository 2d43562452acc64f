package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/nao1215/docingest/internal/database"
	"github.com/nao1215/docingest/internal/index"
)

// snippetLength is the number of content characters shown with --content.
const snippetLength = 200

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search ingested documentation",
		Long: `Search runs a full-text query over every stored section, matching
titles, content, topics and code.

Examples:
  # Find sections about installation
  docingest search install

  # Show the top three hits with a content snippet
  docingest search --limit 3 --content "retry policy"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runSearchCmd,
	}

	cmd.Flags().IntP("limit", "n", index.DefaultSearchSize,
		"Maximum number of results")
	cmd.Flags().Bool("content", false,
		"Show a snippet of each matching section")
	cmd.Flags().BoolP("json", "j", false,
		"Output results in JSON format")

	return cmd
}

// searchResult is one search hit as printed by the search command.
type searchResult struct {
	ID       string  `json:"id"`
	Score    float64 `json:"score"`
	Title    string  `json:"title"`
	Path     string  `json:"path"`
	SourceID string  `json:"source_id"`
	Snippet  string  `json:"snippet,omitempty"`
}

// runSearchCmd executes the search command.
func runSearchCmd(cmd *cobra.Command, args []string) error {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	showContent, err := flags.GetBool("content")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	query := strings.Join(args, " ")
	if strings.TrimSpace(query) == "" {
		return errors.New("search query is empty")
	}

	idx, err := index.Open(cfg.IndexDir)
	if err != nil {
		return fmt.Errorf("failed to open search index: %w", err)
	}
	defer idx.Close()

	hits, err := idx.Search(query, limit)
	if err != nil {
		return err
	}

	results := make([]searchResult, 0, len(hits))
	for _, h := range hits {
		results = append(results, searchResult{
			ID:       h.ID,
			Score:    h.Score,
			Title:    h.Title,
			Path:     h.Path,
			SourceID: h.SourceID,
		})
	}

	if showContent && len(results) > 0 {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()

		for i := range results {
			doc, err := db.Document(cmd.Context(), results[i].ID)
			if err != nil {
				return err
			}
			if doc == nil {
				continue
			}
			results[i].Snippet = snippet(doc.Content, snippetLength)
		}
	}

	out := cmd.OutOrStdout()
	if jsonOutput {
		return writeStatusJSON(out, results)
	}

	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q.\n", query)
		return nil
	}

	fmt.Fprintf(out, "Results for %q (%d):\n\n", query, len(results))
	for i, r := range results {
		fmt.Fprintf(out, "%2d. %s  (%.3f)\n", i+1, r.Title, r.Score)
		fmt.Fprintf(out, "    %s\n", r.Path)
		if r.Snippet != "" {
			fmt.Fprintf(out, "    %s\n", r.Snippet)
		}
	}
	return nil
}

// snippet collapses whitespace and cuts s to at most n runes.
func snippet(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
