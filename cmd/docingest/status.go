package main

import (
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/docingest/internal/database"
	"github.com/nao1215/docingest/internal/walker"
)

// timeLayout is the timestamp format of the status listings.
const timeLayout = "2006-01-02 15:04"

// NewStatusCmd creates the status command.
// This command shows what the local database holds.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show indexed repositories and ingestion history",
		Long: `Status lists the repositories stored in the local database, when each
was last indexed, and whether it is due for re-indexing.

Examples:
  # List indexed repositories
  docingest status

  # Treat anything older than a week as stale
  docingest status --max-age 168h

  # Show the most recent ingestion runs
  docingest status --history

  # Machine-readable output
  docingest status --json`,
		Args: cobra.NoArgs,
		RunE: runStatusCmd,
	}

	cmd.Flags().Duration("max-age", walker.DefaultMaxAge,
		"Age after which a repository needs re-indexing")
	cmd.Flags().BoolP("history", "H", false,
		"List recent ingestion runs instead of repositories")
	cmd.Flags().IntP("limit", "l", 20,
		"Maximum number of runs listed with --history (0 for all)")
	cmd.Flags().BoolP("json", "j", false,
		"Output in JSON format")

	return cmd
}

// repositoryStatus is one line of the repository listing.
type repositoryStatus struct {
	Key          string    `json:"key"`
	Domain       string    `json:"domain"`
	Importance   int       `json:"importance"`
	Stars        int       `json:"stars"`
	LastIndexed  time.Time `json:"last_indexed"`
	NeedsReindex bool      `json:"needs_reindex"`
}

// runStatusCmd executes the status command.
func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := baseConfig(cmd)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	maxAge, err := flags.GetDuration("max-age")
	if err != nil {
		return err
	}
	history, err := flags.GetBool("history")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	jsonOutput, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()

	if history {
		reports, err := db.ListIngestReports(ctx, limit)
		if err != nil {
			return fmt.Errorf("failed to list ingestion runs: %w", err)
		}
		if jsonOutput {
			return writeStatusJSON(out, reports)
		}
		return listHistory(out, reports)
	}

	metas, err := db.ListRepositoryMetadata(ctx)
	if err != nil {
		return fmt.Errorf("failed to list repositories: %w", err)
	}

	now := time.Now()
	statuses := make([]repositoryStatus, 0, len(metas))
	for i := range metas {
		m := &metas[i]
		statuses = append(statuses, repositoryStatus{
			Key:          m.Key(),
			Domain:       m.Domain,
			Importance:   m.Importance,
			Stars:        m.Stars,
			LastIndexed:  m.LastIndexed,
			NeedsReindex: walker.NeedsIndexing(m, maxAge, now),
		})
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].Key < statuses[j].Key })

	if jsonOutput {
		return writeStatusJSON(out, statuses)
	}
	return listRepositories(out, statuses)
}

// listRepositories prints the repository listing.
func listRepositories(w io.Writer, statuses []repositoryStatus) error {
	if len(statuses) == 0 {
		fmt.Fprintln(w, "No repositories found in the database.")
		fmt.Fprintln(w, "\nUse 'docingest repo <owner/name>' to index a repository.")
		return nil
	}

	fmt.Fprintf(w, "Indexed repositories (%d):\n\n", len(statuses))
	fmt.Fprintf(w, "  %-40s  %-12s  %-16s  %s\n", "Repository", "Domain", "Last Indexed", "Status")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 82))

	stale := 0
	for _, s := range statuses {
		state := "fresh"
		if s.NeedsReindex {
			state = "stale"
			stale++
		}
		fmt.Fprintf(w, "  %-40s  %-12s  %-16s  %s\n",
			truncate(s.Key, 40), truncate(s.Domain, 12), formatTime(s.LastIndexed), state)
	}

	if stale > 0 {
		fmt.Fprintf(w, "\n%d repositories need re-indexing.\n", stale)
	}
	return nil
}

// listHistory prints the ingestion run listing.
func listHistory(w io.Writer, reports []database.ReportSummary) error {
	if len(reports) == 0 {
		fmt.Fprintln(w, "No ingestion runs found in the database.")
		return nil
	}

	fmt.Fprintf(w, "Ingestion runs (%d):\n\n", len(reports))
	fmt.Fprintf(w, "  %-16s  %-40s  %s\n", "Date", "Target", "Failures")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 70))

	for _, r := range reports {
		target := r.Target
		if target == "" {
			target = "(repositories)"
		}
		fmt.Fprintf(w, "  %-16s  %-40s  %s\n",
			formatTime(r.StartedAt), truncate(target, 40), formatFailures(r.Failures))
	}
	return nil
}

// formatFailures renders a failure tally as "KIND=n, ..." sorted by kind.
func formatFailures(tally map[string]int) string {
	if len(tally) == 0 {
		return "none"
	}
	kinds := make([]string, 0, len(tally))
	for k := range tally {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)

	parts := make([]string, 0, len(kinds))
	for _, k := range kinds {
		parts = append(parts, fmt.Sprintf("%s=%d", k, tally[k]))
	}
	return strings.Join(parts, ", ")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.Local().Format(timeLayout)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

func writeStatusJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
