package main

import (
	"cmp"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/nao1215/nsetinspect/internal/config"
	"github.com/nao1215/nsetinspect/internal/database"
	"github.com/nao1215/nsetinspect/internal/model"
	"github.com/spf13/cobra"
)

// Constants for anomaly trend and summary messages.
const (
	trendWorsened  = "worsened"
	trendImproved  = "improved"
	trendUnchanged = "unchanged"
	noAnomalies    = "No anomalies"
)

// NewHistoryCmd creates the history command.
// This command lists and compares inspections stored in the history database.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [registry]",
		Short: "Show and compare past inspections",
		Long: `History lists the inspections saved by 'nsetinspect inspect' for a registry.

With --compare it shows the anomalies that appeared or disappeared between
the latest inspection and the one before it (or the one named by --with-id).
Registries are identified by their absolute path.

Examples:
  # List inspections of nset_vocab.bin
  nsetinspect history

  # Compare the latest two inspections
  nsetinspect history --compare build/nset_vocab.bin

  # Compare the latest inspection with inspection 5
  nsetinspect history --compare --with-id 5

  # List every registry in the database
  nsetinspect history --list-registries`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list-registries", "L", false,
		"List all registries in the database")
	cmd.Flags().BoolP("compare", "C", false,
		"Compare the latest inspection with an earlier one")
	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare with a specific inspection by ID (see the ID column)")
	cmd.Flags().BoolP("json", "j", false,
		"Output comparison result in JSON format")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	setupLogger(cmd)

	cf, err := loadConfigFile(cmd)
	if err != nil {
		return err
	}

	cfg := config.NewConfig()
	if len(args) > 0 {
		cfg.RegistryPath = args[0]
	}
	cfg.ApplyFile(cf)

	out := cmd.OutOrStdout()

	db, err := database.Open(cfg.DBDir, database.Options{CreateIfNotExists: false})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			fmt.Fprintln(out, "No inspection history found.")
			fmt.Fprintln(out, "\nUse 'nsetinspect inspect' to inspect a registry.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := commandContext(cmd)

	listRegistries, err := cmd.Flags().GetBool("list-registries")
	if err != nil {
		return err
	}
	if listRegistries {
		return listInspectedRegistries(ctx, out, db)
	}

	compare, err := cmd.Flags().GetBool("compare")
	if err != nil {
		return err
	}
	if !compare {
		return listInspectionHistory(ctx, out, db, cfg.RegistryPath)
	}

	withID, err := cmd.Flags().GetInt64("with-id")
	if err != nil {
		return err
	}
	jsonOutput, err := cmd.Flags().GetBool("json")
	if err != nil {
		return err
	}

	result, err := runComparison(ctx, db, cfg.RegistryPath, withID)
	if err != nil {
		return err
	}
	if jsonOutput {
		return outputComparisonJSON(out, result)
	}
	return outputComparisonText(out, result)
}

// listInspectedRegistries lists every registry with stored inspections.
func listInspectedRegistries(ctx context.Context, out io.Writer, db *database.HistoryDB) error {
	registries, err := db.ListRegistries(ctx)
	if err != nil {
		return fmt.Errorf("failed to list registries: %w", err)
	}

	if len(registries) == 0 {
		fmt.Fprintln(out, "No inspected registries found in the database.")
		return nil
	}

	fmt.Fprintf(out, "Inspected registries (%d):\n\n", len(registries))
	for _, registry := range registries {
		fmt.Fprintf(out, "  • %s\n", registry)
	}
	fmt.Fprintln(out, "\nUse 'nsetinspect history <registry>' to see the inspections of a registry.")

	return nil
}

// listInspectionHistory prints the stored inspections of a registry.
func listInspectionHistory(ctx context.Context, out io.Writer, db *database.HistoryDB, registryPath string) error {
	history, err := db.GetInspectionHistory(ctx, registryPath)
	if err != nil {
		return err
	}

	key := database.RegistryKey(registryPath)
	if len(history) == 0 {
		fmt.Fprintf(out, "No inspection history found for %s\n", key)
		return nil
	}

	rows := make([][]string, 0, len(history))
	for _, meta := range history {
		rows = append(rows, []string{
			strconv.FormatInt(meta.ID, 10),
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Comma(int64(meta.TokenCount)),
			fmt.Sprintf("%.2f", meta.MeanLength),
			humanize.Comma(int64(meta.AnomalyCount)),
			meta.End,
			formatCategorySummary(meta.Categories),
		})
	}

	fmt.Fprintf(out, "Inspection history for %s (%d inspections):\n\n", key, len(history))
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Date", "Tokens", "Mean", "Anomalies", "End", "Categories"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft, alignLeft},
	))
	fmt.Fprintln(out, "\nUse 'nsetinspect history --compare <registry>' to compare the latest two inspections.")

	return nil
}

// formatCategorySummary formats per-category anomaly counts in category order.
func formatCategorySummary(summary map[string]int) string {
	var parts []string
	for _, c := range model.Categories {
		if n := summary[c.Key()]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", c, n))
		}
	}
	if len(parts) == 0 {
		return noAnomalies
	}
	return strings.Join(parts, ", ")
}

// ComparisonResult holds the result of comparing two inspections of a registry.
type ComparisonResult struct {
	// RegistryPath is the registry both inspections belong to.
	RegistryPath string `json:"registry_path"`

	// Previous is the earlier inspection.
	Previous database.InspectionMetadata `json:"previous"`

	// Current is the latest inspection.
	Current database.InspectionMetadata `json:"current"`

	// NewAnomalies are flagged now but were not flagged before.
	NewAnomalies []AnomalyChange `json:"new_anomalies,omitempty"`

	// ResolvedAnomalies were flagged before but are not flagged now.
	ResolvedAnomalies []AnomalyChange `json:"resolved_anomalies,omitempty"`

	// UnchangedCount is the number of tokens flagged in both with the same category.
	UnchangedCount int `json:"unchanged_count"`

	// TokenDelta is the change in token count.
	TokenDelta int `json:"token_delta"`

	// Trend is "improved", "worsened" or "unchanged" by anomaly count.
	Trend string `json:"trend"`
}

// AnomalyChange is a flagged token that appeared or disappeared.
type AnomalyChange struct {
	// ID is the token id.
	ID uint32 `json:"id"`

	// Category is why the token was flagged.
	Category model.Category `json:"category"`
}

// runComparison loads the inspections to compare and their anomalies.
func runComparison(ctx context.Context, db *database.HistoryDB, registryPath string, withID int64) (*ComparisonResult, error) {
	history, err := db.GetInspectionHistory(ctx, registryPath)
	if err != nil {
		return nil, err
	}

	key := database.RegistryKey(registryPath)
	if len(history) == 0 {
		return nil, fmt.Errorf("no inspection history found for %s", key)
	}

	current := history[0]
	var previous database.InspectionMetadata

	if withID > 0 {
		idx := slices.IndexFunc(history, func(m database.InspectionMetadata) bool { return m.ID == withID })
		if idx < 0 {
			return nil, fmt.Errorf("inspection %d not found for %s", withID, key)
		}
		if idx == 0 {
			return nil, fmt.Errorf("inspection %d is the latest inspection; choose an earlier one", withID)
		}
		previous = history[idx]
	} else {
		if len(history) < 2 {
			return nil, fmt.Errorf("at least 2 inspections are required for comparison (found %d)", len(history))
		}
		previous = history[1]
	}

	previousTokens, err := db.GetAnomalyTokens(ctx, previous.ID)
	if err != nil {
		return nil, err
	}
	currentTokens, err := db.GetAnomalyTokens(ctx, current.ID)
	if err != nil {
		return nil, err
	}

	return compareInspections(previous, current, previousTokens, currentTokens), nil
}

// compareInspections diffs the anomalies of two inspections. A token whose
// category changed counts as resolved under the old category and new under
// the new one.
func compareInspections(previous, current database.InspectionMetadata, previousTokens, currentTokens map[uint32]model.Category) *ComparisonResult {
	result := &ComparisonResult{
		RegistryPath: current.RegistryPath,
		Previous:     previous,
		Current:      current,
		TokenDelta:   current.TokenCount - previous.TokenCount,
	}

	for id, c := range currentTokens {
		if old, ok := previousTokens[id]; ok && old == c {
			result.UnchangedCount++
			continue
		}
		result.NewAnomalies = append(result.NewAnomalies, AnomalyChange{ID: id, Category: c})
	}
	for id, c := range previousTokens {
		if now, ok := currentTokens[id]; ok && now == c {
			continue
		}
		result.ResolvedAnomalies = append(result.ResolvedAnomalies, AnomalyChange{ID: id, Category: c})
	}

	byID := func(a, b AnomalyChange) int { return cmp.Compare(a.ID, b.ID) }
	slices.SortFunc(result.NewAnomalies, byID)
	slices.SortFunc(result.ResolvedAnomalies, byID)

	switch {
	case current.AnomalyCount > previous.AnomalyCount:
		result.Trend = trendWorsened
	case current.AnomalyCount < previous.AnomalyCount:
		result.Trend = trendImproved
	default:
		result.Trend = trendUnchanged
	}

	return result
}

// outputComparisonJSON writes the comparison as indented JSON.
func outputComparisonJSON(out io.Writer, result *ComparisonResult) error {
	encoder := json.NewEncoder(out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// outputComparisonText writes the comparison for a terminal.
func outputComparisonText(out io.Writer, result *ComparisonResult) error {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("[*] Comparing inspections of %s\n\n", result.RegistryPath))
	for _, row := range []struct {
		label string
		meta  database.InspectionMetadata
	}{
		{"Previous", result.Previous},
		{"Current", result.Current},
	} {
		sb.WriteString(fmt.Sprintf("  %-9s #%d  %s  %s tokens, %s anomalies\n",
			row.label+":",
			row.meta.ID,
			row.meta.Timestamp.Format("2006-01-02 15:04:05"),
			humanize.Comma(int64(row.meta.TokenCount)),
			humanize.Comma(int64(row.meta.AnomalyCount)),
		))
	}

	sb.WriteString(fmt.Sprintf("\n  Tokens:     %+d\n", result.TokenDelta))
	sb.WriteString(fmt.Sprintf("  Anomalies:  %s (%+d)\n", result.Trend,
		result.Current.AnomalyCount-result.Previous.AnomalyCount))
	sb.WriteString(fmt.Sprintf("  Unchanged:  %d\n", result.UnchangedCount))

	writeChanges(&sb, "New anomalies", result.NewAnomalies)
	writeChanges(&sb, "Resolved anomalies", result.ResolvedAnomalies)

	_, err := io.WriteString(out, sb.String())
	return err
}

// writeChanges writes a titled table of anomaly changes, or nothing when empty.
func writeChanges(sb *strings.Builder, title string, changes []AnomalyChange) {
	if len(changes) == 0 {
		return
	}

	rows := make([][]string, 0, len(changes))
	for _, c := range changes {
		rows = append(rows, []string{strconv.FormatUint(uint64(c.ID), 10), c.Category.String()})
	}

	sb.WriteString(fmt.Sprintf("\n%s (%d):\n", title, len(changes)))
	sb.WriteString(renderTable([]string{"ID", "Issue"}, rows, []columnAlignment{alignRight, alignLeft}))
	sb.WriteString("\n")
}
