package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Veraticus/bucketeer/internal/cli"
	"github.com/Veraticus/bucketeer/internal/common"
	"github.com/Veraticus/bucketeer/internal/model"
)

func evaluationsCmd() *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "evaluations [record-id]",
		Short: "Show stored evaluation results",
		Long: `List the evaluations written by previous runs, oldest first.

Pass a record ID to show only that record. Use --format yaml to see full
values, including transcripts.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var recordID string
			if len(args) == 1 {
				recordID = args[0]
			}

			store, err := initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			results, err := store.GetEvaluations(ctx, recordID)
			if err != nil {
				return fmt.Errorf("failed to get evaluations: %w", err)
			}

			if recordID != "" && len(results) == 0 {
				return common.NewUserError(fmt.Sprintf("No evaluations found for record %q.", recordID), common.ErrNotFound)
			}

			return writeEvaluations(cmd.OutOrStdout(), results, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "table", "Output format (table, yaml)")

	return cmd
}

type evaluationDoc struct {
	Values   map[string]any `yaml:"values"`
	RecordID string         `yaml:"record_id"`
}

func writeEvaluations(w io.Writer, results []model.EvaluationResult, format string) error {
	switch strings.ToLower(format) {
	case "yaml":
		docs := make([]evaluationDoc, 0, len(results))
		for _, r := range results {
			docs = append(docs, evaluationDoc{RecordID: r.RecordID, Values: r.Values})
		}
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(docs); err != nil {
			return fmt.Errorf("failed to encode evaluations: %w", err)
		}
		return enc.Close()
	case "table", "":
		return writeEvaluationTable(w, results)
	default:
		return fmt.Errorf("unknown format %q (expected table or yaml)", format)
	}
}

func writeEvaluationTable(w io.Writer, results []model.EvaluationResult) error {
	if len(results) == 0 {
		_, err := fmt.Fprintln(w, cli.InfoStyle.Render("No evaluations found. Run 'bucketeer evaluate --preset <name>' first."))
		return err
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	fmt.Fprintf(tw, "%s\t%s\n", headerStyle.Render("Record"), headerStyle.Render("Values"))
	fmt.Fprintf(tw, "%s\t%s\n", strings.Repeat("-", 12), strings.Repeat("-", 50))

	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\n", r.RecordID, summarizeValues(r.Values))
	}

	return tw.Flush()
}

// summarizeValues renders values on one line, sorted by field. Multi-line
// values such as transcripts are collapsed to their size.
func summarizeValues(values map[string]any) string {
	fields := make([]string, 0, len(values))
	for field := range values {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		text := fmt.Sprint(values[field])
		if strings.Contains(text, "\n") {
			text = fmt.Sprintf("(%d lines)", strings.Count(text, "\n")+1)
		}
		parts = append(parts, fmt.Sprintf("%s=%s", field, text))
	}
	return strings.Join(parts, "  ")
}
