package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/Veraticus/bucketeer/internal/model"
)

// Rough per-call figures observed at the default concurrency.
const (
	secondsPerCall = 0.9
	costPerCallGBP = 0.011
)

// Estimate is the expected duration and cost of a run.
type Estimate struct {
	Records  int
	Calls    int
	Duration time.Duration
	CostGBP  float64
}

// EstimateRun estimates a run over records with outputs completion calls each.
func EstimateRun(records, outputs int) Estimate {
	if outputs < 1 {
		outputs = 1
	}
	calls := records * outputs
	return Estimate{
		Records:  records,
		Calls:    calls,
		Duration: time.Duration(float64(calls) * secondsPerCall * float64(time.Second)),
		CostGBP:  float64(calls) * costPerCallGBP,
	}
}

func (e Estimate) String() string {
	return fmt.Sprintf("Found %d records to process. Estimated time: %.1f min. Estimated cost: £%.2f.",
		e.Records, e.Duration.Minutes(), e.CostGBP)
}

// RenderPreview renders the pre-run box shown before any call is made.
func RenderPreview(preset string, estimate Estimate, buckets model.BucketContext) string {
	lines := []string{
		fmt.Sprintf("%s %s", labelStyle.Render("Preset:"), preset),
		estimate.String(),
	}

	if len(buckets.Buckets) > 0 {
		names := make([]string, 0, len(buckets.Buckets))
		for _, b := range buckets.Buckets {
			names = append(names, b.Name)
		}
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Buckets:"), strings.Join(names, ", ")))
	} else if text := strings.TrimSpace(buckets.Text); text != "" {
		lines = append(lines, fmt.Sprintf("%s %s", labelStyle.Render("Criteria:"), truncate(text, 60)))
	}

	lines = append(lines, SubtleStyle.Render("Press Ctrl+C to cancel."))
	return RenderBox(iconRun+" Evaluation run", strings.Join(lines, "\n"))
}

// WriteOutcome prints the summary line and a table of failures.
func WriteOutcome(w io.Writer, outcome *model.BatchOutcome) error {
	summary := outcome.Summary()
	line := FormatSuccess(summary)
	if len(outcome.Failures) > 0 {
		line = FormatWarning(summary)
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		return err
	}

	if len(outcome.Failures) == 0 {
		return nil
	}

	rows := []string{lipgloss.JoinHorizontal(lipgloss.Top,
		headerStyle.Width(24).Render("Record"),
		headerStyle.Render("Error"),
	)}
	for _, f := range outcome.Failures {
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			cellStyle.Width(24).Render(f.RecordID),
			errorStyle.Render(truncate(f.Err.Error(), 100)),
		))
	}

	_, err := fmt.Fprintln(w, "\n"+lipgloss.JoinVertical(lipgloss.Left, rows...))
	return err
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
