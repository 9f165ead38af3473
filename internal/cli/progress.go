package cli

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// progressSteps is the resolution of the rendered bar.
const progressSteps = 1000

// ProgressReporter renders batch progress fractions as a terminal progress bar.
type ProgressReporter struct {
	bar  *progressbar.ProgressBar
	last int
	mu   sync.Mutex
}

// NewProgressReporter creates a progress bar writing to w.
func NewProgressReporter(w io.Writer, description string) *ProgressReporter {
	bar := progressbar.NewOptions(progressSteps,
		progressbar.OptionSetWriter(w),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]"+description+"[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionOnCompletion(func() {
			if _, err := fmt.Fprintln(w); err != nil {
				slog.Warn("Failed to write newline after progress bar", "error", err)
			}
		}),
	)
	return &ProgressReporter{bar: bar}
}

// Update moves the bar to fraction, a value in [0, 1]. Values below the
// current position are ignored.
func (p *ProgressReporter) Update(fraction float64) {
	step := int(math.Round(math.Max(0, math.Min(1, fraction)) * progressSteps))

	p.mu.Lock()
	defer p.mu.Unlock()

	if step <= p.last {
		return
	}
	p.last = step
	if err := p.bar.Set(step); err != nil {
		slog.Warn("Failed to update progress bar", "error", err)
	}
}

// Step returns the current bar position out of 1000.
func (p *ProgressReporter) Step() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Finish completes the bar if the run ended early.
func (p *ProgressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.last >= progressSteps {
		return
	}
	p.last = progressSteps
	if err := p.bar.Finish(); err != nil {
		slog.Warn("Failed to finish progress bar", "error", err)
	}
}
