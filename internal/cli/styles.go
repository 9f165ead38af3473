// Package cli provides styled terminal output using lipgloss.
package cli

import (
	"github.com/charmbracelet/lipgloss"
)

var (
	accent  = lipgloss.Color("#7B61FF")
	teal    = lipgloss.Color("#4ECDC4")
	yellow  = lipgloss.Color("#FFE66D")
	red     = lipgloss.Color("#FF6B6B")
	mint    = lipgloss.Color("#95E1D3")
	gray    = lipgloss.Color("#666666")
	divider = lipgloss.Color("#333")
)

var (
	// InfoStyle renders values the commands print as-is, such as ids and names.
	InfoStyle = lipgloss.NewStyle().Foreground(mint)

	// SubtleStyle renders secondary text such as descriptions and hints.
	SubtleStyle = lipgloss.NewStyle().Foreground(gray)

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	successStyle = lipgloss.NewStyle().Foreground(teal)
	warningStyle = lipgloss.NewStyle().Foreground(yellow)
	errorStyle   = lipgloss.NewStyle().Foreground(red)
	labelStyle   = lipgloss.NewStyle().Bold(true)
	promptStyle  = titleStyle

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(divider)
	cellStyle = lipgloss.NewStyle().PaddingRight(2)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(divider).
			Padding(1, 2)
)

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "⚠️"
	iconInfo    = "ℹ️"
	iconBucket  = "🪣"
	iconRun     = "🤖"
)

func withIcon(style lipgloss.Style, icon, message string) string {
	return style.Render(icon + " " + message)
}

// FormatSuccess formats a success message with icon.
func FormatSuccess(message string) string { return withIcon(successStyle, iconSuccess, message) }

// FormatError formats an error message with icon.
func FormatError(message string) string { return withIcon(errorStyle, iconError, message) }

// FormatWarning formats a warning message with icon.
func FormatWarning(message string) string { return withIcon(warningStyle, iconWarning, message) }

// FormatInfo formats an info message with icon.
func FormatInfo(message string) string { return withIcon(InfoStyle, iconInfo, message) }

// FormatTitle formats a section title with the bucket icon.
func FormatTitle(title string) string {
	return withIcon(titleStyle.MarginBottom(1), iconBucket, title)
}

// FormatPrompt formats a question that waits for input.
func FormatPrompt(prompt string) string {
	return promptStyle.Render(prompt + " → ")
}

// RenderBox renders content under a title inside a rounded border.
func RenderBox(title, content string) string {
	return boxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, titleStyle.Render(title), content))
}
