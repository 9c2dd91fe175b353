// Package styles holds the lipgloss styles shared by the CLI and the watch
// view.
package styles

import (
	"sync/atomic"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Colors - all colors meet WCAG AA contrast (4.5:1) on both black and dark surfaces
	PrimaryColor   = lipgloss.Color("#A78BFA") // Purple
	SecondaryColor = lipgloss.Color("#10B981") // Green
	WarningColor   = lipgloss.Color("#F59E0B") // Amber
	ErrorColor     = lipgloss.Color("#F87171") // Red
	MutedColor     = lipgloss.Color("#9CA3AF") // Gray
	SurfaceColor   = lipgloss.Color("#1F2937") // Dark surface
	TextColor      = lipgloss.Color("#F9FAFB") // Light text
	BorderColor    = lipgloss.Color("#6B7280") // Gray
	BlueColor      = lipgloss.Color("#60A5FA")
	PinkColor      = lipgloss.Color("#F472B6")
	OrangeColor    = lipgloss.Color("#FB923C")

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor)

	Subtitle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)

	Muted = lipgloss.NewStyle().Foreground(MutedColor)

	// Header of the watch view
	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor)

	// Footer / status bar
	StatusBar = lipgloss.NewStyle().
			Foreground(TextColor).
			Background(SurfaceColor).
			Padding(0, 1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	InfoMsg = lipgloss.NewStyle().
		Foreground(BlueColor)

	// Request id badge, e.g. "#12"
	RequestID = lipgloss.NewStyle().
			Bold(true).
			Foreground(PrimaryColor)

	Score = lipgloss.NewStyle().
		Foreground(WarningColor)

	Key = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(12)
)

// Message prefixes.
const (
	SuccessPrefix = "✅ "
	FailurePrefix = "⚠️ "
	InfoPrefix    = "❕ "
)

var teamPalette = []lipgloss.Color{
	BlueColor,
	SecondaryColor,
	WarningColor,
	PinkColor,
	OrangeColor,
	PrimaryColor,
}

var plain atomic.Bool

// SetColor turns styling on or off for every Render helper in this package.
func SetColor(enabled bool) {
	plain.Store(!enabled)
}

// ColorEnabled reports whether styling is on.
func ColorEnabled() bool {
	return !plain.Load()
}

// Render applies s unless styling is off.
func Render(s lipgloss.Style, text string) string {
	if plain.Load() {
		return text
	}
	return s.Render(text)
}

// Success formats a confirmation line.
func Success(msg string) string {
	return SuccessPrefix + Render(SuccessMsg, msg)
}

// Failure formats an error line.
func Failure(msg string) string {
	return FailurePrefix + Render(ErrorMsg, msg)
}

// Info formats an informational line.
func Info(msg string) string {
	return InfoPrefix + Render(InfoMsg, msg)
}

// TeamColor picks a stable color for the team at position i of the
// directory.
func TeamColor(i int) lipgloss.Color {
	if i < 0 {
		return MutedColor
	}
	return teamPalette[i%len(teamPalette)]
}

// Team renders a team name in its directory color.
func Team(name string, i int) string {
	return Render(lipgloss.NewStyle().Bold(true).Foreground(TeamColor(i)), name)
}
