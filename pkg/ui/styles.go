package ui

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	alertRed    = lipgloss.Color("#FF0000")
	dimWhite    = lipgloss.Color("#B0B0B0")
)

// styles are bound to a renderer so that colour support follows the
// destination writer rather than os.Stdout
type styles struct {
	label     lipgloss.Style
	value     lipgloss.Style
	success   lipgloss.Style
	warning   lipgloss.Style
	err       lipgloss.Style
	highlight lipgloss.Style
	dim       lipgloss.Style
	header    lipgloss.Style
	cell      lipgloss.Style
	number    lipgloss.Style
	latest    lipgloss.Style
	border    lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		label:     r.NewStyle().Foreground(neonCyan).Bold(true),
		value:     r.NewStyle().Foreground(neonYellow),
		success:   r.NewStyle().Foreground(neonGreen).Bold(true),
		warning:   r.NewStyle().Foreground(neonOrange).Bold(true),
		err:       r.NewStyle().Foreground(alertRed).Bold(true),
		highlight: r.NewStyle().Foreground(neonMagenta),
		dim:       r.NewStyle().Foreground(dimWhite).Faint(true),
		header:    r.NewStyle().Foreground(neonMagenta).Bold(true).Padding(0, 1),
		cell:      r.NewStyle().Padding(0, 1),
		number:    r.NewStyle().Padding(0, 1).Align(lipgloss.Right),
		latest:    r.NewStyle().Padding(0, 1).Foreground(neonGreen).Bold(true),
		border:    r.NewStyle().Foreground(neonMagenta),
	}
}
