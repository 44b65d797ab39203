// Package styles provides shared lipgloss styles for CLI output.
package styles

import "github.com/charmbracelet/lipgloss"

// CurrentPalette holds the active theme palette.
var CurrentPalette Palette

var (
	HeaderStyle  lipgloss.Style
	SectionStyle lipgloss.Style
	LabelStyle   lipgloss.Style
	MutedStyle   lipgloss.Style
	PassStyle    lipgloss.Style
	WarnStyle    lipgloss.Style
	FailStyle    lipgloss.Style
	IconStyle    lipgloss.Style
	StaleStyle   lipgloss.Style
)

func init() {
	p, _ := GetPalette(DefaultTheme)
	SetTheme(p)
}

// SetTheme rebuilds every style from p.
func SetTheme(p Palette) {
	CurrentPalette = p

	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Primary)
	SectionStyle = lipgloss.NewStyle().Bold(true).Foreground(p.Secondary).MarginTop(1)
	LabelStyle = lipgloss.NewStyle().Foreground(p.Foreground).Width(14)
	MutedStyle = lipgloss.NewStyle().Foreground(p.Muted)
	PassStyle = lipgloss.NewStyle().Foreground(p.Success)
	WarnStyle = lipgloss.NewStyle().Foreground(p.Warning)
	FailStyle = lipgloss.NewStyle().Foreground(p.Error)
	IconStyle = lipgloss.NewStyle().Foreground(p.Secondary)
	StaleStyle = lipgloss.NewStyle().Foreground(p.Muted).Italic(true)
}

// ForHealth returns the style used for a plugin health level.
func ForHealth(health string) lipgloss.Style {
	switch health {
	case "good":
		return PassStyle
	case "warning":
		return WarnStyle
	case "error":
		return FailStyle
	case "info":
		return lipgloss.NewStyle().Foreground(CurrentPalette.Primary)
	default:
		return lipgloss.NewStyle().Foreground(CurrentPalette.Foreground)
	}
}

// ForStatus returns the style and icon for a doctor status.
func ForStatus(status string) (lipgloss.Style, string) {
	switch status {
	case "pass":
		return PassStyle, IconPass
	case "warn":
		return WarnStyle, IconWarn
	default:
		return FailStyle, IconFail
	}
}
