package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/pders01/imgfind/internal/config"
)

const AppName = "imgfind"

var LogoLines = []string{
	"▀█▀ █▀▄▀█ █▀▀ █▀▀ ▀█▀ █▄ █ █▀▄",
	" █  █ ▀ █ █ ▄ █▀   █  █ ▀█ █ █",
	"▀▀▀ ▀   ▀ ▀▀▀ ▀   ▀▀▀ ▀  ▀ ▀▀ ",
}

const CompactLogo = `imgfind ›`

var (
	PrimaryColor   = lipgloss.Color("#FF6B6B")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")
	TextColor      = lipgloss.Color("#EAEAEA")
	MutedColor     = lipgloss.Color("#94A3B8")
	ErrorColor     = lipgloss.Color("#F87171")
	SuccessColor   = lipgloss.Color("#4ADE80")

	SurfaceColor = lipgloss.Color("#16213E")
	WarnColor    = lipgloss.Color("#FFE66D")
)

var (
	LogoStyle          lipgloss.Style
	TitleStyle         lipgloss.Style
	HeaderStyle        lipgloss.Style
	HelpStyle          lipgloss.Style
	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style
	SuggestionStyle    lipgloss.Style
	SeparatorStyle     lipgloss.Style
)

func init() {
	buildStyles()
}

// ApplyColors replaces the palette with the configured one. Empty values
// keep the built-in color.
func ApplyColors(c config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, c.Primary)
	set(&SecondaryColor, c.Secondary)
	set(&AccentColor, c.Accent)
	set(&TextColor, c.Text)
	set(&MutedColor, c.Muted)
	set(&ErrorColor, c.Error)
	set(&SuccessColor, c.Success)
	buildStyles()
}

func buildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)
	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)
	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)
	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusWarnStyle = lipgloss.NewStyle().Foreground(WarnColor)
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	SuggestionStyle = lipgloss.NewStyle().Foreground(AccentColor)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)
}

func GetWelcomeMessage() string {
	return GetCompactBanner("Type a search term and press enter")
}

func GetCompactBanner(message string) string {
	lines := make([]string, 0, len(LogoLines))
	for _, line := range LogoLines {
		lines = append(lines, LogoStyle.Render(line))
	}
	return lipgloss.JoinVertical(
		lipgloss.Center,
		lipgloss.JoinVertical(lipgloss.Center, lines...),
		"",
		HelpStyle.Render(message),
	)
}

// Banner renders the logo with a version tagline for the CLI.
func Banner(version string) string {
	tag := "gallery search"
	if version != "" && version != "dev" {
		if version[0] != 'v' && version[0] != 'V' {
			version = "v" + version
		}
		tag = fmt.Sprintf("gallery search %s", version)
	}

	rows := make([]string, 0, len(LogoLines)+2)
	gradient := []lipgloss.Color{PrimaryColor, AccentColor, SecondaryColor}
	for i, line := range LogoLines {
		rows = append(rows, lipgloss.NewStyle().
			Foreground(gradient[i%len(gradient)]).
			Bold(true).
			Render(line))
	}
	rows = append(rows, "", HelpStyle.Render(tag))

	return lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		Render(lipgloss.JoinVertical(lipgloss.Center, rows...))
}
