package viz

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Theme is a monitor color scheme.
type Theme struct {
	Name    string
	Primary lipgloss.Color
	Accent  lipgloss.Color
	Text    lipgloss.Color
	Muted   lipgloss.Color
	High    lipgloss.Color
	Mid     lipgloss.Color
	Low     lipgloss.Color
}

var Themes = []Theme{
	{
		Name:    "neon",
		Primary: lipgloss.Color("#00ffff"),
		Accent:  lipgloss.Color("#ff00ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#666688"),
		High:    lipgloss.Color("#00ff88"),
		Mid:     lipgloss.Color("#ffcc00"),
		Low:     lipgloss.Color("#ff4444"),
	},
	{
		Name:    "phosphor",
		Primary: lipgloss.Color("#00ff00"),
		Accent:  lipgloss.Color("#88ff88"),
		Text:    lipgloss.Color("#00ff00"),
		Muted:   lipgloss.Color("#005500"),
		High:    lipgloss.Color("#88ff88"),
		Mid:     lipgloss.Color("#00cc00"),
		Low:     lipgloss.Color("#007700"),
	},
	{
		Name:    "mono",
		Primary: lipgloss.Color("#ffffff"),
		Accent:  lipgloss.Color("#0088ff"),
		Text:    lipgloss.Color("#ffffff"),
		Muted:   lipgloss.Color("#888888"),
		High:    lipgloss.Color("#ffffff"),
		Mid:     lipgloss.Color("#bbbbbb"),
		Low:     lipgloss.Color("#777777"),
	},
}

// ThemeByName returns the named theme, or the first one.
func ThemeByName(name string) Theme {
	for _, t := range Themes {
		if t.Name == name {
			return t
		}
	}
	return Themes[0]
}

func nextTheme(cur string) Theme {
	for i, t := range Themes {
		if t.Name == cur {
			return Themes[(i+1)%len(Themes)]
		}
	}
	return Themes[0]
}

type styles struct {
	header lipgloss.Style
	label  lipgloss.Style
	value  lipgloss.Style
	active lipgloss.Style
	help   lipgloss.Style
	graph  lipgloss.Style
	panel  lipgloss.Style
	canvas lipgloss.Style
	high   lipgloss.Style
	mid    lipgloss.Style
	low    lipgloss.Style
}

func newStyles(t Theme) styles {
	return styles{
		header: lipgloss.NewStyle().Foreground(t.Primary).Bold(true).MarginBottom(1),
		label:  lipgloss.NewStyle().Foreground(t.Muted).Width(14),
		value:  lipgloss.NewStyle().Foreground(t.Text),
		active: lipgloss.NewStyle().Foreground(t.Accent).Bold(true),
		help:   lipgloss.NewStyle().Foreground(t.Muted).MarginTop(1),
		graph:  lipgloss.NewStyle().Foreground(t.Primary),
		panel: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(t.Muted).
			Padding(0, 2),
		canvas: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(t.Muted).
			Foreground(t.Text),
		high: lipgloss.NewStyle().Foreground(t.High),
		mid:  lipgloss.NewStyle().Foreground(t.Mid),
		low:  lipgloss.NewStyle().Foreground(t.Low),
	}
}

// bar renders v in [0,1] as a filled bar colored by level.
func (s styles) bar(v float64, width int) string {
	filled := int(v*float64(width) + 0.5)
	filled = max(0, min(width, filled))
	b := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	switch {
	case v > 0.7:
		return s.high.Render(b)
	case v > 0.3:
		return s.mid.Render(b)
	}
	return s.low.Render(b)
}

var sparkChars = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// sparkline renders the last width values on a shared scale.
func sparkline(values []float64, width int) string {
	if len(values) == 0 {
		return strings.Repeat("─", width)
	}
	if len(values) > width {
		values = values[len(values)-width:]
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		lo, hi = min(lo, v), max(hi, v)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}
	var b strings.Builder
	for _, v := range values {
		i := int((v - lo) / span * float64(len(sparkChars)-1))
		b.WriteRune(sparkChars[max(0, min(len(sparkChars)-1, i))])
	}
	return b.String()
}
