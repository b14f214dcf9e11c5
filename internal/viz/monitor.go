package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/bouncebox/internal/cv"
	"github.com/san-kum/bouncebox/internal/kind"
	"github.com/san-kum/bouncebox/internal/params"
	"github.com/san-kum/bouncebox/internal/sim"
)

const (
	canvasCols      = 60
	canvasRows      = 18
	historyCapacity = 300
	refresh         = time.Second / 30
	barWidth        = 12
)

// Spectrum reports band levels of the audio output. Update must be called
// from a single goroutine.
type Spectrum interface {
	Update() bool
	Bands() (bass, mid, high float64)
}

// tunable are the parameters adjustable from the monitor.
var tunable = []params.ID{
	params.Gravity,
	params.Wind,
	params.PopulationCap,
	params.VortexStrength,
	params.VortexSpin,
	params.InertialScale,
	params.StrokeThickness,
}

type TickMsg time.Time

// Options configures the monitor.
type Options struct {
	Title       string
	WorldWidth  float64
	WorldHeight float64
	Theme       string
	Params      *params.Store // nil disables tuning
	Spectrum    Spectrum      // nil hides the band meters
}

// Model is the bubbletea monitor. It only reads telemetry; parameter tuning
// goes through the shared params store.
type Model struct {
	frame func() *sim.Frame
	opts  Options

	theme  Theme
	styles styles
	canvas *Canvas

	paused   bool
	showHelp bool
	selected int

	last      *sim.Frame
	lastTick  uint64
	lastHits  uint64
	counts    []float64
	hitRates  []float64
	bands     [3]float64
	haveBands bool
}

// NewModel returns a monitor reading frames from frame.
func NewModel(frame func() *sim.Frame, opts Options) Model {
	if opts.Title == "" {
		opts.Title = "bouncebox"
	}
	t := ThemeByName(opts.Theme)
	c := NewCanvas(canvasCols, canvasRows)
	c.Fit(opts.WorldWidth, opts.WorldHeight)
	return Model{
		frame:  frame,
		opts:   opts,
		theme:  t,
		styles: newStyles(t),
		canvas: c,
		last:   &sim.Frame{},
	}
}

func tick() tea.Cmd {
	return tea.Tick(refresh, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd { return tick() }

// Update handles keys and polls the telemetry frame.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "tab":
			m.selected = (m.selected + 1) % len(tunable)
		case "up", "k":
			m.adjust(1)
		case "down", "j":
			m.adjust(-1)
		case "t":
			m.theme = nextTheme(m.theme.Name)
			m.styles = newStyles(m.theme)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		if m.opts.Spectrum != nil && m.opts.Spectrum.Update() {
			m.bands[0], m.bands[1], m.bands[2] = m.opts.Spectrum.Bands()
			m.haveBands = true
		}
		if !m.paused {
			m.observe(m.frame())
		}
		return m, tick()
	}
	return m, nil
}

// adjust moves the selected parameter by 2% of its range.
func (m *Model) adjust(dir float64) {
	if m.opts.Params == nil {
		return
	}
	id := tunable[m.selected]
	spec := params.SpecOf(id)
	step := (spec.Max - spec.Min) / 50
	if id == params.PopulationCap {
		step = 1
	}
	m.opts.Params.Set(id, m.opts.Params.Get(id)+dir*step)
}

func (m *Model) observe(f *sim.Frame) {
	if f == nil || f.Tick == m.lastTick {
		return
	}
	hits := f.Hits - min(f.Hits, m.lastHits)
	m.last, m.lastTick, m.lastHits = f, f.Tick, f.Hits

	m.counts = appendCapped(m.counts, float64(f.Count()))
	m.hitRates = appendCapped(m.hitRates, float64(hits))

	m.canvas.Clear()
	for _, s := range f.Strokes {
		for i := 1; i < len(s.Points); i++ {
			m.canvas.Line(s.Points[i-1], s.Points[i])
		}
	}
	for _, o := range f.Objects {
		if len(o.Vertices) > 0 {
			m.canvas.Polygon(o.Position, o.Angle, o.Vertices)
		} else {
			m.canvas.Circle(o.Position, o.Radius)
		}
	}
	for _, v := range f.Vortices {
		m.canvas.Circle(v.Position, 0.15)
	}
	m.canvas.Point(f.SpawnPoint)
}

func appendCapped(xs []float64, v float64) []float64 {
	xs = append(xs, v)
	if len(xs) > historyCapacity {
		xs = xs[len(xs)-historyCapacity:]
	}
	return xs
}

func (m Model) row(label, value string) string {
	return m.styles.label.Render(label) + m.styles.value.Render(value) + "\n"
}

// View renders the canvas and the stats panel.
func (m Model) View() string {
	f := m.last
	st := m.styles

	var s strings.Builder
	status := "RUNNING"
	if m.paused {
		status = "PAUSED"
	}
	s.WriteString(st.header.Render(strings.ToUpper(m.opts.Title)+"  "+status) + "\n")
	s.WriteString(m.row("Time", fmt.Sprintf("%.1fs  tick %d", f.Time, f.Tick)))
	s.WriteString(m.row("Objects", fmt.Sprintf("%d  (evicted %d)", f.Count(), f.Evicted)))
	s.WriteString(m.row("Strokes", fmt.Sprintf("%d", len(f.Strokes))))
	s.WriteString(m.row("Forces", fmt.Sprintf("%d vortices, %d emitters", len(f.Vortices), len(f.Emitters))))
	s.WriteString(m.row("Hits", fmt.Sprintf("%d  (cooled %d)", f.Hits, f.Cooled)))
	s.WriteString(m.row("Drops", fmt.Sprintf("%d", f.Drops.Total())))
	s.WriteString(m.row("Gravity/Wind", fmt.Sprintf("%.2f / %.2f", f.Gravity, f.Env.Wind)))
	s.WriteString(m.row("Hit rate", sparkline(m.hitRates, 24)))

	if len(m.counts) > 1 {
		chart := asciigraph.Plot(m.counts, asciigraph.Height(4), asciigraph.Width(32), asciigraph.Caption("objects"))
		s.WriteString(st.graph.Render(chart) + "\n")
	}

	s.WriteString("\nCV OUTPUTS\n")
	for k := kind.Shape(0); int(k) < kind.NumShapes; k++ {
		for fl := cv.Field(0); fl < cv.NumFields; fl++ {
			i := cv.OutputIndex(k, fl)
			v := float64(f.CV[i])
			level := v
			if fl == cv.VelX || fl == cv.VelY {
				level = (v + 1) / 2
			}
			s.WriteString(st.label.Render(cv.OutputName(i)) + st.bar(level, barWidth) + st.value.Render(fmt.Sprintf(" %+.2f", v)) + "\n")
		}
	}

	if m.haveBands {
		s.WriteString("\nSPECTRUM\n")
		for i, name := range [3]string{"bass", "mid", "high"} {
			s.WriteString(st.label.Render(name) + st.bar(m.bands[i], barWidth) + "\n")
		}
	}

	if m.opts.Params != nil {
		s.WriteString("\nPARAMETERS\n")
		for i, id := range tunable {
			line := fmt.Sprintf("%-16s %8.2f", id, m.opts.Params.Get(id))
			if i == m.selected {
				s.WriteString(st.active.Render("> "+line) + "\n")
			} else {
				s.WriteString("  " + st.label.Width(0).Render(line) + "\n")
			}
		}
	}

	s.WriteString(st.help.Render("SP:Pause Q:Quit T:Theme ?:Help\nTab:Param ↑↓:Tune"))

	view := lipgloss.JoinHorizontal(lipgloss.Top, st.canvas.Render(m.canvas.String()), st.panel.Render(s.String()))
	if m.showHelp {
		return helpText + "\n" + view
	}
	return view
}

const helpText = `  Space   pause the view (the sandbox keeps running)
  Tab     select parameter
  Up/K    increase parameter
  Down/J  decrease parameter
  T       cycle themes
  Q       quit`

// Run starts the monitor on the terminal and blocks until it exits.
func Run(frame func() *sim.Frame, opts Options) error {
	_, err := tea.NewProgram(NewModel(frame, opts), tea.WithAltScreen()).Run()
	return err
}
