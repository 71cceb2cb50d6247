package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/liepid/internal/lie"
	"github.com/san-kum/liepid/internal/sim"
)

const (
	historyLen = 120
	plotHeight = 6
	maxSpeed   = 64
	gainStep   = 1.25
	// minGain is where a zero gain starts when increased.
	minGain = 0.1
)

// Stepper advances a closed loop one tick at a time.
type Stepper interface {
	Step() sim.Sample
	Time() float64
	Valid() bool
}

// Tuner is implemented by steppers whose gains can change mid-run.
type Tuner interface {
	Gain(name string) (lie.Tangent, error)
	SetGain(name string, k lie.Tangent) error
}

// Gain keys: lower case decreases, upper case increases.
var gainKeys = map[string]struct {
	name   string
	factor float64
}{
	"p": {"kp", 1 / gainStep}, "P": {"kp", gainStep},
	"d": {"kd", 1 / gainStep}, "D": {"kd", gainStep},
	"i": {"ki", 1 / gainStep}, "I": {"ki", gainStep},
}

type tickMsg time.Time

type Model struct {
	title    string
	stepper  Stepper
	dt       float64
	duration float64
	frame    time.Duration
	speed    int

	errHist []float64
	uHist   []float64
	last    sim.Sample
	tuneErr error
	peak    float64

	paused   bool
	done     bool
	diverged bool
	width    int
}

// NewModel creates a live view that runs st for duration seconds with
// timestep dt, redrawing fps times per second.
func NewModel(title string, st Stepper, dt, duration float64, fps int) Model {
	if fps <= 0 {
		fps = 30
	}
	return Model{
		title:    title,
		stepper:  st,
		dt:       dt,
		duration: duration,
		frame:    time.Second / time.Duration(fps),
		speed:    1,
		width:    80,
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(m.frame, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Init() tea.Cmd { return m.tick() }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "+", "=":
			if m.speed < maxSpeed {
				m.speed *= 2
			}
		case "-":
			if m.speed > 1 {
				m.speed /= 2
			}
		default:
			if k, ok := gainKeys[msg.String()]; ok {
				m.tune(k.name, k.factor)
			}
		}
		return m, nil
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tickMsg:
		if !m.paused && !m.done {
			m.advance()
		}
		return m, m.tick()
	}
	return m, nil
}

// advance runs the ticks that fit in one frame of wall time.
func (m *Model) advance() {
	n := int(math.Max(1, math.Round(m.frame.Seconds()/m.dt))) * m.speed
	for i := 0; i < n; i++ {
		if m.stepper.Time() >= m.duration-m.dt/2 {
			m.done = true
			return
		}
		s := m.stepper.Step()
		m.record(s)
		if !m.stepper.Valid() {
			m.done, m.diverged = true, true
			return
		}
	}
}

func (m *Model) tune(name string, factor float64) {
	t, ok := m.stepper.(Tuner)
	if !ok {
		return
	}
	k, err := t.Gain(name)
	if err != nil {
		m.tuneErr = err
		return
	}
	for i := range k {
		k[i] *= factor
		if k[i] == 0 && factor > 1 {
			k[i] = minGain
		}
	}
	m.tuneErr = t.SetGain(name, k)
}

func (m *Model) record(s sim.Sample) {
	m.last = s
	e := s.Err.Norm()
	m.peak = math.Max(m.peak, e)
	m.errHist = appendBounded(m.errHist, e)
	m.uHist = appendBounded(m.uHist, s.U.Norm())
}

func appendBounded(h []float64, v float64) []float64 {
	h = append(h, v)
	if len(h) > historyLen {
		h = h[len(h)-historyLen:]
	}
	return h
}

func (m Model) View() string {
	var b strings.Builder

	status := StatusRunning.Render("RUNNING")
	switch {
	case m.diverged:
		status = StatusFailed.Render("DIVERGED")
	case m.done:
		status = StatusPaused.Render("DONE")
	case m.paused:
		status = StatusPaused.Render("PAUSED")
	}
	fmt.Fprintf(&b, "%s  %s  x%d\n", Title.Render(m.title), status, m.speed)

	progress := 0.0
	if m.duration > 0 {
		progress = m.stepper.Time() / m.duration
	}
	fmt.Fprintf(&b, "%s %5.2fs / %.2fs\n\n", ProgressBar(progress, 30), m.stepper.Time(), m.duration)

	fmt.Fprintf(&b, "%s   %s   %s\n",
		Metric("error", fmt.Sprintf("%.4f", m.last.Err.Norm())),
		Metric("peak", fmt.Sprintf("%.4f", m.peak)),
		Metric("|u|", fmt.Sprintf("%.4f", m.last.U.Norm())),
	)
	fmt.Fprintf(&b, "%s\n%s\n\n",
		Metric("pose", formatVec(m.last.Coords)),
		Metric("integral", formatVec(m.last.Integral)),
	)

	hint := "space pause • +/- speed • q quit"
	if t, ok := m.stepper.(Tuner); ok {
		for _, name := range []string{"kp", "kd", "ki"} {
			if k, err := t.Gain(name); err == nil {
				fmt.Fprintf(&b, "%s   ", Metric(name, formatVec(k)))
			}
		}
		b.WriteString("\n")
		if m.tuneErr != nil {
			b.WriteString(StatusFailed.Render(m.tuneErr.Error()))
			b.WriteString("\n")
		}
		b.WriteString("\n")
		hint += " • p/P d/D i/I gains"
	}

	plotWidth := m.width - 12
	if plotWidth < 20 {
		plotWidth = 20
	}
	if len(m.errHist) > 1 {
		b.WriteString(Panel.Render(asciigraph.Plot(m.errHist,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("tracking error"),
		)))
		b.WriteString("\n")
		b.WriteString(Panel.Render(asciigraph.Plot(m.uHist,
			asciigraph.Height(plotHeight),
			asciigraph.Width(plotWidth),
			asciigraph.Caption("command magnitude"),
		)))
		b.WriteString("\n")
	}

	b.WriteString(KeyHint.Render(hint))
	return b.String()
}

func formatVec(v lie.Tangent) string {
	parts := make([]string, len(v))
	for i, x := range v {
		parts[i] = fmt.Sprintf("%+.3f", x)
	}
	return "[" + strings.Join(parts, " ") + "]"
}

// Run starts the live view and blocks until the user quits.
func Run(m Model) error {
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
