// Package tui renders live loudness readings as a coloured terminal meter.
package tui

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"levels/internal/engine"
	"levels/internal/meter"
	"levels/internal/transport"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Range of the bar, in dB. Readings below the floor show an empty bar.
const (
	barFloor = -60
	barWidth = 40

	requestTimeout = 5 * time.Second
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))

	faintStyle = lipgloss.NewStyle().Faint(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF4040")).
			Bold(true)

	bandColors = [len(meter.Bands)]lipgloss.Color{
		meter.Blue:    lipgloss.Color("#4169E1"),
		meter.SkyBlue: lipgloss.Color("#87CEEB"),
		meter.Green:   lipgloss.Color("#25A065"),
		meter.Yellow:  lipgloss.Color("#FFD700"),
		meter.Red:     lipgloss.Color("#FF4040"),
	}
)

// BandStyle returns the style a reading in band b is drawn with.
func BandStyle(b meter.Band) lipgloss.Style {
	style := lipgloss.NewStyle().Bold(true)
	if b >= 0 && int(b) < len(bandColors) {
		style = style.Foreground(bandColors[b])
	}
	return style
}

// Controller is the part of the control actor the meter drives.
type Controller interface {
	Start(ctx context.Context, responder transport.Responder) error
	Stop(ctx context.Context) error
	Status(ctx context.Context) (engine.Status, error)
}

// ReadingMsg carries one reading into the program.
type ReadingMsg meter.Reading

type startedMsg struct {
	status engine.Status
	err    error
}

type stoppedMsg struct {
	err error
}

type keyMap struct {
	Toggle key.Binding
	Quit   key.Binding
}

var keys = keyMap{
	Toggle: key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "start/stop")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// MeterModel is the Bubble Tea model of the meter screen.
type MeterModel struct {
	ctrl      Controller
	responder transport.Responder

	reading    meter.Reading
	hasReading bool
	running    bool
	pending    bool // a start or stop is in flight
	status     engine.Status
	err        error

	bar progress.Model
}

// NewMeterModel creates a meter that starts metering through ctrl as soon as
// the program starts, delivering readings to responder.
func NewMeterModel(ctrl Controller, responder transport.Responder) *MeterModel {
	return &MeterModel{
		ctrl:      ctrl,
		responder: responder,
		bar: progress.New(
			progress.WithSolidFill(string(bandColors[meter.Green])),
			progress.WithWidth(barWidth),
			progress.WithoutPercentage(),
		),
	}
}

// Init starts metering.
func (m *MeterModel) Init() tea.Cmd {
	m.pending = true
	return m.start
}

func (m *MeterModel) start() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	if err := m.ctrl.Start(ctx, m.responder); err != nil {
		return startedMsg{err: err}
	}
	status, err := m.ctrl.Status(ctx)
	return startedMsg{status: status, err: err}
}

func (m *MeterModel) stop() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()
	return stoppedMsg{err: m.ctrl.Stop(ctx)}
}

// Update handles readings, control results and keys.
func (m *MeterModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.bar.Width = max(10, min(msg.Width-20, barWidth))

	case ReadingMsg:
		// Readings queued before a stop may still arrive.
		if !m.running {
			return m, nil
		}
		m.reading = meter.Reading(msg)
		m.hasReading = true

	case startedMsg:
		m.pending = false
		m.err = msg.err
		m.running = msg.err == nil
		m.status = msg.status

	case stoppedMsg:
		m.pending = false
		m.err = msg.err
		if msg.err == nil {
			m.running = false
			m.hasReading = false
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			if m.pending {
				return m, nil
			}
			m.pending = true
			if m.running {
				return m, m.stop
			}
			return m, m.start
		}
	}

	return m, nil
}

// View renders the meter.
func (m *MeterModel) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render("Levels"))
	s.WriteString("\n\n")

	switch {
	case m.hasReading:
		style := BandStyle(m.reading.Band)
		s.WriteString(style.Render(fmt.Sprintf("%8s dB", transport.FormatDecibel(m.reading.Decibel))))
		s.WriteString("  ")
		s.WriteString(m.bar.ViewAs(BarPercent(m.reading.Decibel)))
	case m.running:
		s.WriteString(faintStyle.Render("Listening..."))
	default:
		s.WriteString(faintStyle.Render("Stopped"))
	}
	s.WriteString("\n\n")

	if m.running && m.status.Device.Name != "" {
		cfg := m.status.Config
		s.WriteString(faintStyle.Render(fmt.Sprintf("%s · %d Hz · %d ch · %s",
			m.status.Device.Name, cfg.SampleRate, cfg.Channels, cfg.Format)))
		s.WriteString("\n")
	}
	if m.err != nil {
		s.WriteString(errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(infoStyle.Render("space: Start/Stop • q: Quit"))
	return s.String()
}

// BarPercent maps a reading onto the bar, 0 at barFloor dB and 1 at 0 dB.
func BarPercent(decibel int32) float64 {
	if decibel == math.MinInt32 || decibel <= barFloor {
		return 0
	}
	if decibel >= 0 {
		return 1
	}
	return float64(decibel-barFloor) / -barFloor
}

// programResponder forwards readings into a running program.
type programResponder struct {
	p *tea.Program
}

func (r programResponder) Deliver(decibel int32, band meter.Band) {
	r.p.Send(ReadingMsg{Decibel: decibel, Band: band})
}

// Run shows the meter until the user quits or ctx is cancelled. Readings flow
// from the controller's engine into the program through a Responder; also is
// called for every reading, and may be nil.
func Run(ctx context.Context, ctrl Controller, also transport.Responder) error {
	m := NewMeterModel(ctrl, nil)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	var responder transport.Responder = programResponder{p: p}
	if also != nil {
		responder = transport.Multi{responder, also}
	}
	m.responder = responder

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
