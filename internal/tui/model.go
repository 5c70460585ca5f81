// Package tui is the terminal front end of the coach: live status, the
// sets and reps form and keyboard control.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ayusman/repcoach/internal/app"
	"github.com/ayusman/repcoach/internal/workout"
)

const (
	actionTimeout = 2 * time.Second
	maxInputLen   = 3
	barWidth      = 30
)

// Coach is the part of app.App the TUI drives.
type Coach interface {
	Snapshot() app.Snapshot
	Subscribe() (<-chan app.Snapshot, func())
	Calibrate(ctx context.Context) error
	CancelCalibration(ctx context.Context) error
	StartWorkoutInput(ctx context.Context, sets, reps string) error
}

type field int

const (
	fieldSets field = iota
	fieldReps
)

// shared holds what every copy of the value-receiver Model must agree on.
type shared struct {
	coach       Coach
	updates     <-chan app.Snapshot
	unsubscribe func()
}

// Model is the root Bubble Tea model.
type Model struct {
	width  int
	height int

	snap    app.Snapshot
	sets    string
	reps    string
	focus   field
	message string

	shared *shared
}

// New subscribes to coach and pre-fills the form with its current plan.
func New(coach Coach) Model {
	updates, unsubscribe := coach.Subscribe()
	snap := coach.Snapshot()
	return Model{
		snap: snap,
		sets: strconv.Itoa(snap.Plan.Sets),
		reps: strconv.Itoa(snap.Plan.RepsPerSet),
		shared: &shared{
			coach:       coach,
			updates:     updates,
			unsubscribe: unsubscribe,
		},
	}
}

// Run starts the terminal program and blocks until the user quits or ctx
// is cancelled.
func Run(ctx context.Context, coach Coach) error {
	m := New(coach)
	defer m.shared.unsubscribe()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}

func (m Model) Init() tea.Cmd {
	return waitForSnapshot(m.shared.updates)
}

func waitForSnapshot(updates <-chan app.Snapshot) tea.Cmd {
	return func() tea.Msg {
		snap, ok := <-updates
		if !ok {
			return ClosedMsg{}
		}
		return SnapshotMsg(snap)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case SnapshotMsg:
		prev := m.snap.State
		m.snap = app.Snapshot(msg)
		if prev != m.snap.State {
			m.message = ""
		}
		return m, waitForSnapshot(m.shared.updates)

	case ActionMsg:
		if msg.Err != nil {
			m.message = feedbackFor(msg.Err)
		} else {
			m.message = ""
		}
		return m, nil

	case ClosedMsg:
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit

	case "q", "Q", "esc":
		// q ends calibration early, as in the camera window.
		if m.snap.State == workout.StateCalibrating {
			return m, m.action("cancel", func(ctx context.Context) error {
				return m.shared.coach.CancelCalibration(ctx)
			})
		}
		return m, tea.Quit

	case "c", "C":
		return m, m.action("calibrate", m.shared.coach.Calibrate)

	case "s", "S", "enter":
		sets, reps := m.sets, m.reps
		return m, m.action("start", func(ctx context.Context) error {
			return m.shared.coach.StartWorkoutInput(ctx, sets, reps)
		})

	case "tab", "shift+tab", "up", "down":
		if m.focus == fieldSets {
			m.focus = fieldReps
		} else {
			m.focus = fieldSets
		}

	case "backspace":
		m.setInput(trimLast(m.input()))

	default:
		if msg.Type == tea.KeyRunes {
			text := m.input() + string(msg.Runes)
			if len(text) <= maxInputLen {
				m.setInput(text)
			}
		}
	}

	return m, nil
}

func (m Model) action(name string, fn func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return ActionMsg{Action: name, Err: fn(ctx)}
	}
}

func (m Model) input() string {
	if m.focus == fieldSets {
		return m.sets
	}
	return m.reps
}

func (m *Model) setInput(s string) {
	if m.focus == fieldSets {
		m.sets = s
	} else {
		m.reps = s
	}
}

func trimLast(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(r[:len(r)-1])
}

func feedbackFor(err error) string {
	if msg := workout.Feedback(err); msg != "" {
		return msg
	}
	return err.Error()
}

func (m Model) View() string {
	width := m.width
	if width <= 0 {
		width = 60
	}

	var b strings.Builder
	b.WriteString(StyleTitleBar.Width(width).Render("RepCoach " + stateBadge(m.snap.State)))
	b.WriteString("\n\n")

	b.WriteString(StylePanel.Width(width - 2).Render(m.statusPanel()))
	b.WriteString("\n")

	b.WriteString(m.form())
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(StyleError.Render(m.message))
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(StyleHelp.Render(m.help()))
	return b.String()
}

func stateBadge(s workout.State) string {
	style, ok := stateStyles[string(s)]
	if !ok {
		style = StyleValue
	}
	return style.Render(strings.ToUpper(string(s)))
}

func (m Model) statusPanel() string {
	s := m.snap
	var lines []string

	angle := "--"
	if s.HasAngle {
		angle = fmt.Sprintf("%.0f°", s.Angle)
	}
	depth := "not calibrated"
	if s.Calibrated {
		depth = fmt.Sprintf("%.0f°", s.Threshold)
	}
	lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top,
		StyleLabel.Render("Knee "), StyleAngle.Render(angle),
		StyleLabel.Render("   Stage "), StyleValue.Render(string(s.Stage)),
		StyleLabel.Render("   Depth "), StyleValue.Render(depth),
	))

	if !m.snap.PoseDetected && (s.State == workout.StateActive || s.State == workout.StateCalibrating) {
		lines = append(lines, StyleLabel.Render("no pose"))
	}

	switch s.State {
	case workout.StateCalibrating:
		lines = append(lines, StyleAngle.Render(fmt.Sprintf("%d", s.CalibrationRemaining)))
	case workout.StateResting:
		lines = append(lines, StyleValue.Render(fmt.Sprintf("Rest %ds", s.RestRemaining)))
	}

	if s.Feedback != "" {
		lines = append(lines, StyleFeedback.Render(s.Feedback))
	}
	if s.Info != "" {
		lines = append(lines, StyleInfo.Render(s.Info))
	}
	if s.State == workout.StateActive || s.State == workout.StateResting || s.State == workout.StateComplete {
		lines = append(lines, progressBar(s.Ratio, barWidth))
	}
	return strings.Join(lines, "\n")
}

func (m Model) form() string {
	render := func(f field, label, value string) string {
		style := StyleInput
		if m.focus == f {
			style = StyleInputFocused
		}
		if value == "" {
			value = " "
		}
		return StyleLabel.Render(label) + style.Render(value)
	}
	return render(fieldSets, "Sets ", m.sets) + "   " + render(fieldReps, "Reps ", m.reps)
}

func (m Model) help() string {
	keys := []string{}
	if m.snap.CanCalibrate {
		keys = append(keys, "c calibrate")
	}
	if m.snap.State == workout.StateCalibrating {
		keys = append(keys, "q finish calibration")
	}
	if m.snap.CanStart {
		keys = append(keys, "s start")
	}
	keys = append(keys, "tab switch field")
	if m.snap.State != workout.StateCalibrating {
		keys = append(keys, "q quit")
	}
	return strings.Join(keys, " • ")
}

// progressBar renders ratio in [0,1] as a bar of width cells followed by a
// percentage.
func progressBar(ratio float64, width int) string {
	if ratio < 0 {
		ratio = 0
	}
	if ratio > 1 {
		ratio = 1
	}
	filled := int(ratio * float64(width))
	return StyleBarFilled.Render(strings.Repeat("█", filled)) +
		StyleBarEmpty.Render(strings.Repeat("░", width-filled)) +
		fmt.Sprintf(" %3.0f%%", ratio*100)
}
