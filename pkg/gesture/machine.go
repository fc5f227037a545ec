// Package gesture turns press, move and release events into taps, drags and
// scale steps.
package gesture

import (
	"math"
	"time"

	"painter/pkg/view"
)

// TapTimeout is the longest press that still counts as a tap.
const TapTimeout = 500 * time.Millisecond

// State is the gesture phase.
type State int

const (
	Idle State = iota
	Pressed
	Dragging
	Scaling
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Pressed:
		return "pressed"
	case Dragging:
		return "dragging"
	case Scaling:
		return "scaling"
	}
	return "unknown"
}

// StepKind says what a move asks the selection to do.
type StepKind int

const (
	None StepKind = iota
	Drag
	Scale
)

// Step is the result of a move. For Drag, DX/DY are relative to the
// previous move; for Scale they are relative to the press point.
type Step struct {
	Kind   StepKind
	DX, DY float64
	// StartW and StartH are the selection size when scaling began.
	StartW, StartH float64
}

// Outcome is the result of a release.
type Outcome int

const (
	// Ignored: nothing to report (no press, or a tap on the scale handle).
	Ignored Outcome = iota
	// Tap: run hit testing at the press point.
	Tap
	// Finished: a drag or scale ended, or a long press.
	Finished
)

// Machine is the per-session gesture state. It is not safe for concurrent
// use; events for one session arrive serially.
type Machine struct {
	state     State
	x, y      float64
	startTime time.Time
	moved     bool
	startW    float64
	startH    float64
	now       func() time.Time
}

// NewMachine returns an idle machine. now may be nil for time.Now.
func NewMachine(now func() time.Time) *Machine {
	if now == nil {
		now = time.Now
	}
	return &Machine{now: now}
}

func (m *Machine) State() State { return m.state }

// Point returns the press point, or for a drag the last move point.
func (m *Machine) Point() (x, y float64) { return m.x, m.y }

// Press starts a gesture. onScale is true when the press landed on the
// selection's scale handle; w and h are then the selection's current size.
func (m *Machine) Press(x, y float64, onScale bool, w, h float64) {
	m.x, m.y = x, y
	m.startTime = m.now()
	m.moved = false
	if onScale {
		m.state = Scaling
		m.startW, m.startH = w, h
		return
	}
	m.state = Pressed
}

// Move records movement and returns the step to apply to the selection.
func (m *Machine) Move(x, y float64) Step {
	switch m.state {
	case Idle:
		return Step{}
	case Scaling:
		m.moved = true
		return Step{Kind: Scale, DX: x - m.x, DY: y - m.y, StartW: m.startW, StartH: m.startH}
	default:
		m.moved = true
		m.state = Dragging
		dx, dy := x-m.x, y-m.y
		m.x, m.y = x, y
		return Step{Kind: Drag, DX: dx, DY: dy}
	}
}

// Release ends the gesture and resets the machine to Idle.
func (m *Machine) Release() Outcome {
	if m.state == Idle {
		return Ignored
	}
	state, moved := m.state, m.moved
	elapsed := m.now().Sub(m.startTime)
	m.state = Idle
	m.moved = false

	if elapsed <= TapTimeout && !moved {
		if state == Scaling {
			return Ignored
		}
		return Tap
	}
	return Finished
}

// Reset drops any gesture in progress.
func (m *Machine) Reset() {
	m.state = Idle
	m.moved = false
}

// ScaleSize computes the new box for a scale step. Width never drops below
// 1. Text keeps its content height (hasHeight is false), images keep their
// aspect ratio and everything else follows dy.
func ScaleSize(kind view.Kind, startW, startH, dx, dy float64) (w, h float64, hasHeight bool) {
	w = math.Max(1, startW+dx)
	switch kind {
	case view.KindText:
		return w, 0, false
	case view.KindImage:
		if startW == 0 {
			return w, startH, true
		}
		return w, w * startH / startW, true
	default:
		return w, math.Max(1, startH+dy), true
	}
}
