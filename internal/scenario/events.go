package scenario

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/san-kum/pwrsim/internal/components"
	"github.com/san-kum/pwrsim/internal/logging"
	"github.com/san-kum/pwrsim/internal/neutronics"
	"github.com/san-kum/pwrsim/internal/plant"
)

// Event actions.
const (
	ActionTripPump  = "trip_pump"
	ActionStartPump = "start_pump"
	ActionScram     = "scram"
	ActionSetRods   = "set_rods"
	ActionSetValve  = "set_valve"
)

var ErrInvalidEvent = errors.New("scenario: invalid event")

// Event is an operator action applied once simulated time reaches At.
type Event struct {
	At     float64 `yaml:"at"`
	Action string  `yaml:"action"`
	Target string  `yaml:"target,omitempty"`
	Value  float64 `yaml:"value,omitempty"`
}

func (e Event) String() string {
	switch e.Action {
	case ActionSetRods:
		return fmt.Sprintf("t=%gs %s %.3f", e.At, e.Action, e.Value)
	case ActionSetValve:
		return fmt.Sprintf("t=%gs %s %s %.3f", e.At, e.Action, e.Target, e.Value)
	case ActionScram:
		return fmt.Sprintf("t=%gs %s", e.At, e.Action)
	}
	return fmt.Sprintf("t=%gs %s %s", e.At, e.Action, e.Target)
}

func (e Event) Validate() error {
	if e.At < 0 {
		return fmt.Errorf("%w: negative time %g", ErrInvalidEvent, e.At)
	}
	switch e.Action {
	case ActionScram:
	case ActionSetRods:
		if e.Value < 0 || e.Value > 1 {
			return fmt.Errorf("%w: rod position %g outside [0,1]", ErrInvalidEvent, e.Value)
		}
	case ActionTripPump, ActionStartPump, ActionSetValve:
		if e.Target == "" {
			return fmt.Errorf("%w: %s needs a target", ErrInvalidEvent, e.Action)
		}
	default:
		return fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, e.Action)
	}
	return nil
}

// Apply performs the event's action on state.
func (e Event) Apply(state plant.SimulationState) (plant.SimulationState, error) {
	switch e.Action {
	case ActionTripPump:
		return components.TripPump(state, e.Target)
	case ActionStartPump:
		return components.StartPump(state, e.Target)
	case ActionSetValve:
		return components.SetValve(state, e.Target, e.Value)
	case ActionSetRods:
		return components.SetRodPosition(state, e.Value), nil
	case ActionScram:
		return neutronics.TriggerScram(state, neutronics.ReasonManual), nil
	}
	return state, fmt.Errorf("%w: unknown action %q", ErrInvalidEvent, e.Action)
}

// Timeline fires events in time order as the run reaches them. It is a
// scheduler controller and keeps the index of the next pending event.
type Timeline struct {
	mu     sync.Mutex
	events []Event
	next   int
	logger *slog.Logger
}

func NewTimeline(events []Event, logger *slog.Logger) (*Timeline, error) {
	sorted := append([]Event(nil), events...)
	for _, e := range sorted {
		if err := e.Validate(); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].At < sorted[j].At })
	return &Timeline{events: sorted, logger: logging.OrNoop(logger)}, nil
}

// Control applies every pending event due at state.Time.
func (t *Timeline) Control(state plant.SimulationState) (plant.SimulationState, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	const eps = 1e-9
	for t.next < len(t.events) && t.events[t.next].At <= state.Time+eps {
		e := t.events[t.next]
		next, err := e.Apply(state)
		if err != nil {
			return state, fmt.Errorf("event %s: %w", e, err)
		}
		t.logger.Info("event applied", "time", state.Time, "event", e.String())
		state = next
		t.next++
	}
	return state, nil
}

// Pending returns the events not yet fired.
func (t *Timeline) Pending() []Event {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Event(nil), t.events[t.next:]...)
}

// Reset rearms every event.
func (t *Timeline) Reset() {
	t.mu.Lock()
	t.next = 0
	t.mu.Unlock()
}
