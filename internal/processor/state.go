package processor

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// State is a step of a conversion. Values are ordered.
type State int

const (
	StateReceived State = iota
	StateDecoding
	StateNormalizing
	StateTabulating
	StateReprojecting
	StateSerialized
	StateSucceeded
	StateFailed
)

var stateNames = [...]string{
	StateReceived:     "Received",
	StateDecoding:     "Decoding",
	StateNormalizing:  "Normalizing",
	StateTabulating:   "Tabulating",
	StateReprojecting: "Reprojecting",
	StateSerialized:   "Serialized",
	StateSucceeded:    "Succeeded",
	StateFailed:       "Failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Terminal reports whether no further transition can follow s.
func (s State) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// Transition records entering a state.
type Transition struct {
	State State     `json:"state"`
	At    time.Time `json:"at"`
}

// machine tracks the state of one conversion.
// Transitions only move forward; Failed is reachable from any non-terminal state.
type machine struct {
	id          string
	state       State
	transitions []Transition
	now         func() time.Time
}

func newMachine(id string, now func() time.Time) *machine {
	m := &machine{id: id, state: StateReceived, now: now}
	m.transitions = []Transition{{State: StateReceived, At: now()}}
	return m
}

func (m *machine) to(next State) {
	if m.state.Terminal() {
		panic(fmt.Sprintf("conversion %s: transition from terminal state %s to %s", m.id, m.state, next))
	}
	if next != StateFailed && next <= m.state {
		panic(fmt.Sprintf("conversion %s: transition from %s back to %s", m.id, m.state, next))
	}

	log.Debug().
		Str("conversion_id", m.id).
		Stringer("from", m.state).
		Stringer("to", next).
		Msg("Conversion state changed")

	m.state = next
	m.transitions = append(m.transitions, Transition{State: next, At: m.now()})
}

func (m *machine) history() []Transition {
	return append([]Transition(nil), m.transitions...)
}
