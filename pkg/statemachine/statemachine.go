package statemachine

import (
	"fmt"
	"sort"
)

// Transition moves an entity from From to To when Event happens.
type Transition[S, E ~string] struct {
	From  S
	Event E
	To    S
}

// Table is an immutable transition table shared by all entities of one
// kind. Entity state lives in the database; the table only answers which
// moves are legal.
type Table[S, E ~string] struct {
	transitions map[S]map[E]S
}

// New builds a table. Registering the same (from, event) pair twice is an
// error since the target would be ambiguous.
func New[S, E ~string](transitions ...Transition[S, E]) (*Table[S, E], error) {
	t := &Table[S, E]{transitions: make(map[S]map[E]S)}
	for _, tr := range transitions {
		if tr.Event == "" {
			return nil, ErrInvalidTransition
		}
		events, ok := t.transitions[tr.From]
		if !ok {
			events = make(map[E]S)
			t.transitions[tr.From] = events
		}
		if _, dup := events[tr.Event]; dup {
			return nil, fmt.Errorf("%w: %q on %q", ErrDuplicateTransition, tr.From, tr.Event)
		}
		events[tr.Event] = tr.To
	}
	return t, nil
}

// MustNew is New that panics, for tables declared as package variables.
func MustNew[S, E ~string](transitions ...Transition[S, E]) *Table[S, E] {
	t, err := New(transitions...)
	if err != nil {
		panic(fmt.Sprintf("failed to create state machine: %v", err))
	}
	return t
}

// Next returns the state reached from `from` on ev.
func (t *Table[S, E]) Next(from S, ev E) (S, error) {
	if to, ok := t.transitions[from][ev]; ok {
		return to, nil
	}
	var zero S
	return zero, NewErrNoTransitionAvailable(string(from), string(ev))
}

func (t *Table[S, E]) Can(from S, ev E) bool {
	_, ok := t.transitions[from][ev]
	return ok
}

// Events lists the events accepted in state from, sorted.
func (t *Table[S, E]) Events(from S) []E {
	events := make([]E, 0, len(t.transitions[from]))
	for ev := range t.transitions[from] {
		events = append(events, ev)
	}
	sort.Slice(events, func(i, j int) bool { return events[i] < events[j] })
	return events
}
