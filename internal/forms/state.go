// Package forms models a single record form: its edit state machine, the
// pending logo selection and the registry of forms that are still open.
package forms

import "fmt"

// State is the lifecycle position of a form.
type State int

const (
	Pristine State = iota
	Dirty
	Submitting
	Succeeded
	Failed
)

func (s State) String() string {
	switch s {
	case Pristine:
		return "pristine"
	case Dirty:
		return "dirty"
	case Submitting:
		return "submitting"
	case Succeeded:
		return "succeeded"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// transitions lists every legal move. Failed is transient: a failed submit
// always returns the form to Dirty so the user can retry.
var transitions = map[State][]State{
	Pristine:   {Dirty},
	Dirty:      {Submitting},
	Submitting: {Succeeded, Failed},
	Failed:     {Dirty},
}

func canMove(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Mode tells whether the form creates a new record or edits an existing one.
type Mode int

const (
	Create Mode = iota
	Edit
)

func (m Mode) String() string {
	if m == Edit {
		return "edit"
	}
	return "create"
}
