package process

import (
	"errors"
	"fmt"
)

// State is the lifecycle state of a process slot.
type State string

const (
	// StateFree marks an unused slot.
	StateFree State = "free"
	// StateRunning is the active process of its terminal.
	StateRunning State = "running"
	// StateWaiting is blocked in execute until its child halts.
	StateWaiting State = "waiting"
)

// ErrInvalidTransition is returned for a transition not in ValidTransitions.
var ErrInvalidTransition = errors.New("invalid state transition")

// StateTransition represents a valid state transition.
type StateTransition struct {
	From State
	To   State
}

// ValidTransitions defines all valid state transitions.
var ValidTransitions = []StateTransition{
	// Loaded by execute: Free -> Running
	{From: StateFree, To: StateRunning},
	// Executes a child: Running -> Waiting
	{From: StateRunning, To: StateWaiting},
	// Child halted: Waiting -> Running
	{From: StateWaiting, To: StateRunning},
	// Halt: Running -> Free
	{From: StateRunning, To: StateFree},
}

// IsValidTransition checks if a state transition is valid.
func IsValidTransition(from, to State) bool {
	for _, t := range ValidTransitions {
		if t.From == from && t.To == to {
			return true
		}
	}
	return false
}

// TransitionTo moves p to state to.
func (p *PCB) TransitionTo(to State) error {
	if !IsValidTransition(p.State, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, p.State, to)
	}
	p.State = to
	return nil
}

// mustTransition is TransitionTo for kernel paths where an invalid
// transition is a bug.
func (p *PCB) mustTransition(to State) {
	if err := p.TransitionTo(to); err != nil {
		panic(fmt.Sprintf("process %v: %v", p, err))
	}
}
