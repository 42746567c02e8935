package jobs

import (
	"encoding/json"
	"strings"

	"studio/internal/domain"
)

const defaultFailureMessage = "provider reported failure"

// State is the poller's view of one job. It only moves forward:
// starting -> processing -> {succeeded | failed}, or timed_out when the
// attempt budget is exhausted.
type State struct {
	Status  domain.JobStatus
	Output  json.RawMessage
	Message string
}

// InitialState is the state of a freshly submitted job.
func InitialState() State {
	return State{Status: domain.JobStatusStarting}
}

// Transition folds one provider snapshot into the current state. Terminal
// states absorb every further snapshot.
func Transition(s State, snap Snapshot) State {
	if s.Status.IsTerminal() {
		return s
	}
	switch snap.Status {
	case domain.JobStatusSucceeded:
		return State{Status: domain.JobStatusSucceeded, Output: snap.Output}
	case domain.JobStatusFailed:
		msg := strings.TrimSpace(snap.Error)
		if msg == "" {
			msg = defaultFailureMessage
		}
		return State{Status: domain.JobStatusFailed, Message: msg}
	case domain.JobStatusStarting:
		// A late "starting" never moves a processing job backwards.
		if s.Status == domain.JobStatusProcessing {
			return s
		}
		return State{Status: domain.JobStatusStarting}
	default:
		return State{Status: domain.JobStatusProcessing}
	}
}

// Exhaust marks a non-terminal state as timed out.
func Exhaust(s State) State {
	if s.Status.IsTerminal() {
		return s
	}
	return State{Status: domain.JobStatusTimedOut}
}
