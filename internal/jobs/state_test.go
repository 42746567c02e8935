package jobs

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"studio/internal/domain"
)

func TestTransition(t *testing.T) {
	t.Parallel()
	output := jsonRaw("https://x/img.png")
	cases := []struct {
		name    string
		from    State
		snap    Snapshot
		want    domain.JobStatus
		message string
	}{
		{name: "starting stays starting", from: InitialState(), snap: Snapshot{Status: domain.JobStatusStarting}, want: domain.JobStatusStarting},
		{name: "starting to processing", from: InitialState(), snap: Snapshot{Status: domain.JobStatusProcessing}, want: domain.JobStatusProcessing},
		{name: "processing never goes back", from: State{Status: domain.JobStatusProcessing}, snap: Snapshot{Status: domain.JobStatusStarting}, want: domain.JobStatusProcessing},
		{name: "starting straight to success", from: InitialState(), snap: Snapshot{Status: domain.JobStatusSucceeded, Output: output}, want: domain.JobStatusSucceeded},
		{name: "failure keeps message", from: State{Status: domain.JobStatusProcessing}, snap: Snapshot{Status: domain.JobStatusFailed, Error: "nsfw"}, want: domain.JobStatusFailed, message: "nsfw"},
		{name: "failure without message", from: InitialState(), snap: Snapshot{Status: domain.JobStatusFailed}, want: domain.JobStatusFailed, message: defaultFailureMessage},
		{name: "terminal absorbs", from: State{Status: domain.JobStatusFailed, Message: "x"}, snap: Snapshot{Status: domain.JobStatusSucceeded}, want: domain.JobStatusFailed, message: "x"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got := Transition(tc.from, tc.snap)
			assert.Equal(t, tc.want, got.Status)
			assert.Equal(t, tc.message, got.Message)
		})
	}
}

func TestTransitionKeepsOutputOnSuccess(t *testing.T) {
	t.Parallel()
	got := Transition(InitialState(), Snapshot{Status: domain.JobStatusSucceeded, Output: jsonRaw([]string{"a", "b"})})
	assert.JSONEq(t, `["a","b"]`, string(got.Output))
}

func TestExhaust(t *testing.T) {
	t.Parallel()
	assert.Equal(t, domain.JobStatusTimedOut, Exhaust(State{Status: domain.JobStatusProcessing}).Status)
	assert.Equal(t, domain.JobStatusTimedOut, Exhaust(InitialState()).Status)
	assert.Equal(t, domain.JobStatusSucceeded, Exhaust(State{Status: domain.JobStatusSucceeded}).Status)
}
