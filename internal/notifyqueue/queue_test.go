package notifyqueue

import (
	"errors"
	"testing"
)

func TestDecide(t *testing.T) {
	t.Parallel()

	failure := errors.New("smtp down")
	tests := []struct {
		name       string
		err        error
		permanent  bool
		attempts   uint64
		maxDeliver int
		want       Outcome
	}{
		{name: "success", attempts: 1, maxDeliver: 3, want: OutcomeAck},
		{name: "transient", err: failure, attempts: 1, maxDeliver: 3, want: OutcomeRetry},
		{name: "permanent", err: failure, permanent: true, attempts: 1, maxDeliver: 3, want: OutcomeDrop},
		{name: "final attempt", err: failure, attempts: 3, maxDeliver: 3, want: OutcomeExhausted},
		{name: "unbounded", err: failure, attempts: 100, maxDeliver: -1, want: OutcomeRetry},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := Decide(tt.err, tt.permanent, tt.attempts, tt.maxDeliver); got != tt.want {
				t.Fatalf("Decide()=%s want %s", got, tt.want)
			}
		})
	}
}
