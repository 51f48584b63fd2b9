package domain_test

import (
	"testing"

	"tripmate/internal/domain"
)

func TestRequestStateMachine(t *testing.T) {
	terminal := []domain.RequestStatus{
		domain.StatusApproved, domain.StatusRejected, domain.StatusCancelled,
	}

	for _, to := range terminal {
		if !domain.StatusPending.CanTransition(to) {
			t.Fatalf("pending -> %s should be allowed", to)
		}
	}
	if domain.StatusPending.Terminal() {
		t.Fatal("pending is not terminal")
	}

	// No transition leaves a terminal state.
	for _, from := range terminal {
		if !from.Terminal() {
			t.Fatalf("%s should be terminal", from)
		}
		for _, to := range append(terminal, domain.StatusPending) {
			if from.CanTransition(to) {
				t.Fatalf("%s -> %s should be rejected", from, to)
			}
		}
	}
}
