package streaks

import (
	"testing"
	"time"
)

func TestEvaluateFirstEntryStartsAtOne(t *testing.T) {
	now := time.Date(2025, 3, 10, 14, 30, 0, 0, time.UTC)
	current, outcome := Evaluate(nil, 0, now)
	if current != 1 || outcome != OutcomeAdvanced {
		t.Fatalf("got %d/%s, want 1/advanced", current, outcome)
	}
}

func TestEvaluateSameDayIsNoop(t *testing.T) {
	now := time.Date(2025, 3, 10, 22, 0, 0, 0, time.UTC)
	last := time.Date(2025, 3, 10, 1, 15, 0, 0, time.UTC)
	current, outcome := Evaluate(&last, 5, now)
	if current != 5 || outcome != OutcomeNoop {
		t.Fatalf("got %d/%s, want 5/noop", current, outcome)
	}
}

func TestEvaluateConsecutiveDayAdvances(t *testing.T) {
	now := time.Date(2025, 3, 11, 0, 5, 0, 0, time.UTC)
	last := time.Date(2025, 3, 10, 23, 55, 0, 0, time.UTC)
	current, outcome := Evaluate(&last, 5, now)
	if current != 6 || outcome != OutcomeAdvanced {
		t.Fatalf("got %d/%s, want 6/advanced", current, outcome)
	}
}

func TestEvaluateGapResets(t *testing.T) {
	now := time.Date(2025, 3, 12, 9, 0, 0, 0, time.UTC)
	last := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	current, outcome := Evaluate(&last, 12, now)
	if current != 1 || outcome != OutcomeReset {
		t.Fatalf("got %d/%s, want 1/reset", current, outcome)
	}
}

func TestEvaluateFutureStoredDateIsNoop(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	last := time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC)
	current, outcome := Evaluate(&last, 4, now)
	if current != 4 || outcome != OutcomeNoop {
		t.Fatalf("got %d/%s, want 4/noop", current, outcome)
	}
}

func TestEvaluateUsesUTCDays(t *testing.T) {
	// 23:30 in UTC-5 is already the next calendar day in UTC.
	loc := time.FixedZone("UTC-5", -5*60*60)
	now := time.Date(2025, 3, 10, 23, 30, 0, 0, loc)
	last := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	current, outcome := Evaluate(&last, 2, now)
	if current != 3 || outcome != OutcomeAdvanced {
		t.Fatalf("got %d/%s, want 3/advanced", current, outcome)
	}
}
