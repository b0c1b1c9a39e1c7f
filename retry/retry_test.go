package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/opencity-labs/ccat-memory-updater/log"
)

func testLogger() *log.Logger {
	return log.NewLogger("crawl-1", "sess-1").WithOutput(io.Discard)
}

// noSleep records requested delays without waiting.
func noSleep(delays *[]time.Duration) SleepFunc {
	return func(_ context.Context, d time.Duration) error {
		*delays = append(*delays, d)
		return nil
	}
}

// scriptedIngest fails each item until its scripted success attempt.
type scriptedIngest struct {
	succeedOn map[string]int // item -> attempt number that succeeds (0 = never)
	attempts  map[string]int
	calls     []string
}

func newScriptedIngest(succeedOn map[string]int) *scriptedIngest {
	return &scriptedIngest{
		succeedOn: succeedOn,
		attempts:  make(map[string]int),
	}
}

func (s *scriptedIngest) fn(_ context.Context, item string) error {
	s.attempts[item]++
	s.calls = append(s.calls, item)
	if target := s.succeedOn[item]; target > 0 && s.attempts[item] >= target {
		return nil
	}
	return errors.New("ingestion failed")
}

func TestRun_AllSucceedFirstAttempt(t *testing.T) {
	var delays []time.Duration
	ing := newScriptedIngest(map[string]int{"u1": 1, "u2": 1})

	result := Run(t.Context(), []string{"k1"}, []string{"u1", "u2"},
		Config{MaxAttempts: 3, Delay: time.Second, Sleep: noSleep(&delays)},
		ing.fn, testLogger())

	if result.Failed.Len() != 0 {
		t.Errorf("expected empty failed set, got %v", result.Failed.Items())
	}
	if result.SuccessCount != 2 {
		t.Errorf("expected 2 successes, got %d", result.SuccessCount)
	}
	if len(delays) != 0 {
		t.Errorf("expected no delay after full success on attempt 1, got %d delays", len(delays))
	}
	for _, item := range []string{"u1", "u2"} {
		if got := ing.attempts[item]; got != 1 {
			t.Errorf("%s: expected exactly 1 attempt, got %d", item, got)
		}
	}
}

func TestRun_BoundedAttempts(t *testing.T) {
	var delays []time.Duration
	ing := newScriptedIngest(map[string]int{"u1": 0}) // never succeeds

	result := Run(t.Context(), nil, []string{"u1"},
		Config{MaxAttempts: 3, Delay: 2 * time.Second, Sleep: noSleep(&delays)},
		ing.fn, testLogger())

	if got := ing.attempts["u1"]; got != 3 {
		t.Errorf("expected exactly 3 attempts, got %d", got)
	}
	if !result.Failed.Contains("u1") {
		t.Error("u1 should remain failed")
	}
	if result.SuccessCount != 0 {
		t.Errorf("expected 0 successes, got %d", result.SuccessCount)
	}
	// Delay between attempts, none after the last.
	if len(delays) != 2 {
		t.Errorf("expected 2 delays, got %d", len(delays))
	}
	if len(result.Errors) != 3 {
		t.Errorf("expected 3 recorded errors, got %d", len(result.Errors))
	}
}

func TestRun_PartitionInvariant(t *testing.T) {
	ing := newScriptedIngest(map[string]int{"u1": 2, "u2": 0, "u3": 1})

	kept := []string{"k1", "k2"}
	failed := []string{"u1", "u2", "u3"}
	result := Run(t.Context(), kept, failed,
		Config{MaxAttempts: 2}, ing.fn, testLogger())

	// final_kept ∪ final_failed = kept ∪ failed, disjoint.
	all := map[string]int{}
	for _, item := range result.Kept.Items() {
		all[item]++
	}
	for _, item := range result.Failed.Items() {
		all[item]++
	}
	for _, item := range append(kept, failed...) {
		if all[item] != 1 {
			t.Errorf("%s: appears %d times across final sets, want exactly 1", item, all[item])
		}
	}
	if len(all) != len(kept)+len(failed) {
		t.Errorf("final sets contain %d items, want %d", len(all), len(kept)+len(failed))
	}

	if !result.Kept.Contains("u1") || !result.Kept.Contains("u3") {
		t.Error("u1 and u3 should be promoted to kept")
	}
	if !result.Failed.Contains("u2") {
		t.Error("u2 should remain failed")
	}
	if result.SuccessCount != 2 {
		t.Errorf("expected 2 successes, got %d", result.SuccessCount)
	}
}

func TestRun_SnapshotOrderWithinAttempt(t *testing.T) {
	ing := newScriptedIngest(map[string]int{"u1": 2, "u2": 2, "u3": 2})

	Run(t.Context(), nil, []string{"u3", "u1", "u2"},
		Config{MaxAttempts: 2}, ing.fn, testLogger())

	want := []string{"u3", "u1", "u2", "u3", "u1", "u2"}
	if len(ing.calls) != len(want) {
		t.Fatalf("expected %d calls, got %d: %v", len(want), len(ing.calls), ing.calls)
	}
	for i := range want {
		if ing.calls[i] != want[i] {
			t.Errorf("call %d: expected %s, got %s", i, want[i], ing.calls[i])
		}
	}
}

func TestRun_SuccessWithinAttemptNotRetriedSameAttempt(t *testing.T) {
	ing := newScriptedIngest(map[string]int{"u1": 1, "u2": 1})

	Run(t.Context(), nil, []string{"u1", "u2"},
		Config{MaxAttempts: 5}, ing.fn, testLogger())

	if got := len(ing.calls); got != 2 {
		t.Errorf("expected 2 total calls, got %d: %v", got, ing.calls)
	}
}

func TestRun_EmptyFailedSetNoCalls(t *testing.T) {
	ing := newScriptedIngest(nil)

	result := Run(t.Context(), []string{"k1"}, nil,
		Config{MaxAttempts: 3}, ing.fn, testLogger())

	if len(ing.calls) != 0 {
		t.Errorf("expected no ingest calls, got %d", len(ing.calls))
	}
	if result.Kept.Len() != 1 || result.Failed.Len() != 0 {
		t.Errorf("unexpected result sets: kept=%v failed=%v",
			result.Kept.Items(), result.Failed.Items())
	}
}

func TestRun_CanceledDuringDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	ing := newScriptedIngest(map[string]int{"u1": 0})

	cancelingSleep := func(_ context.Context, _ time.Duration) error {
		cancel()
		return context.Canceled
	}

	result := Run(ctx, nil, []string{"u1"},
		Config{MaxAttempts: 5, Delay: time.Minute, Sleep: cancelingSleep},
		ing.fn, testLogger())

	if got := ing.attempts["u1"]; got != 1 {
		t.Errorf("expected 1 attempt before cancellation, got %d", got)
	}
	if !result.Failed.Contains("u1") {
		t.Error("u1 should remain failed after cancellation")
	}
}

func TestRun_ErrorRecordsAttemptNumbers(t *testing.T) {
	ing := newScriptedIngest(map[string]int{"u1": 3})

	result := Run(t.Context(), nil, []string{"u1"},
		Config{MaxAttempts: 3}, ing.fn, testLogger())

	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %d", len(result.Errors))
	}
	for i, re := range result.Errors {
		if re.Attempt != i+1 {
			t.Errorf("error %d: expected attempt %d, got %d", i, i+1, re.Attempt)
		}
		if re.Item != "u1" {
			t.Errorf("error %d: expected item u1, got %s", i, re.Item)
		}
	}
	if !result.Kept.Contains("u1") {
		t.Error("u1 should be kept after succeeding on attempt 3")
	}
}
