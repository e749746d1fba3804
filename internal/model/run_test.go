package model

import (
	"errors"
	"regexp"
	"testing"
)

// TestNewRun tests audit ID format and initial state.
func TestNewRun(t *testing.T) {
	t.Parallel()

	run := NewRun("https://example.com", "us_ca")

	idPattern := regexp.MustCompile(`^gpcscan_\d{8}_\d{6}$`)
	if !idPattern.MatchString(run.ID) {
		t.Errorf("audit ID = %q, expected gpcscan_YYYYMMDD_HHMMSS", run.ID)
	}
	if run.Target != "https://example.com" {
		t.Errorf("Target = %q, expected %q", run.Target, "https://example.com")
	}
	if run.Jurisdiction != "us_ca" {
		t.Errorf("Jurisdiction = %q, expected %q", run.Jurisdiction, "us_ca")
	}
	if run.StartedAt.IsZero() {
		t.Error("StartedAt is zero, expected set")
	}
	if !run.FinishedAt.IsZero() {
		t.Error("FinishedAt set on new run, expected zero")
	}
}

// TestRunComplete tests that completion stamps the finish time once.
func TestRunComplete(t *testing.T) {
	t.Parallel()

	run := NewRun("https://example.com", "us_ca")
	run.Complete()

	if run.FinishedAt.IsZero() {
		t.Error("FinishedAt still zero after Complete()")
	}
	if run.Error != nil {
		t.Errorf("Error = %v after Complete(), expected nil", run.Error)
	}
	if run.Elapsed() < 0 {
		t.Errorf("Elapsed() = %v, expected non-negative", run.Elapsed())
	}
}

// TestRunFail tests error capture on a failed run.
func TestRunFail(t *testing.T) {
	t.Parallel()

	run := NewRun("https://example.com", "us_ca")
	failure := errors.New("session task failed")
	run.Fail(failure)

	if run.FinishedAt.IsZero() {
		t.Error("FinishedAt still zero after Fail()")
	}
	if !errors.Is(run.Error, failure) {
		t.Errorf("Error = %v, expected the failure", run.Error)
	}
	if run.ErrorMessage != "session task failed" {
		t.Errorf("ErrorMessage = %q, expected %q", run.ErrorMessage, "session task failed")
	}
}
