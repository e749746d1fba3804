package capture

import (
	"sync"
	"testing"

	"github.com/gpcscan/gpcscan/internal/model"
)

// TestRecorderObserve tests request classification at capture time.
func TestRecorderObserve(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(model.SessionCompliance)
	rec.Observe("https://ssl.google-analytics.com/collect?uid=u-77", "POST", "xhr", 1700000000123)
	rec.Observe("https://www.example.com/app.js", "GET", "script", 1700000000150)

	records := rec.Snapshot()
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	tracker := records[0]
	if tracker.Session != model.SessionCompliance {
		t.Errorf("Session = %q, expected %q", tracker.Session, model.SessionCompliance)
	}
	if !tracker.IsTracker {
		t.Error("IsTracker = false for google-analytics request, expected true")
	}
	if tracker.Domain != "google-analytics.com" {
		t.Errorf("Domain = %q, expected registrable %q", tracker.Domain, "google-analytics.com")
	}
	if len(tracker.PII) != 1 || tracker.PII[0] != "uid" {
		t.Errorf("PII = %v, expected [uid]", tracker.PII)
	}
	if tracker.TimestampMs != 1700000000123 {
		t.Errorf("TimestampMs = %d, expected 1700000000123", tracker.TimestampMs)
	}

	firstParty := records[1]
	if firstParty.IsTracker {
		t.Error("IsTracker = true for first-party request, expected false")
	}
	if firstParty.Domain != "example.com" {
		t.Errorf("Domain = %q, expected %q", firstParty.Domain, "example.com")
	}
	if firstParty.PII != nil {
		t.Errorf("PII = %v, expected nil", firstParty.PII)
	}
}

// TestRecorderSince tests page attribution by log index.
func TestRecorderSince(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(model.SessionBaseline)
	rec.Observe("https://example.com/", "GET", "document", 100)

	mark := rec.Len()
	if mark != 1 {
		t.Fatalf("Len() = %d, expected 1", mark)
	}

	rec.Observe("https://example.com/about", "GET", "document", 200)
	rec.Observe("https://api.mixpanel.com/track", "POST", "xhr", 250)

	page := rec.Since(mark)
	if len(page) != 2 {
		t.Fatalf("Since(%d) returned %d records, expected 2", mark, len(page))
	}
	if page[0].URL != "https://example.com/about" {
		t.Errorf("first attributed record = %q, expected the about page", page[0].URL)
	}

	if got := rec.Since(99); got != nil {
		t.Errorf("Since past end = %v, expected nil", got)
	}
	if got := rec.Since(-3); len(got) != 3 {
		t.Errorf("Since(-3) returned %d records, expected full log of 3", len(got))
	}
}

// TestRecorderConcurrentObserve tests that observer-goroutine appends and
// session-goroutine reads do not race.
func TestRecorderConcurrentObserve(t *testing.T) {
	t.Parallel()

	rec := NewRecorder(model.SessionBaseline)

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				rec.Observe("https://example.com/r", "GET", "xhr", int64(j))
				_ = rec.Len()
			}
		}()
	}
	wg.Wait()

	if got := rec.Len(); got != 200 {
		t.Errorf("Len() = %d after concurrent appends, expected 200", got)
	}
}
