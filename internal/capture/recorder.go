package capture

import (
	"sync"

	"github.com/gpcscan/gpcscan/internal/model"
)

// Recorder is the append-only traffic log for one browsing session.
// The browser's request observer calls Observe from the CDP event
// goroutine while the session goroutine reads lengths and slices, so all
// access goes through a mutex.
type Recorder struct {
	mu      sync.Mutex
	session string
	records []model.TrafficRecord
}

// NewRecorder creates a Recorder for the given session label
// (model.SessionBaseline or model.SessionCompliance).
func NewRecorder(session string) *Recorder {
	return &Recorder{session: session}
}

// Observe classifies one outbound request and appends it to the log.
// Classification is done here, once: tracker matching runs against the full
// request host, while the stored Domain is the registrable domain.
func (r *Recorder) Observe(rawURL, method, resourceType string, timestampMs int64) {
	host := hostOf(rawURL)
	record := model.TrafficRecord{
		Session:      r.session,
		URL:          rawURL,
		Method:       method,
		Domain:       RegistrableDomain(host),
		TimestampMs:  timestampMs,
		IsTracker:    IsTrackerHost(host),
		PII:          DetectPII(rawURL),
		ResourceType: resourceType,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, record)
}

// Len returns the current number of captured records. Session runners call
// this before navigating so records appended afterwards can be attributed
// to the new page.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.records)
}

// Since returns a copy of the records appended at or after index start.
// An out-of-range start yields an empty slice.
func (r *Recorder) Since(start int) []model.TrafficRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	if start < 0 {
		start = 0
	}
	if start >= len(r.records) {
		return nil
	}
	out := make([]model.TrafficRecord, len(r.records)-start)
	copy(out, r.records[start:])
	return out
}

// Snapshot returns a copy of the full log in capture order.
func (r *Recorder) Snapshot() []model.TrafficRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]model.TrafficRecord, len(r.records))
	copy(out, r.records)
	return out
}
