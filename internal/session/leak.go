package session

import (
	"time"

	"github.com/gpcscan/gpcscan/internal/model"
)

// defaultLeakWindow is how long after a page load a tracker request still
// counts as fired "before the opt-out signal could have been processed".
// 500ms matches the time a well-behaved consent layer needs to read the
// signal and suppress its vendors.
const defaultLeakWindow = 500 * time.Millisecond

// Leaks returns the tracker-flagged records that fired within window after
// pageLoadMs. These are temporal leaks: the data escaped before any
// server-side opt-out handling could have taken effect.
//
// A record exactly on the window boundary is included. FiredMsAfterLoad
// may be negative when the request was already in flight before the
// navigation settled; that is the strongest form of the leak, not an
// error.
//
// The function is pure: it never looks at a browser or the clock, so the
// boundary behavior is testable with synthetic records.
func Leaks(records []model.TrafficRecord, pageLoadMs int64, window time.Duration) []model.TemporalLeakRecord {
	windowEnd := pageLoadMs + window.Milliseconds()

	var leaks []model.TemporalLeakRecord
	for _, record := range records {
		if !record.IsTracker || record.TimestampMs > windowEnd {
			continue
		}
		leaks = append(leaks, model.TemporalLeakRecord{
			Domain:           record.Domain,
			URL:              record.URL,
			FiredMsAfterLoad: record.TimestampMs - pageLoadMs,
		})
	}
	return leaks
}
