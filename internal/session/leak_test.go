package session

import (
	"reflect"
	"testing"
	"time"

	"github.com/gpcscan/gpcscan/internal/model"
)

// TestLeaks tests the temporal-leak window over synthetic traffic records.
func TestLeaks(t *testing.T) {
	t.Parallel()

	const loadMs = int64(1_700_000_000_000)

	tests := []struct {
		name    string
		records []model.TrafficRecord
		window  time.Duration
		want    []model.TemporalLeakRecord
	}{
		{
			name: "tracker inside window",
			records: []model.TrafficRecord{
				{
					URL:         "https://www.google-analytics.com/collect",
					Domain:      "google-analytics.com",
					TimestampMs: loadMs + 120,
					IsTracker:   true,
				},
			},
			window: 500 * time.Millisecond,
			want: []model.TemporalLeakRecord{
				{
					Domain:           "google-analytics.com",
					URL:              "https://www.google-analytics.com/collect",
					FiredMsAfterLoad: 120,
				},
			},
		},
		{
			name: "tracker exactly on the boundary is included",
			records: []model.TrafficRecord{
				{
					URL:         "https://stats.g.doubleclick.net/j/collect",
					Domain:      "doubleclick.net",
					TimestampMs: loadMs + 500,
					IsTracker:   true,
				},
			},
			window: 500 * time.Millisecond,
			want: []model.TemporalLeakRecord{
				{
					Domain:           "doubleclick.net",
					URL:              "https://stats.g.doubleclick.net/j/collect",
					FiredMsAfterLoad: 500,
				},
			},
		},
		{
			name: "tracker one millisecond past the boundary is excluded",
			records: []model.TrafficRecord{
				{
					URL:         "https://stats.g.doubleclick.net/j/collect",
					Domain:      "doubleclick.net",
					TimestampMs: loadMs + 501,
					IsTracker:   true,
				},
			},
			window: 500 * time.Millisecond,
			want:   nil,
		},
		{
			name: "tracker already in flight yields a negative offset",
			records: []model.TrafficRecord{
				{
					URL:         "https://connect.facebook.net/en_US/fbevents.js",
					Domain:      "facebook.net",
					TimestampMs: loadMs - 80,
					IsTracker:   true,
				},
			},
			window: 500 * time.Millisecond,
			want: []model.TemporalLeakRecord{
				{
					Domain:           "facebook.net",
					URL:              "https://connect.facebook.net/en_US/fbevents.js",
					FiredMsAfterLoad: -80,
				},
			},
		},
		{
			name: "non-tracker inside window is ignored",
			records: []model.TrafficRecord{
				{
					URL:         "https://shop.example.com/api/cart",
					Domain:      "example.com",
					TimestampMs: loadMs + 50,
					IsTracker:   false,
				},
			},
			window: 500 * time.Millisecond,
			want:   nil,
		},
		{
			name: "mixed log keeps capture order",
			records: []model.TrafficRecord{
				{
					URL:         "https://shop.example.com/",
					Domain:      "example.com",
					TimestampMs: loadMs + 10,
					IsTracker:   false,
				},
				{
					URL:         "https://www.google-analytics.com/g/collect",
					Domain:      "google-analytics.com",
					TimestampMs: loadMs + 90,
					IsTracker:   true,
				},
				{
					URL:         "https://static.hotjar.com/c/hotjar.js",
					Domain:      "hotjar.com",
					TimestampMs: loadMs + 260,
					IsTracker:   true,
				},
				{
					URL:         "https://bat.bing.com/action/0",
					Domain:      "bing.com",
					TimestampMs: loadMs + 800,
					IsTracker:   true,
				},
			},
			window: 500 * time.Millisecond,
			want: []model.TemporalLeakRecord{
				{
					Domain:           "google-analytics.com",
					URL:              "https://www.google-analytics.com/g/collect",
					FiredMsAfterLoad: 90,
				},
				{
					Domain:           "hotjar.com",
					URL:              "https://static.hotjar.com/c/hotjar.js",
					FiredMsAfterLoad: 260,
				},
			},
		},
		{
			name: "shorter window tightens the cut",
			records: []model.TrafficRecord{
				{
					URL:         "https://www.google-analytics.com/collect",
					Domain:      "google-analytics.com",
					TimestampMs: loadMs + 120,
					IsTracker:   true,
				},
			},
			window: 100 * time.Millisecond,
			want:   nil,
		},
		{
			name:    "no records",
			records: nil,
			window:  500 * time.Millisecond,
			want:    nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := Leaks(tt.records, loadMs, tt.window)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Leaks() = %+v, expected %+v", got, tt.want)
			}
		})
	}
}
