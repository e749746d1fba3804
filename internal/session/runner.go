package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gpcscan/gpcscan/internal/browser"
	"github.com/gpcscan/gpcscan/internal/capture"
	"github.com/gpcscan/gpcscan/internal/model"
)

// run executes the plan in one isolated browser session and returns its
// complete evidence. The plan is visited strictly in order and is never
// cut short: a failed navigation is logged and skipped, and the session
// carries on with the next entry. Only a cancelled context or a session
// that cannot be opened fails the run.
func (o *Orchestrator) run(ctx context.Context, plan []model.CrawlPlanEntry, gpcOn bool) (*model.SessionResult, error) {
	label := model.SessionBaseline
	if gpcOn {
		label = model.SessionCompliance
	}

	recorder := capture.NewRecorder(label)
	opts := []browser.SessionOption{
		browser.WithRequestObserver(func(req browser.Request) {
			recorder.Observe(req.URL, req.Method, req.ResourceType, req.TimestampMs)
		}),
	}
	if gpcOn {
		opts = append(opts, browser.WithGlobalPrivacyControl())
	}

	sess, err := o.launcher.NewSession(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open browser session: %w", err)
	}
	defer func() { _ = sess.Close() }()

	result := &model.SessionResult{
		Label:         label,
		GPCOn:         gpcOn,
		BannerResults: make(map[string]model.BannerCheck),
		OptOutResults: make(map[string]model.OptOutCheck),
	}

	slog.Info("session starting", "session", label, "planned_pages", len(plan))

	for _, entry := range plan {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		pageURL := strings.TrimSpace(entry.URL)
		if !strings.HasPrefix(pageURL, "http") {
			slog.Debug("plan entry skipped: not an http(s) URL",
				"session", label, "url", entry.URL)
			continue
		}

		slog.Debug("visiting page", "session", label, "url", pageURL)

		// Length before navigation: everything appended from here on
		// belongs to this page.
		preCount := recorder.Len()

		nav, err := sess.Navigate(ctx, pageURL)
		if err != nil {
			slog.Warn("page skipped: navigation failed",
				"session", label, "url", pageURL, "error", err)
			continue
		}
		loadMs := time.Now().UnixMilli()

		if err := wait(ctx, o.actionDelay); err != nil {
			return nil, err
		}
		if o.scrollSteps > 0 {
			if err := sess.Scroll(ctx, o.scrollSteps, o.actionDelay); err != nil {
				slog.Debug("scroll failed", "session", label, "url", pageURL, "error", err)
			}
		}

		banner, err := detectBanner(ctx, sess)
		if err != nil {
			slog.Debug("banner check failed", "session", label, "url", pageURL, "error", err)
		}
		result.BannerResults[pageURL] = banner

		optOut, err := detectOptOutLink(ctx, sess, o.extraOptOutPatterns)
		if err != nil {
			slog.Debug("opt-out link check failed", "session", label, "url", pageURL, "error", err)
		}
		result.OptOutResults[pageURL] = optOut

		pageRecords := recorder.Since(preCount)

		if gpcOn {
			leaks := Leaks(pageRecords, loadMs, o.leakWindow)
			for _, leak := range leaks {
				leak.Page = pageURL
				result.TemporalLeaks = append(result.TemporalLeaks, leak)
			}
			if len(leaks) > 0 {
				slog.Warn("temporal leak: trackers fired inside the opt-out window",
					"session", label,
					"url", pageURL,
					"count", len(leaks),
					"window", o.leakWindow)
			}
		}

		result.Observations = append(result.Observations, model.PageObservation{
			URL:             pageURL,
			Title:           nav.Title,
			LoadTimestampMs: loadMs,
			RequestCount:    len(pageRecords),
			TrackersFired:   trackerDomains(pageRecords),
		})
		result.PagesVisited++
	}

	result.Traffic = recorder.Snapshot()

	slog.Info("session complete",
		"session", label,
		"pages_visited", result.PagesVisited,
		"requests", len(result.Traffic),
		"tracker_requests", result.TrackerRequestCount(),
		"temporal_leaks", len(result.TemporalLeaks))

	return result, nil
}

// trackerDomains returns the unique tracker registrable domains in the
// records, in first-seen order.
func trackerDomains(records []model.TrafficRecord) []string {
	var domains []string
	seen := make(map[string]struct{})
	for _, record := range records {
		if !record.IsTracker {
			continue
		}
		if _, ok := seen[record.Domain]; ok {
			continue
		}
		seen[record.Domain] = struct{}{}
		domains = append(domains, record.Domain)
	}
	return domains
}

// wait blocks for d or until the context is cancelled.
func wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
