package oracle

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gpcscan/gpcscan/internal/model"
)

// Failover composes oracles in preference order: each page is offered to
// the variants in turn until one answers. Callers only ever see the Oracle
// interface; which variant answered is visible in debug logs alone.
type Failover struct {
	oracles []Oracle
}

// NewFailover composes the given oracles, first preferred.
func NewFailover(oracles ...Oracle) *Failover {
	return &Failover{oracles: oracles}
}

// Name implements Oracle.
func (*Failover) Name() string {
	return "failover"
}

// Analyze implements Oracle. It tries each variant in order; a variant's
// failure or no-answer is logged at debug and the next variant is tried.
// The last error is returned when every variant failed.
func (f *Failover) Analyze(ctx context.Context, summary *model.PageSummary, crawl *CrawlContext) (*Analysis, error) {
	if len(f.oracles) == 0 {
		return nil, ErrNoOracles
	}

	var lastErr error
	for _, o := range f.oracles {
		analysis, err := o.Analyze(ctx, summary, crawl)
		if err != nil {
			slog.Debug("oracle variant failed",
				"oracle", o.Name(),
				"url", summary.URL,
				"error", err)
			lastErr = err
			continue
		}
		slog.Debug("oracle answered", "oracle", o.Name(), "url", summary.URL)
		return analysis, nil
	}
	return nil, fmt.Errorf("all oracles failed: %w", lastErr)
}
