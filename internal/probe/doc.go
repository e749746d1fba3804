// Package probe performs the preflight reachability check that runs before
// any browser session is started.
//
// An audit costs two Chrome processes and several minutes of crawling; a
// dead or misspelled target should instead fail in under a second with a
// clear error. The prober tries a HEAD request first and falls back to GET
// for servers that reject the method. Any HTTP response at all counts as
// reachable; response status is recorded for the caller to log but never
// treated as failure, because a 403 bot wall is still a site the audit can
// observe.
//
// # Usage
//
//	p := probe.New(probe.WithTimeout(5 * time.Second))
//	result, err := p.Probe(ctx, "shop.example")
//	if errors.Is(err, probe.ErrUnreachable) {
//		// fail fast, no browser started
//	}
package probe
