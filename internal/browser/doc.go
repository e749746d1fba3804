// Package browser provides page automation for crawling and audit sessions.
//
// The package exposes a narrow contract (Launcher, Session) and one
// implementation driving headless Chrome over the DevTools protocol via
// chromedp. Everything above this package (the crawl engine and the session
// orchestrator) consumes only the contract, so tests run against fakes and
// never need a browser binary.
//
// Design decision: Each Session gets its own Chrome process and profile
// directory rather than a tab in a shared browser because:
//  1. The paired audit sessions must not share cookies, storage, or cache
//  2. The opt-out header/script is injected per session, not per tab
//  3. A crashed page cannot take the other session down with it
package browser
