// Package browser defines the boundary to the browser-automation layer. The
// pipeline never touches markup; it sees a loaded document as a structured
// Snapshot and drives navigation through the Page interface. Concrete
// implementations (CDP, Playwright-over-RPC) live outside this module.
package browser

import (
	"context"
	"errors"
	"time"
)

// ErrRateLimited is returned (wrapped) by Page implementations when the
// remote side answers with an explicit throttle signal (HTTP 429/503). The
// caller reacts with exponential backoff rather than marking the target
// failed.
var ErrRateLimited = errors.New("rate limited by remote")

// NavigateOptions mirror the navigation knobs the scrapers rely on.
type NavigateOptions struct {
	WaitUntil string // "load", "domcontentloaded", "networkidle"
	Timeout   time.Duration
}

// Page is one open tab. A fresh page is opened per storefront and closed when
// the storefront is done, success or not.
type Page interface {
	Goto(ctx context.Context, url string, opts NavigateOptions) error
	Title(ctx context.Context) (string, error)
	// Snapshot returns a structured view of the currently loaded document.
	Snapshot(ctx context.Context) (*Snapshot, error)
	ScrollBy(ctx context.Context, pixels int) error
	// PageHeight reports the scroll height, used to detect when infinite
	// scroll stops yielding content.
	PageHeight(ctx context.Context) (int, error)
	// ClickByText clicks the first button or link whose text contains any of
	// the given fragments (case-insensitive). Reports whether it clicked.
	ClickByText(ctx context.Context, fragments ...string) (bool, error)
	// Screenshot saves a debugging capture. Implementations may no-op.
	Screenshot(ctx context.Context, path string) error
	Close(ctx context.Context) error
}

// Session is one browsing context shared across all storefronts in a run.
type Session interface {
	NewPage(ctx context.Context) (Page, error)
	Close(ctx context.Context) error
}
