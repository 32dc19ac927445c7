package browser

import (
	"context"
	"time"
)

// Session is an exclusively owned browser tab. Implementations wrap a
// browser automation driver; the caller must Close it exactly once.
type Session interface {
	// Navigate loads url and waits for the page load event.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until an element matching selector is visible. It
	// returns an error wrapping ErrWaitTimeout when timeout elapses first.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Count returns how many elements currently match selector, without waiting.
	Count(ctx context.Context, selector string) (int, error)
	// Click dispatches a single click on the first element matching selector.
	Click(ctx context.Context, selector string) error
	// Text returns the rendered text of the first element matching selector.
	Text(ctx context.Context, selector string) (string, error)
	// Screenshot captures the current page as PNG bytes.
	Screenshot(ctx context.Context) ([]byte, error)
	// Close releases the tab, the browser and the driver process.
	Close() error
}

// Launcher starts new sessions.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}
