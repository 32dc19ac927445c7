package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Default selectors of a Leaflet map and its popup.
const (
	DefaultMapSelector   = "#map"
	DefaultPopupSelector = ".leaflet-popup-content"
	DefaultWaitTimeout   = 10 * time.Second
)

// Selectors identifies the map container and the popup on the page.
type Selectors struct {
	Map   string
	Popup string
}

// MapPage is a page object over a map widget. It owns no session; the
// session is passed in by whoever acquired it.
type MapPage struct {
	session   Session
	selectors Selectors
	timeout   time.Duration
	log       *slog.Logger
}

// NewMapPage creates a page object bound to session. A zero timeout falls
// back to DefaultWaitTimeout and empty selectors to the Leaflet defaults.
func NewMapPage(session Session, selectors Selectors, timeout time.Duration, log *slog.Logger) *MapPage {
	if selectors.Map == "" {
		selectors.Map = DefaultMapSelector
	}
	if selectors.Popup == "" {
		selectors.Popup = DefaultPopupSelector
	}
	if timeout <= 0 {
		timeout = DefaultWaitTimeout
	}

	return &MapPage{session: session, selectors: selectors, timeout: timeout, log: log}
}

// WaitUntilVisible blocks until selector is visible or returns *TimeoutError.
func (mp *MapPage) WaitUntilVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := mp.session.WaitVisible(ctx, selector, timeout)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrWaitTimeout) {
		return &TimeoutError{Selector: selector, Timeout: timeout, Err: err}
	}

	return fmt.Errorf("failed to wait for %q: %w", selector, err)
}

// Click clicks the first element matching selector. It does not wait for
// whatever the click triggers.
func (mp *MapPage) Click(ctx context.Context, selector string) error {
	count, err := mp.session.Count(ctx, selector)
	if err != nil {
		return fmt.Errorf("failed to look up %q: %w", selector, err)
	}
	if count == 0 {
		return &ElementNotFoundError{Selector: selector}
	}

	if err = mp.session.Click(ctx, selector); err != nil {
		return fmt.Errorf("failed to click %q: %w", selector, err)
	}

	return nil
}

// ReadPopupText waits for the popup and returns its rendered text.
func (mp *MapPage) ReadPopupText(ctx context.Context, selector string, timeout time.Duration) (string, error) {
	if err := mp.WaitUntilVisible(ctx, selector, timeout); err != nil {
		return "", err
	}

	text, err := mp.session.Text(ctx, selector)
	if err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}

	return text, nil
}

// VerifyMapIsLive waits for the map container.
func (mp *MapPage) VerifyMapIsLive(ctx context.Context) error {
	if err := mp.WaitUntilVisible(ctx, mp.selectors.Map, mp.timeout); err != nil {
		return err
	}
	mp.log.InfoContext(ctx, "Map UI is visible and responsive", "selector", mp.selectors.Map)

	return nil
}

// ClickOnMap clicks the map container.
func (mp *MapPage) ClickOnMap(ctx context.Context) error {
	return mp.Click(ctx, mp.selectors.Map)
}

// CapturedCoordinates returns the popup text produced by a click on the map.
func (mp *MapPage) CapturedCoordinates(ctx context.Context) (string, error) {
	return mp.ReadPopupText(ctx, mp.selectors.Popup, mp.timeout)
}
