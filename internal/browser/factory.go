package browser

import (
	"fmt"
	"log/slog"
	"time"
)

// DriverType names a browser automation backend.
type DriverType string

const (
	// DriverPlaywright drives Chromium through Playwright.
	DriverPlaywright DriverType = "playwright"
	// DriverRod drives Chromium over the DevTools protocol with rod.
	DriverRod DriverType = "rod"
)

// Options configures how sessions are launched.
type Options struct {
	Driver            DriverType
	Headless          bool
	InstallBrowsers   bool   // InstallBrowsers downloads Playwright's Chromium before launch.
	ExecutablePath    string // ExecutablePath overrides the bundled browser binary.
	ViewportWidth     int
	ViewportHeight    int
	NavigationTimeout time.Duration
}

// NewLauncher returns the launcher for opts.Driver.
func NewLauncher(opts Options, log *slog.Logger) (Launcher, error) {
	if opts.ViewportWidth <= 0 || opts.ViewportHeight <= 0 {
		return nil, fmt.Errorf("invalid viewport %dx%d", opts.ViewportWidth, opts.ViewportHeight)
	}
	if opts.NavigationTimeout <= 0 {
		opts.NavigationTimeout = 30 * time.Second
	}

	switch opts.Driver {
	case DriverPlaywright:
		return NewPlaywrightLauncher(opts, log), nil
	case DriverRod:
		return NewRodLauncher(opts, log), nil
	default:
		return nil, fmt.Errorf("unsupported browser driver: %s", opts.Driver)
	}
}
