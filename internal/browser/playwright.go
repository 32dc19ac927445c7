package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightLauncher starts Chromium sessions through Playwright.
type PlaywrightLauncher struct {
	opts Options
	log  *slog.Logger
}

// NewPlaywrightLauncher creates a launcher. When opts.InstallBrowsers is set,
// every launch makes sure the Chromium build is present first.
func NewPlaywrightLauncher(opts Options, log *slog.Logger) *PlaywrightLauncher {
	return &PlaywrightLauncher{opts: opts, log: log}
}

// Launch starts the Playwright driver, a Chromium instance and one page with
// the configured viewport.
func (pl *PlaywrightLauncher) Launch(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	runOpts := &playwright.RunOptions{Browsers: []string{"chromium"}, Verbose: false}
	if pl.opts.InstallBrowsers {
		pl.log.InfoContext(ctx, "Installing Playwright browsers")
		if err := playwright.Install(runOpts); err != nil {
			return nil, fmt.Errorf("failed to install playwright browsers: %w", err)
		}
	}

	pwr, err := playwright.Run(runOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(pl.opts.Headless),
		Args:     []string{"--start-maximized"},
	}
	if pl.opts.ExecutablePath != "" {
		launchOpts.ExecutablePath = playwright.String(pl.opts.ExecutablePath)
	}

	brw, err := pwr.Chromium.Launch(launchOpts)
	if err != nil {
		_ = pwr.Stop()
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	page, err := brw.NewPage(playwright.BrowserNewPageOptions{
		Viewport: &playwright.Size{Width: pl.opts.ViewportWidth, Height: pl.opts.ViewportHeight},
	})
	if err != nil {
		_ = brw.Close()
		_ = pwr.Stop()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	pl.log.DebugContext(ctx, "Playwright session started",
		"headless", pl.opts.Headless, "width", pl.opts.ViewportWidth, "height", pl.opts.ViewportHeight)

	return &playwrightSession{pw: pwr, browser: brw, page: page, navTimeout: pl.opts.NavigationTimeout}, nil
}

type playwrightSession struct {
	pw         *playwright.Playwright
	browser    playwright.Browser
	page       playwright.Page
	navTimeout time.Duration
}

func (ps *playwrightSession) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	_, err := ps.page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateLoad,
		Timeout:   millis(ps.navTimeout),
	})
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", url, ps.translate(err))
	}

	return nil
}

func (ps *playwrightSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	err := ps.page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: millis(timeout),
	})

	return ps.translate(err)
}

func (ps *playwrightSession) Count(ctx context.Context, selector string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	return ps.page.Locator(selector).Count()
}

func (ps *playwrightSession) Click(ctx context.Context, selector string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return ps.translate(ps.page.Locator(selector).First().Click(playwright.LocatorClickOptions{
		Timeout: millis(DefaultWaitTimeout),
	}))
}

func (ps *playwrightSession) Text(ctx context.Context, selector string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := ps.page.Locator(selector).First().InnerText(playwright.LocatorInnerTextOptions{
		Timeout: millis(DefaultWaitTimeout),
	})

	return text, ps.translate(err)
}

func (ps *playwrightSession) Screenshot(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return ps.page.Screenshot(playwright.PageScreenshotOptions{
		FullPage: playwright.Bool(true),
		Type:     playwright.ScreenshotTypePng,
	})
}

// Close tears down page, browser and driver, reporting every failure.
func (ps *playwrightSession) Close() error {
	var errs []error
	if err := ps.page.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close page: %w", err))
	}
	if err := ps.browser.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close browser: %w", err))
	}
	if err := ps.pw.Stop(); err != nil {
		errs = append(errs, fmt.Errorf("failed to stop playwright: %w", err))
	}

	return errors.Join(errs...)
}

func (ps *playwrightSession) translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, playwright.ErrTimeout) {
		return fmt.Errorf("%w: %w", ErrWaitTimeout, err)
	}

	return err
}

func millis(d time.Duration) *float64 {
	return playwright.Float(float64(d.Milliseconds()))
}
