package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodLauncher starts Chromium sessions over the DevTools protocol with rod.
type RodLauncher struct {
	opts Options
	log  *slog.Logger
}

// NewRodLauncher creates a rod based launcher.
func NewRodLauncher(opts Options, log *slog.Logger) *RodLauncher {
	return &RodLauncher{opts: opts, log: log}
}

// Launch starts a local Chromium, connects to it and opens a blank page.
func (rl *RodLauncher) Launch(ctx context.Context) (Session, error) {
	lnc := launcher.New().Context(ctx).Headless(rl.opts.Headless).Set("start-maximized")
	if rl.opts.ExecutablePath != "" {
		lnc = lnc.Bin(rl.opts.ExecutablePath)
	}

	controlURL, err := lnc.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch chromium: %w", err)
	}

	brw := rod.New().ControlURL(controlURL)
	if err = brw.Connect(); err != nil {
		lnc.Kill()
		return nil, fmt.Errorf("failed to connect to chromium: %w", err)
	}

	page, err := brw.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		_ = brw.Close()
		lnc.Kill()
		return nil, fmt.Errorf("failed to open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             rl.opts.ViewportWidth,
		Height:            rl.opts.ViewportHeight,
		DeviceScaleFactor: 1,
	})
	if err != nil {
		_ = brw.Close()
		lnc.Kill()
		return nil, fmt.Errorf("failed to set viewport: %w", err)
	}

	rl.log.DebugContext(ctx, "Rod session started", "control_url", controlURL, "headless", rl.opts.Headless)

	return &rodSession{launcher: lnc, browser: brw, page: page, navTimeout: rl.opts.NavigationTimeout}, nil
}

type rodSession struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	navTimeout time.Duration
}

func (rs *rodSession) Navigate(ctx context.Context, url string) error {
	page := rs.page.Context(ctx).Timeout(rs.navTimeout)
	defer page.CancelTimeout()

	if err := page.Navigate(url); err != nil {
		return fmt.Errorf("failed to load %s: %w", url, translateRod(err))
	}
	if err := page.WaitLoad(); err != nil {
		return fmt.Errorf("failed to wait for load of %s: %w", url, translateRod(err))
	}

	return nil
}

func (rs *rodSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	page := rs.page.Context(ctx).Timeout(timeout)
	defer page.CancelTimeout()

	el, err := page.Element(selector)
	if err != nil {
		return translateRod(err)
	}

	return translateRod(el.WaitVisible())
}

func (rs *rodSession) Count(ctx context.Context, selector string) (int, error) {
	els, err := rs.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}

	return len(els), nil
}

func (rs *rodSession) Click(ctx context.Context, selector string) error {
	page := rs.page.Context(ctx).Timeout(DefaultWaitTimeout)
	defer page.CancelTimeout()

	el, err := page.Element(selector)
	if err != nil {
		return translateRod(err)
	}

	return translateRod(el.Click(proto.InputMouseButtonLeft, 1))
}

func (rs *rodSession) Text(ctx context.Context, selector string) (string, error) {
	page := rs.page.Context(ctx).Timeout(DefaultWaitTimeout)
	defer page.CancelTimeout()

	el, err := page.Element(selector)
	if err != nil {
		return "", translateRod(err)
	}

	text, err := el.Text()

	return text, translateRod(err)
}

func (rs *rodSession) Screenshot(ctx context.Context) ([]byte, error) {
	return rs.page.Context(ctx).Screenshot(true, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (rs *rodSession) Close() error {
	err := rs.browser.Close()
	rs.launcher.Kill()
	if err != nil {
		return fmt.Errorf("failed to close browser: %w", err)
	}

	return nil
}

func translateRod(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrWaitTimeout, err)
	}

	return err
}
