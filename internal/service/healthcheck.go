package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/browser"
	"github.com/UnknownOlympus/mapwatch/internal/geocoding"
	"github.com/UnknownOlympus/mapwatch/internal/metrics"
	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/UnknownOlympus/mapwatch/internal/parser"
	"github.com/UnknownOlympus/mapwatch/internal/report"
	"github.com/UnknownOlympus/mapwatch/internal/repository"
	"github.com/google/uuid"
)

// Settings describe what a check opens and how it judges the result.
type Settings struct {
	TargetURL   string
	Selectors   browser.Selectors
	WaitTimeout time.Duration
	Thresholds  Thresholds
}

// HealthCheck runs the map health check: launch, navigate, verify the map,
// click it, read the popup, validate, tear down.
type HealthCheck struct {
	log      *slog.Logger         // Logger for check progress
	launcher browser.Launcher     // Launcher acquiring one browser session per run
	sink     report.Sink          // Sink receiving diagnostic attachments
	store    repository.Interface // Optional storage for finished runs
	locator  geocoding.Provider   // Optional reverse geocoder for drift diagnostics
	metrics  *metrics.Metrics     // Metrics for tracking check results
	settings Settings

	now   func() time.Time
	newID func() string

	mu   sync.RWMutex
	last *models.CheckResult
}

// NewHealthCheck creates a HealthCheck. store and locator may be nil.
func NewHealthCheck(
	log *slog.Logger,
	launcher browser.Launcher,
	sink report.Sink,
	store repository.Interface,
	locator geocoding.Provider,
	metrics *metrics.Metrics,
	settings Settings,
) *HealthCheck {
	return &HealthCheck{
		log:      log,
		launcher: launcher,
		sink:     sink,
		store:    store,
		locator:  locator,
		metrics:  metrics,
		settings: settings,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Run checks the map immediately and then on every tick of interval until
// ctx is cancelled.
func (hc *HealthCheck) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	hc.log.InfoContext(ctx, "Map watch started", "interval", interval, "target", hc.settings.TargetURL)
	hc.Check(ctx)

	for {
		select {
		case <-ctx.Done():
			hc.log.InfoContext(ctx, "Map watch stopped.")
			return
		case <-ticker.C:
			hc.Check(ctx)
		}
	}
}

// Last returns the most recent finished run, if any.
func (hc *HealthCheck) Last() (models.CheckResult, bool) {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	if hc.last == nil {
		return models.CheckResult{}, false
	}

	return *hc.last, true
}

// Check performs one complete run with its own browser session and records
// the result in the sink, the metrics and the store.
func (hc *HealthCheck) Check(ctx context.Context) models.CheckResult {
	result := models.CheckResult{
		ID:        hc.newID(),
		TargetURL: hc.settings.TargetURL,
		StartedAt: hc.now(),
		Stage:     models.StageInit,
	}
	hc.log.InfoContext(ctx, "Monitoring initialized", "run", result.ID, "target", result.TargetURL)

	hc.runSession(ctx, &result)

	result.FinishedAt = hc.now()
	hc.record(context.WithoutCancel(ctx), &result)

	return result
}

// runSession owns the browser session for the run. The session is closed on
// every path out of this function, panics included.
func (hc *HealthCheck) runSession(ctx context.Context, result *models.CheckResult) {
	session, err := hc.launcher.Launch(ctx)
	if err != nil {
		result.Fail(models.ReasonSetupFailed, fmt.Sprintf("SETUP FAILURE: could not launch browser: %v", err), err)
		hc.attach(ctx, result, "Test Status", "FAILED - "+result.Message)
		result.Advance(models.StageClosed)
		return
	}

	defer func() {
		hc.log.DebugContext(ctx, "Closing browser session", "run", result.ID)
		if errClose := session.Close(); errClose != nil {
			hc.log.WarnContext(ctx, "Failed to close browser session", "run", result.ID, "error", errClose)
		}
		result.Advance(models.StageClosed)
		hc.log.InfoContext(ctx, "Monitoring session closed", "run", result.ID)
	}()

	hc.Execute(ctx, session, result)
	hc.teardown(context.WithoutCancel(ctx), session, result)
}

// Execute drives an already launched session from navigation through
// validation. It never closes the session.
func (hc *HealthCheck) Execute(ctx context.Context, session browser.Session, result *models.CheckResult) {
	if err := session.Navigate(ctx, hc.settings.TargetURL); err != nil {
		result.Fail(models.ReasonSetupFailed, fmt.Sprintf("SETUP FAILURE: could not load %s: %v", hc.settings.TargetURL, err), err)
		return
	}
	result.Advance(models.StageNavigated)

	page := browser.NewMapPage(session, hc.settings.Selectors, hc.settings.WaitTimeout, hc.log)

	hc.log.InfoContext(ctx, "CHECK: Verifying map visibility", "run", result.ID)
	if err := page.VerifyMapIsLive(ctx); err != nil {
		result.Fail(models.ReasonMapUnavailable, "MAP DOWN: "+describe(err), err)
		return
	}
	hc.attach(ctx, result, "Map Status", "Map UI is visible and responsive")
	result.Advance(models.StageMapVerified)

	hc.log.InfoContext(ctx, "CHECK: Measuring system latency", "run", result.ID)
	text, elapsed, err := hc.interact(ctx, page)
	if err != nil {
		result.Fail(models.ReasonInteractionBroken, "INTERACTION BROKEN: "+describe(err), err)
		return
	}
	result.PopupText = text
	result.Latency = elapsed
	result.Advance(models.StageInteracted)

	hc.attach(ctx, result, "System Latency", strconv.FormatInt(elapsed.Milliseconds(), 10)+"ms")
	hc.attach(ctx, result, "Raw UI Output", text)
	hc.attach(ctx, result, "Expected Latitude", formatFloat(hc.settings.Thresholds.ExpectedLatitude))
	hc.attach(ctx, result, "Tolerance", formatFloat(hc.settings.Thresholds.Tolerance))

	validation := Evaluate(elapsed, text, hc.settings.Thresholds)
	validation.apply(result)

	if validation.LatitudeParsed {
		hc.attach(ctx, result, "Actual Latitude", formatFloat(validation.Latitude))
		hc.attach(ctx, result, "GPS Drift", formatFloat(validation.Drift))
	}
	if validation.Passed() {
		hc.attach(ctx, result, "Status", "PASSED - Within tolerance")
		return
	}
	hc.attach(ctx, result, "Status", "FAILED - "+validation.Message)

	if validation.LatitudeParsed && !validation.AccuracyPassed {
		hc.resolveLocation(ctx, result)
	}
}

// interact clicks the map and reads the popup, timing the round trip.
func (hc *HealthCheck) interact(ctx context.Context, page *browser.MapPage) (string, time.Duration, error) {
	start := hc.now()
	if err := page.ClickOnMap(ctx); err != nil {
		return "", 0, err
	}

	text, err := page.CapturedCoordinates(ctx)
	if err != nil {
		return "", 0, err
	}

	return text, hc.now().Sub(start), nil
}

// CaptureScreenshot attaches a PNG of the current page to the run.
func (hc *HealthCheck) CaptureScreenshot(ctx context.Context, session browser.Session, runID string) error {
	hc.log.InfoContext(ctx, "Capturing screenshot", "run", runID)

	png, err := session.Screenshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to capture screenshot: %w", err)
	}

	if err = hc.sink.Attach(ctx, runID, "Failure Screenshot", report.MediaPNG, png); err != nil {
		return fmt.Errorf("failed to attach screenshot: %w", err)
	}

	return nil
}

// teardown records the final status. A failed screenshot is only logged so
// that it never hides the failure being reported.
func (hc *HealthCheck) teardown(ctx context.Context, session browser.Session, result *models.CheckResult) {
	if result.Passed() {
		hc.attach(ctx, result, "Test Status", "PASSED")
		return
	}

	if err := hc.CaptureScreenshot(ctx, session, result.ID); err != nil {
		hc.log.WarnContext(ctx, "Screenshot on failure not captured", "run", result.ID, "error", err)
	}
	hc.attach(ctx, result, "Test Status", "FAILED - "+result.Message)
}

// resolveLocation annotates a drift failure with the place the popup
// actually pointed at.
func (hc *HealthCheck) resolveLocation(ctx context.Context, result *models.CheckResult) {
	if hc.locator == nil {
		return
	}

	coords, err := parser.ParseCoordinates(result.PopupText)
	if err != nil {
		hc.log.DebugContext(ctx, "Popup has no full coordinate pair", "run", result.ID, "error", err)
		return
	}

	place, err := hc.locator.ReverseGeocode(ctx, coords)
	if err != nil {
		hc.log.WarnContext(ctx, "Failed to resolve observed location", "run", result.ID, "error", err)
		return
	}
	hc.attach(ctx, result, "Resolved Location", fmt.Sprintf("%s %s", coords, place))
}

func (hc *HealthCheck) record(ctx context.Context, result *models.CheckResult) {
	if hc.metrics != nil {
		hc.metrics.Observe(result, result.FinishedAt.Sub(result.StartedAt).Seconds())
	}

	if err := hc.sink.Finish(ctx, *result); err != nil {
		hc.log.WarnContext(ctx, "Failed to finish report", "run", result.ID, "error", err)
	}

	if hc.store != nil {
		if err := hc.store.SaveResult(ctx, *result); err != nil {
			hc.log.ErrorContext(ctx, "Failed to save check result", "run", result.ID, "error", err)
		}
	}

	last := *result
	hc.mu.Lock()
	hc.last = &last
	hc.mu.Unlock()
}

func (hc *HealthCheck) attach(ctx context.Context, result *models.CheckResult, name, value string) {
	if err := hc.sink.Attach(ctx, result.ID, name, report.MediaText, []byte(value)); err != nil {
		hc.log.WarnContext(ctx, "Failed to record attachment", "run", result.ID, "name", name, "error", err)
	}
}

// describe renders browser errors with the detail an operator needs.
func describe(err error) string {
	var (
		timeoutErr  *browser.TimeoutError
		notFoundErr *browser.ElementNotFoundError
	)
	switch {
	case errors.As(err, &timeoutErr):
		return fmt.Sprintf("%q did not become visible within %s", timeoutErr.Selector, timeoutErr.Timeout)
	case errors.As(err, &notFoundErr):
		return fmt.Sprintf("%q matched no element", notFoundErr.Selector)
	default:
		return err.Error()
	}
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}
