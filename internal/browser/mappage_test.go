package browser_test

import (
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/browser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMapPage_WaitUntilVisible(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("visible", func(t *testing.T) {
		var gotTimeout time.Duration
		session := &fakeSession{waitFunc: func(_ string, timeout time.Duration) error {
			gotTimeout = timeout
			return nil
		}}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		require.NoError(t, page.WaitUntilVisible(ctx, "#map", 3*time.Second))
		assert.Equal(t, 3*time.Second, gotTimeout)
	})

	t.Run("timeout becomes TimeoutError", func(t *testing.T) {
		session := &fakeSession{waitFunc: func(_ string, _ time.Duration) error {
			return fmt.Errorf("%w: driver said so", browser.ErrWaitTimeout)
		}}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		err := page.WaitUntilVisible(ctx, "#map", time.Second)

		var timeoutErr *browser.TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, "#map", timeoutErr.Selector)
		assert.Equal(t, time.Second, timeoutErr.Timeout)
		require.ErrorIs(t, err, browser.ErrWaitTimeout)
	})

	t.Run("other driver errors are wrapped", func(t *testing.T) {
		session := &fakeSession{waitFunc: func(_ string, _ time.Duration) error { return assert.AnError }}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		err := page.WaitUntilVisible(ctx, "#map", time.Second)

		require.ErrorIs(t, err, assert.AnError)
		var timeoutErr *browser.TimeoutError
		assert.NotErrorAs(t, err, &timeoutErr)
	})
}

func TestMapPage_Click(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()

	t.Run("missing element", func(t *testing.T) {
		session := &fakeSession{countFunc: func(_ string) (int, error) { return 0, nil }}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		err := page.Click(ctx, "#map")

		var notFound *browser.ElementNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "#map", notFound.Selector)
		assert.Empty(t, session.clicked)
	})

	t.Run("lookup error", func(t *testing.T) {
		session := &fakeSession{countFunc: func(_ string) (int, error) { return 0, assert.AnError }}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		require.ErrorIs(t, page.Click(ctx, "#map"), assert.AnError)
		assert.Empty(t, session.clicked)
	})

	t.Run("clicks once", func(t *testing.T) {
		session := &fakeSession{}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		require.NoError(t, page.ClickOnMap(ctx))
		assert.Equal(t, []string{browser.DefaultMapSelector}, session.clicked)
	})

	t.Run("click error", func(t *testing.T) {
		session := &fakeSession{clickFunc: func(_ string) error { return assert.AnError }}
		page := browser.NewMapPage(session, browser.Selectors{}, 0, logger)

		require.ErrorIs(t, page.Click(ctx, "#map"), assert.AnError)
	})
}

func TestMapPage_ReadPopupText(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	selectors := browser.Selectors{Map: "#dispatch-map", Popup: ".popup"}

	t.Run("returns popup text", func(t *testing.T) {
		var waited []string
		session := &fakeSession{
			waitFunc: func(selector string, timeout time.Duration) error {
				waited = append(waited, selector)
				assert.Equal(t, 5*time.Second, timeout)
				return nil
			},
			textFunc: func(selector string) (string, error) {
				assert.Equal(t, ".popup", selector)
				return "A popup with coordinates (51.505, -0.09)", nil
			},
		}
		page := browser.NewMapPage(session, selectors, 5*time.Second, logger)

		text, err := page.CapturedCoordinates(ctx)

		require.NoError(t, err)
		assert.Equal(t, "A popup with coordinates (51.505, -0.09)", text)
		assert.Equal(t, []string{".popup"}, waited)
	})

	t.Run("popup never appears", func(t *testing.T) {
		session := &fakeSession{
			waitFunc: func(_ string, _ time.Duration) error { return browser.ErrWaitTimeout },
			textFunc: func(_ string) (string, error) {
				t.Fatal("text must not be read when the popup is missing")
				return "", nil
			},
		}
		page := browser.NewMapPage(session, selectors, 5*time.Second, logger)

		_, err := page.CapturedCoordinates(ctx)

		var timeoutErr *browser.TimeoutError
		require.ErrorAs(t, err, &timeoutErr)
		assert.Equal(t, ".popup", timeoutErr.Selector)
	})

	t.Run("text error", func(t *testing.T) {
		session := &fakeSession{textFunc: func(_ string) (string, error) { return "", assert.AnError }}
		page := browser.NewMapPage(session, selectors, 5*time.Second, logger)

		_, err := page.ReadPopupText(ctx, ".popup", time.Second)

		require.ErrorIs(t, err, assert.AnError)
	})
}

func TestMapPage_VerifyMapIsLive(t *testing.T) {
	session := &fakeSession{waitFunc: func(selector string, timeout time.Duration) error {
		assert.Equal(t, browser.DefaultMapSelector, selector)
		assert.Equal(t, browser.DefaultWaitTimeout, timeout)
		return nil
	}}
	page := browser.NewMapPage(session, browser.Selectors{}, 0, slog.Default())

	require.NoError(t, page.VerifyMapIsLive(t.Context()))
}
