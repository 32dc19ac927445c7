package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/browser"
	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/UnknownOlympus/mapwatch/internal/report"
	"github.com/UnknownOlympus/mapwatch/internal/service"
	"github.com/UnknownOlympus/mapwatch/test/mocks"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type staticLast struct {
	result models.CheckResult
	ok     bool
}

func (s staticLast) Last() (models.CheckResult, bool) { return s.result, s.ok }

func serve(t *testing.T, handler http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestMonitoringServer(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	t.Run("healthz without database", func(t *testing.T) {
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, staticLast{}, nil, 8080)

		rec := serve(t, server.Handler, "/healthz")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "OK", rec.Body.String())
		assert.Equal(t, ":8080", server.Addr)
	})

	t.Run("healthz with failing database", func(t *testing.T) {
		ping := pingFunc(func(context.Context) error { return errors.New("connection refused") })
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), ping, staticLast{}, nil, 8080)

		rec := serve(t, server.Handler, "/healthz")

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "DB ping failed", rec.Body.String())
	})

	t.Run("status before the first check", func(t *testing.T) {
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, staticLast{}, nil, 8080)

		rec := serve(t, server.Handler, "/status")

		assert.Equal(t, http.StatusNoContent, rec.Code)
	})

	t.Run("status reports the last check", func(t *testing.T) {
		last := staticLast{ok: true, result: models.CheckResult{
			ID:      "run-1",
			Outcome: models.OutcomeFailed,
			Reason:  models.ReasonDriftBreach,
		}}
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, last, nil, 8080)

		rec := serve(t, server.Handler, "/status")

		require.Equal(t, http.StatusOK, rec.Code)
		var got models.CheckResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, "run-1", got.ID)
		assert.Equal(t, models.ReasonDriftBreach, got.Reason)
	})

	t.Run("checks without persistence", func(t *testing.T) {
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, staticLast{}, nil, 8080)

		rec := serve(t, server.Handler, "/checks")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("checks with limit", func(t *testing.T) {
		store := mocks.NewInterface(t)
		store.On("RecentResults", mock.Anything, 5).
			Return([]models.CheckResult{{ID: "a"}, {ID: "b"}}, nil).Once()
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, staticLast{}, store, 8080)

		rec := serve(t, server.Handler, "/checks?limit=5")

		require.Equal(t, http.StatusOK, rec.Code)
		var got []models.CheckResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Len(t, got, 2)
	})

	t.Run("checks with invalid limit", func(t *testing.T) {
		store := mocks.NewInterface(t)
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, staticLast{}, store, 8080)

		rec := serve(t, server.Handler, "/checks?limit=-1")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("checks store failure", func(t *testing.T) {
		store := mocks.NewInterface(t)
		store.On("RecentResults", mock.Anything, defaultRecentLimit).
			Return(nil, errors.New("db down")).Once()
		server := newMonitoringServer(ctx, logger, prometheus.NewRegistry(), nil, staticLast{}, store, 8080)

		rec := serve(t, server.Handler, "/checks")

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})

	t.Run("metrics", func(t *testing.T) {
		reg := prometheus.NewRegistry()
		counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "mapwatch_test_total", Help: "test"})
		reg.MustRegister(counter)
		counter.Inc()
		server := newMonitoringServer(ctx, logger, reg, nil, staticLast{}, nil, 8080)

		rec := serve(t, server.Handler, "/metrics")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "mapwatch_test_total 1")
	})
}

func TestSetupLogger(t *testing.T) {
	for _, env := range []string{envLocal, envDev, envProd, "unknown"} {
		t.Run(env, func(t *testing.T) {
			assert.NotNil(t, setupLogger(env))
		})
	}
}

// popupSession is a healthy page whose popup shows text.
type popupSession struct {
	text   string
	closed int
}

func (s *popupSession) Navigate(context.Context, string) error { return nil }

func (s *popupSession) WaitVisible(context.Context, string, time.Duration) error { return nil }

func (s *popupSession) Count(context.Context, string) (int, error) { return 1, nil }

func (s *popupSession) Click(context.Context, string) error { return nil }

func (s *popupSession) Text(context.Context, string) (string, error) { return s.text, nil }

func (s *popupSession) Screenshot(context.Context) ([]byte, error) { return []byte("png"), nil }

func (s *popupSession) Close() error {
	s.closed++
	return nil
}

func TestRunOnce(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()

	newCheck := func(t *testing.T, launch func(*mocks.Launcher)) *service.HealthCheck {
		launcher := mocks.NewLauncher(t)
		launch(launcher)
		return service.NewHealthCheck(logger, launcher, report.NewLogSink(logger), nil, nil, nil, service.Settings{
			TargetURL:  "http://map.test",
			Thresholds: service.DefaultThresholds(),
		})
	}

	tests := []struct {
		name   string
		launch func(*mocks.Launcher)
		code   int
	}{
		{
			name: "passed",
			launch: func(l *mocks.Launcher) {
				l.On("Launch", mock.Anything).Return(&popupSession{text: "LatLng(51.505, -0.09)"}, nil).Once()
			},
			code: 0,
		},
		{
			name: "drifted latitude",
			launch: func(l *mocks.Launcher) {
				l.On("Launch", mock.Anything).Return(&popupSession{text: "LatLng(51.6, -0.09)"}, nil).Once()
			},
			code: 1,
		},
		{
			name: "changed format",
			launch: func(l *mocks.Launcher) {
				l.On("Launch", mock.Anything).Return(&popupSession{text: "51.505 N"}, nil).Once()
			},
			code: 1,
		},
		{
			name: "browser not launched",
			launch: func(l *mocks.Launcher) {
				l.On("Launch", mock.Anything).Return(nil, errors.New("no chromium")).Once()
			},
			code: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.code, runOnce(ctx, logger, newCheck(t, tt.launch)))
		})
	}

	t.Run("session closed after the check", func(t *testing.T) {
		session := &popupSession{text: "LatLng(51.505, -0.09)"}
		check := newCheck(t, func(l *mocks.Launcher) {
			l.On("Launch", mock.Anything).Return(session, nil).Once()
		})

		require.Equal(t, 0, runOnce(ctx, logger, check))
		assert.Equal(t, 1, session.closed)
	})
}

var _ browser.Session = (*popupSession)(nil)
