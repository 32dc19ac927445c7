package service

import (
	"math"
	"testing"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/UnknownOlympus/mapwatch/internal/parser"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThresholds_Boundaries(t *testing.T) {
	thresholds := DefaultThresholds()

	t.Run("latency is strict", func(t *testing.T) {
		assert.True(t, thresholds.LatencyWithinSLA(1999*time.Millisecond))
		assert.False(t, thresholds.LatencyWithinSLA(2000*time.Millisecond))
		assert.False(t, thresholds.LatencyWithinSLA(2001*time.Millisecond))
	})

	t.Run("drift is inclusive", func(t *testing.T) {
		assert.True(t, thresholds.DriftWithinTolerance(0))
		assert.True(t, thresholds.DriftWithinTolerance(0.001))
		assert.False(t, thresholds.DriftWithinTolerance(math.Nextafter(0.001, 1)))
	})
}

func TestDrift_Symmetric(t *testing.T) {
	for _, d := range []float64{0, 0.0005, 0.001, 0.095, 1, 12.25} {
		above := Drift(DefaultExpectedLatitude+d, DefaultExpectedLatitude)
		below := Drift(DefaultExpectedLatitude-d, DefaultExpectedLatitude)

		assert.InDelta(t, above, below, 1e-12, "d=%v", d)
		assert.GreaterOrEqual(t, above, 0.0)
	}
}

func TestEvaluate(t *testing.T) {
	thresholds := DefaultThresholds()

	t.Run("exact coordinates within SLA", func(t *testing.T) {
		v := Evaluate(500*time.Millisecond, "A popup with coordinates (51.505, -0.09)", thresholds)

		assert.True(t, v.Passed())
		assert.True(t, v.LatitudeParsed)
		assert.InDelta(t, 51.505, v.Latitude, 1e-12)
		assert.InDelta(t, 0, v.Drift, 1e-12)
		assert.Equal(t, models.ReasonNone, v.Reason)
		assert.Empty(t, v.Message)
		require.NoError(t, v.Err)
	})

	t.Run("drift out of tolerance", func(t *testing.T) {
		v := Evaluate(500*time.Millisecond, "A popup with coordinates (51.600, -0.09)", thresholds)

		assert.False(t, v.Passed())
		assert.True(t, v.LatencyPassed)
		assert.False(t, v.AccuracyPassed)
		assert.InDelta(t, 0.095, v.Drift, 1e-9)
		assert.Equal(t, models.ReasonDriftBreach, v.Reason)
		assert.Contains(t, v.Message, "DATA INTEGRITY ALERT")
		assert.Contains(t, v.Message, "51.6")
		require.ErrorIs(t, v.Err, ErrDriftBreach)
	})

	t.Run("format changed", func(t *testing.T) {
		v := Evaluate(500*time.Millisecond, "malformed text no parens", thresholds)

		assert.False(t, v.Passed())
		assert.False(t, v.LatitudeParsed)
		assert.Equal(t, models.ReasonFormatChanged, v.Reason)
		assert.Contains(t, v.Message, "String format changed")
		assert.Contains(t, v.Message, "malformed text no parens")
		assert.NotContains(t, v.Message, "DATA INTEGRITY ALERT")

		var formatErr *parser.FormatError
		require.ErrorAs(t, v.Err, &formatErr)
		assert.Equal(t, "malformed text no parens", formatErr.Text)
	})

	t.Run("latency at threshold", func(t *testing.T) {
		v := Evaluate(2000*time.Millisecond, "A popup with coordinates (51.505, -0.09)", thresholds)

		assert.False(t, v.Passed())
		assert.False(t, v.LatencyPassed)
		assert.True(t, v.AccuracyPassed, "checks are independent")
		assert.Equal(t, models.ReasonLatencyBreach, v.Reason)
		assert.Contains(t, v.Message, "Expected < 2000ms, but got 2000ms")
		require.ErrorIs(t, v.Err, ErrLatencyBreach)
	})

	t.Run("latency and drift both fail", func(t *testing.T) {
		v := Evaluate(3*time.Second, "(52, 0)", thresholds)

		assert.Equal(t, models.ReasonLatencyBreach, v.Reason)
		assert.Contains(t, v.Message, "PERFORMANCE ALERT")
		assert.Contains(t, v.Message, "DATA INTEGRITY ALERT")
		require.ErrorIs(t, v.Err, ErrLatencyBreach)
		require.ErrorIs(t, v.Err, ErrDriftBreach)
	})

	t.Run("format failure outranks latency", func(t *testing.T) {
		v := Evaluate(3*time.Second, "no coordinates", thresholds)

		assert.Equal(t, models.ReasonFormatChanged, v.Reason)
		assert.Contains(t, v.Message, "PERFORMANCE ALERT")
		require.ErrorIs(t, v.Err, ErrLatencyBreach)
	})

	t.Run("custom thresholds", func(t *testing.T) {
		custom := Thresholds{SLA: time.Second, ExpectedLatitude: -33.8688, Tolerance: 0.01}

		v := Evaluate(999*time.Millisecond, "Sydney (-33.87, 151.2)", custom)

		assert.True(t, v.Passed())
	})
}
