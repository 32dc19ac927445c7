package service

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/UnknownOlympus/mapwatch/internal/parser"
)

// Default thresholds of the dispatch map check.
const (
	DefaultSLAThreshold     = 2000 * time.Millisecond
	DefaultExpectedLatitude = 51.505
	DefaultTolerance        = 0.001
)

// Measured regressions, as opposed to infrastructure failures.
var (
	ErrLatencyBreach = errors.New("latency exceeds SLA threshold")
	ErrDriftBreach   = errors.New("latitude drift exceeds tolerance")
)

// Thresholds are the pass criteria of a check.
type Thresholds struct {
	SLA              time.Duration // SLA is exclusive: latency must be strictly below it.
	ExpectedLatitude float64
	Tolerance        float64 // Tolerance is inclusive: drift may equal it.
}

// DefaultThresholds returns the thresholds used when nothing is configured.
func DefaultThresholds() Thresholds {
	return Thresholds{
		SLA:              DefaultSLAThreshold,
		ExpectedLatitude: DefaultExpectedLatitude,
		Tolerance:        DefaultTolerance,
	}
}

// LatencyWithinSLA reports whether elapsed is strictly below the SLA.
func (t Thresholds) LatencyWithinSLA(elapsed time.Duration) bool {
	return elapsed < t.SLA
}

// DriftWithinTolerance reports whether drift does not exceed the tolerance.
func (t Thresholds) DriftWithinTolerance(drift float64) bool {
	return drift <= t.Tolerance
}

// Drift is the absolute distance between an observed and an expected latitude.
func Drift(latitude, expected float64) float64 {
	return math.Abs(latitude - expected)
}

// Validation is the outcome of both checks for one interaction.
type Validation struct {
	Latency        time.Duration
	LatencyPassed  bool
	Latitude       float64
	LatitudeParsed bool
	Drift          float64
	AccuracyPassed bool
	Reason         models.FailureReason
	Message        string
	Err            error
}

// Passed reports whether both checks held.
func (v Validation) Passed() bool {
	return v.LatencyPassed && v.AccuracyPassed
}

// Evaluate runs the latency and the accuracy check independently. A popup
// that cannot be parsed is reported as ReasonFormatChanged, which takes
// precedence over the measured regressions; every failed check still
// contributes to Message.
func Evaluate(elapsed time.Duration, popupText string, thresholds Thresholds) Validation {
	var (
		messages []string
		errs     []error
	)
	v := Validation{Latency: elapsed, LatencyPassed: thresholds.LatencyWithinSLA(elapsed)}

	if !v.LatencyPassed {
		v.Reason = models.ReasonLatencyBreach
		messages = append(messages, fmt.Sprintf(
			"PERFORMANCE ALERT: Latency exceeds safety threshold! Expected < %dms, but got %dms",
			thresholds.SLA.Milliseconds(), elapsed.Milliseconds()))
		errs = append(errs, ErrLatencyBreach)
	}

	latitude, err := parser.ParseLatitude(popupText)
	switch {
	case err != nil:
		v.Reason = models.ReasonFormatChanged
		messages = append(messages, fmt.Sprintf("CRITICAL FAILURE: String format changed! Text was: %s", popupText))
		errs = append(errs, err)
	default:
		v.Latitude, v.LatitudeParsed = latitude, true
		v.Drift = Drift(latitude, thresholds.ExpectedLatitude)
		v.AccuracyPassed = thresholds.DriftWithinTolerance(v.Drift)
		if !v.AccuracyPassed {
			if v.Reason == models.ReasonNone {
				v.Reason = models.ReasonDriftBreach
			}
			messages = append(messages, fmt.Sprintf(
				"DATA INTEGRITY ALERT: GPS drift (%g) exceeds tolerance of %g! Expected latitude %g, found %g",
				v.Drift, thresholds.Tolerance, thresholds.ExpectedLatitude, latitude))
			errs = append(errs, ErrDriftBreach)
		}
	}

	v.Message = strings.Join(messages, "; ")
	v.Err = errors.Join(errs...)

	return v
}

// apply copies the validation into result and settles the verdict.
func (v Validation) apply(result *models.CheckResult) {
	result.Latency = v.Latency
	result.LatencyPassed = v.LatencyPassed
	result.Latitude = v.Latitude
	result.LatitudeParsed = v.LatitudeParsed
	result.Drift = v.Drift
	result.AccuracyPassed = v.AccuracyPassed
	result.Advance(models.StageValidated)

	if v.Passed() {
		result.Outcome = models.OutcomePassed
		result.Advance(models.StagePassed)
		return
	}
	result.Fail(v.Reason, v.Message, v.Err)
}
