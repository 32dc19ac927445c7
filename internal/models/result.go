package models

import "time"

// Stage is a step of the health check lifecycle.
type Stage string

// Lifecycle stages in the order a check walks through them.
const (
	StageInit        Stage = "init"
	StageNavigated   Stage = "navigated"
	StageMapVerified Stage = "map_verified"
	StageInteracted  Stage = "interacted"
	StageValidated   Stage = "validated"
	StagePassed      Stage = "passed"
	StageFailed      Stage = "failed"
	StageClosed      Stage = "closed"
)

// Outcome is the overall verdict of a check run.
type Outcome string

const (
	OutcomePassed Outcome = "passed"
	OutcomeFailed Outcome = "failed"
)

// FailureReason classifies why a run failed. Infrastructure reasons
// (setup, map, interaction, format) are kept apart from measured regressions
// (latency, drift).
type FailureReason string

const (
	ReasonNone              FailureReason = ""
	ReasonSetupFailed       FailureReason = "setup_failed"
	ReasonMapUnavailable    FailureReason = "map_unavailable"
	ReasonInteractionBroken FailureReason = "interaction_broken"
	ReasonFormatChanged     FailureReason = "format_changed"
	ReasonLatencyBreach     FailureReason = "latency_breach"
	ReasonDriftBreach       FailureReason = "drift_breach"
)

// CheckResult holds everything measured during a single check run.
type CheckResult struct {
	ID             string        `json:"id"`
	TargetURL      string        `json:"target_url"`
	StartedAt      time.Time     `json:"started_at"`
	FinishedAt     time.Time     `json:"finished_at"`
	Stage          Stage         `json:"stage"`            // Stage is the last stage the run reached.
	FailedAt       Stage         `json:"failed_at"`        // FailedAt is the stage that was current when the run failed.
	Latency        time.Duration `json:"latency"`          // Latency is the click to popup round trip.
	PopupText      string        `json:"popup_text"`       // PopupText is the raw popup content.
	Latitude       float64       `json:"latitude"`         // Latitude parsed from the popup.
	LatitudeParsed bool          `json:"latitude_parsed"`  // LatitudeParsed is false when the popup format was not recognized.
	Drift          float64       `json:"drift"`            // Drift is |Latitude - expected|.
	LatencyPassed  bool          `json:"latency_passed"`   // LatencyPassed reports the SLA check.
	AccuracyPassed bool          `json:"accuracy_passed"`  // AccuracyPassed reports the tolerance check.
	Outcome        Outcome       `json:"outcome"`
	Reason         FailureReason `json:"reason,omitempty"`
	Message        string        `json:"message,omitempty"`
	Err            error         `json:"-"`
}

// Passed reports whether the run ended with a passing verdict.
func (r *CheckResult) Passed() bool {
	return r.Outcome == OutcomePassed
}

// Advance moves the run to the given stage.
func (r *CheckResult) Advance(stage Stage) {
	r.Stage = stage
}

// Fail marks the run as failed at its current stage. The first failure wins;
// later calls keep the original reason and message.
func (r *CheckResult) Fail(reason FailureReason, message string, err error) {
	if r.Outcome == OutcomeFailed {
		return
	}
	r.FailedAt = r.Stage
	r.Stage = StageFailed
	r.Outcome = OutcomeFailed
	r.Reason = reason
	r.Message = message
	r.Err = err
}
