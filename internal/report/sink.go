// Package report collects the diagnostic attachments a check run produces.
package report

import (
	"context"
	"errors"

	"github.com/UnknownOlympus/mapwatch/internal/models"
)

// Media types used for attachments.
const (
	MediaText = "text/plain"
	MediaPNG  = "image/png"
)

// Sink receives named attachments for a run and the final result. Sinks are
// observational: nothing in the check depends on what they do.
type Sink interface {
	Attach(ctx context.Context, runID, name, mediaType string, data []byte) error
	Finish(ctx context.Context, result models.CheckResult) error
}

// Multi fans every call out to all sinks.
type Multi []Sink

func (m Multi) Attach(ctx context.Context, runID, name, mediaType string, data []byte) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Attach(ctx, runID, name, mediaType, data); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (m Multi) Finish(ctx context.Context, result models.CheckResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Finish(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
