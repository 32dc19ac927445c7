package report

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/UnknownOlympus/mapwatch/internal/models"
	"github.com/google/uuid"
)

// Attachment is a file written next to a run summary.
type Attachment struct {
	Name      string `json:"name"`
	MediaType string `json:"media_type"`
	Source    string `json:"source"` // Source is the file name relative to the report directory.
}

// Summary is the JSON document written for every finished run.
type Summary struct {
	Result      models.CheckResult `json:"result"`
	Error       string             `json:"error,omitempty"`
	Attachments []Attachment       `json:"attachments"`
}

// Directory stores attachments as files and writes "<runID>.json" when a run
// finishes.
type Directory struct {
	dir     string
	log     *slog.Logger
	mu      sync.Mutex
	pending map[string][]Attachment
}

// NewDirectory creates dir if needed.
func NewDirectory(dir string, log *slog.Logger) (*Directory, error) {
	const perm = 0o755
	if err := os.MkdirAll(dir, perm); err != nil {
		return nil, fmt.Errorf("failed to create report directory: %w", err)
	}

	return &Directory{dir: dir, log: log, pending: make(map[string][]Attachment)}, nil
}

func (d *Directory) Attach(ctx context.Context, runID, name, mediaType string, data []byte) error {
	const perm = 0o644
	source := fmt.Sprintf("%s-attachment%s", uuid.NewString(), extension(mediaType))
	if err := os.WriteFile(filepath.Join(d.dir, source), data, perm); err != nil {
		return fmt.Errorf("failed to write attachment %q: %w", name, err)
	}

	d.mu.Lock()
	d.pending[runID] = append(d.pending[runID], Attachment{Name: name, MediaType: mediaType, Source: source})
	d.mu.Unlock()

	d.log.DebugContext(ctx, "Attachment written", "run", runID, "name", name, "file", source)

	return nil
}

func (d *Directory) Finish(ctx context.Context, result models.CheckResult) error {
	const perm = 0o644

	d.mu.Lock()
	attachments := d.pending[result.ID]
	delete(d.pending, result.ID)
	d.mu.Unlock()

	summary := Summary{Result: result, Attachments: attachments}
	if result.Err != nil {
		summary.Error = result.Err.Error()
	}
	if summary.Attachments == nil {
		summary.Attachments = []Attachment{}
	}

	body, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run summary: %w", err)
	}

	path := filepath.Join(d.dir, result.ID+".json")
	if err = os.WriteFile(path, body, perm); err != nil {
		return fmt.Errorf("failed to write run summary: %w", err)
	}
	d.log.InfoContext(ctx, "Run summary written", "path", path)

	return nil
}

func extension(mediaType string) string {
	switch mediaType {
	case MediaPNG:
		return ".png"
	case MediaText:
		return ".txt"
	default:
		return ""
	}
}
