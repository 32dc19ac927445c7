package service

import (
	"context"
	"sync"
	"time"

	"github.com/UnknownOlympus/mapwatch/internal/browser"
	"github.com/UnknownOlympus/mapwatch/internal/models"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// fakeSession behaves like a healthy Leaflet page unless told otherwise.
type fakeSession struct {
	navigateErr   error
	waitErrs      map[string]error
	missing       map[string]bool
	text          string
	textErr       error
	onText        func()
	screenshotErr error
	closeErr      error

	navigated []string
	clicks    int
	closed    int
}

func (f *fakeSession) Navigate(_ context.Context, url string) error {
	f.navigated = append(f.navigated, url)
	return f.navigateErr
}

func (f *fakeSession) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	return f.waitErrs[selector]
}

func (f *fakeSession) Count(_ context.Context, selector string) (int, error) {
	if f.missing[selector] {
		return 0, nil
	}
	return 1, nil
}

func (f *fakeSession) Click(_ context.Context, _ string) error {
	f.clicks++
	return nil
}

func (f *fakeSession) Text(_ context.Context, _ string) (string, error) {
	if f.onText != nil {
		f.onText()
	}
	return f.text, f.textErr
}

func (f *fakeSession) Screenshot(_ context.Context) ([]byte, error) {
	if f.screenshotErr != nil {
		return nil, f.screenshotErr
	}
	return []byte{0x89, 'P', 'N', 'G'}, nil
}

func (f *fakeSession) Close() error {
	f.closed++
	return f.closeErr
}

var _ browser.Session = (*fakeSession)(nil)

type attachment struct {
	mediaType string
	data      []byte
}

// recordingSink keeps every attachment by name.
type recordingSink struct {
	attachments map[string]attachment
	order       []string
	finished    []models.CheckResult
	attachErr   map[string]error
}

func newRecordingSink() *recordingSink {
	return &recordingSink{attachments: make(map[string]attachment), attachErr: make(map[string]error)}
}

func (s *recordingSink) Attach(_ context.Context, _, name, mediaType string, data []byte) error {
	if err := s.attachErr[name]; err != nil {
		return err
	}
	s.attachments[name] = attachment{mediaType: mediaType, data: data}
	s.order = append(s.order, name)
	return nil
}

func (s *recordingSink) Finish(_ context.Context, result models.CheckResult) error {
	s.finished = append(s.finished, result)
	return nil
}

func (s *recordingSink) text(name string) string {
	return string(s.attachments[name].data)
}

func (s *recordingSink) has(name string) bool {
	_, ok := s.attachments[name]
	return ok
}
