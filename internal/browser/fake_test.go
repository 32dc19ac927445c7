package browser_test

import (
	"context"
	"time"
)

// fakeSession is a scripted Session for exercising the page object.
type fakeSession struct {
	waitFunc  func(selector string, timeout time.Duration) error
	countFunc func(selector string) (int, error)
	clickFunc func(selector string) error
	textFunc  func(selector string) (string, error)

	clicked []string
}

func (f *fakeSession) Navigate(_ context.Context, _ string) error { return nil }

func (f *fakeSession) WaitVisible(_ context.Context, selector string, timeout time.Duration) error {
	if f.waitFunc == nil {
		return nil
	}
	return f.waitFunc(selector, timeout)
}

func (f *fakeSession) Count(_ context.Context, selector string) (int, error) {
	if f.countFunc == nil {
		return 1, nil
	}
	return f.countFunc(selector)
}

func (f *fakeSession) Click(_ context.Context, selector string) error {
	f.clicked = append(f.clicked, selector)
	if f.clickFunc == nil {
		return nil
	}
	return f.clickFunc(selector)
}

func (f *fakeSession) Text(_ context.Context, selector string) (string, error) {
	if f.textFunc == nil {
		return "", nil
	}
	return f.textFunc(selector)
}

func (f *fakeSession) Screenshot(_ context.Context) ([]byte, error) { return nil, nil }

func (f *fakeSession) Close() error { return nil }
