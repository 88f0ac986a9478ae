package fakescraper

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	"github.com/jrsteele09/go-ems-client/scrape"
)

var _ scrape.Scraper = (*FakeScraper)(nil)

// Response is one scripted outcome. Progress messages are reported before the
// scraper blocks (see Block) and before Grades or Err is returned.
type Response struct {
	Progress []string
	Grades   []grades.Grade
	Err      error
}

// FakeScraper replays scripted responses in order; the last one repeats.
type FakeScraper struct {
	responses []Response
	gate      chan struct{}
	started   chan struct{}
	next      int
	calls     int
	lastCreds credentials.Credentials
	lock      sync.Mutex
}

func NewFakeScraper(responses ...Response) *FakeScraper {
	return &FakeScraper{
		responses: responses,
		started:   make(chan struct{}, 64),
	}
}

func (f *FakeScraper) Scrape(ctx context.Context, creds credentials.Credentials, progress scrape.ProgressFunc) ([]grades.Grade, error) {
	f.lock.Lock()
	resp := Response{Grades: []grades.Grade{}}
	if n := len(f.responses); n > 0 {
		idx := f.next
		if idx >= n {
			idx = n - 1
		}
		resp = f.responses[idx]
		f.next++
	}
	f.calls++
	f.lastCreds = creds
	gate := f.gate
	f.lock.Unlock()

	for _, msg := range resp.Progress {
		if progress != nil {
			progress(msg)
		}
	}
	select {
	case f.started <- struct{}{}:
	default:
	}

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if resp.Err != nil {
		return nil, resp.Err
	}
	return grades.Clone(resp.Grades), nil
}

// Respond replaces the scripted responses and restarts the script.
func (f *FakeScraper) Respond(responses ...Response) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.responses = responses
	f.next = 0
}

// Block makes every following Scrape wait, after reporting its progress, until
// release is called or its context is cancelled.
func (f *FakeScraper) Block() (release func()) {
	gate := make(chan struct{})
	f.lock.Lock()
	f.gate = gate
	f.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			f.lock.Lock()
			if f.gate == gate {
				f.gate = nil
			}
			f.lock.Unlock()
			close(gate)
		})
	}
}

// Started receives once per Scrape call, after its progress has been reported.
func (f *FakeScraper) Started() <-chan struct{} {
	return f.started
}

func (f *FakeScraper) Calls() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.calls
}

func (f *FakeScraper) LastCredentials() credentials.Credentials {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.lastCreds
}
