package session_test

import (
	"context"
	"sync"
	"testing"
	"time"

	fakecachestore "github.com/jrsteele09/go-ems-client/cache/repofake"
	"github.com/jrsteele09/go-ems-client/credentials"
	fakecredentialstore "github.com/jrsteele09/go-ems-client/credentials/repofake"
	"github.com/jrsteele09/go-ems-client/grades"
	fakescraper "github.com/jrsteele09/go-ems-client/scrape/scrapefake"
	"github.com/jrsteele09/go-ems-client/session"
	"github.com/stretchr/testify/require"
)

const (
	testUsername = "alice"
	testPassword = "pw1"

	waitFor = 5 * time.Second
	tick    = 5 * time.Millisecond
)

var testCreds = credentials.Credentials{Username: testUsername, Password: testPassword}

func calculus() []grades.Grade {
	return []grades.Grade{{
		No: "1", CourseTitle: "Calculus", Code: "MATH101", CreditHour: "3", ECTS: "5", Grade: "A",
		Assessments: []grades.Assessment{},
	}}
}

func physics() []grades.Grade {
	return []grades.Grade{{
		No: "2", CourseTitle: "Physics", Code: "PHYS101", CreditHour: "4", ECTS: "7", Grade: "B",
		AcademicYear: "2023/24", Semester: "I",
		Assessments: []grades.Assessment{{Name: "Final", Result: "45"}},
	}}
}

// recorder collects every snapshot a subscriber receives.
type recorder struct {
	lock   sync.Mutex
	states []session.State
}

func (r *recorder) record(s session.State) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.states = append(r.states, s)
}

func (r *recorder) count() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.states)
}

func (r *recorder) messages() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	out := make([]string, 0, len(r.states))
	for _, s := range r.states {
		out = append(out, s.LoadingMessage)
	}
	return out
}

func (r *recorder) snapshots() []session.State {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]session.State(nil), r.states...)
}

type testFixture struct {
	creds   *fakecredentialstore.FakeStore
	cache   *fakecachestore.FakeStore
	scraper *fakescraper.FakeScraper
	manager *session.Manager
	events  *recorder
}

// setupTestFixture builds a manager over empty fakes. Status messages are held
// for an hour unless options say otherwise, so tests can read them.
func setupTestFixture(t *testing.T, options ...session.Option) *testFixture {
	t.Helper()

	f := &testFixture{
		creds:   fakecredentialstore.NewFakeStore(),
		cache:   fakecachestore.NewFakeStore(),
		scraper: fakescraper.NewFakeScraper(fakescraper.Response{Grades: calculus()}),
		events:  &recorder{},
	}
	options = append([]session.Option{session.WithStatusDelays(time.Hour, time.Hour)}, options...)
	manager, err := session.New(session.Deps{
		Credentials: f.creds,
		Cache:       f.cache,
		Scraper:     f.scraper,
	}, options...)
	require.NoError(t, err)
	t.Cleanup(manager.Close)

	manager.Subscribe(f.events.record)
	f.manager = manager
	return f
}

// loggedIn seeds the stores with a saved session and restores it.
func (f *testFixture) loggedIn(t *testing.T, cached []grades.Grade) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.creds.Put(ctx, testCreds))
	require.NoError(t, f.cache.Put(ctx, cached))
	require.NoError(t, f.manager.Restore(ctx))
	require.True(t, f.manager.Snapshot().IsLoggedIn)
}

func waitStarted(t *testing.T, s *fakescraper.FakeScraper) {
	t.Helper()
	select {
	case <-s.Started():
	case <-time.After(waitFor):
		t.Fatal("scrape never started")
	}
}

// waitHeld waits until a store call is held by its gate.
func waitHeld(t *testing.T, called <-chan struct{}) {
	t.Helper()
	select {
	case <-called:
	case <-time.After(waitFor):
		t.Fatal("store call never arrived")
	}
}

func receive(t *testing.T, ch <-chan error) error {
	t.Helper()
	select {
	case err := <-ch:
		return err
	case <-time.After(waitFor):
		t.Fatal("operation did not return")
		return nil
	}
}
