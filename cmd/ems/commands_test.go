package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	fakecachestore "github.com/jrsteele09/go-ems-client/cache/repofake"
	fakecredentialstore "github.com/jrsteele09/go-ems-client/credentials/repofake"
	"github.com/jrsteele09/go-ems-client/grades"
	"github.com/jrsteele09/go-ems-client/internal/config"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	fakescraper "github.com/jrsteele09/go-ems-client/scrape/scrapefake"
	"github.com/jrsteele09/go-ems-client/session"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	creds   *fakecredentialstore.FakeStore
	cache   *fakecachestore.FakeStore
	scraper *fakescraper.FakeScraper
	opened  int
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()
	return &testFixture{
		creds: fakecredentialstore.NewFakeStore(),
		cache: fakecachestore.NewFakeStore(),
		scraper: fakescraper.NewFakeScraper(fakescraper.Response{
			Progress: []string{"50%"},
			Grades: []grades.Grade{
				{No: "1", CourseTitle: "Calculus", Code: "MATH101", CreditHour: "3", ECTS: "5", Grade: "A", AcademicYear: "2023/24", Semester: "I"},
				{No: "2", CourseTitle: "Physics", Code: "PHYS101", CreditHour: "3", ECTS: "5", Grade: "B", AcademicYear: "2023/24", Semester: "I",
					Assessments: []grades.Assessment{{Name: "Final", Result: "45"}}},
				{No: "3", CourseTitle: "Ethics", Code: "PHIL101", CreditHour: "2", ECTS: "3", Grade: "C"},
			},
		}),
	}
}

func (f *testFixture) open(_ context.Context, _ config.Config) (*workspace, error) {
	f.opened++
	manager, err := session.New(session.Deps{
		Credentials: f.creds,
		Cache:       f.cache,
		Scraper:     f.scraper,
	}, session.WithStatusDelays(0, 0))
	if err != nil {
		return nil, err
	}
	return &workspace{manager: manager, cache: f.cache, close: manager.Close}, nil
}

// execute runs the CLI once and returns stdout and stderr.
func (f *testFixture) execute(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	root := newRootCmd(config.New(), f.open)
	root.SetArgs(args)
	root.SetIn(strings.NewReader(stdin))
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	err := root.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestLoginCommand(t *testing.T) {
	t.Run("password from stdin", func(t *testing.T) {
		f := setupTestFixture(t)
		out, status, err := f.execute(t, "pw1\n", "login", "-u", "alice", "--password-stdin")
		require.NoError(t, err)
		require.Contains(t, out, "Logged in as alice.")
		require.Contains(t, out, "3 grades synced.")
		require.Contains(t, status, "50%")
		require.Equal(t, "pw1", f.creds.Stored().Password)
	})

	t.Run("prompts for username and password", func(t *testing.T) {
		f := setupTestFixture(t)
		original := readPasswordFunc
		t.Cleanup(func() { readPasswordFunc = original })
		readPasswordFunc = func(int) ([]byte, error) { return []byte("secret"), nil }

		out, status, err := f.execute(t, "bob\n", "login")
		require.NoError(t, err)
		require.Contains(t, status, "Username: ")
		require.Contains(t, status, "Password: ")
		require.Contains(t, out, "Logged in as bob.")
		require.Equal(t, "secret", f.scraper.LastCredentials().Password)
	})

	t.Run("empty password is rejected before any I/O", func(t *testing.T) {
		f := setupTestFixture(t)
		_, _, err := f.execute(t, "\n", "login", "-u", "alice", "--password-stdin")
		require.ErrorIs(t, err, apperrors.ErrValidation)
		require.Zero(t, f.opened)
		require.Zero(t, f.creds.Calls())
		require.Zero(t, f.cache.Calls())
		require.Zero(t, f.scraper.Calls())
	})

	t.Run("sync failure keeps the login", func(t *testing.T) {
		f := setupTestFixture(t)
		f.scraper.Respond(fakescraper.Response{Err: errors.Wrap(apperrors.ErrNetworkUnreachable, "refused")})

		out, _, err := f.execute(t, "pw1\n", "login", "-u", "alice", "--password-stdin")
		require.ErrorIs(t, err, apperrors.ErrNetworkUnreachable)
		require.Contains(t, out, "Logged in as alice.")
		require.NotNil(t, f.creds.Stored())
	})
}

func TestGradeCommands(t *testing.T) {
	f := setupTestFixture(t)
	_, _, err := f.execute(t, "pw1\n", "login", "-u", "alice", "--password-stdin")
	require.NoError(t, err)

	t.Run("grades grouped by term", func(t *testing.T) {
		out, _, err := f.execute(t, "", "grades", "--details")
		require.NoError(t, err)
		require.Contains(t, out, "2023/24")
		require.Contains(t, out, grades.UnknownYear)
		require.Contains(t, out, "Final 45")
		require.Less(t, strings.Index(out, "2023/24"), strings.Index(out, grades.UnknownYear))
	})

	t.Run("year filter", func(t *testing.T) {
		out, _, err := f.execute(t, "", "grades", "--year", "2023/24")
		require.NoError(t, err)
		require.Contains(t, out, "Calculus")
		require.NotContains(t, out, "Ethics")
	})

	t.Run("unknown year lists the cached ones", func(t *testing.T) {
		_, _, err := f.execute(t, "", "grades", "--year", "2019/20")
		require.ErrorIs(t, err, apperrors.ErrValidation)
		require.Contains(t, err.Error(), "2023/24, "+grades.UnknownYear)
	})

	t.Run("gpa", func(t *testing.T) {
		out, _, err := f.execute(t, "", "gpa")
		require.NoError(t, err)
		require.Contains(t, out, "3.50")
	})

	t.Run("status", func(t *testing.T) {
		out, _, err := f.execute(t, "", "status")
		require.NoError(t, err)
		require.Contains(t, out, "Logged in as alice")
		require.Contains(t, out, "Cached grades: 3")
	})

	t.Run("sync", func(t *testing.T) {
		out, _, err := f.execute(t, "", "sync")
		require.NoError(t, err)
		require.Contains(t, out, "3 grades synced.")
	})

	t.Run("logout", func(t *testing.T) {
		out, _, err := f.execute(t, "", "logout")
		require.NoError(t, err)
		require.Contains(t, out, "Logged out.")
		require.Nil(t, f.creds.Stored())

		_, _, err = f.execute(t, "", "grades")
		require.ErrorIs(t, err, apperrors.ErrNotLoggedIn)
		_, _, err = f.execute(t, "", "sync")
		require.ErrorIs(t, err, apperrors.ErrNotLoggedIn)
	})
}

func TestVersionCommand(t *testing.T) {
	f := setupTestFixture(t)
	out, _, err := f.execute(t, "", "version")
	require.NoError(t, err)
	require.Contains(t, out, "version dev")
}
