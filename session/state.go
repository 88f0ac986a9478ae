package session

import "github.com/jrsteele09/go-ems-client/grades"

// Phase is the outer state of the session.
type Phase int

const (
	PhaseUninitialized Phase = iota
	PhaseRestoring
	PhaseLoggedOut
	PhaseLoggedIn
)

func (p Phase) String() string {
	switch p {
	case PhaseUninitialized:
		return "uninitialized"
	case PhaseRestoring:
		return "restoring"
	case PhaseLoggedOut:
		return "logged-out"
	case PhaseLoggedIn:
		return "logged-in"
	}
	return "unknown"
}

// User is the public view of the logged in student. The password never leaves
// the manager.
type User struct {
	Username string
}

// State is a snapshot of the session handed to UI consumers.
//
// IsLoggedIn implies User is set. Grades is the last known-good collection; a
// failed sync never clears it.
type State struct {
	Phase          Phase
	User           *User
	Grades         []grades.Grade
	IsLoggedIn     bool
	IsLoading      bool
	LoadingMessage string
	// Syncing is set while a scrape is in flight. It does not change Phase.
	Syncing bool
	// Err is the failure of the most recent operation, nil once a new one starts.
	Err error
}

func (s State) clone() State {
	out := s
	out.Grades = grades.Clone(s.Grades)
	if s.User != nil {
		u := *s.User
		out.User = &u
	}
	return out
}
