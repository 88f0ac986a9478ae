// Package session owns the login, logout and sync lifecycle of the single
// process-wide session and exposes it to consumers as an observable State.
package session

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/jrsteele09/go-ems-client/scrape"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

const (
	defaultSuccessDisplay = 2 * time.Second
	defaultErrorDisplay   = 5 * time.Second
)

var (
	// ErrClosed is returned by operations on a closed Manager.
	ErrClosed = errors.New("session closed")

	errAlreadyRestored = errors.New("session already restored")
	// errSuperseded reports work whose result was discarded because Logout,
	// Login or Close changed the session while it ran.
	errSuperseded = errors.Wrap(context.Canceled, "superseded")
)

// Deps holds the collaborators of the Manager.
type Deps struct {
	Credentials credentials.Store
	Cache       cache.Store
	Scraper     scrape.Scraper
}

// Manager serializes state changes under its lock and performs storage and
// network I/O outside of it.
type Manager struct {
	deps           Deps
	successDisplay time.Duration
	errorDisplay   time.Duration

	lock        sync.Mutex
	state       State
	creds       *credentials.Credentials
	// pending holds the credentials of a Login whose Put has not finished.
	// They become creds only once stored.
	pending     *credentials.Credentials
	subscribers []subscriber
	// epoch changes on every Login, Logout and Close. Work started under an
	// older epoch must not write state or stores.
	epoch       uint64
	syncCancel  context.CancelFunc
	syncRunID   string
	statusGen   uint64
	statusTimer *time.Timer
	closed      bool

	// storeLock orders a finishing sync's cache write against Logout's deletes.
	storeLock sync.Mutex
	syncGroup singleflight.Group

	// deliveries is filled in change order under lock and drained by one
	// goroutine at a time.
	deliverLock sync.Mutex
	deliveries  []delivery
	delivering  bool
}

type subscriber struct {
	id string
	fn func(State)
}

type delivery struct {
	snapshot State
	subs     []subscriber
}

// Option configures a Manager.
type Option func(*Manager)

// WithStatusDelays sets how long "Sync complete!" and error messages stay in
// LoadingMessage before being cleared. Zero clears them right away.
func WithStatusDelays(success, failure time.Duration) Option {
	return func(m *Manager) {
		m.successDisplay = success
		m.errorDisplay = failure
	}
}

// New returns a Manager in PhaseUninitialized. Call Restore to load the saved session.
func New(deps Deps, options ...Option) (*Manager, error) {
	if deps.Credentials == nil {
		return nil, errors.New("[session.New] Credentials store is required")
	}
	if deps.Cache == nil {
		return nil, errors.New("[session.New] Cache store is required")
	}
	if deps.Scraper == nil {
		return nil, errors.New("[session.New] Scraper is required")
	}

	m := &Manager{
		deps:           deps,
		successDisplay: defaultSuccessDisplay,
		errorDisplay:   defaultErrorDisplay,
		state: State{
			Phase:  PhaseUninitialized,
			Grades: []grades.Grade{},
		},
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// Snapshot returns a copy of the current state.
func (m *Manager) Snapshot() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state.clone()
}

// Subscribe registers fn to receive a snapshot after every state change, in
// subscription order. Snapshots arrive one at a time in the order the changes
// were made. fn is called without the manager lock held, possibly from a
// background goroutine, and may call back into the Manager; snapshots caused
// by such a call are delivered after fn returns.
func (m *Manager) Subscribe(fn func(State)) (unsubscribe func()) {
	id := uuid.NewString()
	m.lock.Lock()
	if !m.closed {
		m.subscribers = append(m.subscribers, subscriber{id: id, fn: fn})
	}
	m.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lock.Lock()
			defer m.lock.Unlock()
			m.subscribers = slices.DeleteFunc(m.subscribers, func(s subscriber) bool {
				return s.id == id
			})
		})
	}
}

// Close cancels any in-flight sync, stops pending status timers and drops all
// subscribers. Later operations return ErrClosed.
func (m *Manager) Close() {
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	m.epoch++
	m.cancelSyncLocked()
	m.stopStatusTimerLocked()
	m.pending = nil
	m.subscribers = nil
}

// change applies fn to the state under the lock and, when fn reports a change,
// notifies subscribers after releasing it.
func (m *Manager) change(fn func(s *State) bool) bool {
	m.lock.Lock()
	if !fn(&m.state) {
		m.lock.Unlock()
		return false
	}
	m.deliverLock.Lock()
	m.deliveries = append(m.deliveries, delivery{
		snapshot: m.state.clone(),
		subs:     append([]subscriber(nil), m.subscribers...),
	})
	m.deliverLock.Unlock()
	m.lock.Unlock()

	m.deliver()
	return true
}

// deliver hands queued snapshots to subscribers in order. A caller that finds
// another goroutine delivering, or a subscriber calling back into the Manager,
// leaves its snapshot to that delivery and returns.
func (m *Manager) deliver() {
	m.deliverLock.Lock()
	if m.delivering {
		m.deliverLock.Unlock()
		return
	}
	m.delivering = true
	for len(m.deliveries) > 0 {
		next := m.deliveries[0]
		m.deliveries[0] = delivery{}
		m.deliveries = m.deliveries[1:]
		m.deliverLock.Unlock()

		for _, sub := range next.subs {
			sub.fn(next.snapshot.clone())
		}
		m.deliverLock.Lock()
	}
	m.delivering = false
	m.deliverLock.Unlock()
}

func (m *Manager) current(epoch uint64) bool {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.epoch == epoch && !m.closed
}

// persist runs a store write unless the session moved on since epoch.
func (m *Manager) persist(epoch uint64, write func() error) error {
	m.storeLock.Lock()
	defer m.storeLock.Unlock()
	if !m.current(epoch) {
		return errSuperseded
	}
	return write()
}

func (m *Manager) cancelSyncLocked() {
	if m.syncCancel != nil {
		m.syncCancel()
		m.syncCancel = nil
		m.syncRunID = ""
	}
}

// showLocked sets an in-progress message that stays until replaced.
func (m *Manager) showLocked(s *State, message string) {
	m.stopStatusTimerLocked()
	s.LoadingMessage = message
}

// flashLocked sets a final message and clears it after hold. A message set in
// the meantime is never wiped by the older timer.
func (m *Manager) flashLocked(s *State, message string, hold time.Duration) {
	m.stopStatusTimerLocked()
	if hold <= 0 || m.closed {
		s.LoadingMessage = ""
		return
	}
	s.LoadingMessage = message
	gen := m.statusGen
	m.statusTimer = time.AfterFunc(hold, func() {
		m.change(func(s *State) bool {
			if m.statusGen != gen {
				return false
			}
			m.statusTimer = nil
			s.LoadingMessage = ""
			return true
		})
	})
}

// failLocked records err and flashes its human-readable form.
func (m *Manager) failLocked(s *State, err error) {
	s.IsLoading = false
	s.Err = err
	m.flashLocked(s, apperrors.Message(err), m.errorDisplay)
}

func (m *Manager) stopStatusTimerLocked() {
	m.statusGen++
	if m.statusTimer != nil {
		m.statusTimer.Stop()
		m.statusTimer = nil
	}
}

// storeError makes sure a store failure carries its kind. Context errors are
// passed through untouched.
func storeError(err, kind error) error {
	if errors.Is(err, kind) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return errors.Wrap(kind, err.Error())
}
