package session

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-ems-client/credentials"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	credentialsFoundMessage    = "Credentials found, logging in..."
	checkingCredentialsMessage = "Checking credentials..."
	almostThereMessage         = "Almost there..."
	syncingMessage             = "Syncing grades... This may take a moment."
	syncCompleteMessage        = "Sync complete!"
	loggingOutMessage          = "Logging out..."

	syncKeyPrefix = "sync-"
)

// Restore loads the saved session at startup. Stored credentials log the user
// in optimistically with the cached grades, without asking the server. Any read
// failure leaves the session logged out and is returned.
func (m *Manager) Restore(ctx context.Context) error {
	var (
		epoch uint64
		err   error
	)
	m.change(func(s *State) bool {
		switch {
		case m.closed:
			err = ErrClosed
			return false
		case s.Phase != PhaseUninitialized:
			err = errAlreadyRestored
			return false
		}
		epoch = m.epoch
		s.Phase = PhaseRestoring
		s.IsLoading = true
		s.Err = nil
		m.showLocked(s, "")
		return true
	})
	if err != nil {
		return err
	}

	creds, gs, err := m.load(ctx, epoch)
	applied := m.change(func(s *State) bool {
		if m.epoch != epoch || m.closed {
			return false
		}
		s.IsLoading = false
		if err != nil || creds == nil {
			s.Phase = PhaseLoggedOut
			s.User = nil
			s.IsLoggedIn = false
			if err != nil {
				m.failLocked(s, err)
			} else {
				m.showLocked(s, "")
			}
			return true
		}
		m.creds = creds
		s.Phase = PhaseLoggedIn
		s.User = &User{Username: creds.Username}
		s.IsLoggedIn = true
		s.Grades = gs
		m.showLocked(s, "")
		return true
	})

	switch {
	case !applied:
		return errSuperseded
	case err != nil:
		log.Err(err).Msg("could not restore session")
		return err
	case creds != nil:
		log.Info().Str("username", creds.Username).Int("grades", len(gs)).Msg("session restored")
	}
	return nil
}

func (m *Manager) load(ctx context.Context, epoch uint64) (*credentials.Credentials, []grades.Grade, error) {
	creds, err := m.deps.Credentials.Get(ctx)
	if err != nil {
		return nil, nil, storeError(err, apperrors.ErrCredentialStore)
	}
	if creds == nil {
		return nil, nil, nil
	}
	if err := creds.Validate(); err != nil {
		log.Warn().Err(err).Msg("ignoring incomplete stored credentials")
		return nil, nil, nil
	}

	m.change(func(s *State) bool {
		if m.epoch != epoch {
			return false
		}
		m.showLocked(s, credentialsFoundMessage)
		return true
	})

	gs, err := m.deps.Cache.Get(ctx)
	if err != nil {
		return nil, nil, storeError(err, apperrors.ErrCacheStore)
	}
	if gs == nil {
		gs = []grades.Grade{}
	}
	return creds, gs, nil
}

// Login validates the input before any I/O, stores the credentials and then
// syncs. A failed store rolls the session back to logged out. A failed sync
// keeps the user logged in with the previous grades, except when the portal
// rejects the credentials.
func (m *Manager) Login(ctx context.Context, username, password string) error {
	creds := credentials.Credentials{Username: username, Password: password}
	if err := creds.Validate(); err != nil {
		return err
	}

	var (
		epoch uint64
		err   error
	)
	m.change(func(s *State) bool {
		if m.closed {
			err = ErrClosed
			return false
		}
		m.epoch++
		epoch = m.epoch
		m.cancelSyncLocked()
		if s.User == nil || s.User.Username != username {
			s.Grades = []grades.Grade{}
		}
		m.creds = nil
		m.pending = &creds
		s.Syncing = false
		s.IsLoading = true
		s.Err = nil
		m.showLocked(s, checkingCredentialsMessage)
		return true
	})
	if err != nil {
		return err
	}

	err = m.persist(epoch, func() error {
		return m.deps.Credentials.Put(ctx, creds)
	})
	if errors.Is(err, errSuperseded) {
		return err
	}
	if err != nil {
		err = storeError(err, apperrors.ErrCredentialStore)
		log.Err(err).Str("username", username).Msg("could not store credentials")
		m.change(func(s *State) bool {
			if m.epoch != epoch {
				return false
			}
			m.epoch++
			m.cancelSyncLocked()
			m.pending = nil
			m.creds = nil
			s.Phase = PhaseLoggedOut
			s.User = nil
			s.IsLoggedIn = false
			s.Grades = []grades.Grade{}
			m.failLocked(s, err)
			return true
		})
		return err
	}

	applied := m.change(func(s *State) bool {
		if m.epoch != epoch {
			return false
		}
		// A Sync turned away while the Put ran shares no key with the one below.
		m.epoch++
		m.creds, m.pending = m.pending, nil
		s.Phase = PhaseLoggedIn
		s.User = &User{Username: username}
		s.IsLoggedIn = true
		m.showLocked(s, almostThereMessage)
		return true
	})
	if !applied {
		return errSuperseded
	}
	log.Info().Str("username", username).Msg("logged in")
	return m.Sync(ctx)
}

// Sync refreshes the grades from the backend. At most one sync runs at a time;
// a call made while one is in flight waits for it and returns its outcome.
// Cancelling ctx only stops the wait. The run itself is cancelled by Logout,
// Login and Close.
func (m *Manager) Sync(ctx context.Context) error {
	m.lock.Lock()
	closed, epoch := m.closed, m.epoch
	m.lock.Unlock()
	if closed {
		return ErrClosed
	}

	result := m.syncGroup.DoChan(syncKeyPrefix+strconv.FormatUint(epoch, 10), func() (interface{}, error) {
		return nil, m.runSync(epoch)
	})
	select {
	case res := <-result:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runSync(epoch uint64) error {
	runID := uuid.NewString()
	var (
		creds  credentials.Credentials
		runCtx context.Context
		cancel context.CancelFunc
		err    error
	)
	m.change(func(s *State) bool {
		// A Login still storing its credentials or a Logout still deleting
		// them will settle the session on its own.
		if m.epoch != epoch || m.closed || m.pending != nil || (s.IsLoggedIn && m.creds == nil) {
			err = errSuperseded
			return false
		}
		if m.creds == nil || !s.IsLoggedIn {
			err = errors.Wrap(apperrors.ErrNotLoggedIn, "sync")
			m.failLocked(s, err)
			return true
		}
		creds = *m.creds
		runCtx, cancel = context.WithCancel(context.Background())
		m.syncCancel = cancel
		m.syncRunID = runID
		s.Syncing = true
		s.IsLoading = true
		s.Err = nil
		m.showLocked(s, syncingMessage)
		return true
	})
	if err != nil {
		return err
	}
	defer m.endSync(runID, cancel)

	logger := log.With().Str("syncID", runID).Str("username", creds.Username).Logger()
	logger.Info().Msg("sync started")

	gs, err := m.deps.Scraper.Scrape(runCtx, creds, func(message string) {
		m.change(func(s *State) bool {
			if m.epoch != epoch || !s.Syncing {
				return false
			}
			m.showLocked(s, message)
			return true
		})
	})
	if err != nil {
		return m.syncFailed(epoch, logger, err)
	}
	if gs == nil {
		gs = []grades.Grade{}
	}

	cacheErr := m.persist(epoch, func() error {
		return m.deps.Cache.Put(runCtx, gs)
	})
	if errors.Is(cacheErr, errSuperseded) {
		return cacheErr
	}
	if cacheErr != nil {
		cacheErr = storeError(cacheErr, apperrors.ErrCacheStore)
		logger.Err(cacheErr).Msg("could not cache grades")
	}

	applied := m.change(func(s *State) bool {
		if m.epoch != epoch {
			return false
		}
		s.Grades = grades.Clone(gs)
		s.Syncing = false
		if cacheErr != nil {
			m.failLocked(s, cacheErr)
			return true
		}
		s.IsLoading = false
		m.flashLocked(s, syncCompleteMessage, m.successDisplay)
		return true
	})
	if !applied {
		return errSuperseded
	}
	logger.Info().Int("grades", len(gs)).Msg("sync complete")
	return cacheErr
}

func (m *Manager) endSync(runID string, cancel context.CancelFunc) {
	cancel()
	m.lock.Lock()
	defer m.lock.Unlock()
	if m.syncRunID == runID {
		m.syncCancel = nil
		m.syncRunID = ""
	}
}

// syncFailed leaves the grades untouched. A rejection by the portal means the
// stored credentials are bad, so it forces a logout.
func (m *Manager) syncFailed(epoch uint64, logger zerolog.Logger, err error) error {
	if errors.Is(err, apperrors.ErrAuthenticationRejected) {
		logoutEpoch, ok := uint64(0), false
		m.change(func(s *State) bool {
			if m.epoch != epoch {
				return false
			}
			ok = true
			logoutEpoch = m.beginLogoutLocked(s)
			return true
		})
		if !ok {
			return errSuperseded
		}
		logger.Warn().Err(err).Msg("credentials rejected, logging out")
		m.finishLogout(context.Background(), logoutEpoch, err)
		return err
	}

	applied := m.change(func(s *State) bool {
		if m.epoch != epoch {
			return false
		}
		s.Syncing = false
		m.failLocked(s, err)
		return true
	})
	if !applied {
		return errSuperseded
	}
	logger.Err(err).Msg("sync failed")
	return err
}

// Logout always ends logged out with no user and no grades. It cancels any
// in-flight sync and deletes the stored credentials and cached grades on a best
// effort basis; delete failures are logged and left in State.Err.
func (m *Manager) Logout(ctx context.Context) {
	var epoch uint64
	m.change(func(s *State) bool {
		epoch = m.beginLogoutLocked(s)
		return true
	})
	m.finishLogout(ctx, epoch, nil)
}

func (m *Manager) beginLogoutLocked(s *State) uint64 {
	m.epoch++
	m.cancelSyncLocked()
	m.creds = nil
	m.pending = nil
	s.Syncing = false
	s.IsLoading = true
	s.Err = nil
	m.showLocked(s, loggingOutMessage)
	return m.epoch
}

// finishLogout deletes both records. reason is the failure that forced the
// logout, if any, and takes precedence in the status message.
func (m *Manager) finishLogout(ctx context.Context, epoch uint64, reason error) {
	m.storeLock.Lock()
	credErr := m.deps.Credentials.Delete(ctx)
	cacheErr := m.deps.Cache.Delete(ctx)
	m.storeLock.Unlock()

	if credErr != nil {
		credErr = storeError(credErr, apperrors.ErrCredentialStore)
		log.Err(credErr).Msg("could not delete stored credentials")
	}
	if cacheErr != nil {
		cacheErr = storeError(cacheErr, apperrors.ErrCacheStore)
		log.Err(cacheErr).Msg("could not clear cached grades")
	}

	shown := reason
	for _, e := range []error{credErr, cacheErr} {
		if shown == nil {
			shown = e
		}
	}
	err := apperrors.Join(reason, credErr, cacheErr)

	m.change(func(s *State) bool {
		if m.epoch != epoch {
			return false
		}
		s.Phase = PhaseLoggedOut
		s.User = nil
		s.IsLoggedIn = false
		s.Grades = []grades.Grade{}
		s.IsLoading = false
		if err == nil {
			m.showLocked(s, "")
			return true
		}
		s.Err = err
		m.flashLocked(s, apperrors.Message(shown), m.errorDisplay)
		return true
	})
	log.Info().Msg("logged out")
}
