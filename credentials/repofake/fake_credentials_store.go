package fakecredentialstore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-ems-client/credentials"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
)

var _ credentials.Store = (*FakeStore)(nil)

// FakeStore keeps credentials in memory and can be told to fail or to hold
// Put and Delete until released.
type FakeStore struct {
	creds     *credentials.Credentials
	putErr    error
	getErr    error
	deleteErr error
	calls     int
	gates     map[string]chan struct{}
	entered   map[string]chan struct{}
	lock      sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{
		gates: map[string]chan struct{}{},
		entered: map[string]chan struct{}{
			opPut:    make(chan struct{}, 64),
			opDelete: make(chan struct{}, 64),
		},
	}
}

// NewFakeStoreWith returns a store already holding creds.
func NewFakeStoreWith(creds credentials.Credentials) *FakeStore {
	s := NewFakeStore()
	s.creds = &creds
	return s
}

const (
	opPut    = "put"
	opDelete = "delete"
)

func (s *FakeStore) Put(ctx context.Context, creds credentials.Credentials) error {
	if err := s.wait(ctx, opPut); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.putErr != nil {
		return errors.Wrap(apperrors.ErrCredentialStore, s.putErr.Error())
	}
	s.creds = &creds
	return nil
}

func (s *FakeStore) Get(_ context.Context) (*credentials.Credentials, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.getErr != nil {
		return nil, errors.Wrap(apperrors.ErrCredentialStore, s.getErr.Error())
	}
	if s.creds == nil {
		return nil, nil
	}
	c := *s.creds
	return &c, nil
}

func (s *FakeStore) Delete(ctx context.Context) error {
	if err := s.wait(ctx, opDelete); err != nil {
		return err
	}

	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.deleteErr != nil {
		return errors.Wrap(apperrors.ErrCredentialStore, s.deleteErr.Error())
	}
	s.creds = nil
	return nil
}

func (s *FakeStore) wait(ctx context.Context, op string) error {
	s.lock.RLock()
	gate := s.gates[op]
	s.lock.RUnlock()

	if gate == nil {
		return nil
	}
	select {
	case s.entered[op] <- struct{}{}:
	default:
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BlockPut holds every following Put until release is called.
func (s *FakeStore) BlockPut() (release func()) {
	return s.block(opPut)
}

// BlockDelete holds every following Delete until release is called.
func (s *FakeStore) BlockDelete() (release func()) {
	return s.block(opDelete)
}

// PutCalled receives once per Put held by BlockPut.
func (s *FakeStore) PutCalled() <-chan struct{} {
	return s.entered[opPut]
}

// DeleteCalled receives once per Delete held by BlockDelete.
func (s *FakeStore) DeleteCalled() <-chan struct{} {
	return s.entered[opDelete]
}

func (s *FakeStore) block(op string) func() {
	gate := make(chan struct{})
	s.lock.Lock()
	s.gates[op] = gate
	s.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lock.Lock()
			if s.gates[op] == gate {
				delete(s.gates, op)
			}
			s.lock.Unlock()
			close(gate)
		})
	}
}

func (s *FakeStore) FailPut(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.putErr = err
}

func (s *FakeStore) FailGet(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.getErr = err
}

// FailDelete makes Delete report err. The record is still kept, as a real store
// that can't delete would.
func (s *FakeStore) FailDelete(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.deleteErr = err
}

// Stored returns the held record without counting as a call.
func (s *FakeStore) Stored() *credentials.Credentials {
	s.lock.RLock()
	defer s.lock.RUnlock()
	if s.creds == nil {
		return nil
	}
	c := *s.creds
	return &c
}

// Calls counts Put, Get and Delete invocations.
func (s *FakeStore) Calls() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.calls
}
