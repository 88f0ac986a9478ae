package fakecachestore

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/pkg/errors"
)

var _ cache.Store = (*FakeStore)(nil)

// FakeStore keeps the grade collection in memory and can be told to fail.
type FakeStore struct {
	grades    []grades.Grade
	putErr    error
	getErr    error
	deleteErr error
	calls     int
	lock      sync.RWMutex
}

func NewFakeStore() *FakeStore {
	return &FakeStore{}
}

// NewFakeStoreWith returns a store already holding gs.
func NewFakeStoreWith(gs []grades.Grade) *FakeStore {
	return &FakeStore{grades: grades.Clone(gs)}
}

func (s *FakeStore) Put(_ context.Context, gs []grades.Grade) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.putErr != nil {
		return errors.Wrap(apperrors.ErrCacheStore, s.putErr.Error())
	}
	s.grades = grades.Clone(gs)
	return nil
}

func (s *FakeStore) Get(_ context.Context) ([]grades.Grade, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.getErr != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, s.getErr.Error())
	}
	return grades.Clone(s.grades), nil
}

func (s *FakeStore) Delete(_ context.Context) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.calls++
	if s.deleteErr != nil {
		return errors.Wrap(apperrors.ErrCacheStore, s.deleteErr.Error())
	}
	s.grades = nil
	return nil
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

func (s *FakeStore) FailDelete(err error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.deleteErr = err
}

// Stored returns the held collection without counting as a call.
func (s *FakeStore) Stored() []grades.Grade {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return grades.Clone(s.grades)
}

// Calls counts Put, Get and Delete invocations.
func (s *FakeStore) Calls() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return s.calls
}
