package filecache

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/grades"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/jrsteele09/go-ems-client/internal/utils"
	"github.com/pkg/errors"
)

var _ cache.Store = (*Store)(nil)

// Store is a cache.Store backed by <folder>/userGrades.json.
type Store struct {
	path string
	mu   sync.RWMutex
}

func New(folder string) *Store {
	return &Store{path: filepath.Join(folder, cache.RecordKey+".json")}
}

func (s *Store) Put(ctx context.Context, gs []grades.Grade) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if gs == nil {
		gs = []grades.Grade{}
	}
	data, err := json.Marshal(gs)
	if err != nil {
		return errors.Wrap(apperrors.ErrCacheStore, "encode grades")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.WriteFileAtomic(s.path, data, 0o600); err != nil {
		return errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	return nil
}

func (s *Store) Get(ctx context.Context) ([]grades.Grade, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	data, err := os.ReadFile(s.path)
	s.mu.RUnlock()
	if os.IsNotExist(err) {
		return []grades.Grade{}, nil
	}
	if err != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}

	var gs []grades.Grade
	if err := json.Unmarshal(data, &gs); err != nil {
		return nil, errors.Wrap(apperrors.ErrCacheStore, "decode grades")
	}
	if gs == nil {
		gs = []grades.Grade{}
	}
	return gs, nil
}

func (s *Store) Delete(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := utils.RemoveIfExists(s.path); err != nil {
		return errors.Wrap(apperrors.ErrCacheStore, err.Error())
	}
	return nil
}
