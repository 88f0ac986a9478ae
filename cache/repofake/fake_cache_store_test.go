package fakecachestore_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/cache/cachetest"
	fakecachestore "github.com/jrsteele09/go-ems-client/cache/repofake"
	apperrors "github.com/jrsteele09/go-ems-client/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestFakeStore(t *testing.T) {
	cachetest.RunStoreTests(t, func(t *testing.T) cache.Store {
		return fakecachestore.NewFakeStore()
	})
}

func TestFakeStore_Failures(t *testing.T) {
	ctx := context.Background()
	s := fakecachestore.NewFakeStoreWith(cachetest.SampleGrades())

	s.FailPut(errors.New("disk full"))
	require.ErrorIs(t, s.Put(ctx, nil), apperrors.ErrCacheStore)
	require.Equal(t, cachetest.SampleGrades(), s.Stored())

	s.FailDelete(errors.New("read-only"))
	require.ErrorIs(t, s.Delete(ctx), apperrors.ErrCacheStore)

	s.FailGet(errors.New("corrupt"))
	_, err := s.Get(ctx)
	require.ErrorIs(t, err, apperrors.ErrCacheStore)
	require.Equal(t, 3, s.Calls())
}
