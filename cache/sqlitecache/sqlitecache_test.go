package sqlitecache_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/cache/cachetest"
	"github.com/jrsteele09/go-ems-client/cache/sqlitecache"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, dir string) *sqlitecache.Store {
	t.Helper()
	s, err := sqlitecache.Open(context.Background(), dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestStore(t *testing.T) {
	cachetest.RunStoreTests(t, func(t *testing.T) cache.Store {
		return openStore(t, t.TempDir())
	})
}

func TestStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	first, err := sqlitecache.Open(ctx, dir)
	require.NoError(t, err)
	require.NoError(t, first.Put(ctx, cachetest.SampleGrades()))
	require.NoError(t, first.Close())

	gs, err := openStore(t, dir).Get(ctx)
	require.NoError(t, err)
	require.Equal(t, cachetest.SampleGrades(), gs)
}

func TestStore_UpdatedAt(t *testing.T) {
	ctx := context.Background()
	fixed := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	sqlitecache.NowTimeFunc = func() time.Time { return fixed }
	t.Cleanup(func() { sqlitecache.NowTimeFunc = time.Now })

	s := openStore(t, t.TempDir())
	_, ok, err := s.UpdatedAt(ctx)
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Put(ctx, cachetest.SampleGrades()))
	updated, ok, err := s.UpdatedAt(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.True(t, fixed.Equal(updated))
}
