package main

import (
	"context"
	"os"

	"github.com/jrsteele09/go-ems-client/cache"
	"github.com/jrsteele09/go-ems-client/cache/filecache"
	"github.com/jrsteele09/go-ems-client/cache/sqlitecache"
	"github.com/jrsteele09/go-ems-client/credentials/filestore"
	"github.com/jrsteele09/go-ems-client/internal/config"
	"github.com/jrsteele09/go-ems-client/scrape"
	"github.com/jrsteele09/go-ems-client/session"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// workspace is a session manager wired to its stores for one command.
type workspace struct {
	manager *session.Manager
	cache   cache.Store
	close   func()
}

// workspaceOpener builds an unrestored workspace.
type workspaceOpener func(ctx context.Context, c config.Config) (*workspace, error)

func openWorkspace(ctx context.Context, c config.Config) (*workspace, error) {
	folder := c.GetDataFolder()
	if err := os.MkdirAll(folder, 0o700); err != nil {
		return nil, errors.Wrap(err, "create data folder")
	}

	masterKey, err := filestore.LoadMasterKey(folder, c.GetMasterKeyHex())
	if err != nil {
		return nil, err
	}
	credStore, err := filestore.New(folder, masterKey)
	if err != nil {
		return nil, err
	}

	var (
		gradeCache cache.Store
		closeCache = func() {}
	)
	switch c.GetCacheBackend() {
	case config.CacheBackendSQLite:
		store, err := sqlitecache.Open(ctx, folder)
		if err != nil {
			return nil, err
		}
		gradeCache = store
		closeCache = func() {
			if err := store.Close(); err != nil {
				log.Err(err).Msg("could not close grade cache")
			}
		}
	default:
		gradeCache = filecache.New(folder)
	}

	manager, err := session.New(session.Deps{
		Credentials: credStore,
		Cache:       gradeCache,
		Scraper:     scrape.New(c),
	}, session.WithStatusDelays(c.GetSuccessDisplay(), c.GetErrorDisplay()))
	if err != nil {
		closeCache()
		return nil, err
	}

	log.Debug().
		Str("folder", folder).
		Str("cache", string(c.GetCacheBackend())).
		Str("syncMode", string(c.GetSyncMode())).
		Msg("workspace opened")

	return &workspace{
		manager: manager,
		cache:   gradeCache,
		close: func() {
			manager.Close()
			closeCache()
		},
	}, nil
}
