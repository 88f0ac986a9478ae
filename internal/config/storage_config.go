package config

import (
	"os"
	"path/filepath"
	"strings"
)

const (
	dataFolderVar   = "EMS_DATA_DIR"
	masterKeyVar    = "EMS_MASTER_KEY_HEX"
	cacheBackendVar = "EMS_CACHE_BACKEND"
)

// CacheBackend selects where synced grades are kept for offline display.
type CacheBackend string

const (
	CacheBackendFile   CacheBackend = "file"
	CacheBackendSQLite CacheBackend = "sqlite"
)

type Storage struct{}

var _ StorageConfig = Storage{}

func (Storage) GetDataFolder() string {
	if folder := os.Getenv(dataFolderVar); folder != "" {
		return folder
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(dir, "ems")
}

// GetMasterKeyHex returns the hex encoded credential sealing key, or "" when the
// key should be read from (or generated into) the data folder.
func (Storage) GetMasterKeyHex() string {
	return strings.TrimSpace(os.Getenv(masterKeyVar))
}

func (Storage) GetCacheBackend() CacheBackend {
	if CacheBackend(strings.ToLower(GetEnv(cacheBackendVar, ""))) == CacheBackendSQLite {
		return CacheBackendSQLite
	}
	return CacheBackendFile
}
