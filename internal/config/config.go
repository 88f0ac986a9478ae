package config

import "time"

type Config interface {
	EnvConfig
	SyncConfig
	StorageConfig
}

type EnvConfig interface {
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type SyncConfig interface {
	GetBaseURL() string
	GetSyncMode() SyncMode
	GetHTTPTimeout() time.Duration
	GetSuccessDisplay() time.Duration
	GetErrorDisplay() time.Duration
}

type StorageConfig interface {
	GetDataFolder() string
	GetMasterKeyHex() string
	GetCacheBackend() CacheBackend
}

type mainConfig struct {
	EnvVars
	Sync
	Storage
}

func New() Config {
	return mainConfig{}
}
