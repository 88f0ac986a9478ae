package config

import (
	"strings"
	"time"
)

const (
	baseURLVar        = "EMS_BASE_URL"
	syncModeVar       = "EMS_SYNC_MODE"
	httpTimeoutVar    = "EMS_HTTP_TIMEOUT"
	successDisplayVar = "EMS_SUCCESS_DISPLAY"
	errorDisplayVar   = "EMS_ERROR_DISPLAY"

	defaultBaseURL = "https://bk-ems.abdisa.me"
)

// SyncMode selects the scrape protocol.
type SyncMode string

const (
	SyncModeSingle SyncMode = "single" // one POST /scrape request
	SyncModeStream SyncMode = "stream" // POST /scrape-stream server-sent events
)

type Sync struct{}

var _ SyncConfig = Sync{}

func (Sync) GetBaseURL() string {
	return strings.TrimRight(GetEnv(baseURLVar, defaultBaseURL), "/")
}

func (Sync) GetSyncMode() SyncMode {
	switch SyncMode(strings.ToLower(GetEnv(syncModeVar, string(SyncModeSingle)))) {
	case SyncModeStream:
		return SyncModeStream
	default:
		return SyncModeSingle
	}
}

// GetHTTPTimeout is the transport timeout for the scrape request. Zero means none.
func (Sync) GetHTTPTimeout() time.Duration {
	return GetDurationEnv(httpTimeoutVar, 0)
}

func (Sync) GetSuccessDisplay() time.Duration {
	return GetDurationEnv(successDisplayVar, 2*time.Second)
}

func (Sync) GetErrorDisplay() time.Duration {
	return GetDurationEnv(errorDisplayVar, 5*time.Second)
}
