package config

import (
	"os"
	"strings"
	"time"
)

const (
	appNameVar  = "APP_NAME"
	logLevelVar = "EMS_LOG_LEVEL"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "EMS")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv("ENV")
	if env == "" {
		return "DEV"
	}
	return strings.ToUpper(env)
}

// GetLogLevel returns a zerolog level name ("debug", "info", ...).
func (e EnvVars) GetLogLevel() string {
	if e.GetEnv() == "DEV" {
		return GetEnv(logLevelVar, "debug")
	}
	return GetEnv(logLevelVar, "info")
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetDurationEnv parses envVar with time.ParseDuration, falling back to defaultValue
// when it is unset or malformed.
func GetDurationEnv(envVar string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil || d < 0 {
		return defaultValue
	}
	return d
}
