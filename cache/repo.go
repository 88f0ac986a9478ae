// Package cache holds the last synced grade collection for offline display. It
// is a read-through cache, never the system of record.
package cache

import (
	"context"

	"github.com/jrsteele09/go-ems-client/grades"
)

// RecordKey names the cached grade collection.
const RecordKey = "userGrades"

// Store persists the full grade collection. Put overwrites, Get returns an empty
// collection when nothing is cached and Delete of an absent record succeeds.
// Failures wrap errors.ErrCacheStore.
type Store interface {
	Put(ctx context.Context, gs []grades.Grade) error
	Get(ctx context.Context) ([]grades.Grade, error)
	Delete(ctx context.Context) error
}
