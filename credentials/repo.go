package credentials

import "context"

// Store persists a single Credentials record with at-rest protection.
// Get returns nil, nil when nothing is stored; Delete of an absent record succeeds.
// Put and Delete failures wrap errors.ErrCredentialStore.
type Store interface {
	Put(ctx context.Context, creds Credentials) error
	Get(ctx context.Context) (*Credentials, error)
	Delete(ctx context.Context) error
}
