// Package store provides the session-scoped key/value stores used to hand data
// from one workflow stage to the next, plus the agent's own settings table.
package store

import "context"

// KV is a string key/value store scoped to one session lifetime. Get reports
// ok=false with a nil error when the key has never been written.
type KV interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
