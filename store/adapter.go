package store

import (
	"context"
	"encoding/json"
)

// Adapter persists finished transcripts. Values are MESSAGES_SNAPSHOT events
// in AG-UI JSON form, keyed by ThreadKey.String().
// Implementations must be safe for concurrent use.
type Adapter interface {
	// Get retrieves a transcript. Returns nil, false, nil if not found.
	Get(ctx context.Context, key string) (json.RawMessage, bool, error)

	// Set stores a transcript, replacing any previous one.
	Set(ctx context.Context, key string, value json.RawMessage) error

	// Delete removes a transcript. No error if the key doesn't exist.
	Delete(ctx context.Context, key string) error

	// Keys returns the keys of all stored transcripts.
	Keys(ctx context.Context) ([]string, error)
}
