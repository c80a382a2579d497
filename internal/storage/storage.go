// Package storage defines the key-value persistence boundary for user
// state. Consumers depend on the KV interface only; the SQLite backend
// is wired in at startup and swapped for an in-memory one in tests.
package storage

// KV is a bucketed key-value store. Get reports presence explicitly so
// a missing key is never an error.
type KV interface {
	Get(bucket, key string) ([]byte, bool, error)
	Put(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	List(bucket string) (map[string][]byte, error)
	Close() error
}

// Bucket names for the persisted user state.
const (
	BucketSelection = "selection"
	BucketEdits     = "edited_events"
	BucketReports   = "error_reports"
)
