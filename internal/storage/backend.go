// Package storage provides the key/value backends the vault persists
// through. The interface mirrors web localStorage: opaque string keys,
// opaque byte values, full-value replace on every write.
package storage

// Backend is a flat key/value store.
type Backend interface {
	// Get returns the value stored under key. The second return is false
	// when the key has never been written.
	Get(key string) ([]byte, bool, error)

	// Set stores value under key, replacing any previous value.
	Set(key string, value []byte) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(key string) error

	// Keys returns every stored key that starts with prefix.
	Keys(prefix string) ([]string, error)

	// Close releases resources held by the backend.
	Close() error
}
