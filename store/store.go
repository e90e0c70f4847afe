package store

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"git.wyat.me/zwagit/object"
)

// IDLen is the length of a hex-encoded SHA-1 identifier.
const IDLen = 2 * sha1.Size

var (
	ErrInvalidIdentifier  = errors.New("invalid object identifier")
	ErrObjectNotFound     = errors.New("object not found")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ObjectStore maps identifiers to envelope bytes. Put is idempotent and
// Get returns the envelope exactly as stored, undecoded.
type ObjectStore interface {
	Put(obj *object.Object) (id string, err error)
	Get(id string) ([]byte, error)
	Exists(id string) (bool, error)
}

// ID returns the identifier of an envelope.
func ID(envelope []byte) string {
	sum := sha1.Sum(envelope)
	return hex.EncodeToString(sum[:])
}

// Seal encodes obj and returns its envelope together with its identifier.
func Seal(obj *object.Object) (envelope []byte, id string, err error) {
	envelope, err = object.Encode(obj)
	if err != nil {
		return nil, "", err
	}
	return envelope, ID(envelope), nil
}

// ValidateID accepts exactly IDLen lowercase hex characters.
func ValidateID(id string) error {
	if len(id) != IDLen {
		return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, id)
		}
	}
	return nil
}

// ShardPath splits a valid identifier into its shard directory and file name.
func ShardPath(id string) (dir, file string) {
	return id[:2], id[2:]
}

// NotFound wraps ErrObjectNotFound with the identifier.
func NotFound(id string) error {
	return fmt.Errorf("%w: %s", ErrObjectNotFound, id)
}

// Unavailable wraps ErrStorageUnavailable around a backend failure.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}
