package pebble

import (
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

var prefixObject = []byte("obj:")

type PebbleStore struct {
	db *pebble.DB
}

// New opens a pebble database in dir. Pebble's own log lines go through
// logger.
func New(dir string, logger *zap.Logger) (*PebbleStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	db, err := pebble.Open(dir, &pebble.Options{
		Logger: logger.Named("pebble").Sugar(),
	})
	if err != nil {
		return nil, store.Unavailable("open pebble", err)
	}
	return &PebbleStore{db: db}, nil
}

func key(id string) []byte {
	return append(append([]byte{}, prefixObject...), id...)
}

func (s *PebbleStore) Put(obj *object.Object) (string, error) {
	envelope, id, err := store.Seal(obj)
	if err != nil {
		return "", err
	}

	exists, err := s.Exists(id)
	if err != nil {
		return "", err
	}
	if exists {
		return id, nil
	}
	if err := s.db.Set(key(id), envelope, pebble.Sync); err != nil {
		return "", store.Unavailable("pebble set", err)
	}
	return id, nil
}

func (s *PebbleStore) Get(id string) ([]byte, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	val, closer, err := s.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, store.Unavailable("pebble get", err)
	}
	defer closer.Close()

	// val is only valid until closer is closed.
	envelope := make([]byte, len(val))
	copy(envelope, val)
	return envelope, nil
}

func (s *PebbleStore) Exists(id string) (bool, error) {
	if err := store.ValidateID(id); err != nil {
		return false, err
	}

	_, closer, err := s.db.Get(key(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, store.Unavailable("pebble exists", err)
	}
	closer.Close()
	return true, nil
}

func (s *PebbleStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close pebble: %w", err)
	}
	return nil
}
