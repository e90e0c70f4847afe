package badger

import (
	"errors"
	"fmt"

	"github.com/dgraph-io/badger/v4"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

type BadgerStore struct {
	db *badger.DB
}

func New(path string) (*BadgerStore, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, store.Unavailable("open badger", err)
	}
	return &BadgerStore{db: db}, nil
}

func (s *BadgerStore) Put(obj *object.Object) (string, error) {
	envelope, id, err := store.Seal(obj)
	if err != nil {
		return "", err
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(id))
		if err == nil {
			return nil // already stored
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return txn.Set([]byte(id), envelope)
	})
	if err != nil {
		return "", store.Unavailable("badger put", err)
	}

	return id, nil
}

func (s *BadgerStore) Get(id string) ([]byte, error) {
	if err := store.ValidateID(id); err != nil {
		return nil, err
	}

	var envelope []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(id))
		if err != nil {
			return err
		}
		envelope, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, store.Unavailable("badger get", err)
	}

	return envelope, nil
}

func (s *BadgerStore) Exists(id string) (bool, error) {
	if err := store.ValidateID(id); err != nil {
		return false, err
	}

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(id))
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return false, nil
	}
	if err != nil {
		return false, store.Unavailable("badger exists", err)
	}
	return true, nil
}

func (s *BadgerStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close badger: %w", err)
	}
	return nil
}
