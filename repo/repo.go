// Package repo bootstraps a zwagit repository directory and opens the
// object store configured for it.
package repo

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"git.wyat.me/zwagit/config"
	"git.wyat.me/zwagit/store"
	"git.wyat.me/zwagit/store/badger"
	"git.wyat.me/zwagit/store/loose"
	ministore "git.wyat.me/zwagit/store/minio"
	"git.wyat.me/zwagit/store/pebble"
	"git.wyat.me/zwagit/store/sqlite"
)

const (
	ObjectsDir = "objects"
	RefsDir    = "refs"
)

var (
	ErrAlreadyInitialized = errors.New("repository already initialized")
	ErrNotInitialized     = errors.New("not a zwagit repository")
)

// Init creates dir with empty objects/ and refs/ directories. An existing
// dir is left untouched.
func Init(dir string) error {
	if _, err := os.Stat(dir); err == nil {
		return fmt.Errorf("%w: %s", ErrAlreadyInitialized, dir)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return store.Unavailable("stat repository", err)
	}

	for _, sub := range []string{ObjectsDir, RefsDir} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return store.Unavailable("create "+sub, err)
		}
	}
	return nil
}

type Repository struct {
	Dir     string
	Objects store.ObjectStore

	closer io.Closer
}

// Open opens the repository at cfg.Dir with the configured backend.
// Embedded databases live under objects/<backend>.
func Open(cfg *config.Config, logger *zap.Logger) (*Repository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	objectsDir := filepath.Join(cfg.Dir, ObjectsDir)
	info, err := os.Stat(objectsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotInitialized, cfg.Dir)
	}
	if err != nil {
		return nil, store.Unavailable("stat objects", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s is not a directory", ErrNotInitialized, objectsDir)
	}

	r := &Repository{Dir: cfg.Dir}
	switch cfg.Backend {
	case config.BackendLoose:
		r.Objects = loose.New(objectsDir, logger)
	case config.BackendBadger:
		s, err := badger.New(filepath.Join(objectsDir, config.BackendBadger))
		if err != nil {
			return nil, err
		}
		r.Objects, r.closer = s, s
	case config.BackendSQLite:
		s, err := sqlite.New(filepath.Join(objectsDir, "objects.db"))
		if err != nil {
			return nil, err
		}
		r.Objects, r.closer = s, s
	case config.BackendPebble:
		s, err := pebble.New(filepath.Join(objectsDir, config.BackendPebble), logger)
		if err != nil {
			return nil, err
		}
		r.Objects, r.closer = s, s
	case config.BackendMinio:
		m := cfg.Minio
		s, err := ministore.New(m.Endpoint, m.AccessKey, m.SecretKey, m.Bucket, m.UseSSL)
		if err != nil {
			return nil, err
		}
		r.Objects = s
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
	}

	logger.Debug("repository opened", zap.String("dir", cfg.Dir), zap.String("backend", cfg.Backend))
	return r, nil
}

func (r *Repository) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}
