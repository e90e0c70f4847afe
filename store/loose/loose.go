// Package loose stores each object as its own file under
// <dir>/<id[:2]>/<id[2:]>, the layout git uses for loose objects.
package loose

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

const (
	dirPerm    = 0o755
	objectPerm = 0o444
)

type LooseStore struct {
	dir    string
	logger *zap.Logger
}

// New returns a store rooted at dir, normally <repo>/objects. dir is not
// created here; shard directories are created on first write.
func New(dir string, logger *zap.Logger) *LooseStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LooseStore{dir: dir, logger: logger.Named("loose")}
}

// Path returns where the object with the given identifier lives.
func (s *LooseStore) Path(id string) (string, error) {
	if err := store.ValidateID(id); err != nil {
		return "", err
	}
	shard, file := store.ShardPath(id)
	return filepath.Join(s.dir, shard, file), nil
}

func (s *LooseStore) Put(obj *object.Object) (string, error) {
	envelope, id, err := store.Seal(obj)
	if err != nil {
		return "", err
	}
	path, err := s.Path(id)
	if err != nil {
		return "", err
	}

	exists, err := s.stat(path)
	if err != nil {
		return "", err
	}
	if exists {
		s.logger.Debug("object exists, skipping write", zap.String("id", id))
		return id, nil
	}

	if err := s.publish(path, envelope); err != nil {
		return "", err
	}
	s.logger.Debug("object written", zap.String("id", id), zap.Int("bytes", len(envelope)))
	return id, nil
}

// publish writes envelope to a temp file in the shard directory and renames
// it into place, so readers never observe a partial object. A concurrent
// writer of the same id renames byte-identical content over it. The shard
// directory is synced after the rename so the new entry survives a crash.
func (s *LooseStore) publish(path string, envelope []byte) error {
	shardDir := filepath.Dir(path)
	if err := os.MkdirAll(shardDir, dirPerm); err != nil {
		return unavailable("create shard", path, err)
	}

	tmp, err := os.CreateTemp(shardDir, "tmp_obj_*")
	if err != nil {
		return unavailable("create", path, err)
	}
	tmpName := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(envelope); err != nil {
		tmp.Close()
		return unavailable("write", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return unavailable("sync", path, err)
	}
	if err := tmp.Close(); err != nil {
		return unavailable("close", path, err)
	}
	if err := os.Chmod(tmpName, objectPerm); err != nil {
		return unavailable("chmod", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return unavailable("publish", path, err)
	}
	ok = true
	if err := syncDir(shardDir); err != nil {
		return unavailable("sync shard", path, err)
	}
	return nil
}

func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	if err := d.Sync(); err != nil {
		d.Close()
		return err
	}
	return d.Close()
}

// unavailable reports a failure against the object path only. The OS
// error's own path (a temp name, or both sides of a rename) is dropped.
func unavailable(op, path string, err error) error {
	var pathErr *fs.PathError
	var linkErr *os.LinkError
	switch {
	case errors.As(err, &pathErr):
		err = pathErr.Err
	case errors.As(err, &linkErr):
		err = linkErr.Err
	}
	return store.Unavailable(op+" "+path, err)
}

func (s *LooseStore) Get(id string) ([]byte, error) {
	path, err := s.Path(id)
	if err != nil {
		return nil, err
	}
	envelope, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, store.NotFound(id)
	}
	if err != nil {
		return nil, unavailable("read", path, err)
	}
	return envelope, nil
}

func (s *LooseStore) Exists(id string) (bool, error) {
	path, err := s.Path(id)
	if err != nil {
		return false, err
	}
	return s.stat(path)
}

func (s *LooseStore) stat(path string) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, unavailable("stat", path, err)
	}
	if !info.Mode().IsRegular() {
		return false, store.Unavailable("stat "+path, errors.New("not a regular file"))
	}
	return true, nil
}
