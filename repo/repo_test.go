package repo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"git.wyat.me/zwagit/config"
	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

func TestInit(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".zwagit")
	require.NoError(t, Init(dir))
	assert.DirExists(t, filepath.Join(dir, ObjectsDir))
	assert.DirExists(t, filepath.Join(dir, RefsDir))

	err := Init(dir)
	assert.ErrorIs(t, err, ErrAlreadyInitialized)
}

func TestOpenNotInitialized(t *testing.T) {
	cfg := &config.Config{Dir: filepath.Join(t.TempDir(), ".zwagit"), Backend: config.BackendLoose}
	_, err := Open(cfg, zap.NewNop())
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestOpenObjectsIsFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ObjectsDir), nil, 0o644))
	_, err := Open(&config.Config{Dir: dir, Backend: config.BackendLoose}, nil)
	assert.ErrorIs(t, err, ErrNotInitialized)
}

func TestOpenBackends(t *testing.T) {
	for _, backend := range []string{config.BackendLoose, config.BackendBadger, config.BackendSQLite, config.BackendPebble} {
		t.Run(backend, func(t *testing.T) {
			dir := filepath.Join(t.TempDir(), ".zwagit")
			require.NoError(t, Init(dir))

			r, err := Open(&config.Config{Dir: dir, Backend: backend}, zap.NewNop())
			require.NoError(t, err)
			defer r.Close()

			id, err := r.Objects.Put(&object.Object{Kind: object.KindBlob, Data: []byte("hello\n")})
			require.NoError(t, err)
			envelope, err := r.Objects.Get(id)
			require.NoError(t, err)
			assert.Equal(t, id, store.ID(envelope))
		})
	}
}

func TestLooseBackendUsesShardLayout(t *testing.T) {
	dir := filepath.Join(t.TempDir(), ".zwagit")
	require.NoError(t, Init(dir))
	r, err := Open(&config.Config{Dir: dir, Backend: config.BackendLoose}, nil)
	require.NoError(t, err)

	id, err := r.Objects.Put(&object.Object{Kind: object.KindBlob})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, ObjectsDir, id[:2], id[2:]))
	assert.NoError(t, r.Close())
}
