package loose

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
	"git.wyat.me/zwagit/store/storetest"
)

func newTestStore(t *testing.T) *LooseStore {
	dir := filepath.Join(t.TempDir(), "objects")
	require.NoError(t, os.Mkdir(dir, 0o755))
	return New(dir, zap.NewNop())
}

func TestConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.ObjectStore { return newTestStore(t) })
}

func TestShardLayout(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("hello\n")})
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(s.dir, id[:2], id[2:]))
	require.NoError(t, err)
	assert.Equal(t, "blob 6\x00hello\n", string(raw))

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id[:2], entries[0].Name())
	assert.True(t, entries[0].IsDir())
}

func TestPutLeavesNoTempFiles(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("x")})
	require.NoError(t, err)
	_, err = s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("x")})
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Join(s.dir, id[:2]))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, id[2:], entries[0].Name())
}

func TestObjectsAreReadOnly(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("x")})
	require.NoError(t, err)
	path, err := s.Path(id)
	require.NoError(t, err)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(objectPerm), info.Mode().Perm())
}

func TestPutSkipsExisting(t *testing.T) {
	s := newTestStore(t)
	obj := &object.Object{Kind: object.KindBlob, Data: []byte("keep")}
	id, err := s.Put(obj)
	require.NoError(t, err)
	path, err := s.Path(id)
	require.NoError(t, err)

	before, err := os.Stat(path)
	require.NoError(t, err)
	_, err = s.Put(obj)
	require.NoError(t, err)
	after, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, os.SameFile(before, after))
}

func TestTruncatedObjectFailsDecodeNotGet(t *testing.T) {
	s := newTestStore(t)
	id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("hello\n")})
	require.NoError(t, err)
	path, err := s.Path(id)
	require.NoError(t, err)

	require.NoError(t, os.Chmod(path, 0o644))
	require.NoError(t, os.Truncate(path, int64(len("blob 6"))))

	envelope, err := s.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "blob 6", string(envelope))

	_, err = object.Decode(envelope)
	assert.ErrorIs(t, err, object.ErrMalformedObject)
}

func TestInvalidIdentifierTouchesNothing(t *testing.T) {
	// A root that is a regular file makes any filesystem access fail with
	// something other than ErrInvalidIdentifier.
	root := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(root, nil, 0o644))
	s := New(root, nil)

	for _, id := range []string{"abc", strings.Repeat("g", 40), "../../etc/passwd"} {
		_, err := s.Get(id)
		assert.ErrorIs(t, err, store.ErrInvalidIdentifier)
		assert.NotErrorIs(t, err, store.ErrStorageUnavailable)
	}
}

func TestShardPathCollision(t *testing.T) {
	s := newTestStore(t)
	// "e6" is the shard of the empty blob.
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "e6"), []byte("in the way"), 0o644))

	_, err := s.Put(&object.Object{Kind: object.KindBlob})
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)

	_, err = s.Get("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.NotErrorIs(t, err, store.ErrObjectNotFound)
}

func TestMissingRootIsCreatedOnWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "objects")
	s := New(dir, nil)

	_, err := s.Get("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	assert.ErrorIs(t, err, store.ErrObjectNotFound)

	id, err := s.Put(&object.Object{Kind: object.KindBlob})
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, id[:2], id[2:]))
}

func TestConcurrentWritersSameContent(t *testing.T) {
	s := newTestStore(t)
	data := []byte(strings.Repeat("concurrent", 1000))

	var wg sync.WaitGroup
	ids := make([]string, 16)
	errs := make([]error, 16)
	for i := range ids {
		wg.Go(func() {
			ids[i], errs[i] = New(s.dir, nil).Put(&object.Object{Kind: object.KindBlob, Data: data})
		})
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}
	envelope, err := s.Get(ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], store.ID(envelope))
}

func TestUnavailableNamesObjectPathOnly(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(s.dir, "e6"), []byte("in the way"), 0o644))
	path, err := s.Path("e69de29bb2d1d6434b8b29ae775ad8c2e48c5391")
	require.NoError(t, err)

	_, err = s.Put(&object.Object{Kind: object.KindBlob})
	require.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.Equal(t, "storage unavailable: create shard "+path+": not a directory", err.Error())
}

func TestUnavailableDropsTempPaths(t *testing.T) {
	tmp := "/objects/ab/tmp_obj_123"
	path := "/objects/ab/cdef"
	rename := &os.LinkError{Op: "rename", Old: tmp, New: path, Err: syscall.EXDEV}
	err := unavailable("publish", path, rename)
	assert.ErrorIs(t, err, store.ErrStorageUnavailable)
	assert.ErrorIs(t, err, syscall.EXDEV)
	assert.NotContains(t, err.Error(), "tmp_obj")
	assert.Contains(t, err.Error(), path)

	create := &fs.PathError{Op: "createtemp", Path: "/objects/ab/tmp_obj_*", Err: syscall.ENOSPC}
	err = unavailable("create", path, create)
	assert.ErrorIs(t, err, syscall.ENOSPC)
	assert.NotContains(t, err.Error(), "tmp_obj")
}

func TestSyncDir(t *testing.T) {
	assert.NoError(t, syncDir(t.TempDir()))
	assert.Error(t, syncDir(filepath.Join(t.TempDir(), "missing")))
}
