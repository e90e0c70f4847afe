// Package storetest holds the behaviour every store.ObjectStore backend
// must share. Backends call Run from their own tests.
package storetest

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.wyat.me/zwagit/object"
	"git.wyat.me/zwagit/store"
)

const (
	emptyBlobID = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	helloBlobID = "ce013625030ba8dba906f756967f9e9ca394464a"
)

// Factory returns a fresh, empty store. Cleanup belongs to t.
type Factory func(t *testing.T) store.ObjectStore

func Run(t *testing.T, newStore Factory) {
	t.Run("EmptyBlob", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(&object.Object{Kind: object.KindBlob})
		require.NoError(t, err)
		assert.Equal(t, emptyBlobID, id)

		envelope, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "blob 0\x00", string(envelope))
	})

	t.Run("HelloDecode", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("hello\n")})
		require.NoError(t, err)
		assert.Equal(t, helloBlobID, id)

		envelope, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "blob 6\x00hello\n", string(envelope))

		obj, err := object.Decode(envelope)
		require.NoError(t, err)
		assert.Equal(t, object.KindBlob, obj.Kind)
		assert.Equal(t, "hello\n", string(obj.Data))
	})

	t.Run("IdempotentPut", func(t *testing.T) {
		s := newStore(t)
		obj := &object.Object{Kind: object.KindBlob, Data: []byte("same bytes")}
		first, err := s.Put(obj)
		require.NoError(t, err)
		second, err := s.Put(obj)
		require.NoError(t, err)
		assert.Equal(t, first, second)

		envelope, err := s.Get(first)
		require.NoError(t, err)
		want, err := object.Encode(obj)
		require.NoError(t, err)
		assert.Equal(t, want, envelope)
	})

	t.Run("IDMatchesEnvelope", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(&object.Object{Kind: "note", Data: []byte{0, 1, 2, 0}})
		require.NoError(t, err)
		envelope, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, id, store.ID(envelope))
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("abc")})
		require.NoError(t, err)
		first, err := s.Get(id)
		require.NoError(t, err)
		first[len(first)-1] = 'X'

		second, err := s.Get(id)
		require.NoError(t, err)
		assert.Equal(t, "blob 3\x00abc", string(second))
	})

	t.Run("NotFound", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Get(helloBlobID)
		assert.ErrorIs(t, err, store.ErrObjectNotFound)

		ok, err := s.Exists(helloBlobID)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("Exists", func(t *testing.T) {
		s := newStore(t)
		id, err := s.Put(&object.Object{Kind: object.KindBlob, Data: []byte("hello\n")})
		require.NoError(t, err)
		ok, err := s.Exists(id)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("InvalidIdentifier", func(t *testing.T) {
		s := newStore(t)
		for _, id := range []string{"abc", strings.Repeat("g", 40), strings.ToUpper(helloBlobID)} {
			_, err := s.Get(id)
			assert.ErrorIs(t, err, store.ErrInvalidIdentifier, "get %q", id)
			_, err = s.Exists(id)
			assert.ErrorIs(t, err, store.ErrInvalidIdentifier, "exists %q", id)
		}
	})

	t.Run("InvalidKind", func(t *testing.T) {
		s := newStore(t)
		_, err := s.Put(&object.Object{Kind: "two words", Data: []byte("x")})
		assert.ErrorIs(t, err, object.ErrInvalidKind)
	})
}
