package common

import (
	"errors"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

type item struct {
	n uint64
}

func (x *item) EncodeBinary(w *io.BinWriter) { w.WriteU64LE(x.n) }

func (x *item) DecodeBinary(r *io.BinReader) { x.n = r.ReadU64LE() }

type failingGetter struct{}

var errBroken = errors.New("broken")

func (failingGetter) Get([]byte) ([]byte, error) { return nil, errBroken }

func TestSerialized(t *testing.T) {
	st := storage.NewMemCachedStore(storage.NewMemoryStore())
	key := Key(0x10, util.Uint160{1})

	var got item
	require.ErrorIs(t, GetSerialized(st, key, &got), storage.ErrKeyNotFound)

	ok, err := Has(st, key)
	require.NoError(t, err)
	require.False(t, ok)

	SetSerialized(st, key, &item{n: 42})

	ok, err = Has(st, key)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, GetSerialized(st, key, &got))
	require.EqualValues(t, 42, got.n)

	st.Put(key, []byte{1})
	require.Error(t, GetSerialized(st, key, &got))

	_, err = Has(failingGetter{}, key)
	require.ErrorIs(t, err, errBroken)
}

func TestSeekAddressed(t *testing.T) {
	st := storage.NewMemCachedStore(storage.NewMemoryStore())

	hs := []util.Uint160{{1}, {2}, {3}}
	for i, h := range hs {
		SetSerialized(st, Key(0x10, h), &item{n: uint64(i)})
	}
	SetSerialized(st, Key(0x11, util.Uint160{4}), &item{})
	st.Put([]byte{0x10, 1}, []byte{})

	seen := make(map[util.Uint160]uint64)
	SeekAddressed(st, 0x10, func(h util.Uint160, v []byte) bool {
		var x item
		require.NoError(t, Decode(v, &x))
		seen[h] = x.n
		return true
	})
	require.Equal(t, map[util.Uint160]uint64{{1}: 0, {2}: 1, {3}: 2}, seen)

	var n int
	SeekAddressed(st, 0x10, func(util.Uint160, []byte) bool {
		n++
		return false
	})
	require.Equal(t, 1, n)
}
