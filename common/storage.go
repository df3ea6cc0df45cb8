package common

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Putter is a storage that accepts new items without error, like
// storage.MemCachedStore.
type Putter interface {
	Put(key, value []byte)
}

// Getter is a read-only storage.
type Getter interface {
	Get(key []byte) ([]byte, error)
}

// Seeker is a storage that can iterate over items.
type Seeker interface {
	Seek(rng storage.SeekRange, f func(k, v []byte) bool)
}

// Key returns storage key of the addressed item.
func Key(prefix byte, h util.Uint160) []byte {
	return append([]byte{prefix}, h.BytesBE()...)
}

// GetSerialized reads the item by key and decodes it into v. It returns
// storage.ErrKeyNotFound if there is no such item.
func GetSerialized(st Getter, key []byte, v io.Serializable) error {
	data, err := st.Get(key)
	if err != nil {
		return err
	}

	r := io.NewBinReaderFromBuf(data)
	v.DecodeBinary(r)
	if r.Err != nil {
		return fmt.Errorf("decode storage item %x: %w", key, r.Err)
	}

	return nil
}

// SetSerialized serializes v and puts it into the storage.
func SetSerialized(st Putter, key []byte, v io.Serializable) {
	w := io.NewBufBinWriter()
	v.EncodeBinary(w.BinWriter)
	if w.Err != nil {
		panic(fmt.Errorf("encode storage item %x: %w", key, w.Err))
	}

	st.Put(key, w.Bytes())
}

// Has checks whether the item exists.
func Has(st Getter, key []byte) (bool, error) {
	_, err := st.Get(key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, storage.ErrKeyNotFound):
		return false, nil
	default:
		return false, err
	}
}

// SeekAddressed iterates over all items stored under the prefix with
// Hash160 keys. Stored values are passed to f undecoded. Iteration stops
// when f returns false.
func SeekAddressed(st Seeker, prefix byte, f func(h util.Uint160, v []byte) bool) {
	st.Seek(storage.SeekRange{Prefix: []byte{prefix}}, func(k, v []byte) bool {
		if len(k) < util.Uint160Size {
			return true
		}

		h, err := util.Uint160DecodeBytesBE(k[len(k)-util.Uint160Size:])
		if err != nil {
			return true
		}

		return f(h, v)
	})
}

// Decode decodes the stored value into v.
func Decode(data []byte, v io.Serializable) error {
	r := io.NewBinReaderFromBuf(data)
	v.DecodeBinary(r)
	return r.Err
}
