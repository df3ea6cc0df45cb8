package dump

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
)

// IterateDumps iterates over all dumps saved by Creator in the specified
// directory, and passes ID and Reader of each dump into f. The Reader is
// valid only inside f.
func IterateDumps(dir string, f func(ID, *Reader)) error {
	var id ID
	var r Reader
	var streams dumpStreams

	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, e error) error {
		if errors.Is(e, fs.ErrNotExist) {
			return nil
		}
		if e != nil {
			return e
		}

		if d.IsDir() {
			if path != dir {
				return filepath.SkipDir
			}
			return nil
		}

		name := d.Name()
		if !strings.HasSuffix(name, sep+snapshotFileSuffix) {
			return nil
		}

		err := id.decodeString(name)
		if err != nil {
			return fmt.Errorf("decode dump ID from file name '%s': %w", name, err)
		}

		err = initDumpStreams(&streams, dir, id, true)
		if err != nil {
			return fmt.Errorf("init dump streams ('%s'): %w", name, err)
		}

		err = r.fromDumpStreams(streams.snapshot, streams.storageItems)
		streams.close()
		if err != nil {
			return fmt.Errorf("init dump reader ('%s'): %w", name, err)
		}

		f(id, &r)

		return nil
	})
}

type kv struct{ k, v []byte }

// Reader reads the dump.
type Reader struct {
	snapshot Snapshot
	items    map[string][]kv
}

func (x *Reader) fromDumpStreams(rSnapshot, rStorageItems io.Reader) error {
	x.snapshot = Snapshot{}

	err := json.NewDecoder(rSnapshot).Decode(&x.snapshot)
	if err != nil {
		return fmt.Errorf("decode snapshot from JSON: %w", err)
	}

	var rec []string
	var item kv

	_csv := csv.NewReader(rStorageItems)
	_csv.FieldsPerRecord = 3
	_csv.ReuseRecord = true

	if x.items != nil {
		clear(x.items)
	} else {
		x.items = make(map[string][]kv)
	}

	for {
		rec, err = _csv.Read()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("read next CSV record: %w", err)
		}

		item.k, err = _encoding.DecodeString(rec[1])
		if err != nil {
			return fmt.Errorf("decode storage item key: %w", err)
		}

		item.v, err = _encoding.DecodeString(rec[2])
		if err != nil {
			return fmt.Errorf("decode storage item value: %w", err)
		}

		x.items[rec[0]] = append(x.items[rec[0]], item)
	}
}

// Snapshot returns the dumped snapshot.
func (x *Reader) Snapshot() Snapshot {
	return x.snapshot
}

// IterateStorage passes all dumped storage items into f.
func (x *Reader) IterateStorage(f func(section string, key, value []byte)) {
	for section, items := range x.items {
		for i := range items {
			f(section, items[i].k, items[i].v)
		}
	}
}

// Restore puts all dumped storage items into st.
func (x *Reader) Restore(st storage.Store) error {
	cache := storage.NewMemCachedStore(st)

	x.IterateStorage(func(_ string, key, value []byte) {
		cache.Put(key, value)
	})

	_, err := cache.PersistSync()
	if err != nil {
		return fmt.Errorf("persist restored items: %w", err)
	}

	return nil
}
