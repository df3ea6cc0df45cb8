package dump

import (
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/nspcc-dev/neo-go/pkg/core/storage"
)

// Creator saves the vault state. Output file format:
//
//	'<label>-<time>-snapshot.json': JSON Snapshot
//	'<label>-<time>-storage.csv': CSV of raw storage items
//
// Storage CSV records are 'section,key,value' where section is one of
// 'token', 'vault', 'host' or 'other' and binary key-value are base64-encoded.
//
// Use IterateDumps to access existing dumps.
type Creator struct {
	dumpStreams

	snapshot Snapshot

	storageItemsCSV *csv.Writer
}

// NewCreator returns Creator which saves the state into given directory. The
// dump is identified by specified ID. Resulting Creator should be closed when
// finished working with it.
//
// NewCreator fails if dump with provided ID already exists.
func NewCreator(dir string, id ID) (*Creator, error) {
	if id.Label == "" || strings.Contains(id.Label, sep) {
		return nil, fmt.Errorf("invalid dump label '%s'", id.Label)
	}

	var res Creator

	err := initDumpStreams(&res.dumpStreams, dir, id, false)
	if err != nil {
		return nil, err
	}

	res.storageItemsCSV = csv.NewWriter(res.dumpStreams.storageItems)

	return &res, nil
}

// SetSnapshot sets the snapshot to be flushed.
func (x *Creator) SetSnapshot(s Snapshot) {
	x.snapshot = s
}

// Write saves given binary key-value as a storage item.
func (x *Creator) Write(key, value []byte) error {
	err := x.storageItemsCSV.Write([]string{
		sectionOf(key),
		_encoding.EncodeToString(key),
		_encoding.EncodeToString(value),
	})
	if err != nil {
		return fmt.Errorf("write storage item as CSV data: %w", err)
	}

	return nil
}

// Flush flushes accumulated dump to the file system.
func (x *Creator) Flush() error {
	err := x.snapshot.WriteJSON(x.dumpStreams.snapshot)
	if err != nil {
		return err
	}

	x.storageItemsCSV.Flush()

	err = x.storageItemsCSV.Error()
	if err != nil {
		return fmt.Errorf("flush CSV data: %w", err)
	}

	return nil
}

// Close releases underlying resources of the Creator and makes it unusable.
func (x *Creator) Close() {
	x.close()
}

// Save collects the state of st and dumps it into dir with all storage
// items.
func Save(dir string, id ID, st storage.Store) (Snapshot, error) {
	s, err := Collect(st)
	if err != nil {
		return s, err
	}

	c, err := NewCreator(dir, id)
	if err != nil {
		return s, err
	}

	defer c.Close()

	c.SetSnapshot(s)

	st.Seek(storage.SeekRange{}, func(k, v []byte) bool {
		err = c.Write(k, v)
		return err == nil
	})
	if err != nil {
		return s, err
	}

	return s, c.Flush()
}
