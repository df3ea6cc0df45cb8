package dump

import (
	"encoding/base64"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ID identifies the dump.
type ID struct {
	// Label of the dumped environment (e.g. staging, prod). Must not contain
	// hyphens.
	Label string
	// Unix time the state was collected at.
	Time int64
}

// String returns hyphen-separated ID fields.
func (x ID) String() string {
	return x.Label + sep + strconv.FormatInt(x.Time, 10)
}

func (x *ID) decodeString(s string) error {
	ss := strings.Split(s, sep)
	if len(ss) < 2 {
		return fmt.Errorf("expected '%s'-separated string with at least 2 items", sep)
	}

	t, err := strconv.ParseInt(ss[1], 10, 64)
	if err != nil {
		return fmt.Errorf("decode timestamp from '%s': %w", ss[1], err)
	}

	x.Label = ss[0]
	x.Time = t

	return nil
}

// binary keys and values are stored in base64.
var _encoding = base64.StdEncoding

const (
	sep = "-"

	snapshotFileSuffix = "snapshot.json"
	storageFileSuffix  = "storage.csv"
)

// Storage sections named in the CSV by key prefix.
const (
	sectionToken = "token"
	sectionVault = "vault"
	sectionHost  = "host"
	sectionOther = "other"
)

func sectionOf(key []byte) string {
	if len(key) == 0 {
		return sectionOther
	}

	// see token.MintKey, token.AccountKey, vault.VaultKey, vault.RecordKey
	// and executed invocation records of the host
	switch key[0] {
	case 0x01, 0x02:
		return sectionToken
	case 0x10, 0x11:
		return sectionVault
	case 0xF0:
		return sectionHost
	default:
		return sectionOther
	}
}

type dumpStreams struct {
	snapshot, storageItems io.ReadWriteCloser
}

func (x *dumpStreams) close() {
	_ = x.storageItems.Close()
	_ = x.snapshot.Close()
}

func dumpPath(dir string, id ID, suffix string) string {
	return filepath.Join(dir, id.String()+sep+suffix)
}

// initDumpStreams opens dump files of the given ID in dir. Read streams
// require both files to exist, write streams require both to be absent.
func initDumpStreams(d *dumpStreams, dir string, id ID, read bool) error {
	pathSnapshot := dumpPath(dir, id, snapshotFileSuffix)
	pathStorage := dumpPath(dir, id, storageFileSuffix)

	flag := os.O_RDONLY
	var perm os.FileMode

	if !read {
		for _, p := range []string{pathSnapshot, pathStorage} {
			if err := checkFileNotExists(p); err != nil {
				return err
			}
		}

		flag = os.O_CREATE | os.O_WRONLY
		perm = 0600
	}

	var err error

	d.storageItems, err = os.OpenFile(pathStorage, flag, perm)
	if err != nil {
		return fmt.Errorf("open file with storage items: %w", err)
	}

	d.snapshot, err = os.OpenFile(pathSnapshot, flag, perm)
	if err != nil {
		_ = d.storageItems.Close()
		return fmt.Errorf("open snapshot file: %w", err)
	}

	return nil
}

func checkFileNotExists(p string) error {
	_, err := os.Stat(p)
	if os.IsNotExist(err) {
		return nil
	}
	if err == nil {
		err = os.ErrExist
	}
	return fmt.Errorf("file '%s' absence check failed: %w", p, err)
}
