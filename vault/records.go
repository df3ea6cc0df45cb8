package vault

import (
	"fmt"

	"github.com/nspcc-dev/custody-vault/common"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

const (
	vaultPrefix   = 0x10
	balancePrefix = 0x11
)

// MaxRootLen is the maximum length of the vault root seed.
const MaxRootLen = 32

// Vault is the root record of the vault.
type Vault struct {
	// Manager initialized the vault. It is never checked afterwards.
	Manager util.Uint160
	// Root seed the vault address is derived from.
	Root []byte
}

// BalanceRecord mirrors the amount held by the custody account of the
// (Vault, Asset, Depositor) triple.
type BalanceRecord struct {
	Vault     util.Uint160
	Asset     util.Uint160
	Depositor util.Uint160

	// Custody account the record mirrors.
	Custody util.Uint160
	// Custody amount observed after the last successful reconciliation.
	Balance uint64
}

// EncodeBinary implements io.Serializable.
func (v *Vault) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(v.Manager[:])
	w.WriteVarBytes(v.Root)
}

// DecodeBinary implements io.Serializable.
func (v *Vault) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(v.Manager[:])
	v.Root = r.ReadVarBytes(MaxRootLen)
}

// EncodeBinary implements io.Serializable.
func (b *BalanceRecord) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(b.Vault[:])
	w.WriteBytes(b.Asset[:])
	w.WriteBytes(b.Depositor[:])
	w.WriteBytes(b.Custody[:])
	w.WriteU64LE(b.Balance)
}

// DecodeBinary implements io.Serializable.
func (b *BalanceRecord) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(b.Vault[:])
	r.ReadBytes(b.Asset[:])
	r.ReadBytes(b.Depositor[:])
	r.ReadBytes(b.Custody[:])
	b.Balance = r.ReadU64LE()
}

// VaultKey returns storage key of the vault record.
func VaultKey(vault util.Uint160) []byte {
	return common.Key(vaultPrefix, vault)
}

// RecordKey returns storage key of the balance record by its derived
// address.
func RecordKey(record util.Uint160) []byte {
	return common.Key(balancePrefix, record)
}

// SeekVaults iterates over all vault records in the store.
func SeekVaults(st common.Seeker, f func(addr util.Uint160, v Vault) bool) error {
	var err error

	common.SeekAddressed(st, vaultPrefix, func(h util.Uint160, data []byte) bool {
		var v Vault
		if err = common.Decode(data, &v); err != nil {
			err = fmt.Errorf("decode vault %s: %w", h.StringLE(), err)
			return false
		}
		return f(h, v)
	})

	return err
}

// SeekBalances iterates over all balance records in the store.
func SeekBalances(st common.Seeker, f func(addr util.Uint160, rec BalanceRecord) bool) error {
	var err error

	common.SeekAddressed(st, balancePrefix, func(h util.Uint160, data []byte) bool {
		var rec BalanceRecord
		if err = common.Decode(data, &rec); err != nil {
			err = fmt.Errorf("decode balance record %s: %w", h.StringLE(), err)
			return false
		}
		return f(h, rec)
	})

	return err
}
