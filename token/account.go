package token

import (
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Mint describes a fungible token.
type Mint struct {
	// Precision of the token amounts.
	Decimals uint8
	// Total amount of issued tokens.
	Supply uint64
	// The only identity allowed to issue new tokens.
	Authority util.Uint160
}

// Account is a token account.
type Account struct {
	Mint   util.Uint160
	Owner  util.Uint160
	Amount uint64
}

// EncodeBinary implements io.Serializable.
func (m *Mint) EncodeBinary(w *io.BinWriter) {
	w.WriteB(m.Decimals)
	w.WriteU64LE(m.Supply)
	w.WriteBytes(m.Authority[:])
}

// DecodeBinary implements io.Serializable.
func (m *Mint) DecodeBinary(r *io.BinReader) {
	m.Decimals = r.ReadB()
	m.Supply = r.ReadU64LE()
	r.ReadBytes(m.Authority[:])
}

// EncodeBinary implements io.Serializable.
func (a *Account) EncodeBinary(w *io.BinWriter) {
	w.WriteBytes(a.Mint[:])
	w.WriteBytes(a.Owner[:])
	w.WriteU64LE(a.Amount)
}

// DecodeBinary implements io.Serializable.
func (a *Account) DecodeBinary(r *io.BinReader) {
	r.ReadBytes(a.Mint[:])
	r.ReadBytes(a.Owner[:])
	a.Amount = r.ReadU64LE()
}
