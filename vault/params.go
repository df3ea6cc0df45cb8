package vault

import (
	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/custody-vault/token"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Operation codes prefixing invocation payloads.
const (
	opInitialize byte = iota + 1
	opDeposit
	opWithdraw
)

// InitializePrm groups parameters of the vault initialization.
type InitializePrm struct {
	// Root seed of the vault address. Up to 32 bytes.
	Root []byte

	// Nonce distinguishes otherwise equal invocations. Each signed payload
	// is executed at most once.
	Nonce uint32
	// Unix time after which the invocation is rejected. Zero means never.
	ValidUntil int64
}

// DepositPrm groups parameters of Deposit.
type DepositPrm struct {
	Vault util.Uint160
	Asset util.Uint160
	// Amount in the token-native units.
	Amount uint64
	// Token account of the depositor the funds are taken from.
	Source util.Uint160
	// Owner of the Source, must sign the invocation.
	Depositor util.Uint160
	// Custody account address presented by the caller. Zero means none.
	Custody util.Uint160

	// Nonce distinguishes otherwise equal invocations. Each signed payload
	// is executed at most once.
	Nonce uint32
	// Unix time after which the invocation is rejected. Zero means never.
	ValidUntil int64
}

// WithdrawPrm groups parameters of Withdraw.
type WithdrawPrm struct {
	Vault util.Uint160
	Asset util.Uint160
	// Amount in the token-native units.
	Amount uint64
	// Token account the funds are sent to.
	Destination util.Uint160
	// Depositor whose custody account is debited, must sign the invocation.
	Depositor util.Uint160
	// Custody account address presented by the caller. Zero means none.
	Custody util.Uint160

	// Nonce distinguishes otherwise equal invocations. Each signed payload
	// is executed at most once.
	Nonce uint32
	// Unix time after which the invocation is rejected. Zero means never.
	ValidUntil int64
}

// Payload returns the encoded invocation to be signed by the manager.
func (x InitializePrm) Payload(program util.Uint160) []byte {
	w := io.NewBufBinWriter()
	writeHeader(w.BinWriter, opInitialize, program, x.Nonce, x.ValidUntil)
	w.WriteVarBytes(x.Root)
	return w.Bytes()
}

// Payload returns the encoded invocation to be signed by the depositor.
func (x DepositPrm) Payload(program util.Uint160) []byte {
	w := io.NewBufBinWriter()
	writeHeader(w.BinWriter, opDeposit, program, x.Nonce, x.ValidUntil)
	w.WriteBytes(x.Vault[:])
	w.WriteBytes(x.Asset[:])
	w.WriteU64LE(x.Amount)
	w.WriteBytes(x.Source[:])
	w.WriteBytes(x.Depositor[:])
	w.WriteBytes(x.Custody[:])
	return w.Bytes()
}

// Payload returns the encoded invocation to be signed by the depositor.
func (x WithdrawPrm) Payload(program util.Uint160) []byte {
	w := io.NewBufBinWriter()
	writeHeader(w.BinWriter, opWithdraw, program, x.Nonce, x.ValidUntil)
	w.WriteBytes(x.Vault[:])
	w.WriteBytes(x.Asset[:])
	w.WriteU64LE(x.Amount)
	w.WriteBytes(x.Destination[:])
	w.WriteBytes(x.Depositor[:])
	w.WriteBytes(x.Custody[:])
	return w.Bytes()
}

func writeHeader(w *io.BinWriter, op byte, program util.Uint160, nonce uint32, validUntil int64) {
	w.WriteB(op)
	w.WriteBytes(program[:])
	w.WriteU32LE(nonce)
	w.WriteU64LE(uint64(validUntil))
}

// lockKeys returns storage keys an operation over the triple and the given
// personal token account depends on.
func lockKeys(acc custody.Accounts, personal util.Uint160) [][]byte {
	return [][]byte{
		RecordKey(acc.Record),
		token.AccountKey(acc.Custody),
		token.AccountKey(personal),
	}
}
