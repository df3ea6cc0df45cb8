package token

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/nspcc-dev/custody-vault/common"
	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/custody-vault/host"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// Hash is the ID of the token ledger. Associated token accounts are derived
// from it.
var Hash = hash.Hash160([]byte("token-ledger"))

const (
	mintPrefix    = 0x01
	accountPrefix = 0x02
)

var (
	ErrMintExists        = errors.New("mint already exists")
	ErrMintNotFound      = errors.New("mint not found")
	ErrAccountExists     = errors.New("token account already exists")
	ErrAccountNotFound   = errors.New("token account not found")
	ErrMintMismatch      = errors.New("token accounts belong to different mints")
	ErrDecimalsMismatch  = errors.New("decimals mismatch")
	ErrUnauthorized      = errors.New("owner authorization failed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOverflow          = errors.New("amount overflow")
)

// Ledger is a fungible token ledger. It keeps no state itself, all data
// lives in the invocation store.
type Ledger struct {
	log *zap.Logger
}

// New returns new Ledger.
func New(log *zap.Logger) *Ledger {
	if log == nil {
		log = zap.NewNop()
	}

	return &Ledger{log: log}
}

// CreateMint registers new token with the given precision. Only authority
// can issue tokens of the mint.
func (l *Ledger) CreateMint(ic *host.Context, mint util.Uint160, decimals uint8, authority util.Uint160) error {
	key := common.Key(mintPrefix, mint)

	ok, err := common.Has(ic.Store, key)
	if err != nil {
		return fmt.Errorf("check mint existence: %w", err)
	}
	if ok {
		return ErrMintExists
	}

	common.SetSerialized(ic.Store, key, &Mint{
		Decimals:  decimals,
		Authority: authority,
	})

	l.log.Debug("mint created", zap.Stringer("mint", mint), zap.Uint8("decimals", decimals))

	return nil
}

// GetMint returns the mint.
func (l *Ledger) GetMint(ic *host.Context, mint util.Uint160) (Mint, error) {
	var m Mint

	err := common.GetSerialized(ic.Store, common.Key(mintPrefix, mint), &m)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return m, ErrMintNotFound
		}
		return m, fmt.Errorf("read mint: %w", err)
	}

	return m, nil
}

// CreateAccount creates an empty token account of the mint at the given
// address. Only owner can move funds from it.
func (l *Ledger) CreateAccount(ic *host.Context, addr, mint, owner util.Uint160) error {
	_, err := l.GetMint(ic, mint)
	if err != nil {
		return err
	}

	key := common.Key(accountPrefix, addr)

	ok, err := common.Has(ic.Store, key)
	if err != nil {
		return fmt.Errorf("check account existence: %w", err)
	}
	if ok {
		return ErrAccountExists
	}

	common.SetSerialized(ic.Store, key, &Account{
		Mint:  mint,
		Owner: owner,
	})

	l.log.Debug("token account created",
		zap.Stringer("account", addr), zap.Stringer("mint", mint), zap.Stringer("owner", owner))

	return nil
}

// AssociatedAddress returns the address of the default token account of
// the owner for the mint.
func AssociatedAddress(owner, mint util.Uint160) util.Uint160 {
	return custody.CreateAddress(Hash, owner.BytesBE(), mint.BytesBE())
}

// CreateAssociatedAccount creates the default token account of the owner
// for the mint if it doesn't exist yet. It returns the account address.
func (l *Ledger) CreateAssociatedAccount(ic *host.Context, owner, mint util.Uint160) (util.Uint160, error) {
	addr := AssociatedAddress(owner, mint)

	acc, err := l.GetAccount(ic, addr)
	switch {
	case err == nil:
		if !acc.Mint.Equals(mint) || !acc.Owner.Equals(owner) {
			return addr, ErrAccountExists
		}
		return addr, nil
	case errors.Is(err, ErrAccountNotFound):
		return addr, l.CreateAccount(ic, addr, mint, owner)
	default:
		return addr, err
	}
}

// GetAccount returns the token account.
func (l *Ledger) GetAccount(ic *host.Context, addr util.Uint160) (Account, error) {
	var acc Account

	err := common.GetSerialized(ic.Store, common.Key(accountPrefix, addr), &acc)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return acc, ErrAccountNotFound
		}
		return acc, fmt.Errorf("read token account: %w", err)
	}

	return acc, nil
}

// BalanceOf returns amount of tokens held by the account.
func (l *Ledger) BalanceOf(ic *host.Context, addr util.Uint160) (uint64, error) {
	acc, err := l.GetAccount(ic, addr)
	if err != nil {
		return 0, err
	}

	return acc.Amount, nil
}

// MintTo issues new tokens to the account. It can be authorized only by
// the mint authority.
func (l *Ledger) MintTo(ic *host.Context, mint, to util.Uint160, auth custody.Authority, amount uint64) error {
	m, err := l.GetMint(ic, mint)
	if err != nil {
		return err
	}

	if !authorized(ic, auth, m.Authority) {
		return ErrUnauthorized
	}

	acc, err := l.GetAccount(ic, to)
	if err != nil {
		return err
	}

	if !acc.Mint.Equals(mint) {
		return ErrMintMismatch
	}

	if m.Supply > math.MaxUint64-amount || acc.Amount > math.MaxUint64-amount {
		return ErrOverflow
	}

	m.Supply += amount
	acc.Amount += amount

	common.SetSerialized(ic.Store, common.Key(mintPrefix, mint), &m)
	common.SetSerialized(ic.Store, common.Key(accountPrefix, to), &acc)

	ic.Notify(Hash, "Transfer", stackitem.Null{}, stackitem.NewByteArray(to.BytesBE()), amountItem(amount))

	return nil
}

// Transfer moves amount of tokens between two accounts of the same mint.
// Decimals must match the precision of the mint. The source account owner
// must be authorized by auth.
func (l *Ledger) Transfer(ic *host.Context, from, to util.Uint160, auth custody.Authority, amount uint64, decimals uint8) error {
	src, err := l.GetAccount(ic, from)
	if err != nil {
		return fmt.Errorf("source: %w", err)
	}

	dst, err := l.GetAccount(ic, to)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	if !src.Mint.Equals(dst.Mint) {
		return ErrMintMismatch
	}

	m, err := l.GetMint(ic, src.Mint)
	if err != nil {
		return err
	}

	if m.Decimals != decimals {
		return fmt.Errorf("%w: mint has %d, requested %d", ErrDecimalsMismatch, m.Decimals, decimals)
	}

	if !authorized(ic, auth, src.Owner) {
		return ErrUnauthorized
	}

	if src.Amount < amount {
		return ErrInsufficientFunds
	}

	if !from.Equals(to) {
		if dst.Amount > math.MaxUint64-amount {
			return ErrOverflow
		}

		src.Amount -= amount
		dst.Amount += amount

		common.SetSerialized(ic.Store, common.Key(accountPrefix, from), &src)
		common.SetSerialized(ic.Store, common.Key(accountPrefix, to), &dst)
	}

	ic.Notify(Hash, "Transfer",
		stackitem.NewByteArray(from.BytesBE()), stackitem.NewByteArray(to.BytesBE()), amountItem(amount))

	l.log.Debug("tokens transferred",
		zap.Stringer("from", from), zap.Stringer("to", to),
		zap.Stringer("authority", auth), zap.Uint64("amount", amount))

	return nil
}

// AccountKey returns storage key of the token account.
func AccountKey(addr util.Uint160) []byte {
	return common.Key(accountPrefix, addr)
}

// MintKey returns storage key of the mint.
func MintKey(mint util.Uint160) []byte {
	return common.Key(mintPrefix, mint)
}

// SeekAccounts iterates over all token accounts in the store.
func SeekAccounts(st common.Seeker, f func(addr util.Uint160, acc Account) bool) error {
	var err error

	common.SeekAddressed(st, accountPrefix, func(h util.Uint160, v []byte) bool {
		var acc Account
		if err = common.Decode(v, &acc); err != nil {
			err = fmt.Errorf("decode token account %s: %w", h.StringLE(), err)
			return false
		}
		return f(h, acc)
	})

	return err
}

// SeekMints iterates over all mints in the store.
func SeekMints(st common.Seeker, f func(mint util.Uint160, m Mint) bool) error {
	var err error

	common.SeekAddressed(st, mintPrefix, func(h util.Uint160, v []byte) bool {
		var m Mint
		if err = common.Decode(v, &m); err != nil {
			err = fmt.Errorf("decode mint %s: %w", h.StringLE(), err)
			return false
		}
		return f(h, m)
	})

	return err
}

// authorized checks that auth proves the right to act for owner.
func authorized(ic *host.Context, auth custody.Authority, owner util.Uint160) bool {
	switch a := auth.(type) {
	case custody.Signer:
		return a.Account.Equals(owner) && ic.CheckWitness(a.Account)
	case custody.DerivedProof:
		return a.Resolve(ic.Program).Equals(owner)
	default:
		return false
	}
}

func amountItem(amount uint64) stackitem.Item {
	return stackitem.NewBigInteger(new(big.Int).SetUint64(amount))
}
