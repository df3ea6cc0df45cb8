package vault

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/nspcc-dev/custody-vault/common"
	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/custody-vault/host"
	"github.com/nspcc-dev/custody-vault/token"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"go.uber.org/zap"
)

// DefaultID is the program ID used when none is configured.
var DefaultID = hash.Hash160([]byte("asset-manager-vault"))

// TokenService is the token transfer service the vault keeps funds in.
type TokenService interface {
	GetMint(ic *host.Context, mint util.Uint160) (token.Mint, error)
	GetAccount(ic *host.Context, addr util.Uint160) (token.Account, error)
	CreateAccount(ic *host.Context, addr, mint, owner util.Uint160) error
	Transfer(ic *host.Context, from, to util.Uint160, auth custody.Authority, amount uint64, decimals uint8) error
	BalanceOf(ic *host.Context, addr util.Uint160) (uint64, error)
}

// Program implements vault operations. Its methods are executed by the host
// within a single invocation, see Service for the host-facing API.
type Program struct {
	id     util.Uint160
	tokens TokenService
	log    *zap.Logger
}

// Custody is a resolved custody account of the triple.
type Custody struct {
	custody.Accounts

	// Current state of the custody token account.
	Account token.Account
	// Balance mirror of the account.
	Record BalanceRecord
}

// Receipt describes the result of the successful operation.
type Receipt struct {
	custody.Accounts

	// Set if the custody account and its balance record were created by
	// the operation.
	Created bool
	// Balance mirror after the operation.
	Balance uint64
	// Set if the balance mirror couldn't be refreshed after the transfer.
	Stale bool

	// Filled by Service.
	Execution *host.Execution
}

// NewProgram returns vault Program with the given ID keeping funds in
// tokens.
func NewProgram(id util.Uint160, tokens TokenService, log *zap.Logger) *Program {
	if log == nil {
		log = zap.NewNop()
	}

	return &Program{
		id:     id,
		tokens: tokens,
		log:    log,
	}
}

// ID returns the program ID.
func (p *Program) ID() util.Uint160 {
	return p.id
}

// Derive returns accounts of the triple.
func (p *Program) Derive(vault, asset, depositor util.Uint160) custody.Accounts {
	return custody.Derive(p.id, vault, asset, depositor)
}

// Initialize creates the vault with the given root seed. The first signer
// of the invocation becomes the manager.
func (p *Program) Initialize(ic *host.Context, root []byte) (util.Uint160, error) {
	if len(root) > MaxRootLen {
		return util.Uint160{}, fmt.Errorf("%w: %d bytes exceed %d", ErrInvalidRoot, len(root), MaxRootLen)
	}

	manager, ok := ic.Caller()
	if !ok {
		return util.Uint160{}, fmt.Errorf("%w: manager", ErrMissingWitness)
	}

	addr := custody.VaultAddress(p.id, root)
	key := VaultKey(addr)

	exists, err := common.Has(ic.Store, key)
	if err != nil {
		return util.Uint160{}, fmt.Errorf("check vault existence: %w", err)
	}
	if exists {
		return util.Uint160{}, ErrAlreadyInitialized
	}

	common.SetSerialized(ic.Store, key, &Vault{
		Manager: manager,
		Root:    root,
	})

	ic.Notify(p.id, "Initialize", hashItem(addr), hashItem(manager))

	p.log.Info("vault initialized", zap.Stringer("vault", addr), zap.Stringer("manager", manager))

	return addr, nil
}

// GetVault returns the vault record.
func (p *Program) GetVault(ic *host.Context, vault util.Uint160) (Vault, error) {
	var v Vault

	err := common.GetSerialized(ic.Store, VaultKey(vault), &v)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return v, ErrVaultNotInitialized
		}
		return v, fmt.Errorf("read vault: %w", err)
	}

	return v, nil
}

// GetBalance returns the balance record of the triple.
func (p *Program) GetBalance(ic *host.Context, vault, asset, depositor util.Uint160) (BalanceRecord, error) {
	return p.getRecord(ic, p.Derive(vault, asset, depositor).Record)
}

// EnsureCustody returns the custody account and balance record of the
// triple creating them if needed. created is set if anything was created.
func (p *Program) EnsureCustody(ic *host.Context, acc custody.Accounts) (res Custody, created bool, err error) {
	res.Accounts = acc

	res.Account, err = p.tokens.GetAccount(ic, acc.Custody)
	switch {
	case err == nil:
		err = p.checkCustodyAccount(acc, res.Account)
		if err != nil {
			return res, false, err
		}
	case errors.Is(err, token.ErrAccountNotFound):
		err = p.tokens.CreateAccount(ic, acc.Custody, acc.Asset, acc.Authority)
		if err != nil {
			return res, false, fmt.Errorf("create custody account: %w", err)
		}

		res.Account = token.Account{Mint: acc.Asset, Owner: acc.Authority}
		created = true
	default:
		return res, false, fmt.Errorf("read custody account: %w", err)
	}

	res.Record, err = p.getRecord(ic, acc.Record)
	switch {
	case err == nil:
	case errors.Is(err, ErrAccountNotInitialized):
		res.Record = BalanceRecord{
			Vault:     acc.Vault,
			Asset:     acc.Asset,
			Depositor: acc.Depositor,
			Custody:   acc.Custody,
		}
		common.SetSerialized(ic.Store, RecordKey(acc.Record), &res.Record)
		created = true
	default:
		return res, false, err
	}

	if created {
		p.log.Debug("custody initialized",
			zap.Stringer("vault", acc.Vault), zap.Stringer("asset", acc.Asset),
			zap.Stringer("depositor", acc.Depositor), zap.Stringer("custody", acc.Custody))
	}

	return res, created, nil
}

// ResolveCustody returns the existing custody account and balance record of
// the triple.
func (p *Program) ResolveCustody(ic *host.Context, acc custody.Accounts) (res Custody, err error) {
	res.Accounts = acc

	res.Account, err = p.tokens.GetAccount(ic, acc.Custody)
	if err != nil {
		if errors.Is(err, token.ErrAccountNotFound) {
			return res, fmt.Errorf("%w: custody %s", ErrAccountNotInitialized, acc.Custody.StringLE())
		}
		return res, fmt.Errorf("read custody account: %w", err)
	}

	err = p.checkCustodyAccount(acc, res.Account)
	if err != nil {
		return res, err
	}

	res.Record, err = p.getRecord(ic, acc.Record)
	if err != nil {
		return res, err
	}

	return res, nil
}

// Deposit moves funds from the depositor's token account to the custody
// account of the triple creating the latter if needed.
func (p *Program) Deposit(ic *host.Context, prm DepositPrm) (Receipt, error) {
	if prm.Amount == 0 {
		return Receipt{}, ErrInvalidDepositAmount
	}

	_, err := p.GetVault(ic, prm.Vault)
	if err != nil {
		return Receipt{}, err
	}

	acc := p.Derive(prm.Vault, prm.Asset, prm.Depositor)

	err = checkPresented(prm.Custody, acc.Custody)
	if err != nil {
		return Receipt{}, err
	}

	src, err := p.personalAccount(ic, prm.Source, prm.Asset)
	if err != nil {
		return Receipt{}, fmt.Errorf("source: %w", err)
	}

	decimals, err := p.decimals(ic, prm.Asset)
	if err != nil {
		return Receipt{}, err
	}

	if src.Amount < prm.Amount {
		return Receipt{}, fmt.Errorf("%w: source holds %d, requested %d", ErrInsufficientFunds, src.Amount, prm.Amount)
	}

	c, created, err := p.EnsureCustody(ic, acc)
	if err != nil {
		return Receipt{}, err
	}

	err = p.tokens.Transfer(ic, prm.Source, acc.Custody, custody.Signer{Account: prm.Depositor}, prm.Amount, decimals)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	rec, stale := p.reconcile(ic, c.Record, acc, "deposit")

	ic.Notify(p.id, "Deposit", hashItem(prm.Vault), hashItem(prm.Asset), hashItem(prm.Depositor), amountItem(prm.Amount))

	p.log.Debug("deposit completed",
		zap.Stringer("vault", prm.Vault), zap.Stringer("asset", prm.Asset),
		zap.Stringer("depositor", prm.Depositor), zap.Uint64("amount", prm.Amount),
		zap.Uint64("balance", rec.Balance), zap.Bool("stale", stale))

	return Receipt{
		Accounts: acc,
		Created:  created,
		Balance:  rec.Balance,
		Stale:    stale,
	}, nil
}

// Withdraw moves funds from the custody account of the triple to the given
// token account. The transfer is authorized by the derived signing
// authority. The custody account must hold strictly more than the withdrawn
// amount.
func (p *Program) Withdraw(ic *host.Context, prm WithdrawPrm) (Receipt, error) {
	if prm.Amount == 0 {
		return Receipt{}, ErrInvalidWithdrawAmount
	}

	_, err := p.GetVault(ic, prm.Vault)
	if err != nil {
		return Receipt{}, err
	}

	if !ic.CheckWitness(prm.Depositor) {
		return Receipt{}, fmt.Errorf("%w: depositor %s", ErrMissingWitness, prm.Depositor.StringLE())
	}

	acc := p.Derive(prm.Vault, prm.Asset, prm.Depositor)

	err = checkPresented(prm.Custody, acc.Custody)
	if err != nil {
		return Receipt{}, err
	}

	c, err := p.ResolveCustody(ic, acc)
	if err != nil {
		return Receipt{}, err
	}

	_, err = p.personalAccount(ic, prm.Destination, prm.Asset)
	if err != nil {
		return Receipt{}, fmt.Errorf("destination: %w", err)
	}

	decimals, err := p.decimals(ic, prm.Asset)
	if err != nil {
		return Receipt{}, err
	}

	if c.Account.Amount <= prm.Amount {
		return Receipt{}, fmt.Errorf("%w: custody holds %d, requested %d", ErrInsufficientFunds, c.Account.Amount, prm.Amount)
	}

	err = p.tokens.Transfer(ic, acc.Custody, prm.Destination, acc.Proof(), prm.Amount, decimals)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrTransferFailed, err)
	}

	rec, stale := p.reconcile(ic, c.Record, acc, "withdraw")

	ic.Notify(p.id, "Withdraw", hashItem(prm.Vault), hashItem(prm.Asset), hashItem(prm.Depositor), amountItem(prm.Amount))

	p.log.Debug("withdrawal completed",
		zap.Stringer("vault", prm.Vault), zap.Stringer("asset", prm.Asset),
		zap.Stringer("depositor", prm.Depositor), zap.Uint64("amount", prm.Amount),
		zap.Uint64("balance", rec.Balance), zap.Bool("stale", stale))

	return Receipt{
		Accounts: acc,
		Balance:  rec.Balance,
		Stale:    stale,
	}, nil
}

// Reconcile refreshes the balance mirror of the triple from the custody
// account. Unlike Deposit and Withdraw, it fails with ErrReconciliationStale
// if the custody balance can't be read.
func (p *Program) Reconcile(ic *host.Context, vault, asset, depositor util.Uint160) (Receipt, error) {
	acc := p.Derive(vault, asset, depositor)

	rec, err := p.getRecord(ic, acc.Record)
	if err != nil {
		return Receipt{}, err
	}

	b, err := p.tokens.BalanceOf(ic, rec.Custody)
	if err != nil {
		return Receipt{}, fmt.Errorf("%w: %w", ErrReconciliationStale, err)
	}

	if rec.Balance != b {
		p.log.Info("balance mirror refreshed",
			zap.Stringer("record", acc.Record), zap.Uint64("was", rec.Balance), zap.Uint64("now", b))

		rec.Balance = b
		common.SetSerialized(ic.Store, RecordKey(acc.Record), &rec)
	}

	return Receipt{
		Accounts: acc,
		Balance:  rec.Balance,
	}, nil
}

// reconcile overwrites the mirror with the actual custody balance and stores
// the record. If the balance can't be read, the mirror is kept as is.
func (p *Program) reconcile(ic *host.Context, rec BalanceRecord, acc custody.Accounts, op string) (BalanceRecord, bool) {
	rec.Custody = acc.Custody

	b, err := p.tokens.BalanceOf(ic, acc.Custody)
	stale := err != nil
	if stale {
		p.log.Warn("balance mirror left stale",
			zap.Stringer("invocation", ic.ID),
			zap.String("operation", op),
			zap.Stringer("custody", acc.Custody),
			zap.Uint64("mirror", rec.Balance),
			zap.Error(fmt.Errorf("%w: %w", ErrReconciliationStale, err)))
	} else {
		rec.Balance = b
	}

	common.SetSerialized(ic.Store, RecordKey(acc.Record), &rec)

	return rec, stale
}

func (p *Program) getRecord(ic *host.Context, addr util.Uint160) (BalanceRecord, error) {
	var rec BalanceRecord

	err := common.GetSerialized(ic.Store, RecordKey(addr), &rec)
	if err != nil {
		if errors.Is(err, storage.ErrKeyNotFound) {
			return rec, fmt.Errorf("%w: balance record %s", ErrAccountNotInitialized, addr.StringLE())
		}
		return rec, fmt.Errorf("read balance record: %w", err)
	}

	return rec, nil
}

// personalAccount returns the token account of the depositor checking its
// mint.
func (p *Program) personalAccount(ic *host.Context, addr, asset util.Uint160) (token.Account, error) {
	acc, err := p.tokens.GetAccount(ic, addr)
	if err != nil {
		if errors.Is(err, token.ErrAccountNotFound) {
			return acc, fmt.Errorf("%w: %s", ErrAccountNotInitialized, addr.StringLE())
		}
		return acc, fmt.Errorf("read token account: %w", err)
	}

	if !acc.Mint.Equals(asset) {
		return acc, fmt.Errorf("%w: account %s belongs to %s", ErrInvalidMint, addr.StringLE(), acc.Mint.StringLE())
	}

	return acc, nil
}

func (p *Program) decimals(ic *host.Context, asset util.Uint160) (uint8, error) {
	m, err := p.tokens.GetMint(ic, asset)
	if err != nil {
		if errors.Is(err, token.ErrMintNotFound) {
			return 0, fmt.Errorf("%w: unknown asset %s", ErrInvalidMint, asset.StringLE())
		}
		return 0, fmt.Errorf("read mint: %w", err)
	}

	return m.Decimals, nil
}

func (p *Program) checkCustodyAccount(acc custody.Accounts, ta token.Account) error {
	if !ta.Mint.Equals(acc.Asset) {
		return fmt.Errorf("%w: custody %s belongs to %s", ErrInvalidMint, acc.Custody.StringLE(), ta.Mint.StringLE())
	}

	if !ta.Owner.Equals(acc.Authority) {
		return fmt.Errorf("%w: custody %s is not owned by its authority", ErrConstraintSeeds, acc.Custody.StringLE())
	}

	return nil
}

// checkPresented compares the caller-presented address with the derived one.
func checkPresented(presented, derived util.Uint160) error {
	if presented.Equals(util.Uint160{}) || presented.Equals(derived) {
		return nil
	}

	return fmt.Errorf("%w: presented %s, derived %s", ErrConstraintSeeds, presented.StringLE(), derived.StringLE())
}

func hashItem(h util.Uint160) stackitem.Item {
	return stackitem.NewByteArray(h.BytesBE())
}

func amountItem(n uint64) stackitem.Item {
	return stackitem.NewBigInteger(new(big.Int).SetUint64(n))
}
