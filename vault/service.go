package vault

import (
	"context"

	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/custody-vault/host"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"go.uber.org/zap"
)

// Prm groups parameters of the vault Service.
type Prm struct {
	// Writes operation details into the log. Optional.
	Logger *zap.Logger

	// Runs vault operations. Required.
	Host *host.Host

	// Token transfer service keeping the funds. Required.
	Tokens TokenService

	// Program ID. DefaultID is used if zero.
	ID util.Uint160
}

// Service runs vault operations on the host. Every operation is a separate
// invocation, so it either commits completely or leaves no trace.
type Service struct {
	host    *host.Host
	program *Program
}

// NewService constructs Service from the given parameters.
func NewService(prm Prm) *Service {
	if prm.Logger == nil {
		prm.Logger = zap.NewNop()
	}

	if prm.ID.Equals(util.Uint160{}) {
		prm.ID = DefaultID
	}

	return &Service{
		host:    prm.Host,
		program: NewProgram(prm.ID, prm.Tokens, prm.Logger),
	}
}

// Program returns the underlying vault Program.
func (s *Service) Program() *Program {
	return s.program
}

// VaultAddress returns the address of the vault with the given root seed.
func (s *Service) VaultAddress(root []byte) util.Uint160 {
	return custody.VaultAddress(s.program.id, root)
}

// Derive returns accounts of the triple.
func (s *Service) Derive(vault, asset, depositor util.Uint160) custody.Accounts {
	return s.program.Derive(vault, asset, depositor)
}

// Initialize creates the vault. The manager must be the first witness of
// InitializePrm.Payload.
func (s *Service) Initialize(ctx context.Context, prm InitializePrm, ws ...host.Witness) (util.Uint160, *host.Execution, error) {
	var addr util.Uint160

	exec, err := s.host.Invoke(ctx, host.Invocation{
		Program:    s.program.id,
		Payload:    prm.Payload(s.program.id),
		Witnesses:  ws,
		Keys:       [][]byte{VaultKey(s.VaultAddress(prm.Root))},
		ValidUntil: prm.ValidUntil,
	}, func(ic *host.Context) error {
		var err error
		addr, err = s.program.Initialize(ic, prm.Root)
		return err
	})
	if err != nil {
		return util.Uint160{}, nil, err
	}

	return addr, exec, nil
}

// Deposit runs Program.Deposit. The depositor must witness
// DepositPrm.Payload.
func (s *Service) Deposit(ctx context.Context, prm DepositPrm, ws ...host.Witness) (Receipt, error) {
	acc := s.Derive(prm.Vault, prm.Asset, prm.Depositor)

	return s.invoke(ctx, host.Invocation{
		Program:    s.program.id,
		Payload:    prm.Payload(s.program.id),
		Witnesses:  ws,
		Keys:       lockKeys(acc, prm.Source),
		ValidUntil: prm.ValidUntil,
	}, func(ic *host.Context) (Receipt, error) {
		return s.program.Deposit(ic, prm)
	})
}

// Withdraw runs Program.Withdraw. The depositor must witness
// WithdrawPrm.Payload.
func (s *Service) Withdraw(ctx context.Context, prm WithdrawPrm, ws ...host.Witness) (Receipt, error) {
	acc := s.Derive(prm.Vault, prm.Asset, prm.Depositor)

	return s.invoke(ctx, host.Invocation{
		Program:    s.program.id,
		Payload:    prm.Payload(s.program.id),
		Witnesses:  ws,
		Keys:       lockKeys(acc, prm.Destination),
		ValidUntil: prm.ValidUntil,
	}, func(ic *host.Context) (Receipt, error) {
		return s.program.Withdraw(ic, prm)
	})
}

// Reconcile runs Program.Reconcile. It requires no witnesses.
func (s *Service) Reconcile(ctx context.Context, vault, asset, depositor util.Uint160) (Receipt, error) {
	acc := s.Derive(vault, asset, depositor)

	return s.invoke(ctx, host.Invocation{
		Program: s.program.id,
		Keys:    lockKeys(acc, acc.Custody),
	}, func(ic *host.Context) (Receipt, error) {
		return s.program.Reconcile(ic, vault, asset, depositor)
	})
}

// Vault returns the vault record.
func (s *Service) Vault(ctx context.Context, vault util.Uint160) (Vault, error) {
	var res Vault

	err := s.host.View(ctx, host.Invocation{Program: s.program.id}, func(ic *host.Context) error {
		var err error
		res, err = s.program.GetVault(ic, vault)
		return err
	})

	return res, err
}

// Balance returns the balance record of the triple.
func (s *Service) Balance(ctx context.Context, vault, asset, depositor util.Uint160) (BalanceRecord, error) {
	var res BalanceRecord

	acc := s.Derive(vault, asset, depositor)

	err := s.host.View(ctx, host.Invocation{
		Program: s.program.id,
		Keys:    [][]byte{RecordKey(acc.Record)},
	}, func(ic *host.Context) error {
		var err error
		res, err = s.program.GetBalance(ic, vault, asset, depositor)
		return err
	})

	return res, err
}

func (s *Service) invoke(ctx context.Context, inv host.Invocation, f func(*host.Context) (Receipt, error)) (Receipt, error) {
	var res Receipt

	exec, err := s.host.Invoke(ctx, inv, func(ic *host.Context) error {
		var err error
		res, err = f(ic)
		return err
	})
	if err != nil {
		return Receipt{}, err
	}

	res.Execution = exec

	return res, nil
}
