package vault

import "errors"

var (
	// ErrAlreadyInitialized is returned on attempt to initialize the
	// existing vault.
	ErrAlreadyInitialized = errors.New("vault already initialized")
	// ErrInvalidRoot is returned when the vault root seed is too long.
	ErrInvalidRoot = errors.New("invalid vault root seed")
	// ErrVaultNotInitialized is returned when the referenced vault doesn't
	// exist.
	ErrVaultNotInitialized = errors.New("vault not initialized")
	// ErrInvalidDepositAmount is returned on zero deposit.
	ErrInvalidDepositAmount = errors.New("invalid deposit amount")
	// ErrInvalidWithdrawAmount is returned on zero withdrawal.
	ErrInvalidWithdrawAmount = errors.New("invalid withdraw amount")
	// ErrInvalidMint is returned when any participating token account
	// belongs to a mint other than the declared asset.
	ErrInvalidMint = errors.New("invalid mint")
	// ErrInsufficientFunds is returned when the source of the transfer
	// doesn't hold enough tokens. Withdrawal requires the custody account
	// to hold strictly more than the withdrawn amount.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrTransferFailed wraps errors of the token transfer service.
	ErrTransferFailed = errors.New("transfer failed")
	// ErrReconciliationStale is logged when the balance mirror couldn't be
	// refreshed after a committed transfer. Deposit and Withdraw never
	// return it.
	ErrReconciliationStale = errors.New("balance mirror is stale")
	// ErrAccountNotInitialized is returned when a required token account or
	// balance record doesn't exist.
	ErrAccountNotInitialized = errors.New("account not initialized")
	// ErrConstraintSeeds is returned when a presented custody address
	// doesn't match its derivation.
	ErrConstraintSeeds = errors.New("seeds constraint violated")
	// ErrMissingWitness is returned when a required signer didn't sign the
	// invocation.
	ErrMissingWitness = errors.New("missing witness")
)
