package dump

import (
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"slices"
	"strings"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/custody-vault/common"
	"github.com/nspcc-dev/custody-vault/token"
	"github.com/nspcc-dev/custody-vault/vault"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/encoding/fixedn"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Snapshot is the collected vault state. Addresses are Neo addresses,
// amounts are decimal strings in the asset precision.
type Snapshot struct {
	Vaults   []VaultState   `json:"vaults"`
	Balances []BalanceState `json:"balances"`
	Accounts []AccountState `json:"accounts"`
}

// VaultState describes the vault record.
type VaultState struct {
	Address string `json:"address"`
	Manager string `json:"manager"`
	// Base58-encoded root seed.
	Root string `json:"root"`
}

// BalanceState describes the balance record along with its custody
// account.
type BalanceState struct {
	Record    string `json:"record"`
	Vault     string `json:"vault"`
	Asset     string `json:"asset"`
	Depositor string `json:"depositor"`
	Custody   string `json:"custody"`

	Decimals uint8  `json:"decimals"`
	Mirror   string `json:"mirror"`
	Held     string `json:"held"`

	MirrorUnits uint64 `json:"mirrorUnits"`
	HeldUnits   uint64 `json:"heldUnits"`

	// Set if the custody account doesn't exist.
	Missing bool `json:"missing,omitempty"`
}

// Stale checks whether the mirror differs from the custody account.
func (x BalanceState) Stale() bool {
	return x.Missing || x.MirrorUnits != x.HeldUnits
}

// AccountState describes the token account.
type AccountState struct {
	Address string `json:"address"`
	Mint    string `json:"mint"`
	Owner   string `json:"owner"`
	Amount  string `json:"amount"`
	Units   uint64 `json:"units"`
}

// Collect reads the vault state from the store.
func Collect(st common.Seeker) (Snapshot, error) {
	var res Snapshot

	decimals := make(map[util.Uint160]uint8)

	err := token.SeekMints(st, func(mint util.Uint160, m token.Mint) bool {
		decimals[mint] = m.Decimals
		return true
	})
	if err != nil {
		return res, fmt.Errorf("read mints: %w", err)
	}

	accounts := make(map[util.Uint160]token.Account)

	err = token.SeekAccounts(st, func(addr util.Uint160, acc token.Account) bool {
		accounts[addr] = acc
		res.Accounts = append(res.Accounts, AccountState{
			Address: address.Uint160ToString(addr),
			Mint:    address.Uint160ToString(acc.Mint),
			Owner:   address.Uint160ToString(acc.Owner),
			Amount:  formatAmount(acc.Amount, decimals[acc.Mint]),
			Units:   acc.Amount,
		})
		return true
	})
	if err != nil {
		return res, fmt.Errorf("read token accounts: %w", err)
	}

	err = vault.SeekVaults(st, func(addr util.Uint160, v vault.Vault) bool {
		res.Vaults = append(res.Vaults, VaultState{
			Address: address.Uint160ToString(addr),
			Manager: address.Uint160ToString(v.Manager),
			Root:    base58.Encode(v.Root),
		})
		return true
	})
	if err != nil {
		return res, fmt.Errorf("read vaults: %w", err)
	}

	err = vault.SeekBalances(st, func(addr util.Uint160, rec vault.BalanceRecord) bool {
		d := decimals[rec.Asset]
		acc, ok := accounts[rec.Custody]

		res.Balances = append(res.Balances, BalanceState{
			Record:      address.Uint160ToString(addr),
			Vault:       address.Uint160ToString(rec.Vault),
			Asset:       address.Uint160ToString(rec.Asset),
			Depositor:   address.Uint160ToString(rec.Depositor),
			Custody:     address.Uint160ToString(rec.Custody),
			Decimals:    d,
			Mirror:      formatAmount(rec.Balance, d),
			Held:        formatAmount(acc.Amount, d),
			MirrorUnits: rec.Balance,
			HeldUnits:   acc.Amount,
			Missing:     !ok,
		})
		return true
	})
	if err != nil {
		return res, fmt.Errorf("read balance records: %w", err)
	}

	slices.SortFunc(res.Vaults, func(a, b VaultState) int { return strings.Compare(a.Address, b.Address) })
	slices.SortFunc(res.Balances, func(a, b BalanceState) int { return strings.Compare(a.Record, b.Record) })
	slices.SortFunc(res.Accounts, func(a, b AccountState) int { return strings.Compare(a.Address, b.Address) })

	return res, nil
}

// Stale returns balance records whose mirror differs from the custody
// account.
func (x Snapshot) Stale() []BalanceState {
	var res []BalanceState
	for i := range x.Balances {
		if x.Balances[i].Stale() {
			res = append(res, x.Balances[i])
		}
	}
	return res
}

// Filter returns the snapshot part related to the given vault. Token
// accounts are left untouched.
func (x Snapshot) Filter(vaultAddr util.Uint160) Snapshot {
	s := address.Uint160ToString(vaultAddr)

	res := Snapshot{Accounts: x.Accounts}
	for i := range x.Vaults {
		if x.Vaults[i].Address == s {
			res.Vaults = append(res.Vaults, x.Vaults[i])
		}
	}
	for i := range x.Balances {
		if x.Balances[i].Vault == s {
			res.Balances = append(res.Balances, x.Balances[i])
		}
	}

	return res
}

// WriteJSON writes indented JSON of the snapshot.
func (x Snapshot) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", " ")

	err := enc.Encode(x)
	if err != nil {
		return fmt.Errorf("encode snapshot to JSON: %w", err)
	}

	return nil
}

func formatAmount(n uint64, decimals uint8) string {
	return fixedn.ToString(new(big.Int).SetUint64(n), int(decimals))
}
