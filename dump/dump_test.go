package dump

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/nspcc-dev/custody-vault/common"
	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/custody-vault/host"
	"github.com/nspcc-dev/custody-vault/token"
	"github.com/nspcc-dev/custody-vault/vault"
	"github.com/nspcc-dev/neo-go/pkg/core/storage"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	store     storage.Store
	vault     util.Uint160
	asset     util.Uint160
	depositor util.Uint160
	accounts  custody.Accounts
}

// newFixture makes a store with one vault holding 1.5 units of the 8-decimal
// asset deposited by a single depositor.
func newFixture(t *testing.T) fixture {
	ctx := context.Background()
	st := storage.NewMemoryStore()
	h := host.New(st, zaptest.NewLogger(t))
	ledger := token.New(zaptest.NewLogger(t))
	svc := vault.NewService(vault.Prm{
		Logger: zaptest.NewLogger(t),
		Host:   h,
		Tokens: ledger,
	})

	newKey := func() *keys.PrivateKey {
		k, err := keys.NewPrivateKey()
		require.NoError(t, err)
		return k
	}

	mintKey, manager, depositor := newKey(), newKey(), newKey()
	asset := newKey().GetScriptHash()

	var src util.Uint160
	payload := []byte("setup")
	_, err := h.Invoke(ctx, host.Invocation{
		Program:   vault.DefaultID,
		Payload:   payload,
		Witnesses: []host.Witness{host.Sign(mintKey, payload)},
	}, func(ic *host.Context) error {
		err := ledger.CreateMint(ic, asset, 8, mintKey.GetScriptHash())
		if err != nil {
			return err
		}
		src, err = ledger.CreateAssociatedAccount(ic, depositor.GetScriptHash(), asset)
		if err != nil {
			return err
		}
		return ledger.MintTo(ic, asset, src, custody.Signer{Account: mintKey.GetScriptHash()}, 10_0000_0000)
	})
	require.NoError(t, err)

	iprm := vault.InitializePrm{Root: custody.DefaultRoot}
	v, _, err := svc.Initialize(ctx, iprm, host.Sign(manager, iprm.Payload(vault.DefaultID)))
	require.NoError(t, err)

	dprm := vault.DepositPrm{
		Vault:     v,
		Asset:     asset,
		Amount:    1_5000_0000,
		Source:    src,
		Depositor: depositor.GetScriptHash(),
	}
	r, err := svc.Deposit(ctx, dprm, host.Sign(depositor, dprm.Payload(vault.DefaultID)))
	require.NoError(t, err)

	return fixture{
		store:     st,
		vault:     v,
		asset:     asset,
		depositor: depositor.GetScriptHash(),
		accounts:  r.Accounts,
	}
}

func TestCollect(t *testing.T) {
	f := newFixture(t)

	s, err := Collect(f.store)
	require.NoError(t, err)

	require.Len(t, s.Vaults, 1)
	require.Equal(t, address.Uint160ToString(f.vault), s.Vaults[0].Address)

	require.Len(t, s.Balances, 1)
	b := s.Balances[0]
	require.Equal(t, address.Uint160ToString(f.accounts.Record), b.Record)
	require.Equal(t, address.Uint160ToString(f.accounts.Custody), b.Custody)
	require.Equal(t, address.Uint160ToString(f.depositor), b.Depositor)
	require.EqualValues(t, 8, b.Decimals)
	require.Equal(t, "1.5", b.Mirror)
	require.Equal(t, "1.5", b.Held)
	require.False(t, b.Stale())
	require.Empty(t, s.Stale())

	// depositor's source and the custody account
	require.Len(t, s.Accounts, 2)

	require.Len(t, s.Filter(f.vault).Balances, 1)
	require.Empty(t, s.Filter(util.Uint160{1}).Balances)
	require.Empty(t, s.Filter(util.Uint160{1}).Vaults)

	var buf bytes.Buffer
	require.NoError(t, s.WriteJSON(&buf))

	var decoded Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	require.Equal(t, s, decoded)
}

func TestCollect_Stale(t *testing.T) {
	f := newFixture(t)

	cache := storage.NewMemCachedStore(f.store)
	common.SetSerialized(cache, vault.RecordKey(f.accounts.Record), &vault.BalanceRecord{
		Vault:     f.vault,
		Asset:     f.asset,
		Depositor: f.depositor,
		Custody:   f.accounts.Custody,
		Balance:   1,
	})
	_, err := cache.PersistSync()
	require.NoError(t, err)

	s, err := Collect(f.store)
	require.NoError(t, err)

	stale := s.Stale()
	require.Len(t, stale, 1)
	require.EqualValues(t, 1, stale[0].MirrorUnits)
	require.EqualValues(t, 1_5000_0000, stale[0].HeldUnits)
	require.Equal(t, "0.00000001", stale[0].Mirror)
}

func TestSaveRestore(t *testing.T) {
	f := newFixture(t)
	dir := t.TempDir()
	id := ID{Label: "test", Time: 1700000000}

	s, err := Save(dir, id, f.store)
	require.NoError(t, err)

	_, err = Save(dir, id, f.store)
	require.Error(t, err)

	_, err = NewCreator(dir, ID{Label: "with-hyphen"})
	require.Error(t, err)

	var n int
	restored := storage.NewMemoryStore()

	err = IterateDumps(dir, func(got ID, r *Reader) {
		n++
		require.Equal(t, id, got)
		require.Equal(t, s, r.Snapshot())

		sections := make(map[string]int)
		r.IterateStorage(func(section string, _, _ []byte) {
			sections[section]++
		})
		// mint and two accounts, vault and balance record, three signed
		// invocations
		require.Equal(t, map[string]int{sectionToken: 3, sectionVault: 2, sectionHost: 3}, sections)

		require.NoError(t, r.Restore(restored))
	})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := Collect(restored)
	require.NoError(t, err)
	require.Equal(t, s, got)
}

func TestIterateDumps_Missing(t *testing.T) {
	err := IterateDumps(t.TempDir()+"/none", func(ID, *Reader) {
		t.Fatal("unexpected dump")
	})
	require.NoError(t, err)
}
