package custody_test

import (
	"testing"

	"github.com/nspcc-dev/custody-vault/custody"
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/stretchr/testify/require"
)

func randHash(t *testing.T) util.Uint160 {
	k, err := keys.NewPrivateKey()
	require.NoError(t, err)
	return k.GetScriptHash()
}

func TestCreateAddress(t *testing.T) {
	program := hash.Hash160([]byte("program"))

	t.Run("stable", func(t *testing.T) {
		a := custody.CreateAddress(program, []byte("a"), []byte("b"))
		b := custody.CreateAddress(program, []byte("a"), []byte("b"))
		require.Equal(t, a, b)
	})

	t.Run("seed boundaries", func(t *testing.T) {
		a := custody.CreateAddress(program, []byte("ab"), []byte("c"))
		b := custody.CreateAddress(program, []byte("a"), []byte("bc"))
		c := custody.CreateAddress(program, []byte("abc"))
		require.NotEqual(t, a, b)
		require.NotEqual(t, a, c)
		require.NotEqual(t, b, c)
	})

	t.Run("program", func(t *testing.T) {
		other := hash.Hash160([]byte("other program"))
		require.NotEqual(t,
			custody.CreateAddress(program, []byte("a")),
			custody.CreateAddress(other, []byte("a")))
	})

	t.Run("not a signature account", func(t *testing.T) {
		k, err := keys.NewPrivateKey()
		require.NoError(t, err)
		h := k.GetScriptHash()
		require.NotEqual(t, h, custody.CreateAddress(program, k.PublicKey().Bytes()))
	})
}

func TestDerive(t *testing.T) {
	var (
		program   = hash.Hash160([]byte("program"))
		vault     = custody.VaultAddress(program, custody.DefaultRoot)
		asset     = randHash(t)
		depositor = randHash(t)
	)

	acc := custody.Derive(program, vault, asset, depositor)
	require.Equal(t, acc, custody.Derive(program, vault, asset, depositor))

	require.NotEqual(t, acc.Custody, acc.Authority)
	require.NotEqual(t, acc.Custody, acc.Record)
	require.NotEqual(t, acc.Authority, acc.Record)

	require.Equal(t, acc.Authority, acc.Proof().Resolve(program))
	require.Equal(t, acc.Custody, custody.CreateAddress(program, acc.CustodySeeds()...))
	require.NotEqual(t, acc.Authority, acc.Proof().Resolve(hash.Hash160([]byte("thief"))))

	t.Run("unique per triple", func(t *testing.T) {
		var (
			otherVault = custody.VaultAddress(program, []byte("other"))
			otherAsset = randHash(t)
			otherDep   = randHash(t)
			seen       = make(map[util.Uint160]struct{})
		)

		for _, v := range []util.Uint160{vault, otherVault} {
			for _, a := range []util.Uint160{asset, otherAsset} {
				for _, d := range []util.Uint160{depositor, otherDep} {
					acc := custody.Derive(program, v, a, d)
					for _, h := range []util.Uint160{acc.Custody, acc.Authority, acc.Record} {
						_, ok := seen[h]
						require.False(t, ok, "address derived twice")
						seen[h] = struct{}{}
					}
				}
			}
		}
		require.Len(t, seen, 24)
	})

	t.Run("swapped roles", func(t *testing.T) {
		swapped := custody.Derive(program, vault, depositor, asset)
		require.NotEqual(t, acc.Custody, swapped.Custody)
	})
}

func TestAuthority(t *testing.T) {
	program := hash.Hash160([]byte("program"))
	acc := randHash(t)

	var a custody.Authority = custody.Signer{Account: acc}
	require.Equal(t, acc, a.Resolve(program))
	require.Contains(t, a.String(), "signer:")

	seeds := custody.Seeds{[]byte("x"), []byte("y")}
	a = custody.DerivedProof{Seeds: seeds}
	require.Equal(t, custody.CreateAddress(program, seeds...), a.Resolve(program))
	require.Contains(t, a.String(), "derived:")

	cp := seeds.Clone()
	cp[0][0] = 'z'
	require.Equal(t, byte('x'), seeds[0][0])
}
