package custody

import (
	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/io"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/emit"
	"github.com/nspcc-dev/neo-go/pkg/vm/opcode"
)

// Domain separation tags of the derived accounts.
var (
	VaultTag     = []byte("SPL_ACCOUNT_VAULT")
	CustodyTag   = []byte("SPL_PDA_VAULT")
	AuthorityTag = []byte("SPL_PDA_AUTHORITY")
	BalanceTag   = []byte("SPL_PDA_BALANCE")
)

// DefaultRoot is a root seed of the vault used when none is configured.
var DefaultRoot = []byte("vault")

// Seeds is an ordered list of derivation inputs.
type Seeds [][]byte

// Clone returns a deep copy of the seed list.
func (s Seeds) Clone() Seeds {
	res := make(Seeds, len(s))
	for i := range s {
		res[i] = append([]byte(nil), s[i]...)
	}
	return res
}

// CreateAddress derives a keyless address of the program from the given
// seeds. The result depends on the program ID and on every seed including
// its length.
func CreateAddress(program util.Uint160, seeds ...[]byte) util.Uint160 {
	w := io.NewBufBinWriter()
	emit.Opcodes(w.BinWriter, opcode.ABORT)
	emit.Bytes(w.BinWriter, program.BytesBE())
	for i := range seeds {
		emit.Bytes(w.BinWriter, seeds[i])
	}
	if w.Err != nil {
		panic(w.Err)
	}

	return hash.Hash160(w.Bytes())
}

// VaultSeeds returns the seed list of the vault root record.
func VaultSeeds(root []byte) Seeds {
	return Seeds{VaultTag, root}
}

// VaultAddress returns the address of the vault root record of the program.
func VaultAddress(program util.Uint160, root []byte) util.Uint160 {
	return CreateAddress(program, VaultSeeds(root)...)
}

// Accounts groups addresses derived for a single (vault, asset, depositor)
// triple.
type Accounts struct {
	Program   util.Uint160
	Vault     util.Uint160
	Asset     util.Uint160
	Depositor util.Uint160

	// Token account holding deposited funds.
	Custody util.Uint160
	// The only identity allowed to move funds out of Custody.
	Authority util.Uint160
	// Address of the balance mirror.
	Record util.Uint160
}

// Derive computes all accounts of the given triple.
func Derive(program, vault, asset, depositor util.Uint160) Accounts {
	return Accounts{
		Program:   program,
		Vault:     vault,
		Asset:     asset,
		Depositor: depositor,
		Custody:   CreateAddress(program, tripleSeeds(CustodyTag, vault, asset, depositor)...),
		Authority: CreateAddress(program, tripleSeeds(AuthorityTag, vault, asset, depositor)...),
		Record:    CreateAddress(program, tripleSeeds(BalanceTag, vault, asset, depositor)...),
	}
}

// AuthoritySeeds returns the seeds of the signing authority.
func (a Accounts) AuthoritySeeds() Seeds {
	return tripleSeeds(AuthorityTag, a.Vault, a.Asset, a.Depositor)
}

// CustodySeeds returns the seeds of the custody account.
func (a Accounts) CustodySeeds() Seeds {
	return tripleSeeds(CustodyTag, a.Vault, a.Asset, a.Depositor)
}

// Proof returns an authorization proof of the signing authority.
func (a Accounts) Proof() DerivedProof {
	return DerivedProof{Seeds: a.AuthoritySeeds()}
}

func tripleSeeds(tag []byte, vault, asset, depositor util.Uint160) Seeds {
	return Seeds{tag, vault.BytesBE(), asset.BytesBE(), depositor.BytesBE()}
}
