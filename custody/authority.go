package custody

import (
	"strings"

	"github.com/mr-tron/base58"
	"github.com/nspcc-dev/neo-go/pkg/encoding/address"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

// Authority authorizes movement of funds from a token account. It is either
// a Signer or a DerivedProof.
type Authority interface {
	// Resolve returns the identity this authority acts for. Derived proofs
	// are resolved against the program presenting them.
	Resolve(program util.Uint160) util.Uint160

	String() string

	authority()
}

// Signer is an identity that signed the invocation directly. Whether it
// really did is checked by the execution host, not by this type.
type Signer struct {
	Account util.Uint160
}

// DerivedProof proves authority of a keyless derived identity by its seeds.
type DerivedProof struct {
	Seeds Seeds
}

// Resolve implements Authority.
func (s Signer) Resolve(util.Uint160) util.Uint160 {
	return s.Account
}

func (s Signer) String() string {
	return "signer:" + address.Uint160ToString(s.Account)
}

func (Signer) authority() {}

// Resolve implements Authority.
func (p DerivedProof) Resolve(program util.Uint160) util.Uint160 {
	return CreateAddress(program, p.Seeds...)
}

func (p DerivedProof) String() string {
	ss := make([]string, len(p.Seeds))
	for i := range p.Seeds {
		ss[i] = base58.Encode(p.Seeds[i])
	}
	return "derived:[" + strings.Join(ss, ",") + "]"
}

func (DerivedProof) authority() {}
