package host

import (
	"errors"
	"fmt"

	"github.com/nspcc-dev/neo-go/pkg/crypto/hash"
	"github.com/nspcc-dev/neo-go/pkg/crypto/keys"
	"github.com/nspcc-dev/neo-go/pkg/util"
)

var (
	// ErrInvalidWitness is returned when a witness signature does not match
	// the invocation payload.
	ErrInvalidWitness = errors.New("invalid witness")
	// ErrNoPayload is returned when witnesses are attached to an invocation
	// without payload.
	ErrNoPayload = errors.New("witnesses without payload")
)

// Witness is a signature of the invocation payload.
type Witness struct {
	PublicKey *keys.PublicKey
	Signature []byte
}

// Sign creates a witness of the payload with the given key.
func Sign(key *keys.PrivateKey, payload []byte) Witness {
	return Witness{
		PublicKey: key.PublicKey(),
		Signature: key.Sign(payload),
	}
}

// ScriptHash returns the account the witness is made for.
func (w Witness) ScriptHash() util.Uint160 {
	return w.PublicKey.GetScriptHash()
}

// verifyWitnesses checks all witnesses against the payload and returns the
// unique signers in witness order.
func verifyWitnesses(payload []byte, ws []Witness) ([]util.Uint160, error) {
	if len(ws) == 0 {
		return nil, nil
	}

	if len(payload) == 0 {
		return nil, ErrNoPayload
	}

	digest := hash.Sha256(payload).BytesBE()
	signers := make([]util.Uint160, 0, len(ws))

	for i := range ws {
		if ws[i].PublicKey == nil || !ws[i].PublicKey.Verify(ws[i].Signature, digest) {
			return nil, fmt.Errorf("%w: #%d", ErrInvalidWitness, i)
		}

		h := ws[i].ScriptHash()

		var dup bool
		for j := range signers {
			if signers[j].Equals(h) {
				dup = true
				break
			}
		}

		if !dup {
			signers = append(signers, h)
		}
	}

	return signers, nil
}
