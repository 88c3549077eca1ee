package tx

import (
	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// Input spends a previous output. It embeds the spent output's
// commitment and features so stateless checks (maturity, balance) run
// without a UTXO-set lookup; whether the referenced output actually
// exists unspent is a contextual check outside this package.
type Input struct {
	Features   OutputFeatures    `json:"features"`
	Commitment crypto.Commitment `json:"commitment"`
}

// CanonicalBytes returns the input's canonical encoding, the identity
// used for sorting and duplicate detection.
func (in *Input) CanonicalBytes() []byte {
	feat := in.Features.canonicalBytes()
	buf := make([]byte, 0, len(feat)+crypto.CommitmentSize)
	buf = append(buf, feat...)
	buf = append(buf, in.Commitment[:]...)
	return buf
}

// Hash returns the canonical identity hash of the input.
func (in *Input) Hash() types.Hash {
	return crypto.Hash(in.CanonicalBytes())
}
