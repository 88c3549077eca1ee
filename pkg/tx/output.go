package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// Output is a transaction output: a Pedersen commitment to a hidden
// value, a range proof that the value is non-negative, and the feature
// metadata consensus rules act on.
type Output struct {
	Features   OutputFeatures    `json:"features"`
	Commitment crypto.Commitment `json:"commitment"`
	RangeProof []byte            `json:"range_proof"`

	// MinimumValuePromise publicly lower-bounds the hidden value. The
	// range proof covers value - promise, so a verified output holds at
	// least this much. Zero for ordinary outputs.
	MinimumValuePromise uint64 `json:"minimum_value_promise"`
}

// IsCoinbase returns true for block reward outputs.
func (o *Output) IsCoinbase() bool {
	return o.Features.Type == OutputTypeCoinbase
}

// IsBurn returns true for burn outputs.
func (o *Output) IsBurn() bool {
	return o.Features.Type == OutputTypeBurn
}

// CanonicalBytes returns the output's canonical encoding, the identity
// used for sorting and duplicate detection.
// Format: features | commitment(33) | promise(8) | proof_len(4) | proof.
func (o *Output) CanonicalBytes() []byte {
	feat := o.Features.canonicalBytes()
	buf := make([]byte, 0, len(feat)+crypto.CommitmentSize+12+len(o.RangeProof))
	buf = append(buf, feat...)
	buf = append(buf, o.Commitment[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, o.MinimumValuePromise)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(o.RangeProof)))
	buf = append(buf, o.RangeProof...)
	return buf
}

// Hash returns the canonical identity hash of the output.
func (o *Output) Hash() types.Hash {
	return crypto.Hash(o.CanonicalBytes())
}

// outputJSON is the JSON form with a hex-encoded range proof.
type outputJSON struct {
	Features            OutputFeatures    `json:"features"`
	Commitment          crypto.Commitment `json:"commitment"`
	RangeProof          string            `json:"range_proof"`
	MinimumValuePromise uint64            `json:"minimum_value_promise"`
}

// MarshalJSON encodes the output with a hex range proof.
func (o Output) MarshalJSON() ([]byte, error) {
	return json.Marshal(outputJSON{
		Features:            o.Features,
		Commitment:          o.Commitment,
		RangeProof:          hex.EncodeToString(o.RangeProof),
		MinimumValuePromise: o.MinimumValuePromise,
	})
}

// UnmarshalJSON decodes an output with a hex range proof.
func (o *Output) UnmarshalJSON(data []byte) error {
	var j outputJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	proof, err := hex.DecodeString(j.RangeProof)
	if err != nil {
		return fmt.Errorf("invalid range proof hex: %w", err)
	}
	o.Features = j.Features
	o.Commitment = j.Commitment
	o.RangeProof = proof
	o.MinimumValuePromise = j.MinimumValuePromise
	return nil
}
