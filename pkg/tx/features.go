// Package tx defines the Mimblewimble transaction components carried in
// block bodies: inputs, outputs, kernels, and their feature metadata.
package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// OutputType declares what an output is for. Consensus rules restrict
// which types are permitted per epoch.
type OutputType uint8

// Output type constants.
const (
	OutputTypeStandard OutputType = iota
	OutputTypeCoinbase
	OutputTypeBurn
	OutputTypeValidatorNodeRegistration
)

// String returns a human-readable output type name.
func (ot OutputType) String() string {
	switch ot {
	case OutputTypeStandard:
		return "standard"
	case OutputTypeCoinbase:
		return "coinbase"
	case OutputTypeBurn:
		return "burn"
	case OutputTypeValidatorNodeRegistration:
		return "validator_node_registration"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(ot))
	}
}

// OutputFeatures carries the consensus metadata attached to an output.
// Inputs embed the features of the output they spend, so maturity can be
// checked without a UTXO lookup.
type OutputFeatures struct {
	Version  uint8      `json:"version"`
	Type     OutputType `json:"type"`
	Maturity uint64     `json:"maturity"` // Height before which the output cannot be spent.

	// Set only on validator node registration outputs.
	ValidatorNodeRegistration *ValidatorNodeRegistration `json:"validator_node_registration,omitempty"`
}

// canonicalBytes returns the feature encoding used for hashing.
// Format: version(1) | type(1) | maturity(8) | [vn registration].
func (f *OutputFeatures) canonicalBytes() []byte {
	buf := make([]byte, 0, 10)
	buf = append(buf, f.Version, byte(f.Type))
	buf = binary.LittleEndian.AppendUint64(buf, f.Maturity)
	if f.ValidatorNodeRegistration != nil {
		buf = append(buf, f.ValidatorNodeRegistration.PublicKey...)
		buf = append(buf, f.ValidatorNodeRegistration.Signature...)
	}
	return buf
}

// ValidatorNodeRegistration is the payload of an output that stakes
// funds to register a validator node. The signature proves possession
// of the validator key and binds it to the staked commitment.
type ValidatorNodeRegistration struct {
	PublicKey []byte `json:"public_key"` // Compressed secp256k1 key, 33 bytes.
	Signature []byte `json:"signature"`  // Schnorr signature over Challenge.
}

// vnRegistrationDomain separates registration challenges from other
// signed messages.
var vnRegistrationDomain = []byte("cinder.vnreg.v1")

// Challenge returns the hash the validator key must sign: the key bound
// to the staked output commitment.
func (r *ValidatorNodeRegistration) Challenge(commitment crypto.Commitment) types.Hash {
	return crypto.HashParts(vnRegistrationDomain, r.PublicKey, commitment[:])
}

// IsValid checks the registration signature against the staked
// commitment.
func (r *ValidatorNodeRegistration) IsValid(commitment crypto.Commitment) bool {
	if len(r.PublicKey) != 33 {
		return false
	}
	challenge := r.Challenge(commitment)
	return crypto.VerifySignature(challenge[:], r.Signature, r.PublicKey)
}

// vnRegistrationJSON is the JSON form with hex-encoded byte fields.
type vnRegistrationJSON struct {
	PublicKey string `json:"public_key"`
	Signature string `json:"signature"`
}

// MarshalJSON encodes the registration with hex byte fields.
func (r ValidatorNodeRegistration) MarshalJSON() ([]byte, error) {
	return json.Marshal(vnRegistrationJSON{
		PublicKey: hex.EncodeToString(r.PublicKey),
		Signature: hex.EncodeToString(r.Signature),
	})
}

// UnmarshalJSON decodes a registration with hex byte fields.
func (r *ValidatorNodeRegistration) UnmarshalJSON(data []byte) error {
	var j vnRegistrationJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	pub, err := hex.DecodeString(j.PublicKey)
	if err != nil {
		return fmt.Errorf("invalid public key hex: %w", err)
	}
	sig, err := hex.DecodeString(j.Signature)
	if err != nil {
		return fmt.Errorf("invalid signature hex: %w", err)
	}
	r.PublicKey = pub
	r.Signature = sig
	return nil
}
