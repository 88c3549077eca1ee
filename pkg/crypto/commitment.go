package crypto

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// CommitmentSize is the length of a serialized commitment in bytes
// (a compressed secp256k1 point).
const CommitmentSize = 33

// Commitment errors.
var (
	ErrInvalidCommitment = errors.New("invalid commitment point")
)

// Commitment is a Pedersen commitment C = blind*G + value*H to a hidden
// 64-bit value. The zero value represents the point at infinity and is
// only produced when a sum of commitments cancels exactly.
type Commitment [CommitmentSize]byte

// IsZero returns true if the commitment is the all-zero (infinity) marker.
func (c Commitment) IsZero() bool {
	return c == Commitment{}
}

// String returns the hex-encoded commitment.
func (c Commitment) String() string {
	return hex.EncodeToString(c[:])
}

// Bytes returns a copy of the commitment as a byte slice.
func (c Commitment) Bytes() []byte {
	b := make([]byte, CommitmentSize)
	copy(b, c[:])
	return b
}

// MarshalJSON encodes the commitment as a hex string.
func (c Commitment) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.String())
}

// UnmarshalJSON decodes a hex string into a commitment.
func (c *Commitment) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*c = Commitment{}
		return nil
	}
	decoded, err := hex.DecodeString(s)
	if err != nil {
		return fmt.Errorf("invalid commitment hex: %w", err)
	}
	if len(decoded) != CommitmentSize {
		return fmt.Errorf("commitment must be %d bytes, got %d", CommitmentSize, len(decoded))
	}
	copy(c[:], decoded)
	return nil
}

// CommitmentFactory builds and combines Pedersen commitments over
// secp256k1. G is the curve base point; the value generator H is derived
// by try-and-increment hashing of G's encoding, so its discrete log
// relative to G is unknown.
type CommitmentFactory struct {
	h secp256k1.JacobianPoint
}

// NewCommitmentFactory creates a commitment factory.
func NewCommitmentFactory() *CommitmentFactory {
	return &CommitmentFactory{h: pedersenH()}
}

// pedersenH derives the value generator H. The compressed encoding of G
// is hashed, and the digest is interpreted as a compressed even-Y point;
// the digest is re-hashed until it lands on the curve.
func pedersenH() secp256k1.JacobianPoint {
	var one secp256k1.ModNScalar
	one.SetInt(1)
	var g secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(&one, &g)
	g.ToAffine()
	seed := Hash(secp256k1.NewPublicKey(&g.X, &g.Y).SerializeCompressed())

	candidate := make([]byte, CommitmentSize)
	candidate[0] = secp256k1.PubKeyFormatCompressedEven
	for {
		copy(candidate[1:], seed[:])
		pub, err := secp256k1.ParsePubKey(candidate)
		if err == nil {
			var h secp256k1.JacobianPoint
			pub.AsJacobian(&h)
			return h
		}
		seed = Hash(seed[:])
	}
}

// Commit computes C = blind*G + value*H.
func (f *CommitmentFactory) Commit(value uint64, blind *secp256k1.ModNScalar) Commitment {
	var p secp256k1.JacobianPoint
	f.commitPoint(value, blind, &p)
	return serializePoint(&p)
}

// CommitValue computes value*H (a commitment with a zero blinding
// factor). Used for public amounts such as the block reward and fees.
func (f *CommitmentFactory) CommitValue(value uint64) Commitment {
	var zero secp256k1.ModNScalar
	return f.Commit(value, &zero)
}

// commitPoint computes blind*G + value*H into result.
func (f *CommitmentFactory) commitPoint(value uint64, blind *secp256k1.ModNScalar, result *secp256k1.JacobianPoint) {
	var bg, vh secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(blind, &bg)
	secp256k1.ScalarMultNonConst(scalarFromUint64(value), &f.h, &vh)
	secp256k1.AddNonConst(&bg, &vh, result)
}

// Sum computes sum(add) - sum(sub) over the commitment group. A result
// that cancels to the point at infinity is returned as the zero
// commitment. Fails with ErrInvalidCommitment if any operand is not a
// valid curve point.
func (f *CommitmentFactory) Sum(add, sub []Commitment) (Commitment, error) {
	var acc secp256k1.JacobianPoint
	for _, c := range add {
		p, err := parsePoint(c)
		if err != nil {
			return Commitment{}, err
		}
		var next secp256k1.JacobianPoint
		secp256k1.AddNonConst(&acc, p, &next)
		acc = next
	}
	for _, c := range sub {
		p, err := parsePoint(c)
		if err != nil {
			return Commitment{}, err
		}
		negatePoint(p)
		var next secp256k1.JacobianPoint
		secp256k1.AddNonConst(&acc, p, &next)
		acc = next
	}
	return serializePoint(&acc), nil
}

// parsePoint decodes a commitment into an affine Jacobian point.
func parsePoint(c Commitment) (*secp256k1.JacobianPoint, error) {
	pub, err := secp256k1.ParsePubKey(c[:])
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidCommitment, c)
	}
	var p secp256k1.JacobianPoint
	pub.AsJacobian(&p)
	return &p, nil
}

// serializePoint encodes a point as a compressed commitment. The point
// at infinity serializes to the zero commitment.
func serializePoint(p *secp256k1.JacobianPoint) Commitment {
	if (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero() {
		return Commitment{}
	}
	affine := *p
	affine.ToAffine()
	var c Commitment
	copy(c[:], secp256k1.NewPublicKey(&affine.X, &affine.Y).SerializeCompressed())
	return c
}

// negatePoint negates p in place. p must be affine (Z = 1).
func negatePoint(p *secp256k1.JacobianPoint) {
	p.Y.Negate(1).Normalize()
}

// scalarFromUint64 converts a 64-bit value to a curve scalar.
func scalarFromUint64(v uint64) *secp256k1.ModNScalar {
	var b [32]byte
	binary.BigEndian.PutUint64(b[24:], v)
	var s secp256k1.ModNScalar
	s.SetBytes(&b)
	return &s
}

// randomScalar returns a uniformly random non-zero curve scalar.
func randomScalar() (*secp256k1.ModNScalar, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, fmt.Errorf("generate scalar: %w", err)
	}
	return &priv.Key, nil
}
