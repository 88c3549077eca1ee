package crypto

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Range proof layout constants. A proof commits to each of the 64 bits
// of the hidden value and carries a two-branch OR-proof per bit showing
// the bit commitment opens to 0 or 1, plus a final blinding adjustment
// tying the bit commitments back to the output commitment.
const (
	rangeProofBits = 64
	// Per bit: bit commitment, two nonce points, split challenge, two responses.
	bitProofSize = 3*CommitmentSize + 3*32
	// RangeProofSize is the exact length of a serialized range proof.
	RangeProofSize = rangeProofBits*bitProofSize + 32
)

// Range proof errors.
var (
	ErrInvalidRangeProof = errors.New("range proof verification failed")
	ErrValueBelowPromise = errors.New("value is below the minimum value promise")
)

// rangeProofDomain separates range proof challenges from other uses of
// the hash function.
var rangeProofDomain = []byte("cinder.rangeproof.v1")

// RangeProofFactory proves and verifies that a Pedersen commitment hides
// a value v with minimumValuePromise <= v < minimumValuePromise + 2^64.
type RangeProofFactory struct {
	commit *CommitmentFactory
}

// NewRangeProofFactory creates a range proof factory sharing the given
// commitment factory's generators.
func NewRangeProofFactory(commit *CommitmentFactory) *RangeProofFactory {
	return &RangeProofFactory{commit: commit}
}

// Prove constructs a range proof for commitment Commit(value, blind)
// relative to minimumValuePromise. The proof covers value -
// minimumValuePromise, so a commitment passes verification only if the
// hidden value is at least the promise.
func (f *RangeProofFactory) Prove(value uint64, blind *secp256k1.ModNScalar, minimumValuePromise uint64) ([]byte, error) {
	if value < minimumValuePromise {
		return nil, fmt.Errorf("%w: value %d, promise %d", ErrValueBelowPromise, value, minimumValuePromise)
	}
	v := value - minimumValuePromise

	// Statement commitment: C' = C - promise*H = blind*G + v*H.
	var statement secp256k1.JacobianPoint
	f.commit.commitPoint(v, blind, &statement)
	statementBytes := serializePoint(&statement)

	proof := make([]byte, 0, RangeProofSize)

	// Running sum of 2^i * r_i, used to close the blinding equation.
	var blindSum secp256k1.ModNScalar

	for i := 0; i < rangeProofBits; i++ {
		bit := (v >> uint(i)) & 1

		r, err := randomScalar()
		if err != nil {
			return nil, err
		}
		var weighted secp256k1.ModNScalar
		weighted.Mul2(powerOfTwoScalar(i), r)
		blindSum.Add(&weighted)

		// C_i = r*G + bit*H.
		var bitCommit secp256k1.JacobianPoint
		f.commit.commitPoint(bit, r, &bitCommit)
		bitCommitBytes := serializePoint(&bitCommit)

		// Statement points: P0 = C_i (bit 0), P1 = C_i - H (bit 1).
		p0 := bitCommit
		var p1 secp256k1.JacobianPoint
		negH := f.commit.h
		negatePoint(&negH)
		secp256k1.AddNonConst(&bitCommit, &negH, &p1)

		// Real branch: honest Schnorr commitment. Fake branch: simulated
		// transcript from random challenge and response.
		k, err := randomScalar()
		if err != nil {
			return nil, err
		}
		eFake, err := randomScalar()
		if err != nil {
			return nil, err
		}
		sFake, err := randomScalar()
		if err != nil {
			return nil, err
		}

		var rReal, rFake secp256k1.JacobianPoint
		secp256k1.ScalarBaseMultNonConst(k, &rReal)
		if bit == 0 {
			simulateNonce(sFake, eFake, &p1, &rFake)
		} else {
			simulateNonce(sFake, eFake, &p0, &rFake)
		}

		r0, r1 := &rReal, &rFake
		if bit == 1 {
			r0, r1 = &rFake, &rReal
		}
		r0Bytes := serializePoint(r0)
		r1Bytes := serializePoint(r1)

		e := bitChallenge(statementBytes, i, bitCommitBytes, r0Bytes, r1Bytes)

		// Split the challenge: e_real = e - e_fake.
		var eReal secp256k1.ModNScalar
		negFake := *eFake
		negFake.Negate()
		eReal.Add2(e, &negFake)

		// s_real = k + e_real * r.
		var sReal secp256k1.ModNScalar
		sReal.Mul2(&eReal, r)
		sReal.Add(k)

		e0, s0, s1 := &eReal, &sReal, sFake
		if bit == 1 {
			e0, s0, s1 = eFake, sFake, &sReal
		}

		proof = append(proof, bitCommitBytes[:]...)
		proof = append(proof, r0Bytes[:]...)
		proof = append(proof, r1Bytes[:]...)
		proof = appendScalar(proof, e0)
		proof = appendScalar(proof, s0)
		proof = appendScalar(proof, s1)
	}

	// delta = blind - sum(2^i * r_i) closes the aggregate equation
	// C' = sum(2^i * C_i) + delta*G.
	delta := *blind
	blindSum.Negate()
	delta.Add(&blindSum)
	proof = appendScalar(proof, &delta)

	return proof, nil
}

// Verify checks that proof demonstrates commitment hides a value of at
// least minimumValuePromise and less than minimumValuePromise + 2^64.
func (f *RangeProofFactory) Verify(proof []byte, commitment Commitment, minimumValuePromise uint64) error {
	if len(proof) != RangeProofSize {
		return fmt.Errorf("%w: proof is %d bytes, want %d", ErrInvalidRangeProof, len(proof), RangeProofSize)
	}

	// Statement commitment: C' = C - promise*H.
	cPoint, err := parsePoint(commitment)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRangeProof, err)
	}
	var promise secp256k1.JacobianPoint
	secp256k1.ScalarMultNonConst(scalarFromUint64(minimumValuePromise), &f.commit.h, &promise)
	negatePointGeneral(&promise)
	var statement secp256k1.JacobianPoint
	secp256k1.AddNonConst(cPoint, &promise, &statement)
	statementBytes := serializePoint(&statement)

	negH := f.commit.h
	negatePoint(&negH)

	// Aggregate sum(2^i * C_i) across bits.
	var weightedSum secp256k1.JacobianPoint

	for i := 0; i < rangeProofBits; i++ {
		rec := proof[i*bitProofSize : (i+1)*bitProofSize]

		var bitCommitBytes, r0Bytes, r1Bytes Commitment
		copy(bitCommitBytes[:], rec[0:33])
		copy(r0Bytes[:], rec[33:66])
		copy(r1Bytes[:], rec[66:99])
		e0, ok0 := parseScalar(rec[99:131])
		s0, ok1 := parseScalar(rec[131:163])
		s1, ok2 := parseScalar(rec[163:195])
		if !ok0 || !ok1 || !ok2 {
			return fmt.Errorf("%w: non-canonical scalar in bit %d", ErrInvalidRangeProof, i)
		}

		bitCommit, err := parsePoint(bitCommitBytes)
		if err != nil {
			return fmt.Errorf("%w: bit %d commitment", ErrInvalidRangeProof, i)
		}
		r0, err := parsePoint(r0Bytes)
		if err != nil {
			return fmt.Errorf("%w: bit %d nonce", ErrInvalidRangeProof, i)
		}
		r1, err := parsePoint(r1Bytes)
		if err != nil {
			return fmt.Errorf("%w: bit %d nonce", ErrInvalidRangeProof, i)
		}

		e := bitChallenge(statementBytes, i, bitCommitBytes, r0Bytes, r1Bytes)
		var e1 secp256k1.ModNScalar
		neg := *e0
		neg.Negate()
		e1.Add2(e, &neg)

		// Branch 0: s0*G == R0 + e0*C_i.
		if !schnorrRelationHolds(s0, r0, e0, bitCommit) {
			return fmt.Errorf("%w: bit %d branch 0", ErrInvalidRangeProof, i)
		}
		// Branch 1: s1*G == R1 + e1*(C_i - H).
		var p1 secp256k1.JacobianPoint
		secp256k1.AddNonConst(bitCommit, &negH, &p1)
		if !schnorrRelationHolds(s1, r1, &e1, &p1) {
			return fmt.Errorf("%w: bit %d branch 1", ErrInvalidRangeProof, i)
		}

		var weighted, next secp256k1.JacobianPoint
		secp256k1.ScalarMultNonConst(powerOfTwoScalar(i), bitCommit, &weighted)
		secp256k1.AddNonConst(&weightedSum, &weighted, &next)
		weightedSum = next
	}

	// C' == sum(2^i * C_i) + delta*G.
	delta, ok := parseScalar(proof[rangeProofBits*bitProofSize:])
	if !ok {
		return fmt.Errorf("%w: non-canonical blinding adjustment", ErrInvalidRangeProof)
	}
	var deltaG, total secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(delta, &deltaG)
	secp256k1.AddNonConst(&weightedSum, &deltaG, &total)
	if serializePoint(&total) != statementBytes {
		return fmt.Errorf("%w: aggregate commitment mismatch", ErrInvalidRangeProof)
	}

	return nil
}

// schnorrRelationHolds checks s*G == R + e*P.
func schnorrRelationHolds(s *secp256k1.ModNScalar, r *secp256k1.JacobianPoint, e *secp256k1.ModNScalar, p *secp256k1.JacobianPoint) bool {
	var lhs, ep, rhs secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s, &lhs)
	secp256k1.ScalarMultNonConst(e, p, &ep)
	secp256k1.AddNonConst(r, &ep, &rhs)
	return serializePoint(&lhs) == serializePoint(&rhs)
}

// simulateNonce computes R = s*G - e*P for the simulated OR branch.
func simulateNonce(s, e *secp256k1.ModNScalar, p *secp256k1.JacobianPoint, result *secp256k1.JacobianPoint) {
	var sg, ep secp256k1.JacobianPoint
	secp256k1.ScalarBaseMultNonConst(s, &sg)
	secp256k1.ScalarMultNonConst(e, p, &ep)
	negatePointGeneral(&ep)
	secp256k1.AddNonConst(&sg, &ep, result)
}

// bitChallenge derives the Fiat-Shamir challenge for one bit proof.
func bitChallenge(statement Commitment, bit int, bitCommit, r0, r1 Commitment) *secp256k1.ModNScalar {
	buf := make([]byte, 0, len(rangeProofDomain)+4+4*CommitmentSize)
	buf = append(buf, rangeProofDomain...)
	buf = append(buf, statement[:]...)
	buf = binary.LittleEndian.AppendUint32(buf, uint32(bit))
	buf = append(buf, bitCommit[:]...)
	buf = append(buf, r0[:]...)
	buf = append(buf, r1[:]...)
	digest := Hash(buf)
	var e secp256k1.ModNScalar
	e.SetBytes((*[32]byte)(&digest))
	return &e
}

// powerOfTwoScalar returns 2^i as a curve scalar.
func powerOfTwoScalar(i int) *secp256k1.ModNScalar {
	var b [32]byte
	b[31-i/8] = 1 << uint(i%8)
	var s secp256k1.ModNScalar
	s.SetBytes(&b)
	return &s
}

// appendScalar appends the 32-byte big-endian encoding of s.
func appendScalar(buf []byte, s *secp256k1.ModNScalar) []byte {
	b := s.Bytes()
	return append(buf, b[:]...)
}

// parseScalar decodes a canonical 32-byte scalar. Returns false when the
// encoding overflows the group order.
func parseScalar(b []byte) (*secp256k1.ModNScalar, bool) {
	var arr [32]byte
	copy(arr[:], b)
	var s secp256k1.ModNScalar
	overflow := s.SetBytes(&arr)
	return &s, overflow == 0
}

// negatePointGeneral negates a point that may not be affine.
func negatePointGeneral(p *secp256k1.JacobianPoint) {
	p.Y.Normalize()
	p.Y.Negate(1).Normalize()
}
