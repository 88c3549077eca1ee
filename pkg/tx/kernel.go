package tx

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// KernelType declares what a kernel is for.
type KernelType uint8

// Kernel type constants.
const (
	KernelTypePlain KernelType = iota
	KernelTypeCoinbase
	KernelTypeBurn
)

// String returns a human-readable kernel type name.
func (kt KernelType) String() string {
	switch kt {
	case KernelTypePlain:
		return "plain"
	case KernelTypeCoinbase:
		return "coinbase"
	case KernelTypeBurn:
		return "burn"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(kt))
	}
}

// Kernel is the transaction kernel: the excess commitment proving the
// transaction balances to zero, signed to prove knowledge of the excess
// blinding factor, plus the public fee and lock height.
type Kernel struct {
	Version    uint8             `json:"version"`
	Type       KernelType        `json:"type"`
	Fee        uint64            `json:"fee"`
	LockHeight uint64            `json:"lock_height"` // Minimum height at which the kernel is valid.
	Excess     crypto.Commitment `json:"excess"`
	ExcessSig  []byte            `json:"excess_sig"` // 64-byte Schnorr signature.

	// BurnCommitment mirrors the burned output's commitment. Set only on
	// burn kernels.
	BurnCommitment *crypto.Commitment `json:"burn_commitment,omitempty"`
}

// IsCoinbase returns true for block reward kernels.
func (k *Kernel) IsCoinbase() bool {
	return k.Type == KernelTypeCoinbase
}

// IsBurn returns true for burn kernels.
func (k *Kernel) IsBurn() bool {
	return k.Type == KernelTypeBurn
}

// kernelSigDomain separates kernel signatures from other signed messages.
var kernelSigDomain = []byte("cinder.kernel.v1")

// SignatureHash returns the message the excess key signs: every public
// kernel field except the signature itself.
func (k *Kernel) SignatureHash() types.Hash {
	buf := make([]byte, 0, 64)
	buf = append(buf, kernelSigDomain...)
	buf = append(buf, k.Version, byte(k.Type))
	buf = binary.LittleEndian.AppendUint64(buf, k.Fee)
	buf = binary.LittleEndian.AppendUint64(buf, k.LockHeight)
	buf = append(buf, k.Excess[:]...)
	if k.BurnCommitment != nil {
		buf = append(buf, k.BurnCommitment[:]...)
	}
	return crypto.Hash(buf)
}

// VerifyExcessSignature checks that the kernel is signed by the excess
// commitment's blinding key. The excess must be a pure blinding-factor
// point (value component zero) for the signature to verify, which is
// exactly what makes the kernel prove its transaction balances.
func (k *Kernel) VerifyExcessSignature() bool {
	hash := k.SignatureHash()
	return crypto.VerifySignature(hash[:], k.ExcessSig, k.Excess[:])
}

// CanonicalBytes returns the kernel's canonical encoding, the identity
// used for sorting and duplicate detection.
func (k *Kernel) CanonicalBytes() []byte {
	buf := make([]byte, 0, 128)
	buf = append(buf, k.Version, byte(k.Type))
	buf = binary.LittleEndian.AppendUint64(buf, k.Fee)
	buf = binary.LittleEndian.AppendUint64(buf, k.LockHeight)
	buf = append(buf, k.Excess[:]...)
	buf = append(buf, k.ExcessSig...)
	if k.BurnCommitment != nil {
		buf = append(buf, k.BurnCommitment[:]...)
	}
	return buf
}

// Hash returns the canonical identity hash of the kernel.
func (k *Kernel) Hash() types.Hash {
	return crypto.Hash(k.CanonicalBytes())
}

// kernelJSON is the JSON form with a hex-encoded excess signature.
type kernelJSON struct {
	Version        uint8              `json:"version"`
	Type           KernelType         `json:"type"`
	Fee            uint64             `json:"fee"`
	LockHeight     uint64             `json:"lock_height"`
	Excess         crypto.Commitment  `json:"excess"`
	ExcessSig      string             `json:"excess_sig"`
	BurnCommitment *crypto.Commitment `json:"burn_commitment,omitempty"`
}

// MarshalJSON encodes the kernel with a hex excess signature.
func (k Kernel) MarshalJSON() ([]byte, error) {
	return json.Marshal(kernelJSON{
		Version:        k.Version,
		Type:           k.Type,
		Fee:            k.Fee,
		LockHeight:     k.LockHeight,
		Excess:         k.Excess,
		ExcessSig:      hex.EncodeToString(k.ExcessSig),
		BurnCommitment: k.BurnCommitment,
	})
}

// UnmarshalJSON decodes a kernel with a hex excess signature.
func (k *Kernel) UnmarshalJSON(data []byte) error {
	var j kernelJSON
	if err := json.Unmarshal(data, &j); err != nil {
		return err
	}
	sig, err := hex.DecodeString(j.ExcessSig)
	if err != nil {
		return fmt.Errorf("invalid excess signature hex: %w", err)
	}
	k.Version = j.Version
	k.Type = j.Type
	k.Fee = j.Fee
	k.LockHeight = j.LockHeight
	k.Excess = j.Excess
	k.ExcessSig = sig
	k.BurnCommitment = j.BurnCommitment
	return nil
}
