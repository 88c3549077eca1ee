package block

import (
	"encoding/binary"

	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// Header contains block metadata.
type Header struct {
	Version    uint16     `json:"version"`
	Height     uint64     `json:"height"`
	PrevHash   types.Hash `json:"prev_hash"`
	Timestamp  uint64     `json:"timestamp"`
	OutputRoot types.Hash `json:"output_root"` // Merkle root of output hashes.
	KernelRoot types.Hash `json:"kernel_root"` // Merkle root of kernel hashes.
	InputRoot  types.Hash `json:"input_root"`  // Merkle root of input hashes.

	// AuxPow carries auxiliary proof-of-work data for merge-mined blocks.
	// Bounded at 63 bytes so header decode cost stays constant.
	AuxPow types.FixedByteArray `json:"aux_pow"`

	Nonce uint64 `json:"nonce"`
}

// Hash computes the block header hash.
func (h *Header) Hash() types.Hash {
	return crypto.Hash(h.SigningBytes())
}

// SigningBytes returns the canonical bytes for hashing.
// Format: version(2) | height(8) | prev_hash(32) | timestamp(8) |
// output_root(32) | kernel_root(32) | input_root(32) |
// aux_pow(1 + len) | nonce(8)
func (h *Header) SigningBytes() []byte {
	buf := make([]byte, 0, 160)
	buf = binary.LittleEndian.AppendUint16(buf, h.Version)
	buf = binary.LittleEndian.AppendUint64(buf, h.Height)
	buf = append(buf, h.PrevHash[:]...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Timestamp)
	buf = append(buf, h.OutputRoot[:]...)
	buf = append(buf, h.KernelRoot[:]...)
	buf = append(buf, h.InputRoot[:]...)
	buf = append(buf, byte(h.AuxPow.Len()))
	buf = append(buf, h.AuxPow.AsSlice()...)
	buf = binary.LittleEndian.AppendUint64(buf, h.Nonce)
	return buf
}
