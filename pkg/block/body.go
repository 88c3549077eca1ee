package block

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/Cinder-Labs/cinder-chain/pkg/tx"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// Body holds the transaction components of a block. Consensus requires
// inputs, outputs, and kernels each to be in canonical order: strictly
// ascending by canonical identity hash, which also rules out duplicates.
type Body struct {
	Inputs  []tx.Input  `json:"inputs"`
	Outputs []tx.Output `json:"outputs"`
	Kernels []tx.Kernel `json:"kernels"`
}

// Sort puts all three collections into canonical order. Builders call
// this once; validators only verify the order.
func (b *Body) Sort() {
	sort.Slice(b.Inputs, func(i, j int) bool {
		hi, hj := b.Inputs[i].Hash(), b.Inputs[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
	sort.Slice(b.Outputs, func(i, j int) bool {
		hi, hj := b.Outputs[i].Hash(), b.Outputs[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
	sort.Slice(b.Kernels, func(i, j int) bool {
		hi, hj := b.Kernels[i].Hash(), b.Kernels[j].Hash()
		return bytes.Compare(hi[:], hj[:]) < 0
	})
}

// InputHashes returns the canonical hash of every input, in body order.
func (b *Body) InputHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Inputs))
	for i := range b.Inputs {
		hashes[i] = b.Inputs[i].Hash()
	}
	return hashes
}

// OutputHashes returns the canonical hash of every output, in body order.
func (b *Body) OutputHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Outputs))
	for i := range b.Outputs {
		hashes[i] = b.Outputs[i].Hash()
	}
	return hashes
}

// KernelHashes returns the canonical hash of every kernel, in body order.
func (b *Body) KernelHashes() []types.Hash {
	hashes := make([]types.Hash, len(b.Kernels))
	for i := range b.Kernels {
		hashes[i] = b.Kernels[i].Hash()
	}
	return hashes
}

// TotalFees sums the fees of all kernels.
func (b *Body) TotalFees() uint64 {
	var total uint64
	for i := range b.Kernels {
		total += b.Kernels[i].Fee
	}
	return total
}

// CalculateWeight computes the body's consensus weight from per-item
// weights. Weight limits bound verification cost, which scales with
// item counts rather than raw byte size.
func (b *Body) CalculateWeight(inputWeight, outputWeight, kernelWeight uint64) uint64 {
	return uint64(len(b.Inputs))*inputWeight +
		uint64(len(b.Outputs))*outputWeight +
		uint64(len(b.Kernels))*kernelWeight
}

// CountsString returns a compact diagnostic summary of the body.
func (b *Body) CountsString() string {
	return fmt.Sprintf("%d inputs, %d outputs, %d kernels", len(b.Inputs), len(b.Outputs), len(b.Kernels))
}
