// Package block defines block types for the Cinder chain.
package block

import "github.com/Cinder-Labs/cinder-chain/pkg/types"

// Block represents a block in the chain.
type Block struct {
	Header *Header `json:"header"`
	Body   Body    `json:"body"`
}

// NewBlock creates a new block with the given header and body.
func NewBlock(header *Header, body Body) *Block {
	return &Block{
		Header: header,
		Body:   body,
	}
}

// Hash returns the block header hash.
func (b *Block) Hash() types.Hash {
	if b.Header == nil {
		return types.Hash{}
	}
	return b.Header.Hash()
}
