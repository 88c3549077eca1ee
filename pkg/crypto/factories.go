package crypto

// Factories bundles the commitment and range proof services consumed by
// block validation. Both are stateless after construction and safe for
// concurrent use.
type Factories struct {
	Commitment *CommitmentFactory
	RangeProof *RangeProofFactory
}

// NewFactories creates the default factory bundle with shared Pedersen
// generators.
func NewFactories() *Factories {
	commit := NewCommitmentFactory()
	return &Factories{
		Commitment: commit,
		RangeProof: NewRangeProofFactory(commit),
	}
}
