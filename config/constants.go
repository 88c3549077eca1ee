package config

import (
	"fmt"

	"github.com/Cinder-Labs/cinder-chain/pkg/tx"
)

// =============================================================================
// Protocol Rules (immutable, consensus-critical)
// These MUST match across all nodes or consensus breaks.
// =============================================================================

// Denomination constants.
// 1 coin = 10^12 base units. All on-chain values are in base units.
const (
	Decimals  = 12
	Coin      = 1_000_000_000_000 // 10^12 base units per coin
	MilliCoin = 1_000_000_000     // 10^9
	MicroCoin = 1_000_000         // 10^6
)

// Emission schedule constants.
const (
	// InitialBlockReward is the reward for block 1.
	InitialBlockReward uint64 = 50 * Coin
	// RewardHalvingInterval is the number of blocks between reward halvings.
	RewardHalvingInterval uint64 = 2_100_000
)

// ConsensusConstants is the immutable snapshot of rule parameters for
// one height epoch. Every height maps to exactly one snapshot.
type ConsensusConstants struct {
	// EffectiveFrom is the first height governed by this snapshot.
	EffectiveFrom uint64

	// Permitted schema versions.
	MinBlockVersion          uint16
	MaxBlockVersion          uint16
	MinOutputFeaturesVersion uint8
	MaxOutputFeaturesVersion uint8
	MinKernelVersion         uint8
	MaxKernelVersion         uint8

	// Weight limits. Weight bounds verification cost, so it counts
	// items rather than raw bytes.
	MaxBlockWeight uint64
	InputWeight    uint64
	OutputWeight   uint64
	KernelWeight   uint64

	// PermittedOutputTypes is the epoch's output type allow-list.
	PermittedOutputTypes []tx.OutputType

	// CoinbaseLockHeight is the number of blocks a coinbase output must
	// wait beyond its block height before it can be spent.
	CoinbaseLockHeight uint64

	// Validator node registration rules.
	ValidatorNodeRegistrationEnabled  bool
	ValidatorNodeRegistrationMinStake uint64 // Minimum value promise on a registration output.
}

// OutputTypePermitted returns true if the epoch allows the given output
// type.
func (c *ConsensusConstants) OutputTypePermitted(t tx.OutputType) bool {
	for _, p := range c.PermittedOutputTypes {
		if p == t {
			return true
		}
	}
	return false
}

// ConsensusManager resolves consensus constants and the reward schedule
// by height. It is read-only after construction and safe for concurrent
// use; the validator receives it at construction rather than reading
// ambient state.
type ConsensusManager struct {
	network NetworkType
	epochs  []ConsensusConstants
}

// NewConsensusManager creates a manager from an epoch list. The list
// must be non-empty, start at height 0, and be strictly ascending in
// EffectiveFrom.
func NewConsensusManager(network NetworkType, epochs []ConsensusConstants) (*ConsensusManager, error) {
	if len(epochs) == 0 {
		return nil, fmt.Errorf("consensus manager needs at least one epoch")
	}
	if epochs[0].EffectiveFrom != 0 {
		return nil, fmt.Errorf("first epoch must be effective from height 0, got %d", epochs[0].EffectiveFrom)
	}
	for i := 1; i < len(epochs); i++ {
		if epochs[i].EffectiveFrom <= epochs[i-1].EffectiveFrom {
			return nil, fmt.Errorf("epochs must be strictly ascending: epoch %d starts at %d, previous at %d",
				i, epochs[i].EffectiveFrom, epochs[i-1].EffectiveFrom)
		}
	}
	return &ConsensusManager{network: network, epochs: epochs}, nil
}

// Network returns the network the manager was built for.
func (m *ConsensusManager) Network() NetworkType {
	return m.network
}

// ConstantsFor returns the constants governing the epoch containing
// height. Valid for any height; never fails.
func (m *ConsensusManager) ConstantsFor(height uint64) *ConsensusConstants {
	// Epochs are few; scan from the newest.
	for i := len(m.epochs) - 1; i >= 0; i-- {
		if m.epochs[i].EffectiveFrom <= height {
			return &m.epochs[i]
		}
	}
	return &m.epochs[0]
}

// BlockReward returns the coinbase reward for the given height under
// the halving schedule. Genesis mints no reward.
func (m *ConsensusManager) BlockReward(height uint64) uint64 {
	if height == 0 {
		return 0
	}
	halvings := (height - 1) / RewardHalvingInterval
	if halvings >= 64 {
		return 0
	}
	return InitialBlockReward >> halvings
}

// defaultEpoch returns the launch-epoch constants shared by all
// networks.
func defaultEpoch() ConsensusConstants {
	return ConsensusConstants{
		EffectiveFrom:            0,
		MinBlockVersion:          1,
		MaxBlockVersion:          1,
		MinOutputFeaturesVersion: 1,
		MaxOutputFeaturesVersion: 1,
		MinKernelVersion:         1,
		MaxKernelVersion:         1,
		MaxBlockWeight:           127_795, // ~2 MB equivalent at current item weights.
		InputWeight:              8,
		OutputWeight:             53,
		KernelWeight:             10,
		PermittedOutputTypes: []tx.OutputType{
			tx.OutputTypeStandard,
			tx.OutputTypeCoinbase,
			tx.OutputTypeBurn,
			tx.OutputTypeValidatorNodeRegistration,
		},
		CoinbaseLockHeight:                360,
		ValidatorNodeRegistrationEnabled:  true,
		ValidatorNodeRegistrationMinStake: 10_000 * Coin,
	}
}

// DefaultConsensusManager returns the consensus rules for the given
// network.
func DefaultConsensusManager(network NetworkType) *ConsensusManager {
	epoch := defaultEpoch()
	if network == Testnet {
		epoch.CoinbaseLockHeight = 6
		epoch.ValidatorNodeRegistrationMinStake = 100 * Coin
	}
	m, err := NewConsensusManager(network, []ConsensusConstants{epoch})
	if err != nil {
		// Static epoch list; cannot fail.
		panic(err)
	}
	return m
}
