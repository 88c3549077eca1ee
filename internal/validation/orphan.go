package validation

import (
	"github.com/Cinder-Labs/cinder-chain/config"
	"github.com/Cinder-Labs/cinder-chain/internal/log"
	"github.com/Cinder-Labs/cinder-chain/pkg/block"
	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
)

// OrphanBlockValidator tests whether a candidate block is internally
// consistent: every check that can run from the block's own contents
// plus height-indexed consensus constants, with no parent lookup and no
// UTXO-set access. It is the gate a block passes before any attempt to
// place it in the chain.
//
// The validator holds no mutable state and may be shared across
// goroutines.
type OrphanBlockValidator struct {
	rules                        *config.ConsensusManager
	bypassRangeProofVerification bool
	factories                    *crypto.Factories
}

// NewOrphanBlockValidator creates an orphan block validator.
// bypassRangeProofVerification skips only the cryptographic range proof
// check; the balance equation is always enforced. Trusted/test contexts
// only.
func NewOrphanBlockValidator(rules *config.ConsensusManager, bypassRangeProofVerification bool, factories *crypto.Factories) *OrphanBlockValidator {
	return &OrphanBlockValidator{
		rules:                        rules,
		bypassRangeProofVerification: bypassRangeProofVerification,
		factories:                    factories,
	}
}

// Validate runs the stateless consensus checks in order, cheapest
// first, returning the first failure. The order is part of the
// observable contract: a block violating several rules always reports
// the earliest one.
func (v *OrphanBlockValidator) Validate(blk *block.Block) error {
	height := blk.Header.Height

	if height == 0 {
		log.Validation.Warn().Msg("attempt to validate genesis block")
		return ErrValidatingGenesis
	}

	constants := v.rules.ConstantsFor(height)

	if err := validateVersions(blk, constants); err != nil {
		return err
	}
	if err := checkBlockWeight(blk, constants); err != nil {
		return err
	}
	if err := checkSortingAndDuplicates(&blk.Body); err != nil {
		return err
	}

	for i := range blk.Body.Outputs {
		out := &blk.Body.Outputs[i]
		if err := checkPermittedOutputTypes(constants, out); err != nil {
			return err
		}
		if err := checkValidatorNodeRegistrationUTXO(constants, out); err != nil {
			return err
		}
	}

	if err := checkTotalBurned(&blk.Body); err != nil {
		return err
	}

	// Spend timing rules for the components being consumed.
	if err := checkMaturity(height, blk.Body.Inputs); err != nil {
		return err
	}
	if err := checkKernelLockHeight(height, blk.Body.Kernels); err != nil {
		return err
	}
	if err := checkOutputFeatures(blk, v.rules); err != nil {
		return err
	}
	if err := checkCoinbaseOutput(blk, v.rules, v.factories); err != nil {
		return err
	}
	if err := checkAccountingBalance(blk, v.rules, v.bypassRangeProofVerification, v.factories); err != nil {
		return err
	}

	log.Validation.Debug().
		Uint64("height", height).
		Str("hash", blk.Hash().String()).
		Str("body", blk.Body.CountsString()).
		Msg("block passed stateless validation")

	return nil
}
