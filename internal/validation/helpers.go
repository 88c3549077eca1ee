package validation

import (
	"bytes"
	"fmt"

	"github.com/Cinder-Labs/cinder-chain/config"
	"github.com/Cinder-Labs/cinder-chain/pkg/block"
	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/tx"
	"github.com/Cinder-Labs/cinder-chain/pkg/types"
)

// validateVersions checks that the header and every versioned body item
// use a schema version permitted by the epoch's constants.
func validateVersions(blk *block.Block, constants *config.ConsensusConstants) error {
	v := blk.Header.Version
	if v < constants.MinBlockVersion || v > constants.MaxBlockVersion {
		return fmt.Errorf("%w: block version %d, permitted %d..%d",
			ErrUnsupportedVersion, v, constants.MinBlockVersion, constants.MaxBlockVersion)
	}
	for i := range blk.Body.Outputs {
		ov := blk.Body.Outputs[i].Features.Version
		if ov < constants.MinOutputFeaturesVersion || ov > constants.MaxOutputFeaturesVersion {
			return fmt.Errorf("%w: output %d features version %d, permitted %d..%d",
				ErrUnsupportedVersion, i, ov, constants.MinOutputFeaturesVersion, constants.MaxOutputFeaturesVersion)
		}
	}
	for i := range blk.Body.Inputs {
		iv := blk.Body.Inputs[i].Features.Version
		if iv < constants.MinOutputFeaturesVersion || iv > constants.MaxOutputFeaturesVersion {
			return fmt.Errorf("%w: input %d features version %d, permitted %d..%d",
				ErrUnsupportedVersion, i, iv, constants.MinOutputFeaturesVersion, constants.MaxOutputFeaturesVersion)
		}
	}
	for i := range blk.Body.Kernels {
		kv := blk.Body.Kernels[i].Version
		if kv < constants.MinKernelVersion || kv > constants.MaxKernelVersion {
			return fmt.Errorf("%w: kernel %d version %d, permitted %d..%d",
				ErrUnsupportedVersion, i, kv, constants.MinKernelVersion, constants.MaxKernelVersion)
		}
	}
	return nil
}

// checkBlockWeight checks the body's computed weight against the
// epoch's maximum.
func checkBlockWeight(blk *block.Block, constants *config.ConsensusConstants) error {
	weight := blk.Body.CalculateWeight(constants.InputWeight, constants.OutputWeight, constants.KernelWeight)
	if weight > constants.MaxBlockWeight {
		return fmt.Errorf("%w: weight %d, max %d", ErrBlockWeightExceeded, weight, constants.MaxBlockWeight)
	}
	return nil
}

// checkSortingAndDuplicates checks that inputs, outputs, and kernels
// are each strictly ascending by canonical hash. Strict ordering makes
// duplicates impossible, so one pass covers both rules.
func checkSortingAndDuplicates(body *block.Body) error {
	if err := checkSorted("inputs", body.InputHashes()); err != nil {
		return err
	}
	if err := checkSorted("outputs", body.OutputHashes()); err != nil {
		return err
	}
	return checkSorted("kernels", body.KernelHashes())
}

func checkSorted(collection string, hashes []types.Hash) error {
	for i := 1; i < len(hashes); i++ {
		if bytes.Compare(hashes[i-1][:], hashes[i][:]) >= 0 {
			return fmt.Errorf("%w: %s at index %d", ErrUnsortedOrDuplicate, collection, i)
		}
	}
	return nil
}

// checkPermittedOutputTypes checks the output's type against the
// epoch's allow-list.
func checkPermittedOutputTypes(constants *config.ConsensusConstants, output *tx.Output) error {
	if !constants.OutputTypePermitted(output.Features.Type) {
		return fmt.Errorf("%w: %s", ErrOutputTypeNotPermitted, output.Features.Type)
	}
	return nil
}

// checkValidatorNodeRegistrationUTXO checks a registration payload, if
// present: registrations must be enabled for the epoch, carried on a
// registration-typed output, stake at least the epoch minimum via the
// output's minimum value promise, and prove possession of the validator
// key bound to the staked commitment.
func checkValidatorNodeRegistrationUTXO(constants *config.ConsensusConstants, output *tx.Output) error {
	reg := output.Features.ValidatorNodeRegistration
	if reg == nil {
		return nil
	}
	if !constants.ValidatorNodeRegistrationEnabled {
		return fmt.Errorf("%w: registrations disabled in this epoch", ErrInvalidValidatorNodeRegistration)
	}
	if output.Features.Type != tx.OutputTypeValidatorNodeRegistration {
		return fmt.Errorf("%w: registration payload on %s output", ErrInvalidValidatorNodeRegistration, output.Features.Type)
	}
	if output.MinimumValuePromise < constants.ValidatorNodeRegistrationMinStake {
		return fmt.Errorf("%w: promised stake %d below minimum %d",
			ErrInvalidValidatorNodeRegistration, output.MinimumValuePromise, constants.ValidatorNodeRegistrationMinStake)
	}
	if !reg.IsValid(output.Commitment) {
		return fmt.Errorf("%w: registration signature invalid", ErrInvalidValidatorNodeRegistration)
	}
	return nil
}

// checkTotalBurned checks that burn kernels and burn outputs agree:
// every burn kernel must name the commitment of exactly one burn
// output, and no burn output may go unclaimed.
func checkTotalBurned(body *block.Body) error {
	burned := make(map[crypto.Commitment]int)
	for i := range body.Outputs {
		if body.Outputs[i].IsBurn() {
			burned[body.Outputs[i].Commitment]++
		}
	}
	for i := range body.Kernels {
		k := &body.Kernels[i]
		if !k.IsBurn() {
			continue
		}
		if k.BurnCommitment == nil {
			return fmt.Errorf("%w: burn kernel %d has no burn commitment", ErrBurnAccountingMismatch, i)
		}
		if burned[*k.BurnCommitment] == 0 {
			return fmt.Errorf("%w: burn kernel %d names commitment %s with no matching burn output",
				ErrBurnAccountingMismatch, i, k.BurnCommitment)
		}
		burned[*k.BurnCommitment]--
	}
	for c, n := range burned {
		if n != 0 {
			return fmt.Errorf("%w: burn output %s has no matching burn kernel", ErrBurnAccountingMismatch, c)
		}
	}
	return nil
}

// checkMaturity checks that every spent output has reached its maturity
// height at the candidate height.
func checkMaturity(height uint64, inputs []tx.Input) error {
	for i := range inputs {
		if inputs[i].Features.Maturity > height {
			return fmt.Errorf("%w: input %d matures at height %d, block height %d",
				ErrImmatureInput, i, inputs[i].Features.Maturity, height)
		}
	}
	return nil
}

// checkKernelLockHeight checks that every kernel's lock height has been
// reached at the candidate height.
func checkKernelLockHeight(height uint64, kernels []tx.Kernel) error {
	for i := range kernels {
		if kernels[i].LockHeight > height {
			return fmt.Errorf("%w: kernel %d locked until height %d, block height %d",
				ErrKernelLockHeight, i, kernels[i].LockHeight, height)
		}
	}
	return nil
}

// checkOutputFeatures checks feature consistency against the protocol
// rule set: coinbase outputs must mature exactly CoinbaseLockHeight
// blocks after their block, and registration payloads may only appear
// on registration-typed outputs.
func checkOutputFeatures(blk *block.Block, rules *config.ConsensusManager) error {
	height := blk.Header.Height
	constants := rules.ConstantsFor(height)
	for i := range blk.Body.Outputs {
		out := &blk.Body.Outputs[i]
		if out.IsCoinbase() {
			want := height + constants.CoinbaseLockHeight
			if out.Features.Maturity != want {
				return fmt.Errorf("%w: coinbase output %d maturity %d, want %d",
					ErrBadOutputFeatures, i, out.Features.Maturity, want)
			}
		}
		if out.Features.Type == tx.OutputTypeValidatorNodeRegistration && out.Features.ValidatorNodeRegistration == nil {
			return fmt.Errorf("%w: output %d typed as registration without a payload", ErrBadOutputFeatures, i)
		}
		if out.Features.Type != tx.OutputTypeValidatorNodeRegistration && out.Features.ValidatorNodeRegistration != nil {
			return fmt.Errorf("%w: output %d carries a registration payload on a %s output",
				ErrBadOutputFeatures, i, out.Features.Type)
		}
	}
	return nil
}

// checkCoinbaseOutput checks that the block carries exactly one
// coinbase output and one coinbase kernel, and that the coinbase
// commits to exactly the block reward plus total fees: the kernel
// excess must equal the coinbase commitment minus the public amount,
// and its signature proves the excess is a pure blinding point.
func checkCoinbaseOutput(blk *block.Block, rules *config.ConsensusManager, factories *crypto.Factories) error {
	var coinbaseOut *tx.Output
	for i := range blk.Body.Outputs {
		if !blk.Body.Outputs[i].IsCoinbase() {
			continue
		}
		if coinbaseOut != nil {
			return fmt.Errorf("%w: more than one coinbase output", ErrBadCoinbase)
		}
		coinbaseOut = &blk.Body.Outputs[i]
	}
	if coinbaseOut == nil {
		return fmt.Errorf("%w: no coinbase output", ErrBadCoinbase)
	}

	var coinbaseKernel *tx.Kernel
	for i := range blk.Body.Kernels {
		if !blk.Body.Kernels[i].IsCoinbase() {
			continue
		}
		if coinbaseKernel != nil {
			return fmt.Errorf("%w: more than one coinbase kernel", ErrBadCoinbase)
		}
		coinbaseKernel = &blk.Body.Kernels[i]
	}
	if coinbaseKernel == nil {
		return fmt.Errorf("%w: no coinbase kernel", ErrBadCoinbase)
	}
	if coinbaseKernel.Fee != 0 {
		return fmt.Errorf("%w: coinbase kernel carries fee %d", ErrBadCoinbase, coinbaseKernel.Fee)
	}

	// The coinbase must commit to exactly reward + fees. Subtracting the
	// public amount from the commitment must leave the kernel excess, a
	// pure blinding point, which the excess signature proves.
	amount := rules.BlockReward(blk.Header.Height) + blk.Body.TotalFees()
	excess, err := factories.Commitment.Sum(
		[]crypto.Commitment{coinbaseOut.Commitment},
		[]crypto.Commitment{factories.Commitment.CommitValue(amount)},
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadCoinbase, err)
	}
	if excess != coinbaseKernel.Excess {
		return fmt.Errorf("%w: coinbase does not commit to reward %d plus fees", ErrBadCoinbase, amount)
	}
	if !coinbaseKernel.VerifyExcessSignature() {
		return fmt.Errorf("%w: coinbase kernel excess signature invalid", ErrBadCoinbase)
	}
	return nil
}

// checkAccountingBalance checks the block's value balance equation:
//
//	sum(outputs) == sum(inputs) + sum(kernel excess) + reward*H
//
// with every kernel signature proving its excess carries no hidden
// value. Unless bypassRangeProof is set, every output's range proof
// must also verify, proving the hidden value meets the output's
// minimum value promise without overflowing.
func checkAccountingBalance(blk *block.Block, rules *config.ConsensusManager, bypassRangeProof bool, factories *crypto.Factories) error {
	body := &blk.Body

	for i := range body.Kernels {
		if !body.Kernels[i].VerifyExcessSignature() {
			return fmt.Errorf("%w: kernel %d excess signature invalid", ErrAccountingBalance, i)
		}
	}

	outputs := make([]crypto.Commitment, len(body.Outputs))
	for i := range body.Outputs {
		outputs[i] = body.Outputs[i].Commitment
	}
	rhs := make([]crypto.Commitment, 0, len(body.Inputs)+len(body.Kernels)+1)
	for i := range body.Inputs {
		rhs = append(rhs, body.Inputs[i].Commitment)
	}
	for i := range body.Kernels {
		rhs = append(rhs, body.Kernels[i].Excess)
	}
	if reward := rules.BlockReward(blk.Header.Height); reward > 0 {
		rhs = append(rhs, factories.Commitment.CommitValue(reward))
	}

	diff, err := factories.Commitment.Sum(outputs, rhs)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrAccountingBalance, err)
	}
	if !diff.IsZero() {
		return fmt.Errorf("%w: balance equation does not close", ErrAccountingBalance)
	}

	if bypassRangeProof {
		return nil
	}
	for i := range body.Outputs {
		out := &body.Outputs[i]
		if err := factories.RangeProof.Verify(out.RangeProof, out.Commitment, out.MinimumValuePromise); err != nil {
			return fmt.Errorf("%w: output %d: %v", ErrAccountingBalance, i, err)
		}
	}
	return nil
}
