package validation

import (
	"testing"

	"github.com/Cinder-Labs/cinder-chain/config"
	"github.com/Cinder-Labs/cinder-chain/pkg/block"
	"github.com/Cinder-Labs/cinder-chain/pkg/crypto"
	"github.com/Cinder-Labs/cinder-chain/pkg/tx"
	secp256k1 "github.com/decred/dcrd/dcrec/secp256k1/v4"
)

// Test rule set with small, easily violated limits.
const (
	testMaxBlockWeight     = 10_000
	testCoinbaseLockHeight = 10
	testVNRegMinStake      = 500
)

func testRules(t *testing.T) *config.ConsensusManager {
	t.Helper()
	m, err := config.NewConsensusManager(config.Testnet, []config.ConsensusConstants{{
		EffectiveFrom:            0,
		MinBlockVersion:          1,
		MaxBlockVersion:          1,
		MinOutputFeaturesVersion: 1,
		MaxOutputFeaturesVersion: 1,
		MinKernelVersion:         1,
		MaxKernelVersion:         1,
		MaxBlockWeight:           testMaxBlockWeight,
		InputWeight:              1,
		OutputWeight:             2,
		KernelWeight:             3,
		PermittedOutputTypes: []tx.OutputType{
			tx.OutputTypeStandard,
			tx.OutputTypeCoinbase,
			tx.OutputTypeBurn,
			tx.OutputTypeValidatorNodeRegistration,
		},
		CoinbaseLockHeight:                testCoinbaseLockHeight,
		ValidatorNodeRegistrationEnabled:  true,
		ValidatorNodeRegistrationMinStake: testVNRegMinStake,
	}})
	if err != nil {
		t.Fatalf("test rules: %v", err)
	}
	return m
}

var testFactories = crypto.NewFactories()

// newBlind returns a fresh random blinding key.
func newBlind(t *testing.T) *crypto.PrivateKey {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("generate blind: %v", err)
	}
	return key
}

// scalarSub returns a - b.
func scalarSub(a, b *secp256k1.ModNScalar) *secp256k1.ModNScalar {
	neg := *b
	neg.Negate()
	out := *a
	out.Add(&neg)
	return &out
}

// commitmentFromKey returns key*G as a commitment, i.e. Commit(0, key).
func commitmentFromKey(key *crypto.PrivateKey) crypto.Commitment {
	var c crypto.Commitment
	copy(c[:], key.PublicKey())
	return c
}

// makeOutput builds an output with a real range proof.
func makeOutput(t *testing.T, typ tx.OutputType, value uint64, blind *crypto.PrivateKey, maturity, promise uint64) tx.Output {
	t.Helper()
	proof, err := testFactories.RangeProof.Prove(value, blind.Scalar(), promise)
	if err != nil {
		t.Fatalf("range proof: %v", err)
	}
	return tx.Output{
		Features: tx.OutputFeatures{
			Version:  1,
			Type:     typ,
			Maturity: maturity,
		},
		Commitment:          testFactories.Commitment.Commit(value, blind.Scalar()),
		RangeProof:          proof,
		MinimumValuePromise: promise,
	}
}

// signKernel fills in the kernel's excess signature using key, whose
// public point must equal the kernel excess.
func signKernel(t *testing.T, k *tx.Kernel, key *crypto.PrivateKey) {
	t.Helper()
	hash := k.SignatureHash()
	sig, err := key.Sign(hash[:])
	if err != nil {
		t.Fatalf("sign kernel: %v", err)
	}
	k.ExcessSig = sig
}

// blockOpts selects optional transactions for buildBlock.
type blockOpts struct {
	withBurn  bool
	withVNReg bool
}

// buildBlock constructs a fully valid candidate block at the given
// height: a coinbase committing to reward plus fees, one plain
// transaction, and optionally a burn and a validator registration
// transaction. All commitments balance and all proofs verify.
func buildBlock(t *testing.T, rules *config.ConsensusManager, height uint64, opts blockOpts) *block.Block {
	t.Helper()

	var body block.Body
	var totalFees uint64

	// Plain transaction: spend 1000, return 975, fee 25.
	{
		const fee = 25
		inBlind, outBlind := newBlind(t), newBlind(t)
		body.Inputs = append(body.Inputs, tx.Input{
			Features:   tx.OutputFeatures{Version: 1, Type: tx.OutputTypeStandard},
			Commitment: testFactories.Commitment.Commit(1000, inBlind.Scalar()),
		})
		body.Outputs = append(body.Outputs, makeOutput(t, tx.OutputTypeStandard, 1000-fee, outBlind, 0, 0))

		excessKey := crypto.PrivateKeyFromScalar(scalarSub(outBlind.Scalar(), inBlind.Scalar()))
		kernel := tx.Kernel{
			Version: 1,
			Type:    tx.KernelTypePlain,
			Fee:     fee,
			Excess:  commitmentFromKey(excessKey),
		}
		signKernel(t, &kernel, excessKey)
		body.Kernels = append(body.Kernels, kernel)
		totalFees += fee
	}

	if opts.withVNReg {
		// Registration transaction: spend 2000, stake 600 (promise 500),
		// change 1370, fee 30.
		const fee = 30
		inBlind, stakeBlind, changeBlind := newBlind(t), newBlind(t), newBlind(t)
		body.Inputs = append(body.Inputs, tx.Input{
			Features:   tx.OutputFeatures{Version: 1, Type: tx.OutputTypeStandard},
			Commitment: testFactories.Commitment.Commit(2000, inBlind.Scalar()),
		})

		stake := makeOutput(t, tx.OutputTypeValidatorNodeRegistration, 600, stakeBlind, 0, testVNRegMinStake)
		validatorKey := newBlind(t)
		reg := &tx.ValidatorNodeRegistration{PublicKey: validatorKey.PublicKey()}
		challenge := reg.Challenge(stake.Commitment)
		sig, err := validatorKey.Sign(challenge[:])
		if err != nil {
			t.Fatalf("sign registration: %v", err)
		}
		reg.Signature = sig
		stake.Features.ValidatorNodeRegistration = reg
		body.Outputs = append(body.Outputs, stake)
		body.Outputs = append(body.Outputs, makeOutput(t, tx.OutputTypeStandard, 2000-600-fee, changeBlind, 0, 0))

		sum := *stakeBlind.Scalar()
		sum.Add(changeBlind.Scalar())
		excessKey := crypto.PrivateKeyFromScalar(scalarSub(&sum, inBlind.Scalar()))
		kernel := tx.Kernel{
			Version: 1,
			Type:    tx.KernelTypePlain,
			Fee:     fee,
			Excess:  commitmentFromKey(excessKey),
		}
		signKernel(t, &kernel, excessKey)
		body.Kernels = append(body.Kernels, kernel)
		totalFees += fee
	}

	if opts.withBurn {
		// Burn transaction: spend 500, burn 480, fee 20.
		const fee = 20
		inBlind, burnBlind := newBlind(t), newBlind(t)
		body.Inputs = append(body.Inputs, tx.Input{
			Features:   tx.OutputFeatures{Version: 1, Type: tx.OutputTypeStandard},
			Commitment: testFactories.Commitment.Commit(500, inBlind.Scalar()),
		})
		burnOut := makeOutput(t, tx.OutputTypeBurn, 500-fee, burnBlind, 0, 0)
		body.Outputs = append(body.Outputs, burnOut)

		excessKey := crypto.PrivateKeyFromScalar(scalarSub(burnBlind.Scalar(), inBlind.Scalar()))
		burnCommit := burnOut.Commitment
		kernel := tx.Kernel{
			Version:        1,
			Type:           tx.KernelTypeBurn,
			Fee:            fee,
			Excess:         commitmentFromKey(excessKey),
			BurnCommitment: &burnCommit,
		}
		signKernel(t, &kernel, excessKey)
		body.Kernels = append(body.Kernels, kernel)
		totalFees += fee
	}

	// Coinbase: commits to reward plus all fees, matures after the
	// epoch's lock window.
	{
		cbBlind := newBlind(t)
		amount := rules.BlockReward(height) + totalFees
		constants := rules.ConstantsFor(height)
		body.Outputs = append(body.Outputs,
			makeOutput(t, tx.OutputTypeCoinbase, amount, cbBlind, height+constants.CoinbaseLockHeight, 0))

		kernel := tx.Kernel{
			Version: 1,
			Type:    tx.KernelTypeCoinbase,
			Excess:  commitmentFromKey(cbBlind),
		}
		signKernel(t, &kernel, cbBlind)
		body.Kernels = append(body.Kernels, kernel)
	}

	body.Sort()

	header := &block.Header{
		Version:    1,
		Height:     height,
		Timestamp:  1700000000 + height,
		OutputRoot: block.ComputeMerkleRoot(body.OutputHashes()),
		KernelRoot: block.ComputeMerkleRoot(body.KernelHashes()),
		InputRoot:  block.ComputeMerkleRoot(body.InputHashes()),
	}
	return block.NewBlock(header, body)
}

// validBlock is the common case: height 50, plain transaction only.
func validBlock(t *testing.T, rules *config.ConsensusManager) *block.Block {
	t.Helper()
	return buildBlock(t, rules, 50, blockOpts{})
}
