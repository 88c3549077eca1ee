package validation

import (
	"errors"
	"testing"

	"github.com/Cinder-Labs/cinder-chain/config"
	"github.com/Cinder-Labs/cinder-chain/pkg/block"
	"github.com/Cinder-Labs/cinder-chain/pkg/tx"
)

func newValidator(t *testing.T, bypass bool) (*OrphanBlockValidator, *config.ConsensusManager) {
	t.Helper()
	rules := testRules(t)
	return NewOrphanBlockValidator(rules, bypass, testFactories), rules
}

// findOutput returns the index of the first output matching pred.
func findOutput(t *testing.T, body *block.Body, pred func(*tx.Output) bool) int {
	t.Helper()
	for i := range body.Outputs {
		if pred(&body.Outputs[i]) {
			return i
		}
	}
	t.Fatal("no matching output in fixture")
	return -1
}

// findKernel returns the index of the first kernel matching pred.
func findKernel(t *testing.T, body *block.Body, pred func(*tx.Kernel) bool) int {
	t.Helper()
	for i := range body.Kernels {
		if pred(&body.Kernels[i]) {
			return i
		}
	}
	t.Fatal("no matching kernel in fixture")
	return -1
}

func TestValidate_ValidBlock(t *testing.T) {
	v, rules := newValidator(t, false)
	if err := v.Validate(validBlock(t, rules)); err != nil {
		t.Fatalf("valid block rejected: %v", err)
	}
}

func TestValidate_ValidBlockWithBurn(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := buildBlock(t, rules, 50, blockOpts{withBurn: true})
	if err := v.Validate(blk); err != nil {
		t.Fatalf("valid burn block rejected: %v", err)
	}
}

func TestValidate_ValidBlockWithRegistration(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := buildBlock(t, rules, 50, blockOpts{withVNReg: true})
	if err := v.Validate(blk); err != nil {
		t.Fatalf("valid registration block rejected: %v", err)
	}
}

func TestValidate_GenesisRejected(t *testing.T) {
	v, _ := newValidator(t, false)

	// Any height-zero block is refused before a single check runs, even
	// one that is empty or otherwise malformed.
	blk := block.NewBlock(&block.Header{Version: 99, Height: 0}, block.Body{})
	if err := v.Validate(blk); !errors.Is(err, ErrValidatingGenesis) {
		t.Fatalf("got %v, want ErrValidatingGenesis", err)
	}
}

func TestValidate_Deterministic(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)

	for i := 0; i < 3; i++ {
		if err := v.Validate(blk); err != nil {
			t.Fatalf("pass %d: %v", i, err)
		}
	}

	// A broken block reports the same sentinel every time.
	blk.Body.Inputs = blk.Body.Inputs[:0]
	for i := 0; i < 3; i++ {
		if err := v.Validate(blk); !errors.Is(err, ErrAccountingBalance) {
			t.Fatalf("pass %d: got %v, want ErrAccountingBalance", i, err)
		}
	}
}

func TestValidate_UnsupportedHeaderVersion(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	blk.Header.Version = 2
	if err := v.Validate(blk); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("got %v, want ErrUnsupportedVersion", err)
	}
}

func TestValidate_WeightReportedBeforeBalance(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)

	// Pad with value-only outputs until the weight limit is exceeded.
	// The padding also wrecks sorting, burn accounting, and the balance
	// equation, but the weight check runs first and must win.
	for i := uint64(0); i < testMaxBlockWeight; i++ {
		blk.Body.Outputs = append(blk.Body.Outputs, tx.Output{
			Features:   tx.OutputFeatures{Version: 1, Type: tx.OutputTypeStandard},
			Commitment: testFactories.Commitment.CommitValue(i + 1),
		})
	}
	if err := v.Validate(blk); !errors.Is(err, ErrBlockWeightExceeded) {
		t.Fatalf("got %v, want ErrBlockWeightExceeded", err)
	}
}

func TestValidate_UnsortedOutputs(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	if len(blk.Body.Outputs) < 2 {
		t.Fatal("fixture needs at least two outputs")
	}
	blk.Body.Outputs[0], blk.Body.Outputs[1] = blk.Body.Outputs[1], blk.Body.Outputs[0]
	if err := v.Validate(blk); !errors.Is(err, ErrUnsortedOrDuplicate) {
		t.Fatalf("got %v, want ErrUnsortedOrDuplicate", err)
	}
}

func TestValidate_DuplicateKernel(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	blk.Body.Kernels = append(blk.Body.Kernels, blk.Body.Kernels[len(blk.Body.Kernels)-1])
	if err := v.Validate(blk); !errors.Is(err, ErrUnsortedOrDuplicate) {
		t.Fatalf("got %v, want ErrUnsortedOrDuplicate", err)
	}
}

func TestValidate_ImmatureInput(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	blk.Body.Inputs[0].Features.Maturity = blk.Header.Height + 1
	blk.Body.Sort()
	if err := v.Validate(blk); !errors.Is(err, ErrImmatureInput) {
		t.Fatalf("got %v, want ErrImmatureInput", err)
	}
}

func TestValidate_KernelLockHeight(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	i := findKernel(t, &blk.Body, func(k *tx.Kernel) bool { return k.Type == tx.KernelTypePlain })
	blk.Body.Kernels[i].LockHeight = blk.Header.Height + 1
	blk.Body.Sort()
	// The mutated kernel's signature no longer verifies either, but the
	// lock height check runs before the balance check and must win.
	if err := v.Validate(blk); !errors.Is(err, ErrKernelLockHeight) {
		t.Fatalf("got %v, want ErrKernelLockHeight", err)
	}
}

func TestValidate_CoinbaseMaturityDrift(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	i := findOutput(t, &blk.Body, (*tx.Output).IsCoinbase)
	blk.Body.Outputs[i].Features.Maturity++
	blk.Body.Sort()
	if err := v.Validate(blk); !errors.Is(err, ErrBadOutputFeatures) {
		t.Fatalf("got %v, want ErrBadOutputFeatures", err)
	}
}

func TestValidate_MissingCoinbase(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	i := findOutput(t, &blk.Body, (*tx.Output).IsCoinbase)
	blk.Body.Outputs[i].Features.Type = tx.OutputTypeStandard
	blk.Body.Sort()
	if err := v.Validate(blk); !errors.Is(err, ErrBadCoinbase) {
		t.Fatalf("got %v, want ErrBadCoinbase", err)
	}
}

func TestValidate_CoinbaseKernelFee(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	i := findKernel(t, &blk.Body, (*tx.Kernel).IsCoinbase)
	blk.Body.Kernels[i].Fee = 5
	blk.Body.Sort()
	if err := v.Validate(blk); !errors.Is(err, ErrBadCoinbase) {
		t.Fatalf("got %v, want ErrBadCoinbase", err)
	}
}

func TestValidate_CoinbaseExcessMismatch(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	i := findKernel(t, &blk.Body, (*tx.Kernel).IsCoinbase)
	blk.Body.Kernels[i].Excess = commitmentFromKey(newBlind(t))
	blk.Body.Sort()
	if err := v.Validate(blk); !errors.Is(err, ErrBadCoinbase) {
		t.Fatalf("got %v, want ErrBadCoinbase", err)
	}
}

func TestValidate_BalanceDoesNotClose(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	blk.Body.Inputs = blk.Body.Inputs[:0]
	if err := v.Validate(blk); !errors.Is(err, ErrAccountingBalance) {
		t.Fatalf("got %v, want ErrAccountingBalance", err)
	}
}

func TestValidate_TamperedKernelSignature(t *testing.T) {
	v, rules := newValidator(t, false)
	blk := validBlock(t, rules)
	i := findKernel(t, &blk.Body, func(k *tx.Kernel) bool { return k.Type == tx.KernelTypePlain })
	blk.Body.Kernels[i].ExcessSig[3] ^= 0x40
	blk.Body.Sort()
	if err := v.Validate(blk); !errors.Is(err, ErrAccountingBalance) {
		t.Fatalf("got %v, want ErrAccountingBalance", err)
	}
}

func TestValidate_BypassRangeProofVerification(t *testing.T) {
	rules := testRules(t)
	strict := NewOrphanBlockValidator(rules, false, testFactories)
	bypass := NewOrphanBlockValidator(rules, true, testFactories)

	blk := validBlock(t, rules)
	i := findOutput(t, &blk.Body, func(o *tx.Output) bool { return o.Features.Type == tx.OutputTypeStandard })
	blk.Body.Outputs[i].RangeProof[100] ^= 0x01
	blk.Body.Sort()

	// The balance equation still closes, so only the proof check
	// distinguishes the two validators.
	if err := strict.Validate(blk); !errors.Is(err, ErrAccountingBalance) {
		t.Fatalf("strict: got %v, want ErrAccountingBalance", err)
	}
	if err := bypass.Validate(blk); err != nil {
		t.Fatalf("bypass: corrupted proof should be ignored, got %v", err)
	}

	// The bypass never reaches past the balance equation itself.
	blk.Body.Inputs = blk.Body.Inputs[:0]
	if err := bypass.Validate(blk); !errors.Is(err, ErrAccountingBalance) {
		t.Fatalf("bypass must still enforce the balance equation, got %v", err)
	}
}
