// Package validation implements the stateless consensus checks run on
// candidate blocks before they are linked to chain state.
package validation

import "errors"

// Validation errors. Each sentinel names exactly one violated consensus
// rule; checks wrap them with detail and callers match with errors.Is.
var (
	// ErrValidatingGenesis signals a caller programming error: genesis is
	// pre-trusted and never enters the orphan pipeline.
	ErrValidatingGenesis = errors.New("genesis block must not be validated as an orphan")

	ErrUnsupportedVersion               = errors.New("unsupported schema version")
	ErrBlockWeightExceeded              = errors.New("block weight exceeds epoch maximum")
	ErrUnsortedOrDuplicate              = errors.New("body items not in canonical order or duplicated")
	ErrOutputTypeNotPermitted           = errors.New("output type not permitted in this epoch")
	ErrInvalidValidatorNodeRegistration = errors.New("invalid validator node registration output")
	ErrBurnAccountingMismatch           = errors.New("burn kernels and burn outputs do not match")
	ErrImmatureInput                    = errors.New("input spent before maturity height")
	ErrKernelLockHeight                 = errors.New("kernel lock height not reached")
	ErrBadOutputFeatures                = errors.New("output features inconsistent with protocol rules")
	ErrBadCoinbase                      = errors.New("missing or invalid coinbase")
	ErrAccountingBalance                = errors.New("block accounting balance or range proof failure")
)
