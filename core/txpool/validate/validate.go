// Package validate implements component C: the pluggable, asynchronous
// validator that stands between a caller submitting a candidate
// transaction and the subpool engine admitting one (spec §4.3).
package validate

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/log"
	"github.com/holiman/uint256"

	"github.com/luxfi/mempool/core/txpool"
	"github.com/luxfi/mempool/core/types"
)

// ChainParams carries the fork-activation and limit knobs the stateless
// checks are driven by (spec §4.3: "chain-parameter driven").
type ChainParams struct {
	ChainID uint64

	AccessListsEnabled bool
	DynamicFeeEnabled  bool
	BlobTxEnabled      bool
	SetCodeEnabled     bool

	MaxBlobsPerTx int
	BlockGasLimit uint64

	// MinimalProtocolBaseFee floors max_fee_per_gas for External-origin
	// transactions.
	MinimalProtocolBaseFee uint64
	// ExternalMinPriorityFee floors max_priority_fee_per_gas for
	// External-origin transactions.
	ExternalMinPriorityFee uint64
	// LocalFeeCap, if non-zero, ceilings max_fee_per_gas accepted from
	// Local-origin transactions (protects an operator from fat-fingering
	// a huge fee into their own mempool).
	LocalFeeCap uint64
}

// ChainValidator is the default, chain-state-backed Validator
// implementation (spec §4.3).
type ChainValidator struct {
	params ChainParams
	chain  txpool.ChainStateProvider
}

// New constructs a ChainValidator against the given chain state provider
// and parameter set.
func New(chain txpool.ChainStateProvider, params ChainParams) *ChainValidator {
	return &ChainValidator{params: params, chain: chain}
}

var _ txpool.Validator = (*ChainValidator)(nil)

// Validate implements txpool.Validator.
func (v *ChainValidator) Validate(ctx context.Context, origin txpool.Origin, tx *types.Tx, sidecar *types.BlobTxSidecar) txpool.ValidationOutcome {
	select {
	case <-ctx.Done():
		return txpool.ValidationOutcome{Err: ctx.Err()}
	default:
	}

	if kind, ok := v.checkStateless(origin, tx, sidecar); !ok {
		return txpool.ValidationOutcome{Invalid: &txpool.ValidationError{Kind: kind}}
	}

	valid, kind, err := v.checkStateful(origin, tx)
	if err != nil {
		return txpool.ValidationOutcome{Err: err}
	}
	if valid == nil {
		return txpool.ValidationOutcome{Invalid: &txpool.ValidationError{Kind: kind}}
	}
	valid.Sidecar = sidecar
	return txpool.ValidationOutcome{Valid: valid}
}

// checkStateless runs the deterministic, chain-parameter driven checks of
// spec §4.3 that do not require reading account state.
func (v *ChainValidator) checkStateless(origin txpool.Origin, tx *types.Tx, sidecar *types.BlobTxSidecar) (txpool.ValidationErrorKind, bool) {
	switch tx.Type {
	case types.AccessListTxType:
		if !v.params.AccessListsEnabled {
			return txpool.InvalidTxTypeNotActive, false
		}
	case types.DynamicFeeTxType:
		if !v.params.DynamicFeeEnabled {
			return txpool.InvalidTxTypeNotActive, false
		}
	case types.BlobTxType:
		if !v.params.BlobTxEnabled {
			return txpool.InvalidTxTypeNotActive, false
		}
	case types.SetCodeTxType:
		if !v.params.SetCodeEnabled {
			return txpool.InvalidTxTypeNotActive, false
		}
	}

	if tx.Size > txpool.MaxInputBytes {
		return txpool.InvalidOversizedData, false
	}
	if tx.GasLimit > v.params.BlockGasLimit {
		return txpool.InvalidGasLimitExceedsBlock, false
	}
	if tx.GasTipCap.Cmp(tx.GasFeeCap) > 0 {
		return txpool.InvalidTipAboveFeeCap, false
	}
	if tx.ChainID != 0 && tx.ChainID != v.params.ChainID {
		return txpool.InvalidChainID, false
	}
	if intrinsic := IntrinsicGas(tx); tx.GasLimit < intrinsic {
		return txpool.InvalidIntrinsicGas, false
	}

	if tx.Type.IsBlob() {
		if sidecar == nil || len(tx.BlobHashes) == 0 {
			return txpool.InvalidBlobCount, false
		}
		if !sidecar.ValidateBlobCount(v.params.MaxBlobsPerTx) {
			return txpool.InvalidBlobCount, false
		}
		if len(sidecar.Commitments) != len(tx.BlobHashes) {
			return txpool.InvalidBlobCount, false
		}
		if err := sidecar.ValidateKZG(); err != nil {
			log.Debug("blob KZG verification failed", "hash", tx.TxHash, "err", err)
			return txpool.InvalidBlobKZG, false
		}
	}

	switch origin {
	case txpool.External:
		if v.params.MinimalProtocolBaseFee > 0 && tx.GasFeeCap.Uint64() < v.params.MinimalProtocolBaseFee {
			return txpool.InvalidFeeCapBelowMinimum, false
		}
		if v.params.ExternalMinPriorityFee > 0 && tx.GasTipCap.Uint64() < v.params.ExternalMinPriorityFee {
			return txpool.InvalidTipBelowMinimum, false
		}
	case txpool.Local, txpool.Private:
		if v.params.LocalFeeCap > 0 && tx.GasFeeCap.Uint64() > v.params.LocalFeeCap {
			return txpool.InvalidFeeCapBelowMinimum, false
		}
	}

	return 0, true
}

// checkStateful runs the account-state-dependent checks of spec §4.3.
func (v *ChainValidator) checkStateful(origin txpool.Origin, tx *types.Tx) (*txpool.ValidTransaction, txpool.ValidationErrorKind, error) {
	nonce, balance, err := v.chain.AccountState(tx.Sender)
	if err != nil {
		return nil, 0, err
	}
	codeHash, err := v.chain.BytecodeHash(tx.Sender)
	if err != nil {
		return nil, 0, err
	}

	isEOA := v.chain.IsEOAHash(codeHash)
	if !isEOA && !v.allowsDelegatedSender(tx) {
		return nil, txpool.InvalidSenderHasBytecode, nil
	}
	if tx.TxNonce < nonce {
		return nil, txpool.InvalidNonceTooLow, nil
	}
	if balance.Cmp(tx.Cost()) < 0 {
		return nil, txpool.InvalidInsufficientFunds, nil
	}

	authorities := make([]common.Address, 0, len(tx.Authlist))
	for _, auth := range tx.Authlist {
		authorities = append(authorities, auth.Address)
	}

	return &txpool.ValidTransaction{
		Tx:           tx,
		Balance:      balance,
		StateNonce:   nonce,
		BytecodeHash: codeHash,
		Propagate:    origin != txpool.Private,
		Authorities:  authorities,
	}, 0, nil
}

// allowsDelegatedSender reports whether a sender carrying bytecode may
// still submit transactions because that bytecode is an EIP-7702
// delegation designator installed by a SetCode authorization from this
// very transaction's family of transactions. The pool trusts the caller
// to gate activation by fork; here it only checks the shape.
func (v *ChainValidator) allowsDelegatedSender(tx *types.Tx) bool {
	return v.params.SetCodeEnabled && tx.Type == types.SetCodeTxType
}

// IntrinsicGas estimates the minimum gas an EOA-originated transaction of
// this shape must supply, a coarse stand-in for the execution layer's
// exact per-opcode accounting (out of scope per spec §1).
func IntrinsicGas(tx *types.Tx) uint64 {
	const (
		txGas           = 21_000
		txGasContractCreation = 53_000
		perAuthTupleGas = 25_000
	)
	gas := uint64(txGas)
	if tx.TxValue != nil && !tx.TxValue.IsZero() && len(tx.Authlist) == 0 && tx.Sender == (common.Address{}) {
		gas = txGasContractCreation
	}
	gas += uint64(len(tx.Authlist)) * perAuthTupleGas
	return gas
}

// floorUint256 is a small helper kept here (rather than in core/types) to
// avoid leaking validator-only conveniences into the transaction model.
func floorUint256(v *uint256.Int) *uint256.Int {
	if v == nil {
		return uint256.NewInt(0)
	}
	return v
}
