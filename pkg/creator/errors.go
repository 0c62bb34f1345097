package creator

import (
	"bytes"
	"context"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/system"
)

var (
	// ErrConfigInvalid indicates the CLI configuration or a key file could
	// not be loaded.
	ErrConfigInvalid = errors.New("configuration invalid")

	// ErrTimeout indicates the transaction did not reach the requested
	// commitment within the confirmation timeout. It may still land.
	ErrTimeout = errors.New("timed out waiting for confirmation")

	// ErrDropped indicates the blockhash expired without the transaction
	// being observed on chain. It can no longer land.
	ErrDropped = errors.New("transaction dropped")

	ErrFunderRequired    = errors.New("funder with a private key is required")
	ErrBaseRequired      = errors.New("base with a private key is required")
	ErrInvalidCreateMode = errors.New("invalid creation mode")
)

// ErrorKind classifies errors surfaced by the workflow.
type ErrorKind uint8

const (
	KindUnknown ErrorKind = iota
	KindConfigInvalid
	KindNetwork
	KindNodeRejected
	KindMissingSigner
	KindEmptyTransaction
	KindInvalidArgument
	KindTimeout
	KindDropped
)

func (k ErrorKind) String() string {
	switch k {
	case KindConfigInvalid:
		return "config_invalid"
	case KindNetwork:
		return "network"
	case KindNodeRejected:
		return "node_rejected"
	case KindMissingSigner:
		return "missing_signer"
	case KindEmptyTransaction:
		return "empty_transaction"
	case KindInvalidArgument:
		return "invalid_argument"
	case KindTimeout:
		return "timeout"
	case KindDropped:
		return "dropped"
	}
	return "unknown"
}

// Kind returns the kind of err. A nil error has KindUnknown.
func Kind(err error) ErrorKind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrConfigInvalid):
		return KindConfigInvalid
	case errors.Is(err, solana.ErrNetwork):
		return KindNetwork
	case errors.Is(err, solana.ErrNodeRejected):
		return KindNodeRejected
	case errors.Is(err, solana.ErrMissingSigner):
		return KindMissingSigner
	case errors.Is(err, solana.ErrEmptyTransaction):
		return KindEmptyTransaction
	case errors.Is(err, solana.ErrSeedTooLong),
		errors.Is(err, solana.ErrIllegalOwner),
		errors.Is(err, solana.ErrInvalidPublicKey),
		errors.Is(err, ErrFunderRequired),
		errors.Is(err, ErrBaseRequired),
		errors.Is(err, ErrInvalidCreateMode):
		return KindInvalidArgument
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	case errors.Is(err, ErrDropped):
		return KindDropped
	}
	return KindUnknown
}

// describeRejection replaces the reason of a custom system program error
// with the system program's description of the code.
func describeRejection(txn *solana.Transaction, rejected *solana.RejectedError) {
	if rejected.TxErr == nil {
		return
	}

	instructionErr := rejected.TxErr.InstructionError()
	if instructionErr == nil {
		return
	}
	custom := instructionErr.CustomError()
	if custom == nil {
		return
	}

	if instructionErr.Index < 0 || instructionErr.Index >= len(txn.Message.Instructions) {
		return
	}
	programIndex := int(txn.Message.Instructions[instructionErr.Index].ProgramIndex)
	if programIndex >= len(txn.Message.Accounts) {
		return
	}
	if !bytes.Equal(txn.Message.Accounts[programIndex], system.ProgramKey[:]) {
		return
	}

	if reason, ok := system.ErrorReason(uint32(*custom)); ok {
		rejected.Reason = reason
	}
}
