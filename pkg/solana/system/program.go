package system

import (
	"bytes"
	"crypto/ed25519"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/binary"
)

// ProgramKey is the address of the system program, 11111111111111111111111111111111.
var ProgramKey [32]byte

const (
	commandCreateAccount uint32 = iota
	// nolint:varcheck,deadcode,unused
	commandAssign
	// nolint:varcheck,deadcode,unused
	commandTransfer
	commandCreateAccountWithSeed
	// nolint:varcheck,deadcode,unused
	commandAdvanceNonceAccount
	// nolint:varcheck,deadcode,unused
	commandWithdrawNonceAccount
	// nolint:varcheck,deadcode,unused
	commandInitializeNonceAccount
	// nolint:varcheck,deadcode,unused
	commandAuthorizeNonceAccount
	commandAllocate
	// nolint:varcheck,deadcode,unused
	commandAllocateWithSeed
	// nolint:varcheck,deadcode,unused
	commandAssignWithSeed
	// nolint:varcheck,deadcode,unused
	commandTransferWithSeed
)

const (
	createAccountSize         = 4 + 2*8 + ed25519.PublicKeySize
	createAccountWithSeedSize = 4 + ed25519.PublicKeySize + 8 + 2*8 + ed25519.PublicKeySize
)

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L58-L72
func CreateAccount(funder, address, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE, SIGNER] New account
	//
	// CreateAccount {
	//   // Number of lamports to transfer to the new account
	//   lamports: u64,
	//   // Number of bytes of memory to allocate
	//   space: u64,
	//
	//   //Address of program that will own the new account
	//   owner: Pubkey,
	// }
	//
	var offset int
	data := make([]byte, createAccountSize)
	binary.PutUint32(data[offset:], commandCreateAccount, &offset)
	binary.PutUint64(data[offset:], lamports, &offset)
	binary.PutUint64(data[offset:], size, &offset)
	binary.PutKey32(data[offset:], owner, &offset)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, true),
	)
}

// Reference: https://github.com/solana-labs/solana/blob/f02a78d8fff2dd7297dc6ce6eb5a68a3002f5359/sdk/src/system_instruction.rs#L73-L94
func CreateAccountWithSeed(funder, address, base ed25519.PublicKey, seed string, owner ed25519.PublicKey, lamports, size uint64) solana.Instruction {
	// # Account references
	//   0. [WRITE, SIGNER] Funding account
	//   1. [WRITE] Created account
	//   2. [SIGNER] Base account
	//
	// CreateAccountWithSeed {
	//   base: Pubkey,
	//   seed: String,
	//   lamports: u64,
	//   space: u64,
	//   owner: Pubkey,
	// }
	//
	var offset int
	data := make([]byte, 4+ed25519.PublicKeySize+binary.StringSize(seed)+2*8+ed25519.PublicKeySize)
	binary.PutUint32(data[offset:], commandCreateAccountWithSeed, &offset)
	binary.PutKey32(data[offset:], base, &offset)
	binary.PutString(data[offset:], seed, &offset)
	binary.PutUint64(data[offset:], lamports, &offset)
	binary.PutUint64(data[offset:], size, &offset)
	binary.PutKey32(data[offset:], owner, &offset)

	return solana.NewInstruction(
		ProgramKey[:],
		data,
		solana.NewAccountMeta(funder, true),
		solana.NewAccountMeta(address, false),
		solana.NewReadonlyAccountMeta(base, true),
	)
}

type DecompiledCreateAccount struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccount(m solana.Message, index int) (*DecompiledCreateAccount, error) {
	i, err := instructionFor(m, index, commandCreateAccount)
	if err != nil {
		return nil, err
	}

	if len(i.Accounts) != 2 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) != createAccountSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	v := &DecompiledCreateAccount{
		Funder:  m.Accounts[i.Accounts[0]],
		Address: m.Accounts[i.Accounts[1]],
	}

	offset := 4
	binary.GetUint64(i.Data[offset:], &v.Lamports, &offset)
	binary.GetUint64(i.Data[offset:], &v.Size, &offset)
	binary.GetKey32(i.Data[offset:], &v.Owner, &offset)

	return v, nil
}

type DecompiledCreateAccountWithSeed struct {
	Funder  ed25519.PublicKey
	Address ed25519.PublicKey
	Base    ed25519.PublicKey
	Seed    string

	Lamports uint64
	Size     uint64
	Owner    ed25519.PublicKey
}

func DecompileCreateAccountWithSeed(m solana.Message, index int) (*DecompiledCreateAccountWithSeed, error) {
	i, err := instructionFor(m, index, commandCreateAccountWithSeed)
	if err != nil {
		return nil, err
	}

	// The base account may be omitted when it is also the funder.
	if len(i.Accounts) != 2 && len(i.Accounts) != 3 {
		return nil, errors.Errorf("invalid number of accounts: %d", len(i.Accounts))
	}
	if len(i.Data) < createAccountWithSeedSize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}

	v := &DecompiledCreateAccountWithSeed{
		Funder:  m.Accounts[i.Accounts[0]],
		Address: m.Accounts[i.Accounts[1]],
	}

	offset := 4
	binary.GetKey32(i.Data[offset:], &v.Base, &offset)
	if !binary.GetString(i.Data[offset:], &v.Seed, &offset) {
		return nil, errors.New("invalid seed encoding")
	}
	if len(i.Data) != offset+2*8+ed25519.PublicKeySize {
		return nil, errors.Errorf("invalid instruction data size: %d", len(i.Data))
	}
	binary.GetUint64(i.Data[offset:], &v.Lamports, &offset)
	binary.GetUint64(i.Data[offset:], &v.Size, &offset)
	binary.GetKey32(i.Data[offset:], &v.Owner, &offset)

	return v, nil
}

func instructionFor(m solana.Message, index int, command uint32) (solana.CompiledInstruction, error) {
	if index < 0 || index >= len(m.Instructions) {
		return solana.CompiledInstruction{}, errors.Errorf("instruction doesn't exist at %d", index)
	}

	i := m.Instructions[index]

	if !bytes.Equal(m.Accounts[i.ProgramIndex], ProgramKey[:]) {
		return solana.CompiledInstruction{}, solana.ErrIncorrectProgram
	}
	if len(i.Data) < 4 {
		return solana.CompiledInstruction{}, solana.ErrIncorrectInstruction
	}

	var offset int
	var actual uint32
	binary.GetUint32(i.Data, &actual, &offset)
	if actual != command {
		return solana.CompiledInstruction{}, solana.ErrIncorrectInstruction
	}

	return i, nil
}
