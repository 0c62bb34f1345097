package creator

import (
	"bytes"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-account-creator/pkg/common"
	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/system"
)

// CreationMode selects how the address of the new account is obtained. The
// set of modes is closed: Fresh and Seeded.
type CreationMode interface {
	String() string

	isCreationMode()
}

// Fresh creates the account at the address of a newly generated key pair.
// The key pair co-signs the transaction and is zeroed afterwards.
type Fresh struct {
	// Owner is the program assigned as owner of the account. Defaults to the
	// configured fresh account owner.
	Owner *common.Account
}

func (Fresh) String() string { return "fresh" }

func (Fresh) isCreationMode() {}

// Seeded creates the account at the address derived from a base key, a seed
// and an owner program. The base key must sign.
type Seeded struct {
	Base *common.Account
	Seed string

	// Owner is the program assigned as owner of the account and used in the
	// derivation. Defaults to the system program.
	Owner *common.Account
}

// NewSeeded returns a Seeded mode after validating the seed length.
func NewSeeded(base *common.Account, seed string, owner *common.Account) (Seeded, error) {
	if len(seed) > solana.MaxSeedLength {
		return Seeded{}, solana.ErrSeedTooLong
	}
	if base == nil {
		return Seeded{}, ErrBaseRequired
	}

	return Seeded{
		Base:  base,
		Seed:  seed,
		Owner: owner,
	}, nil
}

func (Seeded) String() string { return "seeded" }

func (Seeded) isCreationMode() {}

// resolution is the outcome of resolving a mode for a single run.
type resolution struct {
	target      *common.Account
	owner       *common.Account
	base        *common.Account
	seed        string
	signers     []*common.Account
	instruction solana.Instruction

	// ephemeral holds secrets that are zeroed once the transaction is signed.
	ephemeral []*common.Account
}

// ownerSource supplies the owner of fresh accounts that don't name one. It
// is only consulted in that case.
type ownerSource func() (*common.Account, error)

// resolve determines the target address, the extra signers and the create
// instruction for the provided mode.
func resolve(funder *common.Account, mode CreationMode, freshOwner ownerSource, lamports, space uint64) (*resolution, error) {
	switch m := mode.(type) {
	case Fresh:
		return resolveFresh(funder, m, freshOwner, lamports, space)
	case Seeded:
		return resolveSeeded(funder, m, lamports, space)
	default:
		return nil, ErrInvalidCreateMode
	}
}

func resolveFresh(funder *common.Account, mode Fresh, freshOwner ownerSource, lamports, space uint64) (*resolution, error) {
	owner := mode.Owner
	if owner == nil && freshOwner != nil {
		var err error
		if owner, err = freshOwner(); err != nil {
			return nil, err
		}
	}
	if owner == nil {
		owner = systemProgramAccount()
	}
	if err := owner.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid owner")
	}

	target, err := common.NewRandomAccount()
	if err != nil {
		return nil, errors.Wrap(err, "error generating account")
	}

	return &resolution{
		target: target,
		owner:  owner,
		signers: []*common.Account{
			target,
		},
		instruction: system.CreateAccount(
			funder.PublicKey().ToBytes(),
			target.PublicKey().ToBytes(),
			owner.PublicKey().ToBytes(),
			lamports,
			space,
		),
		ephemeral: []*common.Account{target},
	}, nil
}

func resolveSeeded(funder *common.Account, mode Seeded, lamports, space uint64) (*resolution, error) {
	if len(mode.Seed) > solana.MaxSeedLength {
		return nil, solana.ErrSeedTooLong
	}
	if mode.Base == nil {
		return nil, ErrBaseRequired
	}

	// The funder signs anyway, so a base that is the funder needs no key of
	// its own.
	baseIsFunder := bytes.Equal(mode.Base.PublicKey().ToBytes(), funder.PublicKey().ToBytes())
	if mode.Base.PrivateKey() == nil && !baseIsFunder {
		return nil, ErrBaseRequired
	}

	owner := mode.Owner
	if owner == nil {
		owner = systemProgramAccount()
	}

	target, err := mode.Base.ToSeededAccount(mode.Seed, owner)
	if err != nil {
		return nil, errors.Wrap(err, "error deriving seeded address")
	}

	var signers []*common.Account
	if !baseIsFunder {
		signers = append(signers, mode.Base)
	}

	return &resolution{
		target:  target,
		owner:   owner,
		base:    mode.Base,
		seed:    mode.Seed,
		signers: signers,
		instruction: system.CreateAccountWithSeed(
			funder.PublicKey().ToBytes(),
			target.PublicKey().ToBytes(),
			mode.Base.PublicKey().ToBytes(),
			mode.Seed,
			owner.PublicKey().ToBytes(),
			lamports,
			space,
		),
	}, nil
}

func systemProgramAccount() *common.Account {
	account, err := common.NewAccountFromPublicKeyBytes(system.ProgramKey[:])
	if err != nil {
		panic(err)
	}
	return account
}
