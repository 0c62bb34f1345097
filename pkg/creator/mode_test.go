package creator

import (
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/common"
	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/system"
	"github.com/code-payments/solana-account-creator/pkg/testutil"
)

func TestResolve_Fresh(t *testing.T) {
	funder := testutil.NewRandomAccount(t)
	owner := testutil.NewRandomAccount(t)

	resolved, err := resolve(funder, Fresh{}, staticOwner(owner), 1234, testSpace)
	require.NoError(t, err)

	require.Len(t, resolved.signers, 1)
	assert.Equal(t, resolved.target, resolved.signers[0])
	assert.Equal(t, []*common.Account{resolved.target}, resolved.ephemeral)
	assert.Equal(t, owner, resolved.owner)
	assert.Nil(t, resolved.base)

	decompiled, err := system.DecompileCreateAccount(newMessage(t, funder, resolved.instruction), 0)
	require.NoError(t, err)
	assert.EqualValues(t, funder.PublicKey().ToBytes(), decompiled.Funder)
	assert.EqualValues(t, resolved.target.PublicKey().ToBytes(), decompiled.Address)
	assert.EqualValues(t, owner.PublicKey().ToBytes(), decompiled.Owner)
	assert.EqualValues(t, 1234, decompiled.Lamports)
	assert.EqualValues(t, testSpace, decompiled.Size)

	// Every run gets its own address.
	other, err := resolve(funder, Fresh{}, staticOwner(owner), 1234, testSpace)
	require.NoError(t, err)
	assert.NotEqual(t, resolved.target.PublicKey().ToBytes(), other.target.PublicKey().ToBytes())
}

func TestResolve_FreshOwner(t *testing.T) {
	funder := testutil.NewRandomAccount(t)
	owner := testutil.NewRandomAccount(t)

	// An explicit owner never consults the configured one.
	resolved, err := resolve(funder, Fresh{Owner: owner}, func() (*common.Account, error) {
		return nil, errors.New("unused")
	}, 1, testSpace)
	require.NoError(t, err)
	assert.Equal(t, owner, resolved.owner)

	resolved, err = resolve(funder, Fresh{}, nil, 1, testSpace)
	require.NoError(t, err)
	assert.EqualValues(t, system.ProgramKey[:], resolved.owner.PublicKey().ToBytes())
}

func TestResolve_Seeded(t *testing.T) {
	funder := testutil.NewRandomAccount(t)
	base := testutil.NewRandomAccount(t)

	mode, err := NewSeeded(base, "charondev", nil)
	require.NoError(t, err)

	resolved, err := resolve(funder, mode, nil, 1234, testSpace)
	require.NoError(t, err)

	expected, err := solana.CreateWithSeed(base.PublicKey().ToBytes(), "charondev", system.ProgramKey[:])
	require.NoError(t, err)
	assert.EqualValues(t, expected, resolved.target.PublicKey().ToBytes())
	assert.Equal(t, []*common.Account{base}, resolved.signers)
	assert.Empty(t, resolved.ephemeral)
	assert.Equal(t, "charondev", resolved.seed)

	decompiled, err := system.DecompileCreateAccountWithSeed(newMessage(t, funder, resolved.instruction), 0)
	require.NoError(t, err)
	assert.EqualValues(t, expected, decompiled.Address)
	assert.EqualValues(t, base.PublicKey().ToBytes(), decompiled.Base)
	assert.Equal(t, "charondev", decompiled.Seed)
	assert.EqualValues(t, system.ProgramKey[:], decompiled.Owner)

	// Derivation is deterministic.
	again, err := resolve(funder, mode, nil, 1234, testSpace)
	require.NoError(t, err)
	assert.Equal(t, resolved.target.PublicKey().ToBytes(), again.target.PublicKey().ToBytes())
}

func TestResolve_SeededOwner(t *testing.T) {
	funder := testutil.NewRandomAccount(t)
	base := testutil.NewRandomAccount(t)
	owner := testutil.NewRandomAccount(t)

	withOwner, err := resolve(funder, Seeded{Base: base, Seed: "seed", Owner: owner}, nil, 1, testSpace)
	require.NoError(t, err)
	withoutOwner, err := resolve(funder, Seeded{Base: base, Seed: "seed"}, nil, 1, testSpace)
	require.NoError(t, err)

	assert.Equal(t, owner, withOwner.owner)
	assert.NotEqual(t, withOwner.target.PublicKey().ToBytes(), withoutOwner.target.PublicKey().ToBytes())
}

func TestResolve_FunderIsBase(t *testing.T) {
	funder := testutil.NewRandomAccount(t)

	publicFunder, err := common.NewAccountFromPublicKey(funder.PublicKey())
	require.NoError(t, err)

	for _, base := range []*common.Account{funder, publicFunder} {
		resolved, err := resolve(funder, Seeded{Base: base, Seed: "seed"}, nil, 1, testSpace)
		require.NoError(t, err)
		assert.Empty(t, resolved.signers)

		txn, err := solana.NewTransaction(funder.PublicKey().ToBytes(), resolved.instruction)
		require.NoError(t, err)
		assert.Len(t, txn.RequiredSigners(), 1)
	}
}

func TestResolve_Invalid(t *testing.T) {
	funder := testutil.NewRandomAccount(t)
	base := testutil.NewRandomAccount(t)

	_, err := NewSeeded(base, strings.Repeat("a", solana.MaxSeedLength+1), nil)
	assert.Equal(t, solana.ErrSeedTooLong, err)

	_, err = NewSeeded(nil, "seed", nil)
	assert.Equal(t, ErrBaseRequired, err)

	_, err = resolve(funder, Seeded{Base: base, Seed: strings.Repeat("a", solana.MaxSeedLength+1)}, nil, 1, testSpace)
	assert.Equal(t, solana.ErrSeedTooLong, err)

	_, err = resolve(funder, Seeded{Seed: "seed"}, nil, 1, testSpace)
	assert.Equal(t, ErrBaseRequired, err)

	publicBase, err := common.NewAccountFromPublicKey(base.PublicKey())
	require.NoError(t, err)
	_, err = resolve(funder, Seeded{Base: publicBase, Seed: "seed"}, nil, 1, testSpace)
	assert.Equal(t, ErrBaseRequired, err)

	_, err = resolve(funder, nil, nil, 1, testSpace)
	assert.Equal(t, ErrInvalidCreateMode, err)
}

func staticOwner(owner *common.Account) ownerSource {
	return func() (*common.Account, error) {
		return owner, nil
	}
}

func newMessage(t *testing.T, funder *common.Account, instruction solana.Instruction) solana.Message {
	txn, err := solana.NewTransaction(ed25519.PublicKey(funder.PublicKey().ToBytes()), instruction)
	require.NoError(t, err)
	return txn.Message
}
