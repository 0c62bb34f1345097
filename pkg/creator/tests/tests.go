package tests

import (
	"context"
	"crypto/ed25519"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/common"
	"github.com/code-payments/solana-account-creator/pkg/creator"
	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/system"
	"github.com/code-payments/solana-account-creator/pkg/testutil"
)

const (
	lamportsPerSignature = 5000

	defaultSpace = 10
	defaultSeed  = "charondev"

	wellFunded = 10_000_000_000
)

// Environment is a node the scenarios run against.
type Environment struct {
	Client  solana.Client
	Creator *creator.Creator

	// Fund credits lamports to account, waiting until the credit is visible
	// at the creator's commitment.
	Fund func(t *testing.T, account ed25519.PublicKey, lamports uint64)

	// ExpireBlockhashes moves the chain past the validity window of every
	// blockhash handed out so far. Scenarios that need it are skipped when it
	// is nil.
	ExpireBlockhashes func(t *testing.T)
}

func RunTests(t *testing.T, env *Environment, teardown func()) {
	for _, tf := range []func(t *testing.T, env *Environment){
		testCreateFreshAccount,
		testInsufficientFunds,
		testCreateSeededAccount,
		testCreateSeededAccountEmptySeed,
		testSeededAccountAlreadyInUse,
		testFunderIsBase,
		testSeedTooLong,
		testMissingFunder,
		testExpiredBlockhash,
	} {
		tf(t, env)
		teardown()
	}
}

func testCreateFreshAccount(t *testing.T, env *Environment) {
	t.Run("testCreateFreshAccount", func(t *testing.T) {
		ctx := context.Background()

		funder := newFundedAccount(t, env, wellFunded)

		expectedLamports, err := env.Creator.MinimumBalance(ctx, defaultSpace)
		require.NoError(t, err)

		result, err := env.Creator.CreateFreshAccount(ctx, funder, defaultSpace)
		require.NoError(t, err)

		assert.Equal(t, expectedLamports, result.Lamports)
		assert.EqualValues(t, defaultSpace, result.Space)
		assert.Equal(t, env.Creator.Commitment(), result.Commitment)
		assert.NotEqual(t, solana.Signature{}, result.Signature)
		assert.NotEmpty(t, result.RunID)
		assert.Nil(t, result.Base)
		assert.EqualValues(t, system.ProgramKey[:], result.Owner.PublicKey().ToBytes())

		// The generated key pair is never handed back.
		assert.Nil(t, result.Address.PrivateKey())

		info, err := env.Client.GetAccountInfo(result.Address.PublicKey().ToBytes(), env.Creator.Commitment())
		require.NoError(t, err)
		assert.Equal(t, expectedLamports, info.Lamports)
		assert.Len(t, info.Data, defaultSpace)
		assert.EqualValues(t, system.ProgramKey[:], info.Owner)

		statuses, err := env.Client.GetSignatureStatuses([]solana.Signature{result.Signature})
		require.NoError(t, err)
		require.Len(t, statuses, 1)
		require.NotNil(t, statuses[0])
		assert.Nil(t, statuses[0].ErrorResult)
		assert.True(t, statuses[0].Reached(env.Creator.Commitment()))

		balance, err := env.Client.GetBalance(funder.PublicKey().ToBytes(), env.Creator.Commitment())
		require.NoError(t, err)
		assert.EqualValues(t, wellFunded-expectedLamports-2*lamportsPerSignature, balance)
	})
}

func testInsufficientFunds(t *testing.T, env *Environment) {
	t.Run("testInsufficientFunds", func(t *testing.T) {
		ctx := context.Background()

		// Enough to stay rent exempt and pay the fee, but not to fund the
		// new account.
		funderMinimum, err := env.Creator.MinimumBalance(ctx, 0)
		require.NoError(t, err)
		funder := newFundedAccount(t, env, funderMinimum+20_000)

		prepared, err := env.Creator.Prepare(ctx, funder, creator.Fresh{}, defaultSpace)
		require.NoError(t, err)

		result, err := env.Creator.Submit(ctx, prepared)
		assert.Nil(t, result)
		assert.Equal(t, creator.KindNodeRejected, creator.Kind(err))
		testutil.AssertRejectedWithReason(t, err, "insufficient funds for rent")

		_, err = env.Client.GetAccountInfo(prepared.Address.PublicKey().ToBytes(), env.Creator.Commitment())
		assert.Equal(t, solana.ErrNoAccountInfo, err)
	})
}

func testCreateSeededAccount(t *testing.T, env *Environment) {
	t.Run("testCreateSeededAccount", func(t *testing.T) {
		ctx := context.Background()

		funder := newFundedAccount(t, env, wellFunded)
		base := testutil.NewRandomAccount(t)

		expected, err := solana.CreateWithSeed(base.PublicKey().ToBytes(), defaultSeed, system.ProgramKey[:])
		require.NoError(t, err)

		result, err := env.Creator.CreateSeededAccount(ctx, funder, base, defaultSeed, defaultSpace, nil)
		require.NoError(t, err)

		assert.EqualValues(t, expected, result.Address.PublicKey().ToBytes())
		assert.Equal(t, base, result.Base)
		assert.Equal(t, defaultSeed, result.Seed)

		info, err := env.Client.GetAccountInfo(expected, env.Creator.Commitment())
		require.NoError(t, err)
		assert.Equal(t, result.Lamports, info.Lamports)
		assert.Len(t, info.Data, defaultSpace)

		// The base key only signs. It is not debited.
		balance, err := env.Client.GetBalance(base.PublicKey().ToBytes(), env.Creator.Commitment())
		require.NoError(t, err)
		assert.Zero(t, balance)
	})
}

func testCreateSeededAccountEmptySeed(t *testing.T, env *Environment) {
	t.Run("testCreateSeededAccountEmptySeed", func(t *testing.T) {
		ctx := context.Background()

		funder := newFundedAccount(t, env, wellFunded)
		base := testutil.NewRandomAccount(t)

		expected, err := solana.CreateWithSeed(base.PublicKey().ToBytes(), "", system.ProgramKey[:])
		require.NoError(t, err)

		result, err := env.Creator.CreateSeededAccount(ctx, funder, base, "", defaultSpace, nil)
		require.NoError(t, err)
		assert.EqualValues(t, expected, result.Address.PublicKey().ToBytes())
		assert.Empty(t, result.Seed)

		info, err := env.Client.GetAccountInfo(expected, env.Creator.Commitment())
		require.NoError(t, err)
		assert.Equal(t, result.Lamports, info.Lamports)
		assert.Len(t, info.Data, defaultSpace)
		assert.EqualValues(t, system.ProgramKey[:], info.Owner)
	})
}

func testSeededAccountAlreadyInUse(t *testing.T, env *Environment) {
	t.Run("testSeededAccountAlreadyInUse", func(t *testing.T) {
		ctx := context.Background()

		funder := newFundedAccount(t, env, wellFunded)
		base := testutil.NewRandomAccount(t)

		_, err := env.Creator.CreateSeededAccount(ctx, funder, base, defaultSeed, defaultSpace, nil)
		require.NoError(t, err)

		result, err := env.Creator.CreateSeededAccount(ctx, funder, base, defaultSeed, defaultSpace, nil)
		assert.Nil(t, result)
		assert.Equal(t, creator.KindNodeRejected, creator.Kind(err))
		testutil.AssertRejectedWithReason(t, err, "account already in use")

		// A different seed from the same base is a different account.
		_, err = env.Creator.CreateSeededAccount(ctx, funder, base, defaultSeed+"2", defaultSpace, nil)
		require.NoError(t, err)
	})
}

func testFunderIsBase(t *testing.T, env *Environment) {
	t.Run("testFunderIsBase", func(t *testing.T) {
		ctx := context.Background()

		funder := newFundedAccount(t, env, wellFunded)

		result, err := env.Creator.CreateSeededAccount(ctx, funder, funder, defaultSeed, defaultSpace, nil)
		require.NoError(t, err)

		expected, err := solana.CreateWithSeed(funder.PublicKey().ToBytes(), defaultSeed, system.ProgramKey[:])
		require.NoError(t, err)
		assert.EqualValues(t, expected, result.Address.PublicKey().ToBytes())

		// A single signature pays the fee.
		balance, err := env.Client.GetBalance(funder.PublicKey().ToBytes(), env.Creator.Commitment())
		require.NoError(t, err)
		assert.EqualValues(t, wellFunded-result.Lamports-lamportsPerSignature, balance)
	})
}

func testSeedTooLong(t *testing.T, env *Environment) {
	t.Run("testSeedTooLong", func(t *testing.T) {
		ctx := context.Background()

		funder := testutil.NewRandomAccount(t)
		base := testutil.NewRandomAccount(t)

		result, err := env.Creator.CreateSeededAccount(ctx, funder, base, strings.Repeat("a", solana.MaxSeedLength+1), defaultSpace, nil)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, solana.ErrSeedTooLong))
		assert.Equal(t, creator.KindInvalidArgument, creator.Kind(err))

		_, err = env.Creator.CreateSeededAccount(ctx, funder, base, strings.Repeat("a", solana.MaxSeedLength), defaultSpace, nil)
		assert.False(t, errors.Is(err, solana.ErrSeedTooLong))
	})
}

func testMissingFunder(t *testing.T, env *Environment) {
	t.Run("testMissingFunder", func(t *testing.T) {
		ctx := context.Background()

		publicOnly, err := common.NewAccountFromPublicKey(testutil.NewRandomAccount(t).PublicKey())
		require.NoError(t, err)

		for _, funder := range []*common.Account{nil, publicOnly} {
			result, err := env.Creator.CreateFreshAccount(ctx, funder, defaultSpace)
			assert.Nil(t, result)
			assert.Equal(t, creator.ErrFunderRequired, err)
		}

		funder := newFundedAccount(t, env, wellFunded)
		result, err := env.Creator.CreateSeededAccount(ctx, funder, publicOnly, defaultSeed, defaultSpace, nil)
		assert.Nil(t, result)
		assert.Equal(t, creator.ErrBaseRequired, err)
	})
}

func testExpiredBlockhash(t *testing.T, env *Environment) {
	t.Run("testExpiredBlockhash", func(t *testing.T) {
		if env.ExpireBlockhashes == nil {
			t.Skip("environment cannot expire blockhashes")
		}

		ctx := context.Background()

		funder := newFundedAccount(t, env, wellFunded)

		prepared, err := env.Creator.Prepare(ctx, funder, creator.Fresh{}, defaultSpace)
		require.NoError(t, err)

		env.ExpireBlockhashes(t)

		result, err := env.Creator.Submit(ctx, prepared)
		assert.Nil(t, result)
		switch creator.Kind(err) {
		case creator.KindNodeRejected:
			testutil.AssertRejectedWithReason(t, err, "blockhash not found")
		case creator.KindDropped:
		default:
			assert.Fail(t, "unexpected error", "%v", err)
		}

		_, err = env.Client.GetAccountInfo(prepared.Address.PublicKey().ToBytes(), env.Creator.Commitment())
		assert.Equal(t, solana.ErrNoAccountInfo, err)
	})
}

func newFundedAccount(t *testing.T, env *Environment, lamports uint64) *common.Account {
	account := testutil.NewRandomAccount(t)
	env.Fund(t, account.PublicKey().ToBytes(), lamports)
	return account
}
