package memory

import (
	"crypto/ed25519"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/system"
)

const funded = 1_000_000_000

func TestRentExemption(t *testing.T) {
	n := New()

	for _, tc := range []struct {
		size     uint64
		expected uint64
	}{
		{0, 890880},
		{10, 960480},
		{165, 2039280},
	} {
		actual, err := n.GetMinimumBalanceForRentExemption(tc.size)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual)
	}
}

func TestCreateAccount(t *testing.T) {
	n := New()
	funder, target := generateKey(t), generateKey(t)
	n.Fund(public(funder), funded)

	rent := RentExemption(10)
	txn := newCreateAccount(t, n, funder, target, rent, 10)

	sig, err := n.SendTransaction(txn, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, txn.Signature(), sig)

	info, ok := n.Account(public(target))
	require.True(t, ok)
	assert.Equal(t, rent, info.Lamports)
	assert.Len(t, info.Data, 10)
	assert.EqualValues(t, system.ProgramKey[:], info.Owner)

	balance, err := n.GetBalance(public(funder), solana.CommitmentProcessed)
	require.NoError(t, err)
	assert.EqualValues(t, funded-rent-2*LamportsPerSignature, balance)

	// Duplicate submissions are rejected.
	_, err = n.SendTransaction(txn, solana.CommitmentConfirmed)
	assertRejected(t, err, "already processed")
}

func TestSignatureStatusProgression(t *testing.T) {
	n := New()
	funder, target := generateKey(t), generateKey(t)
	n.Fund(public(funder), funded)

	sig, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(0), 0), solana.CommitmentConfirmed)
	require.NoError(t, err)

	var unknown solana.Signature
	unknown[0] = 1

	statuses, err := n.GetSignatureStatuses([]solana.Signature{sig, unknown})
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	require.NotNil(t, statuses[0])
	assert.Nil(t, statuses[1])
	assert.Equal(t, solana.CommitmentConfirmed, statuses[0].Commitment())
	assert.Nil(t, statuses[0].ErrorResult)

	n.AdvanceBlocks(FinalizationDepth)

	statuses, err = n.GetSignatureStatuses([]solana.Signature{sig})
	require.NoError(t, err)
	assert.True(t, statuses[0].Finalized())
	assert.True(t, statuses[0].Reached(solana.CommitmentFinalized))
}

func TestSendTransaction_Rejections(t *testing.T) {
	t.Run("account already in use", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), funded)
		n.Fund(public(target), 1)

		_, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(10), 10), solana.CommitmentConfirmed)
		rejected := assertRejected(t, err, "custom program error: 0")
		require.NotNil(t, rejected.TxErr.InstructionError())
		assert.EqualValues(t, system.ErrorAccountAlreadyInUse, *rejected.TxErr.InstructionError().CustomError())
		assert.NotEmpty(t, rejected.Logs)
	})

	t.Run("insufficient lamports", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), RentExemption(0)+2*LamportsPerSignature)

		_, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(10), 10), solana.CommitmentConfirmed)
		rejected := assertRejected(t, err, "custom program error: 1")
		assert.EqualValues(t, system.ErrorResultWithNegativeLamports, *rejected.TxErr.InstructionError().CustomError())

		_, ok := n.Account(public(target))
		assert.False(t, ok)
	})

	t.Run("insufficient funds for rent", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), RentExemption(10)+2*LamportsPerSignature+1)

		_, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(10), 10), solana.CommitmentConfirmed)
		assertRejected(t, err, "insufficient funds for rent")
	})

	t.Run("below rent exemption", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), funded)

		_, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(10)-1, 10), solana.CommitmentConfirmed)
		assertRejected(t, err, "insufficient funds for rent")
	})

	t.Run("insufficient funds for fee", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), LamportsPerSignature)

		_, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(0), 0), solana.CommitmentConfirmed)
		assertRejected(t, err, "insufficient funds for fee")
	})

	t.Run("unknown funder", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)

		_, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(0), 0), solana.CommitmentConfirmed)
		assertRejected(t, err, "account not found")
	})

	t.Run("expired blockhash", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), funded)

		txn := newCreateAccount(t, n, funder, target, RentExemption(0), 0)
		n.AdvanceBlocks(BlockhashValidity + 1)

		_, err := n.SendTransaction(txn, solana.CommitmentConfirmed)
		assertRejected(t, err, "blockhash not found")
	})

	t.Run("unknown blockhash", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), funded)

		txn, err := solana.NewTransaction(public(funder), system.CreateAccount(public(funder), public(target), system.ProgramKey[:], RentExemption(0), 0))
		require.NoError(t, err)
		txn.SetBlockhash(solana.Blockhash{1, 2, 3})
		require.NoError(t, txn.Sign(funder, target))

		_, err = n.SendTransaction(txn, solana.CommitmentConfirmed)
		assertRejected(t, err, "blockhash not found")
	})

	t.Run("read only target", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), funded)

		instruction := system.CreateAccount(public(funder), public(target), system.ProgramKey[:], RentExemption(0), 0)
		instruction.Accounts[1].IsWritable = false

		txn, err := solana.NewTransaction(public(funder), instruction)
		require.NoError(t, err)
		bh, err := n.GetLatestBlockhash(solana.CommitmentFinalized)
		require.NoError(t, err)
		txn.SetBlockhash(bh.Blockhash)
		require.NoError(t, txn.Sign(funder, target))

		_, err = n.SendTransaction(txn, solana.CommitmentConfirmed)
		assertRejected(t, err, "readonly lamport change")

		_, ok := n.Account(public(target))
		assert.False(t, ok)
	})

	t.Run("invalid signature", func(t *testing.T) {
		n := New()
		funder, target := generateKey(t), generateKey(t)
		n.Fund(public(funder), funded)

		txn := newCreateAccount(t, n, funder, target, RentExemption(0), 0)
		txn.Signatures[1][0] ^= 0xff

		_, err := n.SendTransaction(txn, solana.CommitmentConfirmed)
		rejected := assertRejected(t, err, "signature failure")
		assert.Equal(t, signatureVerificationCode, rejected.Code)
	})
}

func TestCreateAccountWithSeed(t *testing.T) {
	n := New()
	funder, base := generateKey(t), generateKey(t)
	owner := public(generateKey(t))
	n.Fund(public(funder), funded)

	derived, err := solana.CreateWithSeed(public(base), "charondev", owner)
	require.NoError(t, err)

	rent := RentExemption(10)
	txn := newSeeded(t, n, funder, base, derived, "charondev", owner, rent, 10)

	_, err = n.SendTransaction(txn, solana.CommitmentConfirmed)
	require.NoError(t, err)

	info, ok := n.Account(derived)
	require.True(t, ok)
	assert.Equal(t, rent, info.Lamports)
	assert.EqualValues(t, owner, info.Owner)
	assert.Len(t, info.Data, 10)

	// Same derivation again collides with the existing account.
	n.AdvanceBlocks(1)
	txn = newSeeded(t, n, funder, base, derived, "charondev", owner, rent, 10)
	_, err = n.SendTransaction(txn, solana.CommitmentConfirmed)
	assertRejected(t, err, "custom program error: 0")
}

func TestCreateAccountWithSeed_FunderAsBase(t *testing.T) {
	n := New()
	funder := generateKey(t)
	n.Fund(public(funder), funded)

	derived, err := solana.CreateWithSeed(public(funder), "", system.ProgramKey[:])
	require.NoError(t, err)

	txn := newSeeded(t, n, funder, funder, derived, "", system.ProgramKey[:], RentExemption(0), 0)
	assert.Len(t, txn.Signatures, 1)

	_, err = n.SendTransaction(txn, solana.CommitmentConfirmed)
	require.NoError(t, err)

	balance, err := n.GetBalance(public(funder), solana.CommitmentProcessed)
	require.NoError(t, err)
	assert.EqualValues(t, funded-RentExemption(0)-LamportsPerSignature, balance)
}

func TestCreateAccountWithSeed_Mismatch(t *testing.T) {
	n := New()
	funder, base := generateKey(t), generateKey(t)
	n.Fund(public(funder), funded)

	wrong := public(generateKey(t))
	txn := newSeeded(t, n, funder, base, wrong, "charondev", system.ProgramKey[:], RentExemption(0), 0)

	_, err := n.SendTransaction(txn, solana.CommitmentConfirmed)
	rejected := assertRejected(t, err, "custom program error: 5")
	assert.EqualValues(t, system.ErrorAddressWithSeedMismatch, *rejected.TxErr.InstructionError().CustomError())
}

func TestSkipPreflight(t *testing.T) {
	n := New(WithSkipPreflight())
	funder, target := generateKey(t), generateKey(t)
	n.Fund(public(funder), funded)
	n.Fund(public(target), 1)

	sig, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(0), 0), solana.CommitmentConfirmed)
	require.NoError(t, err)

	statuses, err := n.GetSignatureStatuses([]solana.Signature{sig})
	require.NoError(t, err)
	require.NotNil(t, statuses[0])
	require.NotNil(t, statuses[0].ErrorResult)
	assert.Equal(t, "custom program error: 0", statuses[0].ErrorResult.Reason())

	// The fee is charged even though the transaction failed.
	balance, err := n.GetBalance(public(funder), solana.CommitmentProcessed)
	require.NoError(t, err)
	assert.EqualValues(t, funded-2*LamportsPerSignature, balance)
}

func TestDropNextTransaction(t *testing.T) {
	n := New()
	funder, target := generateKey(t), generateKey(t)
	n.Fund(public(funder), funded)

	n.DropNextTransaction()

	sig, err := n.SendTransaction(newCreateAccount(t, n, funder, target, RentExemption(0), 0), solana.CommitmentConfirmed)
	require.NoError(t, err)

	statuses, err := n.GetSignatureStatuses([]solana.Signature{sig})
	require.NoError(t, err)
	assert.Nil(t, statuses[0])

	_, ok := n.Account(public(target))
	assert.False(t, ok)
}

func TestFailNextCall(t *testing.T) {
	n := New()
	cause := errors.New("connection reset")
	n.FailNextCall(cause)

	_, err := n.GetLatestBlockhash(solana.CommitmentConfirmed)
	assert.ErrorIs(t, err, solana.ErrNetwork)
	assert.ErrorIs(t, err, cause)

	_, err = n.GetLatestBlockhash(solana.CommitmentConfirmed)
	assert.NoError(t, err)
}

func TestBlockhash(t *testing.T) {
	n := New()

	first, err := n.GetLatestBlockhash(solana.CommitmentFinalized)
	require.NoError(t, err)
	assert.EqualValues(t, n.BlockHeight()+BlockhashValidity, first.LastValidBlockHeight)

	n.AdvanceBlocks(1)

	second, err := n.GetLatestBlockhash(solana.CommitmentFinalized)
	require.NoError(t, err)
	assert.NotEqual(t, first.Blockhash, second.Blockhash)
	assert.Equal(t, first.LastValidBlockHeight+1, second.LastValidBlockHeight)

	height, err := n.GetBlockHeight(solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.Equal(t, n.BlockHeight(), height)
}

func TestRequestAirdrop(t *testing.T) {
	n := New()
	key := public(generateKey(t))

	sig, err := n.RequestAirdrop(key, 5, solana.CommitmentConfirmed)
	require.NoError(t, err)

	balance, err := n.GetBalance(key, solana.CommitmentConfirmed)
	require.NoError(t, err)
	assert.EqualValues(t, 5, balance)

	statuses, err := n.GetSignatureStatuses([]solana.Signature{sig})
	require.NoError(t, err)
	assert.NotNil(t, statuses[0])

	_, err = n.GetAccountInfo(public(generateKey(t)), solana.CommitmentConfirmed)
	assert.Equal(t, solana.ErrNoAccountInfo, err)
}

func newCreateAccount(t *testing.T, n *Node, funder, target ed25519.PrivateKey, lamports, space uint64) solana.Transaction {
	txn, err := solana.NewTransaction(
		public(funder),
		system.CreateAccount(public(funder), public(target), system.ProgramKey[:], lamports, space),
	)
	require.NoError(t, err)

	bh, err := n.GetLatestBlockhash(solana.CommitmentFinalized)
	require.NoError(t, err)
	txn.SetBlockhash(bh.Blockhash)
	require.NoError(t, txn.Sign(funder, target))

	return txn
}

func newSeeded(t *testing.T, n *Node, funder, base ed25519.PrivateKey, derived ed25519.PublicKey, seed string, owner ed25519.PublicKey, lamports, space uint64) solana.Transaction {
	txn, err := solana.NewTransaction(
		public(funder),
		system.CreateAccountWithSeed(public(funder), derived, public(base), seed, owner, lamports, space),
	)
	require.NoError(t, err)

	bh, err := n.GetLatestBlockhash(solana.CommitmentFinalized)
	require.NoError(t, err)
	txn.SetBlockhash(bh.Blockhash)
	require.NoError(t, txn.Sign(funder, base))

	return txn
}

func assertRejected(t *testing.T, err error, reason string) *solana.RejectedError {
	require.Error(t, err)
	assert.ErrorIs(t, err, solana.ErrNodeRejected)
	assert.ErrorIs(t, err, solana.ErrPreflightRejected)

	var rejected *solana.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, reason, rejected.Reason)
	return rejected
}

func generateKey(t *testing.T) ed25519.PrivateKey {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	return priv
}

func public(priv ed25519.PrivateKey) ed25519.PublicKey {
	return priv.Public().(ed25519.PublicKey)
}
