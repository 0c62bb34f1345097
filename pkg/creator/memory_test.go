package creator_test

import (
	"crypto/ed25519"
	"testing"
	"time"

	"github.com/code-payments/solana-account-creator/pkg/creator"
	"github.com/code-payments/solana-account-creator/pkg/creator/tests"
	"github.com/code-payments/solana-account-creator/pkg/solana"
	"github.com/code-payments/solana-account-creator/pkg/solana/memory"
)

func TestCreator_MemoryNode(t *testing.T) {
	for _, commitment := range []solana.Commitment{
		solana.CommitmentProcessed,
		solana.CommitmentConfirmed,
		solana.CommitmentFinalized,
	} {
		t.Run(commitment.String(), func(t *testing.T) {
			node := memory.New()
			env := &tests.Environment{
				Client: node,
				Creator: creator.New(node, commitment, creator.WithOverrides(&creator.Overrides{
					ConfirmationTimeout:      10 * time.Second,
					ConfirmationPollInterval: time.Millisecond,
				})),
				Fund: func(_ *testing.T, account ed25519.PublicKey, lamports uint64) {
					node.Fund(account, lamports)
				},
				ExpireBlockhashes: func(_ *testing.T) {
					node.AdvanceBlocks(memory.BlockhashValidity + 1)
				},
			}

			tests.RunTests(t, env, func() {})
		})
	}
}
