package testutil

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// AssertRejectedWithReason verifies that the provided error is a node
// rejection with the provided reason.
func AssertRejectedWithReason(t *testing.T, err error, reason string) *solana.RejectedError {
	require.Error(t, err)
	assert.True(t, errors.Is(err, solana.ErrNodeRejected), err.Error())

	var rejected *solana.RejectedError
	require.True(t, errors.As(err, &rejected))
	assert.Equal(t, reason, rejected.Reason)
	return rejected
}
