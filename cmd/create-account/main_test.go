package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/code-payments/solana-account-creator/pkg/app"
	"github.com/code-payments/solana-account-creator/pkg/common"
	"github.com/code-payments/solana-account-creator/pkg/creator"
	"github.com/code-payments/solana-account-creator/pkg/solana/memory"
	"github.com/code-payments/solana-account-creator/pkg/testutil"
)

func TestCreateAccount(t *testing.T) {
	t.Setenv("LOG_LEVEL", "panic")
	t.Setenv(creator.ConfirmationPollIntervalConfigEnvName, "1ms")

	node := memory.New()
	funder := testutil.NewRandomAccount(t)
	node.Fund(funder.PublicKey().ToBytes(), 10_000_000_000)

	var out bytes.Buffer
	code := app.Run("create-account", createAccount,
		app.WithClient(node),
		app.WithOutput(&out),
		app.WithArgs([]string{"-config", testutil.WriteSolanaCLIConfig(t, funder, "confirmed")}),
	)
	require.Equal(t, app.ExitCodeSuccess, code, out.String())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, funder.PublicKey().ToBase58(), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Transaction signature: "))

	address := strings.TrimSuffix(strings.TrimPrefix(lines[2], "New account "), " created successfully")
	account, err := common.NewAccountFromPublicKeyString(address)
	require.NoError(t, err)

	info, ok := node.Account(account.PublicKey().ToBytes())
	require.True(t, ok)
	assert.Len(t, info.Data, defaultSpace)
	assert.Equal(t, memory.RentExemption(defaultSpace), info.Lamports)
}

func TestCreateAccount_Space(t *testing.T) {
	t.Setenv("LOG_LEVEL", "panic")
	t.Setenv(creator.ConfirmationPollIntervalConfigEnvName, "1ms")

	funder := testutil.NewRandomAccount(t)
	configPath := testutil.WriteSolanaCLIConfig(t, funder, "confirmed")

	t.Setenv(SpaceConfigEnvName, "not-a-number")
	code := app.Run("create-account", createAccount,
		app.WithClient(memory.New()),
		app.WithOutput(&bytes.Buffer{}),
		app.WithArgs([]string{"-config", configPath}),
	)
	assert.Equal(t, app.ExitCodeConfigInvalid, code)

	// An unfunded payer is rejected by the node.
	t.Setenv(SpaceConfigEnvName, "165")
	var out, errOut bytes.Buffer
	code = app.Run("create-account", createAccount,
		app.WithClient(memory.New()),
		app.WithOutput(&out),
		app.WithErrorOutput(&errOut),
		app.WithArgs([]string{"-config", configPath}),
	)
	assert.Equal(t, app.ExitCodeFailure, code)
	assert.True(t, strings.HasPrefix(errOut.String(), "Error: "), errOut.String())
	assert.NotContains(t, out.String(), "Error: ")
}
