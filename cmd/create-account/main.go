// Command create-account creates a rent exempt account at a newly generated
// address, paid for by the Solana CLI's default key pair.
package main

import (
	"context"
	"os"

	"github.com/pkg/errors"

	"github.com/code-payments/solana-account-creator/pkg/app"
	envconfig "github.com/code-payments/solana-account-creator/pkg/config/env"
	"github.com/code-payments/solana-account-creator/pkg/creator"
)

const (
	SpaceConfigEnvName = "CREATE_ACCOUNT_SPACE"
	defaultSpace       = 10
)

func main() {
	os.Exit(app.Run("create-account", createAccount))
}

func createAccount(ctx context.Context, env *app.Environment) error {
	space, err := envconfig.NewUint64Config(SpaceConfigEnvName, defaultSpace).GetSafe(ctx)
	if err != nil {
		return errors.Wrapf(creator.ErrConfigInvalid, "%s: %v", SpaceConfigEnvName, err)
	}

	env.Printf("%s\n", env.Label(env.Funder))

	result, err := env.Creator.CreateFreshAccount(ctx, env.Funder, space)
	if err != nil {
		return err
	}

	env.Printf("Transaction signature: %s\n", result.Signature)
	env.Printf("New account %s created successfully\n", result.Address)
	return nil
}
