// Command create-account-with-seed creates a rent exempt account at an
// address derived from a base key and a seed, paid for by the Solana CLI's
// default key pair.
//
// The base key pair is read from CREATE_ACCOUNT_BASE_KEYPAIR_PATH and zeroed
// once the run completes. When unset, the funder is used as the base.
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

	SeedConfigEnvName = "CREATE_ACCOUNT_SEED"
	defaultSeed       = "charondev"

	BaseKeypairPathConfigEnvName = "CREATE_ACCOUNT_BASE_KEYPAIR_PATH"
	defaultBaseKeypairPath       = ""
)

func main() {
	os.Exit(app.Run("create-account-with-seed", createAccountWithSeed))
}

func createAccountWithSeed(ctx context.Context, env *app.Environment) error {
	space, err := envconfig.NewUint64Config(SpaceConfigEnvName, defaultSpace).GetSafe(ctx)
	if err != nil {
		return errors.Wrapf(creator.ErrConfigInvalid, "%s: %v", SpaceConfigEnvName, err)
	}
	seed := envconfig.NewStringConfig(SeedConfigEnvName, defaultSeed).Get(ctx)
	baseKeypairPath := envconfig.NewStringConfig(BaseKeypairPathConfigEnvName, defaultBaseKeypairPath).Get(ctx)

	base := env.Funder
	if baseKeypairPath != "" {
		base, err = env.LoadKeypair(baseKeypairPath)
		if err != nil {
			return err
		}
	}

	env.Printf("%s\n", env.Label(env.Funder))
	env.Printf("Base account: %s\n", env.Label(base))

	result, err := env.Creator.CreateSeededAccount(ctx, env.Funder, base, seed, space, nil)
	if err != nil {
		return err
	}

	env.Printf("Transaction signature: %s\n", result.Signature)
	env.Printf("New account %s created successfully with seed %q\n", result.Address, result.Seed)
	return nil
}
