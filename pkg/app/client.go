package app

import (
	"context"

	"github.com/pkg/errors"
	xrate "golang.org/x/time/rate"

	"github.com/code-payments/solana-account-creator/pkg/config"
	"github.com/code-payments/solana-account-creator/pkg/config/env"
	"github.com/code-payments/solana-account-creator/pkg/creator"
	"github.com/code-payments/solana-account-creator/pkg/rate"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

const (
	// RequestsPerSecondConfigEnvName paces requests to the RPC node, per
	// method. Zero disables pacing.
	RequestsPerSecondConfigEnvName = "SOLANA_RPC_REQUESTS_PER_SECOND"
	defaultRequestsPerSecond       = 10

	SkipPreflightConfigEnvName = "CREATOR_SKIP_PREFLIGHT"
	defaultSkipPreflight       = false
)

type clientConf struct {
	requestsPerSecond config.Float64
	skipPreflight     config.Bool
}

func withEnvClientConfigs() *clientConf {
	return &clientConf{
		requestsPerSecond: env.NewFloat64Config(RequestsPerSecondConfigEnvName, defaultRequestsPerSecond),
		skipPreflight:     env.NewBoolConfig(SkipPreflightConfigEnvName, defaultSkipPreflight),
	}
}

// clientOptions resolves the RPC client settings. Malformed values are
// reported as creator.ErrConfigInvalid.
func (c *clientConf) clientOptions(ctx context.Context) ([]solana.Option, error) {
	requestsPerSecond, err := c.requestsPerSecond.GetSafe(ctx)
	if err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "%s: %v", RequestsPerSecondConfigEnvName, err)
	}
	if requestsPerSecond < 0 {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "%s: must not be negative", RequestsPerSecondConfigEnvName)
	}

	skipPreflight, err := c.skipPreflight.GetSafe(ctx)
	if err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "%s: %v", SkipPreflightConfigEnvName, err)
	}

	limiter := rate.Limiter(&rate.NoLimiter{})
	if requestsPerSecond > 0 {
		limiter = rate.NewLocalRateLimiter(xrate.Limit(requestsPerSecond))
	}

	return []solana.Option{
		solana.WithRateLimiter(limiter),
		solana.WithSkipPreflight(skipPreflight),
	}, nil
}
