package creator

import (
	"time"

	"github.com/code-payments/solana-account-creator/pkg/config"
	"github.com/code-payments/solana-account-creator/pkg/config/env"
	"github.com/code-payments/solana-account-creator/pkg/config/memory"
	"github.com/code-payments/solana-account-creator/pkg/config/wrapper"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

const (
	envConfigPrefix = "CREATOR_"

	ConfirmationTimeoutConfigEnvName = envConfigPrefix + "CONFIRMATION_TIMEOUT"
	defaultConfirmationTimeout       = 90 * time.Second

	ConfirmationPollIntervalConfigEnvName = envConfigPrefix + "CONFIRMATION_POLL_INTERVAL"
	defaultConfirmationPollInterval       = solana.PollRate

	// FreshAccountOwnerConfigEnvName is the base58 program address assigned
	// as owner of freshly generated accounts. Empty means the system program.
	FreshAccountOwnerConfigEnvName = envConfigPrefix + "FRESH_ACCOUNT_OWNER"
	defaultFreshAccountOwner       = ""
)

type conf struct {
	confirmationTimeout      config.Duration
	confirmationPollInterval config.Duration
	freshAccountOwner        config.String
}

// ConfigProvider defines how config values are pulled
type ConfigProvider func() *conf

// WithEnvConfigs returns configuration pulled from environment variables
func WithEnvConfigs() ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout:      env.NewDurationConfig(ConfirmationTimeoutConfigEnvName, defaultConfirmationTimeout),
			confirmationPollInterval: env.NewDurationConfig(ConfirmationPollIntervalConfigEnvName, defaultConfirmationPollInterval),
			freshAccountOwner:        env.NewStringConfig(FreshAccountOwnerConfigEnvName, defaultFreshAccountOwner),
		}
	}
}

// Overrides are static configuration values, used by tests and by embedders
// that don't configure the process through the environment. Zero values fall
// back to the defaults.
type Overrides struct {
	ConfirmationTimeout      time.Duration
	ConfirmationPollInterval time.Duration
	FreshAccountOwner        string
}

// WithOverrides returns configuration pulled from static values.
func WithOverrides(overrides *Overrides) ConfigProvider {
	return func() *conf {
		return &conf{
			confirmationTimeout:      wrapper.NewDurationConfig(durationOverride(overrides.ConfirmationTimeout), defaultConfirmationTimeout),
			confirmationPollInterval: wrapper.NewDurationConfig(durationOverride(overrides.ConfirmationPollInterval), defaultConfirmationPollInterval),
			freshAccountOwner:        wrapper.NewStringConfig(memory.NewConfig(overrides.FreshAccountOwner), defaultFreshAccountOwner),
		}
	}
}

func durationOverride(value time.Duration) config.Config {
	if value <= 0 {
		return config.NoopConfig
	}
	return memory.NewConfig(value)
}
