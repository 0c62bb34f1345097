// Package app contains the glue shared by the account creation commands:
// flag parsing, configuration, logging, metrics and the RPC client.
package app

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/code-payments/solana-account-creator/pkg/common"
	"github.com/code-payments/solana-account-creator/pkg/creator"
	"github.com/code-payments/solana-account-creator/pkg/metrics"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

const (
	ExitCodeSuccess       = 0
	ExitCodeFailure       = 1
	ExitCodeConfigInvalid = 2

	metricsShutdownTimeout = 10 * time.Second
)

// Program is the work performed by a command once the environment is set up.
type Program func(ctx context.Context, env *Environment) error

// Environment is everything a Program needs to create accounts.
type Environment struct {
	Config     *CLIConfig
	Client     solana.Client
	Creator    *creator.Creator
	Funder     *common.Account
	Commitment solana.Commitment

	// Out receives user facing output.
	Out io.Writer

	keypairs []*common.Account
}

// Printf writes user facing output.
func (e *Environment) Printf(format string, args ...interface{}) {
	fmt.Fprintf(e.Out, format, args...)
}

// Label returns the configured label of an account, or its address.
func (e *Environment) Label(account *common.Account) string {
	return e.Config.Label(account.PublicKey().ToBase58())
}

// LoadKeypair loads an additional key pair for the program. Like the
// funder, it is zeroed once the program returns.
func (e *Environment) LoadKeypair(path string) (*common.Account, error) {
	account, err := LoadKeypair(path)
	if err != nil {
		return nil, err
	}

	e.keypairs = append(e.keypairs, account)
	return account, nil
}

func (e *Environment) zero() {
	e.Funder.Zero()
	for _, account := range e.keypairs {
		account.Zero()
	}
}

// Run sets up the environment for program and runs it once, returning the
// process exit code: 0 on success, 2 when the configuration is invalid and
// 1 for any other failure.
func Run(name string, program Program, options ...Option) int {
	o := defaultOpts()
	for _, option := range options {
		option(o)
	}

	logger := logrus.StandardLogger().WithField("type", "app")

	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(o.errOut)
	configPath := fs.String("config", DefaultCLIConfigPath(), "solana cli configuration file path")
	if err := fs.Parse(o.args); err != nil {
		return ExitCodeConfigInvalid
	}
	if fs.NArg() > 0 {
		fmt.Fprintf(o.errOut, "unexpected arguments: %s\n", strings.Join(fs.Args(), " "))
		return ExitCodeConfigInvalid
	}

	config := defaultConfig
	if err := viper.Unmarshal(&config); err != nil {
		logger.WithError(err).Error("failed to unmarshal config")
		return ExitCodeConfigInvalid
	}
	if len(config.AppName) == 0 {
		config.AppName = name
	}

	// todo: Better abstraction so we're not directly tied to NR
	var metricsProvider *newrelic.Application
	if len(config.NewRelicLicenseKey) > 0 {
		nr, err := newrelic.NewApplication(
			newrelic.ConfigFromEnvironment(),
			newrelic.ConfigAppName(config.AppName),
			newrelic.ConfigLicense(config.NewRelicLicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			logger.WithError(err).Error("error connecting to new relic")
			return ExitCodeConfigInvalid
		}

		metricsProvider = nr
		defer nr.Shutdown(metricsShutdownTimeout)
	}

	configureLogger(config, metricsProvider)

	ctx := metrics.NewContext(context.Background(), metricsProvider)

	env, err := newEnvironment(ctx, *configPath, o)
	if err != nil {
		fmt.Fprintf(o.errOut, "Error: %v\n", err)
		logger.WithError(err).Error("failed to set up environment")
		return exitCode(err)
	}
	defer env.zero()

	if err := program(ctx, env); err != nil {
		fmt.Fprintf(o.errOut, "Error: %v\n", err)
		logger.WithError(err).WithField("kind", creator.Kind(err).String()).Error("program failed")
		return exitCode(err)
	}

	return ExitCodeSuccess
}

func newEnvironment(ctx context.Context, configPath string, o *opts) (*Environment, error) {
	clientOptions, err := withEnvClientConfigs().clientOptions(ctx)
	if err != nil {
		return nil, err
	}

	cliConfig, err := LoadCLIConfig(configPath)
	if err != nil {
		return nil, err
	}

	commitment, err := cliConfig.GetCommitment()
	if err != nil {
		return nil, errors.Wrap(creator.ErrConfigInvalid, err.Error())
	}

	funder, err := LoadKeypair(cliConfig.KeypairPath)
	if err != nil {
		return nil, err
	}

	client := o.client
	if client == nil {
		client = solana.New(solana.ResolveEndpoint(cliConfig.JSONRPCURL), clientOptions...)
	}

	return &Environment{
		Config:     cliConfig,
		Client:     client,
		Creator:    creator.New(client, commitment, creator.WithEnvConfigs()),
		Funder:     funder,
		Commitment: commitment,
		Out:        o.out,
	}, nil
}

// LoadKeypair loads a key pair file written by solana-keygen. Every failure
// is reported as creator.ErrConfigInvalid.
func LoadKeypair(path string) (*common.Account, error) {
	data, err := LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "error reading keypair %s: %v", path, err)
	}

	account, err := common.NewAccountFromKeypairJSON(data)
	if err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "error parsing keypair %s: %v", path, err)
	}
	return account, nil
}

func exitCode(err error) int {
	if creator.Kind(err) == creator.KindConfigInvalid {
		return ExitCodeConfigInvalid
	}
	return ExitCodeFailure
}

func configureLogger(config BaseConfig, metricsProvider *newrelic.Application) {
	var formatter logrus.Formatter = &logrus.TextFormatter{}
	if strings.EqualFold(config.LogFormat, "json") {
		formatter = &logrus.JSONFormatter{}
	}

	if metricsProvider != nil {
		logrus.SetFormatter(metrics.NewCustomNewRelicLogFormatter(metricsProvider, formatter))
	} else {
		logrus.SetFormatter(formatter)
	}

	level, err := logrus.ParseLevel(strings.ToLower(config.LogLevel))
	if err != nil {
		logrus.StandardLogger().WithField("log_level", config.LogLevel).Warn("unknown log level, ignoring")
	} else {
		logrus.SetLevel(level)
	}

	// User facing output goes to stdout.
	logrus.SetOutput(os.Stderr)
}
