package app

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"github.com/code-payments/solana-account-creator/pkg/creator"
	"github.com/code-payments/solana-account-creator/pkg/netutil"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// BaseConfig contains the process level configuration, pulled from the
// environment.
type BaseConfig struct {
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	AppName string `mapstructure:"app_name"`

	// Metrics configuration across many providers
	NewRelicLicenseKey string `mapstructure:"new_relic_license_key"`
}

var defaultConfig = BaseConfig{
	LogLevel:  "info",
	LogFormat: "text",
}

func init() {
	_ = viper.BindEnv("log_level", "LOG_LEVEL")
	_ = viper.BindEnv("log_format", "LOG_FORMAT")

	_ = viper.BindEnv("app_name", "APP_NAME")

	_ = viper.BindEnv("new_relic_license_key", "NEW_RELIC_LICENSE_KEY")
}

// CLIConfig is the configuration file written by the Solana CLI, typically
// found at ~/.config/solana/cli/config.yml.
type CLIConfig struct {
	JSONRPCURL    string            `mapstructure:"json_rpc_url"`
	WebsocketURL  string            `mapstructure:"websocket_url"`
	KeypairPath   string            `mapstructure:"keypair_path"`
	AddressLabels map[string]string `mapstructure:"address_labels"`
	Commitment    string            `mapstructure:"commitment"`
}

// DefaultCLIConfigPath returns the location the Solana CLI writes its
// configuration to.
func DefaultCLIConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = os.Getenv("HOME")
	}
	return filepath.Join(home, ".config", "solana", "cli", "config.yml")
}

// LoadCLIConfig reads and validates the Solana CLI configuration file at path.
// Every failure is reported as creator.ErrConfigInvalid.
func LoadCLIConfig(path string) (*CLIConfig, error) {
	data, err := LoadFile(path)
	if err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "error reading %s: %v", path, err)
	}

	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "error parsing %s: %v", path, err)
	}

	var config CLIConfig
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "error decoding %s: %v", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, errors.Wrapf(creator.ErrConfigInvalid, "%s: %v", path, err)
	}

	return &config, nil
}

// Validate checks the fields required to create an account.
func (c *CLIConfig) Validate() error {
	if c.JSONRPCURL == "" {
		return errors.New("json_rpc_url is required")
	}
	if err := netutil.ValidateRpcUrl(solana.ResolveEndpoint(c.JSONRPCURL)); err != nil {
		return errors.Wrap(err, "invalid json_rpc_url")
	}

	if c.KeypairPath == "" {
		return errors.New("keypair_path is required")
	}

	if _, err := c.GetCommitment(); err != nil {
		return err
	}

	return nil
}

// GetCommitment returns the configured commitment, defaulting to confirmed.
func (c *CLIConfig) GetCommitment() (solana.Commitment, error) {
	if c.Commitment == "" {
		return solana.CommitmentConfirmed, nil
	}
	return solana.ParseCommitment(c.Commitment)
}

// Label returns the configured label for address, or the address itself.
//
// Viper folds map keys to lower case, so labels are matched case
// insensitively.
func (c *CLIConfig) Label(address string) string {
	for _, key := range []string{address, strings.ToLower(address)} {
		if label, ok := c.AddressLabels[key]; ok && label != "" {
			return label
		}
	}
	return address
}
