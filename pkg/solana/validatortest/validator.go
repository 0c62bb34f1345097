// Package validatortest runs a solana-test-validator in Docker for end to end
// tests.
package validatortest

import (
	"crypto/ed25519"
	"fmt"
	"os"
	"time"

	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-account-creator/pkg/retry"
	"github.com/code-payments/solana-account-creator/pkg/retry/backoff"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

const (
	// EnabledEnv must be set to "1" for validator backed tests to run.
	EnabledEnv = "SOLANA_VALIDATOR_TESTS"

	containerName     = "solanalabs/solana"
	containerVersion  = "v1.18.26"
	containerAutoKill = 300 * time.Second

	rpcPort = 8899
)

// Enabled reports whether validator backed tests were requested.
func Enabled() bool {
	return os.Getenv(EnabledEnv) == "1"
}

// StartValidator starts a solana-test-validator container and returns its
// JSON RPC endpoint once the node is serving requests.
func StartValidator(pool *dockertest.Pool) (endpoint string, closeFunc func(), err error) {
	closeFunc = func() {}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: containerName,
		Tag:        containerVersion,
		Entrypoint: []string{"solana-test-validator"},
		Cmd:        []string{"--reset", "--quiet", "--ledger", "/tmp/ledger"},
	}, func(config *docker.HostConfig) {
		// set AutoRemove to true so that stopped container goes away by itself
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		return "", closeFunc, errors.Wrap(err, "failed to start resource")
	}

	log := logrus.StandardLogger().WithField("method", "StartValidator")

	// 2024/04/11: Expire() _never_ returns an error.
	_ = resource.Expire(uint(containerAutoKill.Seconds()))

	closeFunc = func() {
		if err := pool.Purge(resource); err != nil {
			log.WithError(err).Error("failed to cleanup validator resource")
		}
	}

	endpoint = fmt.Sprintf("http://%s", resource.GetHostPort(fmt.Sprintf("%d/tcp", rpcPort)))
	client := solana.New(endpoint)

	_, err = retry.Retry(
		func() error {
			_, err := client.GetBlockHeight(solana.CommitmentFinalized)
			return err
		},
		retry.Limit(120),
		retry.BackoffWithJitter(backoff.BinaryExponential(100*time.Millisecond), time.Second, 0.1),
	)
	if err != nil {
		closeFunc()
		return "", func() {}, errors.Wrap(err, "timed out waiting for validator to become available")
	}

	return endpoint, closeFunc, nil
}

// Fund airdrops lamports to the account and waits for the airdrop to be
// confirmed.
func Fund(client solana.Client, account ed25519.PublicKey, lamports uint64) error {
	sig, err := client.RequestAirdrop(account, lamports, solana.CommitmentConfirmed)
	if err != nil {
		return errors.Wrap(err, "failed to request airdrop")
	}

	_, err = retry.Retry(
		func() error {
			statuses, err := client.GetSignatureStatuses([]solana.Signature{sig})
			if err != nil {
				return err
			}
			if len(statuses) != 1 || statuses[0] == nil || !statuses[0].Reached(solana.CommitmentConfirmed) {
				return errors.New("airdrop not confirmed")
			}
			if statuses[0].ErrorResult != nil {
				return solana.NewRejectedError("requestAirdrop", statuses[0].ErrorResult)
			}
			return nil
		},
		retry.NonRetriableErrors(solana.ErrNodeRejected),
		retry.Limit(60),
		retry.Backoff(backoff.Constant(solana.PollRate), solana.PollRate),
	)
	return errors.Wrap(err, "airdrop not confirmed")
}
