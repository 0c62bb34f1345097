package creator

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-account-creator/pkg/metrics"
	"github.com/code-payments/solana-account-creator/pkg/retry"
	"github.com/code-payments/solana-account-creator/pkg/retry/backoff"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

const landedTransactionMethod = "transaction"

// errNotYetReached signals that polling should continue.
var errNotYetReached = errors.New("commitment not yet reached")

// Submitter sends signed transactions and waits for them to reach a
// commitment level.
type Submitter struct {
	log        *logrus.Entry
	conf       *conf
	client     solana.Client
	commitment solana.Commitment
}

func NewSubmitter(client solana.Client, commitment solana.Commitment, configProvider ConfigProvider) *Submitter {
	return &Submitter{
		log:        logrus.StandardLogger().WithField("type", "creator/submitter"),
		conf:       configProvider(),
		client:     client,
		commitment: commitment,
	}
}

// SubmitAndAwait submits txn and blocks until it reaches the submitter's
// commitment level. The signature is returned alongside any error, since it
// identifies the transaction even when the outcome is unknown.
//
// The returned error is ErrDropped if the block height passes
// lastValidBlockHeight without the transaction landing, ErrTimeout if the
// confirmation timeout elapses first, or a *solana.RejectedError if the node
// refused or failed the transaction. Transport errors are returned as is.
func (s *Submitter) SubmitAndAwait(ctx context.Context, txn *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "SubmitAndAwait")
	defer tracer.End()

	sig, state, err := s.submitAndAwait(ctx, txn, lastValidBlockHeight)
	tracer.AddAttributes(map[string]interface{}{
		"signature": sig.String(),
		"state":     state.String(),
	})
	tracer.OnError(err)
	return sig, err
}

func (s *Submitter) submitAndAwait(ctx context.Context, txn *solana.Transaction, lastValidBlockHeight uint64) (solana.Signature, State, error) {
	sig := txn.Signature()
	log := s.log.WithFields(logrus.Fields{
		"method":     "SubmitAndAwait",
		"signature":  sig.String(),
		"commitment": s.commitment.String(),
	})

	if err := txn.Verify(); err != nil {
		return sig, StateBuilt, errors.Wrap(err, "transaction is not fully signed")
	}

	// Logged before submission so the transaction can be looked up even if
	// this process never observes the outcome.
	log.Info("submitting transaction")

	state := newTracker(log, StateSigned)

	if _, err := s.client.SendTransaction(*txn, s.commitment); err != nil {
		var rejected *solana.RejectedError
		if errors.As(err, &rejected) {
			describeRejection(txn, rejected)
			_ = state.advance(StateRejected)
			log.WithError(err).Info("transaction rejected")
		} else {
			log.WithError(err).Warn("failure submitting transaction")
		}
		return sig, state.state, errors.Wrap(err, "error submitting transaction")
	}
	_ = state.advance(StateSubmitted)

	start := time.Now()
	timeout := s.conf.confirmationTimeout.Get(ctx)
	deadline := start.Add(timeout)
	if ctxDeadline, ok := ctx.Deadline(); ok && ctxDeadline.Before(deadline) {
		deadline = ctxDeadline
	}
	pollInterval := s.conf.confirmationPollInterval.Get(ctx)

	polls, err := retry.Retry(
		func() error {
			return s.poll(ctx, txn, lastValidBlockHeight, state)
		},
		retry.RetriableErrors(errNotYetReached),
		retry.Deadline(deadline),
		retry.Backoff(backoff.Constant(pollInterval), pollInterval),
	)
	recordStatusPolls(ctx, polls)

	switch {
	case err == nil:
		recordConfirmationLatency(ctx, time.Since(start))
		log.WithField("state", state.state.String()).Info("transaction reached commitment")
		return sig, state.state, nil
	case errors.Is(err, errNotYetReached):
		log.WithField("timeout", timeout).Warn("timed out waiting for confirmation")
		return sig, state.state, errors.Wrapf(ErrTimeout, "signature %s", sig)
	case errors.Is(err, ErrDropped):
		_ = state.advance(StateDropped)
		log.Warn("transaction dropped")
		return sig, state.state, err
	default:
		var rejected *solana.RejectedError
		if errors.As(err, &rejected) {
			_ = state.advance(StateRejected)
			log.WithError(err).Info("transaction failed")
			return sig, state.state, err
		}

		log.WithError(err).Warn("failure polling transaction status")
		return sig, state.state, err
	}
}

// poll performs a single status check. It returns nil once the commitment
// is reached and errNotYetReached while the transaction may still progress.
func (s *Submitter) poll(ctx context.Context, txn *solana.Transaction, lastValidBlockHeight uint64, state *tracker) error {
	// An expired context deadline is handled by the Deadline strategy.
	if errors.Is(ctx.Err(), context.Canceled) {
		return ctx.Err()
	}

	// The block height is read before the status. If the transaction is not
	// found afterwards, it was not included by that height either.
	height, err := s.client.GetBlockHeight(s.commitment)
	if err != nil {
		return errors.Wrap(err, "error getting block height")
	}

	statuses, err := s.client.GetSignatureStatuses([]solana.Signature{txn.Signature()})
	if err != nil {
		return errors.Wrap(err, "error getting signature status")
	}
	if len(statuses) != 1 {
		return errors.Wrapf(solana.ErrMalformedResponse, "expected 1 status, got %d", len(statuses))
	}

	status := statuses[0]
	if status == nil {
		if height > lastValidBlockHeight {
			return errors.Wrapf(ErrDropped, "block height %d passed %d", height, lastValidBlockHeight)
		}
		return errNotYetReached
	}

	if status.ErrorResult != nil {
		rejected := solana.NewRejectedError(landedTransactionMethod, status.ErrorResult)
		describeRejection(txn, rejected)
		return rejected
	}

	// Nodes behind a load balancer may briefly report a lower level than one
	// already observed.
	if observed := stateForCommitment(status.Commitment()); observed > state.state {
		if err := state.advance(observed); err != nil {
			return err
		}
	}

	if status.Reached(s.commitment) {
		return nil
	}
	return errNotYetReached
}
