package creator

import (
	"context"
	"time"

	"github.com/code-payments/solana-account-creator/pkg/metrics"
)

const (
	metricsStructName = "creator"

	accountCreationTransactionName = "AccountCreation"

	accountCreationEventName      = "AccountCreationRun"
	confirmationLatencyMetricName = "AccountCreation.ConfirmationLatency"
	statusPollsMetricName         = "AccountCreation.StatusPolls"
)

func recordAccountCreationEvent(ctx context.Context, runID string, mode CreationMode, space, lamports uint64, err error) {
	outcome := "success"
	if err != nil {
		outcome = Kind(err).String()
	}

	metrics.RecordEvent(ctx, accountCreationEventName, map[string]interface{}{
		"run_id":   runID,
		"mode":     modeName(mode),
		"space":    space,
		"lamports": lamports,
		"outcome":  outcome,
	})
}

func recordConfirmationLatency(ctx context.Context, latency time.Duration) {
	metrics.RecordDuration(ctx, confirmationLatencyMetricName, latency)
}

func recordStatusPolls(ctx context.Context, polls uint) {
	metrics.RecordCount(ctx, statusPollsMetricName, uint64(polls))
}
