package creator

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/code-payments/solana-account-creator/pkg/metrics"
	"github.com/code-payments/solana-account-creator/pkg/solana"
)

// RentOracle reports the balance an account needs to be exempt from rent.
// Every call queries the node; the schedule may change between runs.
type RentOracle struct {
	log    *logrus.Entry
	client solana.Client
}

func NewRentOracle(client solana.Client) *RentOracle {
	return &RentOracle{
		log:    logrus.StandardLogger().WithField("type", "creator/rent"),
		client: client,
	}
}

// MinimumBalance returns the rent exempt minimum, in lamports, for an account
// holding space bytes of data.
func (o *RentOracle) MinimumBalance(ctx context.Context, space uint64) (uint64, error) {
	tracer := metrics.TraceMethodCall(ctx, metricsStructName, "MinimumBalance")
	defer tracer.End()

	lamports, err := o.client.GetMinimumBalanceForRentExemption(space)
	if err != nil {
		tracer.OnError(err)
		return 0, errors.Wrap(err, "error getting minimum balance for rent exemption")
	}

	o.log.WithFields(logrus.Fields{
		"space":    space,
		"lamports": lamports,
	}).Debug("fetched rent exempt minimum")

	return lamports, nil
}
