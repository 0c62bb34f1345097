package metrics

import (
	"context"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// NewRelicContextKey is the context key for the *newrelic.Application used
// to record metrics and events.
type NewRelicContextKey struct{}

// NewContext returns a context carrying the New Relic application. A nil app
// leaves the context unchanged, making every metric call a no-op.
func NewContext(ctx context.Context, app *newrelic.Application) context.Context {
	if app == nil {
		return ctx
	}
	return context.WithValue(ctx, NewRelicContextKey{}, app)
}

// StartTransaction starts a New Relic transaction for a unit of work, if an
// application is present in the context. The returned function ends it.
func StartTransaction(ctx context.Context, name string) (context.Context, func()) {
	nr, ok := ctx.Value(NewRelicContextKey{}).(*newrelic.Application)
	if !ok {
		return ctx, func() {}
	}

	txn := nr.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}
