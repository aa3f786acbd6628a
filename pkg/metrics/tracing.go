package metrics

import (
	"context"
	"fmt"

	"github.com/newrelic/go-agent/v3/newrelic"
)

// StartBackgroundTransaction starts a New Relic transaction for work that
// doesn't originate from a request, such as a scheduled job. The returned
// context carries the transaction, so TraceMethodCall records segments under
// it. Without an application in ctx it's a no-op.
func StartBackgroundTransaction(ctx context.Context, name string) (context.Context, func()) {
	app, ok := ctx.Value(NewRelicContextKey{}).(*newrelic.Application)
	if !ok || app == nil {
		return ctx, func() {}
	}

	txn := app.StartTransaction(name)
	return newrelic.NewContext(ctx, txn), txn.End
}

// TraceMethodCall traces a method call with a given struct/package and method
// names. It returns nil, which is safe to use, outside of a transaction.
func TraceMethodCall(ctx context.Context, structOrPackageName, methodName string) *MethodTracer {
	txn := newrelic.FromContext(ctx)
	if txn == nil {
		return nil
	}

	return &MethodTracer{
		txn: txn,
		seg: txn.StartSegment(fmt.Sprintf("%s %s", structOrPackageName, methodName)),
	}
}

// MethodTracer collects analytics for a method call within a transaction.
type MethodTracer struct {
	txn *newrelic.Transaction
	seg *newrelic.Segment
}

// AddAttribute adds key-value metadata to the method trace
func (t *MethodTracer) AddAttribute(key string, value interface{}) {
	if t == nil {
		return
	}
	t.seg.AddAttribute(key, value)
}

// OnError notices a non-nil error on the transaction
func (t *MethodTracer) OnError(err error) {
	if t == nil || err == nil {
		return
	}
	t.txn.NoticeError(err)
}

// End completes the trace for the method call.
func (t *MethodTracer) End() {
	if t == nil {
		return
	}
	t.seg.End()
}
