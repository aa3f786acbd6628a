package keeper

import (
	"context"
	"time"

	"github.com/code-payments/dutch-auction/pkg/metrics"
)

const (
	auctionClosedEventName = "AuctionClosedExternally"

	checkedCountMetricName = "Keeper/checked_auctions"
	openCountMetricName    = "Keeper/open_auctions"
	closedCountMetricName  = "Keeper/closed_auctions"
	failedCountMetricName  = "Keeper/failed_auctions"
	durationMetricName     = "Keeper/reconcile_duration"
)

func recordReconcileMetrics(ctx context.Context, result *Result, duration time.Duration) {
	metrics.RecordDuration(ctx, durationMetricName, duration)
	metrics.RecordCount(ctx, checkedCountMetricName, result.Checked)
	metrics.RecordCount(ctx, openCountMetricName, result.Open)
	metrics.RecordCount(ctx, closedCountMetricName, result.Closed)
	metrics.RecordCount(ctx, failedCountMetricName, result.Failed)
}
