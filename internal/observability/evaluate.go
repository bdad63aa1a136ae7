package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/signalsfoundry/linkcap/core"
	"github.com/signalsfoundry/linkcap/internal/logging"
)

// Evaluate runs lb.Evaluate inside a "linkcap.evaluate" span and records
// the outcome on c. c may be nil.
func Evaluate(ctx context.Context, c *Collector, source string, lb core.LinkBudget) (core.LinkResult, error) {
	attrs := []attribute.KeyValue{
		attribute.String("linkcap.source", source),
		attribute.Float64("linkcap.tx_w", lb.TxPowerW),
		attribute.Float64("linkcap.freq_hz", lb.FrequencyHz),
		attribute.Float64("linkcap.dist_km", lb.DistanceKm),
		attribute.Float64("linkcap.bw_hz", lb.BandwidthHz),
	}
	if id := logging.RequestIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("request_id", id))
	}
	_, span := StartSpan(ctx, "linkcap.evaluate", attrs...)
	defer span.End()

	res, err := lb.Evaluate()
	c.ObserveEvaluation(source, res, err)

	span.SetAttributes(attribute.String("linkcap.outcome", Outcome(err)))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return res, err
	}
	span.SetAttributes(
		attribute.Float64("linkcap.path_loss_db", res.PathLossDB),
		attribute.Float64("linkcap.snr_db", res.SNRDB),
		attribute.String("linkcap.max_bitrate_bps", res.FormatBitrate()),
		attribute.String("linkcap.quality", string(res.Quality)),
	)
	return res, nil
}
