package capacity

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/linkcap/internal/logging"
	"github.com/signalsfoundry/linkcap/internal/observability"
)

// Service implements CapacityServiceServer on top of core.LinkBudget.
// It holds no per-request state and is safe for concurrent use.
type Service struct {
	collector *observability.Collector
	log       logging.Logger
}

// NewService constructs a Service. Both arguments may be nil.
func NewService(collector *observability.Collector, log logging.Logger) *Service {
	if log == nil {
		log = logging.Noop()
	}
	return &Service{collector: collector, log: log}
}

// Evaluate decodes the request, runs the link budget and returns every
// derived value. Validation failures map to InvalidArgument.
func (s *Service) Evaluate(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	log := logging.FromContext(ctx, s.log)

	lb, err := DecodeLinkBudget(req)
	if err != nil {
		log.Warn(ctx, "rejecting evaluate request", logging.Error(err))
		return nil, ToStatusError(err)
	}

	res, err := observability.Evaluate(ctx, s.collector, observability.SourceGRPC, lb)
	if err != nil {
		log.Warn(ctx, "evaluation failed", logging.Error(err))
		return nil, ToStatusError(err)
	}

	log.Debug(ctx, "evaluated link budget",
		logging.String("max_bitrate_bps", res.FormatBitrate()),
		logging.Float64("snr_db", res.SNRDB),
		logging.String("quality", string(res.Quality)),
	)

	resp, err := EncodeResult(res)
	if err != nil {
		return nil, ToStatusError(err)
	}
	return resp, nil
}
