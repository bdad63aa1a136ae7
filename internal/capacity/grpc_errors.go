package capacity

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/linkcap/core"
)

// ErrInvalidRequest is a package-level sentinel for requests that cannot
// be decoded into a LinkBudget.
var ErrInvalidRequest = errors.New("invalid request")

// ToStatusError maps evaluation and decoding errors onto gRPC status codes.
func ToStatusError(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var verr *core.ValidationError
	switch {
	case errors.As(err, &verr):
		return status.Errorf(codes.InvalidArgument, "%s (%v)", core.ValidationMessage, verr)

	case errors.Is(err, ErrInvalidRequest):
		return status.Error(codes.InvalidArgument, err.Error())

	case errors.Is(err, core.ErrNonFinite):
		return status.Error(codes.OutOfRange, err.Error())

	default:
		return status.Error(codes.Internal, err.Error())
	}
}
