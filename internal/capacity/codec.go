package capacity

import (
	"fmt"
	"math"

	"github.com/mitchellh/mapstructure"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/signalsfoundry/linkcap/core"
)

// DecodeLinkBudget converts an Evaluate request into a LinkBudget. Every
// field is required, unknown keys are rejected and values must be finite
// numbers.
func DecodeLinkBudget(req *structpb.Struct) (core.LinkBudget, error) {
	var lb core.LinkBudget
	if req == nil {
		return lb, fmt.Errorf("%w: request is required", ErrInvalidRequest)
	}

	for key, v := range req.GetFields() {
		if _, ok := v.GetKind().(*structpb.Value_NumberValue); !ok {
			return lb, fmt.Errorf("%w: %s must be a number", ErrInvalidRequest, key)
		}
	}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused: true,
		ErrorUnset:  true,
		Result:      &lb,
	})
	if err != nil {
		return lb, err
	}
	if err := dec.Decode(req.AsMap()); err != nil {
		return core.LinkBudget{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	for name, v := range map[string]float64{
		"tx_w":       lb.TxPowerW,
		"tx_gain_db": lb.TxGainDB,
		"freq_hz":    lb.FrequencyHz,
		"dist_km":    lb.DistanceKm,
		"rx_gain_db": lb.RxGainDB,
		"n0_j":       lb.NoiseDensityJ,
		"bw_hz":      lb.BandwidthHz,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return core.LinkBudget{}, fmt.Errorf("%w: %s must be a finite number", ErrInvalidRequest, name)
		}
	}
	return lb, nil
}

// EncodeLinkBudget is the inverse of DecodeLinkBudget.
func EncodeLinkBudget(lb core.LinkBudget) (*structpb.Struct, error) {
	var m map[string]any
	if err := mapstructure.Decode(lb, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}

// EncodeResult renders a LinkResult as an Evaluate response.
// max_bitrate carries the exact integer as a decimal string because
// max_bitrate_bps, as a double, cannot hold integers above 2^53 exactly.
// Non-finite values, such as snr_db once received power underflows to
// 0 W, are omitted since google.protobuf.Value cannot carry them in JSON.
func EncodeResult(res core.LinkResult) (*structpb.Struct, error) {
	fields := map[string]any{
		"max_bitrate_bps":    res.MaxBitrateBps,
		"max_bitrate":        res.FormatBitrate(),
		"capacity_bps":       res.CapacityBps,
		"path_loss_db":       res.PathLossDB,
		"received_power_dbw": res.ReceivedPowerDBW,
		"received_power_w":   res.ReceivedPowerW,
		"noise_power_w":      res.NoisePowerW,
		"snr_db":             res.SNRDB,
		"quality":            string(res.Quality),
	}
	for key, v := range fields {
		if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			delete(fields, key)
		}
	}
	return structpb.NewStruct(fields)
}
