package core

import (
	"errors"
	"fmt"
	"math"
	"strconv"
)

const (
	// SpeedOfLight in metres per second.
	SpeedOfLight = 2.99792458e8

	// LineLossDB is the fixed transmitter-to-antenna line loss.
	LineLossDB = 1.0
	// AtmosphericLossDB is the fixed atmospheric loss. Free space only.
	AtmosphericLossDB = 0.0
)

// ValidationMessage is the user-facing text for any ValidationError.
const ValidationMessage = "All input parameters must be positive numbers."

// ErrNonFinite is returned when a derived value overflows or otherwise
// evaluates to NaN or an infinity.
var ErrNonFinite = errors.New("non-finite result")

// ValidationError reports an input that must be strictly positive but
// is not.
type ValidationError struct {
	Field string
	Value float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s must be positive, got %v", e.Field, e.Value)
}

// LinkBudget is the input record for a single capacity evaluation.
// Gains are in dB and may be zero or negative; every other field must
// be strictly positive.
type LinkBudget struct {
	TxPowerW      float64 `json:"tx_w" mapstructure:"tx_w"`
	TxGainDB      float64 `json:"tx_gain_db" mapstructure:"tx_gain_db"`
	FrequencyHz   float64 `json:"freq_hz" mapstructure:"freq_hz"`
	DistanceKm    float64 `json:"dist_km" mapstructure:"dist_km"`
	RxGainDB      float64 `json:"rx_gain_db" mapstructure:"rx_gain_db"`
	NoiseDensityJ float64 `json:"n0_j" mapstructure:"n0_j"`
	BandwidthHz   float64 `json:"bw_hz" mapstructure:"bw_hz"`
}

// LinkResult holds every derived value of an evaluation, in the order
// they are computed.
type LinkResult struct {
	PathLossDB       float64     `json:"path_loss_db"`
	ReceivedPowerDBW float64     `json:"received_power_dbw"`
	ReceivedPowerW   float64     `json:"received_power_w"`
	NoisePowerW      float64     `json:"noise_power_w"`
	SNRDB            float64     `json:"snr_db"`
	CapacityBps      float64     `json:"capacity_bps"`
	MaxBitrateBps    float64     `json:"max_bitrate_bps"`
	Quality          LinkQuality `json:"quality"`
}

// Validate checks the positivity constraints. The first offending field
// is reported, in argument order.
func (lb LinkBudget) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"tx_w", lb.TxPowerW},
		{"freq_hz", lb.FrequencyHz},
		{"dist_km", lb.DistanceKm},
		{"n0_j", lb.NoiseDensityJ},
		{"bw_hz", lb.BandwidthHz},
	}
	for _, c := range checks {
		// NaN fails this comparison too.
		if !(c.value > 0) {
			return &ValidationError{Field: c.field, Value: c.value}
		}
	}
	return nil
}

// Evaluate validates the budget and computes the Shannon-Hartley
// capacity. Nothing is computed when validation fails.
func (lb LinkBudget) Evaluate() (LinkResult, error) {
	if err := lb.Validate(); err != nil {
		return LinkResult{}, err
	}

	var res LinkResult
	res.PathLossDB = FreeSpacePathLossDB(lb.DistanceKm, lb.FrequencyHz)

	// Pt + Gt - line loss - FSPL - atmospheric loss + Gr, all in dB.
	res.ReceivedPowerDBW = LinearToDB(lb.TxPowerW) + lb.TxGainDB - LineLossDB -
		res.PathLossDB - AtmosphericLossDB + lb.RxGainDB
	res.ReceivedPowerW = DBToLinear(res.ReceivedPowerDBW)
	res.NoisePowerW = lb.NoiseDensityJ * lb.BandwidthHz

	snr := res.ReceivedPowerW / res.NoisePowerW
	res.SNRDB = LinearToDB(snr)
	res.Quality = ClassifySNR(res.SNRDB)

	res.CapacityBps = ShannonCapacity(lb.BandwidthHz, snr)
	if math.IsNaN(res.CapacityBps) || math.IsInf(res.CapacityBps, 0) {
		return res, fmt.Errorf("%w: capacity = %v bps", ErrNonFinite, res.CapacityBps)
	}
	res.MaxBitrateBps = math.Floor(res.CapacityBps)
	return res, nil
}

// FreeSpacePathLossDB returns the free-space path loss for a distance in
// kilometres and a carrier frequency in hertz.
func FreeSpacePathLossDB(distanceKm, frequencyHz float64) float64 {
	distanceM := distanceKm * 1000
	return 20*math.Log10(distanceM) + 20*math.Log10(frequencyHz) - 20*math.Log10(SpeedOfLight)
}

// ShannonCapacity is B*log2(1+SNR) for a linear SNR.
func ShannonCapacity(bandwidthHz, snrLinear float64) float64 {
	return bandwidthHz * math.Log2(1+snrLinear)
}

// LinearToDB converts a power ratio (or watts) to decibels (or dBW).
func LinearToDB(v float64) float64 { return 10 * math.Log10(v) }

// DBToLinear is the inverse of LinearToDB.
func DBToLinear(db float64) float64 { return math.Pow(10, db/10) }

// FormatBitrate renders MaxBitrateBps as a bare decimal integer with no
// exponent, however large.
func (r LinkResult) FormatBitrate() string {
	return strconv.FormatFloat(r.MaxBitrateBps, 'f', 0, 64)
}
