package core

// LinkQuality is a coarse, human-readable classification of link
// quality derived from the SNR.
type LinkQuality string

const (
	LinkQualityDown      LinkQuality = "down"
	LinkQualityPoor      LinkQuality = "poor"
	LinkQualityFair      LinkQuality = "fair"
	LinkQualityGood      LinkQuality = "good"
	LinkQualityExcellent LinkQuality = "excellent"
)

// ClassifySNR maps an SNR in dB onto a LinkQuality. Thresholds are soft
// and informational; they never change the computed capacity.
func ClassifySNR(snrDB float64) LinkQuality {
	switch {
	case snrDB < 0:
		return LinkQualityDown
	case snrDB < 5:
		return LinkQualityPoor
	case snrDB < 10:
		return LinkQualityFair
	case snrDB < 20:
		return LinkQualityGood
	default:
		return LinkQualityExcellent
	}
}
