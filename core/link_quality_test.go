package core

import (
	"math"
	"testing"
)

func TestClassifySNR(t *testing.T) {
	tests := []struct {
		snr  float64
		want LinkQuality
	}{
		{snr: math.Inf(-1), want: LinkQualityDown},
		{snr: -0.5, want: LinkQualityDown},
		{snr: 0, want: LinkQualityPoor},
		{snr: 4.99, want: LinkQualityPoor},
		{snr: 5, want: LinkQualityFair},
		{snr: 10, want: LinkQualityGood},
		{snr: 19.9, want: LinkQualityGood},
		{snr: 20, want: LinkQualityExcellent},
		{snr: 64.86, want: LinkQualityExcellent},
	}

	for _, tc := range tests {
		if got := ClassifySNR(tc.snr); got != tc.want {
			t.Fatalf("ClassifySNR(%v) = %q, want %q", tc.snr, got, tc.want)
		}
	}
}
