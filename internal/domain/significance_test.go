package domain

import (
	"math"
	"testing"
)

// fillAggregate returns an aggregate with n quality samples drawn from the
// given values, cycling when n exceeds len(values).
func fillAggregate(n int, values ...float64) *VariantAggregate {
	agg := NewVariantAggregate()
	for i := 0; i < n; i++ {
		q := values[i%len(values)]
		agg.Apply(&CallOutcome{
			TestID: "t", Variant: VariantA, Scenario: "s",
			QualityScore: &q, OccurredOn: "2024-05-01",
		})
	}
	return agg
}

func TestComputeSignificance_MinSamplesGuard(t *testing.T) {
	tests := []struct {
		name   string
		nA, nB int
	}{
		{"both thin", 10, 10},
		{"a thin", 10, 40},
		{"b thin", 40, 10},
		{"boundary", 29, 30},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Huge mean gap must not matter below the threshold.
			a := fillAggregate(tt.nA, 0.95)
			b := fillAggregate(tt.nB, 0.05)
			res := ComputeSignificance(a, b, SignificanceConfig{})

			if !res.MinSamplesNeeded {
				t.Error("MinSamplesNeeded = false, want true")
			}
			if res.IsSignificant {
				t.Error("IsSignificant = true on thin data")
			}
			if res.RecommendedVariant != nil {
				t.Errorf("RecommendedVariant = %v, want nil", *res.RecommendedVariant)
			}
			if res.ZScore != nil || res.PValue != nil {
				t.Error("z/p must not be computed on thin data")
			}
		})
	}
}

func TestComputeSignificance_ClearWinner(t *testing.T) {
	a := fillAggregate(40, 0.9, 0.85, 0.95)
	b := fillAggregate(40, 0.6, 0.55, 0.65)

	res := ComputeSignificance(a, b, SignificanceConfig{})

	if res.MinSamplesNeeded {
		t.Fatal("MinSamplesNeeded = true with 40 samples per arm")
	}
	if !res.IsSignificant {
		t.Fatalf("IsSignificant = false, p = %v", res.PValue)
	}
	if res.RecommendedVariant == nil || *res.RecommendedVariant != VariantA {
		t.Errorf("RecommendedVariant = %v, want A", res.RecommendedVariant)
	}
	if res.ZScore == nil || *res.ZScore <= 0 {
		t.Errorf("ZScore = %v, want positive", res.ZScore)
	}
	if res.PValue == nil || *res.PValue >= DefaultAlpha {
		t.Errorf("PValue = %v, want < %v", res.PValue, DefaultAlpha)
	}
}

// Swapping the arms must flip the recommendation and keep p unchanged.
func TestComputeSignificance_Symmetry(t *testing.T) {
	a := fillAggregate(50, 0.9, 0.8)
	b := fillAggregate(60, 0.5, 0.6)

	fwd := ComputeSignificance(a, b, SignificanceConfig{})
	rev := ComputeSignificance(b, a, SignificanceConfig{})

	if fwd.IsSignificant != rev.IsSignificant {
		t.Errorf("IsSignificant differs: %v vs %v", fwd.IsSignificant, rev.IsSignificant)
	}
	if math.Abs(*fwd.PValue-*rev.PValue) > 1e-12 {
		t.Errorf("PValue differs: %v vs %v", *fwd.PValue, *rev.PValue)
	}
	if math.Abs(*fwd.ZScore+*rev.ZScore) > 1e-12 {
		t.Errorf("ZScore not negated: %v vs %v", *fwd.ZScore, *rev.ZScore)
	}
	if *fwd.RecommendedVariant != VariantA || *rev.RecommendedVariant != VariantB {
		t.Errorf("recommendations = %v / %v, want A / B",
			*fwd.RecommendedVariant, *rev.RecommendedVariant)
	}
}

// Constant quality on both arms gives SE == 0; that must resolve to a
// non-significant result, never a division by zero.
func TestComputeSignificance_DegenerateSE(t *testing.T) {
	a := fillAggregate(40, 1.0)
	b := fillAggregate(40, 1.0)

	res := ComputeSignificance(a, b, SignificanceConfig{})

	if res.MinSamplesNeeded {
		t.Error("MinSamplesNeeded = true with 40 samples per arm")
	}
	if res.IsSignificant {
		t.Error("IsSignificant = true with zero standard error")
	}
	if res.RecommendedVariant != nil {
		t.Error("RecommendedVariant set in degenerate case")
	}

	// Same with a mean gap but zero variance on both sides: SE is still
	// nonzero here only if variances are nonzero, so force the pure case.
	c := fillAggregate(40, 0.7)
	d := fillAggregate(40, 0.7)
	if res := ComputeSignificance(c, d, SignificanceConfig{}); res.IsSignificant {
		t.Error("identical constant arms reported significant")
	}
}

func TestComputeSignificance_Tie(t *testing.T) {
	a := fillAggregate(40, 0.4, 0.6)
	b := fillAggregate(40, 0.4, 0.6)

	res := ComputeSignificance(a, b, SignificanceConfig{})
	if res.IsSignificant {
		t.Error("identical distributions reported significant")
	}
	if res.ZScore != nil && *res.ZScore != 0 {
		t.Errorf("ZScore = %v, want 0", *res.ZScore)
	}
}

func TestComputeSignificance_CustomConfig(t *testing.T) {
	a := fillAggregate(20, 0.9, 0.85)
	b := fillAggregate(20, 0.5, 0.55)

	// Default threshold rejects 20 samples; a lowered one accepts them.
	if res := ComputeSignificance(a, b, SignificanceConfig{}); !res.MinSamplesNeeded {
		t.Error("default config accepted 20 samples per arm")
	}
	res := ComputeSignificance(a, b, SignificanceConfig{MinSamples: 15})
	if res.MinSamplesNeeded {
		t.Error("MinSamples=15 still reported thin data")
	}
	if !res.IsSignificant {
		t.Errorf("expected significance, p = %v", res.PValue)
	}

	// An impossibly strict alpha flips the verdict without touching z/p.
	strict := ComputeSignificance(a, b, SignificanceConfig{MinSamples: 15, Alpha: 1e-300})
	if strict.IsSignificant && *strict.PValue > 1e-300 {
		t.Error("alpha not honored")
	}
	if math.Abs(*strict.ZScore-*res.ZScore) > 1e-12 {
		t.Error("alpha changed the z-score")
	}
}

// Variance from the sum-of-squares identity can go slightly negative from
// cancellation; the clamp must keep Sqrt off NaN.
func TestComputeSignificance_VarianceClamp(t *testing.T) {
	a := NewVariantAggregate()
	b := NewVariantAggregate()
	a.QualitySampleCount = 40
	a.QualitySum = 40 * 0.3
	a.QualitySqSum = 40*0.09 - 1e-13 // sq/n - mean^2 < 0 by epsilon
	b.QualitySampleCount = 40
	b.QualitySum = 40 * 0.5
	b.QualitySqSum = 40 * 0.26

	res := ComputeSignificance(a, b, SignificanceConfig{})
	if res.ZScore != nil && math.IsNaN(*res.ZScore) {
		t.Error("ZScore is NaN, variance clamp missing")
	}
	if res.PValue != nil && math.IsNaN(*res.PValue) {
		t.Error("PValue is NaN")
	}
}
