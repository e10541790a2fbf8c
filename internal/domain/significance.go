package domain

import "math"

const (
	// DefaultMinSamples is the minimum quality samples required per arm
	// before any significance math runs.
	DefaultMinSamples = 30
	// DefaultAlpha is the two-tailed significance threshold.
	DefaultAlpha = 0.05
)

// SignificanceConfig tunes the significance check. Zero values fall back
// to the defaults.
type SignificanceConfig struct {
	MinSamples int64
	Alpha      float64
}

func (c SignificanceConfig) withDefaults() SignificanceConfig {
	if c.MinSamples <= 0 {
		c.MinSamples = DefaultMinSamples
	}
	if c.Alpha <= 0 {
		c.Alpha = DefaultAlpha
	}
	return c
}

// SignificanceResult is the outcome of a two-mean z-test over the quality
// scores of both arms. ZScore and PValue are nil when there is too little
// data (or a degenerate zero standard error) to compute them.
type SignificanceResult struct {
	MinSamplesNeeded   bool     `json:"min_samples_needed"`
	ZScore             *float64 `json:"z_score,omitempty"`
	PValue             *float64 `json:"p_value_approx,omitempty"`
	IsSignificant      bool     `json:"is_significant"`
	RecommendedVariant *Variant `json:"recommended_variant,omitempty"`
}

// ComputeSignificance runs a two-tailed two-mean z-test over the frozen (or
// snapshotted) aggregates of both arms. It is pure: no I/O, no state.
//
// Variances come from the sum-of-squares identity var = sq/n - mean^2
// (population variance; scores are bounded to [0,1]), clamped at zero to
// absorb floating-point cancellation. A zero standard error is degenerate
// and resolves to not significant rather than an error.
func ComputeSignificance(a, b *VariantAggregate, cfg SignificanceConfig) *SignificanceResult {
	cfg = cfg.withDefaults()

	na, nb := a.QualitySampleCount, b.QualitySampleCount
	if na < cfg.MinSamples || nb < cfg.MinSamples {
		return &SignificanceResult{MinSamplesNeeded: true}
	}

	meanA := a.QualitySum / float64(na)
	meanB := b.QualitySum / float64(nb)
	varA := math.Max(0, a.QualitySqSum/float64(na)-meanA*meanA)
	varB := math.Max(0, b.QualitySqSum/float64(nb)-meanB*meanB)

	se := math.Sqrt(varA/float64(na) + varB/float64(nb))
	if se == 0 {
		return &SignificanceResult{}
	}

	z := (meanA - meanB) / se
	p := math.Erfc(math.Abs(z) / math.Sqrt2) // two-tailed normal approximation

	res := &SignificanceResult{
		ZScore:        &z,
		PValue:        &p,
		IsSignificant: p < cfg.Alpha,
	}
	if res.IsSignificant {
		v := VariantA
		if meanB > meanA {
			v = VariantB
		}
		res.RecommendedVariant = &v
	}
	return res
}
