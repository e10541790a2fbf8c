package domain

import "sort"

// CriterionTotals accumulates one named quality sub-score for a variant.
type CriterionTotals struct {
	Sum   float64 `json:"sum"`
	Count int64   `json:"count"`
}

// ScenarioTotals accumulates calls and quality per scenario tag.
type ScenarioTotals struct {
	CallCount  int64   `json:"call_count"`
	QualitySum float64 `json:"quality_sum"`
}

// DayTotals accumulates calls and quality per calendar date.
type DayTotals struct {
	CallCount  int64   `json:"call_count"`
	QualitySum float64 `json:"quality_sum"`
}

// VariantAggregate is the running state for one arm of a test: the sole
// input needed to compute summaries and significance. Sums only grow while
// the test is active and are frozen once it stops.
type VariantAggregate struct {
	CallCount          int64   `json:"call_count"`
	QualitySampleCount int64   `json:"quality_sample_count"`
	QualitySum         float64 `json:"quality_sum"`
	QualitySqSum       float64 `json:"quality_sq_sum"`
	DurationSum        int64   `json:"duration_sum"`
	TransferCount      int64   `json:"transfer_count"`

	PerCriterion map[string]CriterionTotals `json:"per_criterion,omitempty"`
	PerScenario  map[string]ScenarioTotals  `json:"per_scenario,omitempty"`
	Daily        map[string]DayTotals       `json:"daily,omitempty"` // keyed by DayFormat

	// SeenKeys holds idempotency keys already folded in, so at-least-once
	// delivery cannot double-count. Persisted with the aggregate.
	SeenKeys map[string]struct{} `json:"seen_keys,omitempty"`
}

// NewVariantAggregate returns a zeroed aggregate with initialized maps.
func NewVariantAggregate() *VariantAggregate {
	return &VariantAggregate{
		PerCriterion: make(map[string]CriterionTotals),
		PerScenario:  make(map[string]ScenarioTotals),
		Daily:        make(map[string]DayTotals),
		SeenKeys:     make(map[string]struct{}),
	}
}

// Seen reports whether the idempotency key was already folded in.
// Empty keys are never tracked.
func (a *VariantAggregate) Seen(key string) bool {
	if key == "" {
		return false
	}
	_, ok := a.SeenKeys[key]
	return ok
}

// Apply folds one validated outcome into the aggregate. The caller holds
// the per-test lock; Apply itself does no synchronization.
func (a *VariantAggregate) Apply(o *CallOutcome) {
	if a.PerCriterion == nil {
		a.PerCriterion = make(map[string]CriterionTotals)
	}
	if a.PerScenario == nil {
		a.PerScenario = make(map[string]ScenarioTotals)
	}
	if a.Daily == nil {
		a.Daily = make(map[string]DayTotals)
	}
	if a.SeenKeys == nil {
		a.SeenKeys = make(map[string]struct{})
	}

	a.CallCount++
	a.DurationSum += o.DurationSeconds
	if o.Transferred {
		a.TransferCount++
	}

	var quality float64
	if o.QualityScore != nil {
		quality = *o.QualityScore
		a.QualitySampleCount++
		a.QualitySum += quality
		a.QualitySqSum += quality * quality
	}

	for name, score := range o.Criteria {
		ct := a.PerCriterion[name]
		ct.Sum += score
		ct.Count++
		a.PerCriterion[name] = ct
	}

	st := a.PerScenario[o.Scenario]
	st.CallCount++
	st.QualitySum += quality
	a.PerScenario[o.Scenario] = st

	dt := a.Daily[o.OccurredOn]
	dt.CallCount++
	dt.QualitySum += quality
	a.Daily[o.OccurredOn] = dt

	if o.IdempotencyKey != "" {
		a.SeenKeys[o.IdempotencyKey] = struct{}{}
	}
}

// MeanQuality returns the average composite quality, nil without samples.
func (a *VariantAggregate) MeanQuality() *float64 {
	if a.QualitySampleCount == 0 {
		return nil
	}
	m := a.QualitySum / float64(a.QualitySampleCount)
	return &m
}

// MeanDuration returns the average call duration in seconds, nil without calls.
func (a *VariantAggregate) MeanDuration() *float64 {
	if a.CallCount == 0 {
		return nil
	}
	m := float64(a.DurationSum) / float64(a.CallCount)
	return &m
}

// TransferRate returns transfers/calls, nil without calls.
func (a *VariantAggregate) TransferRate() *float64 {
	if a.CallCount == 0 {
		return nil
	}
	r := float64(a.TransferCount) / float64(a.CallCount)
	return &r
}

// Days returns the dates present in the daily buckets in ascending order.
func (a *VariantAggregate) Days() []string {
	days := make([]string, 0, len(a.Daily))
	for d := range a.Daily {
		days = append(days, d)
	}
	sort.Strings(days)
	return days
}

// Clone returns a deep copy, safe to read after the per-test lock is released.
func (a *VariantAggregate) Clone() *VariantAggregate {
	c := &VariantAggregate{
		CallCount:          a.CallCount,
		QualitySampleCount: a.QualitySampleCount,
		QualitySum:         a.QualitySum,
		QualitySqSum:       a.QualitySqSum,
		DurationSum:        a.DurationSum,
		TransferCount:      a.TransferCount,
		PerCriterion:       make(map[string]CriterionTotals, len(a.PerCriterion)),
		PerScenario:        make(map[string]ScenarioTotals, len(a.PerScenario)),
		Daily:              make(map[string]DayTotals, len(a.Daily)),
		SeenKeys:           make(map[string]struct{}, len(a.SeenKeys)),
	}
	for k, v := range a.PerCriterion {
		c.PerCriterion[k] = v
	}
	for k, v := range a.PerScenario {
		c.PerScenario[k] = v
	}
	for k, v := range a.Daily {
		c.Daily[k] = v
	}
	for k := range a.SeenKeys {
		c.SeenKeys[k] = struct{}{}
	}
	return c
}
