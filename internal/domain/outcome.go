package domain

import "fmt"

// DayFormat is the calendar-date key used by daily aggregate buckets.
const DayFormat = "2006-01-02"

// CallOutcome is one finished call as delivered by the outcome feed.
// QualityScore is nil when upstream scoring failed; such calls still count
// toward call and duration totals but not toward quality denominators.
type CallOutcome struct {
	TestID          string             `json:"test_id"`
	Variant         Variant            `json:"variant"`
	IdempotencyKey  string             `json:"idempotency_key,omitempty"`
	Scenario        string             `json:"scenario"`
	QualityScore    *float64           `json:"quality_score,omitempty"`
	Criteria        map[string]float64 `json:"criteria,omitempty"`
	DurationSeconds int64              `json:"duration_seconds"`
	Transferred     bool               `json:"transferred"`
	OccurredOn      string             `json:"occurred_on"` // YYYY-MM-DD
}

// Validate checks the fields the aggregator cannot tolerate missing or
// out of range. All failures wrap ErrInvalidOutcome.
func (o *CallOutcome) Validate() error {
	if o.TestID == "" {
		return fmt.Errorf("%w: missing test_id", ErrInvalidOutcome)
	}
	if o.Variant != VariantA && o.Variant != VariantB {
		return fmt.Errorf("%w: variant must be A or B, got %q", ErrInvalidOutcome, o.Variant)
	}
	if o.OccurredOn == "" {
		return fmt.Errorf("%w: missing occurred_on date", ErrInvalidOutcome)
	}
	if o.QualityScore != nil && (*o.QualityScore < 0 || *o.QualityScore > 1) {
		return fmt.Errorf("%w: quality_score %v outside [0,1]", ErrInvalidOutcome, *o.QualityScore)
	}
	if o.DurationSeconds < 0 {
		return fmt.Errorf("%w: negative duration_seconds", ErrInvalidOutcome)
	}
	return nil
}
