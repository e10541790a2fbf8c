package domain

import "time"

// TestStatus is the lifecycle state of an A/B test.
type TestStatus string

const (
	TestStatusActive  TestStatus = "active"
	TestStatusStopped TestStatus = "stopped"
	// TestStatusCompleted is a terminal state reserved for external policies
	// (e.g. a max-duration scheduler). The engine never sets it itself.
	TestStatusCompleted TestStatus = "completed"
)

// Variant identifies one arm of a test.
type Variant string

const (
	VariantA Variant = "A"
	VariantB Variant = "B"
)

// PromptVariant is a reference to an immutable prompt version owned by the
// variant store. The engine never mutates it.
type PromptVariant struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ABTest is a two-arm prompt experiment with its running aggregates.
type ABTest struct {
	ID           string              `json:"id"`
	Name         string              `json:"name"`
	VariantA     PromptVariant       `json:"variant_a"`
	VariantB     PromptVariant       `json:"variant_b"`
	TrafficSplit float64             `json:"traffic_split"` // P(A); 1-TrafficSplit goes to B
	Status       TestStatus          `json:"status"`
	CreatedAt    time.Time           `json:"created_at"`
	StoppedAt    *time.Time          `json:"stopped_at,omitempty"`
	AggregateA   *VariantAggregate   `json:"aggregate_a"`
	AggregateB   *VariantAggregate   `json:"aggregate_b"`
	Significance *SignificanceResult `json:"significance,omitempty"`
}

// IsActive reports whether the test still accepts traffic and outcomes.
func (t *ABTest) IsActive() bool {
	return t.Status == TestStatusActive
}

// Aggregate returns the aggregate for the given arm, nil for unknown arms.
func (t *ABTest) Aggregate(v Variant) *VariantAggregate {
	switch v {
	case VariantA:
		return t.AggregateA
	case VariantB:
		return t.AggregateB
	}
	return nil
}

// Clone returns a deep copy safe to hand out after the per-test lock is
// released. Immutable fields are copied shallowly.
func (t *ABTest) Clone() *ABTest {
	c := *t
	if t.StoppedAt != nil {
		stopped := *t.StoppedAt
		c.StoppedAt = &stopped
	}
	if t.AggregateA != nil {
		c.AggregateA = t.AggregateA.Clone()
	}
	if t.AggregateB != nil {
		c.AggregateB = t.AggregateB.Clone()
	}
	if t.Significance != nil {
		sig := *t.Significance
		c.Significance = &sig
	}
	return &c
}

// Assignment is a call-to-variant routing decision made at call start.
// It travels with the call context so the later outcome can be matched back.
type Assignment struct {
	TestID  string  `json:"test_id"`
	Variant Variant `json:"variant"`
}
