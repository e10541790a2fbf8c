// Package report assembles the reporting payloads consumed by the admin
// dashboard. It is a pure read path over registry snapshots: no formatting,
// no localization, no hidden caches.
package report

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/emiliopalmerini/promptlab/internal/domain"
	"github.com/emiliopalmerini/promptlab/internal/registry"
)

// Summary is the headline comparison of both arms. Rates are nil when the
// corresponding call count is zero; the UI renders nil as "—", never "0%".
type Summary struct {
	TestID        string                     `json:"test_id"`
	TestName      string                     `json:"test_name"`
	Status        domain.TestStatus          `json:"status"`
	CallsA        int64                      `json:"calls_a"`
	CallsB        int64                      `json:"calls_b"`
	QualityA      *float64                   `json:"quality_a"`
	QualityB      *float64                   `json:"quality_b"`
	AvgDurationA  *float64                   `json:"avg_duration_a"`
	AvgDurationB  *float64                   `json:"avg_duration_b"`
	TransferRateA *float64                   `json:"transfer_rate_a"`
	TransferRateB *float64                   `json:"transfer_rate_b"`
	Significance  *domain.SignificanceResult `json:"significance"`
}

// CriterionRow compares one quality sub-score across arms. An arm that
// never recorded the criterion reports nil.
type CriterionRow struct {
	Criterion string   `json:"criterion"`
	AvgA      *float64 `json:"avg_a"`
	AvgB      *float64 `json:"avg_b"`
}

// ScenarioRow compares call volume and quality for one scenario tag.
type ScenarioRow struct {
	Scenario string   `json:"scenario"`
	CallsA   int64    `json:"calls_a"`
	CallsB   int64    `json:"calls_b"`
	QualityA *float64 `json:"quality_a"`
	QualityB *float64 `json:"quality_b"`
}

// DailyRow is one calendar date of the test's time series. Dates seen by
// either arm appear; the missing arm reports zero calls and nil quality.
type DailyRow struct {
	Date     string   `json:"date"`
	CallsA   int64    `json:"calls_a"`
	CallsB   int64    `json:"calls_b"`
	QualityA *float64 `json:"quality_a"`
	QualityB *float64 `json:"quality_b"`
}

// Builder assembles reports from registry snapshots.
type Builder struct {
	registry *registry.Registry
	sigCfg   domain.SignificanceConfig
}

// New creates a report builder.
func New(reg *registry.Registry, sigCfg domain.SignificanceConfig) *Builder {
	return &Builder{registry: reg, sigCfg: sigCfg}
}

// Summary builds the headline report. For active tests the significance is
// computed fresh from a live snapshot; stopped tests keep the result frozen
// at stop time. A test with zero calls yields a valid all-null summary.
func (b *Builder) Summary(ctx context.Context, testID string) (*Summary, error) {
	t, err := b.registry.Get(ctx, testID)
	if err != nil {
		return nil, err
	}

	sig := t.Significance
	if t.IsActive() {
		sig = domain.ComputeSignificance(t.AggregateA, t.AggregateB, b.sigCfg)
	}

	return &Summary{
		TestID:        t.ID,
		TestName:      t.Name,
		Status:        t.Status,
		CallsA:        t.AggregateA.CallCount,
		CallsB:        t.AggregateB.CallCount,
		QualityA:      t.AggregateA.MeanQuality(),
		QualityB:      t.AggregateB.MeanQuality(),
		AvgDurationA:  t.AggregateA.MeanDuration(),
		AvgDurationB:  t.AggregateB.MeanDuration(),
		TransferRateA: t.AggregateA.TransferRate(),
		TransferRateB: t.AggregateB.TransferRate(),
		Significance:  sig,
	}, nil
}

// PerCriterion lists every criterion recorded by either arm, name ascending.
func (b *Builder) PerCriterion(ctx context.Context, testID string) ([]CriterionRow, error) {
	t, err := b.registry.Get(ctx, testID)
	if err != nil {
		return nil, err
	}

	names := make(map[string]struct{})
	for name := range t.AggregateA.PerCriterion {
		names[name] = struct{}{}
	}
	for name := range t.AggregateB.PerCriterion {
		names[name] = struct{}{}
	}

	rows := make([]CriterionRow, 0, len(names))
	for name := range names {
		rows = append(rows, CriterionRow{
			Criterion: name,
			AvgA:      criterionAvg(t.AggregateA.PerCriterion[name]),
			AvgB:      criterionAvg(t.AggregateB.PerCriterion[name]),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Criterion < rows[j].Criterion })
	return rows, nil
}

// ByScenario lists every scenario seen by either arm, sorted by total call
// volume descending with scenario name ascending as the tie-break.
func (b *Builder) ByScenario(ctx context.Context, testID string) ([]ScenarioRow, error) {
	t, err := b.registry.Get(ctx, testID)
	if err != nil {
		return nil, err
	}

	tags := make(map[string]struct{})
	for tag := range t.AggregateA.PerScenario {
		tags[tag] = struct{}{}
	}
	for tag := range t.AggregateB.PerScenario {
		tags[tag] = struct{}{}
	}

	rows := make([]ScenarioRow, 0, len(tags))
	for tag := range tags {
		sa := t.AggregateA.PerScenario[tag]
		sb := t.AggregateB.PerScenario[tag]
		rows = append(rows, ScenarioRow{
			Scenario: tag,
			CallsA:   sa.CallCount,
			CallsB:   sb.CallCount,
			QualityA: bucketAvg(sa.QualitySum, sa.CallCount),
			QualityB: bucketAvg(sb.QualitySum, sb.CallCount),
		})
	}
	sort.Slice(rows, func(i, j int) bool {
		vi := rows[i].CallsA + rows[i].CallsB
		vj := rows[j].CallsA + rows[j].CallsB
		if vi != vj {
			return vi > vj
		}
		return rows[i].Scenario < rows[j].Scenario
	})
	return rows, nil
}

// Daily returns the date-ordered time series over the union of both arms'
// daily buckets.
func (b *Builder) Daily(ctx context.Context, testID string) ([]DailyRow, error) {
	t, err := b.registry.Get(ctx, testID)
	if err != nil {
		return nil, err
	}

	dates := make(map[string]struct{})
	for d := range t.AggregateA.Daily {
		dates[d] = struct{}{}
	}
	for d := range t.AggregateB.Daily {
		dates[d] = struct{}{}
	}

	rows := make([]DailyRow, 0, len(dates))
	for d := range dates {
		da := t.AggregateA.Daily[d]
		db := t.AggregateB.Daily[d]
		rows = append(rows, DailyRow{
			Date:     d,
			CallsA:   da.CallCount,
			CallsB:   db.CallCount,
			QualityA: bucketAvg(da.QualitySum, da.CallCount),
			QualityB: bucketAvg(db.QualitySum, db.CallCount),
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Date < rows[j].Date })
	return rows, nil
}

// WriteCSV flattens the daily series, one row per date, followed by a
// trailing summary block. The column order is fixed so repeated exports of
// the same test diff cleanly.
func (b *Builder) WriteCSV(ctx context.Context, testID string, w io.Writer) error {
	summary, err := b.Summary(ctx, testID)
	if err != nil {
		return err
	}
	daily, err := b.Daily(ctx, testID)
	if err != nil {
		return err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "calls_a", "quality_a", "calls_b", "quality_b"}); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, row := range daily {
		record := []string{
			row.Date,
			strconv.FormatInt(row.CallsA, 10),
			csvFloat(row.QualityA),
			strconv.FormatInt(row.CallsB, 10),
			csvFloat(row.QualityB),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	summaryRows := [][]string{
		{"summary", "variant_a", "variant_b"},
		{"calls", strconv.FormatInt(summary.CallsA, 10), strconv.FormatInt(summary.CallsB, 10)},
		{"avg_quality", csvFloat(summary.QualityA), csvFloat(summary.QualityB)},
		{"avg_duration_seconds", csvFloat(summary.AvgDurationA), csvFloat(summary.AvgDurationB)},
		{"transfer_rate", csvFloat(summary.TransferRateA), csvFloat(summary.TransferRateB)},
	}
	if sig := summary.Significance; sig != nil {
		summaryRows = append(summaryRows,
			[]string{"min_samples_needed", strconv.FormatBool(sig.MinSamplesNeeded), ""},
			[]string{"is_significant", strconv.FormatBool(sig.IsSignificant), ""},
		)
		recommended := ""
		if sig.RecommendedVariant != nil {
			recommended = string(*sig.RecommendedVariant)
		}
		summaryRows = append(summaryRows, []string{"recommended_variant", recommended, ""})
	}
	for _, record := range summaryRows {
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("failed to write csv summary: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

func criterionAvg(ct domain.CriterionTotals) *float64 {
	if ct.Count == 0 {
		return nil
	}
	avg := ct.Sum / float64(ct.Count)
	return &avg
}

func bucketAvg(sum float64, count int64) *float64 {
	if count == 0 {
		return nil
	}
	avg := sum / float64(count)
	return &avg
}

func csvFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 4, 64)
}
