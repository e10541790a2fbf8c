package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Manage A/B tests",
	Long:  `Create, list, stop, and inspect A/B tests between prompt versions.`,
}

var testCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new A/B test",
	Long: `Create a new A/B test between two prompt versions. Routing starts
immediately.

Examples:
  promptlab test create "greeting-style" --variant-a pv-1 --variant-b pv-2
  promptlab test create "tone" --variant-a pv-1 --variant-b pv-3 --split 0.2`,
	Args: cobra.ExactArgs(1),
	RunE: runTestCreate,
}

var testListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all A/B tests",
	RunE:  runTestList,
}

var testStopCmd = &cobra.Command{
	Use:   "stop <name>",
	Short: "Stop a test and freeze its verdict",
	Long: `Stop a running test. Routing ends, aggregates freeze, and the
significance verdict is computed one final time and cached.`,
	Args: cobra.ExactArgs(1),
	RunE: runTestStop,
}

var testDeleteCmd = &cobra.Command{
	Use:   "delete <name>",
	Short: "Delete a test and all its aggregates",
	Args:  cobra.ExactArgs(1),
	RunE:  runTestDelete,
}

var testStatsCmd = &cobra.Command{
	Use:   "stats <name>",
	Short: "Show the comparison report for a test",
	Long: `Show the headline comparison, the significance verdict and the
per-criterion, per-scenario and daily breakdowns for a test.

Examples:
  promptlab test stats "greeting-style"`,
	Args: cobra.ExactArgs(1),
	RunE: runTestStats,
}

// Flags
var (
	testVariantA string
	testVariantB string
	testSplit    float64
)

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.AddCommand(testCreateCmd)
	testCmd.AddCommand(testListCmd)
	testCmd.AddCommand(testStopCmd)
	testCmd.AddCommand(testDeleteCmd)
	testCmd.AddCommand(testStatsCmd)

	testCreateCmd.Flags().StringVar(&testVariantA, "variant-a", "", "Prompt version id for arm A (required)")
	testCreateCmd.Flags().StringVar(&testVariantB, "variant-b", "", "Prompt version id for arm B (required)")
	testCreateCmd.Flags().Float64Var(&testSplit, "split", 0.5, "Fraction of calls routed to arm A, exclusive (0,1)")
	_ = testCreateCmd.MarkFlagRequired("variant-a")
	_ = testCreateCmd.MarkFlagRequired("variant-b")
}

func runTestCreate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := app.Registry.Create(ctx, name, testVariantA, testVariantB, testSplit)
	if err != nil {
		return err
	}

	if err := app.Metrics.ExportLifecycle(ctx, test.Name, "created"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: metrics export failed: %v\n", err)
	}

	fmt.Printf("Created test %q (%s)\n", test.Name, test.ID)
	fmt.Printf("  A: %s (%s) gets %.0f%% of calls\n", test.VariantA.Name, test.VariantA.ID, test.TrafficSplit*100)
	fmt.Printf("  B: %s (%s) gets %.0f%% of calls\n", test.VariantB.Name, test.VariantB.ID, (1-test.TrafficSplit)*100)
	return nil
}

func runTestList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	tests, err := app.Registry.List(ctx)
	if err != nil {
		return err
	}
	if len(tests) == 0 {
		fmt.Println("No tests found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTATUS\tSPLIT\tCALLS A\tCALLS B\tCREATED\tSTOPPED")
	fmt.Fprintln(w, "----\t------\t-----\t-------\t-------\t-------\t-------")
	for _, t := range tests {
		stopped := "-"
		if t.StoppedAt != nil {
			stopped = t.StoppedAt.UTC().Format(domain.DayFormat)
		}
		fmt.Fprintf(w, "%s\t%s\t%.0f/%.0f\t%d\t%d\t%s\t%s\n",
			t.Name, t.Status,
			t.TrafficSplit*100, (1-t.TrafficSplit)*100,
			t.AggregateA.CallCount, t.AggregateB.CallCount,
			t.CreatedAt.UTC().Format(domain.DayFormat), stopped)
	}
	w.Flush()
	return nil
}

func runTestStop(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := app.Registry.GetByName(ctx, name)
	if err != nil {
		return err
	}

	result, err := app.Registry.Stop(ctx, test.ID)
	if err != nil {
		return err
	}

	if err := app.Metrics.ExportLifecycle(ctx, test.Name, "stopped"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: metrics export failed: %v\n", err)
	}

	fmt.Printf("Stopped test %q\n", name)
	printVerdict(result)
	return nil
}

func runTestDelete(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := app.Registry.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if err := app.Registry.Delete(ctx, test.ID); err != nil {
		return err
	}

	fmt.Printf("Deleted test %q\n", name)
	return nil
}

func runTestStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	name := args[0]

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	test, err := app.Registry.GetByName(ctx, name)
	if err != nil {
		return err
	}

	summary, err := app.Reports.Summary(ctx, test.ID)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Printf("  Test: %s\n", summary.TestName)
	fmt.Printf("  ======%s\n", repeatChar('=', len(summary.TestName)))
	fmt.Println()
	fmt.Printf("  Status:   %s\n", summary.Status)
	fmt.Printf("  Started:  %s\n", test.CreatedAt.UTC().Format(time.RFC3339))
	if test.StoppedAt != nil {
		fmt.Printf("  Stopped:  %s\n", test.StoppedAt.UTC().Format(time.RFC3339))
	}
	fmt.Println()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "  METRIC\t%s (A)\t%s (B)\t\n", test.VariantA.Name, test.VariantB.Name)
	fmt.Fprintf(w, "  ------\t------\t------\t\n")
	fmt.Fprintf(w, "  Calls\t%d\t%d\t\n", summary.CallsA, summary.CallsB)
	fmt.Fprintf(w, "  Avg quality\t%s\t%s\t\n", fmtRate(summary.QualityA), fmtRate(summary.QualityB))
	fmt.Fprintf(w, "  Avg duration (s)\t%s\t%s\t\n", fmtRate(summary.AvgDurationA), fmtRate(summary.AvgDurationB))
	fmt.Fprintf(w, "  Transfer rate\t%s\t%s\t\n", fmtRate(summary.TransferRateA), fmtRate(summary.TransferRateB))
	w.Flush()
	fmt.Println()

	printVerdict(summary.Significance)

	criteria, err := app.Reports.PerCriterion(ctx, test.ID)
	if err != nil {
		return err
	}
	if len(criteria) > 0 {
		fmt.Println()
		fmt.Println("  Per criterion")
		fmt.Println("  -------------")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  CRITERION\tA\tB\t\n")
		for _, row := range criteria {
			fmt.Fprintf(w, "  %s\t%s\t%s\t\n", row.Criterion, fmtRate(row.AvgA), fmtRate(row.AvgB))
		}
		w.Flush()
	}

	scenarios, err := app.Reports.ByScenario(ctx, test.ID)
	if err != nil {
		return err
	}
	if len(scenarios) > 0 {
		fmt.Println()
		fmt.Println("  By scenario")
		fmt.Println("  -----------")
		w = tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "  SCENARIO\tCALLS A\tCALLS B\tQUALITY A\tQUALITY B\t\n")
		for _, row := range scenarios {
			fmt.Fprintf(w, "  %s\t%d\t%d\t%s\t%s\t\n",
				row.Scenario, row.CallsA, row.CallsB, fmtRate(row.QualityA), fmtRate(row.QualityB))
		}
		w.Flush()
	}
	fmt.Println()

	return nil
}

func printVerdict(result *domain.SignificanceResult) {
	if result == nil {
		return
	}

	fmt.Println("  Verdict")
	fmt.Println("  -------")
	if result.MinSamplesNeeded {
		fmt.Println("  Inconclusive: not enough scored calls per arm yet")
		return
	}
	if result.ZScore == nil {
		fmt.Println("  Inconclusive: no spread in quality scores")
		return
	}
	fmt.Printf("  z-score:  %.4f\n", *result.ZScore)
	fmt.Printf("  p-value:  %.4f\n", *result.PValue)
	if result.IsSignificant && result.RecommendedVariant != nil {
		fmt.Printf("  Significant: variant %s wins\n", *result.RecommendedVariant)
	} else {
		fmt.Println("  Not significant: no winner yet")
	}
}

func fmtRate(v *float64) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%.4f", *v)
}

func repeatChar(c rune, n int) string {
	result := make([]rune, n)
	for i := range result {
		result[i] = c
	}
	return string(result)
}
