package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var exportCmd = &cobra.Command{
	Use:   "export <name>",
	Short: "Export a test's daily time series as CSV",
	Long: `Export a test's daily time series plus the summary block as CSV
to stdout or a file.

Examples:
  promptlab export "greeting-style"
  promptlab export "greeting-style" -o greeting.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

var exportOutput string

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	out := os.Stdout
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		out = f
	}

	if err := app.Reports.WriteCSV(ctx, test.ID, out); err != nil {
		return err
	}

	if exportOutput != "" {
		fmt.Printf("Exported %q to %s\n", name, exportOutput)
	}
	return nil
}
