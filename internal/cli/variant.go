package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/emiliopalmerini/promptlab/internal/domain"
)

var variantCmd = &cobra.Command{
	Use:   "variant",
	Short: "Manage prompt version references",
	Long:  `Register and list the prompt versions available as test arms.`,
}

var variantAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Register a prompt version",
	Long: `Register a prompt version reference so tests can use it as an arm.

Examples:
  promptlab variant add "friendly-greeting-v2"
  promptlab variant add "baseline" --id pv-baseline`,
	Args: cobra.ExactArgs(1),
	RunE: runVariantAdd,
}

var variantListCmd = &cobra.Command{
	Use:   "list",
	Short: "List registered prompt versions",
	RunE:  runVariantList,
}

var variantID string

func init() {
	rootCmd.AddCommand(variantCmd)
	variantCmd.AddCommand(variantAddCmd)
	variantCmd.AddCommand(variantListCmd)

	variantAddCmd.Flags().StringVar(&variantID, "id", "", "Explicit id (defaults to a generated UUID)")
}

func runVariantAdd(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	id := variantID
	if id == "" {
		id = uuid.NewString()
	}

	v := &domain.PromptVariant{ID: id, Name: args[0]}
	if err := app.Variants.Add(ctx, v); err != nil {
		return err
	}

	fmt.Printf("Registered prompt version %q (%s)\n", v.Name, v.ID)
	return nil
}

func runVariantList(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	app, err := NewAppContext(ctx)
	if err != nil {
		return err
	}
	defer app.Close(ctx)

	variants, err := app.Variants.List(ctx)
	if err != nil {
		return err
	}
	if len(variants) == 0 {
		fmt.Println("No prompt versions registered")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME")
	fmt.Fprintln(w, "--\t----")
	for _, v := range variants {
		fmt.Fprintf(w, "%s\t%s\n", v.ID, v.Name)
	}
	w.Flush()
	return nil
}
