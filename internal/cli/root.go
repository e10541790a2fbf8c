package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "promptlab",
	Short: "Prompt A/B testing and significance engine",
	Long: `promptlab runs A/B tests between prompt versions of voice-assistant agents.

Route live calls between two prompt variants, fold finished call outcomes
into per-variant aggregates, and read a frequentist verdict on which prompt
actually performs better.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
