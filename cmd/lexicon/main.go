package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/cmd/lexicon/commands"
)

func main() {
	var rootCmd = &cobra.Command{
		Use:   "oraculo-lexicon",
		Short: "Lexicon tool for the Oraculo API",
		Long:  "CLI tool for seeding, inspecting and exercising the question lexicon",
	}

	rootCmd.AddCommand(commands.NewSeedCmd())
	rootCmd.AddCommand(commands.NewListCmd())
	rootCmd.AddCommand(commands.NewTestCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
