package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/interpreter"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
)

// NewTestCmd creates the test command
func NewTestCmd() *cobra.Command {
	var seedFile string

	cmd := &cobra.Command{
		Use:   "test [question]",
		Short: "Interpret a question and print the result",
		Long:  "Run the interpretation pipeline over a question and print the resulting JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lex := lexicon.New()
			if seedFile != "" {
				if _, err := lex.LoadSeedFile(seedFile); err != nil {
					return err
				}
			}

			it := interpreter.New(lex, config.Interpreter{
				DirectExecThreshold: 0.65,
				EditDistanceBound:   2,
			}, zap.NewNop())

			question := strings.Join(args, " ")
			out := it.Interpret(question)

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			if err := encoder.Encode(out); err != nil {
				return fmt.Errorf("failed to encode interpretation: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&seedFile, "seed", "s", "", "extra YAML seed file to merge before interpreting")
	return cmd
}
