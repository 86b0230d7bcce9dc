package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/internal/database"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
)

const listPromotionFloor = 3

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var learnedOnly bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the lexicon vocabulary",
		Long:  "List every term the lexicon resolves, with its concept and target; set DATABASE_URL to include learned terms",
		RunE: func(cmd *cobra.Command, args []string) error {
			lex := lexicon.New()

			if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
				db, err := database.New(databaseURL)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer func() {
					if err := db.Close(); err != nil {
						fmt.Fprintf(os.Stderr, "Warning: failed to close database: %v\n", err)
					}
				}()

				lexiconRepo := database.NewLexiconRepository(db)
				if _, err := lexiconRepo.LoadLearned(context.Background(), lex, listPromotionFloor); err != nil {
					fmt.Fprintf(os.Stderr, "Warning: failed to load learned terms: %v\n", err)
				}
			}

			snap := lex.Snapshot()
			count := 0
			for _, term := range snap.Vocabulary() {
				entry, ok := snap.Lookup(term)
				if !ok {
					continue
				}
				if learnedOnly && !entry.Learned {
					continue
				}
				origin := "seed"
				if entry.Learned {
					origin = "learned"
				}
				fmt.Printf("%-28s %-20s %-10s %s\n", term, entry.Concept, origin, entry.Table)
				count++
			}
			fmt.Printf("\n%d terms\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVar(&learnedOnly, "learned", false, "only show learned terms")
	return cmd
}
