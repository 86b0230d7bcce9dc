package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/oraculo-ai/oraculo/internal/database"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
)

// NewSeedCmd creates the seed command
func NewSeedCmd() *cobra.Command {
	var file string
	var persist bool

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Merge a YAML seed file into the lexicon",
		Long:  "Load terms and typo corrections from a YAML file; with --persist, record them in the learned-terms tables",
		RunE: func(cmd *cobra.Command, args []string) error {
			if file == "" {
				return fmt.Errorf("--file is required")
			}

			lex := lexicon.New()
			loaded, err := lex.LoadSeedFile(file)
			if err != nil {
				return err
			}
			fmt.Printf("Loaded %d entries from %s\n", loaded, file)

			if !persist {
				return nil
			}

			databaseURL := os.Getenv("DATABASE_URL")
			if databaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required with --persist")
			}
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
			ctx := context.Background()

			snap := lex.Snapshot()
			persisted := 0
			for _, term := range snap.Vocabulary() {
				entry, ok := snap.Lookup(term)
				if !ok || !entry.Learned {
					continue
				}
				if _, err := lexiconRepo.ObserveTerm(ctx, entry); err != nil {
					return fmt.Errorf("failed to persist term %q: %w", term, err)
				}
				persisted++
			}
			fmt.Printf("Persisted %d learned terms\n", persisted)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML seed file")
	cmd.Flags().BoolVar(&persist, "persist", false, "record learned entries in the database")
	return cmd
}
