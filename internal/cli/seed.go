package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harun/assigny/internal/config"
	"github.com/harun/assigny/pkg/scheduling"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the scheduling database and seed the demo clinic",
	Long: `Create the scheduling database if needed and seed it with the demo
clinic: Dr. Ahuja with weekday availability and one registered patient.
Seeding is idempotent; running it twice changes nothing.`,
	RunE: runSeed,
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	store, err := scheduling.Open(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Seed(context.Background()); err != nil {
		return err
	}

	fmt.Printf("Seeded scheduling database at %s\n", cfg.Database.Path)
	return nil
}
