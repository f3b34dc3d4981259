package cli

import (
	"flag"
	"fmt"
	"os"

	"chesscoach/internal/server/pgstore"
)

func runMigrate(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: up, down, status")
	}

	fs := flag.NewFlagSet("migrate "+args[0], flag.ContinueOnError)
	dbURL := fs.String("url", os.Getenv("DATABASE_URL"), "Postgres URL (default $DATABASE_URL)")
	steps := fs.Int("steps", 1, "Migrations to roll back (down only)")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *dbURL == "" {
		return fmt.Errorf("database URL required: use -url or DATABASE_URL")
	}

	switch args[0] {
	case "up":
		return pgstore.MigrateUp(*dbURL)
	case "down":
		return pgstore.MigrateDown(*dbURL, *steps)
	case "status":
		version, dirty, ok, err := pgstore.MigrationStatus(*dbURL)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("No migrations applied")
			return nil
		}
		fmt.Printf("Version: %d\nDirty: %v\n", version, dirty)
		return nil
	default:
		return fmt.Errorf("unknown migrate subcommand: %s", args[0])
	}
}
