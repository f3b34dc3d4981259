// Package cli implements the coach-server maintenance subcommands
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"chesscoach/internal/server/storage"
)

// Commands lists the top-level words that main hands to Run
var Commands = map[string]bool{"db": true, "migrate": true, "events": true}

// Run dispatches "db", "migrate" and "events" subcommands
func Run(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("command required: db, migrate, events")
	}
	switch args[0] {
	case "db":
		return runDB(args[1:])
	case "migrate":
		return runMigrate(args[1:])
	case "events":
		return runEvents(args[1:])
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

func runDB(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("subcommand required: init, delete, query, credits, user")
	}

	switch args[0] {
	case "init":
		return runInit(args[1:])
	case "delete":
		return runDelete(args[1:])
	case "query":
		return runQuery(args[1:])
	case "credits":
		return runCredits(args[1:])
	case "user":
		if len(args) < 2 {
			return fmt.Errorf("user subcommand required: add, delete, set-password, set-hash, set-email, set-username, list")
		}
		return runUser(args[1], args[2:])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

// openStore opens the database named by a required -path flag
func openStore(path string) (*storage.Store, error) {
	if path == "" {
		return nil, fmt.Errorf("database path required")
	}
	store, err := storage.NewStore(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	return store, nil
}

func runInit(args []string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.InitDB(); err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	fmt.Printf("Database initialized at: %s\n", *path)
	return nil
}

func runDelete(args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	if err := store.DeleteDB(); err != nil {
		return fmt.Errorf("failed to delete database: %w", err)
	}

	fmt.Printf("Database deleted: %s\n", *path)
	return nil
}

func runQuery(args []string) error {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	userID := fs.String("userId", "", "User ID to filter (optional, * for all)")
	puzzleID := fs.String("puzzleId", "", "Puzzle ID to filter (optional, * for all)")
	limit := fs.Int("limit", 100, "Maximum rows")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	attempts, err := store.QueryAttempts(*userID, *puzzleID, *limit)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}
	if len(attempts) == 0 {
		fmt.Println("No attempts found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "User ID\tPuzzle\tCategory\tSolved\tTraining\tTime")
	fmt.Fprintln(w, strings.Repeat("-", 90))
	for _, a := range attempts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%v\t%s\t%s\n",
			short(a.UserID),
			a.PuzzleID,
			a.Category,
			a.Solved,
			short(a.SessionID),
			a.CreatedAt.Format("2006-01-02 15:04:05"),
		)
	}
	w.Flush()

	fmt.Printf("\nFound %d attempt(s)\n", len(attempts))
	return nil
}

// runCredits shows a user's balance and optionally grants more credits
func runCredits(args []string) error {
	fs := flag.NewFlagSet("credits", flag.ContinueOnError)
	path := fs.String("path", "", "Database file path (required)")
	username := fs.String("username", "", "Username (required)")
	grant := fs.Int("grant", 0, "Credits to add")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *username == "" {
		return fmt.Errorf("username required")
	}
	if *grant < 0 {
		return fmt.Errorf("grant must not be negative")
	}

	store, err := openStore(*path)
	if err != nil {
		return err
	}
	defer store.Close()

	user, err := store.GetUserByUsername(*username)
	if err != nil {
		return fmt.Errorf("user not found: %s", *username)
	}
	if *grant > 0 {
		if _, err := store.RefundCredits(user.UserID, *grant); err != nil {
			return fmt.Errorf("failed to grant credits: %w", err)
		}
	}
	account, err := store.GetAccount(user.UserID)
	if err != nil {
		return fmt.Errorf("failed to read account: %w", err)
	}

	fmt.Printf("User: %s\n  Plan: %s\n  Credits: %d\n", user.Username, account.Plan, account.AvailableCredits)
	return nil
}

func short(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}
