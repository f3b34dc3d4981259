package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"chesscoach/internal/events"
)

// runEvents prints published events until interrupted
func runEvents(args []string) error {
	if len(args) == 0 || args[0] != "tail" {
		return fmt.Errorf("subcommand required: tail")
	}

	fs := flag.NewFlagSet("events tail", flag.ContinueOnError)
	servers := fs.String("servers", os.Getenv("NATS_SERVERS"), "NATS server URLs (default $NATS_SERVERS)")
	subject := fs.String("subject", events.SubjectAll, "Subject to follow")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *servers == "" {
		return fmt.Errorf("NATS servers required: use -servers or NATS_SERVERS")
	}

	sub, err := events.ConnectNATS(*servers, "coach-server-tail")
	if err != nil {
		return err
	}
	defer sub.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("Following %s (Ctrl-C to stop)\n", *subject)
	return sub.Subscribe(ctx, *subject, func(env events.Envelope) {
		fmt.Printf("%s  %-32s %s\n", env.Timestamp.Format("15:04:05.000"), env.EventType, env.Payload)
	})
}
