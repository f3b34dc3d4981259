package commands

import (
	"fmt"
	"strings"

	"chesscoach/internal/client/display"
	"chesscoach/internal/client/session"
)

const accountGroup = "Account Commands"

func (r *Registry) registerAccountCommands() {
	r.Register(accountGroup, &Command{
		Name:        "billing",
		ShortName:   "$",
		Description: "Show plan and chat credits",
		Usage:       "billing",
		Handler:     billingHandler,
	})
	r.Register(accountGroup, &Command{
		Name:        "upgrade",
		ShortName:   "u",
		Description: "Get a checkout link, or confirm a payment reference",
		Usage:       "upgrade [reference]",
		Handler:     upgradeHandler,
	})
	r.Register(accountGroup, &Command{
		Name:        "profile",
		ShortName:   "f",
		Description: "Show or set display names",
		Usage:       "profile [first [last]]",
		Handler:     profileHandler,
	})
	r.Register(accountGroup, &Command{
		Name:        "stats",
		ShortName:   "a",
		Description: "Show puzzle statistics",
		Usage:       "stats",
		Handler:     statsHandler,
	})
}

func billingHandler(s *session.Session, args []string) error {
	b, err := s.Client.GetBilling()
	if err != nil {
		return err
	}
	out := display.Stdout
	fmt.Fprintf(out, "Plan:    %s%s%s\n", display.Cyan, b.Plan, display.Reset)
	fmt.Fprintf(out, "Credits: %d\n", b.AvailableCredits)
	for _, p := range b.Plans {
		fmt.Fprintf(out, "  %-5s %4d credits  %s\n", p.Name, p.Credits, p.Price)
	}
	return nil
}

func upgradeHandler(s *session.Session, args []string) error {
	if len(args) == 0 {
		resp, err := s.Client.Checkout()
		if err != nil {
			return err
		}
		fmt.Fprintf(display.Stdout, "Open to pay: %s%s%s\n", display.Cyan, resp.URL, display.Reset)
		fmt.Fprintln(display.Stdout, "Then run 'upgrade <reference>' with the checkout reference")
		return nil
	}

	b, err := s.Client.CompleteCheckout(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(display.Stdout, "%sUpgraded to %s, %d credits%s\n", display.Green, b.Plan, b.AvailableCredits, display.Reset)
	return nil
}

func profileHandler(s *session.Session, args []string) error {
	out := display.Stdout
	if len(args) == 0 {
		p, err := s.Client.GetProfile()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s %s (%s)\n", p.FirstName, p.LastName, p.Username)
		return nil
	}

	last := strings.Join(args[1:], " ")
	p, err := s.Client.UpdateProfile(args[0], last)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%sProfile saved: %s %s%s\n", display.Green, p.FirstName, p.LastName, display.Reset)
	return nil
}

func statsHandler(s *session.Session, args []string) error {
	st, err := s.Client.GetStats()
	if err != nil {
		return err
	}

	out := display.Stdout
	fmt.Fprintf(out, "Solved %d of %d (%.1f%%)\n", st.Solved, st.Total, st.SuccessRate)
	for _, c := range st.Categories {
		fmt.Fprintf(out, "  %-16s %d/%d\n", c.Category, c.Solved, c.Total)
	}
	if len(st.Recent) > 0 {
		fmt.Fprintf(out, "%sRecent:%s\n", display.Cyan, display.Reset)
		for _, a := range st.Recent {
			mark := display.Red + "x" + display.Reset
			if a.Solved {
				mark = display.Green + "+" + display.Reset
			}
			fmt.Fprintf(out, "  %s %-8s %-16s %s\n", mark, a.PuzzleID, a.Category, a.CreatedAt.Local().Format("01-02 15:04"))
		}
	}
	return nil
}
