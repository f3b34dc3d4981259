package commands

import (
	"fmt"
	"strings"

	"chesscoach/internal/client/display"
	"chesscoach/internal/client/session"
)

const authGroup = "Auth Commands"

func (r *Registry) registerAuthCommands() {
	r.Register(authGroup, &Command{
		Name:        "register",
		ShortName:   "r",
		Description: "Register a new user",
		Usage:       "register",
		Handler:     r.registerHandler,
	})
	r.Register(authGroup, &Command{
		Name:        "login",
		ShortName:   "l",
		Description: "Login with credentials",
		Usage:       "login",
		Handler:     r.loginHandler,
	})
	r.Register(authGroup, &Command{
		Name:        "logout",
		ShortName:   "o",
		Description: "End this session, or all sessions",
		Usage:       "logout [all]",
		Handler:     logoutHandler,
	})
	r.Register(authGroup, &Command{
		Name:        "whoami",
		ShortName:   "i",
		Description: "Show current user",
		Usage:       "whoami",
		Handler:     whoamiHandler,
	})
}

func (r *Registry) registerHandler(s *session.Session, args []string) error {
	username, err := r.prompt.ReadLine(display.Yellow + "Username: " + display.Reset)
	if err != nil {
		return err
	}
	password, err := r.prompt.ReadPassword(display.Yellow + "Password: " + display.Reset)
	if err != nil {
		return err
	}
	email, err := r.prompt.ReadLine(display.Yellow + "Email (optional): " + display.Reset)
	if err != nil {
		return err
	}

	resp, err := s.Client.Register(strings.TrimSpace(username), password, strings.TrimSpace(email))
	if err != nil {
		return err
	}
	s.SetAuth(resp.Token, resp.UserID, resp.Username)

	fmt.Fprintf(display.Stdout, "%sRegistered successfully%s\n", display.Green, display.Reset)
	fmt.Fprintf(display.Stdout, "User ID: %s\nUsername: %s\n", resp.UserID, resp.Username)
	return nil
}

func (r *Registry) loginHandler(s *session.Session, args []string) error {
	identifier, err := r.prompt.ReadLine(display.Yellow + "Username or Email: " + display.Reset)
	if err != nil {
		return err
	}
	password, err := r.prompt.ReadPassword(display.Yellow + "Password: " + display.Reset)
	if err != nil {
		return err
	}

	resp, err := s.Client.Login(strings.TrimSpace(identifier), password)
	if err != nil {
		return err
	}
	s.SetAuth(resp.Token, resp.UserID, resp.Username)

	fmt.Fprintf(display.Stdout, "%sLogged in successfully%s\n", display.Green, display.Reset)
	fmt.Fprintf(display.Stdout, "User ID: %s\nUsername: %s\nExpires: %s\n",
		resp.UserID, resp.Username, resp.ExpiresAt.Local().Format("2006-01-02 15:04"))
	return nil
}

// logoutHandler revokes the session server-side, then forgets the token
// even if the server call failed
func logoutHandler(s *session.Session, args []string) error {
	if s.AuthToken == "" {
		fmt.Fprintf(display.Stdout, "%sNot authenticated%s\n", display.Yellow, display.Reset)
		return nil
	}
	all := len(args) > 0 && args[0] == "all"
	err := s.Client.Logout(all)
	s.ClearAuth()
	if err != nil {
		return err
	}
	fmt.Fprintf(display.Stdout, "%sLogged out%s\n", display.Green, display.Reset)
	return nil
}

func whoamiHandler(s *session.Session, args []string) error {
	if s.AuthToken == "" {
		fmt.Fprintf(display.Stdout, "%sNot authenticated%s\n", display.Yellow, display.Reset)
		return nil
	}

	user, err := s.Client.GetCurrentUser()
	if err != nil {
		return err
	}

	out := display.Stdout
	fmt.Fprintf(out, "%sCurrent User:%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(out, "  User ID:  %s\n", user.UserID)
	fmt.Fprintf(out, "  Username: %s\n", user.Username)
	if user.Email != "" {
		fmt.Fprintf(out, "  Email:    %s\n", user.Email)
	}
	fmt.Fprintf(out, "  Created:  %s\n", user.CreatedAt.Format("2006-01-02 15:04:05"))
	return nil
}
