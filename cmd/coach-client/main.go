// Command coach-client is an interactive terminal client for the coach API.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"chesscoach/internal/client/commands"
	"chesscoach/internal/client/display"
	"chesscoach/internal/client/session"

	"github.com/chzyer/readline"
)

func main() {
	apiURL := flag.String("api", envOr("COACH_API_URL", "http://localhost:8080"), "API base URL")
	history := flag.String("history", ".coach_history", "Readline history file (empty disables)")
	flag.Parse()

	s := session.New(*apiURL)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("coach"),
		HistoryFile:     *history,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	fmt.Printf("%sChess Coach Client%s\n", display.Cyan, display.Reset)
	fmt.Printf("%sAPI: %s%s\n", display.Cyan, s.APIBaseURL, display.Reset)
	fmt.Printf("Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s, readlinePrompter{rl})

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		s.Verbose = strings.HasSuffix(line, " -v")
		line = strings.TrimSuffix(line, " -v")

		if errors.Is(registry.Execute(line), commands.ErrExit) {
			break
		}
	}
}

// readlinePrompter reads follow-up answers through the same terminal
type readlinePrompter struct {
	rl *readline.Instance
}

func (p readlinePrompter) ReadLine(prompt string) (string, error) {
	p.rl.SetPrompt(prompt)
	defer p.rl.SetPrompt(display.Prompt("coach"))
	return p.rl.Readline()
}

func (p readlinePrompter) ReadPassword(prompt string) (string, error) {
	pw, err := p.rl.ReadPassword(prompt)
	return string(pw), err
}

func buildPrompt(s *session.Session) string {
	var parts []string
	if s.Username != "" {
		parts = append(parts, display.Magenta+s.Username+display.Reset)
	}
	if s.CurrentTraining != "" {
		id := s.CurrentTraining
		if len(id) > 8 {
			id = id[:8]
		}
		parts = append(parts, display.White+id+display.Reset)
	}

	prompt := "coach"
	if len(parts) > 0 {
		prompt += display.Yellow + " [" + display.Reset + strings.Join(parts, display.Yellow+" - "+display.Reset) + display.Yellow + "]"
	}

	if t := s.Training; t != nil && t.PuzzleID != "" {
		prompt += fmt.Sprintf(" %s %d/%d", display.Side(t.UserSide), t.SolutionIndex, t.SolutionLength)
		if t.State == "complete" {
			prompt += display.Green + " done" + display.Reset
		}
	}
	return display.Prompt(prompt)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
