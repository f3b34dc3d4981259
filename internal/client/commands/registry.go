package commands

import (
	"errors"
	"fmt"
	"strings"

	"chesscoach/internal/client/display"
	"chesscoach/internal/client/session"
)

// ErrExit asks the read loop to stop
var ErrExit = errors.New("exit")

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(*session.Session, []string) error
}

type group struct {
	title string
	names []string
}

// Registry maps command names and short forms to handlers
type Registry struct {
	session  *session.Session
	commands map[string]*Command
	groups   []group
	prompt   Prompter
}

// Prompter reads interactive input; the readline instance in main satisfies
// it through an adapter
type Prompter interface {
	ReadLine(prompt string) (string, error)
	ReadPassword(prompt string) (string, error)
}

func NewRegistry(s *session.Session, prompt Prompter) *Registry {
	r := &Registry{
		session:  s,
		commands: make(map[string]*Command),
		prompt:   prompt,
	}

	r.registerTrainingCommands()
	r.registerAuthCommands()
	r.registerAccountCommands()
	r.registerDebugCommands()

	r.Register(utilGroup, &Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})
	r.Register(utilGroup, &Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Handler:     func(*session.Session, []string) error { return ErrExit },
	})

	return r
}

// Register adds cmd under a help group title
func (r *Registry) Register(title string, cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
	for i := range r.groups {
		if r.groups[i].title == title {
			r.groups[i].names = append(r.groups[i].names, cmd.Name)
			return
		}
	}
	r.groups = append(r.groups, group{title: title, names: []string{cmd.Name}})
}

// Execute runs one input line. It returns ErrExit when the user asked to
// leave; other errors are printed.
func (r *Registry) Execute(input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	cmd, exists := r.commands[parts[0]]
	if !exists {
		fmt.Fprintf(display.Stdout, "%sUnknown command: %s%s\n", display.Red, parts[0], display.Reset)
		fmt.Fprintln(display.Stdout, "Type 'help' for available commands")
		return nil
	}

	r.session.Client.SetVerbose(r.session.Verbose)

	err := cmd.Handler(r.session, parts[1:])
	if errors.Is(err, ErrExit) {
		fmt.Fprintf(display.Stdout, "%sGoodbye!%s\n", display.Cyan, display.Reset)
		return ErrExit
	}
	if err != nil {
		fmt.Fprintf(display.Stdout, "%sError: %s%s\n", display.Red, err.Error(), display.Reset)
	}
	return nil
}

func (r *Registry) helpHandler(s *session.Session, args []string) error {
	out := display.Stdout
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		fmt.Fprintf(out, "\n%s%s%s - %s\n", display.Cyan, cmd.Name, display.Reset, cmd.Description)
		if cmd.ShortName != "" {
			fmt.Fprintf(out, "Short form: %s%s%s\n", display.Cyan, cmd.ShortName, display.Reset)
		}
		fmt.Fprintf(out, "Usage: %s\n", cmd.Usage)
		return nil
	}

	fmt.Fprintf(out, "\n%sAvailable Commands:%s\n", display.Cyan, display.Reset)
	for _, g := range r.groups {
		fmt.Fprintf(out, "\n%s%s:%s\n", display.Yellow, g.title, display.Reset)
		for _, name := range g.names {
			cmd := r.commands[name]
			shortPart := "    "
			if cmd.ShortName != "" {
				shortPart = fmt.Sprintf("[%s%s%s] ", display.Cyan, cmd.ShortName, display.Reset)
			}
			fmt.Fprintf(out, "  %s%-10s %s\n", shortPart, cmd.Name, cmd.Description)
		}
	}

	fmt.Fprintln(out, "\nType 'help <command>' for detailed usage")
	fmt.Fprintln(out, "Add '-v' to any command for verbose output")
	return nil
}

// requireTraining returns the current training ID or an error telling the
// user how to get one
func requireTraining(s *session.Session) (string, error) {
	if s.CurrentTraining == "" {
		return "", errors.New("no current training (use 'new' or 'join')")
	}
	return s.CurrentTraining, nil
}
