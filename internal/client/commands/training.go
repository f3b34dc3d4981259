package commands

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"

	"chesscoach/internal/client/api"
	"chesscoach/internal/client/display"
	"chesscoach/internal/client/session"
)

const trainingGroup = "Training Commands"

func (r *Registry) registerTrainingCommands() {
	for _, cmd := range []*Command{
		{Name: "new", ShortName: "n", Description: "Start a training", Usage: "new [daily]", Handler: newTrainingHandler},
		{Name: "join", ShortName: "j", Description: "Switch to an existing training", Usage: "join <trainingId>", Handler: joinHandler},
		{Name: "move", ShortName: "m", Description: "Play a move", Usage: "move <uci-move>", Handler: moveHandler},
		{Name: "hint", ShortName: "h", Description: "Show the square to move from", Usage: "hint", Handler: hintHandler},
		{Name: "reset", ShortName: "z", Description: "Restart the current puzzle", Usage: "reset", Handler: actionHandler("reset")},
		{Name: "next", ShortName: ">", Description: "Next puzzle (only once solved)", Usage: "next", Handler: actionHandler("next")},
		{Name: "skip", ShortName: "k", Description: "Load a new puzzle without solving", Usage: "skip", Handler: actionHandler("skip")},
		{Name: "retry", ShortName: "w", Description: "Fetch a puzzle again after the rotation ran out", Usage: "retry", Handler: actionHandler("retry")},
		{Name: "daily", ShortName: "y", Description: "Load the daily puzzle", Usage: "daily", Handler: actionHandler("daily")},
		{Name: "goto", ShortName: "g", Description: "Revisit a loaded puzzle", Usage: "goto <index>", Handler: gotoHandler},
		{Name: "puzzles", ShortName: "p", Description: "List loaded puzzles", Usage: "puzzles", Handler: puzzlesHandler},
		{Name: "show", ShortName: "s", Description: "Show board and puzzle state", Usage: "show", Handler: showHandler},
		{Name: "state", ShortName: "t", Description: "Show raw training JSON", Usage: "state", Handler: stateHandler},
		{Name: "image", ShortName: "b", Description: "Save the board as PNG", Usage: "image [file] [size] [white|black] [coords]", Handler: imageHandler},
		{Name: "chat", ShortName: "c", Description: "Ask the coach (costs a credit)", Usage: "chat <message>", Handler: chatHandler},
		{Name: "delete", ShortName: "d", Description: "Delete the current training", Usage: "delete", Handler: deleteHandler},
	} {
		r.Register(trainingGroup, cmd)
	}
}

func newTrainingHandler(s *session.Session, args []string) error {
	daily := len(args) > 0 && strings.EqualFold(args[0], "daily")
	t, err := s.Client.CreateTraining(daily)
	if err != nil {
		return err
	}
	s.SetTraining(t)
	fmt.Fprintf(display.Stdout, "%sTraining created: %s%s\n", display.Green, t.TrainingID, display.Reset)
	printTraining(s)
	return nil
}

func joinHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: join <trainingId>")
	}
	t, err := s.Client.GetTraining(args[0])
	if err != nil {
		return err
	}
	s.SetTraining(t)
	printTraining(s)
	return nil
}

func moveHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: move <uci-move>")
	}
	id, err := requireTraining(s)
	if err != nil {
		return err
	}

	resp, err := s.Client.MakeMove(id, args[0])
	if err != nil {
		return err
	}
	s.SetTraining(&resp.Training)

	out := display.Stdout
	fmt.Fprintf(out, "%s: %s\n", resp.Move, display.Verdict(resp.Verdict))
	if resp.Malformed {
		fmt.Fprintf(out, "%sMove text was not a legal-looking UCI move%s\n", display.Yellow, display.Reset)
	}
	if resp.Reply != "" {
		fmt.Fprintf(out, "Opponent replied %s%s%s\n", display.Magenta, resp.Reply, display.Reset)
	}
	if resp.Complete && resp.Verdict == "correct" {
		if resp.Training.Solved {
			fmt.Fprintf(out, "%sPuzzle solved!%s Type 'next' for another.\n", display.Green, display.Reset)
		} else {
			fmt.Fprintf(out, "%sPuzzle complete after a mistake.%s\n", display.Yellow, display.Reset)
		}
	}
	printBoard(s)
	return nil
}

func hintHandler(s *session.Session, args []string) error {
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	resp, err := s.Client.Hint(id)
	if err != nil {
		return err
	}
	s.HintSquare = resp.Square
	fmt.Fprintf(display.Stdout, "Move the piece on %s%s%s\n", display.Yellow, resp.Square, display.Reset)
	printBoard(s)
	return nil
}

func actionHandler(action string) func(*session.Session, []string) error {
	return func(s *session.Session, args []string) error {
		id, err := requireTraining(s)
		if err != nil {
			return err
		}
		t, err := s.Client.Action(id, action)
		if err != nil {
			return err
		}
		s.SetTraining(t)
		printTraining(s)
		return nil
	}
}

func gotoHandler(s *session.Session, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: goto <index>")
	}
	index, err := strconv.Atoi(args[0])
	if err != nil {
		return fmt.Errorf("invalid index %q", args[0])
	}
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	t, err := s.Client.GotoPuzzle(id, index)
	if err != nil {
		return err
	}
	s.SetTraining(t)
	printTraining(s)
	return nil
}

func puzzlesHandler(s *session.Session, args []string) error {
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	t, err := s.Client.GetTraining(id)
	if err != nil {
		return err
	}
	s.SetTraining(t)

	out := display.Stdout
	if len(t.Puzzles) == 0 {
		fmt.Fprintln(out, "No puzzles loaded")
		return nil
	}
	for i, p := range t.Puzzles {
		marker := "  "
		if i == t.PuzzleIndex {
			marker = display.Yellow + "> " + display.Reset
		}
		fmt.Fprintf(out, "%s%2d  %-8s %4d  %s\n", marker, i, p.PuzzleID, p.Rating, p.Category)
	}
	return nil
}

func showHandler(s *session.Session, args []string) error {
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	t, err := s.Client.GetTraining(id)
	if err != nil {
		return err
	}
	hint := s.HintSquare
	s.SetTraining(t)
	s.HintSquare = hint
	printTraining(s)
	return nil
}

func stateHandler(s *session.Session, args []string) error {
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	t, err := s.Client.GetTraining(id)
	if err != nil {
		return err
	}
	s.SetTraining(t)
	display.PrettyPrintJSON(display.Stdout, t)
	return nil
}

// imageHandler takes its arguments in any order: a file name ending in
// .png, a pixel size, an orientation word and the word coords
func imageHandler(s *session.Session, args []string) error {
	id, err := requireTraining(s)
	if err != nil {
		return err
	}

	file := "board.png"
	query := url.Values{}
	for _, arg := range args {
		switch {
		case strings.HasSuffix(arg, ".png"):
			file = arg
		case arg == "white" || arg == "black":
			query.Set("orientation", arg)
		case arg == "coords":
			query.Set("coords", "true")
		default:
			if _, err := strconv.Atoi(arg); err != nil {
				return fmt.Errorf("unexpected argument %q", arg)
			}
			query.Set("size", arg)
		}
	}

	data, err := s.Client.BoardImage(id, query)
	if err != nil {
		return err
	}
	if err := os.WriteFile(file, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(display.Stdout, "%sSaved %d bytes to %s%s\n", display.Green, len(data), file, display.Reset)
	return nil
}

func chatHandler(s *session.Session, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: chat <message>")
	}
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	resp, err := s.Client.Chat(id, strings.Join(args, " "))
	if err != nil {
		return err
	}

	out := display.Stdout
	fmt.Fprintf(out, "%sCoach:%s %s\n", display.Magenta, display.Reset, resp.Reply)
	if !resp.Delivered {
		fmt.Fprintf(out, "%s(coach unavailable, credit refunded)%s\n", display.Yellow, display.Reset)
	}
	fmt.Fprintf(out, "Credits left: %d\n", resp.AvailableCredits)
	return nil
}

func deleteHandler(s *session.Session, args []string) error {
	id, err := requireTraining(s)
	if err != nil {
		return err
	}
	if err := s.Client.DeleteTraining(id); err != nil {
		return err
	}
	s.SetTraining(nil)
	s.CurrentTraining = ""
	fmt.Fprintf(display.Stdout, "%sTraining deleted%s\n", display.Green, display.Reset)
	return nil
}

func printTraining(s *session.Session) {
	t := s.Training
	if t == nil {
		return
	}
	out := display.Stdout

	if t.Error != "" {
		fmt.Fprintf(out, "%s%s%s\n", display.Red, t.Error, display.Reset)
	}
	if t.PuzzleID == "" {
		fmt.Fprintf(out, "State: %s\n", t.State)
		return
	}

	fmt.Fprintf(out, "\nPuzzle %s%s%s (%d, %s)  %d/%d\n",
		display.Cyan, t.PuzzleID, display.Reset, t.Rating, t.Category, t.PuzzleIndex+1, t.PuzzleCount)
	fmt.Fprintf(out, "You play %s, %s to move", display.Side(t.UserSide), display.Side(t.Turn))
	if t.InCheck {
		fmt.Fprintf(out, " %s(check)%s", display.Red, display.Reset)
	}
	fmt.Fprintln(out)
	fmt.Fprintf(out, "State: %s  Progress: %d/%d\n", t.State, t.SolutionIndex, t.SolutionLength)
	fmt.Fprintf(out, "Moves: %s\n", display.Moves(t.MoveHistory))
	if len(t.WrongMoves) > 0 {
		fmt.Fprintf(out, "%sWrong: %s%s\n", display.Red, strings.Join(t.WrongMoves, " "), display.Reset)
	}
	printBoard(s)
}

// printBoard fetches the ASCII board; a failure is reported but not fatal
func printBoard(s *session.Session) {
	if s.CurrentTraining == "" {
		return
	}
	board, err := fetchBoard(s.Client, s.CurrentTraining)
	if err != nil {
		return
	}
	fmt.Fprintln(display.Stdout)
	display.RenderBoard(display.Stdout, board.Board, s.FlipBoard(), s.HintSquare)
}

func fetchBoard(c *api.Client, id string) (*api.BoardResponse, error) {
	verbose := c.Verbose
	c.SetVerbose(false)
	defer c.SetVerbose(verbose)
	return c.GetBoard(id)
}
