package display

import (
	"io"
	"os"
)

// Terminal color codes
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

// Stdout is where commands print; tests swap it for a buffer
var Stdout io.Writer = os.Stdout

func Prompt(text string) string {
	return Yellow + text + Yellow + " > " + Reset
}

// Side colors a side name, accepting "w"/"b" or "white"/"black"
func Side(side string) string {
	switch side {
	case "w", "white":
		return Blue + "White" + Reset
	case "b", "black":
		return Red + "Black" + Reset
	}
	return side
}

// Verdict colors a move verdict
func Verdict(v string) string {
	switch v {
	case "correct":
		return Green + v + Reset
	case "wrong":
		return Red + v + Reset
	default:
		return Yellow + v + Reset
	}
}
