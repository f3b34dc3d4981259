package puzzle

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/corentings/chess/v2"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultRating   = 1500
	DefaultCategory = "Tactics"
)

var (
	ErrEmptySolution = errors.New("puzzle has no solution moves")
	ErrNoPosition    = errors.New("puzzle has neither game text nor FEN")
)

var uciPattern = regexp.MustCompile(`^[a-h][1-8][a-h][1-8][qrbn]?$`)

// moveNumberPattern matches "12." and "12..." as well as the "12.e4" prefix form
var moveNumberPattern = regexp.MustCompile(`^\d+\.+`)

// Puzzle is an immutable tactical exercise
type Puzzle struct {
	ID       string   `json:"id"`
	FEN      string   `json:"fen,omitempty"`
	Solution []string `json:"solution"`
	Rating   int      `json:"rating"`
	Category string   `json:"category"`
	Side     Color    `json:"-"`
	GameText string   `json:"gameText,omitempty"`
	StartPly int      `json:"startPly,omitempty"`
}

// Validate checks that a puzzle can be played at all
func (p Puzzle) Validate() error {
	if p.ID == "" {
		return fmt.Errorf("puzzle id is empty")
	}
	if len(p.Solution) == 0 {
		return ErrEmptySolution
	}
	for i, mv := range p.Solution {
		if !IsUCI(mv) {
			return fmt.Errorf("solution move %d %q is not UCI", i, mv)
		}
	}
	if p.GameText == "" && p.FEN == "" {
		return ErrNoPosition
	}
	return nil
}

// IsUCI reports whether s is a coordinate move like e2e4 or a7a8q
func IsUCI(s string) bool {
	return uciPattern.MatchString(s)
}

// StartPosition returns the FEN the user starts solving from. Game text wins
// over a stored FEN when both are present.
func StartPosition(p Puzzle) (string, error) {
	if p.GameText == "" {
		if p.FEN == "" {
			return "", ErrNoPosition
		}
		if _, err := ParseFEN(p.FEN); err != nil {
			return "", err
		}
		return p.FEN, nil
	}

	g, err := Replay(p.GameText, p.StartPly)
	if err != nil {
		return "", fmt.Errorf("puzzle %s: %w", p.ID, err)
	}
	fen := g.FEN()

	if p.FEN != "" && placement(p.FEN) != placement(fen) {
		log.WithFields(log.Fields{
			"puzzleId": p.ID,
			"stored":   p.FEN,
			"computed": fen,
		}).Warn("Puzzle FEN disagrees with replayed game text, using replayed position")
	}
	return fen, nil
}

// Replay plays the first plies half-moves of SAN game text from the initial position
func Replay(gameText string, plies int) (*chess.Game, error) {
	tokens := MoveTokens(gameText)
	if plies < 0 || plies > len(tokens) {
		return nil, fmt.Errorf("start ply %d outside game text of %d moves", plies, len(tokens))
	}

	g := chess.NewGame()
	for i := 0; i < plies; i++ {
		mv, err := chess.AlgebraicNotation{}.Decode(g.Position(), tokens[i])
		if err != nil {
			return nil, fmt.Errorf("replay ply %d %q: %w", i+1, tokens[i], err)
		}
		if err := g.Move(mv, nil); err != nil {
			return nil, fmt.Errorf("replay ply %d %q: %w", i+1, tokens[i], err)
		}
	}
	return g, nil
}

// MoveTokens splits PGN move text into SAN tokens, dropping move numbers,
// annotations, comments and results
func MoveTokens(gameText string) []string {
	var tokens []string
	inComment := false
	for _, field := range strings.Fields(gameText) {
		if inComment {
			if strings.HasSuffix(field, "}") {
				inComment = false
			}
			continue
		}
		if strings.HasPrefix(field, "{") {
			inComment = !strings.HasSuffix(field, "}")
			continue
		}

		field = moveNumberPattern.ReplaceAllString(field, "")
		field = strings.TrimRight(field, "!?")
		switch field {
		case "", "1-0", "0-1", "1/2-1/2", "*":
			continue
		}
		if strings.HasPrefix(field, "$") {
			continue
		}
		tokens = append(tokens, field)
	}
	return tokens
}

func placement(fen string) string {
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		return fen[:i]
	}
	return fen
}

func newGameFromFEN(fen string) (*chess.Game, error) {
	opt, err := chess.FEN(fen)
	if err != nil {
		return nil, fmt.Errorf("invalid FEN %q: %w", fen, err)
	}
	return chess.NewGame(opt), nil
}

func colorOf(c chess.Color) Color {
	if c == chess.White {
		return ColorWhite
	}
	return ColorBlack
}
