package puzzle

import (
	"fmt"
	"strings"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// Color identifies a side
type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	switch c {
	case ColorWhite:
		return "w"
	case ColorBlack:
		return "b"
	default:
		return "-"
	}
}

// Name returns the long form used in API payloads
func (c Color) Name() string {
	switch c {
	case ColorWhite:
		return "white"
	case ColorBlack:
		return "black"
	default:
		return ""
	}
}

func (c Color) Opposite() Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// ParseColor accepts "w", "b", "white" or "black"
func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "w", "white":
		return ColorWhite, nil
	case "b", "black":
		return ColorBlack, nil
	default:
		return 0, fmt.Errorf("invalid color: %q", s)
	}
}

// Board is a read-only view of a FEN position
type Board struct {
	squares   [8][8]byte
	turn      Color
	castling  string
	enPassant string
	halfmove  int
	fullmove  int
}

func ParseFEN(fen string) (*Board, error) {
	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return nil, fmt.Errorf("invalid FEN: expected 6 parts, got %d", len(parts))
	}

	b := &Board{}

	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return nil, fmt.Errorf("invalid FEN: expected 8 ranks")
	}

	for r := 0; r < 8; r++ {
		file := 0
		for _, ch := range ranks[r] {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
			} else {
				if file >= 8 {
					return nil, fmt.Errorf("invalid FEN: too many pieces in rank %d", r+1)
				}
				if !strings.ContainsRune("pnbrqkPNBRQK", ch) {
					return nil, fmt.Errorf("invalid FEN: unknown piece %q", ch)
				}
				b.squares[r][file] = byte(ch)
				file++
			}
		}
		if file != 8 {
			return nil, fmt.Errorf("invalid FEN: rank %d has %d files", r+1, file)
		}
	}

	switch parts[1] {
	case "w":
		b.turn = ColorWhite
	case "b":
		b.turn = ColorBlack
	default:
		return nil, fmt.Errorf("invalid FEN: turn must be 'w' or 'b'")
	}
	b.castling = parts[2]
	b.enPassant = parts[3]

	if _, err := fmt.Sscanf(parts[4], "%d", &b.halfmove); err != nil {
		return nil, fmt.Errorf("invalid FEN: halfmove counter")
	}
	if _, err := fmt.Sscanf(parts[5], "%d", &b.fullmove); err != nil {
		return nil, fmt.Errorf("invalid FEN: fullmove counter")
	}

	return b, nil
}

// ToASCII creates an ASCII representation of the board, white at the bottom
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 0; r < 8; r++ {
		sb.WriteString(fmt.Sprintf("%d ", 8-r))
		for f := 0; f < 8; f++ {
			piece := b.squares[r][f]
			if piece == 0 {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", piece))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", 8-r))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}

func (b *Board) Turn() Color {
	return b.turn
}

// PieceAt returns the FEN letter on a square like "e4", or 0 when empty or invalid
func (b *Board) PieceAt(square string) byte {
	if !validSquare(square) {
		return 0
	}
	file := square[0] - 'a'
	rank := '8' - square[1]
	return b.squares[rank][file]
}

// ColorAt returns the color of the piece on a square
func (b *Board) ColorAt(square string) (Color, bool) {
	p := b.PieceAt(square)
	switch {
	case p == 0:
		return 0, false
	case p >= 'A' && p <= 'Z':
		return ColorWhite, true
	default:
		return ColorBlack, true
	}
}

// KingSquare returns the square of the king of the given color
func (b *Board) KingSquare(c Color) string {
	king := byte('k')
	if c == ColorWhite {
		king = 'K'
	}
	for r := 0; r < 8; r++ {
		for f := 0; f < 8; f++ {
			if b.squares[r][f] == king {
				return fmt.Sprintf("%c%c", 'a'+f, '8'-r)
			}
		}
	}
	return ""
}

func validSquare(square string) bool {
	return len(square) == 2 &&
		square[0] >= 'a' && square[0] <= 'h' &&
		square[1] >= '1' && square[1] <= '8'
}
