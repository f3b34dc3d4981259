package puzzle

// builtin is served when the remote source cannot produce a fresh puzzle
var builtin = []Puzzle{
	{
		ID:       "builtin-1",
		FEN:      "r1bqkb1r/pp2pppp/2np1n2/6B1/3NP3/2N5/PPP2PPP/R2QKB1R b KQkq - 1 6",
		Solution: []string{"d6d5", "e4d5", "f6d5"},
		Rating:   1500,
		Category: "Fork",
		Side:     ColorBlack,
	},
	{
		ID:       "builtin-2",
		FEN:      "rnbqkb1r/pppp1ppp/5n2/4p3/2B1P3/8/PPPP1PPP/RNBQK1NR w KQkq - 4 4",
		Solution: []string{"d2d4", "e5d4", "c4f7"},
		Rating:   1200,
		Category: "Pin",
		Side:     ColorWhite,
	},
	{
		ID:       "builtin-3",
		FEN:      "rnbqkbnr/pppp1ppp/8/4p3/4P3/8/PPPP1PPP/RNBQKBNR w KQkq - 0 2",
		Solution: []string{"d2d4", "e5d4", "c2c3"},
		Rating:   1300,
		Category: DefaultCategory,
		Side:     ColorWhite,
	},
	{
		ID:       "builtin-4",
		FEN:      "r1bqkb1r/pppp1ppp/2n2n2/4p2Q/2B1P3/8/PPPP1PPP/RNB1K1NR w KQkq - 4 4",
		Solution: []string{"h5f7"},
		Rating:   800,
		Category: "Mate in 1",
		Side:     ColorWhite,
	},
	{
		ID:       "builtin-5",
		FEN:      "6k1/5ppp/8/8/8/8/8/R5K1 w - - 0 1",
		Solution: []string{"a1a8"},
		Rating:   900,
		Category: "Back rank mate",
		Side:     ColorWhite,
	},
	{
		ID:       "builtin-6",
		FEN:      "8/P5k1/8/8/8/8/6K1/8 w - - 0 1",
		Solution: []string{"a7a8q"},
		Rating:   700,
		Category: "Promotion",
		Side:     ColorWhite,
	},
}

// Builtin returns a copy of the fixed fallback puzzles
func Builtin() []Puzzle {
	out := make([]Puzzle, len(builtin))
	for i, p := range builtin {
		p.Solution = append([]string(nil), p.Solution...)
		out[i] = p
	}
	return out
}
