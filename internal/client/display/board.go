package display

import (
	"fmt"
	"io"
	"strings"
)

// ParseASCII reads the server's board text into ranks 8..1, each holding
// files a..h. ok is false when the text has an unexpected shape.
func ParseASCII(ascii string) (grid [8][8]byte, ok bool) {
	rank := 0
	for _, line := range strings.Split(ascii, "\n") {
		fields := strings.Fields(line)
		if len(fields) != 10 || fields[0] < "1" || fields[0] > "8" {
			continue
		}
		if rank == 8 {
			return grid, false
		}
		for f := 0; f < 8; f++ {
			grid[rank][f] = fields[f+1][0]
		}
		rank++
	}
	return grid, rank == 8
}

// RenderBoard prints the board with colored pieces. flip puts black at the
// bottom; highlight marks one square such as a hint's from-square.
func RenderBoard(w io.Writer, ascii string, flip bool, highlight string) {
	grid, ok := ParseASCII(ascii)
	if !ok {
		fmt.Fprintln(w, ascii)
		return
	}

	files := "abcdefgh"
	if flip {
		files = "hgfedcba"
	}
	header := Cyan + "  " + strings.Join(strings.Split(files, ""), " ") + Reset

	fmt.Fprintln(w, header)
	for i := 0; i < 8; i++ {
		r := i
		if flip {
			r = 7 - i
		}
		label := fmt.Sprintf("%s%d%s", Cyan, 8-r, Reset)
		fmt.Fprintf(w, "%s ", label)
		for j := 0; j < 8; j++ {
			f := j
			if flip {
				f = 7 - j
			}
			square := fmt.Sprintf("%c%d", 'a'+f, 8-r)
			fmt.Fprintf(w, "%s ", colorPiece(grid[r][f], square == highlight))
		}
		fmt.Fprintf(w, " %s\n", label)
	}
	fmt.Fprintln(w, header)
}

func colorPiece(p byte, marked bool) string {
	var s string
	switch {
	case p >= 'A' && p <= 'Z':
		s = Blue + string(p) + Reset
	case p >= 'a' && p <= 'z':
		s = Red + string(p) + Reset
	default:
		s = "."
	}
	if marked {
		if p == '.' || p == 0 {
			return Yellow + "*" + Reset
		}
		return Yellow + string(p) + Reset
	}
	return s
}
