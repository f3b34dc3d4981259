package display

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

func PrettyPrintJSON(w io.Writer, v any) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintf(w, "%sError formatting JSON: %s%s\n", Red, err.Error(), Reset)
		return
	}
	fmt.Fprintln(w, string(data))
}

// Moves numbers a UCI move list in pairs, e.g. "1. e2e4 e7e5 2. g1f3"
func Moves(moves []string) string {
	if len(moves) == 0 {
		return "-"
	}
	var sb strings.Builder
	for i, m := range moves {
		if i%2 == 0 {
			if i > 0 {
				sb.WriteByte(' ')
			}
			fmt.Fprintf(&sb, "%d. ", i/2+1)
		} else {
			sb.WriteByte(' ')
		}
		sb.WriteString(m)
	}
	return sb.String()
}
