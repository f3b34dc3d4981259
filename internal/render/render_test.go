package render

import (
	"bytes"
	"image"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chesscoach/internal/puzzle"
)

func decode(t *testing.T, data []byte) image.Image {
	t.Helper()
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestPNGDimensions(t *testing.T) {
	data, err := PNG(puzzle.StartingFEN, Options{})
	require.NoError(t, err)
	img := decode(t, data)
	assert.Equal(t, DefaultSize, img.Bounds().Dx())
	assert.Equal(t, DefaultSize, img.Bounds().Dy())

	// rounded down to a multiple of eight
	data, err = PNG(puzzle.StartingFEN, Options{Size: 203})
	require.NoError(t, err)
	assert.Equal(t, 200, decode(t, data).Bounds().Dx())
}

func TestPNGHighlightsLastMove(t *testing.T) {
	fen := "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq - 0 1"
	plain, err := PNG(fen, Options{})
	require.NoError(t, err)
	marked, err := PNG(fen, Options{LastMove: "e2e4"})
	require.NoError(t, err)

	a, b := decode(t, plain), decode(t, marked)
	// e2 is empty after the move; sample near its corner
	x, y := 4*60+3, 6*60+3
	assert.NotEqual(t, a.At(x, y), b.At(x, y))
	// d5 is untouched
	x, y = 3*60+3, 3*60+3
	assert.Equal(t, a.At(x, y), b.At(x, y))
}

func TestPNGFlipChangesOrientation(t *testing.T) {
	fen := "4k3/8/8/8/8/8/8/4K2R w K - 0 1"
	normal, err := PNG(fen, Options{CheckSquare: "h1"})
	require.NoError(t, err)
	flipped, err := PNG(fen, Options{CheckSquare: "h1", Flip: true})
	require.NoError(t, err)

	a, b := decode(t, normal), decode(t, flipped)
	// h1 is bottom-right normally and top-left when flipped
	assert.Equal(t, a.At(7*60+3, 7*60+3), b.At(3, 3))
}

func TestPNGRejectsBadInput(t *testing.T) {
	_, err := PNG("not a fen", Options{})
	assert.Error(t, err)

	_, err = PNG(puzzle.StartingFEN, Options{Size: 10})
	assert.Error(t, err)

	_, err = PNG(puzzle.StartingFEN, Options{Size: MaxSize + 1})
	assert.Error(t, err)
}

func TestSquareAt(t *testing.T) {
	assert.Equal(t, "a8", squareAt(0, 0, false))
	assert.Equal(t, "h1", squareAt(7, 7, false))
	assert.Equal(t, "h1", squareAt(0, 0, true))
	assert.Equal(t, "e4", squareAt(4, 4, false))
}
