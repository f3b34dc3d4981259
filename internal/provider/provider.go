package provider

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"chesscoach/internal/puzzle"

	log "github.com/sirupsen/logrus"
)

// MaxFetchAttempts bounds remote fetches per request before falling back
const MaxFetchAttempts = 5

var ErrNoPuzzles = errors.New("no unattempted puzzles available")

// Provider hands out puzzles, never repeating one within its lifetime
type Provider struct {
	source    Source
	builtin   []puzzle.Puzzle
	attempted map[string]struct{}
	mu        sync.Mutex
}

// New creates a provider. A nil source serves the built-in set only.
func New(source Source) *Provider {
	return &Provider{
		source:    source,
		builtin:   puzzle.Builtin(),
		attempted: make(map[string]struct{}),
	}
}

// Next returns a puzzle not served before, trying the remote source first
func (p *Provider) Next(ctx context.Context) (puzzle.Puzzle, error) {
	if p.source != nil {
		for attempt := 1; attempt <= MaxFetchAttempts; attempt++ {
			if ctx.Err() != nil {
				break
			}

			raw, err := p.source.Next(ctx)
			if err != nil {
				log.WithFields(log.Fields{
					"attempt": attempt,
				}).WithError(err).Warn("Puzzle fetch failed")
				continue
			}

			pz, err := Convert(raw)
			if err != nil {
				log.WithFields(log.Fields{
					"attempt":  attempt,
					"puzzleId": raw.Puzzle.ID,
				}).WithError(err).Warn("Discarding malformed puzzle")
				continue
			}

			if !p.claim(pz.ID) {
				log.WithFields(log.Fields{
					"attempt":  attempt,
					"puzzleId": pz.ID,
				}).Debug("Skipping already attempted puzzle")
				continue
			}
			return pz, nil
		}
		log.WithField("attempts", MaxFetchAttempts).Info("Remote puzzle source exhausted, using built-in set")
	}

	return p.fallback()
}

// Daily returns the puzzle of the day. It is not deduplicated against
// earlier puzzles but is marked as attempted.
func (p *Provider) Daily(ctx context.Context) (puzzle.Puzzle, error) {
	if p.source != nil {
		raw, err := p.source.Daily(ctx)
		if err == nil {
			pz, convErr := Convert(raw)
			if convErr == nil {
				p.claim(pz.ID)
				return pz, nil
			}
			err = convErr
		}
		log.WithError(err).Warn("Daily puzzle unavailable, using built-in set")
	}

	pz, err := p.fallback()
	if errors.Is(err, ErrNoPuzzles) && len(p.builtin) > 0 {
		return p.builtin[0], nil
	}
	return pz, err
}

// Restart forgets every served puzzle except keep, so later requests may
// repeat earlier ones
func (p *Provider) Restart(keep ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.attempted = make(map[string]struct{}, len(keep))
	for _, id := range keep {
		p.attempted[id] = struct{}{}
	}
}

func (p *Provider) seen(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.attempted[id]
	return ok
}

func (p *Provider) fallback() (puzzle.Puzzle, error) {
	for _, pz := range p.builtin {
		if p.claim(pz.ID) {
			return pz, nil
		}
	}
	return puzzle.Puzzle{}, ErrNoPuzzles
}

// claim marks id as attempted, returning false if it already was
func (p *Provider) claim(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, ok := p.attempted[id]; ok {
		return false
	}
	p.attempted[id] = struct{}{}
	return true
}

// Convert turns a raw payload into a puzzle by replaying its game text
func Convert(raw Raw) (puzzle.Puzzle, error) {
	if raw.Puzzle.ID == "" {
		return puzzle.Puzzle{}, fmt.Errorf("payload has no puzzle id")
	}
	if len(raw.Puzzle.Solution) == 0 {
		return puzzle.Puzzle{}, fmt.Errorf("puzzle %s: %w", raw.Puzzle.ID, puzzle.ErrEmptySolution)
	}
	if raw.Game.PGN == "" {
		return puzzle.Puzzle{}, fmt.Errorf("puzzle %s: payload has no game text", raw.Puzzle.ID)
	}

	rating := raw.Puzzle.Rating
	if rating <= 0 {
		rating = puzzle.DefaultRating
	}
	category := puzzle.DefaultCategory
	if len(raw.Puzzle.Themes) > 0 && raw.Puzzle.Themes[0] != "" {
		category = raw.Puzzle.Themes[0]
	}

	p := puzzle.Puzzle{
		ID:       raw.Puzzle.ID,
		Solution: append([]string(nil), raw.Puzzle.Solution...),
		Rating:   rating,
		Category: category,
		GameText: raw.Game.PGN,
		// The game text ends on the move at initialPly, which sets up the puzzle
		StartPly: raw.Puzzle.InitialPly + 1,
	}

	fen, err := puzzle.StartPosition(p)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	b, err := puzzle.ParseFEN(fen)
	if err != nil {
		return puzzle.Puzzle{}, err
	}
	p.FEN = fen
	p.Side = b.Turn()

	if err := p.Validate(); err != nil {
		return puzzle.Puzzle{}, err
	}
	return p, nil
}
