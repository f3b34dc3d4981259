package recorder

import (
	"context"
	"math"
)

// Summary aggregates a user's attempts
type Summary struct {
	Total      int
	Solved     int
	Categories []CategorySummary
}

type CategorySummary struct {
	Category string `db:"puzzle_category"`
	Total    int
	Solved   int
}

// SuccessRate is the solved share in percent, rounded to one decimal
func (s Summary) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return math.Round(float64(s.Solved)*1000/float64(s.Total)) / 10
}

// Reader serves the statistics views
type Reader interface {
	AttemptSummary(ctx context.Context, userID string) (Summary, error)
	RecentAttempts(ctx context.Context, userID string, limit int) ([]AttemptRecord, error)
}

// Store is an attempt backend that both records and reports
type Store interface {
	Writer
	Reader
}
