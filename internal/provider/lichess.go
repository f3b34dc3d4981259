package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultLichessURL = "https://lichess.org"
	nextPath          = "/api/puzzle/next"
	dailyPath         = "/api/puzzle/daily"
	maxResponseBytes  = 1 << 20
)

// Raw is the puzzle payload returned by the Lichess puzzle API
type Raw struct {
	Game struct {
		ID  string `json:"id"`
		PGN string `json:"pgn"`
	} `json:"game"`
	Puzzle struct {
		ID         string   `json:"id"`
		Rating     int      `json:"rating"`
		Plays      int      `json:"plays"`
		Solution   []string `json:"solution"`
		Themes     []string `json:"themes"`
		InitialPly int      `json:"initialPly"`
	} `json:"puzzle"`
}

// Source produces raw puzzles from a remote API
type Source interface {
	Next(ctx context.Context) (Raw, error)
	Daily(ctx context.Context) (Raw, error)
}

// LichessSource fetches puzzles over HTTP
type LichessSource struct {
	baseURL string
	token   string
	client  *http.Client
}

func NewLichessSource(baseURL, token string, timeout time.Duration) *LichessSource {
	if baseURL == "" {
		baseURL = DefaultLichessURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &LichessSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (s *LichessSource) Next(ctx context.Context) (Raw, error) {
	return s.get(ctx, nextPath)
}

func (s *LichessSource) Daily(ctx context.Context) (Raw, error) {
	return s.get(ctx, dailyPath)
}

func (s *LichessSource) get(ctx context.Context, path string) (Raw, error) {
	var raw Raw

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return raw, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return raw, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return raw, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return raw, fmt.Errorf("puzzle API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	if err := json.Unmarshal(body, &raw); err != nil {
		return raw, fmt.Errorf("malformed puzzle payload: %w", err)
	}
	return raw, nil
}
