package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// FallbackReply is shown in place of a coach reply when the webhook fails
const FallbackReply = "Sorry, I couldn't reach the coach right now. Please try again in a moment."

const maxReplyBytes = 64 << 10

var ErrDisabled = errors.New("coach webhook not configured")

// MovePayload is posted after every accepted move
type MovePayload struct {
	PuzzleID    string    `json:"puzzleId"`
	FEN         string    `json:"fen"`
	MoveHistory []string  `json:"moveHistory"`
	UserID      string    `json:"userId"`
	Timestamp   time.Time `json:"timestamp"`
}

// ChatPayload is posted for free-text questions
type ChatPayload struct {
	Message     string    `json:"message"`
	UserID      string    `json:"userId"`
	PuzzleID    string    `json:"puzzleId"`
	MoveHistory []string  `json:"moveHistory"`
	Timestamp   time.Time `json:"timestamp"`
}

// Client posts payloads to the coach webhook
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// SendMove reports a move. On failure the returned reply is FallbackReply.
func (c *Client) SendMove(ctx context.Context, p MovePayload) (string, error) {
	if p.MoveHistory == nil {
		p.MoveHistory = []string{}
	}
	return c.post(ctx, p)
}

// SendChat asks the coach a question. On failure the returned reply is FallbackReply.
func (c *Client) SendChat(ctx context.Context, p ChatPayload) (string, error) {
	if p.MoveHistory == nil {
		p.MoveHistory = []string{}
	}
	return c.post(ctx, p)
}

func (c *Client) post(ctx context.Context, payload any) (string, error) {
	if !c.Enabled() {
		return FallbackReply, ErrDisabled
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return FallbackReply, fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return FallbackReply, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json, text/plain")

	resp, err := c.client.Do(req)
	if err != nil {
		return FallbackReply, fmt.Errorf("webhook request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxReplyBytes))
	if err != nil {
		return FallbackReply, fmt.Errorf("failed to read webhook response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return FallbackReply, fmt.Errorf("webhook returned %d", resp.StatusCode)
	}

	reply := ParseReply(data)
	if reply == "" {
		return FallbackReply, fmt.Errorf("webhook returned an empty reply")
	}
	return reply, nil
}

// ParseReply extracts the coach text from a JSON object, a JSON string or plain text
func ParseReply(data []byte) string {
	text := strings.TrimSpace(string(data))
	if text == "" {
		return ""
	}

	switch text[0] {
	case '{':
		var obj map[string]any
		if err := json.Unmarshal([]byte(text), &obj); err == nil {
			for _, field := range []string{"reply", "message", "output", "text"} {
				if s, ok := obj[field].(string); ok && strings.TrimSpace(s) != "" {
					return strings.TrimSpace(s)
				}
			}
			return ""
		}
	case '[':
		// Some workflow tools wrap the object in an array
		var arr []json.RawMessage
		if err := json.Unmarshal([]byte(text), &arr); err == nil {
			if len(arr) == 0 {
				return ""
			}
			return ParseReply(arr[0])
		}
	case '"':
		var s string
		if err := json.Unmarshal([]byte(text), &s); err == nil {
			return strings.TrimSpace(s)
		}
	}
	return text
}
