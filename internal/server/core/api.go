package core

import "time"

// Request types

type CreateTrainingRequest struct {
	Daily bool `json:"daily"`
}

// MoveRequest takes either split coordinates or a single UCI string. Lengths
// are only capped; bad coordinates are judged as wrong moves.
type MoveRequest struct {
	From      string `json:"from" validate:"omitempty,max=8"`
	To        string `json:"to" validate:"omitempty,max=8"`
	Promotion string `json:"promotion" validate:"omitempty,max=8"`
	Move      string `json:"move" validate:"omitempty,max=16"`
}

type GotoRequest struct {
	Index int `json:"index" validate:"min=0,max=1000"`
}

type ChatRequest struct {
	Message string `json:"message" validate:"required,min=1,max=2000"`
}

type ProfileRequest struct {
	FirstName string `json:"firstName" validate:"max=100"`
	LastName  string `json:"lastName" validate:"max=100"`
}

type CheckoutCompleteRequest struct {
	Reference string `json:"reference" validate:"required,min=1,max=255"`
}

// Response types

type TrainingResponse struct {
	TrainingID     string        `json:"trainingId"`
	State          string        `json:"state"`
	PuzzleID       string        `json:"puzzleId,omitempty"`
	Rating         int           `json:"rating,omitempty"`
	Category       string        `json:"category,omitempty"`
	FEN            string        `json:"fen,omitempty"`
	StartFEN       string        `json:"startFen,omitempty"`
	Turn           string        `json:"turn,omitempty"`     // "w" or "b"
	UserSide       string        `json:"userSide,omitempty"` // "white" or "black"
	SolutionIndex  int           `json:"solutionIndex"`
	SolutionLength int           `json:"solutionLength"`
	MoveHistory    []string      `json:"moveHistory"`
	WrongMoves     []string      `json:"wrongMoves"`
	LastMove       string        `json:"lastMove,omitempty"`
	InCheck        bool          `json:"inCheck,omitempty"`
	Solved         bool          `json:"solved"`
	PuzzleIndex    int           `json:"puzzleIndex"`
	PuzzleCount    int           `json:"puzzleCount"`
	Puzzles        []PuzzleInfo  `json:"puzzles,omitempty"`
	Messages       []ChatMessage `json:"messages,omitempty"`
	Error          string        `json:"error,omitempty"`
}

type PuzzleInfo struct {
	PuzzleID string `json:"puzzleId"`
	Rating   int    `json:"rating"`
	Category string `json:"category"`
}

type MoveResponse struct {
	Verdict   string           `json:"verdict"` // "correct", "wrong", "rejected"
	Move      string           `json:"move"`
	Reply     string           `json:"reply,omitempty"`
	Malformed bool             `json:"malformed,omitempty"`
	Complete  bool             `json:"complete"`
	Recorded  bool             `json:"recorded,omitempty"`
	Training  TrainingResponse `json:"training"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type ChatMessage struct {
	Role string    `json:"role"` // "user" or "coach"
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

type ChatResponse struct {
	Reply            string `json:"reply"`
	Delivered        bool   `json:"delivered"`
	AvailableCredits int    `json:"availableCredits"`
}

type BillingResponse struct {
	Plan             string     `json:"plan"`
	AvailableCredits int        `json:"availableCredits"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	Plans            []PlanInfo `json:"plans"`
}

type PlanInfo struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   string `json:"price"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type ProfileResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

type StatsResponse struct {
	Total       int             `json:"total"`
	Solved      int             `json:"solved"`
	SuccessRate float64         `json:"successRate"` // percent, one decimal
	Categories  []CategoryStats `json:"categories"`
	Recent      []AttemptInfo   `json:"recent"`
}

type CategoryStats struct {
	Category string `json:"category"`
	Total    int    `json:"total"`
	Solved   int    `json:"solved"`
}

type AttemptInfo struct {
	PuzzleID  string    `json:"puzzleId"`
	Category  string    `json:"category"`
	Solved    bool      `json:"solved"`
	CreatedAt time.Time `json:"createdAt"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// BoardImageRequest is read from the query string of the PNG route
type BoardImageRequest struct {
	Size        int    `query:"size" validate:"omitempty,min=160,max=1600"`
	Orientation string `query:"orientation" validate:"omitempty,oneof=white black"`
	Coordinates bool   `query:"coords"`
}

type HintResponse struct {
	Square string `json:"square"`
}
