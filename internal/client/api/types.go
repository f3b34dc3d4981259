package api

import "time"

// Wire types mirror the server's JSON; the client keeps its own copies so
// it does not import server packages.

type HealthResponse struct {
	Status    string `json:"status"`
	Time      int64  `json:"time"`
	Storage   string `json:"storage,omitempty"`
	Trainings int    `json:"trainings"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type UserResponse struct {
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
	Email     string    `json:"email,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type CreateTrainingRequest struct {
	Daily bool `json:"daily"`
}

type MoveRequest struct {
	Move string `json:"move"`
}

type GotoRequest struct {
	Index int `json:"index"`
}

type ChatRequest struct {
	Message string `json:"message"`
}

type ProfileRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type CheckoutCompleteRequest struct {
	Reference string `json:"reference"`
}

type PuzzleInfo struct {
	PuzzleID string `json:"puzzleId"`
	Rating   int    `json:"rating"`
	Category string `json:"category"`
}

type ChatMessage struct {
	Role string    `json:"role"`
	Text string    `json:"text"`
	Time time.Time `json:"time"`
}

type TrainingResponse struct {
	TrainingID     string        `json:"trainingId"`
	State          string        `json:"state"`
	PuzzleID       string        `json:"puzzleId"`
	Rating         int           `json:"rating"`
	Category       string        `json:"category"`
	FEN            string        `json:"fen"`
	Turn           string        `json:"turn"`
	UserSide       string        `json:"userSide"`
	SolutionIndex  int           `json:"solutionIndex"`
	SolutionLength int           `json:"solutionLength"`
	MoveHistory    []string      `json:"moveHistory"`
	WrongMoves     []string      `json:"wrongMoves"`
	LastMove       string        `json:"lastMove"`
	InCheck        bool          `json:"inCheck"`
	Solved         bool          `json:"solved"`
	PuzzleIndex    int           `json:"puzzleIndex"`
	PuzzleCount    int           `json:"puzzleCount"`
	Puzzles        []PuzzleInfo  `json:"puzzles"`
	Messages       []ChatMessage `json:"messages"`
	Error          string        `json:"error"`
}

type MoveResponse struct {
	Verdict   string           `json:"verdict"`
	Move      string           `json:"move"`
	Reply     string           `json:"reply"`
	Malformed bool             `json:"malformed"`
	Complete  bool             `json:"complete"`
	Recorded  bool             `json:"recorded"`
	Training  TrainingResponse `json:"training"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"`
}

type HintResponse struct {
	Square string `json:"square"`
}

type ChatResponse struct {
	Reply            string `json:"reply"`
	Delivered        bool   `json:"delivered"`
	AvailableCredits int    `json:"availableCredits"`
}

type PlanInfo struct {
	Name    string `json:"name"`
	Credits int    `json:"credits"`
	Price   string `json:"price"`
}

type BillingResponse struct {
	Plan             string     `json:"plan"`
	AvailableCredits int        `json:"availableCredits"`
	UpdatedAt        time.Time  `json:"updatedAt"`
	Plans            []PlanInfo `json:"plans"`
}

type CheckoutResponse struct {
	URL string `json:"url"`
}

type ProfileResponse struct {
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
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

type StatsResponse struct {
	Total       int             `json:"total"`
	Solved      int             `json:"solved"`
	SuccessRate float64         `json:"successRate"`
	Categories  []CategoryStats `json:"categories"`
	Recent      []AttemptInfo   `json:"recent"`
}
