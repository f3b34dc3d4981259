package core

// Error codes
const (
	ErrTrainingNotFound  = "TRAINING_NOT_FOUND"
	ErrInvalidMove       = "INVALID_MOVE"
	ErrNotYourTurn       = "NOT_YOUR_TURN"
	ErrPuzzleComplete    = "PUZZLE_COMPLETE"
	ErrPuzzleNotComplete = "PUZZLE_NOT_COMPLETE"
	ErrPuzzleUnavailable = "PUZZLE_UNAVAILABLE"
	ErrInvalidPuzzle     = "INVALID_PUZZLE"
	ErrInsufficientFunds = "INSUFFICIENT_CREDITS"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest    = "INVALID_REQUEST"
	ErrInternalError     = "INTERNAL_ERROR"
	ErrResourceLimit     = "RESOURCE_LIMIT"
	ErrUnauthorized      = "UNAUTHORIZED"
	ErrForbidden         = "FORBIDDEN"
	ErrStorageDisabled   = "STORAGE_DISABLED"
	ErrNotFound          = "NOT_FOUND"
)
