package processor

import (
	"chesscoach/internal/server/core"
)

// CommandType defines the type of command being executed
type CommandType int

const (
	CmdCreateTraining CommandType = iota
	CmdGetTraining
	CmdDeleteTraining
	CmdMakeMove
	CmdResetPuzzle
	CmdNextPuzzle
	CmdSkipPuzzle
	CmdDailyPuzzle
	CmdRetryPuzzle
	CmdGotoPuzzle
	CmdHint
	CmdGetBoard
	CmdGetBoardImage
	CmdChat
)

// Command is a unified structure for all processor operations
type Command struct {
	Type       CommandType
	UserID     string // empty for anonymous callers
	TrainingID string
	Args       any
}

// ProcessorResponse wraps the response with metadata
type ProcessorResponse struct {
	Success bool                `json:"success"`
	Data    any                 `json:"data,omitempty"`
	Error   *core.ErrorResponse `json:"error,omitempty"`
}

func NewCreateTrainingCommand(userID string, req core.CreateTrainingRequest) Command {
	return Command{Type: CmdCreateTraining, UserID: userID, Args: req}
}

func NewGetTrainingCommand(userID, trainingID string) Command {
	return Command{Type: CmdGetTraining, UserID: userID, TrainingID: trainingID}
}

func NewDeleteTrainingCommand(userID, trainingID string) Command {
	return Command{Type: CmdDeleteTraining, UserID: userID, TrainingID: trainingID}
}

func NewMakeMoveCommand(userID, trainingID string, req core.MoveRequest) Command {
	return Command{Type: CmdMakeMove, UserID: userID, TrainingID: trainingID, Args: req}
}

func NewResetPuzzleCommand(userID, trainingID string) Command {
	return Command{Type: CmdResetPuzzle, UserID: userID, TrainingID: trainingID}
}

func NewNextPuzzleCommand(userID, trainingID string) Command {
	return Command{Type: CmdNextPuzzle, UserID: userID, TrainingID: trainingID}
}

func NewSkipPuzzleCommand(userID, trainingID string) Command {
	return Command{Type: CmdSkipPuzzle, UserID: userID, TrainingID: trainingID}
}

func NewDailyPuzzleCommand(userID, trainingID string) Command {
	return Command{Type: CmdDailyPuzzle, UserID: userID, TrainingID: trainingID}
}

func NewRetryPuzzleCommand(userID, trainingID string) Command {
	return Command{Type: CmdRetryPuzzle, UserID: userID, TrainingID: trainingID}
}

func NewGotoPuzzleCommand(userID, trainingID string, req core.GotoRequest) Command {
	return Command{Type: CmdGotoPuzzle, UserID: userID, TrainingID: trainingID, Args: req}
}

func NewHintCommand(userID, trainingID string) Command {
	return Command{Type: CmdHint, UserID: userID, TrainingID: trainingID}
}

func NewGetBoardCommand(userID, trainingID string) Command {
	return Command{Type: CmdGetBoard, UserID: userID, TrainingID: trainingID}
}

func NewGetBoardImageCommand(userID, trainingID string, req core.BoardImageRequest) Command {
	return Command{Type: CmdGetBoardImage, UserID: userID, TrainingID: trainingID, Args: req}
}

func NewChatCommand(userID, trainingID string, req core.ChatRequest) Command {
	return Command{Type: CmdChat, UserID: userID, TrainingID: trainingID, Args: req}
}
