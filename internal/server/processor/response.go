package processor

import (
	"chesscoach/internal/server/core"
	"chesscoach/internal/server/training"
)

// buildTrainingResponse constructs the standard training payload
func buildTrainingResponse(v training.View) core.TrainingResponse {
	resp := core.TrainingResponse{
		TrainingID:  v.ID,
		State:       v.State.String(),
		MoveHistory: nonNil(v.MoveHistory),
		WrongMoves:  nonNil(v.WrongMoves),
		PuzzleIndex: v.Index,
		PuzzleCount: len(v.Puzzles),
		Error:       v.Error,
	}

	for _, pz := range v.Puzzles {
		resp.Puzzles = append(resp.Puzzles, core.PuzzleInfo{
			PuzzleID: pz.ID,
			Rating:   pz.Rating,
			Category: pz.Category,
		})
	}
	for _, m := range v.Messages {
		resp.Messages = append(resp.Messages, core.ChatMessage{
			Role: m.Role,
			Text: m.Text,
			Time: m.Time,
		})
	}

	if !v.Loaded {
		return resp
	}

	resp.PuzzleID = v.Puzzle.ID
	resp.Rating = v.Puzzle.Rating
	resp.Category = v.Puzzle.Category
	resp.FEN = v.FEN
	resp.StartFEN = v.StartFEN
	resp.Turn = v.Turn.String()
	resp.UserSide = v.UserSide.Name()
	resp.SolutionIndex = v.SolutionIndex
	resp.SolutionLength = len(v.Puzzle.Solution)
	resp.LastMove = v.LastMove
	resp.InCheck = v.InCheck
	resp.Solved = v.Solved
	return resp
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
