package processor

import (
	"context"
	"errors"
	"time"
	"unicode"

	"chesscoach/internal/billing"
	"chesscoach/internal/coach"
	"chesscoach/internal/provider"
	"chesscoach/internal/puzzle"
	"chesscoach/internal/render"
	"chesscoach/internal/server/core"
	"chesscoach/internal/server/service"
	"chesscoach/internal/server/training"

	log "github.com/sirupsen/logrus"
)

// Options configure move notifications to the coach
type Options struct {
	NotifyMoves bool
	Workers     int
	QueueSize   int
	Timeout     time.Duration
}

// Processor executes training commands against the service
type Processor struct {
	svc        *service.Service
	coach      *coach.Client
	dispatcher *coach.Dispatcher // nil when move notifications are off
}

func New(svc *service.Service, opts Options) *Processor {
	p := &Processor{
		svc:   svc,
		coach: svc.Coach(),
	}
	if opts.NotifyMoves && p.coach.Enabled() {
		p.dispatcher = coach.NewDispatcher(p.coach, opts.Workers, opts.QueueSize, opts.Timeout)
	}
	return p
}

func (p *Processor) Execute(ctx context.Context, cmd Command) ProcessorResponse {
	if cmd.Type == CmdCreateTraining {
		return p.handleCreateTraining(ctx, cmd)
	}

	t, resp := p.lookup(cmd)
	if t == nil {
		return resp
	}

	switch cmd.Type {
	case CmdGetTraining:
		return p.success(buildTrainingResponse(t.View()))
	case CmdDeleteTraining:
		return p.handleDeleteTraining(cmd)
	case CmdMakeMove:
		return p.handleMakeMove(ctx, t, cmd)
	case CmdResetPuzzle:
		return p.trainingResult(t, t.Reset())
	case CmdNextPuzzle:
		return p.trainingResult(t, t.Next(ctx))
	case CmdSkipPuzzle:
		return p.trainingResult(t, t.Skip(ctx))
	case CmdDailyPuzzle:
		return p.trainingResult(t, t.Daily(ctx))
	case CmdRetryPuzzle:
		return p.trainingResult(t, t.Retry(ctx))
	case CmdGotoPuzzle:
		args, ok := cmd.Args.(core.GotoRequest)
		if !ok {
			return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
		}
		return p.trainingResult(t, t.Goto(args.Index))
	case CmdHint:
		return p.handleHint(t)
	case CmdGetBoard:
		return p.handleGetBoard(t)
	case CmdGetBoardImage:
		return p.handleGetBoardImage(t, cmd)
	case CmdChat:
		return p.handleChat(ctx, t, cmd)
	default:
		return p.errorResponse("unknown command", core.ErrInvalidRequest)
	}
}

// lookup resolves the training and enforces ownership. Anonymous trainings
// are open to anyone holding the ID.
func (p *Processor) lookup(cmd Command) (*training.Training, ProcessorResponse) {
	t, err := p.svc.GetTraining(cmd.TrainingID)
	if err != nil {
		return nil, p.errorResponse("training not found", core.ErrTrainingNotFound)
	}
	if owner := t.UserID(); owner != "" && owner != cmd.UserID {
		return nil, p.errorResponse("training belongs to another user", core.ErrForbidden)
	}
	return t, ProcessorResponse{}
}

func (p *Processor) handleCreateTraining(ctx context.Context, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.CreateTrainingRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	t, err := p.svc.CreateTraining(ctx, cmd.UserID, args.Daily)
	if t == nil {
		if errors.Is(err, service.ErrTooManyTrainings) {
			return p.errorResponse("too many active trainings", core.ErrResourceLimit)
		}
		return p.errorResponse("failed to create training", core.ErrInternalError)
	}
	// a failed first load still yields a training in the unavailable state
	if err != nil {
		log.WithField("trainingId", t.ID()).WithError(err).Warn("Training created without a puzzle")
	}
	return p.success(buildTrainingResponse(t.View()))
}

func (p *Processor) handleDeleteTraining(cmd Command) ProcessorResponse {
	if err := p.svc.DeleteTraining(cmd.TrainingID); err != nil {
		return p.errorResponse("training not found", core.ErrTrainingNotFound)
	}
	return ProcessorResponse{Success: true}
}

func (p *Processor) handleMakeMove(ctx context.Context, t *training.Training, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.MoveRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}

	from, to, promotion := args.From, args.To, args.Promotion
	if args.Move != "" {
		from, to, promotion = puzzle.SplitMove(args.Move)
	}
	if from == "" && to == "" {
		return p.errorResponse("move required", core.ErrInvalidRequest)
	}
	malformed := !isMoveSafe(puzzle.NormalizeMove(from, to, promotion))

	res, err := t.Move(ctx, from, to, promotion)
	if err != nil {
		msg, code := mapError(err)
		return p.errorResponse(msg, code)
	}

	view := t.View()
	if res.Verdict == puzzle.VerdictCorrect {
		p.notifyCoach(t, view)
	}

	return p.success(core.MoveResponse{
		Verdict:   res.Verdict.String(),
		Move:      res.Move,
		Reply:     res.Reply,
		Malformed: malformed,
		Complete:  res.Complete,
		Recorded:  res.Recorded,
		Training:  buildTrainingResponse(view),
	})
}

// notifyCoach queues the new position for the coach; the reply lands in the
// training's conversation
func (p *Processor) notifyCoach(t *training.Training, view training.View) {
	if p.dispatcher == nil {
		return
	}
	payload := coach.MovePayload{
		PuzzleID:    view.Puzzle.ID,
		FEN:         view.FEN,
		MoveHistory: view.MoveHistory,
		UserID:      view.UserID,
		Timestamp:   time.Now().UTC(),
	}
	trainingID := t.ID()

	err := p.dispatcher.SubmitAsync(trainingID, payload, func(result coach.Result) {
		current, err := p.svc.GetTraining(trainingID)
		if err != nil {
			return // training was deleted
		}
		if result.Error != nil {
			log.WithField("trainingId", trainingID).WithError(result.Error).Warn("Coach move notification failed")
		}
		if result.Reply != "" {
			current.AddMessage(training.RoleCoach, result.Reply)
		}
	})
	if err != nil {
		log.WithField("trainingId", trainingID).WithError(err).Warn("Coach notification dropped")
	}
}

func (p *Processor) handleHint(t *training.Training) ProcessorResponse {
	square, err := t.Hint()
	if err != nil {
		msg, code := mapError(err)
		return p.errorResponse(msg, code)
	}
	return p.success(core.HintResponse{Square: square})
}

func (p *Processor) handleGetBoard(t *training.Training) ProcessorResponse {
	view := t.View()
	if !view.Loaded {
		return p.errorResponse("no puzzle loaded", core.ErrPuzzleUnavailable)
	}
	b, err := puzzle.ParseFEN(view.FEN)
	if err != nil {
		return p.errorResponse("error parsing FEN", core.ErrInvalidPuzzle)
	}
	return p.success(core.BoardResponse{
		FEN:   view.FEN,
		Board: b.ToASCII(),
	})
}

// handleGetBoardImage returns the PNG bytes as Data
func (p *Processor) handleGetBoardImage(t *training.Training, cmd Command) ProcessorResponse {
	args, _ := cmd.Args.(core.BoardImageRequest)

	view := t.View()
	if !view.Loaded {
		return p.errorResponse("no puzzle loaded", core.ErrPuzzleUnavailable)
	}

	opts := render.Options{
		Size:        args.Size,
		Flip:        view.UserSide == puzzle.ColorBlack,
		LastMove:    view.LastMove,
		Coordinates: args.Coordinates,
	}
	switch args.Orientation {
	case "white":
		opts.Flip = false
	case "black":
		opts.Flip = true
	}
	if view.InCheck {
		if b, err := puzzle.ParseFEN(view.FEN); err == nil {
			opts.CheckSquare = b.KingSquare(b.Turn())
		}
	}

	img, err := render.PNG(view.FEN, opts)
	if err != nil {
		log.WithField("trainingId", view.ID).WithError(err).Error("Board render failed")
		return p.errorResponse("failed to render board", core.ErrInternalError)
	}
	return p.success(img)
}

// handleChat spends a credit, forwards the question and refunds when the
// coach cannot answer
func (p *Processor) handleChat(ctx context.Context, t *training.Training, cmd Command) ProcessorResponse {
	args, ok := cmd.Args.(core.ChatRequest)
	if !ok {
		return p.errorResponse("invalid arguments", core.ErrInvalidRequest)
	}
	if cmd.UserID == "" {
		return p.errorResponse("chat requires an account", core.ErrUnauthorized)
	}

	balance, err := p.svc.ConsumeChatCredit(cmd.UserID)
	if err != nil {
		msg, code := mapError(err)
		return p.errorResponse(msg, code)
	}

	view := t.View()
	t.AddMessage(training.RoleUser, args.Message)

	reply, err := p.coach.SendChat(ctx, coach.ChatPayload{
		Message:     args.Message,
		UserID:      cmd.UserID,
		PuzzleID:    view.Puzzle.ID,
		MoveHistory: view.MoveHistory,
		Timestamp:   time.Now().UTC(),
	})
	delivered := err == nil
	if !delivered {
		log.WithFields(log.Fields{
			"trainingId": view.ID,
			"userId":     cmd.UserID,
		}).WithError(err).Warn("Coach chat failed")
		if refunded, rerr := p.svc.RefundChatCredit(cmd.UserID); rerr == nil {
			balance = refunded
		}
		reply = coach.FallbackReply
	}
	t.AddMessage(training.RoleCoach, reply)

	return p.success(core.ChatResponse{
		Reply:            reply,
		Delivered:        delivered,
		AvailableCredits: balance,
	})
}

// trainingResult answers navigation commands with the training state
func (p *Processor) trainingResult(t *training.Training, err error) ProcessorResponse {
	if err != nil {
		msg, code := mapError(err)
		return p.errorResponse(msg, code)
	}
	return p.success(buildTrainingResponse(t.View()))
}

// mapError translates domain errors to API error codes
func mapError(err error) (string, string) {
	switch {
	case errors.Is(err, puzzle.ErrComplete):
		return "puzzle is already complete", core.ErrPuzzleComplete
	case errors.Is(err, puzzle.ErrNotUsersTurn):
		return "not your turn", core.ErrNotYourTurn
	case errors.Is(err, puzzle.ErrSolutionIllegal):
		return "puzzle solution is not playable, reset the puzzle", core.ErrInvalidPuzzle
	case errors.Is(err, training.ErrNotComplete):
		return "finish or skip the current puzzle first", core.ErrPuzzleNotComplete
	case errors.Is(err, training.ErrIndexOutOfRange):
		return err.Error(), core.ErrInvalidRequest
	case errors.Is(err, training.ErrNoPuzzle), errors.Is(err, provider.ErrNoPuzzles):
		return "no puzzle available", core.ErrPuzzleUnavailable
	case errors.Is(err, billing.ErrInsufficientCredits):
		return "not enough credits", core.ErrInsufficientFunds
	case errors.Is(err, service.ErrStorageDisabled):
		return "storage is disabled", core.ErrStorageDisabled
	case service.IsNotFound(err):
		return "account not found", core.ErrNotFound
	default:
		return err.Error(), core.ErrInvalidPuzzle
	}
}

// isMoveSafe accepts UCI moves only: [a-h][1-8][a-h][1-8][qrbn]?
func isMoveSafe(move string) bool {
	for _, r := range move {
		if unicode.IsControl(r) {
			return false
		}
	}
	if len(move) < 4 || len(move) > 5 {
		return false
	}
	if move[0] < 'a' || move[0] > 'h' ||
		move[1] < '1' || move[1] > '8' ||
		move[2] < 'a' || move[2] > 'h' ||
		move[3] < '1' || move[3] > '8' {
		return false
	}
	if len(move) == 5 {
		switch move[4] {
		case 'q', 'r', 'b', 'n':
		default:
			return false
		}
	}
	return true
}

func (p *Processor) success(data any) ProcessorResponse {
	return ProcessorResponse{Success: true, Data: data}
}

func (p *Processor) errorResponse(message, code string) ProcessorResponse {
	return ProcessorResponse{
		Success: false,
		Error: &core.ErrorResponse{
			Error: message,
			Code:  code,
		},
	}
}

// Close drains pending coach notifications
func (p *Processor) Close() error {
	if p.dispatcher == nil {
		return nil
	}
	return p.dispatcher.Shutdown(5 * time.Second)
}
