package http

import (
	"fmt"
	"strings"
	"time"

	"chesscoach/internal/server/core"
	"chesscoach/internal/server/processor"
	"chesscoach/internal/server/service"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

const rateLimitRate = 10 // req/sec

// HTTPHandler handles HTTP requests and routes them to the processor
type HTTPHandler struct {
	proc *processor.Processor
	svc  *service.Service
}

func NewHTTPHandler(proc *processor.Processor, svc *service.Service) *HTTPHandler {
	return &HTTPHandler{proc: proc, svc: svc}
}

func NewFiberApp(proc *processor.Processor, svc *service.Service, devMode bool) *fiber.App {
	h := NewHTTPHandler(proc, svc)

	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 35 * time.Second, // chat waits on the coach webhook
		IdleTimeout:  60 * time.Second,
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "${time} ${status} ${method} ${path} ${latency}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	app.Get("/health", h.Health)

	api := app.Group("/api/v1")
	validateToken := svc.ValidateToken

	auth := api.Group("/auth")
	auth.Post("/register", ipLimiter(5, "5 registrations per minute allowed"), h.RegisterHandler)
	auth.Post("/login", ipLimiter(10, "10 login attempts per minute allowed"), h.LoginHandler)
	auth.Get("/me", AuthRequired(validateToken), h.GetCurrentUserHandler)
	auth.Post("/logout", AuthRequired(validateToken), h.LogoutHandler)

	maxReq := rateLimitRate
	if devMode {
		maxReq = rateLimitRate * 2
	}
	api.Use(limiter.New(limiter.Config{
		Max:        maxReq,
		Expiration: 1 * time.Second,
		KeyGenerator: func(c *fiber.Ctx) string {
			if xff := c.Get("X-Forwarded-For"); xff != "" {
				if idx := strings.Index(xff, ","); idx != -1 {
					return strings.TrimSpace(xff[:idx])
				}
				return xff
			}
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: fmt.Sprintf("%d requests per second allowed", maxReq),
			})
		},
	}))

	api.Use(contentTypeValidator)
	api.Use(validationMiddleware)

	optional := OptionalAuth(validateToken)
	required := AuthRequired(validateToken)

	tr := api.Group("/trainings")
	tr.Post("/", optional, h.CreateTraining)
	tr.Get("/:trainingId", optional, h.GetTraining)
	tr.Delete("/:trainingId", optional, h.DeleteTraining)
	tr.Post("/:trainingId/moves", optional, h.MakeMove)
	tr.Post("/:trainingId/reset", optional, h.trainingAction(processor.NewResetPuzzleCommand))
	tr.Post("/:trainingId/next", optional, h.trainingAction(processor.NewNextPuzzleCommand))
	tr.Post("/:trainingId/skip", optional, h.trainingAction(processor.NewSkipPuzzleCommand))
	tr.Post("/:trainingId/daily", optional, h.trainingAction(processor.NewDailyPuzzleCommand))
	tr.Post("/:trainingId/retry", optional, h.trainingAction(processor.NewRetryPuzzleCommand))
	tr.Post("/:trainingId/goto", optional, h.GotoPuzzle)
	tr.Get("/:trainingId/hint", optional, h.trainingAction(processor.NewHintCommand))
	tr.Get("/:trainingId/board", optional, h.trainingAction(processor.NewGetBoardCommand))
	tr.Get("/:trainingId/board.png", optional, h.GetBoardImage)
	tr.Post("/:trainingId/chat", required, h.Chat)

	api.Get("/billing", required, h.GetBilling)
	api.Get("/billing/checkout", required, h.Checkout)
	api.Post("/billing/complete", required, h.CompleteCheckout)
	api.Get("/profile", required, h.GetProfile)
	api.Put("/profile", required, h.UpdateProfile)
	api.Get("/stats", required, h.GetStats)

	return app
}

func ipLimiter(perMinute int, details string) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:        perMinute,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(core.ErrorResponse{
				Error:   "rate limit exceeded",
				Code:    core.ErrRateLimitExceeded,
				Details: details,
			})
		},
	})
}

// contentTypeValidator ensures POST and PUT requests have application/json
func contentTypeValidator(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodPost || method == fiber.MethodPut {
		contentType := c.Get("Content-Type")
		if contentType != "" && !strings.HasPrefix(contentType, fiber.MIMEApplicationJSON) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(core.ErrorResponse{
				Error:   "unsupported media type",
				Code:    core.ErrInvalidContent,
				Details: "Content-Type must be application/json",
			})
		}
	}
	return c.Next()
}

// customErrorHandler provides consistent error responses
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	response := core.ErrorResponse{
		Error: "internal server error",
		Code:  core.ErrInternalError,
	}

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		response.Error = e.Message

		switch code {
		case fiber.StatusNotFound:
			response.Code = core.ErrNotFound
		case fiber.StatusBadRequest:
			response.Code = core.ErrInvalidRequest
		case fiber.StatusTooManyRequests:
			response.Code = core.ErrRateLimitExceeded
		}
	}

	return c.Status(code).JSON(response)
}

// statusFor maps processor error codes to HTTP status
func statusFor(code string) int {
	switch code {
	case core.ErrTrainingNotFound, core.ErrNotFound:
		return fiber.StatusNotFound
	case core.ErrForbidden:
		return fiber.StatusForbidden
	case core.ErrUnauthorized:
		return fiber.StatusUnauthorized
	case core.ErrInsufficientFunds:
		return fiber.StatusPaymentRequired
	case core.ErrPuzzleComplete, core.ErrPuzzleNotComplete, core.ErrNotYourTurn:
		return fiber.StatusConflict
	case core.ErrInvalidPuzzle:
		return fiber.StatusUnprocessableEntity
	case core.ErrPuzzleUnavailable, core.ErrStorageDisabled, core.ErrResourceLimit:
		return fiber.StatusServiceUnavailable
	case core.ErrInternalError:
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusBadRequest
	}
}

func (h *HTTPHandler) respond(c *fiber.Ctx, resp processor.ProcessorResponse, okStatus int) error {
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	if resp.Data == nil {
		return c.SendStatus(fiber.StatusNoContent)
	}
	return c.Status(okStatus).JSON(resp.Data)
}

func invalidTrainingID(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
		Error:   "invalid training ID format",
		Code:    core.ErrInvalidRequest,
		Details: "training ID must be a valid UUID",
	})
}

// trainingParams returns the caller and the validated training ID
func trainingParams(c *fiber.Ctx) (userID, trainingID string, ok bool) {
	userID, _ = c.Locals("userID").(string)
	trainingID = c.Params("trainingId")
	return userID, trainingID, isValidUUID(trainingID)
}

// Health check endpoint with storage status
func (h *HTTPHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"time":      time.Now().Unix(),
		"storage":   h.svc.GetStorageHealth(),
		"trainings": h.svc.TrainingCount(),
	})
}

func (h *HTTPHandler) CreateTraining(c *fiber.Ctx) error {
	req, ok := validatedBody[core.CreateTrainingRequest](c)
	if !ok {
		return validationBypass(c)
	}
	userID, _ := c.Locals("userID").(string)

	resp := h.proc.Execute(c.UserContext(), processor.NewCreateTrainingCommand(userID, req))
	return h.respond(c, resp, fiber.StatusCreated)
}

func (h *HTTPHandler) GetTraining(c *fiber.Ctx) error {
	userID, trainingID, ok := trainingParams(c)
	if !ok {
		return invalidTrainingID(c)
	}
	resp := h.proc.Execute(c.UserContext(), processor.NewGetTrainingCommand(userID, trainingID))
	return h.respond(c, resp, fiber.StatusOK)
}

func (h *HTTPHandler) DeleteTraining(c *fiber.Ctx) error {
	userID, trainingID, ok := trainingParams(c)
	if !ok {
		return invalidTrainingID(c)
	}
	resp := h.proc.Execute(c.UserContext(), processor.NewDeleteTrainingCommand(userID, trainingID))
	return h.respond(c, resp, fiber.StatusNoContent)
}

func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	userID, trainingID, ok := trainingParams(c)
	if !ok {
		return invalidTrainingID(c)
	}
	req, ok := validatedBody[core.MoveRequest](c)
	if !ok {
		return validationBypass(c)
	}
	resp := h.proc.Execute(c.UserContext(), processor.NewMakeMoveCommand(userID, trainingID, req))
	return h.respond(c, resp, fiber.StatusOK)
}

func (h *HTTPHandler) GotoPuzzle(c *fiber.Ctx) error {
	userID, trainingID, ok := trainingParams(c)
	if !ok {
		return invalidTrainingID(c)
	}
	req, ok := validatedBody[core.GotoRequest](c)
	if !ok {
		return validationBypass(c)
	}
	resp := h.proc.Execute(c.UserContext(), processor.NewGotoPuzzleCommand(userID, trainingID, req))
	return h.respond(c, resp, fiber.StatusOK)
}

// trainingAction serves bodiless training commands
func (h *HTTPHandler) trainingAction(newCmd func(userID, trainingID string) processor.Command) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID, trainingID, ok := trainingParams(c)
		if !ok {
			return invalidTrainingID(c)
		}
		resp := h.proc.Execute(c.UserContext(), newCmd(userID, trainingID))
		return h.respond(c, resp, fiber.StatusOK)
	}
}

func (h *HTTPHandler) GetBoardImage(c *fiber.Ctx) error {
	userID, trainingID, ok := trainingParams(c)
	if !ok {
		return invalidTrainingID(c)
	}

	var req core.BoardImageRequest
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "invalid query",
			Code:    core.ErrInvalidRequest,
			Details: err.Error(),
		})
	}
	if err := validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: validationDetails(err),
		})
	}

	resp := h.proc.Execute(c.UserContext(), processor.NewGetBoardImageCommand(userID, trainingID, req))
	if !resp.Success {
		return c.Status(statusFor(resp.Error.Code)).JSON(resp.Error)
	}
	c.Set(fiber.HeaderCacheControl, "no-store")
	c.Type("png")
	return c.Send(resp.Data.([]byte))
}

func (h *HTTPHandler) Chat(c *fiber.Ctx) error {
	userID, trainingID, ok := trainingParams(c)
	if !ok {
		return invalidTrainingID(c)
	}
	req, ok := validatedBody[core.ChatRequest](c)
	if !ok {
		return validationBypass(c)
	}
	resp := h.proc.Execute(c.UserContext(), processor.NewChatCommand(userID, trainingID, req))
	return h.respond(c, resp, fiber.StatusOK)
}
