package http

import (
	"fmt"
	"reflect"
	"strings"

	"chesscoach/internal/server/core"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

var validate = validator.New()

// validationMiddleware parses and validates request bodies by route
func validationMiddleware(c *fiber.Ctx) error {
	method := c.Method()
	if method == fiber.MethodGet || method == fiber.MethodDelete || method == fiber.MethodOptions {
		return c.Next()
	}

	path := c.Path()
	var requestType any

	switch {
	case strings.HasSuffix(path, "/trainings") && method == fiber.MethodPost:
		requestType = &core.CreateTrainingRequest{}
	case strings.HasSuffix(path, "/moves") && method == fiber.MethodPost:
		requestType = &core.MoveRequest{}
	case strings.HasSuffix(path, "/goto") && method == fiber.MethodPost:
		requestType = &core.GotoRequest{}
	case strings.HasSuffix(path, "/chat") && method == fiber.MethodPost:
		requestType = &core.ChatRequest{}
	case strings.HasSuffix(path, "/billing/complete") && method == fiber.MethodPost:
		requestType = &core.CheckoutCompleteRequest{}
	case strings.HasSuffix(path, "/profile") && method == fiber.MethodPut:
		requestType = &core.ProfileRequest{}
	default:
		return c.Next()
	}

	// an empty body keeps the zero value, required fields still fail below
	if len(c.Body()) > 0 {
		if err := c.BodyParser(requestType); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
				Error:   "invalid request body",
				Code:    core.ErrInvalidRequest,
				Details: err.Error(),
			})
		}
	}

	if err := validate.Struct(requestType); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(core.ErrorResponse{
			Error:   "validation failed",
			Code:    core.ErrInvalidRequest,
			Details: validationDetails(err),
		})
	}

	c.Locals("validatedBody", requestType)
	c.Locals("validated", true)

	return c.Next()
}

func validationDetails(err error) string {
	errs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}

	var details strings.Builder
	for _, e := range errs {
		var msg string
		switch e.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", e.Field())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of [%s]", e.Field(), e.Param())
		case "min":
			if e.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("%s must be at least %s characters", e.Field(), e.Param())
			} else {
				msg = fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
			}
		case "max":
			if e.Type().Kind() == reflect.String {
				msg = fmt.Sprintf("%s must be at most %s characters", e.Field(), e.Param())
			} else {
				msg = fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
			}
		default:
			msg = fmt.Sprintf("%s failed %s validation", e.Field(), e.Tag())
		}
		if details.Len() > 0 {
			details.WriteString("; ")
		}
		details.WriteString(msg)
	}
	return details.String()
}

// validatedBody returns the body stored by validationMiddleware
func validatedBody[T any](c *fiber.Ctx) (T, bool) {
	var zero T
	if validated, ok := c.Locals("validated").(bool); !ok || !validated {
		return zero, false
	}
	body, ok := c.Locals("validatedBody").(*T)
	if !ok || body == nil {
		return zero, false
	}
	return *body, true
}

func validationBypass(c *fiber.Ctx) error {
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: "validation bypass detected",
		Code:  core.ErrInternalError,
	})
}

func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
