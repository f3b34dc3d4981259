package http

import (
	"errors"

	"chesscoach/internal/billing"
	"chesscoach/internal/server/core"
	"chesscoach/internal/server/service"

	"github.com/gofiber/fiber/v2"
	log "github.com/sirupsen/logrus"
)

const recentAttempts = 20

// accountError maps service errors of the account routes
func accountError(c *fiber.Ctx, err error, what string) error {
	switch {
	case errors.Is(err, service.ErrStorageDisabled):
		return storageDisabled(c)
	case service.IsNotFound(err):
		return c.Status(fiber.StatusNotFound).JSON(core.ErrorResponse{
			Error: what + " not found",
			Code:  core.ErrNotFound,
		})
	}
	log.WithError(err).Errorf("Failed to load %s", what)
	return c.Status(fiber.StatusInternalServerError).JSON(core.ErrorResponse{
		Error: "failed to load " + what,
		Code:  core.ErrInternalError,
	})
}

func billingResponse(a *billing.Account) core.BillingResponse {
	resp := core.BillingResponse{
		Plan:             a.Plan,
		AvailableCredits: a.AvailableCredits,
		UpdatedAt:        a.UpdatedAt,
	}
	for _, p := range billing.Plans() {
		resp.Plans = append(resp.Plans, core.PlanInfo{
			Name:    p.Name,
			Credits: p.Credits,
			Price:   billing.FormatPrice(p.PriceCents),
		})
	}
	return resp
}

func (h *HTTPHandler) GetBilling(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	account, err := h.svc.GetAccount(userID)
	if err != nil {
		return accountError(c, err, "account")
	}
	return c.JSON(billingResponse(account))
}

// Checkout returns the hosted payment link for the user
func (h *HTTPHandler) Checkout(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	url, err := h.svc.CheckoutURL(userID)
	if err != nil {
		return accountError(c, err, "checkout")
	}
	return c.JSON(core.CheckoutResponse{URL: url})
}

// CompleteCheckout is called by the payment success page
func (h *HTTPHandler) CompleteCheckout(c *fiber.Ctx) error {
	req, ok := validatedBody[core.CheckoutCompleteRequest](c)
	if !ok {
		return validationBypass(c)
	}
	userID, _ := c.Locals("userID").(string)

	account, err := h.svc.CompleteCheckout(userID, req.Reference)
	if err != nil {
		return accountError(c, err, "account")
	}
	return c.JSON(billingResponse(account))
}

func profileResponse(p *service.Profile) core.ProfileResponse {
	return core.ProfileResponse{
		UserID:    p.UserID,
		Username:  p.Username,
		Email:     p.Email,
		FirstName: p.FirstName,
		LastName:  p.LastName,
		UpdatedAt: p.UpdatedAt,
	}
}

func (h *HTTPHandler) GetProfile(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	p, err := h.svc.GetProfile(userID)
	if err != nil {
		return accountError(c, err, "profile")
	}
	return c.JSON(profileResponse(p))
}

func (h *HTTPHandler) UpdateProfile(c *fiber.Ctx) error {
	req, ok := validatedBody[core.ProfileRequest](c)
	if !ok {
		return validationBypass(c)
	}
	userID, _ := c.Locals("userID").(string)

	p, err := h.svc.UpdateProfile(userID, req.FirstName, req.LastName)
	if err != nil {
		return accountError(c, err, "profile")
	}
	return c.JSON(profileResponse(p))
}

func (h *HTTPHandler) GetStats(c *fiber.Ctx) error {
	userID, _ := c.Locals("userID").(string)
	stats, err := h.svc.GetStats(c.UserContext(), userID, recentAttempts)
	if err != nil {
		return accountError(c, err, "stats")
	}

	resp := core.StatsResponse{
		Total:       stats.Total,
		Solved:      stats.Solved,
		SuccessRate: stats.SuccessRate(),
		Categories:  []core.CategoryStats{},
		Recent:      []core.AttemptInfo{},
	}
	for _, cat := range stats.Categories {
		resp.Categories = append(resp.Categories, core.CategoryStats{
			Category: cat.Category,
			Total:    cat.Total,
			Solved:   cat.Solved,
		})
	}
	for _, a := range stats.Recent {
		resp.Recent = append(resp.Recent, core.AttemptInfo{
			PuzzleID:  a.PuzzleID,
			Category:  a.Category,
			Solved:    a.Solved,
			CreatedAt: a.CreatedAt,
		})
	}
	return c.JSON(resp)
}
