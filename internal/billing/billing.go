package billing

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

const (
	PlanFree = "free"
	PlanPaid = "paid"

	FreeCredits       = 30
	PaidCredits       = 200
	MonthlyPriceCents = 300
	ChatCost          = 1
)

var (
	ErrInsufficientCredits = errors.New("insufficient credits")
	ErrNoAccount           = errors.New("no billing account")
)

// Account is a user's plan and credit balance
type Account struct {
	UserID           string    `json:"userId" db:"user_id"`
	Plan             string    `json:"plan" db:"plan"`
	AvailableCredits int       `json:"availableCredits" db:"available_credits"`
	CustomerRef      string    `json:"-" db:"stripe_customer_id"`
	UpdatedAt        time.Time `json:"updatedAt" db:"updated_at"`
}

// Plan describes what a subscription tier grants
type Plan struct {
	Name       string `json:"name"`
	Credits    int    `json:"credits"`
	PriceCents int    `json:"priceCents"`
}

func Plans() []Plan {
	return []Plan{
		{Name: PlanFree, Credits: FreeCredits, PriceCents: 0},
		{Name: PlanPaid, Credits: PaidCredits, PriceCents: MonthlyPriceCents},
	}
}

// NewFreeAccount is the account every user starts with
func NewFreeAccount(userID string, now time.Time) Account {
	return Account{
		UserID:           userID,
		Plan:             PlanFree,
		AvailableCredits: FreeCredits,
		UpdatedAt:        now.UTC(),
	}
}

// Upgrade returns the account after a completed checkout
func Upgrade(a Account, customerRef string, now time.Time) Account {
	a.Plan = PlanPaid
	a.AvailableCredits = PaidCredits
	a.CustomerRef = customerRef
	a.UpdatedAt = now.UTC()
	return a
}

// CheckoutURL appends the user reference and email to a hosted payment link
func CheckoutURL(link, userID, email string) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user id required for checkout")
	}
	u, err := url.Parse(link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("invalid payment link %q", link)
	}
	q := u.Query()
	q.Set("client_reference_id", userID)
	if email != "" {
		q.Set("prefilled_email", email)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// FormatPrice renders cents as dollars
func FormatPrice(cents int) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}
