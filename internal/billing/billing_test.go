package billing

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckoutURL(t *testing.T) {
	got, err := CheckoutURL("https://buy.example.com/test_abc", "user-1", "a+b@example.com")
	require.NoError(t, err)

	u, err := url.Parse(got)
	require.NoError(t, err)
	assert.Equal(t, "buy.example.com", u.Host)
	assert.Equal(t, "/test_abc", u.Path)
	assert.Equal(t, "user-1", u.Query().Get("client_reference_id"))
	assert.Equal(t, "a+b@example.com", u.Query().Get("prefilled_email"))

	got, err = CheckoutURL("https://buy.example.com/x", "user-1", "")
	require.NoError(t, err)
	assert.NotContains(t, got, "prefilled_email")

	_, err = CheckoutURL("nope", "user-1", "")
	assert.Error(t, err)
	_, err = CheckoutURL("https://buy.example.com/x", "", "")
	assert.Error(t, err)
}

func TestAccountLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	a := NewFreeAccount("u", now)
	assert.Equal(t, PlanFree, a.Plan)
	assert.Equal(t, FreeCredits, a.AvailableCredits)

	a.AvailableCredits = 3
	up := Upgrade(a, "cs_test_1", now.Add(time.Hour))
	assert.Equal(t, PlanPaid, up.Plan)
	assert.Equal(t, PaidCredits, up.AvailableCredits)
	assert.Equal(t, "cs_test_1", up.CustomerRef)
	assert.Equal(t, 3, a.AvailableCredits, "upgrade does not mutate the input")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "$3.00", FormatPrice(MonthlyPriceCents))
	assert.Equal(t, "$0.05", FormatPrice(5))
}
