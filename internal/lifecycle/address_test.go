package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

func TestAddressFromProfileKeepsFieldsApart(t *testing.T) {
	addr, err := addressFromProfile(Profile{
		FullName:     " Chisomo Banda ",
		Phone:        "+265991000111",
		AddressLine1: "Plot 12",
		PostalCode:   "",
		Locale:       "ny-MW",
	})
	require.NoError(t, err)
	assert.Equal(t, "Chisomo Banda", addr.FullName)
	assert.Equal(t, "+265991000111", addr.Phone)
	assert.Equal(t, "Plot 12", addr.Line1)
	assert.Empty(t, addr.Line2)
	assert.Empty(t, addr.City)
	assert.Empty(t, addr.PostalCode)
	assert.Equal(t, "MW", addr.Country)
}

func TestAddressFromProfileRequiresContactFields(t *testing.T) {
	_, err := addressFromProfile(Profile{FullName: "A", AddressLine1: "B"})
	require.ErrorIs(t, err, ErrIncompleteProfile)
	assert.Contains(t, err.Error(), "phone")
}

func TestCountryFromLocale(t *testing.T) {
	assert.Equal(t, "MW", countryFromLocale("en-MW"))
	assert.Equal(t, "ZA", countryFromLocale("en-ZA"))
	assert.Empty(t, countryFromLocale("en"))
	assert.Empty(t, countryFromLocale("not a locale"))
	assert.Empty(t, countryFromLocale(""))
}

func TestEscrowStatusFor(t *testing.T) {
	for status, want := range map[string]string{
		"confirmed": "held",
		"shipped":   "pending_release",
		"delivered": "released",
		"cancelled": "refunded",
	} {
		got, ok := EscrowStatusFor(orders.Status(status))
		require.True(t, ok, status)
		assert.Equal(t, want, string(got))
	}
	_, ok := EscrowStatusFor(orders.StatusPending)
	assert.False(t, ok)
	_, ok = EscrowStatusFor(orders.StatusProcessing)
	assert.False(t, ok)
}
