package models

import (
	"testing"

	"homematch/apperrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCriteria(t *testing.T) {
	require.NoError(t, Validate(Criteria{OfferType: OfferTypeRent}))

	err := Validate(Criteria{})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
	assert.Contains(t, err.Error(), "OfferType")

	err = Validate(Criteria{OfferType: "lease"})
	assert.True(t, apperrors.IsValidation(err))
}

func TestValidateAcceptsInvertedRange(t *testing.T) {
	from, to := 5000.0, 3000.0
	assert.NoError(t, Validate(Criteria{OfferType: OfferTypeBuy, PriceFrom: &from, PriceTo: &to}))
}

func TestValidateWeightsRange(t *testing.T) {
	ok, tooHigh := 5, 6
	assert.NoError(t, Validate(Weights{PriceTo: &ok}))
	assert.True(t, apperrors.IsValidation(Validate(Weights{PriceTo: &tooHigh})))
}

func TestCompatibilityLevel(t *testing.T) {
	assert.Equal(t, CompatibilityLow, CompatibilityLevel(0))
	assert.Equal(t, CompatibilityLow, CompatibilityLevel(39))
	assert.Equal(t, CompatibilityMedium, CompatibilityLevel(40))
	assert.Equal(t, CompatibilityMedium, CompatibilityLevel(69))
	assert.Equal(t, CompatibilityHigh, CompatibilityLevel(70))
	assert.Equal(t, CompatibilityHigh, CompatibilityLevel(100))
}

func TestInfeasibleFields(t *testing.T) {
	lo, hi := 4.0, 3.0
	c := Criteria{OfferType: OfferTypeBuy, RoomsFrom: &lo, RoomsTo: &hi}
	assert.Equal(t, []string{"rooms"}, c.InfeasibleFields())
	assert.Empty(t, Criteria{OfferType: OfferTypeBuy}.InfeasibleFields())
}

func TestEventPayloadRoundTrip(t *testing.T) {
	ev, err := NewEvent("r1", EventChatMessage, "u1", ChatMessagePayload{Text: "hi"})
	require.NoError(t, err)

	var payload ChatMessagePayload
	require.NoError(t, ev.DecodePayload(&payload))
	assert.Equal(t, "hi", payload.Text)
}
