package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"cargo-connect-api-server/internal/lifecycle"
	"cargo-connect-api-server/internal/models"
)

func TestNextDeliveryStatus(t *testing.T) {
	assert.Equal(t, models.DeliveryPickedUp, lifecycle.NextDeliveryStatus(models.DeliveryAssigned))
	assert.Equal(t, models.DeliveryInTransit, lifecycle.NextDeliveryStatus(models.DeliveryPickedUp))
	assert.Equal(t, models.DeliveryDelivered, lifecycle.NextDeliveryStatus(models.DeliveryInTransit))
	assert.Empty(t, lifecycle.NextDeliveryStatus(models.DeliveryDelivered))
	assert.Empty(t, lifecycle.NextDeliveryStatus("GARBAGE"))
}

func TestCheckDeliveryTransition(t *testing.T) {
	cases := []struct {
		name string
		from string
		to   string
		ok   bool
	}{
		{"assigned to picked up", models.DeliveryAssigned, models.DeliveryPickedUp, true},
		{"picked up to in transit", models.DeliveryPickedUp, models.DeliveryInTransit, true},
		{"in transit to delivered", models.DeliveryInTransit, models.DeliveryDelivered, true},
		{"skip a step", models.DeliveryAssigned, models.DeliveryInTransit, false},
		{"jump to terminal", models.DeliveryAssigned, models.DeliveryDelivered, false},
		{"backwards", models.DeliveryInTransit, models.DeliveryPickedUp, false},
		{"stay put", models.DeliveryPickedUp, models.DeliveryPickedUp, false},
		{"out of terminal", models.DeliveryDelivered, models.DeliveryAssigned, false},
		{"unknown status", "GARBAGE", models.DeliveryPickedUp, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := lifecycle.CheckDeliveryTransition(tc.from, tc.to)
			if tc.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, lifecycle.ErrInvalidTransition)
			}
		})
	}
}

func TestCheckOfferTransition(t *testing.T) {
	assert.NoError(t, lifecycle.CheckOfferTransition(models.OfferActive, models.OfferAssigned))
	assert.NoError(t, lifecycle.CheckOfferTransition(models.OfferActive, models.OfferCancelled))
	assert.NoError(t, lifecycle.CheckOfferTransition(models.OfferAssigned, models.OfferCompleted))

	assert.Error(t, lifecycle.CheckOfferTransition(models.OfferAssigned, models.OfferCancelled))
	assert.Error(t, lifecycle.CheckOfferTransition(models.OfferCancelled, models.OfferActive))
	assert.Error(t, lifecycle.CheckOfferTransition(models.OfferCompleted, models.OfferActive))
}

func TestNewConfirmationCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := lifecycle.NewConfirmationCode()
		assert.NoError(t, err)
		assert.Len(t, code, 6)
		for _, r := range code {
			assert.True(t, r >= '0' && r <= '9', "code %q has a non-digit", code)
		}
		seen[code] = true
	}
	// 50 draws from a million values colliding every time would mean the
	// generator is broken.
	assert.Greater(t, len(seen), 1)
}
