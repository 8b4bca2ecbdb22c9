package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestTenantValidate(t *testing.T) {
	base := Tenant{
		RentAmount: decimal.NewFromInt(100000),
		RentCycle:  CycleYearly,
		RentStart:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RentExpiry: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	t.Run("valid tenancy", func(t *testing.T) {
		tn := base
		assert.NoError(t, tn.Validate())
	})

	t.Run("zero rent rejected", func(t *testing.T) {
		tn := base
		tn.RentAmount = decimal.Zero
		assert.Error(t, tn.Validate())
	})

	t.Run("unknown cycle rejected", func(t *testing.T) {
		tn := base
		tn.RentCycle = "WEEKLY"
		assert.Error(t, tn.Validate())
	})

	t.Run("expiry before start rejected", func(t *testing.T) {
		tn := base
		tn.RentExpiry = tn.RentStart.AddDate(0, 0, -1)
		assert.Error(t, tn.Validate())
	})
}

func TestRentCycleMonths(t *testing.T) {
	assert.Equal(t, 1, CycleMonthly.Months())
	assert.Equal(t, 3, CycleQuarterly.Months())
	assert.Equal(t, 12, CycleYearly.Months())
}

func TestNextCycleStartsAtExpiry(t *testing.T) {
	tn := Tenant{
		RentCycle:  CycleQuarterly,
		RentStart:  time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		RentExpiry: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	}

	start, end := tn.NextCycle()
	assert.Equal(t, tn.RentExpiry, start)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), end)
}
