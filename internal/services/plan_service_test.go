package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vpnbot_backend/pkg/apperrors"
)

func TestPlans_Catalog(t *testing.T) {
	svc := NewPlanService()

	plans := svc.Plans()
	require.Len(t, plans, 3)

	assert.Equal(t, "month", plans[0].ID)
	assert.Equal(t, float64(110), plans[0].Price)
	assert.Equal(t, 30, plans[0].DurationDays)

	assert.Equal(t, "4months", plans[1].ID)
	assert.Equal(t, float64(290), plans[1].Price)
	assert.Equal(t, 120, plans[1].DurationDays)

	assert.Equal(t, "12months", plans[2].ID)
	assert.Equal(t, float64(500), plans[2].Price)
	assert.Equal(t, 365, plans[2].DurationDays)

	// Повторный вызов отдает кэшированный каталог
	assert.Equal(t, plans, svc.Plans())
}

func TestPlanByID(t *testing.T) {
	svc := NewPlanService()

	plan, err := svc.PlanByID("12months")
	require.NoError(t, err)
	assert.Equal(t, 365, plan.DurationDays)

	_, err = svc.PlanByID("weekly")
	assert.ErrorIs(t, err, apperrors.ErrUnknownPlan)
}

func TestDurationForAmount(t *testing.T) {
	svc := NewPlanService()

	assert.Equal(t, 30, svc.DurationForAmount(110))
	assert.Equal(t, 120, svc.DurationForAmount(290))
	assert.Equal(t, 365, svc.DurationForAmount(500))

	// Неизвестная сумма дает минимальный тариф
	assert.Equal(t, 30, svc.DurationForAmount(42))
	assert.Equal(t, 30, svc.DurationForAmount(0))
}
