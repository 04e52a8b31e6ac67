package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusFromPercentage(t *testing.T) {
	tests := []struct {
		pct  float64
		want GoalStatus
	}{
		{-5, GoalStatusOK},
		{0, GoalStatusOK},
		{79.9, GoalStatusOK},
		{80, GoalStatusWarning},
		{89.99, GoalStatusWarning},
		{90, GoalStatusCritical},
		{100, GoalStatusExceeded},
		{250, GoalStatusExceeded},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, StatusFromPercentage(tt.pct), "pct=%v", tt.pct)
	}
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 50, Percent(1100, 2200))
	assert.Equal(t, 100, Percent(5000, 2200), "clamped at 100")
	assert.Equal(t, 0, Percent(10, 0), "zero goal")
	assert.Equal(t, 0, Percent(10, -1), "negative goal")
}

func TestNewGoalProgress(t *testing.T) {
	goal := DefaultGoal().NutrientProfile

	t.Run("preview counts towards status and kcal over only", func(t *testing.T) {
		intake := NutrientProfile{Kcal: 1100, ProteinG: 75}
		preview := NutrientProfile{Kcal: 900}

		p := NewGoalProgress(goal, intake, preview)

		assert.Equal(t, 50, p.Percent.Kcal)
		assert.Equal(t, 50, p.Percent.Protein)
		assert.Equal(t, -200.0, p.KcalOver)
		assert.Equal(t, GoalStatusCritical, p.Status)
	})

	t.Run("over goal", func(t *testing.T) {
		p := NewGoalProgress(goal, NutrientProfile{Kcal: 2500}, NutrientProfile{})
		assert.Equal(t, 100, p.Percent.Kcal)
		assert.Equal(t, 300.0, p.KcalOver)
		assert.Equal(t, GoalStatusExceeded, p.Status)
	})
}
