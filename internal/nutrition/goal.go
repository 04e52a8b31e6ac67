package nutrition

import "math"

// Goal status thresholds, as a percentage of the daily kcal goal.
const (
	// GoalThresholdWarning is the intake percentage at which the day turns WARNING.
	GoalThresholdWarning = 80.0
	// GoalThresholdCritical is the intake percentage at which the day turns CRITICAL.
	GoalThresholdCritical = 90.0
	// GoalThresholdExceeded is the intake percentage at which the goal is EXCEEDED.
	GoalThresholdExceeded = 100.0
)

// GoalStatus summarizes how close intake is to the daily goal.
type GoalStatus string

const (
	GoalStatusOK       GoalStatus = "OK"
	GoalStatusWarning  GoalStatus = "WARNING"
	GoalStatusCritical GoalStatus = "CRITICAL"
	GoalStatusExceeded GoalStatus = "EXCEEDED"
)

// StatusFromPercentage maps an unclamped intake percentage to a GoalStatus.
//
// Thresholds:
//   - OK: 0-79%
//   - WARNING: 80-89%
//   - CRITICAL: 90-99%
//   - EXCEEDED: 100%+
func StatusFromPercentage(pct float64) GoalStatus {
	switch {
	case pct >= GoalThresholdExceeded:
		return GoalStatusExceeded
	case pct >= GoalThresholdCritical:
		return GoalStatusCritical
	case pct >= GoalThresholdWarning:
		return GoalStatusWarning
	default:
		return GoalStatusOK
	}
}

// Percent returns current/goal as a whole percentage clamped to [0, 100].
// A non-positive goal yields 0.
func Percent(current, goal float64) int {
	if goal <= 0 {
		return 0
	}
	return int(math.Min(100, math.Max(0, math.Round(current/goal*100))))
}

// GoalProgress compares an intake against the daily goal.
type GoalProgress struct {
	Goal     NutrientProfile `json:"goal"`
	Intake   NutrientProfile `json:"intake"`
	Preview  NutrientProfile `json:"preview"`
	Percent  PercentProfile  `json:"percent"`
	KcalOver float64         `json:"kcal_over"`
	Status   GoalStatus      `json:"status"`
}

// PercentProfile holds clamped whole percentages per macro.
type PercentProfile struct {
	Kcal    int `json:"kcal"`
	Protein int `json:"protein"`
	Carbs   int `json:"carbs"`
	Fat     int `json:"fat"`
}

// NewGoalProgress computes progress of intake against goal. preview is the
// not-yet-committed contribution (the container currently on the scale) and
// only counts towards KcalOver and Status, never towards the percentages.
func NewGoalProgress(goal, intake, preview NutrientProfile) GoalProgress {
	withPreview := intake.Kcal + preview.Kcal
	status := GoalStatusOK
	if goal.Kcal > 0 {
		status = StatusFromPercentage(withPreview / goal.Kcal * 100)
	}
	return GoalProgress{
		Goal:    goal,
		Intake:  intake,
		Preview: preview,
		Percent: PercentProfile{
			Kcal:    Percent(intake.Kcal, goal.Kcal),
			Protein: Percent(intake.ProteinG, goal.ProteinG),
			Carbs:   Percent(intake.CarbsG, goal.CarbsG),
			Fat:     Percent(intake.FatG, goal.FatG),
		},
		KcalOver: math.Round(withPreview) - math.Round(goal.Kcal),
		Status:   status,
	}
}
