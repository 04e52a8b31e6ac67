package nutrition

import (
	"errors"
	"fmt"
	"strings"
)

// Collection names in the document store.
const (
	CollectionFoods         = "foods"
	CollectionStandardFoods = "standardFoods"
	CollectionTuppers       = "tuppers"
	CollectionTupperTypes   = "tupperTypes"
	CollectionDailyGoals    = "dailyGoals"
)

// MainGoalID is the id of the singleton daily goal record.
const MainGoalID = "main"

// ErrUnknownKind is returned when an item kind string is not recognized.
var ErrUnknownKind = errors.New("unknown item kind")

// ItemKind identifies which reference collection a ledger item points into.
// The string values match the stored documents.
type ItemKind string

const (
	// KindFood is a food weighed by the user.
	KindFood ItemKind = "food"
	// KindStandardFood is a food with a standard portion.
	KindStandardFood ItemKind = "standard"
	// KindTupper is a prepared meal in a container.
	KindTupper ItemKind = "tupper"
)

// ParseItemKind parses a kind name. "standardFood" is accepted as an alias of "standard".
func ParseItemKind(s string) (ItemKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "food", "foods":
		return KindFood, nil
	case "standard", "standardfood", "standard-food", "standardfoods":
		return KindStandardFood, nil
	case "tupper", "tuppers":
		return KindTupper, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, s)
	}
}

// Collection returns the store collection holding entities of this kind.
func (k ItemKind) Collection() string {
	switch k {
	case KindFood:
		return CollectionFoods
	case KindStandardFood:
		return CollectionStandardFoods
	case KindTupper:
		return CollectionTuppers
	default:
		return ""
	}
}

// Stageable reports whether items of this kind may be staged as extras.
func (k ItemKind) Stageable() bool {
	return k == KindFood || k == KindStandardFood
}

// Entity is implemented by every reference record shape.
type Entity interface {
	EntityID() string
	EntityName() string
	Collection() string
}

// Food is a food with nutrients per 100 g.
type Food struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	NutrientProfile
}

// StandardFood is a food with nutrients per 100 g that is usually eaten in a
// standard portion.
type StandardFood struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	NutrientProfile
}

// Tupper is a prepared meal kept in a reusable container.
// Its nutrients are per 100 g of food, container excluded.
type Tupper struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	NutrientProfile
}

// TupperType is a kind of empty container. TareWeightG is subtracted from a
// gross weighing to obtain the food mass.
type TupperType struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	TareWeightG float64 `json:"weight"`
}

// DailyGoal is the singleton daily macro target.
type DailyGoal struct {
	ID string `json:"id"`
	NutrientProfile
}

// DefaultGoal is used when no goal has been stored.
func DefaultGoal() DailyGoal {
	return DailyGoal{
		ID: MainGoalID,
		NutrientProfile: NutrientProfile{
			Kcal:     2200,
			ProteinG: 150,
			CarbsG:   250,
			FatG:     70,
		},
	}
}

func (f Food) EntityID() string           { return f.ID }
func (f Food) EntityName() string         { return f.Name }
func (Food) Collection() string           { return CollectionFoods }
func (f StandardFood) EntityID() string   { return f.ID }
func (f StandardFood) EntityName() string { return f.Name }
func (StandardFood) Collection() string   { return CollectionStandardFoods }
func (t Tupper) EntityID() string         { return t.ID }
func (t Tupper) EntityName() string       { return t.Name }
func (Tupper) Collection() string         { return CollectionTuppers }
func (t TupperType) EntityID() string     { return t.ID }
func (t TupperType) EntityName() string   { return t.Name }
func (TupperType) Collection() string     { return CollectionTupperTypes }
func (g DailyGoal) EntityID() string      { return g.ID }
func (DailyGoal) EntityName() string      { return "daily goal" }
func (DailyGoal) Collection() string      { return CollectionDailyGoals }
