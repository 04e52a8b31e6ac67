package archive

import (
	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/nutrition"
)

// RenderedItem is an archived item prepared for display.
type RenderedItem struct {
	Key    string                    `json:"key"`
	Kind   nutrition.ItemKind        `json:"type"`
	Name   string                    `json:"name"`
	MassG  float64                   `json:"grams"`
	Macros nutrition.NutrientProfile `json:"macros"`
	Known  bool                      `json:"known"`
}

// RenderedDay is a historical day prepared for display.
type RenderedDay struct {
	ID      string                    `json:"id"`
	Date    string                    `json:"date"`
	Weekday string                    `json:"weekday"`
	Totals  nutrition.NutrientProfile `json:"totals"`
	Items   []RenderedItem            `json:"items"`
}

// Render resolves each item's entity as it exists now for its name only.
// Macros always come from the values frozen at close time. Items whose
// entity no longer exists render as unknown with zero macros.
func Render(day HistoricalDay, lookup ledger.Lookup) RenderedDay {
	out := RenderedDay{
		ID:     day.ID,
		Date:   day.Date,
		Totals: day.Totals,
		Items:  make([]RenderedItem, 0, len(day.Consumed)),
	}
	if t, err := ParseDate(day.Date); err == nil {
		out.Weekday = t.Weekday().String()
	}
	for _, it := range day.Consumed {
		item := RenderedItem{Key: it.Key, Kind: it.Kind, Name: ledger.UnknownName, MassG: it.MassG}
		if _, name, ok := lookup.Profile(it.Kind, it.RefID); ok {
			item.Name = name
			item.Macros = it.Macros
			item.Known = true
		}
		out.Items = append(out.Items, item)
	}
	return out
}
