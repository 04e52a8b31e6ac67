package ledger

import "github.com/rshade/nutricount/internal/nutrition"

// Entry is a ledger item resolved for display.
type Entry struct {
	Item
	Name   string                    `json:"name"`
	Macros nutrition.NutrientProfile `json:"macros"`
	Staged bool                      `json:"staged"`
	Known  bool                      `json:"known"`
}

// Entries returns the consumed items followed by the staged extras with
// their current names and scaled macros. Dangling references show as
// UnknownName with zero macros.
func (l *Ledger) Entries() []Entry {
	p := l.Snapshot()
	out := make([]Entry, 0, len(p.Consumed)+len(p.Extras))
	for _, it := range p.Consumed {
		out = append(out, l.resolve(it, false))
	}
	for _, it := range p.Extras {
		out = append(out, l.resolve(it, true))
	}
	return out
}

func (l *Ledger) resolve(it Item, staged bool) Entry {
	e := Entry{Item: it, Name: UnknownName, Staged: staged}
	if profile, name, ok := l.lookup.Profile(it.Kind, it.RefID); ok {
		e.Name = name
		e.Macros = nutrition.Scale(profile, it.MassG)
		e.Known = true
	}
	return e
}
