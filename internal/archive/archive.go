// Package archive keeps closed days as immutable historical records.
//
// A closed day stores the totals and the consumed items as they stood at
// close time, including each item's name and scaled macros, so later edits
// to foods or tuppers never change history.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/logging"
	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/store"
)

// CollectionHistoricalDays holds one document per closed day.
const CollectionHistoricalDays = "historicalDays"

// DateLayout is the calendar date format of HistoricalDay.Date.
const DateLayout = "2006-01-02"

var (
	// ErrDayNotFound indicates no historical day has the given id.
	ErrDayNotFound = errors.New("historical day not found")
	// ErrInvalidDate indicates a date that is not YYYY-MM-DD.
	ErrInvalidDate = errors.New("invalid date, expected YYYY-MM-DD")
)

// ArchivedItem is a consumed item frozen at close time.
type ArchivedItem struct {
	Key    string                    `json:"key"`
	Kind   nutrition.ItemKind        `json:"type"`
	RefID  string                    `json:"id"`
	MassG  float64                   `json:"grams"`
	Name   string                    `json:"name"`
	Macros nutrition.NutrientProfile `json:"macros"`

	// unfrozen marks an item stored without macros by an older layout.
	unfrozen bool
}

// UnmarshalJSON decodes an item and notes whether its macros were stored.
func (it *ArchivedItem) UnmarshalJSON(data []byte) error {
	type plain ArchivedItem
	var doc struct {
		plain
		Macros *nutrition.NutrientProfile `json:"macros"`
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*it = ArchivedItem(doc.plain)
	if doc.Macros == nil {
		it.unfrozen = true
		return nil
	}
	it.Macros = *doc.Macros
	return nil
}

// HistoricalDay is a closed day. Several days may share a date.
type HistoricalDay struct {
	ID       string                    `json:"id,omitempty"`
	Date     string                    `json:"date"`
	Totals   nutrition.NutrientProfile `json:"macros"`
	Consumed []ArchivedItem            `json:"consumedList"`
}

func (d HistoricalDay) clone() HistoricalDay {
	d.Consumed = append([]ArchivedItem{}, d.Consumed...)
	return d
}

// ParseDate validates a YYYY-MM-DD date.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// Archive manages the historical days and caches them ordered by date,
// most recent first. Days sharing a date are ordered by id, newest first;
// ids come from a time-ordered generator so that is insertion order.
type Archive struct {
	store  store.DocumentStore
	lookup ledger.Lookup
	ids    ledger.KeyGenerator

	mu     sync.Mutex
	days   []HistoricalDay
	loaded bool
}

// New returns an archive over s. lookup resolves names and macros at close
// time and ids names new days.
func New(s store.DocumentStore, lookup ledger.Lookup, ids ledger.KeyGenerator) *Archive {
	return &Archive{store: s, lookup: lookup, ids: ids}
}

func (a *Archive) ensureLoaded(ctx context.Context) error {
	if a.loaded {
		return nil
	}
	days, err := store.List(ctx, a.store, CollectionHistoricalDays,
		func(d *HistoricalDay, id string) { d.ID = id })
	if err != nil {
		logging.FromContext(ctx).Error().
			Str("component", "archive").
			Str("operation", "load").
			Err(err).
			Msg("failed to load historical days")
		return err
	}
	for i := range days {
		if !a.freeze(&days[i]) {
			continue
		}
		if err = a.store.Upsert(ctx, CollectionHistoricalDays, days[i].ID, days[i]); err != nil {
			logging.FromContext(ctx).Error().
				Str("component", "archive").
				Str("operation", "load").
				Str("id", days[i].ID).
				Err(err).
				Msg("failed to write frozen macros")
			return err
		}
		logging.FromContext(ctx).Debug().
			Str("component", "archive").
			Str("operation", "load").
			Str("id", days[i].ID).
			Msg("froze macros of archived day")
	}
	a.days = days
	a.sortDays()
	a.loaded = true
	return nil
}

// freeze fills items stored without macros or keys from the entities as
// they exist now. It reports whether the day changed. Once written back the
// values stay fixed like those of any other closed day.
func (a *Archive) freeze(day *HistoricalDay) bool {
	changed := false
	for i := range day.Consumed {
		it := &day.Consumed[i]
		if it.Key == "" {
			it.Key = a.ids.NewKey()
			changed = true
		}
		if !it.unfrozen {
			continue
		}
		if profile, name, ok := a.lookup.Profile(it.Kind, it.RefID); ok {
			it.Macros = nutrition.Scale(profile, it.MassG)
			if it.Name == "" {
				it.Name = name
			}
		} else if it.Name == "" {
			it.Name = ledger.UnknownName
		}
		it.unfrozen = false
		changed = true
	}
	return changed
}

func (a *Archive) sortDays() {
	sort.SliceStable(a.days, func(i, j int) bool {
		if a.days[i].Date != a.days[j].Date {
			return a.days[i].Date > a.days[j].Date
		}
		return a.days[i].ID > a.days[j].ID
	})
}

func (a *Archive) index(id string) int {
	for i, d := range a.days {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// Close snapshots the totals and consumed items of p into a new historical
// day. It does not reset the ledger.
func (a *Archive) Close(ctx context.Context, p ledger.Progress, date string) (HistoricalDay, error) {
	if _, err := ParseDate(date); err != nil {
		return HistoricalDay{}, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(ctx); err != nil {
		return HistoricalDay{}, err
	}

	day := HistoricalDay{
		ID:       a.ids.NewKey(),
		Date:     date,
		Totals:   p.Totals,
		Consumed: make([]ArchivedItem, 0, len(p.Consumed)),
	}
	for _, it := range p.Consumed {
		item := ArchivedItem{Key: it.Key, Kind: it.Kind, RefID: it.RefID, MassG: it.MassG, Name: ledger.UnknownName}
		if profile, name, ok := a.lookup.Profile(it.Kind, it.RefID); ok {
			item.Name = name
			item.Macros = nutrition.Scale(profile, it.MassG)
		}
		day.Consumed = append(day.Consumed, item)
	}

	if err := a.store.Upsert(ctx, CollectionHistoricalDays, day.ID, day); err != nil {
		logging.FromContext(ctx).Error().
			Str("component", "archive").
			Str("operation", "close").
			Str("date", date).
			Err(err).
			Msg("failed to archive day")
		return HistoricalDay{}, err
	}
	a.days = append(a.days, day)
	a.sortDays()

	logging.FromContext(ctx).Info().
		Str("component", "archive").
		Str("operation", "close").
		Str("id", day.ID).
		Str("date", date).
		Int("items", len(day.Consumed)).
		Float64("kcal", day.Totals.Kcal).
		Msg("day archived")
	return day.clone(), nil
}

// CloseAndReset archives the ledger's current day and then resets the
// ledger. When the reset fails the archived day is still returned.
func (a *Archive) CloseAndReset(ctx context.Context, l *ledger.Ledger, date string) (HistoricalDay, error) {
	p, err := l.Current(ctx)
	if err != nil {
		return HistoricalDay{}, err
	}
	day, err := a.Close(ctx, p, date)
	if err != nil {
		return HistoricalDay{}, err
	}
	if err = l.Reset(ctx); err != nil {
		return day, fmt.Errorf("day %s archived but ledger not reset: %w", day.ID, err)
	}
	return day, nil
}

// List returns every historical day, most recent date first.
func (a *Archive) List(ctx context.Context) ([]HistoricalDay, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(ctx); err != nil {
		return nil, err
	}
	out := make([]HistoricalDay, 0, len(a.days))
	for _, d := range a.days {
		out = append(out, d.clone())
	}
	return out, nil
}

// Get returns one historical day.
func (a *Archive) Get(ctx context.Context, id string) (HistoricalDay, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(ctx); err != nil {
		return HistoricalDay{}, err
	}
	i := a.index(id)
	if i < 0 {
		return HistoricalDay{}, fmt.Errorf("%w: %s", ErrDayNotFound, id)
	}
	return a.days[i].clone(), nil
}

// Rename changes only the date of a historical day. An empty date is a
// no-op reported by ok=false.
func (a *Archive) Rename(ctx context.Context, id, newDate string) (bool, error) {
	if newDate == "" {
		return false, nil
	}
	if _, err := ParseDate(newDate); err != nil {
		return false, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(ctx); err != nil {
		return false, err
	}
	i := a.index(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrDayNotFound, id)
	}

	if err := a.store.Update(ctx, CollectionHistoricalDays, id, map[string]any{"date": newDate}); err != nil {
		return false, err
	}
	old := a.days[i].Date
	a.days[i].Date = newDate
	a.sortDays()

	logging.FromContext(ctx).Info().
		Str("component", "archive").
		Str("operation", "rename").
		Str("id", id).
		Str("from", old).
		Str("to", newDate).
		Msg("historical day renamed")
	return true, nil
}

// Delete removes a historical day.
func (a *Archive) Delete(ctx context.Context, id string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.ensureLoaded(ctx); err != nil {
		return err
	}
	i := a.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrDayNotFound, id)
	}
	if err := a.store.Delete(ctx, CollectionHistoricalDays, id); err != nil {
		return err
	}
	a.days = append(a.days[:i], a.days[i+1:]...)

	logging.FromContext(ctx).Info().
		Str("component", "archive").
		Str("operation", "delete").
		Str("id", id).
		Msg("historical day deleted")
	return nil
}
