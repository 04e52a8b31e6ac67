// Package ledger implements the daily progress ledger: the running macro
// totals of the day together with the staged extras and the consumed items
// they were accumulated from.
//
// Extras add to the totals as soon as they are staged. A container (tupper)
// adds to the totals only when it is committed, at which point the staged
// extras move to the consumed list without being counted again. Removals
// subtract the item's scaled profile and clamp every field at zero.
//
// Every mutation computes the next state on a copy, persists it through the
// ProgressRepository and only then replaces the in-memory state, so a failed
// write leaves the ledger exactly as it was.
package ledger

import (
	"context"
	"math"
	"sync"

	"github.com/rshade/nutricount/internal/logging"
	"github.com/rshade/nutricount/internal/nutrition"
)

// StandardPortionG is the mass used when a standard food is staged without one.
const StandardPortionG = 100.0

// UnknownName is shown for items whose referenced entity no longer exists.
const UnknownName = "unknown"

// Lookup resolves item references against the reference entities.
type Lookup interface {
	Profile(kind nutrition.ItemKind, id string) (nutrition.NutrientProfile, string, bool)
	TupperType(id string) (nutrition.TupperType, bool)
}

// Selection is the caller's current container choice and scale reading.
type Selection struct {
	TupperID     string
	TupperTypeID string
	GrossWeightG float64
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithClearHook registers fn to run after Reset and Commit succeed, so the
// caller can clear its weight entry. fn runs while the ledger is locked and
// must not call back into it.
func WithClearHook(fn func()) Option {
	return func(l *Ledger) { l.onClear = fn }
}

// Ledger is the session object owning the day in progress. Operations are
// serialized; a second call waits until the previous persist has settled.
type Ledger struct {
	repo    ProgressRepository
	lookup  Lookup
	keys    KeyGenerator
	onClear func()

	mu     sync.Mutex
	state  Progress
	loaded bool
}

// New returns a ledger that has not been loaded yet. The first operation
// loads it.
func New(repo ProgressRepository, lookup Lookup, keys KeyGenerator, opts ...Option) *Ledger {
	l := &Ledger{repo: repo, lookup: lookup, keys: keys}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load reads the stored progress, creating a zeroed document when none
// exists. Stored items without a key get a fresh one and the document is
// written back so the keys stay stable.
func (l *Ledger) Load(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.load(ctx)
}

func (l *Ledger) load(ctx context.Context) error {
	log := logging.FromContext(ctx)

	p, found, err := l.repo.Load(ctx)
	if err != nil {
		log.Error().
			Str("component", "ledger").
			Str("operation", "load").
			Err(err).
			Msg("failed to load daily progress")
		return err
	}

	next := Progress{Totals: p.Totals, Extras: []Item{}, Consumed: []Item{}}
	dirty := !found
	for _, it := range p.Extras {
		if it.Key == "" {
			it.Key = l.keys.NewKey()
			dirty = true
		}
		next.Extras = append(next.Extras, it)
	}
	for _, it := range p.Consumed {
		if it.Key == "" {
			it.Key = l.keys.NewKey()
			dirty = true
		}
		next.Consumed = append(next.Consumed, it)
	}

	if dirty {
		if err = l.repo.Save(ctx, next); err != nil {
			log.Error().
				Str("component", "ledger").
				Str("operation", "load").
				Bool("created", !found).
				Err(err).
				Msg("failed to write daily progress")
			return err
		}
	}

	l.state = next
	l.loaded = true
	log.Debug().
		Str("component", "ledger").
		Str("operation", "load").
		Bool("created", !found).
		Int("extras", len(next.Extras)).
		Int("consumed", len(next.Consumed)).
		Msg("daily progress loaded")
	return nil
}

func (l *Ledger) ensureLoaded(ctx context.Context) error {
	if l.loaded {
		return nil
	}
	return l.load(ctx)
}

// commit persists next and makes it the current state.
func (l *Ledger) commit(ctx context.Context, op string, next Progress) error {
	if err := l.repo.Save(ctx, next); err != nil {
		logging.FromContext(ctx).Error().
			Str("component", "ledger").
			Str("operation", op).
			Err(err).
			Msg("failed to persist daily progress, state unchanged")
		return err
	}
	l.state = next
	return nil
}

// scaled returns the absolute macros of an item, zero for dangling references.
func (l *Ledger) scaled(it Item) nutrition.NutrientProfile {
	profile, _, ok := l.lookup.Profile(it.Kind, it.RefID)
	if !ok {
		return nutrition.Zero
	}
	return nutrition.Scale(profile, it.MassG)
}

// Stage adds a food or standard food to the extras and its macros to the
// totals. An empty reference, a non-positive mass, a kind that cannot be
// staged or an unknown entity make it a no-op reported by ok=false.
// A standard food staged with zero mass uses StandardPortionG.
func (l *Ledger) Stage(ctx context.Context, kind nutrition.ItemKind, refID string, massG float64) (Item, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoaded(ctx); err != nil {
		return Item{}, false, err
	}

	if kind == nutrition.KindStandardFood && massG == 0 {
		massG = StandardPortionG
	}
	if refID == "" || !positiveMass(massG) || !kind.Stageable() {
		return Item{}, false, nil
	}
	profile, _, ok := l.lookup.Profile(kind, refID)
	if !ok {
		return Item{}, false, nil
	}

	it := Item{Key: l.keys.NewKey(), Kind: kind, RefID: refID, MassG: massG}
	next := l.state.Clone()
	next.Totals = next.Totals.Add(nutrition.Scale(profile, massG))
	next.Extras = append(next.Extras, it)
	if err := l.commit(ctx, "stage", next); err != nil {
		return Item{}, false, err
	}

	logging.FromContext(ctx).Info().
		Str("component", "ledger").
		Str("operation", "stage").
		Str("kind", string(kind)).
		Str("ref_id", refID).
		Float64("mass_g", massG).
		Msg("extra staged")
	return it, true, nil
}

// Unstage removes a staged extra and subtracts its macros from the totals.
// An absent key is a no-op.
func (l *Ledger) Unstage(ctx context.Context, key string) (bool, error) {
	return l.remove(ctx, "unstage", key, false)
}

// RemoveConsumed removes a consumed item and subtracts its macros from the
// totals. An absent key is a no-op.
func (l *Ledger) RemoveConsumed(ctx context.Context, key string) (bool, error) {
	return l.remove(ctx, "remove_consumed", key, true)
}

func (l *Ledger) remove(ctx context.Context, op, key string, consumed bool) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoaded(ctx); err != nil {
		return false, err
	}

	list := l.state.Extras
	if consumed {
		list = l.state.Consumed
	}
	idx := -1
	for i, it := range list {
		if it.Key == key {
			idx = i
			break
		}
	}
	if key == "" || idx < 0 {
		return false, nil
	}

	removed := list[idx]
	kept := make([]Item, 0, len(list)-1)
	kept = append(kept, list[:idx]...)
	kept = append(kept, list[idx+1:]...)

	next := l.state.Clone()
	next.Totals = next.Totals.Sub(l.scaled(removed))
	if consumed {
		next.Consumed = kept
	} else {
		next.Extras = kept
	}
	if err := l.commit(ctx, op, next); err != nil {
		return false, err
	}

	logging.FromContext(ctx).Info().
		Str("component", "ledger").
		Str("operation", op).
		Str("key", key).
		Str("ref_id", removed.RefID).
		Msg("item removed")
	return true, nil
}

// effectiveMass is the gross weight minus the container tare, never negative.
// An unknown container type has no tare.
// positiveMass rejects NaN and infinities along with non-positive masses.
func positiveMass(g float64) bool {
	return g > 0 && !math.IsInf(g, 1)
}

func (l *Ledger) effectiveMass(sel Selection) float64 {
	tare := 0.0
	if tt, ok := l.lookup.TupperType(sel.TupperTypeID); ok {
		tare = tt.TareWeightG
	}
	return math.Max(0, sel.GrossWeightG-tare)
}

// Preview returns the food mass and macros the selected container would add
// on Commit. It does not change the ledger.
func (l *Ledger) Preview(sel Selection) (float64, nutrition.NutrientProfile) {
	if sel.TupperID == "" || !positiveMass(sel.GrossWeightG) {
		return 0, nutrition.Zero
	}
	mass := l.effectiveMass(sel)
	return mass, l.scaled(Item{Kind: nutrition.KindTupper, RefID: sel.TupperID, MassG: mass})
}

// Commit consumes the selected container: its macros for the effective mass
// are added to the totals, one tupper item is appended to the consumed list
// followed by every staged extra, and the extras are cleared. The extras are
// already part of the totals. An empty container id or a non-positive gross
// weight make it a no-op.
func (l *Ledger) Commit(ctx context.Context, sel Selection) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoaded(ctx); err != nil {
		return false, err
	}
	if sel.TupperID == "" || !positiveMass(sel.GrossWeightG) {
		return false, nil
	}

	mass := l.effectiveMass(sel)
	staged := len(l.state.Extras)
	container := Item{Key: l.keys.NewKey(), Kind: nutrition.KindTupper, RefID: sel.TupperID, MassG: mass}

	next := l.state.Clone()
	next.Totals = next.Totals.Add(l.scaled(container))
	next.Consumed = append(next.Consumed, container)
	next.Consumed = append(next.Consumed, l.state.Extras...)
	next.Extras = []Item{}
	if err := l.commit(ctx, "commit", next); err != nil {
		return false, err
	}

	logging.FromContext(ctx).Info().
		Str("component", "ledger").
		Str("operation", "commit").
		Str("tupper_id", sel.TupperID).
		Str("tupper_type_id", sel.TupperTypeID).
		Float64("gross_g", sel.GrossWeightG).
		Float64("mass_g", mass).
		Int("extras", staged).
		Msg("container consumed")
	l.clear()
	return true, nil
}

// Reset zeroes the totals and empties both lists.
func (l *Ledger) Reset(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	next := Progress{Extras: []Item{}, Consumed: []Item{}}
	if err := l.commit(ctx, "reset", next); err != nil {
		return err
	}
	l.loaded = true

	logging.FromContext(ctx).Info().
		Str("component", "ledger").
		Str("operation", "reset").
		Msg("daily progress reset")
	l.clear()
	return nil
}

func (l *Ledger) clear() {
	if l.onClear != nil {
		l.onClear()
	}
}

// Current loads the ledger if needed and returns a copy of its state.
func (l *Ledger) Current(ctx context.Context) (Progress, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.ensureLoaded(ctx); err != nil {
		return Progress{}, err
	}
	return l.state.Clone(), nil
}

// Snapshot returns a copy of the current state.
func (l *Ledger) Snapshot() Progress {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Clone()
}

// Totals returns the current running totals.
func (l *Ledger) Totals() nutrition.NutrientProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state.Totals
}

// GoalProgress compares the totals with goal. The selected container's
// preview counts towards the status and the kcal over the goal.
func (l *Ledger) GoalProgress(goal nutrition.NutrientProfile, sel Selection) nutrition.GoalProgress {
	_, preview := l.Preview(sel)
	return nutrition.NewGoalProgress(goal, l.Totals(), preview)
}
