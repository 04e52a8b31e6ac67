// Package catalog loads and maintains the reference entities the ledger
// resolves items against: foods, standard foods, tuppers, tupper types and
// the daily goal.
package catalog

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"golang.org/x/sync/errgroup"

	"github.com/rshade/nutricount/internal/logging"
	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/store"
)

// newID is the placeholder id used by forms for records not yet stored.
const newID = "new"

// ErrEntityNotFound is returned by Find when nothing matches.
var ErrEntityNotFound = errors.New("entity not found")

// ErrAmbiguous is returned by Find when a name matches more than one entity.
var ErrAmbiguous = errors.New("ambiguous name")

// Catalog is an in-memory mirror of the reference collections.
// Mutations persist first and update the mirror only on success.
type Catalog struct {
	store store.DocumentStore

	mu            sync.RWMutex
	foods         map[string]nutrition.Food
	standardFoods map[string]nutrition.StandardFood
	tuppers       map[string]nutrition.Tupper
	tupperTypes   map[string]nutrition.TupperType
	goal          *nutrition.DailyGoal
}

// New returns an empty catalog over s.
func New(s store.DocumentStore) *Catalog {
	return &Catalog{
		store:         s,
		foods:         map[string]nutrition.Food{},
		standardFoods: map[string]nutrition.StandardFood{},
		tuppers:       map[string]nutrition.Tupper{},
		tupperTypes:   map[string]nutrition.TupperType{},
	}
}

// Load reads every reference collection concurrently.
func Load(ctx context.Context, s store.DocumentStore) (*Catalog, error) {
	c := New(s)
	if err := c.Reload(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// Reload replaces the mirror with the stored collections.
func (c *Catalog) Reload(ctx context.Context) error {
	log := logging.FromContext(ctx)

	var (
		foods     []nutrition.Food
		standards []nutrition.StandardFood
		tuppers   []nutrition.Tupper
		types     []nutrition.TupperType
		goal      nutrition.DailyGoal
		goalFound bool
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		foods, err = store.List(gctx, c.store, nutrition.CollectionFoods,
			func(f *nutrition.Food, id string) { f.ID = id })
		return err
	})
	g.Go(func() error {
		var err error
		standards, err = store.List(gctx, c.store, nutrition.CollectionStandardFoods,
			func(f *nutrition.StandardFood, id string) { f.ID = id })
		return err
	})
	g.Go(func() error {
		var err error
		tuppers, err = store.List(gctx, c.store, nutrition.CollectionTuppers,
			func(t *nutrition.Tupper, id string) { t.ID = id })
		return err
	})
	g.Go(func() error {
		var err error
		types, err = store.List(gctx, c.store, nutrition.CollectionTupperTypes,
			func(t *nutrition.TupperType, id string) { t.ID = id })
		return err
	})
	g.Go(func() error {
		var err error
		goal, goalFound, err = store.Get[nutrition.DailyGoal](gctx, c.store,
			nutrition.CollectionDailyGoals, nutrition.MainGoalID)
		return err
	})
	if err := g.Wait(); err != nil {
		log.Error().
			Str("component", "catalog").
			Str("operation", "load").
			Err(err).
			Msg("failed to load reference collections")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.foods = indexBy(foods, func(f nutrition.Food) string { return f.ID })
	c.standardFoods = indexBy(standards, func(f nutrition.StandardFood) string { return f.ID })
	c.tuppers = indexBy(tuppers, func(t nutrition.Tupper) string { return t.ID })
	c.tupperTypes = indexBy(types, func(t nutrition.TupperType) string { return t.ID })
	c.goal = nil
	if goalFound {
		goal.ID = nutrition.MainGoalID
		c.goal = &goal
	}

	log.Debug().
		Str("component", "catalog").
		Str("operation", "load").
		Int("foods", len(c.foods)).
		Int("standard_foods", len(c.standardFoods)).
		Int("tuppers", len(c.tuppers)).
		Int("tupper_types", len(c.tupperTypes)).
		Bool("goal_stored", goalFound).
		Msg("reference collections loaded")
	return nil
}

func indexBy[T any](items []T, key func(T) string) map[string]T {
	m := make(map[string]T, len(items))
	for _, it := range items {
		m[key(it)] = it
	}
	return m
}

func sortedValues[T nutrition.Entity](m map[string]T) []T {
	out := make([]T, 0, len(m))
	for _, v := range m {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].EntityName()), strings.ToLower(out[j].EntityName())
		if ni != nj {
			return ni < nj
		}
		return out[i].EntityID() < out[j].EntityID()
	})
	return out
}

// Food returns the food with the given id.
func (c *Catalog) Food(id string) (nutrition.Food, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.foods[id]
	return f, ok
}

// StandardFood returns the standard food with the given id.
func (c *Catalog) StandardFood(id string) (nutrition.StandardFood, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.standardFoods[id]
	return f, ok
}

// Tupper returns the tupper with the given id.
func (c *Catalog) Tupper(id string) (nutrition.Tupper, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tuppers[id]
	return t, ok
}

// TupperType returns the tupper type with the given id.
func (c *Catalog) TupperType(id string) (nutrition.TupperType, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.tupperTypes[id]
	return t, ok
}

// Profile resolves the per-100 g profile and name of an item reference.
func (c *Catalog) Profile(kind nutrition.ItemKind, id string) (nutrition.NutrientProfile, string, bool) {
	switch kind {
	case nutrition.KindFood:
		if f, ok := c.Food(id); ok {
			return f.NutrientProfile, f.Name, true
		}
	case nutrition.KindStandardFood:
		if f, ok := c.StandardFood(id); ok {
			return f.NutrientProfile, f.Name, true
		}
	case nutrition.KindTupper:
		if t, ok := c.Tupper(id); ok {
			return t.NutrientProfile, t.Name, true
		}
	}
	return nutrition.Zero, "", false
}

// Goal returns the stored daily goal, or the default one.
func (c *Catalog) Goal() nutrition.DailyGoal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.goal == nil {
		return nutrition.DefaultGoal()
	}
	return *c.goal
}

// Foods returns every food ordered by name.
func (c *Catalog) Foods() []nutrition.Food {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedValues(c.foods)
}

// StandardFoods returns every standard food ordered by name.
func (c *Catalog) StandardFoods() []nutrition.StandardFood {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedValues(c.standardFoods)
}

// Tuppers returns every tupper ordered by name.
func (c *Catalog) Tuppers() []nutrition.Tupper {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedValues(c.tuppers)
}

// TupperTypes returns every tupper type ordered by name.
func (c *Catalog) TupperTypes() []nutrition.TupperType {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return sortedValues(c.tupperTypes)
}

// Entities returns the entities of one kind, ordered by name.
func (c *Catalog) Entities(collection string) []nutrition.Entity {
	var out []nutrition.Entity
	switch collection {
	case nutrition.CollectionFoods:
		for _, e := range c.Foods() {
			out = append(out, e)
		}
	case nutrition.CollectionStandardFoods:
		for _, e := range c.StandardFoods() {
			out = append(out, e)
		}
	case nutrition.CollectionTuppers:
		for _, e := range c.Tuppers() {
			out = append(out, e)
		}
	case nutrition.CollectionTupperTypes:
		for _, e := range c.TupperTypes() {
			out = append(out, e)
		}
	}
	return out
}

// Find resolves query against the ids and then the names (case-insensitive)
// of one collection.
func (c *Catalog) Find(collection, query string) (nutrition.Entity, error) {
	query = strings.TrimSpace(query)
	entities := c.Entities(collection)
	for _, e := range entities {
		if e.EntityID() == query {
			return e, nil
		}
	}
	var matches []nutrition.Entity
	for _, e := range entities {
		if strings.EqualFold(e.EntityName(), query) {
			matches = append(matches, e)
		}
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s %q", ErrEntityNotFound, collection, query)
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("%w: %d %s named %q", ErrAmbiguous, len(matches), collection, query)
	}
}

func assignID(id string) string {
	if id == "" || id == newID {
		return ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	}
	return id
}

func (c *Catalog) put(ctx context.Context, e nutrition.Entity) error {
	err := c.store.Upsert(ctx, e.Collection(), e.EntityID(), e)
	logging.FromContext(ctx).Debug().
		Str("component", "catalog").
		Str("operation", "save").
		Str("collection", e.Collection()).
		Str("id", e.EntityID()).
		Err(err).
		Msg("reference entity saved")
	return err
}

// SaveFood stores f, assigning a fresh id when it has none.
func (c *Catalog) SaveFood(ctx context.Context, f nutrition.Food) (nutrition.Food, error) {
	f.ID = assignID(f.ID)
	if err := c.put(ctx, f); err != nil {
		return nutrition.Food{}, err
	}
	c.mu.Lock()
	c.foods[f.ID] = f
	c.mu.Unlock()
	return f, nil
}

// SaveStandardFood stores f, assigning a fresh id when it has none.
func (c *Catalog) SaveStandardFood(ctx context.Context, f nutrition.StandardFood) (nutrition.StandardFood, error) {
	f.ID = assignID(f.ID)
	if err := c.put(ctx, f); err != nil {
		return nutrition.StandardFood{}, err
	}
	c.mu.Lock()
	c.standardFoods[f.ID] = f
	c.mu.Unlock()
	return f, nil
}

// SaveTupper stores t, assigning a fresh id when it has none.
func (c *Catalog) SaveTupper(ctx context.Context, t nutrition.Tupper) (nutrition.Tupper, error) {
	t.ID = assignID(t.ID)
	if err := c.put(ctx, t); err != nil {
		return nutrition.Tupper{}, err
	}
	c.mu.Lock()
	c.tuppers[t.ID] = t
	c.mu.Unlock()
	return t, nil
}

// SaveTupperType stores t, assigning a fresh id when it has none.
func (c *Catalog) SaveTupperType(ctx context.Context, t nutrition.TupperType) (nutrition.TupperType, error) {
	t.ID = assignID(t.ID)
	if err := c.put(ctx, t); err != nil {
		return nutrition.TupperType{}, err
	}
	c.mu.Lock()
	c.tupperTypes[t.ID] = t
	c.mu.Unlock()
	return t, nil
}

// SaveGoal stores the singleton daily goal.
func (c *Catalog) SaveGoal(ctx context.Context, g nutrition.DailyGoal) (nutrition.DailyGoal, error) {
	g.ID = nutrition.MainGoalID
	if err := c.put(ctx, g); err != nil {
		return nutrition.DailyGoal{}, err
	}
	c.mu.Lock()
	c.goal = &g
	c.mu.Unlock()
	return g, nil
}

// Delete removes an entity from a collection. Ledger entries pointing at it
// become dangling references and resolve to zero nutrients.
func (c *Catalog) Delete(ctx context.Context, collection, id string) error {
	switch collection {
	case nutrition.CollectionFoods, nutrition.CollectionStandardFoods, nutrition.CollectionTuppers,
		nutrition.CollectionTupperTypes, nutrition.CollectionDailyGoals:
	default:
		return fmt.Errorf("%w: collection %q", nutrition.ErrUnknownKind, collection)
	}
	if err := c.store.Delete(ctx, collection, id); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	switch collection {
	case nutrition.CollectionFoods:
		delete(c.foods, id)
	case nutrition.CollectionStandardFoods:
		delete(c.standardFoods, id)
	case nutrition.CollectionTuppers:
		delete(c.tuppers, id)
	case nutrition.CollectionTupperTypes:
		delete(c.tupperTypes, id)
	case nutrition.CollectionDailyGoals:
		c.goal = nil
	}
	logging.FromContext(ctx).Info().
		Str("component", "catalog").
		Str("operation", "delete").
		Str("collection", collection).
		Str("id", id).
		Msg("reference entity deleted")
	return nil
}
