package archive

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/nutricount/internal/catalog"
	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/store"
	"github.com/rshade/nutricount/internal/store/storetest"
)

type fixture struct {
	ctx     context.Context
	store   *storetest.FailingStore
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	archive *Archive
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	s := storetest.NewFailingStore()
	c := catalog.New(s)

	_, err := c.SaveFood(ctx, nutrition.Food{ID: "a", Name: "Food A",
		NutrientProfile: nutrition.NutrientProfile{Kcal: 200, ProteinG: 10, CarbsG: 20, FatG: 5}})
	require.NoError(t, err)
	_, err = c.SaveTupper(ctx, nutrition.Tupper{ID: "stew", Name: "Stew",
		NutrientProfile: nutrition.NutrientProfile{Kcal: 100, ProteinG: 8, CarbsG: 10, FatG: 3}})
	require.NoError(t, err)
	_, err = c.SaveTupperType(ctx, nutrition.TupperType{ID: "glass", Name: "Glass", TareWeightG: 50})
	require.NoError(t, err)

	l := ledger.New(ledger.NewStoreRepository(s), c, &ledger.SequenceGenerator{Prefix: "item"})
	require.NoError(t, l.Load(ctx))

	return &fixture{
		ctx:     ctx,
		store:   s,
		catalog: c,
		ledger:  l,
		archive: New(s, c, ledger.NewULIDGenerator()),
	}
}

func (f *fixture) eat(t *testing.T) {
	t.Helper()
	_, ok, err := f.ledger.Stage(f.ctx, nutrition.KindFood, "a", 150)
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = f.ledger.Commit(f.ctx, ledger.Selection{TupperID: "stew", TupperTypeID: "glass", GrossWeightG: 350})
	require.NoError(t, err)
	require.True(t, ok)
}

func TestClose_Snapshot(t *testing.T) {
	f := newFixture(t)
	f.eat(t)

	day, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-01")
	require.NoError(t, err)
	assert.NotEmpty(t, day.ID)
	assert.InDelta(t, 600, day.Totals.Kcal, 1e-9)
	require.Len(t, day.Consumed, 2)
	assert.Equal(t, "Stew", day.Consumed[0].Name)
	assert.InDelta(t, 300, day.Consumed[0].Macros.Kcal, 1e-9)
	assert.Equal(t, "Food A", day.Consumed[1].Name)

	assert.False(t, f.ledger.Snapshot().IsEmpty(), "close does not reset the ledger")
}

func TestClose_DecoupledFromLaterEdits(t *testing.T) {
	f := newFixture(t)
	f.eat(t)
	day, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-01")
	require.NoError(t, err)

	before := Render(day, f.catalog)

	// Mutate the live ledger and a referenced food after archiving.
	require.NoError(t, f.ledger.Reset(f.ctx))
	_, err = f.catalog.SaveFood(f.ctx, nutrition.Food{ID: "a", Name: "Food A v2",
		NutrientProfile: nutrition.NutrientProfile{Kcal: 999, ProteinG: 99}})
	require.NoError(t, err)

	stored, err := f.archive.Get(f.ctx, day.ID)
	require.NoError(t, err)
	after := Render(stored, f.catalog)

	assert.Equal(t, before.Totals, after.Totals)
	require.Len(t, after.Items, 2)
	assert.Equal(t, before.Items[1].Macros, after.Items[1].Macros)
	assert.Equal(t, "Food A v2", after.Items[1].Name, "names follow the live entity")

	reloaded := New(f.store, f.catalog, ledger.NewULIDGenerator())
	fromStore, err := reloaded.Get(f.ctx, day.ID)
	require.NoError(t, err)
	assert.Equal(t, stored, fromStore)
}

func TestRender_MissingEntity(t *testing.T) {
	f := newFixture(t)
	f.eat(t)
	day, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-03")
	require.NoError(t, err)

	require.NoError(t, f.catalog.Delete(f.ctx, nutrition.CollectionTuppers, "stew"))
	r := Render(day, f.catalog)
	assert.Equal(t, "Monday", r.Weekday)
	require.Len(t, r.Items, 2)
	assert.Equal(t, ledger.UnknownName, r.Items[0].Name)
	assert.True(t, r.Items[0].Macros.IsZero())
	assert.False(t, r.Items[0].Known)
	assert.True(t, r.Items[1].Known)
}

func TestLoad_FreezesDaysStoredWithoutItemMacros(t *testing.T) {
	f := newFixture(t)
	legacy := json.RawMessage(`{"date":"2024-11-05","macros":{"kcal":300},` +
		`"consumedList":[{"type":"food","id":"a","grams":150},{"type":"food","id":"gone","grams":80}]}`)
	require.NoError(t, f.store.Upsert(f.ctx, CollectionHistoricalDays, "legacy", legacy))

	day, err := f.archive.Get(f.ctx, "legacy")
	require.NoError(t, err)
	require.Len(t, day.Consumed, 2)
	assert.NotEmpty(t, day.Consumed[0].Key)
	assert.InDelta(t, 300, day.Consumed[0].Macros.Kcal, 1e-9)
	assert.InDelta(t, 15, day.Consumed[0].Macros.ProteinG, 1e-9)
	assert.Equal(t, "Food A", day.Consumed[0].Name)
	assert.True(t, day.Consumed[1].Macros.IsZero())

	r := Render(day, f.catalog)
	assert.True(t, r.Items[0].Known)
	assert.InDelta(t, 300, r.Items[0].Macros.Kcal, 1e-9)
	assert.InDelta(t, 300, r.Totals.Kcal, 1e-9)
	assert.False(t, r.Items[1].Known)

	// The computed macros were written back and no longer follow the food.
	_, err = f.catalog.SaveFood(f.ctx, nutrition.Food{ID: "a", Name: "Food A",
		NutrientProfile: nutrition.NutrientProfile{Kcal: 999}})
	require.NoError(t, err)
	writes := f.store.Writes

	reloaded := New(f.store, f.catalog, ledger.NewULIDGenerator())
	stored, err := reloaded.Get(f.ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, day, stored)
	assert.Equal(t, writes, f.store.Writes, "frozen days are not rewritten")
}

func TestLoad_FreezeWriteFailure(t *testing.T) {
	f := newFixture(t)
	legacy := json.RawMessage(`{"date":"2024-11-05","macros":{"kcal":300},` +
		`"consumedList":[{"type":"food","id":"a","grams":150}]}`)
	require.NoError(t, f.store.Upsert(f.ctx, CollectionHistoricalDays, "legacy", legacy))
	f.store.FailWrites = true

	_, err := f.archive.List(f.ctx)
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))
}

func TestClose_InvalidDate(t *testing.T) {
	f := newFixture(t)
	for _, d := range []string{"", "2025-13-01", "01/02/2025", "yesterday"} {
		_, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), d)
		require.ErrorIs(t, err, ErrInvalidDate, d)
	}
}

func TestList_OrderAndDuplicateDates(t *testing.T) {
	f := newFixture(t)
	p := f.ledger.Snapshot()

	mid1, err := f.archive.Close(f.ctx, p, "2025-03-02")
	require.NoError(t, err)
	old, err := f.archive.Close(f.ctx, p, "2025-03-01")
	require.NoError(t, err)
	mid2, err := f.archive.Close(f.ctx, p, "2025-03-02")
	require.NoError(t, err)
	newest, err := f.archive.Close(f.ctx, p, "2025-03-05")
	require.NoError(t, err)

	days, err := f.archive.List(f.ctx)
	require.NoError(t, err)
	ids := []string{}
	for _, d := range days {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{newest.ID, mid2.ID, mid1.ID, old.ID}, ids)

	reloaded := New(f.store, f.catalog, ledger.NewULIDGenerator())
	again, err := reloaded.List(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, days, again)
}

func TestRename(t *testing.T) {
	f := newFixture(t)
	f.eat(t)
	a, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-01")
	require.NoError(t, err)
	b, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-02")
	require.NoError(t, err)

	ok, err := f.archive.Rename(f.ctx, a.ID, "2025-03-09")
	require.NoError(t, err)
	assert.True(t, ok)

	days, err := f.archive.List(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, a.ID, days[0].ID, "cache is re-sorted")
	assert.Equal(t, b.ID, days[1].ID)

	stored, ok, err := store.Get[HistoricalDay](f.ctx, f.store, CollectionHistoricalDays, a.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "2025-03-09", stored.Date)
	assert.Equal(t, a.Totals, stored.Totals, "only the date changes")
	assert.Equal(t, a.Consumed, stored.Consumed)

	ok, err = f.archive.Rename(f.ctx, a.ID, "")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.archive.Rename(f.ctx, a.ID, "2025-02-30")
	require.ErrorIs(t, err, ErrInvalidDate)

	_, err = f.archive.Rename(f.ctx, "ghost", "2025-03-01")
	require.ErrorIs(t, err, ErrDayNotFound)
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	day, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-01")
	require.NoError(t, err)

	require.NoError(t, f.archive.Delete(f.ctx, day.ID))
	days, err := f.archive.List(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, days)

	_, ok, err := f.store.GetOne(f.ctx, CollectionHistoricalDays, day.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	require.ErrorIs(t, f.archive.Delete(f.ctx, day.ID), ErrDayNotFound)
}

func TestCloseAndReset(t *testing.T) {
	f := newFixture(t)
	f.eat(t)

	day, err := f.archive.CloseAndReset(f.ctx, f.ledger, "2025-03-01")
	require.NoError(t, err)
	assert.Len(t, day.Consumed, 2)
	assert.True(t, f.ledger.Snapshot().IsEmpty())
}

func TestPersistenceFailure(t *testing.T) {
	f := newFixture(t)
	f.eat(t)
	day, err := f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-01")
	require.NoError(t, err)
	before, err := f.archive.List(f.ctx)
	require.NoError(t, err)

	f.store.FailWrites = true

	_, err = f.archive.Close(f.ctx, f.ledger.Snapshot(), "2025-03-02")
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))

	_, err = f.archive.Rename(f.ctx, day.ID, "2025-04-01")
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))

	require.Error(t, f.archive.Delete(f.ctx, day.ID))

	_, err = f.archive.CloseAndReset(f.ctx, f.ledger, "2025-03-03")
	require.Error(t, err)
	assert.False(t, f.ledger.Snapshot().IsEmpty(), "nothing archived so nothing reset")

	after, err := f.archive.List(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}
