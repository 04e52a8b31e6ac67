package ledger

import (
	"context"

	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/store"
)

// Document location of the day in progress.
const (
	CollectionDailyProgress = "dailyProgress"
	ProgressID              = "main"
)

// Item is one entry of the ledger. Staged extras only ever hold food or
// standard food kinds; consumed entries may also be tuppers.
type Item struct {
	Key   string             `json:"key"`
	Kind  nutrition.ItemKind `json:"type"`
	RefID string             `json:"id"`
	MassG float64            `json:"grams"`
}

// Progress is the state of the day in progress. Totals are absolute amounts
// and always equal the scaled sum of Extras and Consumed.
type Progress struct {
	Totals   nutrition.NutrientProfile `json:"totals"`
	Extras   []Item                    `json:"extras"`
	Consumed []Item                    `json:"consumed"`
}

// Clone returns a deep copy of p.
func (p Progress) Clone() Progress {
	return Progress{
		Totals:   p.Totals,
		Extras:   append([]Item{}, p.Extras...),
		Consumed: append([]Item{}, p.Consumed...),
	}
}

// IsEmpty reports whether nothing has been staged or consumed.
func (p Progress) IsEmpty() bool {
	return len(p.Extras) == 0 && len(p.Consumed) == 0 && p.Totals.IsZero()
}

// ProgressRepository loads and saves the day in progress.
type ProgressRepository interface {
	// Load returns the stored progress, or false when none exists yet.
	Load(ctx context.Context) (Progress, bool, error)
	// Save overwrites the stored progress.
	Save(ctx context.Context, p Progress) error
}

// progressDocument is the stored layout: totals flattened at the top level
// next to the two item lists.
type progressDocument struct {
	nutrition.NutrientProfile
	Extras       []Item `json:"extras"`
	ConsumedList []Item `json:"consumedList"`
}

// StoreRepository keeps the progress in dailyProgress/main of a document store.
type StoreRepository struct {
	store store.DocumentStore
}

// NewStoreRepository returns a repository over s.
func NewStoreRepository(s store.DocumentStore) *StoreRepository {
	return &StoreRepository{store: s}
}

// Load implements ProgressRepository.
func (r *StoreRepository) Load(ctx context.Context) (Progress, bool, error) {
	doc, ok, err := store.Get[progressDocument](ctx, r.store, CollectionDailyProgress, ProgressID)
	if err != nil || !ok {
		return Progress{}, false, err
	}
	return Progress{
		Totals:   doc.NutrientProfile,
		Extras:   normalizeKinds(doc.Extras),
		Consumed: normalizeKinds(doc.ConsumedList),
	}, true, nil
}

// Save implements ProgressRepository. It is a full overwrite.
func (r *StoreRepository) Save(ctx context.Context, p Progress) error {
	doc := progressDocument{
		NutrientProfile: p.Totals,
		Extras:          nonNil(p.Extras),
		ConsumedList:    nonNil(p.Consumed),
	}
	return store.Wrap("save", CollectionDailyProgress, ProgressID,
		r.store.Upsert(ctx, CollectionDailyProgress, ProgressID, doc))
}

// normalizeKinds maps legacy kind spellings onto the canonical ones. Unknown
// kinds are kept as they are and resolve to zero nutrients.
func normalizeKinds(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if k, err := nutrition.ParseItemKind(string(it.Kind)); err == nil {
			it.Kind = k
		}
		out = append(out, it)
	}
	return out
}

func nonNil(items []Item) []Item {
	if items == nil {
		return []Item{}
	}
	return items
}
