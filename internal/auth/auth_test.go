package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/rshade/nutricount/internal/store"
	"github.com/rshade/nutricount/internal/store/storetest"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newGate(t *testing.T, s store.DocumentStore) (*Gate, *clock) {
	t.Helper()
	c := &clock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	return NewGate(s, 3, time.Minute, WithClock(c.now), WithCost(bcrypt.MinCost)), c
}

func TestValidatePIN(t *testing.T) {
	for _, pin := range []string{"1234", "12345678"} {
		assert.NoError(t, ValidatePIN(pin), pin)
	}
	for _, pin := range []string{"", "123", "123456789", "12a4", " 1234"} {
		assert.ErrorIs(t, ValidatePIN(pin), ErrPINFormat, pin)
	}
}

func TestVerify_NotConfigured(t *testing.T) {
	g, _ := newGate(t, store.NewMemoryStore())
	ok, err := g.Configured(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, g.Verify(context.Background(), "1234"), ErrPINNotConfigured)
}

func TestSetPIN_StoresHashOnly(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	g, c := newGate(t, s)

	require.NoError(t, g.SetPIN(ctx, "4321"))
	doc, ok, err := store.Get[pinDocument](ctx, s, CollectionConfig, PINID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.NotContains(t, doc.Hash, "4321")
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(doc.Hash), []byte("4321")))
	created := doc.CreatedAt

	c.t = c.t.Add(time.Hour)
	require.NoError(t, g.SetPIN(ctx, "99999"))
	doc, _, err = store.Get[pinDocument](ctx, s, CollectionConfig, PINID)
	require.NoError(t, err)
	assert.True(t, created.Equal(doc.CreatedAt))
	assert.True(t, doc.UpdatedAt.After(created))

	assert.ErrorIs(t, g.SetPIN(ctx, "12"), ErrPINFormat)
}

func TestVerify_Lockout(t *testing.T) {
	ctx := context.Background()
	g, c := newGate(t, store.NewMemoryStore())
	require.NoError(t, g.SetPIN(ctx, "1234"))

	require.NoError(t, g.Verify(ctx, "1234"))

	assert.ErrorIs(t, g.Verify(ctx, "0000"), ErrInvalidPIN)
	assert.ErrorIs(t, g.Verify(ctx, "0000"), ErrInvalidPIN)
	st, err := g.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.FailedAttempts)

	assert.ErrorIs(t, g.Verify(ctx, "0000"), ErrInvalidPIN)
	assert.ErrorIs(t, g.Verify(ctx, "1234"), ErrLockedOut, "even the right PIN is refused while locked")

	c.t = c.t.Add(time.Minute + time.Second)
	require.NoError(t, g.Verify(ctx, "1234"))
	st, err = g.Status(ctx)
	require.NoError(t, err)
	assert.Zero(t, st.FailedAttempts)
	assert.True(t, st.LockedUntil.IsZero())
}

func TestVerify_SuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	g, _ := newGate(t, store.NewMemoryStore())
	require.NoError(t, g.SetPIN(ctx, "1234"))

	for i := 0; i < 2; i++ {
		require.ErrorIs(t, g.Verify(ctx, "1111"), ErrInvalidPIN)
	}
	require.NoError(t, g.Verify(ctx, "1234"))
	for i := 0; i < 2; i++ {
		require.ErrorIs(t, g.Verify(ctx, "1111"), ErrInvalidPIN)
	}
	assert.NoError(t, g.Verify(ctx, "1234"), "counter was cleared, so no lockout yet")
}

func TestVerify_PersistenceError(t *testing.T) {
	ctx := context.Background()
	fs := storetest.NewFailingStore()
	g, _ := newGate(t, fs)
	require.NoError(t, g.SetPIN(ctx, "1234"))

	fs.FailReads = true
	err := g.Verify(ctx, "1234")
	require.Error(t, err)
	assert.True(t, store.IsPersistence(err))
}
