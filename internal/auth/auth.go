// Package auth implements the PIN gate. The PIN is stored as a bcrypt hash
// in the document store, and failed attempts are tracked there too, so the
// lockout cannot be cleared from the client side.
package auth

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/rshade/nutricount/internal/logging"
	"github.com/rshade/nutricount/internal/store"
)

// Document locations.
const (
	CollectionConfig = "config"
	PINID            = "pin"
	LockoutID        = "lockout"
)

// Defaults applied when the gate is built with non-positive limits.
const (
	DefaultMaxAttempts = 3
	DefaultLockout     = 30 * time.Second
	// DefaultCost matches the cost used for existing stored hashes.
	DefaultCost = 10
)

var (
	// ErrPINNotConfigured indicates no PIN has been set.
	ErrPINNotConfigured = errors.New("PIN not configured, run 'nutricount pin set'")
	// ErrInvalidPIN indicates a wrong PIN.
	ErrInvalidPIN = errors.New("incorrect PIN")
	// ErrLockedOut indicates too many failed attempts.
	ErrLockedOut = errors.New("too many failed attempts")
	// ErrPINFormat indicates a PIN that is not 4 to 8 digits.
	ErrPINFormat = errors.New("PIN must be 4 to 8 digits")
)

var pinPattern = regexp.MustCompile(`^[0-9]{4,8}$`)

type pinDocument struct {
	Hash      string    `json:"hash"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Lockout is the stored failed-attempt state.
type Lockout struct {
	FailedAttempts int       `json:"failedAttempts"`
	LockedUntil    time.Time `json:"lockedUntil"`
}

// Gate verifies PINs against the stored hash.
type Gate struct {
	store       store.DocumentStore
	maxAttempts int
	lockout     time.Duration
	cost        int
	now         func() time.Time
}

// Option configures a Gate.
type Option func(*Gate)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(g *Gate) { g.now = now }
}

// WithCost sets the bcrypt cost for new hashes.
func WithCost(cost int) Option {
	return func(g *Gate) { g.cost = cost }
}

// NewGate returns a gate over s that locks for lockout after maxAttempts
// consecutive failures.
func NewGate(s store.DocumentStore, maxAttempts int, lockout time.Duration, opts ...Option) *Gate {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	g := &Gate{store: s, maxAttempts: maxAttempts, lockout: lockout, cost: DefaultCost, now: time.Now}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ValidatePIN checks the PIN format.
func ValidatePIN(pin string) error {
	if !pinPattern.MatchString(pin) {
		return ErrPINFormat
	}
	return nil
}

// Configured reports whether a PIN has been set.
func (g *Gate) Configured(ctx context.Context) (bool, error) {
	_, ok, err := store.Get[pinDocument](ctx, g.store, CollectionConfig, PINID)
	return ok, err
}

// SetPIN hashes and stores pin, keeping the original creation time.
func (g *Gate) SetPIN(ctx context.Context, pin string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), g.cost)
	if err != nil {
		return fmt.Errorf("hashing PIN: %w", err)
	}

	existing, ok, err := store.Get[pinDocument](ctx, g.store, CollectionConfig, PINID)
	if err != nil {
		return err
	}
	now := g.now().UTC()
	doc := pinDocument{Hash: string(hash), CreatedAt: now, UpdatedAt: now}
	if ok {
		doc.CreatedAt = existing.CreatedAt
	}
	if err = g.store.Upsert(ctx, CollectionConfig, PINID, doc); err != nil {
		return err
	}
	if err = g.store.Upsert(ctx, CollectionConfig, LockoutID, Lockout{}); err != nil {
		return err
	}

	logging.FromContext(ctx).Info().
		Str("component", "auth").
		Str("operation", "set_pin").
		Bool("replaced", ok).
		Msg("PIN stored")
	return nil
}

// Status returns the stored lockout state.
func (g *Gate) Status(ctx context.Context) (Lockout, error) {
	l, _, err := store.Get[Lockout](ctx, g.store, CollectionConfig, LockoutID)
	return l, err
}

// Verify checks pin. Wrong PINs count towards the lockout; a correct PIN
// clears the counter.
func (g *Gate) Verify(ctx context.Context, pin string) error {
	log := logging.FromContext(ctx)
	now := g.now()

	state, err := g.Status(ctx)
	if err != nil {
		return err
	}
	if now.Before(state.LockedUntil) {
		wait := state.LockedUntil.Sub(now).Round(time.Second)
		log.Warn().
			Str("component", "auth").
			Str("operation", "verify").
			Dur("remaining", wait).
			Msg("verification refused while locked out")
		return fmt.Errorf("%w, try again in %s", ErrLockedOut, wait)
	}

	doc, ok, err := store.Get[pinDocument](ctx, g.store, CollectionConfig, PINID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPINNotConfigured
	}

	if bcrypt.CompareHashAndPassword([]byte(doc.Hash), []byte(pin)) == nil {
		if state.FailedAttempts > 0 || !state.LockedUntil.IsZero() {
			if err = g.store.Upsert(ctx, CollectionConfig, LockoutID, Lockout{}); err != nil {
				return err
			}
		}
		log.Debug().Str("component", "auth").Str("operation", "verify").Msg("PIN accepted")
		return nil
	}

	state.FailedAttempts++
	state.LockedUntil = time.Time{}
	if state.FailedAttempts >= g.maxAttempts {
		state.LockedUntil = now.Add(g.lockout).UTC()
		state.FailedAttempts = 0
	}
	if err = g.store.Upsert(ctx, CollectionConfig, LockoutID, state); err != nil {
		return err
	}

	log.Warn().
		Str("component", "auth").
		Str("operation", "verify").
		Int("failed_attempts", state.FailedAttempts).
		Bool("locked", !state.LockedUntil.IsZero()).
		Msg("incorrect PIN")
	return ErrInvalidPIN
}
