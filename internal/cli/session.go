package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/rshade/nutricount/internal/archive"
	"github.com/rshade/nutricount/internal/auth"
	"github.com/rshade/nutricount/internal/catalog"
	"github.com/rshade/nutricount/internal/config"
	"github.com/rshade/nutricount/internal/ledger"
	"github.com/rshade/nutricount/internal/logging"
	"github.com/rshade/nutricount/internal/nutrition"
	"github.com/rshade/nutricount/internal/store"
	"github.com/rshade/nutricount/internal/store/sqlite"
)

// sqliteFileName is used when store.path names a directory.
const sqliteFileName = "nutricount.db"

// ErrPINRequired is returned when the PIN gate is enabled but no PIN can be read.
var ErrPINRequired = errors.New("PIN required: set NUTRICOUNT_PIN or run in a terminal")

// session holds everything one command invocation works with.
type session struct {
	store   store.DocumentStore
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
	archive *archive.Archive
}

func (s *session) Close() error {
	return s.store.Close()
}

// storeConfig returns the configured backend with --store and --store-path applied.
func storeConfig(cmd *cobra.Command) config.StoreConfig {
	sc := config.GetGlobalConfig().Store
	if v, _ := cmd.Flags().GetString("store"); v != "" {
		sc.Backend = v
	}
	if v, _ := cmd.Flags().GetString("store-path"); v != "" {
		sc.Path = v
	}
	return sc
}

// openStore opens the document store backend described by sc.
func openStore(sc config.StoreConfig, debug bool) (store.DocumentStore, error) {
	switch sc.Backend {
	case config.BackendFile, "":
		return store.NewFileStore(sc.Path)
	case config.BackendSQLite:
		path := sc.Path
		if filepath.Ext(path) == "" {
			path = filepath.Join(path, sqliteFileName)
		}
		return sqlite.Open(sqlite.Config{Path: path, Debug: debug})
	case config.BackendMemory:
		return store.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("%w: got %q", config.ErrInvalidBackend, sc.Backend)
	}
}

// openSession opens the store, enforces the PIN gate and loads the catalog.
// The ledger and archive are built but the ledger loads lazily.
func openSession(cmd *cobra.Command, ledgerOpts ...ledger.Option) (*session, error) {
	ctx := cmd.Context()
	cfg := config.GetGlobalConfig()
	debug, _ := cmd.Flags().GetBool("debug")

	sc := storeConfig(cmd)
	s, err := openStore(sc, debug)
	if err != nil {
		return nil, fmt.Errorf("opening %s store: %w", sc.Backend, err)
	}
	logging.FromContext(ctx).Debug().
		Str("component", "cli").
		Str("operation", "open_store").
		Str("backend", sc.Backend).
		Str("path", sc.Path).
		Msg("store opened")

	if cfg.Auth.Enabled {
		if err = verifyPIN(cmd, newGate(cfg, s)); err != nil {
			_ = s.Close()
			return nil, err
		}
	}

	cat, err := catalog.Load(ctx, s)
	if err != nil {
		_ = s.Close()
		return nil, err
	}
	keys := ledger.NewULIDGenerator()
	return &session{
		store:   s,
		catalog: cat,
		ledger:  ledger.New(ledger.NewStoreRepository(s), cat, keys, ledgerOpts...),
		archive: archive.New(s, cat, keys),
	}, nil
}

func newGate(cfg *config.Config, s store.DocumentStore) *auth.Gate {
	return auth.NewGate(s, cfg.Auth.MaxAttempts, time.Duration(cfg.Auth.LockoutSeconds)*time.Second)
}

// verifyPIN reads the PIN from NUTRICOUNT_PIN or a hidden terminal prompt.
// Without a terminal NUTRICOUNT_PIN is required.
func verifyPIN(cmd *cobra.Command, gate *auth.Gate) error {
	pin := os.Getenv("NUTRICOUNT_PIN")
	if pin == "" {
		if !stdinIsTerminal() {
			return ErrPINRequired
		}
		var err error
		if pin, err = readSecret(cmd, "PIN: "); err != nil {
			return err
		}
	}
	return gate.Verify(cmd.Context(), pin)
}

func stdinIsTerminal() bool {
	return isTerminal(os.Stdin)
}

// readSecret prompts for a secret without echo. Outside a terminal it
// reads one line from the command input.
func readSecret(cmd *cobra.Command, prompt string) (string, error) {
	cmd.PrintErr(prompt)
	if stdinIsTerminal() {
		b, err := term.ReadPassword(int(os.Stdin.Fd()))
		cmd.PrintErrln()
		if err != nil {
			return "", fmt.Errorf("reading PIN: %w", err)
		}
		return strings.TrimSpace(string(b)), nil
	}
	scanner := bufio.NewScanner(cmd.InOrStdin())
	if !scanner.Scan() {
		return "", ErrPINRequired
	}
	return strings.TrimSpace(scanner.Text()), nil
}

// withSession opens a session, loads the day's progress and runs fn,
// closing the store afterwards.
func withSession(cmd *cobra.Command, fn func(s *session) error) (err error) {
	sess, err := openSession(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := sess.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("closing store: %w", closeErr)
		}
	}()
	if err = sess.ledger.Load(cmd.Context()); err != nil {
		return err
	}
	return fn(sess)
}

// resolve looks an entity up by id or name for the given collection.
func (s *session) resolve(collection, query string) (nutrition.Entity, error) {
	return s.catalog.Find(collection, query)
}
