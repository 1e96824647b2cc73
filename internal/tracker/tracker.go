// Package tracker is the engine facade: it composes the unit store, the
// registry, the transition journal and the reporter into the operations
// exposed to the CLI and the board.
//
// Every mutation loads the registry immediately before saving it, so
// concurrent writers resolve as last-writer-wins per file. Metadata is the
// source of truth; a corrupt registry is rebuilt from it.
package tracker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/roach88/tracks/internal/config"
	"github.com/roach88/tracks/internal/journal"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/registry"
	"github.com/roach88/tracks/internal/store"
)

// Journal is the subset of *journal.Journal the tracker records into.
type Journal interface {
	Append(ctx context.Context, e journal.Entry) (int64, error)
	ForUnit(ctx context.Context, id string) ([]journal.Entry, error)
	Recent(ctx context.Context, limit int) ([]journal.Entry, error)
}

// Tracker runs work-unit operations against one tracks root.
type Tracker struct {
	store   *store.Store
	journal Journal
	ids     IDGenerator
	cfg     config.Config
	now     func() time.Time
	logger  *slog.Logger

	cfgSet    bool
	noJournal bool
	closers   []func() error
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithConfig overrides the configuration loaded from the root.
func WithConfig(cfg config.Config) Option {
	return func(t *Tracker) {
		t.cfg = cfg
		t.cfgSet = true
	}
}

// WithIDGenerator overrides the id generator selected by the config.
func WithIDGenerator(g IDGenerator) Option {
	return func(t *Tracker) { t.ids = g }
}

// WithJournal records transitions into j instead of the root's journal.db.
func WithJournal(j Journal) Option {
	return func(t *Tracker) { t.journal = j }
}

// WithoutJournal disables transition recording.
func WithoutJournal() Option {
	return func(t *Tracker) { t.noJournal = true }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Tracker) { t.logger = logger }
}

// Open opens the tracks root, loading config.yaml and journal.db from it.
func Open(root string, opts ...Option) (*Tracker, error) {
	t := &Tracker{now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	if !t.cfgSet {
		cfg, err := config.Load(root)
		if err != nil {
			return nil, err
		}
		t.cfg = cfg
		t.cfgSet = true
	}
	st, err := store.Open(root, store.WithClock(t.now), store.WithLogger(t.logger))
	if err != nil {
		return nil, err
	}
	t.store = st
	if t.journal == nil && !t.noJournal {
		j, err := journal.Open(st.JournalPath())
		if err != nil {
			return nil, err
		}
		t.journal = j
		t.closers = append(t.closers, j.Close)
	}
	t.finish()
	return t, nil
}

// New wraps an open store. Without WithJournal, transitions are not recorded.
func New(st *store.Store, opts ...Option) *Tracker {
	t := &Tracker{store: st, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	if !t.cfgSet {
		t.cfg = config.Default()
	}
	if t.noJournal {
		t.journal = nil
	}
	t.finish()
	return t
}

func (t *Tracker) finish() {
	if t.ids == nil {
		t.ids = GeneratorFor(t.cfg.IDStyle)
	}
}

// Close releases the journal if the tracker opened it.
func (t *Tracker) Close() error {
	var errs []error
	for _, c := range t.closers {
		errs = append(errs, c())
	}
	t.closers = nil
	return errors.Join(errs...)
}

// Store exposes the underlying unit store.
func (t *Tracker) Store() *store.Store { return t.store }

// Config returns the active configuration.
func (t *Tracker) Config() config.Config { return t.cfg }

// record appends a journal entry. Failures are logged and otherwise ignored:
// the state change they describe is already committed.
func (t *Tracker) record(ctx context.Context, e journal.Entry) {
	if t.journal == nil {
		return
	}
	if e.At.IsZero() {
		e.At = t.now().UTC()
	}
	if _, err := t.journal.Append(ctx, e); err != nil {
		t.logger.Warn("journal append failed",
			"unit", e.UnitID,
			"op", string(e.Event),
			"error", err,
		)
	}
}

// loadRegistry reads the registry, rebuilding it from metadata if the
// document is corrupt.
func (t *Tracker) loadRegistry(ctx context.Context) (registry.Registry, error) {
	reg, err := registry.Load(t.store.RegistryPath())
	if err == nil {
		return reg, nil
	}
	if !errors.Is(err, model.ErrCorrupt) {
		return registry.Registry{}, err
	}
	t.logger.Warn("registry corrupt, rebuilding from metadata",
		"path", t.store.RegistryPath(),
		"error", err,
	)
	res, err := t.RebuildRegistry(ctx)
	if err != nil {
		return registry.Registry{}, err
	}
	return res.Registry, nil
}

// syncRow writes the unit's summary into the registry.
func (t *Tracker) syncRow(ctx context.Context, op string, unit model.WorkUnit) error {
	reg, err := t.loadRegistry(ctx)
	if err != nil {
		return model.WithUnit(err, op, unit.ID)
	}
	if err := registry.Save(t.store.RegistryPath(), reg.Upsert(unit.Summary())); err != nil {
		return model.WithUnit(err, op, unit.ID)
	}
	return nil
}
