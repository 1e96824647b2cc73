package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/tracks/internal/fsutil"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
)

const (
	unitsDir      = "units"
	metadataFile  = "metadata.json"
	specFile      = "spec.md"
	planFile      = "plan.md"
	registryFile  = "tracks.md"
	journalFile   = "journal.db"
	stagingPrefix = ".staging-"
	trashPrefix   = ".trash-"
)

// Store reads and writes work units under a tracks root directory.
type Store struct {
	root   string
	now    func() time.Time
	logger *slog.Logger
	schema *schemaValidator
}

// Option configures a Store.
type Option func(*Store)

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// Open prepares root for use, creating the units directory if needed.
func Open(root string, opts ...Option) (*Store, error) {
	schema, err := metadataSchema()
	if err != nil {
		return nil, err
	}
	s := &Store{
		root:   root,
		now:    time.Now,
		logger: slog.Default(),
		schema: schema,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := os.MkdirAll(filepath.Join(root, unitsDir), 0o755); err != nil {
		return nil, fmt.Errorf("open store %s: %w", root, err)
	}
	return s, nil
}

// Root returns the tracks root directory.
func (s *Store) Root() string { return s.root }

// RegistryPath returns the location of the registry document.
func (s *Store) RegistryPath() string { return filepath.Join(s.root, registryFile) }

// JournalPath returns the location of the transition journal database.
func (s *Store) JournalPath() string { return filepath.Join(s.root, journalFile) }

// Paths lists the files backing one work unit.
type Paths struct {
	Dir      string `json:"dir"`
	Metadata string `json:"metadata"`
	Spec     string `json:"spec"`
	Plan     string `json:"plan"`
}

// Paths returns the file locations for id. The files need not exist.
func (s *Store) Paths(id string) Paths {
	dir := filepath.Join(s.root, unitsDir, id)
	return Paths{
		Dir:      dir,
		Metadata: filepath.Join(dir, metadataFile),
		Spec:     filepath.Join(dir, specFile),
		Plan:     filepath.Join(dir, planFile),
	}
}

// CreateInput describes a new work unit.
type CreateInput struct {
	ID         string
	Title      string
	Category   model.Category
	Attributes map[string]string

	// Spec is the initial specification text. Empty means a placeholder.
	Spec string

	// Plan is the initial plan. The zero Plan renders as an empty document.
	Plan plan.Plan
}

// Create persists a new unit with a placeholder spec and an empty plan.
func (s *Store) Create(id, title string, category model.Category, attributes map[string]string) (model.WorkUnit, error) {
	return s.CreateWith(CreateInput{ID: id, Title: title, Category: category, Attributes: attributes})
}

// CreateWith persists a new unit in status planning. The unit appears
// atomically: its files are staged in a hidden directory first.
func (s *Store) CreateWith(in CreateInput) (model.WorkUnit, error) {
	const op = "create"
	if err := model.ValidateID(op, in.ID); err != nil {
		return model.WorkUnit{}, err
	}
	title := model.NormalizeTitle(in.Title)
	if err := validateTitle(op, in.ID, title); err != nil {
		return model.WorkUnit{}, err
	}
	if err := model.ValidateCategory(op, in.ID, in.Category); err != nil {
		return model.WorkUnit{}, err
	}
	if err := validateAttributes(op, in.ID, in.Attributes); err != nil {
		return model.WorkUnit{}, err
	}
	if err := plan.Validate(in.Plan); err != nil {
		return model.WorkUnit{}, model.WithUnit(err, op, in.ID)
	}

	paths := s.Paths(in.ID)
	if fsutil.Exists(paths.Dir) {
		return model.WorkUnit{}, model.AlreadyExists(op, in.ID)
	}

	now := s.now().UTC()
	unit := model.WorkUnit{
		ID:         in.ID,
		Title:      title,
		Category:   in.Category,
		Status:     model.StatusPlanning,
		CreatedAt:  now,
		UpdatedAt:  now,
		Attributes: model.CloneAttributes(in.Attributes),
	}
	spec := in.Spec
	if strings.TrimSpace(spec) == "" {
		spec = placeholderSpec(title)
	}

	parent := filepath.Join(s.root, unitsDir)
	staging, err := os.MkdirTemp(parent, stagingPrefix+in.ID+"-")
	if err != nil {
		return model.WorkUnit{}, fmt.Errorf("%s %s: stage: %w", op, in.ID, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = os.RemoveAll(staging)
		}
	}()

	meta, err := encodeMetadata(unit)
	if err != nil {
		return model.WorkUnit{}, fmt.Errorf("%s %s: %w", op, in.ID, err)
	}
	files := []struct {
		name string
		data []byte
	}{
		{specFile, []byte(spec)},
		{planFile, []byte(plan.Render(in.Plan))},
		{metadataFile, meta},
	}
	for _, f := range files {
		if err := fsutil.WriteFileAtomic(filepath.Join(staging, f.name), f.data, 0o644); err != nil {
			return model.WorkUnit{}, fmt.Errorf("%s %s: write %s: %w", op, in.ID, f.name, err)
		}
	}

	if err := os.Rename(staging, paths.Dir); err != nil {
		if fsutil.Exists(paths.Dir) {
			return model.WorkUnit{}, model.AlreadyExists(op, in.ID)
		}
		return model.WorkUnit{}, fmt.Errorf("%s %s: commit: %w", op, in.ID, err)
	}
	committed = true
	if err := fsutil.SyncDir(parent); err != nil {
		s.logger.Warn("sync units directory", "path", parent, "error", err)
	}

	s.logger.Debug("created work unit", "unit", unit.ID, "status", unit.Status)
	return unit, nil
}

func placeholderSpec(title string) string {
	return "# " + title + "\n\nSpecification pending.\n"
}

// Load reads and validates the metadata record for id.
func (s *Store) Load(id string) (model.WorkUnit, error) {
	const op = "load"
	if err := model.ValidateID(op, id); err != nil {
		return model.WorkUnit{}, err
	}
	path := s.Paths(id).Metadata
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.WorkUnit{}, model.NotFound(op, id, "no metadata record")
	}
	if err != nil {
		return model.WorkUnit{}, fmt.Errorf("%s %s: %w", op, id, err)
	}
	return s.decodeMetadata(id, path, data)
}

func (s *Store) decodeMetadata(id, path string, data []byte) (model.WorkUnit, error) {
	const op = "load"
	if err := s.schema.Validate(path, data); err != nil {
		return model.WorkUnit{}, model.Corrupt(op, id, path+" does not match #WorkUnit", err)
	}
	var unit model.WorkUnit
	if err := json.Unmarshal(data, &unit); err != nil {
		return model.WorkUnit{}, model.Corrupt(op, id, path+" does not decode", err)
	}
	if unit.ID != id {
		return model.WorkUnit{}, model.Corrupt(op, id, fmt.Sprintf("%s records id %q", path, unit.ID), nil)
	}
	if unit.UpdatedAt.Before(unit.CreatedAt) {
		return model.WorkUnit{}, model.Corrupt(op, id, path+": updated_at precedes created_at", nil)
	}
	return unit, nil
}

// SaveOption adjusts a Save call.
type SaveOption func(*saveOptions)

type saveOptions struct {
	preserveUpdatedAt bool
}

// PreserveUpdatedAt keeps the unit's UpdatedAt instead of stamping the
// current time.
func PreserveUpdatedAt() SaveOption {
	return func(o *saveOptions) { o.preserveUpdatedAt = true }
}

// Save overwrites the metadata record of an existing unit and returns the
// unit as written.
func (s *Store) Save(unit model.WorkUnit, opts ...SaveOption) (model.WorkUnit, error) {
	const op = "save"
	var o saveOptions
	for _, opt := range opts {
		opt(&o)
	}
	if err := s.validateUnit(op, unit); err != nil {
		return model.WorkUnit{}, err
	}
	paths := s.Paths(unit.ID)
	if !fsutil.Exists(paths.Metadata) {
		return model.WorkUnit{}, model.NotFound(op, unit.ID, "no metadata record")
	}

	unit = unit.Clone()
	unit.CreatedAt = unit.CreatedAt.UTC()
	if !o.preserveUpdatedAt {
		unit.UpdatedAt = s.now()
	}
	unit.UpdatedAt = unit.UpdatedAt.UTC()
	if unit.UpdatedAt.Before(unit.CreatedAt) {
		unit.UpdatedAt = unit.CreatedAt
	}

	data, err := encodeMetadata(unit)
	if err != nil {
		return model.WorkUnit{}, fmt.Errorf("%s %s: %w", op, unit.ID, err)
	}
	if err := fsutil.WriteFileAtomic(paths.Metadata, data, 0o644); err != nil {
		return model.WorkUnit{}, fmt.Errorf("%s %s: %w", op, unit.ID, err)
	}
	s.logger.Debug("saved work unit", "unit", unit.ID, "status", unit.Status)
	return unit, nil
}

func (s *Store) validateUnit(op string, unit model.WorkUnit) error {
	if err := model.ValidateID(op, unit.ID); err != nil {
		return err
	}
	if err := validateTitle(op, unit.ID, unit.Title); err != nil {
		return err
	}
	if err := model.ValidateCategory(op, unit.ID, unit.Category); err != nil {
		return err
	}
	if err := model.ValidateStatus(op, unit.ID, unit.Status); err != nil {
		return err
	}
	return validateAttributes(op, unit.ID, unit.Attributes)
}

// Delete removes a unit and all of its files. Deleting an absent unit is not
// an error.
func (s *Store) Delete(id string) error {
	const op = "delete"
	if err := model.ValidateID(op, id); err != nil {
		return err
	}
	dir := s.Paths(id).Dir
	if !fsutil.Exists(dir) {
		return nil
	}
	parent := filepath.Join(s.root, unitsDir)
	trash := filepath.Join(parent, trashPrefix+id+"-"+uuid.NewString()[:8])
	if err := os.Rename(dir, trash); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	if err := fsutil.SyncDir(parent); err != nil {
		s.logger.Warn("sync units directory", "path", parent, "error", err)
	}
	if err := os.RemoveAll(trash); err != nil {
		s.logger.Warn("remove deleted unit", "unit", id, "path", trash, "error", err)
	}
	s.logger.Debug("deleted work unit", "unit", id)
	return nil
}

// ListIDs returns the ids of all units on disk in lexical order.
func (s *Store) ListIDs() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, unitsDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	var ids []string
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		ids = append(ids, e.Name())
	}
	return ids, nil
}

// Exists reports whether a unit directory exists for id.
func (s *Store) Exists(id string) bool {
	if model.ValidateID("exists", id) != nil {
		return false
	}
	return fsutil.Exists(s.Paths(id).Dir)
}

func encodeMetadata(unit model.WorkUnit) ([]byte, error) {
	data, err := json.MarshalIndent(unit, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return append(data, '\n'), nil
}

func validateTitle(op, id, title string) error {
	if strings.TrimSpace(title) == "" {
		return model.Invalid(op, id, "title is required")
	}
	if strings.ContainsAny(title, "\r\n") {
		return model.Invalid(op, id, "title must be a single line")
	}
	return nil
}

func validateAttributes(op, id string, attrs map[string]string) error {
	for k, v := range attrs {
		if strings.TrimSpace(k) == "" {
			return model.Invalid(op, id, "attribute keys must not be empty")
		}
		if k != strings.TrimSpace(k) || v != strings.TrimSpace(v) {
			return model.Invalid(op, id, fmt.Sprintf("attribute %q has surrounding whitespace", k))
		}
		if strings.ContainsAny(k+v, "\r\n") {
			return model.Invalid(op, id, fmt.Sprintf("attribute %q must be a single line", k))
		}
	}
	return nil
}
