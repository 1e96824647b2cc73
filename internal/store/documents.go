package store

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/roach88/tracks/internal/fsutil"
	"github.com/roach88/tracks/internal/model"
	"github.com/roach88/tracks/internal/plan"
)

// LoadPlan reads and parses the plan of id.
func (s *Store) LoadPlan(id string) (plan.Plan, error) {
	const op = "load-plan"
	data, err := s.readDocument(op, id, s.Paths(id).Plan)
	if err != nil {
		return plan.Plan{}, err
	}
	p, err := plan.Parse(string(data))
	if err != nil {
		return plan.Plan{}, model.WithUnit(err, op, id)
	}
	return p, nil
}

// SavePlan renders p and replaces the plan document of id.
func (s *Store) SavePlan(id string, p plan.Plan) error {
	const op = "save-plan"
	if err := s.requireUnit(op, id); err != nil {
		return err
	}
	if err := plan.Validate(p); err != nil {
		return model.WithUnit(err, op, id)
	}
	if err := fsutil.WriteFileAtomic(s.Paths(id).Plan, []byte(plan.Render(p)), 0o644); err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	return nil
}

// LoadSpec returns the specification text of id.
func (s *Store) LoadSpec(id string) (string, error) {
	data, err := s.readDocument("load-spec", id, s.Paths(id).Spec)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveSpec replaces the specification text of id.
func (s *Store) SaveSpec(id, text string) error {
	const op = "save-spec"
	if err := s.requireUnit(op, id); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(s.Paths(id).Spec, []byte(text), 0o644); err != nil {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	return nil
}

func (s *Store) readDocument(op, id, path string) ([]byte, error) {
	if err := s.requireUnit(op, id); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, model.NotFound(op, id, path+" is missing")
	}
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", op, id, err)
	}
	return data, nil
}

func (s *Store) requireUnit(op, id string) error {
	if err := model.ValidateID(op, id); err != nil {
		return err
	}
	if !fsutil.Exists(s.Paths(id).Metadata) {
		return model.NotFound(op, id, "no metadata record")
	}
	return nil
}
