package store

import (
	_ "embed"
	"fmt"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaCUE string

// schemaValidator checks metadata documents against #WorkUnit.
// A cue.Context is not safe for concurrent use, so access is serialized.
type schemaValidator struct {
	mu       sync.Mutex
	ctx      *cue.Context
	workUnit cue.Value
}

func newSchemaValidator() (*schemaValidator, error) {
	ctx := cuecontext.New()
	v := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if v.Err() != nil {
		return nil, fmt.Errorf("compile metadata schema: %w", v.Err())
	}
	def := v.LookupPath(cue.ParsePath("#WorkUnit"))
	if !def.Exists() {
		return nil, fmt.Errorf("metadata schema: #WorkUnit not defined")
	}
	return &schemaValidator{ctx: ctx, workUnit: def}, nil
}

// Validate reports whether data, a JSON document, is a concrete #WorkUnit.
func (s *schemaValidator) Validate(filename string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := s.ctx.CompileBytes(data, cue.Filename(filename))
	if doc.Err() != nil {
		return doc.Err()
	}
	return s.workUnit.Unify(doc).Validate(cue.Concrete(true))
}

var (
	schemaOnce sync.Once
	schema     *schemaValidator
	schemaErr  error
)

func metadataSchema() (*schemaValidator, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = newSchemaValidator()
	})
	return schema, schemaErr
}
