package tracker

import (
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/tracks/internal/config"
	"github.com/roach88/tracks/internal/model"
)

// IDGenerator produces candidate ids for new units.
type IDGenerator interface {
	Generate(title string) string
}

// maxSlugLength leaves room for the random suffix within model.MaxIDLength.
const maxSlugLength = 48

// SlugGenerator derives readable ids such as "add-dark-mode-1f3a9c2e" from
// the title plus eight random hex digits.
//
// Thread-safety: SlugGenerator is stateless and safe for concurrent use.
type SlugGenerator struct{}

// Generate returns slug(title) + "-" + 8 hex digits.
func (SlugGenerator) Generate(title string) string {
	slug := model.Slugify(title, maxSlugLength)
	if slug == "" {
		slug = "unit"
	}
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return slug + "-" + suffix
}

// UUIDGenerator generates time-sortable UUIDv7 ids.
//
// Thread-safety: UUIDGenerator is stateless and safe for concurrent use.
type UUIDGenerator struct{}

// Generate returns a new hyphenated UUIDv7. The title is ignored.
func (UUIDGenerator) Generate(string) string {
	return uuid.Must(uuid.NewV7()).String()
}

// GeneratorFor returns the generator for a configured id style.
func GeneratorFor(style config.IDStyle) IDGenerator {
	if style == config.IDStyleUUID {
		return UUIDGenerator{}
	}
	return SlugGenerator{}
}
