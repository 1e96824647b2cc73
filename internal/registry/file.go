package registry

import (
	"errors"
	"io/fs"
	"os"

	"github.com/roach88/tracks/internal/fsutil"
	"github.com/roach88/tracks/internal/model"
)

// Load reads the registry document at path. A missing file is an empty
// registry.
func Load(path string) (Registry, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return Registry{}, nil
	}
	if err != nil {
		return Registry{}, model.Corrupt("load-registry", "", "read "+path, err)
	}
	reg, err := Parse(string(data))
	if err != nil {
		var me *model.Error
		if errors.As(err, &me) {
			me.Op = "load-registry"
			me.Message = path + ": " + me.Message
		}
		return Registry{}, err
	}
	return reg, nil
}

// Save writes the registry document to path atomically.
func Save(path string, r Registry) error {
	return fsutil.WriteFileAtomic(path, []byte(Render(r)), 0o644)
}
