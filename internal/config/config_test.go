package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tracks/internal/model"
)

func TestLoad_DefaultsWhenMissing(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 7*24*time.Hour, cfg.StalePlanningAfter())
	assert.Equal(t, 3, cfg.NextTasks)
	assert.Equal(t, IDStyleSlug, cfg.IDStyle)
}

func TestLoad_ParsesYAML(t *testing.T) {
	root := t.TempDir()
	data := `
version: 1
stale_planning_days: 14
next_tasks: 5
id_style: uuid
categories: [feature, bugfix]
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "config.yaml"), []byte(data), 0o644))

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, 14, cfg.StalePlanningDays)
	assert.Equal(t, 5, cfg.NextTasks)
	assert.Equal(t, IDStyleUUID, cfg.IDStyle)
	assert.True(t, cfg.AllowsCategory(model.CategoryBugFix))
	assert.False(t, cfg.AllowsCategory(model.CategoryStorage))
}

func TestParse_PartialKeepsDefaults(t *testing.T) {
	cfg, err := Parse([]byte("next_tasks: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, 1, cfg.NextTasks)
	assert.Equal(t, 7, cfg.StalePlanningDays)
	assert.True(t, cfg.AllowsCategory("anything"))
}

func TestParse_EmptyDocument(t *testing.T) {
	cfg, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"unknown field", "colour: blue\n"},
		{"bad version", "version: 2\n"},
		{"negative days", "stale_planning_days: -1\n"},
		{"negative next", "next_tasks: -2\n"},
		{"bad id style", "id_style: counter\n"},
		{"bad category", "categories: [Feature]\n"},
		{"wrong type", "next_tasks: many\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestLoad_ErrorNamesFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("nope: 1\n"), 0o644))

	_, err := Load(root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}

func TestWriteDefault(t *testing.T) {
	root := t.TempDir()

	wrote, err := WriteDefault(root)
	require.NoError(t, err)
	assert.True(t, wrote)

	cfg, err := Load(root)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	wrote, err = WriteDefault(root)
	require.NoError(t, err)
	assert.False(t, wrote)
}

func TestResolveRoot(t *testing.T) {
	t.Setenv(RootEnv, "")
	assert.Equal(t, DefaultRoot, ResolveRoot(""))

	t.Setenv(RootEnv, "/srv/tracks")
	assert.Equal(t, "/srv/tracks", ResolveRoot(""))
	assert.Equal(t, "custom", ResolveRoot("custom"))
}
