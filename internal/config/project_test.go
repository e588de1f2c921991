package config_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fairdiet/fairdiet/internal/config"
)

func TestResolveProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("flag wins over env", func(t *testing.T) {
		isolateHome(t)
		flagDir := t.TempDir()
		t.Setenv(config.EnvProjectDir, t.TempDir())

		got := config.ResolveProjectDir(ctx, flagDir, "/does/not/matter")
		assert.Equal(t, filepath.Join(flagDir, ".fairdiet"), got)
	})

	t.Run("env", func(t *testing.T) {
		isolateHome(t)
		envDir := t.TempDir()
		t.Setenv(config.EnvProjectDir, envDir)

		got := config.ResolveProjectDir(ctx, "", "/does/not/matter")
		assert.Equal(t, filepath.Join(envDir, ".fairdiet"), got)
		assert.True(t, filepath.IsAbs(got))
	})

	t.Run("no double append", func(t *testing.T) {
		isolateHome(t)
		dir := filepath.Join(t.TempDir(), ".fairdiet")

		assert.Equal(t, dir, config.ResolveProjectDir(ctx, dir, ""))
	})

	t.Run("walk up", func(t *testing.T) {
		isolateHome(t)
		root := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(root, ".fairdiet"), 0o755))
		sub := filepath.Join(root, "a", "b", "c")
		require.NoError(t, os.MkdirAll(sub, 0o755))

		assert.Equal(t, filepath.Join(root, ".fairdiet"), config.ResolveProjectDir(ctx, "", sub))
	})

	t.Run("no project", func(t *testing.T) {
		isolateHome(t)
		assert.Empty(t, config.ResolveProjectDir(ctx, "", t.TempDir()))
	})

	t.Run("global dir is not a project", func(t *testing.T) {
		isolateHome(t)
		parent := t.TempDir()
		global := filepath.Join(parent, ".fairdiet")
		require.NoError(t, os.MkdirAll(global, 0o755))
		t.Setenv(config.EnvHome, global)

		assert.Empty(t, config.ResolveProjectDir(ctx, "", parent))
	})
}

func TestNewWithProjectDir(t *testing.T) {
	ctx := context.Background()

	t.Run("empty dir is New", func(t *testing.T) {
		isolateHome(t)
		assert.Equal(t, config.New(), config.NewWithProjectDir(ctx, ""))
	})

	t.Run("missing overlay", func(t *testing.T) {
		isolateHome(t)
		cfg := config.NewWithProjectDir(ctx, t.TempDir())
		assert.Equal(t, "data", cfg.Data.Dir)
	})

	t.Run("overlay merged over global", func(t *testing.T) {
		home := isolateHome(t)
		writeFile(t, filepath.Join(home, "config.yaml"), "logging:\n  level: warn\nserver:\n  addr: :7000\n")
		project := t.TempDir()
		writeFile(t, filepath.Join(project, "config.yaml"), "server:\n  addr: :8000\n")

		cfg := config.NewWithProjectDir(ctx, project)
		assert.Equal(t, ":8000", cfg.Server.Addr)
		assert.Equal(t, "warn", cfg.Logging.Level)
	})

	t.Run("env beats overlay", func(t *testing.T) {
		isolateHome(t)
		project := t.TempDir()
		writeFile(t, filepath.Join(project, "config.yaml"), "data:\n  dir: overlay\n")
		t.Setenv(config.EnvDataDir, "env")

		assert.Equal(t, "env", config.NewWithProjectDir(ctx, project).Data.Dir)
	})

	t.Run("broken overlay falls back", func(t *testing.T) {
		isolateHome(t)
		project := t.TempDir()
		writeFile(t, filepath.Join(project, "config.yaml"), "data: [\n")

		assert.Equal(t, "data", config.NewWithProjectDir(ctx, project).Data.Dir)
	})
}

func TestResolvedProjectDir(t *testing.T) {
	t.Cleanup(func() { config.SetResolvedProjectDir("") })

	config.SetResolvedProjectDir("/x/.fairdiet")
	assert.Equal(t, "/x/.fairdiet", config.GetResolvedProjectDir())
}
