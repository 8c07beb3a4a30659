package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{EnvFactsPath, EnvFactsDB, EnvAddr, EnvInDegreeThreshold, EnvMarkCrossPackage, EnvLogLevel, EnvLogFormat} {
		t.Setenv(k, "")
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 5, cfg.Graph.CriticalInDegreeThreshold)
	assert.True(t, cfg.Graph.MarkCrossPackageCritical)
}

func TestLoad_YAML(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "impactd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
facts:
  path: /data/deps.json
  relations: [CALLS, READS]
graph:
  critical_in_degree_threshold: 3
  mark_cross_package_critical: false
server:
  addr: ":9000"
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/data/deps.json", cfg.Facts.Path)
	assert.Equal(t, []string{"CALLS", "READS"}, cfg.Facts.Relations)
	assert.Equal(t, 3, cfg.Graph.CriticalInDegreeThreshold)
	assert.False(t, cfg.Graph.MarkCrossPackageCritical)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	// untouched keys keep their defaults
	assert.Equal(t, 256, cfg.Server.CacheSize)
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv(EnvFactsPath, "/env/deps.json")
	t.Setenv(EnvInDegreeThreshold, "2")
	t.Setenv(EnvMarkCrossPackage, "false")
	t.Setenv(EnvLogLevel, "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/env/deps.json", cfg.Facts.Path)
	assert.Equal(t, 2, cfg.Graph.CriticalInDegreeThreshold)
	assert.False(t, cfg.Graph.MarkCrossPackageCritical)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvAddr)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("IMPACT_ADDR=:7070\n"), 0644))
	t.Cleanup(func() { os.Unsetenv(EnvAddr) })

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":7070", cfg.Server.Addr)
}

func TestLoad_BadValues(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	t.Setenv(EnvInDegreeThreshold, "many")
	_, err := Load("")
	assert.Error(t, err)

	t.Setenv(EnvInDegreeThreshold, "0")
	_, err = Load("")
	assert.Error(t, err)

	t.Setenv(EnvInDegreeThreshold, "")
	t.Setenv(EnvMarkCrossPackage, "sometimes")
	_, err = Load("")
	assert.Error(t, err)
}

func TestDiscover(t *testing.T) {
	clearEnv(t)
	root := t.TempDir()
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultFactsFile), []byte("[]"), 0644))
	t.Chdir(nested)

	found := Discover("")
	assert.Equal(t, DefaultFactsFile, filepath.Base(found))
	assert.FileExists(t, found)

	assert.Equal(t, "explicit.json", Discover("explicit.json"))

	t.Setenv(EnvFactsPath, "/from/env.json")
	assert.Equal(t, "/from/env.json", Discover("explicit.json"))
}
