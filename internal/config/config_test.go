package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"DATA_ROOT", "SESSION_SECRET", "FLASK_SECRET", "LISTEN_ADDR", "GRAPHRAG_EXECUTABLE",
	"GRAPHRAG_ARGS", "GRAPHRAG_TIMEOUT", "HISTORY_DB", "WATCH_LISTING", "LOG_LEVEL",
}

// isolate runs the test from an empty directory with a clean environment.
func isolate(t *testing.T) string {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func TestLoad_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "data", filepath.Base(cfg.DataRoot))
	assert.True(t, filepath.IsAbs(cfg.DataRoot))
	assert.Equal(t, "dev-secret", cfg.Secret)
	assert.True(t, cfg.UsesDefaultSecret())
	assert.Equal(t, ":5000", cfg.Addr)
	assert.Equal(t, "python3", cfg.GraphRAG.Executable)
	assert.Equal(t, []string{"-m", "graphrag"}, cfg.GraphRAG.Args)
	assert.Equal(t, time.Duration(0), cfg.QueryTimeout())
	assert.Equal(t, []string{"global", "local", "drift", "basic"}, cfg.Methods)
	assert.True(t, cfg.WatchListing)
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "graphrag-web.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
data_root: /srv/graphrag
secret: from-file
addr: 127.0.0.1:8080
graphrag:
  executable: graphrag
  args: []
  timeout: 90
  env: ["GRAPHRAG_API_KEY=sk-file"]
methods: [local]
history_db: /var/lib/graphrag-web/history.db
watch_listing: false
log_level: debug
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/srv/graphrag", cfg.DataRoot)
	assert.Equal(t, "from-file", cfg.Secret)
	assert.Equal(t, "127.0.0.1:8080", cfg.Addr)
	assert.Equal(t, "graphrag", cfg.GraphRAG.Executable)
	assert.Empty(t, cfg.GraphRAG.Args)
	assert.Equal(t, 90*time.Second, cfg.QueryTimeout())
	assert.Equal(t, []string{"GRAPHRAG_API_KEY=sk-file"}, cfg.GraphRAG.Env)
	assert.Equal(t, []string{"local"}, cfg.Methods)
	assert.Equal(t, "/var/lib/graphrag-web/history.db", cfg.HistoryDB)
	assert.False(t, cfg.WatchListing)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())
	assert.Equal(t, "/srv/graphrag/listing.json", cfg.ListingPath())
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_root: /from/file\nsecret: file\n"), 0644))

	t.Setenv("DATA_ROOT", "/from/env")
	t.Setenv("FLASK_SECRET", "legacy")
	t.Setenv("GRAPHRAG_TIMEOUT", "30")
	t.Setenv("GRAPHRAG_ARGS", "-m graphrag.cli")
	t.Setenv("WATCH_LISTING", "false")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "/from/env", cfg.DataRoot)
	assert.Equal(t, "legacy", cfg.Secret)
	assert.Equal(t, 30*time.Second, cfg.QueryTimeout())
	assert.Equal(t, []string{"-m", "graphrag.cli"}, cfg.GraphRAG.Args)
	assert.False(t, cfg.WatchListing)
}

func TestLoad_SessionSecretBeatsLegacy(t *testing.T) {
	isolate(t)
	t.Setenv("SESSION_SECRET", "new")
	t.Setenv("FLASK_SECRET", "old")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "new", cfg.Secret)
	assert.False(t, cfg.UsesDefaultSecret())
}

func TestLoad_DotEnv(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"),
		[]byte("DATA_ROOT=/from/dotenv\nHISTORY_DB=history.db\n"), 0644))
	t.Cleanup(func() {
		os.Unsetenv("DATA_ROOT")
		os.Unsetenv("HISTORY_DB")
	})
	// godotenv does not override variables that already exist, even empty ones.
	os.Unsetenv("DATA_ROOT")
	os.Unsetenv("HISTORY_DB")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "/from/dotenv", cfg.DataRoot)
	assert.Equal(t, "history.db", cfg.HistoryDB)
}

func TestLoad_ExplicitMissingFile(t *testing.T) {
	dir := isolate(t)

	_, err := Load(filepath.Join(dir, "absent.yaml"))

	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("graphrag: [unclosed"), 0644))

	_, err := Load(path)

	assert.Error(t, err)
}

func TestLoad_BadTimeoutEnv(t *testing.T) {
	isolate(t)
	t.Setenv("GRAPHRAG_TIMEOUT", "soon")

	_, err := Load("")

	assert.ErrorContains(t, err, "GRAPHRAG_TIMEOUT")
}

func TestValidate(t *testing.T) {
	cases := map[string]func(c *Config){
		"empty executable": func(c *Config) { c.GraphRAG.Executable = "" },
		"negative timeout": func(c *Config) { c.GraphRAG.TimeoutSecs = -1 },
		"no methods":       func(c *Config) { c.Methods = nil },
		"empty secret":     func(c *Config) { c.Secret = "" },
		"bad log level":    func(c *Config) { c.LogLevel = "chatty" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}
