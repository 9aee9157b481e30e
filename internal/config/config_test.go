package config

import (
	"os"
	"path/filepath"
	"testing"

	"olpipeline/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFile_Defaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), false)
	require.NoError(t, err)

	assert.Equal(t, "open_library_pipeline", cfg.Pipeline.Name)
	assert.Equal(t, "open_library_pipeline_dataset", cfg.Pipeline.DatasetName)
	assert.Equal(t, "open_library", cfg.Pipeline.SchemaName)
	assert.Equal(t, "books", cfg.Pipeline.Table)
	assert.Equal(t, filepath.Join(os.Getenv("HOME"), ".dlt", "pipelines"), cfg.Pipeline.PipelinesDir)
	assert.Equal(t, "https://openlibrary.org/", cfg.Source.BaseURL)
	assert.Equal(t, "python programming", cfg.Source.Query)
	assert.Equal(t, 100, cfg.Source.Limit)
	assert.Equal(t, store.DuckDB, cfg.Destination.Type)
	assert.Equal(t, "open_library_pipeline.duckdb", cfg.Destination.DuckDB.Path)
	assert.Equal(t, 10, cfg.Reader.TopN)

	opts := cfg.StoreOptions()
	assert.Equal(t, store.Options{
		Destination: store.DuckDB,
		DuckDBPath:  "open_library_pipeline.duckdb",
		Dataset:     "open_library_pipeline_dataset",
	}, opts)
}

func TestLoadFile_TOMLAndEnvOverrides(t *testing.T) {
	p := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(p, []byte(`
[pipeline]
name = "ol_test"
pipelines_dir = "/tmp/pipelines"

[source]
query = "golang"
limit = 25

[destination.duckdb]
path = "/data/ol.duckdb"
`), 0o644))

	t.Setenv("SOURCE__LIMIT", "50")
	t.Setenv("READER__TOP_N", "5")

	cfg, err := LoadFile(p, true)
	require.NoError(t, err)

	assert.Equal(t, "ol_test", cfg.Pipeline.Name)
	assert.Equal(t, "ol_test_dataset", cfg.Pipeline.DatasetName)
	assert.Equal(t, "/tmp/pipelines", cfg.Pipeline.PipelinesDir)
	assert.Equal(t, "golang", cfg.Source.Query)
	assert.Equal(t, 50, cfg.Source.Limit, "environment wins over the file")
	assert.Equal(t, "/data/ol.duckdb", cfg.Destination.DuckDB.Path)
	assert.Equal(t, 5, cfg.Reader.TopN)
}

func TestLoad_PipelineConfigEnv(t *testing.T) {
	t.Setenv("PIPELINE_CONFIG", filepath.Join(t.TempDir(), "nope.toml"))
	_, err := Load()
	assert.Error(t, err, "an explicit config path must exist")
}

func TestLoadFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "limit too large", env: map[string]string{"SOURCE__LIMIT": "101"}},
		{name: "limit zero", env: map[string]string{"SOURCE__LIMIT": "0"}},
		{name: "bad base url", env: map[string]string{"SOURCE__BASE_URL": "not a url"}},
		{name: "zero request rate", env: map[string]string{"SOURCE__REQUESTS_PER_SECOND": "0"}},
		{name: "postgres without dsn", env: map[string]string{"DESTINATION__TYPE": "postgres"}},
		{name: "top n too large", env: map[string]string{"READER__TOP_N": "1000"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("HOME", t.TempDir())
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile("", false)
			assert.Error(t, err)
		})
	}
}

func TestLoadFile_UnknownDestination(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESTINATION__TYPE", "bigquery")

	_, err := LoadFile("", false)
	assert.ErrorIs(t, err, ErrUnknownDestination)
}

func TestLoadFile_Postgres(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("DESTINATION__TYPE", "postgres")
	t.Setenv("DESTINATION__POSTGRES__DSN", "postgres://u:p@localhost:5432/ol")

	cfg, err := LoadFile("", false)
	require.NoError(t, err)
	assert.Equal(t, store.Postgres, cfg.StoreOptions().Destination)
	assert.Equal(t, "postgres://u:p@localhost:5432/ol", cfg.StoreOptions().PostgresDSN)
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmp, ".env"), []byte("SOURCE__QUERY=from_file\nPIPELINE__NAME=from_file\n"), 0o644))

	t.Setenv("SOURCE__QUERY", "from_env")
	t.Setenv("PIPELINE__NAME", "")
	os.Unsetenv("PIPELINE__NAME")

	cwd, _ := os.Getwd()
	require.NoError(t, os.Chdir(tmp))
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	LoadEnvFiles()
	t.Cleanup(func() { _ = os.Unsetenv("PIPELINE__NAME") })

	assert.Equal(t, "from_env", os.Getenv("SOURCE__QUERY"))
	assert.Equal(t, "from_file", os.Getenv("PIPELINE__NAME"))
}
