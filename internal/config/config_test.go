package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"mdpress/internal/config"
	"mdpress/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Helper function to create a temporary YAML config file
func createTestYAML(t *testing.T, content string) string {
	t.Helper()
	tmpFile, err := os.CreateTemp(t.TempDir(), "config-*.yaml")
	require.NoError(t, err)
	_, err = tmpFile.WriteString(content)
	require.NoError(t, err)
	require.NoError(t, tmpFile.Close())
	return tmpFile.Name()
}

const (
	validYAML = `
converter:
  endpoint: "https://pdf.example.com/convert"
  timeout: 90s
  entry_document: "book/index.md"
collect:
  batch_size: 25
  exclude: [".git/**", "**/*.tmp"]
output:
  directory: "/tmp/out"
  release_grace: 2m
log:
  level: debug
  json: true
`
	invalidSyntaxYAML = `
converter:
  endpoint: "http://localhost
collect: [
`
	invalidEndpointYAML = `
converter:
  endpoint: "ftp://example.com/convert"
`
	invalidGlobYAML = `
collect:
  include: ["book/[a-"]
`
	invalidS3YAML = `
output:
  s3_uri: "https://bucket/prefix"
`
)

func TestLoadConfigFile(t *testing.T) {
	t.Setenv(config.EnvEndpoint, "")

	t.Run("load valid config", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
		require.NoError(t, err)

		assert.Equal(t, "https://pdf.example.com/convert", cfg.Converter.Endpoint)
		assert.Equal(t, 90*time.Second, cfg.Converter.Timeout)
		assert.Equal(t, "book/index.md", cfg.Converter.EntryDocument)
		assert.Equal(t, 25, cfg.Collect.BatchSize)
		assert.Equal(t, []string{".git/**", "**/*.tmp"}, cfg.Collect.Exclude)
		assert.Equal(t, "/tmp/out", cfg.Output.Directory)
		assert.Equal(t, 2*time.Minute, cfg.Output.ReleaseGrace)
		assert.Equal(t, "debug", cfg.Log.Level)
		assert.True(t, cfg.Log.JSON)
	})

	t.Run("unset fields keep defaults", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
		require.NoError(t, err)
		assert.Equal(t, "files", cfg.Converter.FieldName)
		assert.Equal(t, 8, cfg.Collect.Concurrency)
		assert.Equal(t, "report.pdf", cfg.Output.DefaultName)
		assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce)
	})

	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := config.LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
		require.NoError(t, err)
		assert.Equal(t, config.New(), cfg)
	})

	t.Run("invalid syntax", func(t *testing.T) {
		_, err := config.LoadConfigFile(createTestYAML(t, invalidSyntaxYAML))
		require.Error(t, err)
		assert.True(t, errors.IsInvalidConfig(err))
		assert.Contains(t, err.Error(), "error parsing config file")
	})

	for name, content := range map[string]string{
		"converter": invalidEndpointYAML,
		"collect":   invalidGlobYAML,
		"output":    invalidS3YAML,
	} {
		t.Run("invalid "+name, func(t *testing.T) {
			_, err := config.LoadConfigFile(createTestYAML(t, content))
			require.Error(t, err)
			var cfgErr *errors.ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, name, cfgErr.Param())
		})
	}
}

func TestEndpointFromEnvironment(t *testing.T) {
	t.Setenv(config.EnvEndpoint, "http://converter.internal:9000/convert")
	cfg, err := config.LoadConfigFile(createTestYAML(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "http://converter.internal:9000/convert", cfg.Converter.Endpoint)
}

func TestValidate(t *testing.T) {
	var nilCfg *config.Config
	assert.Error(t, nilCfg.Validate())

	cfg := config.New()
	require.NoError(t, cfg.Validate())

	cfg.Collect.Concurrency = 0
	assert.Error(t, cfg.Validate())

	cfg = config.New()
	cfg.Log.Level = "verbose"
	assert.Error(t, cfg.Validate())

	cfg = config.New()
	cfg.Converter.Endpoint = "localhost:8000"
	assert.Error(t, cfg.Validate())
}

func TestSaveConfigRoundTrip(t *testing.T) {
	t.Setenv(config.EnvEndpoint, "")
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := config.New()
	cfg.Converter.Endpoint = "https://pdf.example.com/convert"
	cfg.Collect.Exclude = []string{"drafts/**"}
	cfg.Output.S3URI = "s3://reports/weekly"
	require.NoError(t, config.SaveConfig(cfg, path))

	loaded, err := config.LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestParseS3URI(t *testing.T) {
	bucket, prefix, err := config.ParseS3URI("s3://reports/weekly")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Equal(t, "weekly/", prefix)

	bucket, prefix, err = config.ParseS3URI("s3://reports")
	require.NoError(t, err)
	assert.Equal(t, "reports", bucket)
	assert.Empty(t, prefix)

	_, _, err = config.ParseS3URI("/local/dir")
	assert.Error(t, err)
}
