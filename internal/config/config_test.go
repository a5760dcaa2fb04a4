package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func TestLoadDefaults(t *testing.T) {
	// Change to temp dir so no enricher.yaml is found
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, "gemini", cfg.Oracle.Provider)
	assert.Equal(t, "gemini-2.5-flash", cfg.Oracle.Model)
	assert.Equal(t, 90*time.Second, cfg.Oracle.RequestTimeout)
	assert.Equal(t, "anthropic", cfg.Fallback.Provider)
	assert.Equal(t, "claude-haiku-4-5-20251001", cfg.Fallback.Model)
	assert.Equal(t, 2*time.Second, cfg.Run.Delay)
	assert.Equal(t, time.Second, cfg.FallbackRun.Delay)
	assert.Equal(t, "researchers_enriched.checkpoint.json", cfg.Run.Checkpoint)
	assert.Equal(t, []string{"entities", "unique_chief_investigators", "results"}, cfg.Input.ListKeys)
	assert.Equal(t, "total_projects", cfg.Join.FieldKey)
	assert.Equal(t, 10, cfg.Join.ReportLimit)
	assert.False(t, cfg.Checkpoint.StrictRecovery)
}

func TestLoadFromYAML(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	body := `
log:
  level: debug
  format: json
oracle:
  provider: anthropic
  model: claude-sonnet-4-5-20250929
  rate_limit_rps: 0.5
run:
  input: cis.json
  delay: 250ms
clean:
  extra_signatures: ["overloaded_error"]
checkpoint:
  strict_recovery: true
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "enricher.yaml"), []byte(body), 0o644))

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "anthropic", cfg.Oracle.Provider)
	assert.InDelta(t, 0.5, cfg.Oracle.RateLimitRPS, 1e-9)
	assert.Equal(t, "cis.json", cfg.Run.Input)
	assert.Equal(t, 250*time.Millisecond, cfg.Run.Delay)
	assert.Equal(t, []string{"overloaded_error"}, cfg.Clean.ExtraSignatures)
	assert.True(t, cfg.Checkpoint.StrictRecovery)
	// Untouched keys keep defaults.
	assert.Equal(t, "researchers_enriched.json", cfg.Run.Output)
}

func TestLoadExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	p := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(p, []byte("run:\n  output: out.json\n"), 0o644))
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "out.json", cfg.Run.Output)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "a named config file must exist")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENRICHER_RUN_DELAY", "5s")
	t.Setenv("ENRICHER_ORACLE_MODEL", "gemini-2.5-pro")
	t.Setenv("GEMINI_API_KEY", "gem-key-123456")
	t.Setenv("ENRICHER_ANTHROPIC_API_KEY", "sk-ant-test-abcdef")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 5*time.Second, cfg.Run.Delay)
	assert.Equal(t, "gemini-2.5-pro", cfg.Oracle.Model)
	assert.Equal(t, "gem-key-123456", cfg.APIKey("gemini"))
	assert.Equal(t, "sk-ant-test-abcdef", cfg.APIKey("Anthropic"))
	assert.Empty(t, cfg.APIKey("openai"))
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("ENRICHER_ORACLE_PROVIDER", "openai")

	_, err := Load("")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "oracle.provider")
}

func TestDumpMasksKeys(t *testing.T) {
	cfg := Config{
		Gemini:    KeyConfig{APIKey: "AIzaSyExampleKey9876"},
		Anthropic: KeyConfig{APIKey: "short"},
		Run:       RunConfig{Delay: 2 * time.Second},
	}
	out, err := Dump(cfg)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "AIzaSyExampleKey")
	assert.Contains(t, string(out), "****9876")
	assert.NotContains(t, string(out), "short")

	var back map[string]any
	require.NoError(t, yaml.Unmarshal(out, &back))
	assert.Equal(t, "2s", back["run"].(map[string]any)["delay"])
	assert.Equal(t, "AIzaSyExampleKey9876", cfg.Gemini.APIKey, "caller's config must not change")
}

func TestInitLogger(t *testing.T) {
	prev := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(prev) })

	require.NoError(t, InitLogger(LogConfig{Level: "debug", Format: "console"}))
	require.NoError(t, InitLogger(LogConfig{Level: "warn", Format: "json"}))
	assert.Error(t, InitLogger(LogConfig{Level: "loud"}))
}
