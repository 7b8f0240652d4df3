package config_test

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petasbytes/toolbridge/internal/config"
	"github.com/petasbytes/toolbridge/internal/provider"
)

var envKeys = []string{
	"AGT_MODEL", "ANTHROPIC_MODEL", "ANTHROPIC_BASE_URL", "ANTHROPIC_API_KEY",
	"AGT_LOG_LEVEL", "AGT_LOG_FORMAT", "AGT_SERVER_COMMAND", "AGT_SERVER_DIR",
	"AGT_SERVER_ARGS", "AGT_READ_ROOT", "AGT_WRITE_ROOT", "AGT_MAX_TOOL_ROUNDS",
	"AGT_TOKEN_BUDGET", "AGT_MAX_TOKENS", "AGT_ENABLE_EXEC",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_DefaultsWhenNothingConfigured(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, string(provider.DefaultModel), cfg.Model)
	assert.Equal(t, provider.DefaultBaseURL, cfg.BaseURL)
	assert.Equal(t, 16, cfg.MaxToolRounds)
	assert.Equal(t, 0, cfg.TokenBudget)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Empty(t, cfg.Server.Command)
}

func TestLoad_ExplicitFileMustExist(t *testing.T) {
	clearEnv(t)
	_, err := config.LoadFrom(filepath.Join(t.TempDir(), "missing.yaml"), "")
	require.Error(t, err)
}

func TestLoad_YAMLThenDotEnvThenEnv(t *testing.T) {
	clearEnv(t)
	file := writeFile(t, "agent.yaml", `
model: from-yaml
max_tool_rounds: 4
token_budget: 900
server:
  command: /usr/local/bin/tools
  args: ["serve", "--enable-exec"]
  env: ["FOO=bar"]
sandbox:
  read_root: /srv/data
log:
  level: debug
  format: json
`)
	envFile := writeFile(t, ".env", "AGT_MODEL=from-dotenv\nAGT_TOKEN_BUDGET=1200\nANTHROPIC_API_KEY=sk-dotenv\n")
	t.Setenv("AGT_TOKEN_BUDGET", "1500")

	cfg, err := config.LoadFrom(file, envFile)
	require.NoError(t, err)

	assert.Equal(t, "from-dotenv", cfg.Model)
	assert.Equal(t, 1500, cfg.TokenBudget, "process env wins over .env")
	assert.Equal(t, 4, cfg.MaxToolRounds)
	assert.Equal(t, "sk-dotenv", cfg.APIKey)
	assert.Equal(t, "/usr/local/bin/tools", cfg.Server.Command)
	assert.Equal(t, []string{"serve", "--enable-exec"}, cfg.Server.Args)
	assert.Equal(t, []string{"FOO=bar"}, cfg.Server.Env)
	assert.Equal(t, "/srv/data", cfg.Sandbox.ReadRoot)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_MissingDotEnvIgnored(t *testing.T) {
	clearEnv(t)
	file := writeFile(t, "agent.yaml", "model: m\n")
	cfg, err := config.LoadFrom(file, filepath.Join(t.TempDir(), "nope.env"))
	require.NoError(t, err)
	assert.Equal(t, "m", cfg.Model)
}

func TestLoad_ModelFallsBackToAnthropicModel(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("ANTHROPIC_MODEL", "claude-fallback")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "claude-fallback", cfg.Model)

	t.Setenv("AGT_MODEL", "claude-primary")
	cfg, err = config.Load("")
	require.NoError(t, err)
	assert.Equal(t, "claude-primary", cfg.Model)
}

func TestLoad_EnvParsing(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("AGT_MAX_TOOL_ROUNDS", " 0 ")
	t.Setenv("AGT_ENABLE_EXEC", "true")
	t.Setenv("AGT_SERVER_ARGS", "serve  --read-root /tmp")

	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.MaxToolRounds)
	assert.True(t, cfg.Sandbox.EnableExec)
	assert.Equal(t, []string{"serve", "--read-root", "/tmp"}, cfg.Server.Args)
}

func TestLoad_InvalidValuesRejected(t *testing.T) {
	cases := map[string]string{
		"AGT_MAX_TOOL_ROUNDS": "many",
		"AGT_TOKEN_BUDGET":    "-5",
		"AGT_LOG_LEVEL":       "loud",
		"AGT_LOG_FORMAT":      "xml",
		"AGT_ENABLE_EXEC":     "perhaps",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			clearEnv(t)
			t.Chdir(t.TempDir())
			t.Setenv(key, val)
			_, err := config.Load("")
			require.Error(t, err)
		})
	}
}

func TestNewLogger_LevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	logger, err := config.NewLogger(&buf, config.Log{Level: "warn", Format: "json"})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.Warn("shown", "k", 1)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, `"msg":"shown"`)
	assert.True(t, logger.Enabled(context.Background(), slog.LevelWarn))
}

func TestNewLogger_DefaultsToText(t *testing.T) {
	var buf bytes.Buffer
	logger, err := config.NewLogger(&buf, config.Log{})
	require.NoError(t, err)
	logger.Info("hello")
	assert.Contains(t, buf.String(), "msg=hello")
}
