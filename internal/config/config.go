// Package config resolves agent settings from defaults, an optional YAML
// file, a .env file and the process environment, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/petasbytes/toolbridge/internal/provider"
	"github.com/petasbytes/toolbridge/internal/runner"
)

const (
	DefaultFile    = "agent.yaml"
	DefaultEnvFile = ".env"
)

// Config is the resolved agent configuration.
type Config struct {
	Model         string  `yaml:"model"`
	BaseURL       string  `yaml:"base_url"`
	MaxTokens     int64   `yaml:"max_tokens"`
	MaxToolRounds int     `yaml:"max_tool_rounds"`
	TokenBudget   int     `yaml:"token_budget"`
	Server        Server  `yaml:"server"`
	Sandbox       Sandbox `yaml:"sandbox"`
	Log           Log     `yaml:"log"`

	// APIKey is only taken from the environment.
	APIKey string `yaml:"-"`
}

// Server describes the tool server process launched by chat. An empty
// Command means the agent binary itself with the serve subcommand.
type Server struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
	Env     []string `yaml:"env"`
	Dir     string   `yaml:"dir"`
}

// Sandbox configures the built-in tools when serving.
type Sandbox struct {
	ReadRoot   string `yaml:"read_root"`
	WriteRoot  string `yaml:"write_root"`
	EnableExec bool   `yaml:"enable_exec"`
}

type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing overrides it.
func Default() *Config {
	return &Config{
		Model:         string(provider.DefaultModel),
		BaseURL:       provider.DefaultBaseURL,
		MaxTokens:     provider.DefaultMaxTokens,
		MaxToolRounds: runner.DefaultMaxToolRounds,
		Log:           Log{Level: "info", Format: "text"},
	}
}

// Load resolves the configuration using path as the YAML file. An empty path
// means DefaultFile, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	return LoadFrom(path, DefaultEnvFile)
}

// LoadFrom is Load with an explicit .env location. A missing .env is ignored.
// Process environment values take precedence over .env values.
func LoadFrom(path, envFile string) (*Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultFile
	}
	if err := cfg.readFile(path, optional); err != nil {
		return nil, err
	}

	dotenv, err := readDotEnv(envFile)
	if err != nil {
		return nil, err
	}
	lookup := func(key string) (string, bool) {
		if v, ok := os.LookupEnv(key); ok {
			return v, true
		}
		v, ok := dotenv[key]
		return v, ok
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) readFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config load: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("config parse %s: %w", path, err)
	}
	return nil
}

func readDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}
	vars, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("dotenv %s: %w", path, err)
	}
	return vars, nil
}

type lookupFunc func(key string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(dst *string, keys ...string) {
		for _, k := range keys {
			if v, ok := lookup(k); ok && v != "" {
				*dst = v
				return
			}
		}
	}
	str(&c.Model, "AGT_MODEL", "ANTHROPIC_MODEL")
	str(&c.BaseURL, "ANTHROPIC_BASE_URL")
	str(&c.APIKey, "ANTHROPIC_API_KEY")
	str(&c.Log.Level, "AGT_LOG_LEVEL")
	str(&c.Log.Format, "AGT_LOG_FORMAT")
	str(&c.Server.Command, "AGT_SERVER_COMMAND")
	str(&c.Server.Dir, "AGT_SERVER_DIR")
	str(&c.Sandbox.ReadRoot, "AGT_READ_ROOT")
	str(&c.Sandbox.WriteRoot, "AGT_WRITE_ROOT")

	if v, ok := lookup("AGT_SERVER_ARGS"); ok && v != "" {
		c.Server.Args = strings.Fields(v)
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"AGT_MAX_TOOL_ROUNDS", &c.MaxToolRounds},
		{"AGT_TOKEN_BUDGET", &c.TokenBudget},
	}
	for _, e := range ints {
		v, ok := lookup(e.key)
		if !ok || strings.TrimSpace(v) == "" {
			continue
		}
		n, err := cast.ToIntE(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", e.key, err)
		}
		*e.dst = n
	}
	if v, ok := lookup("AGT_MAX_TOKENS"); ok && strings.TrimSpace(v) != "" {
		n, err := cast.ToInt64E(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("AGT_MAX_TOKENS: %w", err)
		}
		c.MaxTokens = n
	}
	if v, ok := lookup("AGT_ENABLE_EXEC"); ok && v != "" {
		b, err := cast.ToBoolE(v)
		if err != nil {
			return fmt.Errorf("AGT_ENABLE_EXEC: %w", err)
		}
		c.Sandbox.EnableExec = b
	}
	return nil
}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	if c.MaxToolRounds < 0 {
		return fmt.Errorf("max_tool_rounds must be >= 0, got %d", c.MaxToolRounds)
	}
	if c.TokenBudget < 0 {
		return fmt.Errorf("token_budget must be >= 0, got %d", c.TokenBudget)
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be > 0, got %d", c.MaxTokens)
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		return fmt.Errorf("log format %q: want text or json", c.Log.Format)
	}
	return nil
}
