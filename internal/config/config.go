// Package config loads webagent's runtime configuration from environment variables, with an
// optional YAML overlay for settings better kept in a file than an environment: grouped
// sub-structs with yaml tags, a Load entry point, defaults applied before overlay.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the full runtime configuration for the webagent server.
type Config struct {
	Timeouts   TimeoutsConfig   `yaml:"timeouts"`
	Retries    RetriesConfig    `yaml:"retries"`
	Browser    BrowserConfig    `yaml:"browser"`
	Domains    DomainsConfig    `yaml:"domains"`
	Debug      DebugConfig      `yaml:"debug"`
	Workers    WorkersConfig    `yaml:"workers"`
	Planner    PlannerConfig    `yaml:"planner"`
	Server     ServerConfig     `yaml:"server"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type TimeoutsConfig struct {
	ActionMS        int `yaml:"action_timeout_ms"`
	NavigateMS      int `yaml:"navigate_timeout_ms"`
	LocatorMS       int `yaml:"locator_timeout_ms"`
	SPAStabilizeMS  int `yaml:"spa_stabilize_ms"`
}

type RetriesConfig struct {
	MaxRetries     int `yaml:"max_retries"`
	LocatorRetries int `yaml:"locator_retries"`
}

// BrowserConfig groups the browser-lifecycle knobs: plan/chunk size limits, context refresh
// cadence, whether to index by stable catalog index, and redirect limits.
type BrowserConfig struct {
	MaxPlan                int    `yaml:"max_plan"`
	MaxChunk               int    `yaml:"max_chunk"`
	RefreshInterval        int    `yaml:"browser_refresh_interval"`
	UseFreshContext        bool   `yaml:"use_fresh_context"`
	IndexMode              bool   `yaml:"index_mode"`
	StartURL               string `yaml:"start_url"`
	MaxRedirects           int    `yaml:"max_redirects"`
	Backend                string `yaml:"backend"`
}

type DomainsConfig struct {
	Allowed []string `yaml:"allowed_domains"`
	Blocked []string `yaml:"blocked_domains"`
}

type DebugConfig struct {
	SaveArtifacts bool   `yaml:"save_debug_artifacts"`
	Dir           string `yaml:"debug_dir"`
}

type WorkersConfig struct {
	Pool          int `yaml:"worker_pool"`
	TaskGraceSecs int `yaml:"task_grace_seconds"`
}

// PlannerConfig configures the LLM planning backend: which provider and API key to use, and
// the default model, grouped here as the ambient configuration a running server requires.
type PlannerConfig struct {
	Provider     string `yaml:"provider"`
	AnthropicKey string `yaml:"anthropic_api_key"`
	OpenAIKey    string `yaml:"openai_api_key"`
	Model        string `yaml:"model"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // "json" or "text"
}

// Defaults returns the configuration used as the default for every recognized environment key.
func Defaults() Config {
	return Config{
		Timeouts: TimeoutsConfig{
			ActionMS:       10000,
			NavigateMS:     15000,
			LocatorMS:      7000,
			SPAStabilizeMS: 3000,
		},
		Retries: RetriesConfig{
			MaxRetries:     3,
			LocatorRetries: 3,
		},
		Browser: BrowserConfig{
			MaxPlan:         50,
			MaxChunk:        10,
			RefreshInterval: 50,
			UseFreshContext: false,
			IndexMode:       true,
			MaxRedirects:    10,
			Backend:         "playwright",
		},
		Debug: DebugConfig{
			SaveArtifacts: true,
			Dir:           "runs",
		},
		Workers: WorkersConfig{
			Pool:          4,
			TaskGraceSecs: 300,
		},
		Planner: PlannerConfig{
			Provider: "anthropic",
		},
		Server: ServerConfig{
			Addr:        ":8080",
			MetricsAddr: ":9090",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// envPrefix namespaces every recognized key, e.g. WEBAGENT_ACTION_TIMEOUT_MS.
const envPrefix = "WEBAGENT_"

// Load builds a Config starting from Defaults(), applying an optional YAML overlay file (if
// yamlPath is non-empty and exists), then applying environment variable overrides last — env
// vars are the primary configuration surface; YAML is an additive overlay for settings awkward
// to express as a flat env var (domain lists, logging format).
func Load(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if strings.TrimSpace(yamlPath) != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", yamlPath, err)
			}
		} else {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", yamlPath, err)
			}
		}
	}

	applyEnv(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	intVar(&cfg.Timeouts.ActionMS, "ACTION_TIMEOUT_MS")
	intVar(&cfg.Timeouts.NavigateMS, "NAVIGATE_TIMEOUT_MS")
	intVar(&cfg.Timeouts.LocatorMS, "LOCATOR_TIMEOUT_MS")
	intVar(&cfg.Timeouts.SPAStabilizeMS, "SPA_STABILIZE_MS")
	intVar(&cfg.Retries.MaxRetries, "MAX_RETRIES")
	intVar(&cfg.Retries.LocatorRetries, "LOCATOR_RETRIES")
	intVar(&cfg.Browser.MaxPlan, "MAX_PLAN")
	intVar(&cfg.Browser.MaxChunk, "MAX_CHUNK")
	intVar(&cfg.Browser.RefreshInterval, "BROWSER_REFRESH_INTERVAL")
	boolVar(&cfg.Browser.UseFreshContext, "USE_FRESH_CONTEXT")
	boolVar(&cfg.Browser.IndexMode, "INDEX_MODE")
	stringVar(&cfg.Browser.StartURL, "START_URL")
	intVar(&cfg.Browser.MaxRedirects, "MAX_REDIRECTS")
	csvVar(&cfg.Domains.Allowed, "ALLOWED_DOMAINS")
	csvVar(&cfg.Domains.Blocked, "BLOCKED_DOMAINS")
	boolVar(&cfg.Debug.SaveArtifacts, "SAVE_DEBUG_ARTIFACTS")
	stringVar(&cfg.Debug.Dir, "DEBUG_DIR")
	intVar(&cfg.Workers.Pool, "WORKER_POOL")
	intVar(&cfg.Workers.TaskGraceSecs, "TASK_GRACE_SECONDS")
	stringVar(&cfg.Planner.Provider, "PLANNER_PROVIDER")
	stringVar(&cfg.Planner.AnthropicKey, "ANTHROPIC_API_KEY")
	stringVar(&cfg.Planner.OpenAIKey, "OPENAI_API_KEY")
	stringVar(&cfg.Planner.Model, "PLANNER_MODEL")
	stringVar(&cfg.Server.Addr, "SERVER_ADDR")
	stringVar(&cfg.Server.MetricsAddr, "METRICS_ADDR")
	stringVar(&cfg.Logging.Level, "LOG_LEVEL")
	stringVar(&cfg.Logging.Format, "LOG_FORMAT")
	stringVar(&cfg.Browser.Backend, "BROWSER_BACKEND")
}

func lookup(suffix string) (string, bool) {
	if v, ok := os.LookupEnv(envPrefix + suffix); ok {
		return v, true
	}
	// The two API keys are also recognized in their bare, non-prefixed form since that's the
	// convention the SDKs themselves expect.
	if suffix == "ANTHROPIC_API_KEY" || suffix == "OPENAI_API_KEY" {
		if v, ok := os.LookupEnv(suffix); ok {
			return v, true
		}
	}
	return "", false
}

func stringVar(dst *string, suffix string) {
	if v, ok := lookup(suffix); ok {
		*dst = v
	}
}

func intVar(dst *int, suffix string) {
	if v, ok := lookup(suffix); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			*dst = n
		}
	}
}

func boolVar(dst *bool, suffix string) {
	if v, ok := lookup(suffix); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			*dst = b
		}
	}
}

func csvVar(dst *[]string, suffix string) {
	v, ok := lookup(suffix)
	if !ok {
		return
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	*dst = out
}

// ActionTimeout, NavigateTimeout, LocatorTimeout, SPAStabilize return the configured durations
// as time.Duration, the unit the executor/resilience packages actually consume.
func (c Config) ActionTimeout() time.Duration  { return time.Duration(c.Timeouts.ActionMS) * time.Millisecond }
func (c Config) NavigateTimeout() time.Duration { return time.Duration(c.Timeouts.NavigateMS) * time.Millisecond }
func (c Config) LocatorTimeout() time.Duration { return time.Duration(c.Timeouts.LocatorMS) * time.Millisecond }
func (c Config) SPAStabilize() time.Duration   { return time.Duration(c.Timeouts.SPAStabilizeMS) * time.Millisecond }
func (c Config) TaskGrace() time.Duration      { return time.Duration(c.Workers.TaskGraceSecs) * time.Second }
