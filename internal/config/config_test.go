package config

import (
	"os"
	"testing"
)

func TestDefaults_MatchEnvTable(t *testing.T) {
	d := Defaults()
	if d.Timeouts.ActionMS != 10000 {
		t.Errorf("ActionMS = %d, want 10000", d.Timeouts.ActionMS)
	}
	if d.Timeouts.NavigateMS != 15000 {
		t.Errorf("NavigateMS = %d, want 15000", d.Timeouts.NavigateMS)
	}
	if d.Timeouts.LocatorMS != 7000 {
		t.Errorf("LocatorMS = %d, want 7000", d.Timeouts.LocatorMS)
	}
	if d.Timeouts.SPAStabilizeMS != 3000 {
		t.Errorf("SPAStabilizeMS = %d, want 3000", d.Timeouts.SPAStabilizeMS)
	}
	if d.Retries.MaxRetries != 3 || d.Retries.LocatorRetries != 3 {
		t.Errorf("retries = %+v, want 3/3", d.Retries)
	}
	if d.Browser.MaxPlan != 50 || d.Browser.MaxChunk != 10 {
		t.Errorf("plan/chunk = %+v, want 50/10", d.Browser)
	}
	if d.Browser.RefreshInterval != 50 {
		t.Errorf("RefreshInterval = %d, want 50", d.Browser.RefreshInterval)
	}
	if d.Browser.UseFreshContext != false || d.Browser.IndexMode != true {
		t.Errorf("UseFreshContext/IndexMode = %v/%v, want false/true", d.Browser.UseFreshContext, d.Browser.IndexMode)
	}
	if d.Browser.MaxRedirects != 10 {
		t.Errorf("MaxRedirects = %d, want 10", d.Browser.MaxRedirects)
	}
	if d.Debug.SaveArtifacts != true {
		t.Errorf("SaveArtifacts = %v, want true", d.Debug.SaveArtifacts)
	}
	if d.Workers.Pool != 4 || d.Workers.TaskGraceSecs != 300 {
		t.Errorf("workers = %+v, want 4/300", d.Workers)
	}
}

func TestLoad_EnvOverridesDefaults(t *testing.T) {
	t.Setenv("WEBAGENT_MAX_RETRIES", "7")
	t.Setenv("WEBAGENT_USE_FRESH_CONTEXT", "true")
	t.Setenv("WEBAGENT_ALLOWED_DOMAINS", "example.com, example.org")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retries.MaxRetries != 7 {
		t.Errorf("MaxRetries = %d, want 7", cfg.Retries.MaxRetries)
	}
	if !cfg.Browser.UseFreshContext {
		t.Errorf("expected UseFreshContext=true")
	}
	if len(cfg.Domains.Allowed) != 2 || cfg.Domains.Allowed[0] != "example.com" || cfg.Domains.Allowed[1] != "example.org" {
		t.Errorf("unexpected allowed domains: %v", cfg.Domains.Allowed)
	}
}

func TestLoad_MissingYAMLPathIsNotAnError(t *testing.T) {
	if _, err := Load("/nonexistent/path/webagent.yaml"); err != nil {
		t.Fatalf("a missing optional overlay file should not be an error: %v", err)
	}
}

func TestLoad_YAMLOverlayAppliesBeforeEnv(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "webagent-*.yaml")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	if _, err := f.WriteString("retries:\n  max_retries: 9\n"); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}
	f.Close()

	t.Setenv("WEBAGENT_MAX_RETRIES", "2")
	cfg, err := Load(f.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Retries.MaxRetries != 2 {
		t.Errorf("expected env (2) to win over yaml overlay (9), got %d", cfg.Retries.MaxRetries)
	}
}

func TestLoad_BareAPIKeyEnvVarsAreRecognized(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Planner.AnthropicKey != "sk-ant-test" {
		t.Errorf("expected bare ANTHROPIC_API_KEY to be picked up, got %q", cfg.Planner.AnthropicKey)
	}
}
