// Package main is the entry point for the webagent browser-automation server.
//
// Start the server:
//
//	webagent-server serve --config webagent.yaml
//
// Configuration is primarily environment-variable driven; --config points at an optional YAML
// overlay.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kestrelbrowse/webagent/internal/browsercap"
	"github.com/kestrelbrowse/webagent/internal/config"
	"github.com/kestrelbrowse/webagent/internal/executor"
	"github.com/kestrelbrowse/webagent/internal/httpapi"
	"github.com/kestrelbrowse/webagent/internal/observability"
	"github.com/kestrelbrowse/webagent/internal/orchestrator"
	"github.com/kestrelbrowse/webagent/internal/planner"
	"github.com/kestrelbrowse/webagent/internal/resilience"
	"github.com/kestrelbrowse/webagent/internal/tasks"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "webagent-server",
		Short:        "webagent - browser automation agent server",
		Version:      fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage: true,
	}
	root.AddCommand(buildServeCmd())
	return root
}

func buildServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to an optional YAML configuration overlay")
	return cmd
}

func runServe(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := observability.NewLogger(observability.LogConfig{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	metrics := observability.NewMetrics()
	tracer := observability.NewTracer(observability.TraceConfig{ServiceName: "webagent"})
	defer tracer.Shutdown(context.Background())

	logger.Info(ctx, "starting webagent server", "version", version, "commit", commit, "backend", cfg.Browser.Backend)

	cap, err := browsercap.New(browsercap.Config{
		Backend: browsercap.Backend(cfg.Browser.Backend),
		Playwright: browsercap.PlaywrightConfig{
			Headless: true,
			Timeout:  cfg.ActionTimeout(),
			StartURL: cfg.Browser.StartURL,
		},
		Chromedp: browsercap.ChromedpConfig{
			Timeout: cfg.ActionTimeout(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize browser capability: %w", err)
	}
	defer cap.Close(context.Background())

	exec := executor.New(cap, executor.Config{
		RefreshInterval: cfg.Browser.RefreshInterval,
		StartURL:        cfg.Browser.StartURL,
		Backoff:         resilience.DefaultBackoffPolicy(),
	})

	plannerProvider := planner.Provider(cfg.Planner.Provider)
	llm, err := planner.New(planner.Config{
		Provider: plannerProvider,
		Anthropic: planner.AnthropicConfig{
			APIKey:       cfg.Planner.AnthropicKey,
			DefaultModel: cfg.Planner.Model,
		},
		OpenAI: planner.OpenAIConfig{
			APIKey:       cfg.Planner.OpenAIKey,
			DefaultModel: cfg.Planner.Model,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to initialize planner: %w", err)
	}

	taskMgr := tasks.NewManager(tasks.ManagerConfig{
		Workers:     cfg.Workers.Pool,
		GracePeriod: cfg.TaskGrace(),
	})
	defer taskMgr.Stop()

	runsDir := ""
	if cfg.Debug.SaveArtifacts {
		runsDir = cfg.Debug.Dir
	}

	orch := orchestrator.New(orchestrator.Dependencies{
		Planner:  llm,
		Executor: exec,
		Tasks:    taskMgr,
		RunsDir:  runsDir,
		Logger:   logger,
		Metrics:  metrics,
		Tracer:   tracer,
	})

	server := httpapi.New(cfg.Server.Addr, httpapi.Dependencies{
		Executor:     exec,
		Orchestrator: orch,
		Tasks:        taskMgr,
		Logger:       logger,
	})
	if err := server.Start(); err != nil {
		return fmt.Errorf("failed to start http server: %w", err)
	}

	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	<-ctx.Done()

	logger.Info(context.Background(), "shutdown signal received, stopping gracefully")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}
