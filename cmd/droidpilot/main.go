// Command droidpilot runs the device agent against a configured model
// provider. On a workstation there is no accessibility service to drive, so
// the binary wires in a scripted device; the agent packages are identical to
// what runs on-device.
//
// Usage:
//
//	export OPENAI_API_KEY="your-api-key"
//	droidpilot -config config.yaml "open settings and enable wifi"
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/droidpilot/droidpilot/pkg/agent"
	"github.com/droidpilot/droidpilot/pkg/config"
	"github.com/droidpilot/droidpilot/pkg/device"
	"github.com/droidpilot/droidpilot/pkg/provider"
	"github.com/droidpilot/droidpilot/pkg/store"
	"github.com/droidpilot/droidpilot/pkg/tool"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	setupLogging(cfg.LogLevel)

	goal := strings.TrimSpace(strings.Join(flag.Args(), " "))
	if goal == "" {
		return fmt.Errorf("usage: droidpilot [-config path] <goal>")
	}

	adapter, err := provider.ForKind(cfg.Provider)
	if err != nil {
		return err
	}
	client := provider.NewClient(cfg.Agent.RequestTimeout, cfg.Agent.RequestsPerMinute)
	caller := &agent.ProviderCaller{
		Client:  client,
		Adapter: adapter,
		Model:   cfg.Model,
		APIKey:  cfg.Keys.ForProvider(cfg.Provider),
	}

	st, err := store.New(cfg.Store.Dir)
	if err != nil {
		return err
	}

	dev := device.NewScripted(1080, 2400)
	caps := tool.Capabilities{Accessibility: dev, App: dev}

	loop := agent.New(agent.Config{
		MaxAttempts: cfg.Agent.MaxAttempts,
		BackoffBase: cfg.Agent.BackoffBase,
	}, caller, tool.DeviceRegistry(), caps, st, consoleObserver{})

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	outcome := loop.Run(ctx, goal)
	slog.Info("run finished",
		"status", outcome.Status,
		"conversation", outcome.ConversationID,
		"elapsed", outcome.Elapsed.Round(time.Millisecond))
	if outcome.Status != agent.StatusSuccess {
		return fmt.Errorf("%s: %s", outcome.Status, outcome.Message)
	}
	fmt.Println(outcome.Message)
	return nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

// consoleObserver mirrors agent progress to stdout.
type consoleObserver struct{}

func (consoleObserver) Thinking(text string) {
	if text != "" {
		fmt.Println(text)
	}
}

func (consoleObserver) ToolExecuted(name, result string, elapsed time.Duration) {
	fmt.Printf("  [%s] %s (%s)\n", name, result, elapsed.Round(time.Millisecond))
}

func (consoleObserver) Finished(agent.Outcome) {}
