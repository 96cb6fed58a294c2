// Caio is a personal assistant agent that lives in Telegram.
//
// It classifies each inbound message into intents (reminders, calendar,
// email, web search, weather, files, chat), runs the matching skills,
// and proactively nudges the user about imminent calendar events and
// hot weather. Configuration is loaded from a single YAML file
// discovered automatically (see [config.DefaultSearchPaths]).
//
// Usage:
//
//	caio serve               Start the agent
//	caio ask <message>       Process a single message (for testing)
//	caio reminders           Show the recent reminder journal
//	caio version             Print version and build information
//	caio -o json version     Output version information as JSON
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/caioagent/caio/internal/buildinfo"
	"github.com/caioagent/caio/internal/calendar"
	"github.com/caioagent/caio/internal/config"
	"github.com/caioagent/caio/internal/email"
	"github.com/caioagent/caio/internal/fetch"
	"github.com/caioagent/caio/internal/files"
	"github.com/caioagent/caio/internal/intent"
	"github.com/caioagent/caio/internal/llm"
	"github.com/caioagent/caio/internal/memory"
	"github.com/caioagent/caio/internal/monitor"
	"github.com/caioagent/caio/internal/outbox"
	"github.com/caioagent/caio/internal/router"
	"github.com/caioagent/caio/internal/scheduler"
	"github.com/caioagent/caio/internal/search"
	"github.com/caioagent/caio/internal/telegram"
	"github.com/caioagent/caio/internal/weather"
)

// main is intentionally minimal. It constructs the OS-level environment
// (context, stdio, argv) and delegates immediately to [run]. This keeps
// os.Exit, os.Stdout, and os.Args out of the application logic so that
// the full startup-to-shutdown lifecycle can be driven from tests.
func main() {
	ctx := context.Background()

	if err := run(ctx, os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "%s\n", err)
		os.Exit(1)
	}
}

// run is the real entry point for the caio command. Arguments are
// parsed by hand: the flag package relies on package-level globals,
// which makes it impossible to call run() concurrently from tests, and
// the argument surface here is small.
func run(ctx context.Context, stdout io.Writer, stderr io.Writer, args []string) error {
	var configPath string
	var outputFmt string // "text" (default) or "json"
	var command string
	var cmdArgs []string

	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "-config" && i+1 < len(args):
			configPath = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-config="):
			configPath = strings.TrimPrefix(args[i], "-config=")
		case (args[i] == "-o" || args[i] == "--output") && i+1 < len(args):
			outputFmt = args[i+1]
			i++
		case strings.HasPrefix(args[i], "-o="):
			outputFmt = strings.TrimPrefix(args[i], "-o=")
		case strings.HasPrefix(args[i], "--output="):
			outputFmt = strings.TrimPrefix(args[i], "--output=")
		case args[i] == "-h" || args[i] == "-help" || args[i] == "--help":
			return printUsage(stdout)
		case !strings.HasPrefix(args[i], "-") && command == "":
			command = args[i]
		default:
			if command != "" {
				cmdArgs = append(cmdArgs, args[i])
			} else {
				return fmt.Errorf("unknown flag: %s", args[i])
			}
		}
	}

	if outputFmt == "" {
		outputFmt = "text"
	}
	if outputFmt != "text" && outputFmt != "json" {
		return fmt.Errorf("unknown output format: %q (expected text or json)", outputFmt)
	}

	switch command {
	case "serve":
		return runServe(ctx, stdout, configPath)
	case "ask":
		if len(cmdArgs) == 0 {
			return fmt.Errorf("usage: caio ask <message>")
		}
		return runAsk(ctx, stdout, configPath, cmdArgs)
	case "reminders":
		return runReminders(stdout, configPath)
	case "version":
		return runVersion(stdout, outputFmt)
	case "":
		return printUsage(stdout)
	default:
		return fmt.Errorf("unknown command: %s", command)
	}
}

// runVersion prints build metadata in the requested output format.
func runVersion(w io.Writer, outputFmt string) error {
	info := buildinfo.Info()
	if outputFmt == "json" {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}
	fmt.Fprintln(w, buildinfo.String())
	for _, k := range []string{"version", "git_commit", "build_time", "go_version", "os", "arch"} {
		if v, ok := info[k]; ok {
			fmt.Fprintf(w, "  %-12s %s\n", k+":", v)
		}
	}
	return nil
}

// printUsage writes the top-level help text to w.
func printUsage(w io.Writer) error {
	fmt.Fprintln(w, "Caio - Personal Assistant Agent")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: caio [flags] <command> [args]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve        Start the agent")
	fmt.Fprintln(w, "  ask          Process a single message (for testing)")
	fmt.Fprintln(w, "  reminders    Show the recent reminder journal")
	fmt.Fprintln(w, "  version      Show version information")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "  -config <path>    Path to config file (default: auto-discover)")
	fmt.Fprintln(w, "  -o, --output fmt  Output format: text (default) or json")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Config search order:")
	fmt.Fprintf(w, "  %s\n", strings.Join(config.DefaultSearchPaths(), ", "))
	return nil
}

// runServe is the primary operating mode: it loads config, opens the
// memory file and reminder journal, wires the skills into the
// dispatcher, and runs the outbox, reminder engine, proactive monitor,
// and Telegram bridge until a shutdown signal arrives.
func runServe(ctx context.Context, stdout io.Writer, configPath string) error {
	logger := newLogger(stdout, slog.LevelInfo)
	logger.Info("starting Caio", "version", buildinfo.Version, "commit", buildinfo.GitCommit, "built", buildinfo.BuildTime)

	cfg, cfgPath, err := loadConfig(configPath)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config %s: %w", cfgPath, err)
	}

	// Reconfigure the logger now that the desired level is known.
	if cfg.LogLevel != "" {
		level, err := config.ParseLogLevel(cfg.LogLevel)
		if err != nil {
			return fmt.Errorf("invalid config %s: %w", cfgPath, err)
		}
		logger = newLogger(stdout, level)
	}
	logger.Info("config loaded", "path", cfgPath)

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Chat transport and outbox. Everything that talks to the user
	// goes through the outbox's single consumer.
	tg := telegram.NewClient(cfg.Telegram.Token, cfg.Telegram.PollTimeoutSec, logger)
	out := outbox.New(tg.Send, logger)

	mem := memory.Open(filepath.Join(cfg.DataDir, "memory.json"), logger)

	// The journal is an audit trail; losing it degrades the
	// "reminders" subcommand, not the agent.
	var journal *scheduler.Journal
	journal, err = scheduler.OpenJournal(filepath.Join(cfg.DataDir, "caio.db"))
	if err != nil {
		logger.Error("reminder journal unavailable", "error", err)
		journal = nil
	} else {
		defer journal.Close()
	}

	engine := scheduler.New(out, journal, logger)

	llmClient, classifier := buildBrain(cfg, logger)

	var cal *calendar.Client
	if cfg.Calendar.Configured() {
		cal, err = calendar.New(cfg.Calendar)
		if err != nil {
			return fmt.Errorf("calendar: %w", err)
		}
		logger.Info("calendar configured", "url", cfg.Calendar.URL)
	}

	var inbox *email.Client
	if cfg.Email.Configured() {
		inbox = email.NewClient(cfg.Email, logger)
		defer inbox.Close()
		logger.Info("email configured", "host", cfg.Email.Host)
	}

	var searcher *search.Client
	if cfg.Search.Configured() {
		searcher = search.NewClient(cfg.Search.BraveAPIKey)
		logger.Info("web search configured")
	}

	wthr := weather.NewClient(cfg.Weather.BaseURL)

	var workspace *files.Workspace
	if cfg.Workspace.Path != "" {
		workspace = files.New(cfg.Workspace.Path)
		logger.Info("workspace configured", "path", cfg.Workspace.Path)
	}

	var calSource monitor.EventSource
	if cal != nil {
		calSource = cal
	}
	watch := monitor.New(calSource, wthr, mem, out, logger)
	if cfg.Telegram.OwnerChatID != 0 {
		watch.SetRecipient(cfg.Telegram.OwnerChatID)
	}

	dispatcherCfg := router.Config{
		AgentName:  cfg.AgentName,
		Classifier: classifier,
		LLM:        llmClient,
		Memory:     mem,
		Scheduler:  engine,
		Weather:    wthr,
		Mail:       out,
		Logger:     logger,
	}
	if cal != nil {
		dispatcherCfg.Calendar = cal
	}
	if inbox != nil {
		dispatcherCfg.Email = inbox
	}
	if searcher != nil {
		dispatcherCfg.Search = searcher
		dispatcherCfg.Fetcher = fetch.New()
	}
	if workspace != nil {
		dispatcherCfg.Files = workspace
	}
	dispatcher := router.New(dispatcherCfg)

	bridge := telegram.NewBridge(telegram.BridgeConfig{
		Client:     tg,
		Dispatcher: dispatcher,
		Recipients: watch,
		Mail:       out,
		Prefs:      mem,
		AgentName:  cfg.AgentName,
		Logger:     logger,
	})

	var wg sync.WaitGroup
	for _, loop := range []func(context.Context){
		out.Run,
		engine.Run,
		watch.Run,
		bridge.Start,
	} {
		wg.Add(1)
		go func(f func(context.Context)) {
			defer wg.Done()
			f(ctx)
		}(loop)
	}

	logger.Info("Caio is up", "agent", cfg.AgentName)
	<-ctx.Done()
	logger.Info("shutdown signal received")
	wg.Wait()
	logger.Info("goodbye")
	return nil
}

// runAsk processes a single message through the full dispatcher with
// replies printed to stdout. Useful for smoke tests without Telegram.
func runAsk(ctx context.Context, stdout io.Writer, configPath string, args []string) error {
	logger := newLogger(io.Discard, slog.LevelInfo)

	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	mem := memory.Open(filepath.Join(cfg.DataDir, "memory.json"), logger)
	llmClient, classifier := buildBrain(cfg, logger)

	mail := &printMailbox{w: stdout}
	dispatcher := router.New(router.Config{
		AgentName:  cfg.AgentName,
		Classifier: classifier,
		LLM:        llmClient,
		Memory:     mem,
		Scheduler:  scheduler.New(mail, nil, logger),
		Weather:    weather.NewClient(cfg.Weather.BaseURL),
		Mail:       mail,
		Logger:     logger,
	})

	askCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	dispatcher.HandleMessage(askCtx, router.Inbound{ChatID: 1, Text: strings.Join(args, " ")})
	return nil
}

// runReminders prints the recent reminder journal.
func runReminders(stdout io.Writer, configPath string) error {
	cfg, _, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	journal, err := scheduler.OpenJournal(filepath.Join(cfg.DataDir, "caio.db"))
	if err != nil {
		return fmt.Errorf("open reminder journal: %w", err)
	}
	defer journal.Close()

	entries, err := journal.Recent(20)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintln(stdout, "No reminders recorded yet.")
		return nil
	}

	for _, e := range entries {
		when := e.FireAt.Local().Format("2006-01-02 15:04")
		if e.Kind == scheduler.KindDaily {
			when = "daily at " + e.TimeOfDay
		}
		fmt.Fprintf(stdout, "%-10s %-20s %s\n", e.State, when, e.Message)
	}
	return nil
}

// buildBrain creates the LLM client and classifier. Without an API key
// the agent still runs: every message becomes a chat intent answered
// by a canned reply.
func buildBrain(cfg *config.Config, logger *slog.Logger) (llm.Client, router.Classifier) {
	if cfg.LLM.APIKey == "" {
		logger.Warn("no LLM API key configured, intent classification disabled")
		return nil, chatOnlyClassifier{}
	}
	client := llm.NewOpenAIClient(cfg.LLM.BaseURL, cfg.LLM.APIKey, cfg.LLM.Model, cfg.LLM.Temperature, logger)
	return client, intent.NewLLMClassifier(client, logger)
}

// chatOnlyClassifier is the degraded mode used when no LLM is
// configured.
type chatOnlyClassifier struct{}

func (chatOnlyClassifier) Classify(context.Context, string) []intent.Intent {
	return []intent.Intent{{Action: intent.ActionChat}}
}

// printMailbox prints outbound messages instead of sending them.
type printMailbox struct {
	w io.Writer
}

func (p *printMailbox) Enqueue(m outbox.Message) bool {
	fmt.Fprintln(p.w, m.Text)
	return true
}

func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: config.ReplaceLogLevelNames,
	}))
}

// loadConfig locates and parses the YAML configuration file. If
// explicit is non-empty, that exact path is used (and must exist).
func loadConfig(explicit string) (*config.Config, string, error) {
	cfgPath, err := config.FindConfig(explicit)
	if err != nil {
		return nil, "", err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, cfgPath, fmt.Errorf("load config %s: %w", cfgPath, err)
	}

	return cfg, cfgPath, nil
}
