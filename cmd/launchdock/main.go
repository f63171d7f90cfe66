package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"launchdock/internal/adapter/llm"
	"launchdock/internal/adapter/notify"
	"launchdock/internal/adapter/scrape"
	"launchdock/internal/adapter/store"
	"launchdock/internal/adapter/tool"
	"launchdock/internal/infra/config"
	"launchdock/internal/infra/logger"
	"launchdock/internal/infra/tracer"
	"launchdock/internal/usecase"
	"launchdock/internal/usecase/scheduling"
)

func main() {
	if len(os.Args) < 2 {
		showUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "--help", "-h", "help":
		showUsage()
	case "run":
		if len(os.Args) < 3 {
			fmt.Fprintln(os.Stderr, "Usage: launchdock run <app-id>")
			os.Exit(1)
		}
		if err := runOnce(os.Args[2]); err != nil {
			fmt.Fprintf(os.Stderr, "run: %v\n", err)
			os.Exit(1)
		}
	case "models":
		if err := runModels(); err != nil {
			fmt.Fprintf(os.Stderr, "models: %v\n", err)
			os.Exit(1)
		}
	case "queue":
		if err := runQueue(); err != nil {
			fmt.Fprintf(os.Stderr, "queue: %v\n", err)
			os.Exit(1)
		}
	case "daemon":
		if err := runDaemon(); err != nil {
			fmt.Fprintf(os.Stderr, "daemon: %v\n", err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\nRun 'launchdock --help' for usage information.\n", os.Args[1])
		os.Exit(1)
	}
}

func showUsage() {
	fmt.Println(`launchdock - agent execution and request queue

USAGE:
    launchdock COMMAND [ARGS]

COMMANDS:
    run <app-id>   Execute the agent configured for an app and print its reply
    models         Fetch the model list from the configured backend
    queue          List recent queue items
    daemon         Run the maintenance scheduler until interrupted

FLAGS:
    -h, --help       Show this help message
    --config PATH    Config file path (default: ./launchdock.yaml)`)
}

func configPath() string {
	for i, arg := range os.Args {
		if arg == "--config" && i+1 < len(os.Args) {
			return os.Args[i+1]
		}
		if strings.HasPrefix(arg, "--config=") {
			return strings.TrimPrefix(arg, "--config=")
		}
	}
	if p := os.Getenv("LAUNCHDOCK_CONFIG"); p != "" {
		return p
	}
	return "launchdock.yaml"
}

// app bundles the wired components behind each subcommand.
type app struct {
	cfg          *config.Config
	log          *slog.Logger
	store        *store.Store
	client       *llm.Client
	queue        *usecase.QueueManager
	orchestrator *usecase.Orchestrator
	cleanup      func()
}

func buildApp(ctx context.Context) (*app, error) {
	// 1. Config
	cfg, err := config.Load(configPath())
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	// 2. Logger & Tracer
	log, logCloser, err := logger.New(cfg.Logger)
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	tracerShutdown, err := tracer.Setup(ctx, cfg.Tracer)
	if err != nil {
		logCloser()
		return nil, fmt.Errorf("tracer: %w", err)
	}

	// 3. Store
	st, err := store.New(cfg.Database.Path)
	if err != nil {
		tracerShutdown(ctx)
		logCloser()
		return nil, fmt.Errorf("store: %w", err)
	}

	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Error("store close error", "error", err)
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerShutdown(shutdownCtx); err != nil {
			log.Error("tracer shutdown error", "error", err)
		}
		logCloser()
	}

	// 4. Collaborators
	scraper := scrape.New(cfg.Scraper, log)

	notifier, err := notify.FromConfig(st, cfg.Notifications, log)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("notifications: %w", err)
	}

	executor := tool.NewExecutor(notifier, scraper, 0, log)
	client := llm.NewClient(st, log)

	// 5. Queue manager, sized from stored settings
	settings, err := st.AISettings(ctx)
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("settings: %w", err)
	}
	queue := usecase.NewQueueManager(st, settings.MaxConcurrentAgents, log)

	// 6. Orchestrator
	orchestrator := usecase.NewOrchestrator(usecase.OrchestratorDeps{
		Settings: st,
		Chat:     client,
		Tools:    executor,
		Scraper:  scraper,
		Queue:    queue,
		Logger:   log,
	}, cfg.Queue)

	return &app{
		cfg:          cfg,
		log:          log,
		store:        st,
		client:       client,
		queue:        queue,
		orchestrator: orchestrator,
		cleanup:      cleanup,
	}, nil
}

func runOnce(appIDArg string) error {
	appID, err := strconv.ParseInt(appIDArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid app id %q", appIDArg)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	agent, err := a.store.GetAgentApp(ctx, appID)
	if err != nil {
		return fmt.Errorf("load agent %d: %w", appID, err)
	}

	result, err := a.orchestrator.ExecuteAgent(ctx, agent)
	if err != nil {
		return err
	}
	fmt.Println(result)
	return nil
}

func runModels() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	models, err := a.client.FetchModels(ctx)
	if err != nil {
		return err
	}
	for _, m := range models {
		fmt.Println(m.ID)
	}
	return nil
}

func runQueue() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	items, err := a.store.QueueItems(ctx, 0)
	if err != nil {
		return err
	}
	for _, item := range items {
		fmt.Printf("%d\t%s\t%s\t%s\n",
			item.ID, item.Status, item.AgentName, item.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// settingsRefreshInterval is how often the daemon re-reads the stored
// admission cap.
const settingsRefreshInterval = 30 * time.Second

func runDaemon() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, err := buildApp(ctx)
	if err != nil {
		return err
	}
	defer a.cleanup()

	scheduler := scheduling.NewScheduler(a.log)
	scheduler.RegisterAction(scheduling.ActionQueueReconcile, func(ctx context.Context) error {
		_, err := a.queue.Reconcile(ctx, a.cfg.Queue.ProcessingDeadline)
		return err
	})
	scheduler.RegisterAction(scheduling.ActionQueueCleanup, func(ctx context.Context) error {
		_, err := a.store.ClearFinished(ctx)
		return err
	})
	scheduler.RegisterAction(scheduling.ActionModelRefresh, func(ctx context.Context) error {
		_, err := a.client.FetchModels(ctx)
		return err
	})

	tasks := []struct {
		name     string
		schedule string
		action   scheduling.ScheduledAction
	}{
		{"queue-reconcile", a.cfg.Scheduler.QueueReconcile, scheduling.ActionQueueReconcile},
		{"queue-cleanup", a.cfg.Scheduler.QueueCleanup, scheduling.ActionQueueCleanup},
		{"model-refresh", a.cfg.Scheduler.ModelRefresh, scheduling.ActionModelRefresh},
	}
	for _, t := range tasks {
		if t.schedule == "" {
			continue
		}
		if err := scheduler.AddTask(scheduling.ScheduledTask{
			Name:     t.name,
			Schedule: t.schedule,
			Action:   t.action,
		}); err != nil {
			return err
		}
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	a.log.Info("launchdock daemon started",
		"admission", a.cfg.Queue.Admission,
		"processing_deadline", a.cfg.Queue.ProcessingDeadline,
	)

	g, ctx := errgroup.WithContext(ctx)

	// Track admission-cap changes made through the settings panel.
	g.Go(func() error {
		ticker := time.NewTicker(settingsRefreshInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return nil
			case <-ticker.C:
				settings, err := a.store.AISettings(ctx)
				if err != nil {
					a.log.Warn("settings refresh failed", "error", err)
					continue
				}
				a.queue.SetMaxConcurrent(settings.MaxConcurrentAgents)
			}
		}
	})

	return g.Wait()
}
