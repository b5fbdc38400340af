package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/dmateus/mordomo/pkg/cmd"
	"github.com/dmateus/mordomo/pkg/engine"
	"github.com/dmateus/mordomo/pkg/rules"
	"github.com/dmateus/mordomo/pkg/services"
	"github.com/dmateus/mordomo/pkg/web"
)

// App owns the wiring and lifecycle of every engine component inside one
// process: store, registry, event bus, worker, scheduler and HTTP API.
type App struct {
	workerID    string
	databaseURL string
	eventBus    string
	port        int
	logger      *slog.Logger
}

func NewApp(workerID, databaseURL, eventBusProvider string, port int, logger *slog.Logger) *App {
	return &App{
		workerID:    workerID,
		databaseURL: databaseURL,
		eventBus:    eventBusProvider,
		port:        port,
		logger:      logger,
	}
}

func (a *App) Run(ctx context.Context) error {
	store := cmd.NewPersistence(ctx, a.logger, a.databaseURL)
	defer func() {
		if err := store.Close(ctx); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close rule store", "error", err)
		}
	}()

	eventBus := cmd.NewEventBus(a.eventBus, a.logger)
	defer func() {
		if err := eventBus.Close(); err != nil {
			a.logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
		}
	}()

	executorRegistry := cmd.NewRegistry(a.logger)

	ruleRegistry := rules.NewRegistry(store, a.logger)
	ruleRegistry.Load(ctx, "")

	ledger := rules.NewLedger(rules.DefaultLedgerCap)

	executor := engine.NewExecutor(ruleRegistry, executorRegistry, ledger, a.logger)
	matcher := engine.NewMatcher(ruleRegistry, eventBus, a.logger)
	scheduler := engine.NewScheduler(ruleRegistry, eventBus, a.logger)
	worker := engine.NewWorker(a.workerID, executor, eventBus, a.logger)

	if err := worker.Start(ctx); err != nil {
		return err
	}

	if err := scheduler.Start(ctx); err != nil {
		return err
	}
	defer scheduler.Stop()

	ruleService := services.NewRuleService(ruleRegistry, ledger, executor, scheduler, store, a.logger)
	handlers := web.NewAPIHandlers(ruleService, matcher, a.logger)
	app := web.NewApp(handlers)

	errCh := make(chan error, 1)

	go func() {
		errCh <- app.Listen(":" + strconv.Itoa(a.port))
	}()

	a.logger.InfoContext(ctx, "Mordomo started", "port", a.port)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
		a.logger.InfoContext(ctx, "Shutting down...")

		return app.Shutdown()
	case <-ctx.Done():
		return app.Shutdown()
	}
}
