package cmd

import (
	"context"
	"errors"
	"log"
	httpNet "net/http"
	"os"
	"os/signal"
	"signalcrawler/internal/delivery/http"
	"signalcrawler/internal/repository"
	"signalcrawler/internal/service"
	"signalcrawler/pkg/logger"
	"syscall"

	"github.com/spf13/cobra"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Run the webhook server and the job scheduler",
	Run:   Start,
}

func Start(cmd *cobra.Command, args []string) {

	// Create a context that is canceled on interrupt signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	appDep, err := NewAppDependency(ctx)
	if err != nil {
		log.Fatalf("Failed to create app dependency: %v", err)
	}

	repo := repository.NewRepository(appDep.cfg, appDep.db.DB, appDep.log)

	services, err := service.NewService(
		appDep.cfg,
		appDep.log,
		appDep.clock,
		repo,
		appDep.cache,
		appDep.priceStore,
		appDep.metrics,
	)
	if err != nil {
		log.Fatalf("Failed to create services: %v", err)
	}

	if err := bootstrap(ctx, appDep, services); err != nil {
		log.Fatalf("Failed to bootstrap services: %v", err)
	}

	httpHandler := http.NewHttpAPIHandler(appDep.cfg, appDep.log, appDep.echo, appDep.validator, services, appDep.metrics)
	apiServer := NewHTTPServer(ctx, appDep, httpHandler)
	go func() {
		if err := apiServer.Start(); err != nil && !errors.Is(err, httpNet.ErrServerClosed) {
			log.Fatalf("Failed to start HTTP server: %v", err)
		}
	}()

	services.SchedulerService.Start(ctx)

	// Wait for shutdown signal
	<-ctx.Done()
	log.Println("Shutting down gracefully...")

	if err := apiServer.Stop(); err != nil {
		log.Fatalf("Failed to stop HTTP server: %v", err)
	}

	services.SchedulerService.Stop()

	if err := appDep.Close(); err != nil {
		log.Fatalf("Failed to close app dependency: %v", err)
	}
}

// bootstrap restores state persisted by a previous run before any candle is
// accepted. Only the guardian is fatal; the rest degrade to a cold start.
func bootstrap(ctx context.Context, appDep *AppDependency, services *service.Service) error {
	if n, err := services.MarketService.RestoreLevels(ctx); err != nil {
		appDep.log.WarnContext(ctx, "Failed to restore market levels", logger.ErrorField(err))
	} else {
		appDep.log.InfoContext(ctx, "Restored market levels", logger.IntField("days", n))
	}

	if err := services.Guardian.Init(ctx); err != nil {
		return err
	}

	if n, err := services.OutcomeTracker.Resume(ctx); err != nil {
		appDep.log.WarnContext(ctx, "Failed to resume pending recommendations", logger.ErrorField(err))
	} else {
		appDep.log.InfoContext(ctx, "Resumed pending recommendations", logger.IntField("pending", n))
	}

	if appDep.cfg.YahooFinance.Warmup {
		n, err := services.PipelineService.Warmup(ctx)
		if err != nil {
			appDep.log.WarnContext(ctx, "Warm-up interrupted", logger.ErrorField(err))
		}
		appDep.log.InfoContext(ctx, "Warm-up finished", logger.IntField("candles", n))
	}
	return nil
}
