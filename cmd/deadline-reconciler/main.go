// Command deadline-reconciler expires elapsed payment and revision deadlines on a
// cron schedule.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"permit-portal-api/config"
	"permit-portal-api/services"

	"github.com/robfig/cron/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

func main() {
	cmd := &cli.Command{
		Name:  "deadline-reconciler",
		Usage: "Move submissions whose payment or revision deadline has elapsed",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "once",
				Usage: "run a single pass and exit",
			},
			&cli.StringFlag{
				Name:    "schedule",
				Usage:   "cron expression; defaults to workflow.reconcile_cron",
				Sources: cli.EnvVars("RECONCILE_SCHEDULE"),
			},
			&cli.BoolFlag{
				Name:  "force",
				Usage: "run even when workflow.reconcile_enabled is false",
			},
		},
		Action: run,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.Run(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, cmd *cli.Command) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	logger, logFile := config.InitLogging(cfg.Logging)
	if logFile != nil {
		defer logFile.Close()
	}
	defer logger.Sync()

	if !cfg.Workflow.ReconcileEnabled && !cmd.Bool("force") {
		logger.Info("deadline reconciliation disabled; set workflow.reconcile_enabled or pass --force")
		return nil
	}

	shutdownTracing, err := config.InitTracing(ctx, cfg.Tracing)
	if err != nil {
		return err
	}
	defer shutdownTracing(context.Background())

	container, err := services.NewContainer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer container.Close()

	if cmd.Bool("once") {
		_, err := container.Reconciler.Reconcile(ctx)
		return err
	}

	schedule := cmd.String("schedule")
	if schedule == "" {
		schedule = cfg.Workflow.ReconcileCron
	}

	c := cron.New()
	_, err = c.AddFunc(schedule, func() {
		if _, err := container.Reconciler.Reconcile(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("deadline reconciliation failed", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", schedule, err)
	}

	logger.Info("deadline reconciler started", zap.String("schedule", schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	logger.Info("deadline reconciler stopped")
	return nil
}
