package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/pricecast-to/pricecast-go/pkg/config"
	"github.com/pricecast-to/pricecast-go/pkg/pipeline"
	"github.com/pricecast-to/pricecast-go/pkg/scheduler"
	"github.com/pricecast-to/pricecast-go/utils"
)

func main() {
	configPath := flag.String("config", "", "path to YAML configuration file")
	flag.Usage = usage
	flag.Parse()

	command := "run"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := utils.InitLogger(utils.LoggingOptions{
		Level:    cfg.Logging.Level,
		Format:   cfg.Logging.Format,
		Output:   cfg.Logging.Output,
		FilePath: cfg.Logging.FilePath,
	}); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logger := utils.GetLogger()

	runner, err := pipeline.NewRunner(cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize pipeline: %v", err)
	}
	defer runner.Close()

	switch command {
	case "run":
		runOnce(runner, logger)
	case "schedule":
		runScheduled(cfg, runner, logger)
	case "runs":
		listRuns(runner)
	default:
		usage()
		os.Exit(2)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `Usage: pricecast [flags] <command>

Commands:
  run       execute one full pipeline run (default)
  schedule  keep running on the configured cron schedule
  runs      list recent runs

Flags:
`)
	flag.PrintDefaults()
}

func runOnce(runner *pipeline.Runner, logger *utils.Logger) {
	ctx, cancel := signalContext()
	defer cancel()

	result, err := runner.Run(ctx)
	if err != nil {
		logger.Fatal("pipeline run failed", err)
	}

	champion := result.Leaderboard.Champion()
	fmt.Printf("Run %s complete.\n", result.RunID)
	fmt.Printf("Champion: %s (RMSE %.1f, R² %.4f, MAE %.1f)\n",
		champion.Model, champion.RMSE, champion.R2, champion.MAE)
	fmt.Printf("Report: %s\n", result.ReportPath)
}

func runScheduled(cfg *config.Config, runner *pipeline.Runner, logger *utils.Logger) {
	if cfg.Schedule.Cron == "" {
		log.Fatalf("schedule command requires schedule.cron in the configuration")
	}

	ctx, cancel := signalContext()
	defer cancel()

	svc, err := scheduler.NewService(runner, cfg.Schedule.Cron, logger)
	if err != nil {
		logger.Fatal("failed to start scheduler", err)
	}
	if err := svc.Start(ctx); err != nil {
		logger.Fatal("failed to start scheduler", err)
	}

	<-ctx.Done()
	svc.Stop()
}

func listRuns(runner *pipeline.Runner) {
	runs, err := runner.ListRuns(20)
	if err != nil {
		log.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet.")
		return
	}

	for _, run := range runs {
		finished := "-"
		if run.FinishedAt != nil {
			finished = run.FinishedAt.Format("2006-01-02 15:04:05")
		}
		fmt.Printf("%s  %-9s  started %s  finished %s  champion %s\n",
			run.ID, run.Status, run.StartedAt.Format("2006-01-02 15:04:05"), finished, run.ChampionModel)
	}
}

// signalContext returns a context cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	return ctx, cancel
}
