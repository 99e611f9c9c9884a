package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"burstminer/config"
	"burstminer/coordinator"
	"burstminer/gpu"
	"burstminer/metrics"
	"burstminer/wallet"

	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "burstminer",
		Usage: "solo GPU-style proof-of-capacity miner for a Burst-compatible wallet",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "config-dir",
				Value: ".",
				Usage: "directory containing Settings-default.toml and an optional Settings.toml",
			},
		},
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run the mining daemon (default)",
				Action: runDaemon,
			},
			{
				Name:  "config-check",
				Usage: "load and validate configuration without starting the pipeline",
				Action: func(c *cli.Context) error {
					cfg, err := config.Load(c.String("config-dir"))
					if err != nil {
						return err
					}
					fmt.Printf("config OK: backend=%s global_work_size=%d wallet_url=%s target_deadline=%d\n",
						cfg.Device.Backend, cfg.Device.GlobalWorkSize, cfg.Work.WalletURL, cfg.Work.TargetDeadlineSeconds)
					return nil
				},
			},
		},
		Action: runDaemon,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("[MINER] %v", err)
	}
}

func runDaemon(c *cli.Context) error {
	cfg, err := config.Load(c.String("config-dir"))
	if err != nil {
		log.Fatalf("[MINER] config: %v", err)
	}

	ledger, err := wallet.OpenBadgerLedger(cfg.Observability.DataDir)
	if err != nil {
		log.Fatalf("[MINER] ledger: %v", err)
	}
	defer ledger.Close()

	metricsServer := metrics.NewServer(cfg.Observability.MetricsListenAddress)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil {
			log.Printf("[MINER] metrics server exited: %v", err)
		}
	}()

	tracker := wallet.NewTracker(cfg.Work.WalletURL, cfg.PollInterval(), cfg.PollInterval(), metricsServer)
	defer tracker.Stop()

	computer := gpu.NewComputer(
		gpu.Backend(cfg.Device.Backend),
		cfg.Device.PlatformID,
		cfg.Device.DeviceID,
		cfg.Device.GlobalWorkSize,
		cfg.Work.Address,
		0,
	)
	source := gpu.NewContinuousNonceSource(computer)
	defer source.Stop()

	submitter := wallet.NewSubmitter(
		cfg.Work.WalletURL,
		cfg.Work.Passphrase,
		cfg.Work.Address,
		cfg.Work.SubmissionRetryNumber,
		cfg.RetryInterval(),
		cfg.PollInterval(),
		ledger,
		metricsServer,
	)
	defer submitter.Stop()

	coord := coordinator.New(tracker.Updates(), source, submitter, metricsServer, coordinator.Config{
		TargetDeadlineSeconds: cfg.Work.TargetDeadlineSeconds,
	})

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if r := recover(); r != nil {
				log.Fatalf("[MINER] panic in control loop: %v\n%s", r, debug.Stack())
			}
		}()
		coord.Run(stop)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("[MINER] shutting down")
	close(stop)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[MINER] metrics server shutdown: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		log.Printf("[MINER] control loop did not exit in time")
	}
	return nil
}
