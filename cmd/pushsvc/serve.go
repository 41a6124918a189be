package main

import (
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v2"

	"pushsvc/internal/app"
	"pushsvc/internal/cache"
	"pushsvc/internal/queue"
	"pushsvc/internal/redis"
	transport "pushsvc/internal/transport/http"
	"pushsvc/internal/worker"
)

var cmdServe = &cli.Command{
	Name:  "serve",
	Usage: "Run the HTTP API",
	Flags: []cli.Flag{
		&cli.BoolFlag{
			Name:  "with-worker",
			Usage: "Also consume the notification stream in this process",
		},
	},
	Action: runServe,
}

var cmdWorker = &cli.Command{
	Name:   "worker",
	Usage:  "Consume notification events and push them to subscribers",
	Action: runWorker,
}

func runServe(c *cli.Context) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	if c.Bool("with-worker") {
		stopWorker, err := startWorker(c, a)
		if err != nil {
			return err
		}
		defer stopWorker()
	}

	return transport.Run(c.Context, a)
}

func runWorker(c *cli.Context) error {
	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	stop, err := startWorker(c, a)
	if err != nil {
		return err
	}
	defer stop()

	<-c.Context.Done()
	return nil
}

func startWorker(c *cli.Context, a *app.App) (func(), error) {
	rc, err := redis.Connect(c.Context, a.Config.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	hostname, _ := os.Hostname()
	cfg := worker.DefaultManagerConfig()
	cfg.WorkerCount = a.Config.WorkerCount
	cfg.ConsumerName = hostname

	manager := worker.NewManager(
		queue.NewConsumer(rc.Client),
		worker.NewHandler(a.Trigger, cache.NewPushClaims(rc.Client)),
		cfg,
	)
	if err := manager.Start(c.Context); err != nil {
		rc.Close()
		return nil, fmt.Errorf("failed to start workers: %w", err)
	}

	return func() {
		manager.Stop()
		if err := rc.Close(); err != nil {
			log.Printf("[Redis] close: %v", err)
		}
	}, nil
}
