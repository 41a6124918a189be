package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"pushsvc/internal/app"
	"pushsvc/internal/config"
	"pushsvc/internal/database"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cliApp := &cli.App{
		Name:  "pushsvc",
		Usage: "Web Push delivery for notification records",
		Commands: []*cli.Command{
			cmdServe,
			cmdWorker,
			cmdMigrate,
			cmdVAPID,
			cmdSend,
			cmdNotify,
		},
	}

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("pushsvc: %v", err)
	}
}

var cmdMigrate = &cli.Command{
	Name:  "migrate",
	Usage: "Apply database migrations",
	Action: func(c *cli.Context) error {
		_, db, err := openDatabase()
		if err != nil {
			return err
		}
		defer db.Close()
		return database.Migrate(db)
	},
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func openDatabase() (*config.Config, *sqlx.DB, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

// setup loads config, connects and migrates, then builds the service graph.
func setup() (*app.App, func(), error) {
	cfg, db, err := openDatabase()
	if err != nil {
		return nil, nil, err
	}
	if err := database.Migrate(db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return app.New(cfg, db), func() { db.Close() }, nil
}
