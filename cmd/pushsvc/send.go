package main

import (
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v2"

	"pushsvc/internal/model"
	"pushsvc/internal/queue"
	"pushsvc/internal/redis"
)

var cmdSend = &cli.Command{
	Name:  "send",
	Usage: "Push a message to every active subscription of a user",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "user", Usage: "Recipient", Required: true},
		&cli.StringFlag{Name: "title", Usage: "Notification title", Required: true},
		&cli.StringFlag{Name: "body", Usage: "Notification text"},
		&cli.StringFlag{Name: "data", Usage: "JSON object handed to the service worker"},
	},
	Action: runSend,
}

var cmdNotify = &cli.Command{
	Name:  "notify",
	Usage: "Publish a notification_created event to the stream",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Usage: "Notification record name", Required: true},
		&cli.StringFlag{Name: "user", Usage: "Recipient", Required: true},
		&cli.StringFlag{Name: "subject", Usage: "Subject, used as push title", Required: true},
		&cli.StringFlag{Name: "content", Usage: "Body text, defaults to the subject"},
		&cli.StringFlag{Name: "document-type", Usage: "Type of the referenced document"},
		&cli.StringFlag{Name: "document-name", Usage: "Name of the referenced document"},
	},
	Action: runNotify,
}

func runSend(c *cli.Context) error {
	var data map[string]interface{}
	if raw := c.String("data"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			return fmt.Errorf("--data must be a JSON object: %w", err)
		}
	}

	a, cleanup, err := setup()
	if err != nil {
		return err
	}
	defer cleanup()

	result := a.Dispatcher.SendPushNotification(c.Context, c.String("user"), c.String("title"), c.String("body"), data)
	return printJSON(c, result)
}

func runNotify(c *cli.Context) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	rc, err := redis.Connect(c.Context, cfg.RedisURL)
	if err != nil {
		return err
	}
	defer rc.Close()

	id, err := queue.NewPublisher(rc.Client).PublishNotificationCreated(c.Context, model.NotificationEvent{
		Name:         c.String("name"),
		ForUser:      c.String("user"),
		Subject:      c.String("subject"),
		EmailContent: c.String("content"),
		DocumentType: c.String("document-type"),
		DocumentName: c.String("document-name"),
	})
	if err != nil {
		return err
	}

	return printJSON(c, map[string]string{"stream": queue.StreamNotifications, "message_id": id})
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
