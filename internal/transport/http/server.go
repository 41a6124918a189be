package http

import (
	"context"
	"errors"
	"fmt"
	"log"
	stdhttp "net/http"
	"time"

	"pushsvc/internal/app"
	"pushsvc/internal/handler"
)

const shutdownTimeout = 15 * time.Second

// NewHandler builds the HTTP surface of a.
func NewHandler(a *app.App) stdhttp.Handler {
	return NewRouter(RouterConfig{
		PushHandler: handler.NewPushHandler(a.Registry, a.Dispatcher, a.Keys),
		JWTSecret:   a.Config.JWTSecret,
		Gatherer:    a.Gatherer,
	})
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func Run(ctx context.Context, a *app.App) error {
	srv := &stdhttp.Server{
		Addr:              ":" + a.Config.ServerPort,
		Handler:           NewHandler(a),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting server on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, stdhttp.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}

	log.Printf("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
