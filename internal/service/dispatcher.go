package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"pushsvc/internal/metrics"
	"pushsvc/internal/model"
	"pushsvc/internal/repository"
)

const (
	// DefaultConcurrency is how many subscriptions of one user are sent to in parallel.
	DefaultConcurrency = 4

	// DefaultSendTimeout bounds a single push service request.
	DefaultSendTimeout = 10 * time.Second
)

// DispatcherConfig holds the tunables of a Dispatcher.
type DispatcherConfig struct {
	IconURL     string
	BadgeURL    string
	Concurrency int
	SendTimeout time.Duration
	// RateLimit is the maximum number of sends per second, 0 for unlimited.
	RateLimit float64
}

// Dispatcher fans a notification out to every active subscription of a user
// and deactivates the ones the push service reports as gone.
type Dispatcher struct {
	subRepo repository.SubscriptionRepository
	keys    KeyProvider
	sender  Sender
	metrics *metrics.Push // Can be nil

	iconURL     string
	badgeURL    string
	concurrency int
	sendTimeout time.Duration
	limiter     *rate.Limiter // nil when unlimited
}

func NewDispatcher(
	subRepo repository.SubscriptionRepository,
	keys KeyProvider,
	sender Sender,
	m *metrics.Push,
	cfg DispatcherConfig,
) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = DefaultSendTimeout
	}
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(1, int(cfg.RateLimit)))
	}
	return &Dispatcher{
		subRepo:     subRepo,
		keys:        keys,
		sender:      sender,
		metrics:     m,
		iconURL:     cfg.IconURL,
		badgeURL:    cfg.BadgeURL,
		concurrency: cfg.Concurrency,
		sendTimeout: cfg.SendTimeout,
		limiter:     limiter,
	}
}

// outcome is the result of one send; each goroutine owns exactly one slot.
type outcome struct {
	err error
}

// Dispatch sends title/body/data to all active subscriptions of user.
//
// Per-subscription failures never surface as an error: they are counted in the
// result, logged, and 404/410 endpoints are deactivated in one batch at the end.
// An error is returned only when the dispatch cannot run at all (store
// unreachable, VAPID identity missing); a missing identity matches model.ErrConfig.
func (d *Dispatcher) Dispatch(ctx context.Context, userID, title, body string, data map[string]interface{}) (*model.DispatchResult, error) {
	subs, err := d.subRepo.ListActive(ctx, userID)
	if err != nil {
		d.metrics.ObserveDispatch("error", 0)
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}

	if len(subs) == 0 {
		d.metrics.ObserveDispatch("no_recipients", 0)
		return &model.DispatchResult{}, nil
	}

	keys, err := d.keys.VAPIDKeys(ctx)
	if err != nil {
		d.metrics.ObserveDispatch("error", 0)
		return nil, fmt.Errorf("load vapid keys: %w", err)
	}
	if err := keys.Validate(); err != nil {
		d.metrics.ObserveDispatch("config_error", 0)
		return nil, err
	}

	payload, err := d.buildPayload(title, body, data)
	if err != nil {
		d.metrics.ObserveDispatch("error", 0)
		return nil, err
	}

	outcomes := make([]outcome, len(subs))

	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for i := range subs {
		g.Go(func() error {
			outcomes[i].err = d.sendOne(ctx, subs[i], payload, keys)
			return nil // failures stay with their recipient
		})
	}
	_ = g.Wait()

	result := &model.DispatchResult{Total: len(subs)}
	var gone []string
	for i, o := range outcomes {
		sub := subs[i]

		var permanent *model.PermanentDeliveryError
		switch {
		case o.err == nil:
			result.Success++
		case errors.As(o.err, &permanent):
			result.Failed++
			gone = append(gone, sub.ID)
			log.Printf("[Dispatcher] Subscription %s expired (status=%d), deactivating", sub.ID, permanent.StatusCode)
		default:
			result.Failed++
			log.Printf("[Dispatcher] Push notification failed for %s: %v", sub.ID, o.err)
		}
	}

	// Commit point: one transaction for every endpoint that came back 404/410.
	// If it fails the rows stay active and the next dispatch retries them.
	if len(gone) > 0 {
		n, err := d.subRepo.DeactivateMany(ctx, gone)
		if err != nil {
			log.Printf("[Dispatcher] Failed to deactivate %d subscriptions for user %s: %v", len(gone), userID, err)
		} else {
			result.Deactivated = int(n)
		}
	}

	d.metrics.ObserveDispatch("ok", result.Deactivated)
	log.Printf("[Dispatcher] Sent to user %s: %d success, %d failed, %d deactivated",
		userID, result.Success, result.Failed, result.Deactivated)

	return result, nil
}

// sendOne delivers to one subscription under its own timeout. A panic in the
// sender is turned into a transient failure for this recipient only.
func (d *Dispatcher) sendOne(ctx context.Context, sub model.Subscription, payload []byte, keys model.VAPIDKeys) (err error) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = &model.TransientDeliveryError{Err: fmt.Errorf("panic: %v", r)}
		}
		d.metrics.ObserveDelivery(outcomeLabel(err), time.Since(start).Seconds())
	}()

	sendCtx, cancel := context.WithTimeout(ctx, d.sendTimeout)
	defer cancel()

	if d.limiter != nil {
		if err := d.limiter.Wait(sendCtx); err != nil {
			return &model.TransientDeliveryError{Err: fmt.Errorf("rate limit: %w", err)}
		}
	}

	err = d.sender.Send(sendCtx, sub, payload, keys)
	if err == nil {
		return nil
	}

	var permanent *model.PermanentDeliveryError
	var transient *model.TransientDeliveryError
	if !errors.As(err, &permanent) && !errors.As(err, &transient) {
		err = &model.TransientDeliveryError{Err: err}
	}
	return err
}

func (d *Dispatcher) buildPayload(title, body string, data map[string]interface{}) ([]byte, error) {
	if data == nil {
		data = map[string]interface{}{}
	}
	payload, err := json.Marshal(model.PushPayload{
		Title: title,
		Body:  body,
		Data:  data,
		Icon:  d.iconURL,
		Badge: d.badgeURL,
	})
	if err != nil {
		return nil, model.NewValidationError(fmt.Sprintf("notification data is not serializable: %v", err))
	}
	return payload, nil
}

// SendPushNotification is the caller-facing entry point. It never returns an
// error; every outcome, including configuration and store failures, is reported
// in the result.
func (d *Dispatcher) SendPushNotification(ctx context.Context, userID, title, body string, data map[string]interface{}) (res model.SendResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[Dispatcher] PANIC sending push to user %s: %v", userID, r)
			res = model.SendResult{Success: false, Message: fmt.Sprintf("internal error: %v", r)}
		}
	}()

	result, err := d.Dispatch(ctx, userID, title, body, data)
	if err != nil {
		log.Printf("[Dispatcher] Push notification error for user %s: %v", userID, err)
		return model.SendResult{Success: false, Message: err.Error()}
	}

	if result.Total == 0 {
		return model.SendResult{Success: false, Message: "No active subscriptions found for user"}
	}

	return model.SendResult{
		Success:     true,
		Message:     fmt.Sprintf("Sent to %d/%d subscriptions", result.Success, result.Total),
		SentCount:   result.Success,
		FailedCount: result.Failed,
	}
}

func outcomeLabel(err error) string {
	var permanent *model.PermanentDeliveryError
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.As(err, &permanent):
		return metrics.OutcomePermanent
	default:
		return metrics.OutcomeTransient
	}
}
