package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"pushsvc/internal/model"
)

// Sender delivers one encrypted payload to one subscription.
// It returns nil on a 2xx answer, *model.PermanentDeliveryError when the endpoint
// is gone and *model.TransientDeliveryError for everything else.
type Sender interface {
	Send(ctx context.Context, sub model.Subscription, payload []byte, keys model.VAPIDKeys) error
}

// WebPushSender speaks the Web Push protocol: the payload is encrypted with
// aes128gcm under the subscription's p256dh/auth keys and the request carries a
// VAPID JWT signed with the application server key.
//
// How it works:
// 1. The browser subscribes with our public VAPID key and hands us endpoint + keys
// 2. We POST the encrypted payload to the endpoint (FCM, Mozilla autopush, APNs web, ...)
// 3. The push service wakes the service worker, which decrypts and shows the notification
type WebPushSender struct {
	httpClient *http.Client
	ttl        time.Duration
	urgency    webpush.Urgency
}

const maxErrorBodyBytes = 512

// NewWebPushSender creates a sender. ttl is how long the push service may hold
// the message for an offline device.
func NewWebPushSender(httpClient *http.Client, ttl time.Duration) *WebPushSender {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 30 * time.Second,
		}
	}
	return &WebPushSender{
		httpClient: httpClient,
		ttl:        ttl,
		urgency:    webpush.UrgencyNormal,
	}
}

func (s *WebPushSender) Send(ctx context.Context, sub model.Subscription, payload []byte, keys model.VAPIDKeys) error {
	resp, err := webpush.SendNotificationWithContext(ctx, payload, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dhKey,
			Auth:   sub.AuthKey,
		},
	}, &webpush.Options{
		HTTPClient:      s.httpClient,
		Subscriber:      keys.Subscriber(), // webpush-go prepends mailto:
		VAPIDPublicKey:  keys.PublicKey,
		VAPIDPrivateKey: keys.PrivateKey,
		TTL:             int(s.ttl.Seconds()),
		Urgency:         s.urgency,
	})
	if err != nil {
		// encryption, key decoding, network and timeout errors all land here
		return &model.TransientDeliveryError{Err: err}
	}
	defer resp.Body.Close()

	return classifyResponse(resp)
}

// classifyResponse maps a push service answer to a delivery outcome.
// Only 404 and 410 say the subscription is dead; 400 and 413 are treated as
// transient because a bad request does not prove the endpoint expired.
func classifyResponse(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	body := strings.TrimSpace(string(raw))

	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return &model.PermanentDeliveryError{StatusCode: resp.StatusCode, Body: body}
	default:
		return &model.TransientDeliveryError{
			StatusCode: resp.StatusCode,
			Body:       body,
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}
}
