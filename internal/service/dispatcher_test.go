package service

import (
	"context"
	"crypto/ecdh"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pushsvc/internal/database/dbtest"
	"pushsvc/internal/metrics"
	"pushsvc/internal/model"
	"pushsvc/internal/repository"
)

func testVAPID(t *testing.T) StaticKeys {
	t.Helper()
	priv, pub, err := webpush.GenerateVAPIDKeys()
	require.NoError(t, err)
	return StaticKeys{PublicKey: pub, PrivateKey: priv, Email: "ops@example.com"}
}

// browserKeys returns a p256dh/auth pair the way a browser would hand them out.
func browserKeys(t *testing.T) (p256dh, auth string) {
	t.Helper()
	key, err := ecdh.P256().GenerateKey(rand.Reader)
	require.NoError(t, err)
	secret := make([]byte, 16)
	_, err = rand.Read(secret)
	require.NoError(t, err)
	return base64.RawURLEncoding.EncodeToString(key.PublicKey().Bytes()),
		base64.RawURLEncoding.EncodeToString(secret)
}

func subs(endpoints ...string) []model.Subscription {
	out := make([]model.Subscription, 0, len(endpoints))
	for _, e := range endpoints {
		out = append(out, model.Subscription{ID: "id-" + e, UserID: "alice", Endpoint: e, IsActive: true})
	}
	return out
}

func TestDispatcher_IsolatesFailures(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return subs("ok1", "gone", "flaky", "panics", "ok2"), nil
		},
	}
	sender := &mockSender{sendFn: func(ctx context.Context, sub model.Subscription) error {
		switch sub.Endpoint {
		case "gone":
			return &model.PermanentDeliveryError{StatusCode: http.StatusGone}
		case "flaky":
			return errors.New("connection reset")
		case "panics":
			panic("sender blew up")
		}
		return nil
	}}

	reg := prometheus.NewRegistry()
	m := metrics.NewPush(reg)
	d := NewDispatcher(repo, testVAPID(t), sender, m, DispatcherConfig{Concurrency: 2})

	res, err := d.Dispatch(context.Background(), "alice", "Hi", "Body", nil)
	require.NoError(t, err)

	assert.Equal(t, 5, res.Total)
	assert.Equal(t, 2, res.Success)
	assert.Equal(t, 3, res.Failed)
	assert.Equal(t, 1, res.Deactivated)
	assert.Equal(t, res.Total, res.Success+res.Failed)

	require.Len(t, repo.deactivateCalls, 1, "deactivation is one batch")
	assert.Equal(t, []string{"id-gone"}, repo.deactivateCalls[0])

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.OutcomePermanent)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Deliveries.WithLabelValues(metrics.OutcomeTransient)))
}

func TestDispatcher_NoSubscriptions(t *testing.T) {
	sender := &mockSender{}
	d := NewDispatcher(&mockSubscriptionRepository{}, StaticKeys{}, sender, nil, DispatcherConfig{})

	res, err := d.Dispatch(context.Background(), "nobody", "Hi", "Body", nil)
	require.NoError(t, err, "no recipients is not a config problem")
	assert.Equal(t, model.DispatchResult{}, *res)
	assert.Zero(t, sender.calls())

	out := d.SendPushNotification(context.Background(), "nobody", "Hi", "Body", nil)
	assert.False(t, out.Success)
	assert.Equal(t, "No active subscriptions found for user", out.Message)
}

func TestDispatcher_MissingVAPIDKeys(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return subs("e1"), nil
		},
	}
	sender := &mockSender{}

	tests := []struct {
		name string
		keys StaticKeys
	}{
		{"no keys", StaticKeys{Email: "ops@example.com"}},
		{"no email", StaticKeys{PublicKey: "pub", PrivateKey: "priv"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(repo, tt.keys, sender, nil, DispatcherConfig{})

			_, err := d.Dispatch(context.Background(), "alice", "Hi", "Body", nil)
			assert.ErrorIs(t, err, model.ErrConfig)

			out := d.SendPushNotification(context.Background(), "alice", "Hi", "Body", nil)
			assert.False(t, out.Success)
			assert.Contains(t, out.Message, "VAPID")
		})
	}
	assert.Zero(t, sender.calls(), "nothing is sent without an identity")
}

func TestDispatcher_StoreFailure(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return nil, errors.New("database is down")
		},
	}
	d := NewDispatcher(repo, testVAPID(t), &mockSender{}, nil, DispatcherConfig{})

	out := d.SendPushNotification(context.Background(), "alice", "Hi", "Body", nil)
	assert.False(t, out.Success)
	assert.Contains(t, out.Message, "database is down")
}

func TestDispatcher_DeactivationFailureKeepsResult(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return subs("gone"), nil
		},
		deactivateManyFn: func(ctx context.Context, ids []string) (int64, error) {
			return 0, errors.New("write failed")
		},
	}
	sender := &mockSender{sendFn: func(ctx context.Context, sub model.Subscription) error {
		return &model.PermanentDeliveryError{StatusCode: http.StatusNotFound}
	}}
	d := NewDispatcher(repo, testVAPID(t), sender, nil, DispatcherConfig{})

	res, err := d.Dispatch(context.Background(), "alice", "Hi", "Body", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Failed)
	assert.Zero(t, res.Deactivated)
}

func TestDispatcher_PayloadShape(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return subs("e1"), nil
		},
	}
	sender := &mockSender{}
	d := NewDispatcher(repo, testVAPID(t), sender, nil, DispatcherConfig{
		IconURL:  "https://erp.example.com/assets/icon.png",
		BadgeURL: "https://erp.example.com/assets/badge.png",
	})

	_, err := d.Dispatch(context.Background(), "alice", "Title", "Body", map[string]interface{}{"k": "v"})
	require.NoError(t, err)

	var payload model.PushPayload
	require.NoError(t, json.Unmarshal(sender.sent["e1"], &payload))
	assert.Equal(t, "Title", payload.Title)
	assert.Equal(t, "Body", payload.Body)
	assert.Equal(t, "v", payload.Data["k"])
	assert.Equal(t, "https://erp.example.com/assets/icon.png", payload.Icon)
	assert.Equal(t, "https://erp.example.com/assets/badge.png", payload.Badge)

	_, err = d.Dispatch(context.Background(), "alice", "Title", "Body", nil)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(sender.sent["e1"], &payload))
	assert.NotNil(t, payload.Data, "data is always an object")
}

func TestDispatcher_UnserializableData(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return subs("e1"), nil
		},
	}
	d := NewDispatcher(repo, testVAPID(t), &mockSender{}, nil, DispatcherConfig{})

	_, err := d.Dispatch(context.Background(), "alice", "Hi", "Body", map[string]interface{}{"ch": make(chan int)})
	assert.ErrorIs(t, err, model.ErrValidation)
}

func TestDispatcher_RateLimitedSendsFailTransient(t *testing.T) {
	repo := &mockSubscriptionRepository{
		listActiveFn: func(ctx context.Context, userID string) ([]model.Subscription, error) {
			return subs("a", "b", "c"), nil
		},
	}
	sender := &mockSender{}
	// one token per second with a 50ms send budget: only the first send gets through
	d := NewDispatcher(repo, testVAPID(t), sender, nil, DispatcherConfig{
		Concurrency: 3,
		SendTimeout: 50 * time.Millisecond,
		RateLimit:   1,
	})

	res, err := d.Dispatch(context.Background(), "alice", "Hi", "", nil)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 1, res.Success)
	assert.Equal(t, 2, res.Failed)
	assert.Equal(t, 0, res.Deactivated)
	assert.Equal(t, 1, sender.calls())
}

// TestDispatcher_EndToEnd drives the real Web Push sender against fake push
// services that answer 201, 410, 500 and one that never answers.
func TestDispatcher_EndToEnd(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(t)
	repo := repository.NewSubscriptionRepository(db)
	registry := NewSubscriptionService(repo)

	var hits atomic.Int32
	pushService := func(status int) *httptest.Server {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			hits.Add(1)
			assert.Equal(t, "aes128gcm", r.Header.Get("Content-Encoding"))
			assert.Contains(t, r.Header.Get("Authorization"), "vapid t=")
			w.WriteHeader(status)
		}))
		t.Cleanup(srv.Close)
		return srv
	}
	created := pushService(http.StatusCreated)
	gone := pushService(http.StatusGone)
	broken := pushService(http.StatusInternalServerError)

	release := make(chan struct{})
	hanging := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	t.Cleanup(hanging.Close)
	t.Cleanup(func() { close(release) })

	alice := model.Caller{User: "alice"}
	for _, endpoint := range []string{created.URL + "/E1", gone.URL + "/E2", broken.URL + "/E3", hanging.URL + "/E4"} {
		p256dh, auth := browserKeys(t)
		_, err := registry.Register(ctx, alice, &model.SubscriptionRequest{
			Endpoint: endpoint,
			Keys:     model.SubscriptionKeys{P256dh: p256dh, Auth: auth},
		}, "Mozilla/5.0")
		require.NoError(t, err)
	}

	d := NewDispatcher(repo, testVAPID(t), NewWebPushSender(nil, time.Hour), nil, DispatcherConfig{
		SendTimeout: 500 * time.Millisecond,
	})

	start := time.Now()
	out := d.SendPushNotification(ctx, "alice", "Hello", "World", nil)
	assert.Less(t, time.Since(start), 5*time.Second, "a hanging endpoint must not stall the dispatch")

	assert.True(t, out.Success)
	assert.Equal(t, "Sent to 1/4 subscriptions", out.Message)
	assert.Equal(t, 1, out.SentCount)
	assert.Equal(t, 3, out.FailedCount)
	assert.EqualValues(t, 3, hits.Load())

	active, err := repo.ListActive(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, active, 3, "only the 410 endpoint is deactivated")

	goneSub, err := repo.GetByEndpoint(ctx, gone.URL+"/E2")
	require.NoError(t, err)
	assert.False(t, goneSub.IsActive)

	// a second pass no longer contacts the expired endpoint
	hits.Store(0)
	out = d.SendPushNotification(ctx, "alice", "Hello", "Again", nil)
	assert.Equal(t, "Sent to 1/3 subscriptions", out.Message)
	assert.EqualValues(t, 2, hits.Load())
}
