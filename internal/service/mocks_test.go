package service

import (
	"context"
	"sync"

	"pushsvc/internal/model"
)

// mockSubscriptionRepository lets each test define the behaviour it needs.
type mockSubscriptionRepository struct {
	mu sync.Mutex

	upsertFn         func(ctx context.Context, req model.UpsertRequest) (*model.UpsertResult, error)
	listActiveFn     func(ctx context.Context, userID string) ([]model.Subscription, error)
	deactivateManyFn func(ctx context.Context, ids []string) (int64, error)

	upsertCalls     []model.UpsertRequest
	deactivateCalls [][]string
}

func (m *mockSubscriptionRepository) Upsert(ctx context.Context, req model.UpsertRequest) (*model.UpsertResult, error) {
	m.mu.Lock()
	m.upsertCalls = append(m.upsertCalls, req)
	m.mu.Unlock()
	if m.upsertFn != nil {
		return m.upsertFn(ctx, req)
	}
	return &model.UpsertResult{
		Subscription: &model.Subscription{ID: "sub-1", UserID: req.UserID, Endpoint: req.Endpoint, IsActive: true},
		Created:      true,
	}, nil
}

func (m *mockSubscriptionRepository) Deactivate(ctx context.Context, id string) error {
	_, err := m.DeactivateMany(ctx, []string{id})
	return err
}

func (m *mockSubscriptionRepository) DeactivateMany(ctx context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	m.deactivateCalls = append(m.deactivateCalls, ids)
	m.mu.Unlock()
	if m.deactivateManyFn != nil {
		return m.deactivateManyFn(ctx, ids)
	}
	return int64(len(ids)), nil
}

func (m *mockSubscriptionRepository) ListActive(ctx context.Context, userID string) ([]model.Subscription, error) {
	if m.listActiveFn != nil {
		return m.listActiveFn(ctx, userID)
	}
	return nil, nil
}

func (m *mockSubscriptionRepository) SupersedeDuplicates(ctx context.Context, endpoint, exceptID string) (int64, error) {
	return 0, nil
}

func (m *mockSubscriptionRepository) GetByID(ctx context.Context, id string) (*model.Subscription, error) {
	return nil, model.ErrSubscriptionNotFound
}

func (m *mockSubscriptionRepository) GetByEndpoint(ctx context.Context, endpoint string) (*model.Subscription, error) {
	return nil, model.ErrSubscriptionNotFound
}

// mockSender answers per endpoint and records what it was asked to send.
type mockSender struct {
	mu     sync.Mutex
	sendFn func(ctx context.Context, sub model.Subscription) error
	sent   map[string][]byte
}

func (m *mockSender) Send(ctx context.Context, sub model.Subscription, payload []byte, keys model.VAPIDKeys) error {
	m.mu.Lock()
	if m.sent == nil {
		m.sent = make(map[string][]byte)
	}
	m.sent[sub.Endpoint] = payload
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, sub)
	}
	return nil
}

func (m *mockSender) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sent)
}

type mockSettingsRepository struct {
	keys    *model.VAPIDKeys
	getErr  error
	saved   []model.VAPIDKeys
	saveErr error
}

func (m *mockSettingsRepository) GetVAPID(ctx context.Context) (*model.VAPIDKeys, error) {
	return m.keys, m.getErr
}

func (m *mockSettingsRepository) SaveVAPID(ctx context.Context, keys model.VAPIDKeys) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = append(m.saved, keys)
	m.keys = &keys
	return nil
}
