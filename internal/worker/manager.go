package worker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"pushsvc/internal/queue"
)

const (
	// DefaultWorkerCount is the default number of worker goroutines
	DefaultWorkerCount = 2

	// DefaultBatchSize is the number of messages to read per batch
	DefaultBatchSize = 10

	// DefaultBlockTimeout is how long to block waiting for new messages
	DefaultBlockTimeout = 5 * time.Second
)

// Manager orchestrates worker goroutines that consume from a Redis stream.
type Manager struct {
	consumer    queue.Consumer
	handler     *Handler
	stream      string
	group       string
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	consumerPfx string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

// ManagerConfig holds configuration for the worker manager.
type ManagerConfig struct {
	Stream       string
	Group        string
	ConsumerName string        // Prefix for consumer names, e.g. the hostname
	WorkerCount  int           // Number of worker goroutines
	BatchSize    int64         // Messages per read
	BlockTimeout time.Duration // Block time for XREADGROUP
}

// DefaultManagerConfig returns the configuration for the notification stream.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Stream:       queue.StreamNotifications,
		Group:        queue.ConsumerGroupPush,
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

// NewManager creates a new worker manager.
func NewManager(consumer queue.Consumer, handler *Handler, cfg ManagerConfig) *Manager {
	def := DefaultManagerConfig()
	if cfg.Stream == "" {
		cfg.Stream = def.Stream
	}
	if cfg.Group == "" {
		cfg.Group = def.Group
	}
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}
	prefix := cfg.ConsumerName
	if prefix == "" {
		prefix = "worker"
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		stream:      cfg.Stream,
		group:       cfg.Group,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		consumerPfx: prefix,
	}
}

// Start begins the worker goroutines.
// Call Stop() to gracefully shut down.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, m.stream, m.group); err != nil {
		m.cancel()
		return err
	}

	log.Printf("[Manager] Starting %d workers for stream=%s group=%s",
		m.workerCount, m.stream, m.group)

	for i := 0; i < m.workerCount; i++ {
		workerID := i + 1

		m.wg.Add(1)
		go m.runWorker(workerID, m.consumerName(workerID))
	}

	log.Printf("[Manager] All %d workers started", m.workerCount)
	return nil
}

// Stop gracefully shuts down all workers.
// Blocks until all workers have finished.
func (m *Manager) Stop() {
	log.Printf("[Manager] Stopping workers...")
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

// runWorker is the main loop for a single worker goroutine.
func (m *Manager) runWorker(workerID int, consumerName string) {
	defer m.wg.Done()

	log.Printf("[Worker-%d] Started (consumer=%s)", workerID, consumerName)

	// Crash recovery: messages this consumer read but never acknowledged
	m.processPending(workerID, consumerName)

	for {
		select {
		case <-m.ctx.Done():
			log.Printf("[Worker-%d] Shutting down", workerID)
			return
		default:
			m.processMessages(workerID, consumerName)
		}
	}
}

// processPending handles messages that were delivered but not acknowledged.
func (m *Manager) processPending(workerID int, consumerName string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, m.stream, m.group, consumerName, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}

		if len(messages) == 0 {
			log.Printf("[Worker-%d] No pending messages", workerID)
			return
		}

		log.Printf("[Worker-%d] Processing %d pending messages", workerID, len(messages))
		if !m.handleMessages(workerID, messages) {
			return
		}
	}
}

// processMessages reads and handles a batch of messages.
func (m *Manager) processMessages(workerID int, consumerName string) {
	messages, err := m.consumer.Read(m.ctx, m.stream, m.group, consumerName, m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Printf("[Worker-%d] Error reading: %v", workerID, err)
		select { // back off on error
		case <-m.ctx.Done():
		case <-time.After(time.Second):
		}
		return
	}

	if len(messages) == 0 {
		return // Timeout, no messages
	}

	log.Printf("[Worker-%d] Received %d messages", workerID, len(messages))
	m.handleMessages(workerID, messages)
}

// handleMessages processes a batch and acknowledges every message, failed or
// not, so a poison message cannot loop forever. A message interrupted by
// shutdown stays pending for the next start. It reports whether all ACKs
// went through.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) bool {
	acked := true
	for _, msg := range messages {
		log.Printf("[Worker-%d] Processing msgID=%s type=%s", workerID, msg.ID, msg.Event.Type)

		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			if m.ctx.Err() != nil {
				log.Printf("[Worker-%d] Shutdown interrupted msgID=%s, leaving it pending", workerID, msg.ID)
				return false
			}
			log.Printf("[Worker-%d] Handler error msgID=%s: %v", workerID, msg.ID, err)
		}

		if err := m.consumer.Ack(m.ctx, m.stream, m.group, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
			acked = false
		}
	}
	return acked
}

func (m *Manager) consumerName(workerID int) string {
	return fmt.Sprintf("%s-%d", m.consumerPfx, workerID)
}
