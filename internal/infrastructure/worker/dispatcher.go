// Package worker hosts the background loops that run beside the HTTP
// server.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/application/port"
	"github.com/httplouis/travelink-workflow/internal/domain/entity"
)

// Sender delivers one notification intent to its recipient. The engine
// is channel-agnostic; implementations wire in email, chat or in-app
// delivery.
type Sender interface {
	Send(ctx context.Context, n *entity.NotificationIntent) error
}

// LogSender is the default delivery channel: it only logs the intent.
// Deployments without an outbound channel still get a visible record of
// every notification the workflow produced.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs the intent
func (s *LogSender) Send(ctx context.Context, n *entity.NotificationIntent) error {
	s.Logger.Info("Notification",
		zap.Int64("id", n.ID),
		zap.String("request_id", n.RequestID.String()),
		zap.String("target_role", n.TargetRole.String()),
		zap.String("message", n.Message))
	return nil
}

// Dispatcher polls the pending notification intents and pushes them
// through the configured sender. Polling keeps delivery decoupled from
// the approval transaction: a slow or failing channel never blocks an
// approval.
type Dispatcher struct {
	notifications port.NotificationRepository
	sender        Sender
	logger        *zap.Logger

	pollInterval time.Duration
	batchSize    int

	mu        sync.Mutex
	isRunning bool
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewDispatcher creates a new notification dispatcher
func NewDispatcher(notifications port.NotificationRepository, sender Sender, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{
		notifications: notifications,
		sender:        sender,
		logger:        logger,
		pollInterval:  15 * time.Second,
		batchSize:     50,
	}
}

// Start starts the dispatch loop
func (d *Dispatcher) Start(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.isRunning {
		return fmt.Errorf("dispatcher is already running")
	}

	d.ctx, d.cancel = context.WithCancel(ctx)
	d.isRunning = true

	d.logger.Info("Notification dispatcher started",
		zap.Duration("poll_interval", d.pollInterval),
		zap.Int("batch_size", d.batchSize))

	go d.loop()

	return nil
}

// Stop stops the dispatch loop
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.isRunning {
		return
	}

	d.isRunning = false
	if d.cancel != nil {
		d.cancel()
	}

	d.logger.Info("Notification dispatcher stopped")
}

func (d *Dispatcher) loop() {
	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	// Dispatch immediately on start
	d.dispatchPending()

	for {
		select {
		case <-d.ctx.Done():
			return
		case <-ticker.C:
			d.dispatchPending()
		}
	}
}

// dispatchPending delivers one batch of pending intents. A failed send
// leaves the intent pending so the next cycle retries it.
func (d *Dispatcher) dispatchPending() {
	ctx, cancel := context.WithTimeout(d.ctx, 30*time.Second)
	defer cancel()

	intents, err := d.notifications.ListPending(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to list pending notifications", zap.Error(err))
		return
	}
	if len(intents) == 0 {
		return
	}

	sent := 0
	for _, n := range intents {
		if err := d.sender.Send(ctx, n); err != nil {
			d.logger.Error("Failed to send notification",
				zap.Int64("id", n.ID), zap.Error(err))
			continue
		}
		if err := d.notifications.MarkSent(ctx, n.ID, time.Now()); err != nil {
			d.logger.Error("Failed to mark notification sent",
				zap.Int64("id", n.ID), zap.Error(err))
			continue
		}
		sent++
	}

	d.logger.Info("Notification dispatch completed",
		zap.Int("pending", len(intents)),
		zap.Int("sent", sent))
}
