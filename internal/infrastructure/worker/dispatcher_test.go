package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/httplouis/travelink-workflow/internal/domain/entity"
	wf "github.com/httplouis/travelink-workflow/internal/domain/workflow"
)

type stubNotificationRepo struct {
	pending []*entity.NotificationIntent
	sent    []int64
}

func (s *stubNotificationRepo) Create(ctx context.Context, n *entity.NotificationIntent) error {
	s.pending = append(s.pending, n)
	return nil
}

func (s *stubNotificationRepo) ListPending(ctx context.Context, limit int) ([]*entity.NotificationIntent, error) {
	return s.pending, nil
}

func (s *stubNotificationRepo) ListByRole(ctx context.Context, role wf.Role, limit int) ([]*entity.NotificationIntent, error) {
	return nil, nil
}

func (s *stubNotificationRepo) MarkSent(ctx context.Context, id int64, at time.Time) error {
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubNotificationRepo) MarkRead(ctx context.Context, id int64, at time.Time) error {
	return nil
}

type stubSender struct {
	failIDs map[int64]bool
	sent    []int64
}

func (s *stubSender) Send(ctx context.Context, n *entity.NotificationIntent) error {
	if s.failIDs[n.ID] {
		return errors.New("channel unavailable")
	}
	s.sent = append(s.sent, n.ID)
	return nil
}

func TestDispatchPendingMarksSent(t *testing.T) {
	repo := &stubNotificationRepo{
		pending: []*entity.NotificationIntent{
			{ID: 1, RequestID: uuid.New(), TargetRole: wf.RoleHead, Message: "Request TO-1 awaits your approval"},
			{ID: 2, RequestID: uuid.New(), TargetRole: wf.RoleHR, Message: "Request TO-2 awaits your approval"},
		},
	}
	sender := &stubSender{}
	d := NewDispatcher(repo, sender, zap.NewNop())
	d.ctx = context.Background()

	d.dispatchPending()

	assert.Equal(t, []int64{1, 2}, sender.sent)
	assert.Equal(t, []int64{1, 2}, repo.sent)
}

func TestDispatchPendingLeavesFailedIntents(t *testing.T) {
	repo := &stubNotificationRepo{
		pending: []*entity.NotificationIntent{
			{ID: 1, RequestID: uuid.New(), Message: "first"},
			{ID: 2, RequestID: uuid.New(), Message: "second"},
		},
	}
	sender := &stubSender{failIDs: map[int64]bool{1: true}}
	d := NewDispatcher(repo, sender, zap.NewNop())
	d.ctx = context.Background()

	d.dispatchPending()

	// The failed intent stays pending for the next cycle
	assert.Equal(t, []int64{2}, repo.sent)
}

func TestDispatcherStartStop(t *testing.T) {
	repo := &stubNotificationRepo{}
	d := NewDispatcher(repo, &stubSender{}, zap.NewNop())

	require.NoError(t, d.Start(context.Background()))
	assert.Error(t, d.Start(context.Background()))

	d.Stop()
	d.Stop() // idempotent
}
