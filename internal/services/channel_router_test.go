package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelRouter_RoutesByChannel(t *testing.T) {
	mailing := newRecordingExecutor()
	calls := newRecordingExecutor()
	r := NewChannelRouter(time.Second, map[models.Channel]ChannelExecutor{
		models.ChannelMailing: mailing,
		models.ChannelCalls:   calls,
	})

	campaign := &models.Campaign{ID: 1, Channel: models.ChannelCalls}
	kinds := []NotificationKind{NotifyProgrammed, NotifyActivated, NotifyPaused, NotifyResumed, NotifyRescheduled, NotifyCancelled}
	for _, kind := range kinds {
		require.NoError(t, r.Route(context.Background(), campaign, Notification{Kind: kind, Reason: "r"}))
	}

	assert.Equal(t, kinds, calls.kinds())
	assert.Empty(t, mailing.kinds())
	assert.Equal(t, []string{"", "", "r", "", "", "r"}, calls.reasons)
}

func TestChannelRouter_ExecutorError(t *testing.T) {
	executor := newRecordingExecutor()
	executor.failOn(NotifyActivated, errExecutorDown)
	r := NewChannelRouter(time.Second, map[models.Channel]ChannelExecutor{models.ChannelMailing: executor})

	err := r.Route(context.Background(), &models.Campaign{ID: 4, Channel: models.ChannelMailing}, Notification{Kind: NotifyActivated})
	var execErr *models.ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, uint(4), execErr.CampaignID)
	assert.Equal(t, models.ChannelMailing, execErr.Channel)
	assert.Equal(t, string(NotifyActivated), execErr.Operation)
	assert.ErrorIs(t, err, errExecutorDown)
}

func TestChannelRouter_Timeout(t *testing.T) {
	executor := newRecordingExecutor()
	executor.block = make(chan struct{})
	defer close(executor.block)
	r := NewChannelRouter(20*time.Millisecond, map[models.Channel]ChannelExecutor{models.ChannelCalls: executor})

	start := time.Now()
	err := r.Route(context.Background(), &models.Campaign{ID: 2, Channel: models.ChannelCalls}, Notification{Kind: NotifyPaused})
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrExecution)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestChannelRouter_MissingExecutor(t *testing.T) {
	r := NewChannelRouter(time.Second, map[models.Channel]ChannelExecutor{})

	err := r.Route(context.Background(), &models.Campaign{ID: 3, Channel: models.ChannelMailing}, Notification{Kind: NotifyActivated})
	assert.ErrorIs(t, err, models.ErrExecution)
}

func TestChannelRouter_UnknownNotification(t *testing.T) {
	r := NewChannelRouter(time.Second, map[models.Channel]ChannelExecutor{models.ChannelMailing: newRecordingExecutor()})

	err := r.Route(context.Background(), &models.Campaign{ID: 3, Channel: models.ChannelMailing}, Notification{Kind: "Exploded"})
	assert.ErrorIs(t, err, models.ErrExecution)
}

func TestChannelExecutors_Commands(t *testing.T) {
	start := time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC)
	end := time.Date(2025, 8, 16, 18, 0, 0, 0, time.UTC)
	campaign := &models.Campaign{
		ID:             5,
		Name:           "Spring promo",
		Theme:          "Enrollment",
		Priority:       models.PriorityHigh,
		AgentID:        uintPtr(7),
		SegmentID:      uintPtr(12),
		ScheduledStart: &start,
		ScheduledEnd:   &end,
	}
	publisher := &fakePublisher{}
	mailing := NewMailingExecutor(publisher, "mailing_executor")
	calls := NewCallsExecutor(publisher, "calls_executor")
	ctx := context.Background()

	require.NoError(t, mailing.NotifyPaused(ctx, campaign, "budget"))
	require.NoError(t, calls.Schedule(ctx, campaign))

	sent := publisher.sent()
	require.Len(t, sent, 2)

	mail, ok := sent[0].payload.(MailingCommand)
	require.True(t, ok)
	assert.Equal(t, "mailing_executor", sent[0].queue)
	assert.Equal(t, CommandPause, mail.Command)
	assert.Equal(t, "budget", mail.Reason)
	assert.Equal(t, &start, mail.Start)

	call, ok := sent[1].payload.(CallsCommand)
	require.True(t, ok)
	assert.Equal(t, "calls_executor", sent[1].queue)
	assert.Equal(t, CommandSchedule, call.Command)
	assert.Equal(t, "2025-08-14", call.StartDate)
	assert.Equal(t, "2025-08-16", call.EndDate)
	assert.Equal(t, models.PriorityHigh, call.Priority)
	assert.NotEqual(t, sent[0].messageID, sent[1].messageID)
}

func TestChannelExecutors_Unavailable(t *testing.T) {
	campaign := &models.Campaign{ID: 5}

	err := NewMailingExecutor(nil, "mailing_executor").Activate(context.Background(), campaign)
	assert.Error(t, err)

	publisher := &fakePublisher{err: errors.New("channel closed")}
	err = NewCallsExecutor(publisher, "calls_executor").Activate(context.Background(), campaign)
	assert.ErrorContains(t, err, "channel closed")
}
