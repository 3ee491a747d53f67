package services

import (
	"context"
	"fmt"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// NotificationKind is the lifecycle event forwarded to a channel executor
type NotificationKind string

const (
	NotifyProgrammed  NotificationKind = "Programmed"
	NotifyActivated   NotificationKind = "Activated"
	NotifyPaused      NotificationKind = "Paused"
	NotifyCancelled   NotificationKind = "Cancelled"
	NotifyResumed     NotificationKind = "Resumed"
	NotifyRescheduled NotificationKind = "Rescheduled"
)

// Notification is a routed lifecycle event. Reason is used by Paused and Cancelled.
type Notification struct {
	Kind   NotificationKind
	Reason string
}

// ChannelRouter forwards lifecycle events to the executor of the campaign's channel
type ChannelRouter struct {
	executors map[models.Channel]ChannelExecutor
	timeout   time.Duration
}

func NewChannelRouter(timeout time.Duration, executors map[models.Channel]ChannelExecutor) *ChannelRouter {
	return &ChannelRouter{
		executors: executors,
		timeout:   timeout,
	}
}

// Route calls the executor for the campaign's channel. Any failure, including a
// missing executor or a call that outlives the timeout, is returned as *models.ExecutionError.
func (r *ChannelRouter) Route(ctx context.Context, campaign *models.Campaign, n Notification) error {
	executor, ok := r.executors[campaign.Channel]
	if !ok {
		return &models.ExecutionError{
			CampaignID: campaign.ID,
			Channel:    campaign.Channel,
			Operation:  string(n.Kind),
			Err:        fmt.Errorf("no executor registered for channel %q", campaign.Channel),
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The executor works on a snapshot; it may keep running after a timeout
	snapshot := *campaign
	done := make(chan error, 1)
	go func() {
		done <- r.dispatch(callCtx, executor, &snapshot, n)
	}()

	var err error
	select {
	case err = <-done:
	case <-callCtx.Done():
		err = fmt.Errorf("executor did not answer within %s: %w", r.timeout, callCtx.Err())
	}
	if err != nil {
		return &models.ExecutionError{
			CampaignID: campaign.ID,
			Channel:    campaign.Channel,
			Operation:  string(n.Kind),
			Err:        err,
		}
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"channel":     campaign.Channel,
		"event":       n.Kind,
	}).Debug("Channel executor notified")
	return nil
}

func (r *ChannelRouter) dispatch(ctx context.Context, executor ChannelExecutor, campaign *models.Campaign, n Notification) error {
	switch n.Kind {
	case NotifyProgrammed:
		return executor.Schedule(ctx, campaign)
	case NotifyActivated:
		return executor.Activate(ctx, campaign)
	case NotifyPaused:
		return executor.NotifyPaused(ctx, campaign, n.Reason)
	case NotifyCancelled:
		return executor.NotifyCancelled(ctx, campaign, n.Reason)
	case NotifyResumed:
		return executor.NotifyResumed(ctx, campaign)
	case NotifyRescheduled:
		return executor.Reschedule(ctx, campaign)
	default:
		return fmt.Errorf("unknown notification %q", n.Kind)
	}
}
