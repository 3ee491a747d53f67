package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/sirupsen/logrus"
)

// Commands understood by the channel executors
const (
	CommandSchedule   = "schedule"
	CommandActivate   = "activate"
	CommandPause      = "pause"
	CommandCancel     = "cancel"
	CommandResume     = "resume"
	CommandReschedule = "reschedule"
)

const callsDateLayout = "2006-01-02"

// MailingCommand is the message published to the mailing executor queue
type MailingCommand struct {
	Command     string     `json:"command"`
	CampaignID  uint       `json:"campaign_id"`
	Name        string     `json:"name"`
	Theme       string     `json:"theme"`
	Description string     `json:"description,omitempty"`
	SegmentID   *uint      `json:"segment_id,omitempty"`
	SurveyID    *uint      `json:"survey_id,omitempty"`
	AgentID     *uint      `json:"agent_id,omitempty"`
	Start       *time.Time `json:"scheduled_start,omitempty"`
	End         *time.Time `json:"scheduled_end,omitempty"`
	Reason      string     `json:"reason,omitempty"`
	IssuedAt    time.Time  `json:"issued_at"`
}

// CallsCommand is the message published to the calls executor queue.
// The call center plans by day, so the window is sent as dates.
type CallsCommand struct {
	Command    string          `json:"command"`
	CampaignID uint            `json:"campaign_id"`
	Name       string          `json:"name"`
	Priority   models.Priority `json:"priority"`
	AgentID    *uint           `json:"agent_id,omitempty"`
	SegmentID  *uint           `json:"segment_id,omitempty"`
	SurveyID   *uint           `json:"survey_id,omitempty"`
	StartDate  string          `json:"start_date,omitempty"`
	EndDate    string          `json:"end_date,omitempty"`
	Reason     string          `json:"reason,omitempty"`
	IssuedAt   time.Time       `json:"issued_at"`
}

// MailingExecutor drives the mailing system through its command queue
type MailingExecutor struct {
	publisher Publisher
	queue     string
}

func NewMailingExecutor(publisher Publisher, queue string) *MailingExecutor {
	return &MailingExecutor{publisher: publisher, queue: queue}
}

func (e *MailingExecutor) Schedule(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandSchedule, c, "")
}

func (e *MailingExecutor) Activate(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandActivate, c, "")
}

func (e *MailingExecutor) NotifyPaused(ctx context.Context, c *models.Campaign, reason string) error {
	return e.send(ctx, CommandPause, c, reason)
}

func (e *MailingExecutor) NotifyCancelled(ctx context.Context, c *models.Campaign, reason string) error {
	return e.send(ctx, CommandCancel, c, reason)
}

func (e *MailingExecutor) NotifyResumed(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandResume, c, "")
}

func (e *MailingExecutor) Reschedule(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandReschedule, c, "")
}

func (e *MailingExecutor) send(ctx context.Context, command string, c *models.Campaign, reason string) error {
	if e.publisher == nil {
		return fmt.Errorf("mailing executor is unavailable: no message broker connection")
	}
	msg := MailingCommand{
		Command:     command,
		CampaignID:  c.ID,
		Name:        c.Name,
		Theme:       c.Theme,
		Description: c.Description,
		SegmentID:   c.SegmentID,
		SurveyID:    c.SurveyID,
		AgentID:     c.AgentID,
		Start:       c.ScheduledStart,
		End:         c.ScheduledEnd,
		Reason:      reason,
		IssuedAt:    time.Now().UTC(),
	}
	if err := e.publisher.Publish(ctx, e.queue, uuid.NewString(), msg); err != nil {
		return fmt.Errorf("mailing %s: %w", command, err)
	}
	logrus.Infof("Mailing executor: %s sent for campaign %d", command, c.ID)
	return nil
}

// CallsExecutor drives the call center through its command queue
type CallsExecutor struct {
	publisher Publisher
	queue     string
}

func NewCallsExecutor(publisher Publisher, queue string) *CallsExecutor {
	return &CallsExecutor{publisher: publisher, queue: queue}
}

func (e *CallsExecutor) Schedule(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandSchedule, c, "")
}

func (e *CallsExecutor) Activate(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandActivate, c, "")
}

func (e *CallsExecutor) NotifyPaused(ctx context.Context, c *models.Campaign, reason string) error {
	return e.send(ctx, CommandPause, c, reason)
}

func (e *CallsExecutor) NotifyCancelled(ctx context.Context, c *models.Campaign, reason string) error {
	return e.send(ctx, CommandCancel, c, reason)
}

func (e *CallsExecutor) NotifyResumed(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandResume, c, "")
}

func (e *CallsExecutor) Reschedule(ctx context.Context, c *models.Campaign) error {
	return e.send(ctx, CommandReschedule, c, "")
}

func (e *CallsExecutor) send(ctx context.Context, command string, c *models.Campaign, reason string) error {
	if e.publisher == nil {
		return fmt.Errorf("calls executor is unavailable: no message broker connection")
	}
	msg := CallsCommand{
		Command:    command,
		CampaignID: c.ID,
		Name:       c.Name,
		Priority:   c.Priority,
		AgentID:    c.AgentID,
		SegmentID:  c.SegmentID,
		SurveyID:   c.SurveyID,
		StartDate:  formatDate(c.ScheduledStart),
		EndDate:    formatDate(c.ScheduledEnd),
		Reason:     reason,
		IssuedAt:   time.Now().UTC(),
	}
	if err := e.publisher.Publish(ctx, e.queue, uuid.NewString(), msg); err != nil {
		return fmt.Errorf("calls %s: %w", command, err)
	}
	logrus.Infof("Calls executor: %s sent for campaign %d", command, c.ID)
	return nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(callsDateLayout)
}
