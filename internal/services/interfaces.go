package services

import (
	"context"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
)

// CampaignStore persists campaigns. Implemented by repository.CampaignRepository.
type CampaignStore interface {
	GetByID(ctx context.Context, id uint) (*models.Campaign, error)
	Create(ctx context.Context, campaign *models.Campaign) error
	Save(ctx context.Context, campaign *models.Campaign) error
	FindScheduledDueBy(ctx context.Context, t time.Time) ([]*models.Campaign, error)
	FindAllScheduled(ctx context.Context) ([]*models.Campaign, error)
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter models.CampaignFilter) ([]*models.Campaign, int64, error)
}

// HistoryStore appends and reads history entries
type HistoryStore interface {
	Create(ctx context.Context, entry *models.CampaignHistory) error
	List(ctx context.Context, filter models.HistoryFilter) ([]*models.CampaignHistory, int64, error)
}

// TemplateStore persists campaign templates
type TemplateStore interface {
	Create(ctx context.Context, template *models.CampaignTemplate) error
	GetByID(ctx context.Context, id uint) (*models.CampaignTemplate, error)
	Save(ctx context.Context, template *models.CampaignTemplate) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, name string, channel models.Channel, page, pageSize int) ([]*models.CampaignTemplate, int64, error)
}

// ResourceValidator checks the resources a campaign refers to
type ResourceValidator interface {
	SegmentExists(ctx context.Context, segmentID uint) (bool, error)
	SurveyExists(ctx context.Context, surveyID uint) (bool, error)
	AgentAvailable(ctx context.Context, agentID uint, start, end time.Time) (bool, error)
}

// ChannelExecutor is the downstream system that runs campaigns on one channel.
// A non-nil error from Activate means the executor refused or failed to start the campaign.
type ChannelExecutor interface {
	Schedule(ctx context.Context, campaign *models.Campaign) error
	Activate(ctx context.Context, campaign *models.Campaign) error
	NotifyPaused(ctx context.Context, campaign *models.Campaign, reason string) error
	NotifyCancelled(ctx context.Context, campaign *models.Campaign, reason string) error
	NotifyResumed(ctx context.Context, campaign *models.Campaign) error
	Reschedule(ctx context.Context, campaign *models.Campaign) error
}

// Publisher sends a JSON payload to a queue and waits for the broker to accept it
type Publisher interface {
	Publish(ctx context.Context, queue, messageID string, payload interface{}) error
}

// Activator is the activation entry point used by timers and sweeps.
// It reports whether the campaign was moved to Live.
type Activator interface {
	ActivateDue(ctx context.Context, campaignID uint) (bool, error)
}

// EventRecorder accepts transition events without blocking
type EventRecorder interface {
	Record(event TransitionEvent)
}
