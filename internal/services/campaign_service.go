package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// maxSaveAttempts bounds the reload-and-retry loop on optimistic lock conflicts
	maxSaveAttempts = 3

	restoreConcurrency = 4

	maxNameLength  = 100
	maxThemeLength = 150
	copyPrefix     = "Copy of "
)

var errNotDue = errors.New("campaign is not due for activation")

// CampaignService is the lifecycle engine. Every state change goes through the
// transition table, the store, the activation scheduler, the channel router and
// the history recorder, in that order, while holding the campaign's lock.
type CampaignService struct {
	store     CampaignStore
	templates TemplateStore
	history   HistoryStore
	validator ResourceValidator
	scheduler *ActivationScheduler
	router    *ChannelRouter
	recorder  EventRecorder
	locks     *campaignLocks
	now       func() time.Time
}

func NewCampaignService(
	store CampaignStore,
	templates TemplateStore,
	history HistoryStore,
	validator ResourceValidator,
	scheduler *ActivationScheduler,
	router *ChannelRouter,
	recorder EventRecorder,
) *CampaignService {
	s := &CampaignService{
		store:     store,
		templates: templates,
		history:   history,
		validator: validator,
		scheduler: scheduler,
		router:    router,
		recorder:  recorder,
		locks:     newCampaignLocks(),
		now:       time.Now,
	}
	scheduler.SetActivator(s)
	return s
}

// transitionSpec describes one lifecycle operation
type transitionSpec struct {
	op     models.Operation
	action models.ActionType
	reason string
	// prepare runs after the table check, before the state changes. It validates
	// the request and applies field changes to the loaded campaign.
	prepare func(ctx context.Context, c *models.Campaign) error
	// notify is the channel event sent after commit; empty means none
	notify NotificationKind
}

// Create creates a new Draft campaign
func (s *CampaignService) Create(ctx context.Context, req *models.CreateCampaignRequest) (*models.Campaign, error) {
	campaign := models.NewDraftCampaign(strings.TrimSpace(req.Name), strings.TrimSpace(req.Theme), req.Channel)
	campaign.Description = req.Description
	if req.Priority != "" {
		campaign.Priority = req.Priority
	}
	campaign.AgentID = req.AgentID
	campaign.SegmentID = req.SegmentID
	campaign.SurveyID = req.SurveyID

	if err := validateCampaignFields(campaign); err != nil {
		return nil, err
	}
	return s.createDraft(ctx, campaign, models.ActionCreated, "")
}

// CreateFromTemplate creates a new Draft campaign pre-filled from a template
func (s *CampaignService) CreateFromTemplate(ctx context.Context, templateID uint, req *models.FromTemplateRequest) (*models.Campaign, error) {
	template, err := s.templates.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}

	campaign := models.NewDraftCampaign(template.Name, template.Theme, template.Channel)
	campaign.Description = template.Description
	campaign.SegmentID = template.SegmentID
	campaign.SurveyID = template.SurveyID
	campaign.TemplateID = &template.ID
	if req != nil {
		if req.Name != nil {
			campaign.Name = strings.TrimSpace(*req.Name)
		}
		if req.Priority != nil {
			campaign.Priority = *req.Priority
		}
		if req.Channel != nil {
			campaign.Channel = *req.Channel
		}
	}

	if err := validateCampaignFields(campaign); err != nil {
		return nil, err
	}
	return s.createDraft(ctx, campaign, models.ActionCreated, fmt.Sprintf("created from template %d", template.ID))
}

// GetByID retrieves a campaign by ID
func (s *CampaignService) GetByID(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.store.GetByID(ctx, id)
}

// List retrieves campaigns matching the filter. Archived campaigns are hidden unless asked for.
func (s *CampaignService) List(ctx context.Context, filter models.CampaignFilter) ([]*models.Campaign, int64, error) {
	if filter.State != "" && !filter.State.IsValid() {
		return nil, 0, models.NewValidationError("state", fmt.Sprintf("unknown state %q", filter.State))
	}
	if filter.Priority != "" && !filter.Priority.IsValid() {
		return nil, 0, models.NewValidationError("priority", fmt.Sprintf("unknown priority %q", filter.Priority))
	}
	if filter.Channel != "" && !filter.Channel.IsValid() {
		return nil, 0, models.NewValidationError("execution_channel", fmt.Sprintf("unknown channel %q", filter.Channel))
	}
	if filter.Archived == nil {
		archived := false
		filter.Archived = &archived
	}

	campaigns, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list campaigns: %w", err)
	}
	return campaigns, total, nil
}

// Edit applies a partial update to a Draft or Paused campaign
func (s *CampaignService) Edit(ctx context.Context, id uint, req *models.UpdateCampaignRequest) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpEdit,
		action: models.ActionEdited,
		prepare: func(_ context.Context, c *models.Campaign) error {
			if req.Name != nil {
				c.Name = strings.TrimSpace(*req.Name)
			}
			if req.Theme != nil {
				c.Theme = strings.TrimSpace(*req.Theme)
			}
			if req.Description != nil {
				c.Description = *req.Description
			}
			if req.Priority != nil {
				c.Priority = *req.Priority
			}
			if req.Channel != nil {
				c.Channel = *req.Channel
			}
			if req.AgentID != nil {
				c.AgentID = req.AgentID
			}
			if req.SegmentID != nil {
				c.SegmentID = req.SegmentID
			}
			if req.SurveyID != nil {
				c.SurveyID = req.SurveyID
			}
			return validateCampaignFields(c)
		},
	})
}

// Schedule programs a Draft campaign for automatic activation at its start time
func (s *CampaignService) Schedule(ctx context.Context, id uint, req *models.ScheduleCampaignRequest) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpSchedule,
		action: models.ActionScheduled,
		notify: NotifyProgrammed,
		prepare: func(ctx context.Context, c *models.Campaign) error {
			if req.Start == nil || req.End == nil {
				return models.NewValidationError("scheduled_start", "start and end dates are required")
			}
			start, end := *req.Start, *req.End
			if err := s.validateWindow(start, end); err != nil {
				return err
			}
			if req.SegmentID == nil {
				return models.NewValidationError("segment_id", "is required")
			}
			if err := s.checkSegment(ctx, *req.SegmentID); err != nil {
				return err
			}
			if req.AgentID == nil {
				return models.NewValidationError("agent_id", "is required")
			}
			if err := s.checkAgent(ctx, *req.AgentID, start, end); err != nil {
				return err
			}
			if req.SurveyID != nil {
				if err := s.checkSurvey(ctx, *req.SurveyID); err != nil {
					return err
				}
			}

			c.ScheduledStart = &start
			c.ScheduledEnd = &end
			c.SegmentID = req.SegmentID
			c.AgentID = req.AgentID
			if req.SurveyID != nil {
				c.SurveyID = req.SurveyID
			}
			return nil
		},
	})
}

// Activate starts a Scheduled campaign now, regardless of its start time
func (s *CampaignService) Activate(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpActivate,
		action: models.ActionActivated,
		notify: NotifyActivated,
	})
}

// ActivateDue activates a Scheduled campaign whose start time has been reached.
// It returns false without error when the campaign is not due yet.
func (s *CampaignService) ActivateDue(ctx context.Context, id uint) (bool, error) {
	_, _, err := s.commit(ctx, id, transitionSpec{
		op:     models.OpActivate,
		action: models.ActionActivated,
		notify: NotifyActivated,
		prepare: func(_ context.Context, c *models.Campaign) error {
			if !c.DueBy(s.now()) {
				return errNotDue
			}
			return nil
		},
	})
	if errors.Is(err, errNotDue) {
		logrus.WithField("campaign_id", id).Debug("Activation skipped: start time not reached")
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Pause suspends a Live campaign
func (s *CampaignService) Pause(ctx context.Context, id uint, reason string) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpPause,
		action: models.ActionPaused,
		reason: strings.TrimSpace(reason),
		notify: NotifyPaused,
	})
}

// Resume puts a Paused campaign back to Live
func (s *CampaignService) Resume(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpResume,
		action: models.ActionResumed,
		notify: NotifyResumed,
	})
}

// Cancel stops a campaign for good
func (s *CampaignService) Cancel(ctx context.Context, id uint, reason string) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpCancel,
		action: models.ActionCancelled,
		reason: strings.TrimSpace(reason),
		notify: NotifyCancelled,
	})
}

// Finish marks a Live campaign as completed
func (s *CampaignService) Finish(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpFinish,
		action: models.ActionFinished,
	})
}

// Reschedule moves the execution window of a Scheduled or Paused campaign and re-arms it
func (s *CampaignService) Reschedule(ctx context.Context, id uint, req *models.RescheduleCampaignRequest) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpReschedule,
		action: models.ActionRescheduled,
		notify: NotifyRescheduled,
		prepare: func(ctx context.Context, c *models.Campaign) error {
			if req.Start == nil || req.End == nil {
				return models.NewValidationError("scheduled_start", "start and end dates are required")
			}
			start, end := *req.Start, *req.End
			if err := s.validateWindow(start, end); err != nil {
				return err
			}
			if c.AgentID != nil {
				if err := s.checkAgent(ctx, *c.AgentID, start, end); err != nil {
					return err
				}
			}
			c.ScheduledStart = &start
			c.ScheduledEnd = &end
			return nil
		},
	})
}

// Archive hides a Cancelled or Finished campaign from default listings
func (s *CampaignService) Archive(ctx context.Context, id uint) (*models.Campaign, error) {
	return s.transition(ctx, id, transitionSpec{
		op:     models.OpArchive,
		action: models.ActionArchived,
		prepare: func(_ context.Context, c *models.Campaign) error {
			if c.Archived {
				return models.NewValidationError("archived", "campaign is already archived")
			}
			c.Archived = true
			return nil
		},
	})
}

// Duplicate creates a Draft copy of a campaign without its schedule, agent or state
func (s *CampaignService) Duplicate(ctx context.Context, id uint) (*models.Campaign, error) {
	source, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := []rune(copyPrefix + source.Name)
	if len(name) > maxNameLength {
		name = name[:maxNameLength]
	}
	duplicate := models.NewDraftCampaign(string(name), source.Theme, source.Channel)
	duplicate.Description = source.Description
	duplicate.Priority = source.Priority
	duplicate.SegmentID = source.SegmentID
	duplicate.SurveyID = source.SurveyID
	duplicate.TemplateID = source.TemplateID

	return s.createDraft(ctx, duplicate, models.ActionDuplicated, fmt.Sprintf("duplicated from campaign %d", source.ID))
}

// Delete removes a Draft campaign. Campaigns that left Draft can only be archived.
func (s *CampaignService) Delete(ctx context.Context, id uint) error {
	unlock := s.locks.lock(id)
	defer unlock()

	campaign, err := s.store.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if _, err := campaign.State.Next(models.OpDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.scheduler.Disarm(id)

	logrus.WithField("campaign_id", id).Info("Draft campaign deleted")
	return nil
}

// History returns a page of a campaign's history, oldest first
func (s *CampaignService) History(ctx context.Context, campaignID uint, page, pageSize int) ([]*models.CampaignHistory, int64, error) {
	if _, err := s.store.GetByID(ctx, campaignID); err != nil {
		return nil, 0, err
	}
	return s.ListHistory(ctx, models.HistoryFilter{CampaignID: campaignID, Page: page, PageSize: pageSize})
}

// ListHistory returns history entries across campaigns
func (s *CampaignService) ListHistory(ctx context.Context, filter models.HistoryFilter) ([]*models.CampaignHistory, int64, error) {
	if filter.Action != "" && !filter.Action.IsValid() {
		return nil, 0, models.NewValidationError("action", fmt.Sprintf("unknown action %q", filter.Action))
	}
	entries, total, err := s.history.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list history: %w", err)
	}
	return entries, total, nil
}

// RestoreActivations arms a timer for every persisted Scheduled campaign.
// Campaigns whose start already passed are activated before it returns.
func (s *CampaignService) RestoreActivations(ctx context.Context) (int, error) {
	campaigns, err := s.store.FindAllScheduled(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load scheduled campaigns: %w", err)
	}

	var armed atomic.Int32
	var g errgroup.Group
	g.SetLimit(restoreConcurrency)
	for _, campaign := range campaigns {
		if campaign.ScheduledStart == nil {
			logrus.WithField("campaign_id", campaign.ID).Warn("Scheduled campaign has no start time, leaving it to the sweeper")
			continue
		}
		campaign := campaign
		g.Go(func() error {
			s.scheduler.Arm(campaign.ID, *campaign.ScheduledStart)
			armed.Add(1)
			return nil
		})
	}
	_ = g.Wait()

	logrus.Infof("Restored %d scheduled activation(s)", armed.Load())
	return int(armed.Load()), nil
}

func (s *CampaignService) createDraft(ctx context.Context, campaign *models.Campaign, action models.ActionType, reason string) (*models.Campaign, error) {
	if err := s.store.Create(ctx, campaign); err != nil {
		return nil, fmt.Errorf("failed to create campaign: %w", err)
	}
	logrus.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"action":      action,
		"to":          campaign.State,
	}).Info("Campaign created")

	s.recorder.Record(NewTransitionEvent(campaign.ID, action, "", campaign.State, reason))
	return campaign, nil
}

// transition commits the operation and, when the start time is already due,
// activates the campaign once the lock has been released
func (s *CampaignService) transition(ctx context.Context, id uint, t transitionSpec) (*models.Campaign, error) {
	campaign, activateNow, err := s.commit(ctx, id, t)
	if err != nil {
		return nil, err
	}
	if !activateNow {
		return campaign, nil
	}

	s.scheduler.Arm(campaign.ID, *campaign.ScheduledStart)
	fresh, err := s.store.GetByID(ctx, id)
	if err != nil {
		logrus.WithField("campaign_id", id).Warnf("Failed to reload campaign after immediate activation: %v", err)
		return campaign, nil
	}
	return fresh, nil
}

// commit runs one operation under the campaign lock and reports whether the
// campaign must be activated right away
func (s *CampaignService) commit(ctx context.Context, id uint, t transitionSpec) (*models.Campaign, bool, error) {
	unlock := s.locks.lock(id)
	defer unlock()

	var (
		campaign *models.Campaign
		prev     models.CampaignState
	)
	for attempt := 1; ; attempt++ {
		loaded, err := s.store.GetByID(ctx, id)
		if err != nil {
			return nil, false, err
		}
		if _, err := loaded.State.Next(t.op); err != nil {
			return nil, false, err
		}
		if t.prepare != nil {
			if err := t.prepare(ctx, loaded); err != nil {
				return nil, false, err
			}
		}
		prev, err = loaded.Apply(t.op)
		if err != nil {
			return nil, false, err
		}

		err = s.store.Save(ctx, loaded)
		if err == nil {
			campaign = loaded
			break
		}
		if errors.Is(err, models.ErrVersionConflict) && attempt < maxSaveAttempts {
			logrus.WithField("campaign_id", id).Debugf("Version conflict on %s, reloading (attempt %d)", t.op, attempt)
			continue
		}
		return nil, false, fmt.Errorf("failed to save campaign %d: %w", id, err)
	}

	logrus.WithFields(logrus.Fields{
		"campaign_id": campaign.ID,
		"action":      t.action,
		"from":        prev,
		"to":          campaign.State,
	}).Info("Campaign transition committed")

	activateNow := s.syncActivation(campaign)
	s.notifyAndRecord(ctx, campaign, prev, t)
	return campaign, activateNow, nil
}

// syncActivation keeps the timer in line with the committed state. It returns
// true when a Scheduled campaign is already due; arming it here would re-enter the lock.
func (s *CampaignService) syncActivation(c *models.Campaign) bool {
	if !c.State.Armable() || c.ScheduledStart == nil {
		s.scheduler.Disarm(c.ID)
		return false
	}
	if c.DueBy(s.now()) {
		s.scheduler.Disarm(c.ID)
		return true
	}
	s.scheduler.armTimer(c.ID, *c.ScheduledStart)
	return false
}

func (s *CampaignService) notifyAndRecord(ctx context.Context, c *models.Campaign, prev models.CampaignState, t transitionSpec) {
	var execErr error
	if t.notify != "" {
		// The dispatch outlives a cancelled request
		execErr = s.router.Route(context.WithoutCancel(ctx), c, Notification{Kind: t.notify, Reason: t.reason})
	}

	// A failed activation is recorded as an execution error instead of Activated
	if execErr != nil && t.op == models.OpActivate {
		s.reportExecutionError(c, execErr)
		return
	}

	s.recorder.Record(NewTransitionEvent(c.ID, t.action, prev, c.State, t.reason))
	if execErr != nil {
		s.reportExecutionError(c, execErr)
	}
}

func (s *CampaignService) reportExecutionError(c *models.Campaign, err error) {
	logrus.WithFields(logrus.Fields{
		"campaign_id": c.ID,
		"channel":     c.Channel,
		"state":       c.State,
	}).Errorf("Channel execution failed: %v", err)
	utils.CaptureError(err, map[string]string{
		"component": "channel_router",
		"channel":   string(c.Channel),
	})
	s.recorder.Record(NewTransitionEvent(c.ID, models.ActionExecutionError, c.State, c.State, err.Error()))
}

func (s *CampaignService) validateWindow(start, end time.Time) error {
	if start.Before(s.now()) {
		return models.NewValidationError("scheduled_start", "must not be in the past")
	}
	if !start.Before(end) {
		return models.NewValidationError("scheduled_end", "must be after the start date")
	}
	return nil
}

func (s *CampaignService) checkSegment(ctx context.Context, segmentID uint) error {
	ok, err := s.validator.SegmentExists(ctx, segmentID)
	if err != nil {
		return &models.ValidationError{Field: "segment_id", Message: "could not verify segment", Err: err}
	}
	if !ok {
		return models.NewValidationError("segment_id", fmt.Sprintf("segment %d does not exist", segmentID))
	}
	return nil
}

func (s *CampaignService) checkAgent(ctx context.Context, agentID uint, start, end time.Time) error {
	ok, err := s.validator.AgentAvailable(ctx, agentID, start, end)
	if err != nil {
		return &models.ValidationError{Field: "agent_id", Message: "could not verify agent availability", Err: err}
	}
	if !ok {
		return models.NewValidationError("agent_id", fmt.Sprintf("agent %d is not available for the requested window", agentID))
	}
	return nil
}

func (s *CampaignService) checkSurvey(ctx context.Context, surveyID uint) error {
	ok, err := s.validator.SurveyExists(ctx, surveyID)
	if err != nil {
		return &models.ValidationError{Field: "survey_id", Message: "could not verify survey", Err: err}
	}
	if !ok {
		return models.NewValidationError("survey_id", fmt.Sprintf("survey %d does not exist", surveyID))
	}
	return nil
}

func validateCampaignFields(c *models.Campaign) error {
	if c.Name == "" {
		return models.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(c.Name) > maxNameLength {
		return models.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	if c.Theme == "" {
		return models.NewValidationError("theme", "is required")
	}
	if utf8.RuneCountInString(c.Theme) > maxThemeLength {
		return models.NewValidationError("theme", fmt.Sprintf("must be at most %d characters", maxThemeLength))
	}
	if !c.Channel.IsValid() {
		return models.NewValidationError("execution_channel", fmt.Sprintf("must be %s or %s", models.ChannelMailing, models.ChannelCalls))
	}
	if !c.Priority.IsValid() {
		return models.NewValidationError("priority", fmt.Sprintf("must be %s, %s or %s", models.PriorityHigh, models.PriorityMedium, models.PriorityLow))
	}
	return nil
}
