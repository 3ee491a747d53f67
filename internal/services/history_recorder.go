package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"
	"github.com/sirupsen/logrus"
)

// TransitionEvent is emitted after a lifecycle transition has been committed
type TransitionEvent struct {
	EventID       string
	CampaignID    uint
	Action        models.ActionType
	PreviousState models.CampaignState
	NewState      models.CampaignState
	Reason        string
	OccurredAt    time.Time
}

// NewTransitionEvent creates an event stamped with a fresh id and the current time
func NewTransitionEvent(campaignID uint, action models.ActionType, prev, next models.CampaignState, reason string) TransitionEvent {
	return TransitionEvent{
		EventID:       uuid.NewString(),
		CampaignID:    campaignID,
		Action:        action,
		PreviousState: prev,
		NewState:      next,
		Reason:        reason,
		OccurredAt:    time.Now(),
	}
}

// Detail renders the human readable description stored with the history entry
func (e TransitionEvent) Detail() string {
	detail := fmt.Sprintf("state: %s", e.NewState)
	if e.PreviousState != "" {
		detail = fmt.Sprintf("state: %s → %s", e.PreviousState, e.NewState)
	}
	if e.Reason != "" {
		detail += ". Reason: " + e.Reason
	}
	return detail
}

// HistoryBroadcaster receives history entries once they are stored
type HistoryBroadcaster interface {
	BroadcastHistory(entry *models.CampaignHistory)
}

// HistoryRecorder turns transition events into history rows off the caller's path.
// Events for one campaign always land on the same shard, so they are stored in emission order.
type HistoryRecorder struct {
	store   HistoryStore
	hub     HistoryBroadcaster
	timeout time.Duration

	mu      sync.RWMutex
	shards  []chan TransitionEvent
	started bool
	closed  bool
	wg      sync.WaitGroup
}

// NewHistoryRecorder creates a recorder with the given number of shards sharing bufferSize slots
func NewHistoryRecorder(store HistoryStore, hub HistoryBroadcaster, workers, bufferSize int, timeout time.Duration) *HistoryRecorder {
	if workers < 1 {
		workers = 1
	}
	perShard := bufferSize / workers
	if perShard < 1 {
		perShard = 1
	}

	shards := make([]chan TransitionEvent, workers)
	for i := range shards {
		shards[i] = make(chan TransitionEvent, perShard)
	}

	return &HistoryRecorder{
		store:   store,
		hub:     hub,
		timeout: timeout,
		shards:  shards,
	}
}

// Start starts one consumer goroutine per shard
func (r *HistoryRecorder) Start() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started || r.closed {
		return
	}
	r.started = true

	for i, shard := range r.shards {
		r.wg.Add(1)
		go r.consume(i, shard)
	}
	logrus.Infof("History recorder started (%d workers)", len(r.shards))
}

// Record enqueues the event and returns immediately. A full queue drops the event
// and reports it as an audit recording failure.
func (r *HistoryRecorder) Record(event TransitionEvent) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		r.reportFailure(event, fmt.Errorf("recorder is stopped"))
		return
	}

	shard := r.shards[int(event.CampaignID%uint(len(r.shards)))]
	select {
	case shard <- event:
	default:
		r.reportFailure(event, fmt.Errorf("history queue is full"))
	}
}

// Stop closes the queues and waits until buffered events are stored
func (r *HistoryRecorder) Stop() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	for _, shard := range r.shards {
		close(shard)
	}
	started := r.started
	r.mu.Unlock()

	if started {
		r.wg.Wait()
	}
	logrus.Info("History recorder stopped")
}

func (r *HistoryRecorder) consume(worker int, events <-chan TransitionEvent) {
	defer r.wg.Done()
	for event := range events {
		r.persist(event)
	}
	logrus.Debugf("History worker %d drained", worker)
}

func (r *HistoryRecorder) persist(event TransitionEvent) {
	entry := &models.CampaignHistory{
		EventID:    event.EventID,
		CampaignID: event.CampaignID,
		Action:     event.Action,
		OccurredAt: event.OccurredAt,
		Detail:     event.Detail(),
		Reason:     event.Reason,
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	if err := r.store.Create(ctx, entry); err != nil {
		r.reportFailure(event, err)
		return
	}

	if r.hub != nil {
		r.hub.BroadcastHistory(entry)
	}
}

func (r *HistoryRecorder) reportFailure(event TransitionEvent, cause error) {
	err := &models.AuditRecordingError{
		EventID:    event.EventID,
		CampaignID: event.CampaignID,
		Action:     event.Action,
		Err:        cause,
	}
	logrus.WithFields(logrus.Fields{
		"campaign_id": event.CampaignID,
		"action":      event.Action,
		"event_id":    event.EventID,
	}).Error(err.Error())
	utils.CaptureError(err, map[string]string{
		"component": "history_recorder",
		"action":    string(event.Action),
	})
}
