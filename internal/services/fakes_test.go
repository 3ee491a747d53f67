package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
)

// memoryCampaignStore is a CampaignStore with the same version check as the database
type memoryCampaignStore struct {
	mu        sync.Mutex
	campaigns map[uint]*models.Campaign
	nextID    uint
	saves     int
	conflicts int
	saveErr   error
	lastList  models.CampaignFilter
}

func newMemoryCampaignStore() *memoryCampaignStore {
	return &memoryCampaignStore{campaigns: make(map[uint]*models.Campaign)}
}

func (m *memoryCampaignStore) GetByID(_ context.Context, id uint) (*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, models.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memoryCampaignStore) Create(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	if c.Version == 0 {
		c.Version = 1
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memoryCampaignStore) Save(_ context.Context, c *models.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.saveErr != nil {
		return m.saveErr
	}
	if m.conflicts > 0 {
		m.conflicts--
		return models.ErrVersionConflict
	}
	stored, ok := m.campaigns[c.ID]
	if !ok {
		return models.ErrCampaignNotFound
	}
	if stored.Version != c.Version {
		return models.ErrVersionConflict
	}
	c.Version++
	c.UpdatedAt = time.Now()
	cp := *c
	m.campaigns[c.ID] = &cp
	return nil
}

func (m *memoryCampaignStore) FindScheduledDueBy(_ context.Context, t time.Time) ([]*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []*models.Campaign
	for _, c := range m.campaigns {
		if c.State == models.StateScheduled && c.DueBy(t) {
			cp := *c
			due = append(due, &cp)
		}
	}
	return due, nil
}

func (m *memoryCampaignStore) FindAllScheduled(_ context.Context) ([]*models.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var scheduled []*models.Campaign
	for _, c := range m.campaigns {
		if c.State == models.StateScheduled {
			cp := *c
			scheduled = append(scheduled, &cp)
		}
	}
	return scheduled, nil
}

func (m *memoryCampaignStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.campaigns[id]; !ok {
		return models.ErrCampaignNotFound
	}
	delete(m.campaigns, id)
	return nil
}

func (m *memoryCampaignStore) List(_ context.Context, filter models.CampaignFilter) ([]*models.Campaign, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastList = filter
	var out []*models.Campaign
	for id := uint(1); id <= m.nextID; id++ {
		c, ok := m.campaigns[id]
		if !ok {
			continue
		}
		if filter.State != "" && c.State != filter.State {
			continue
		}
		if filter.Archived != nil && c.Archived != *filter.Archived {
			continue
		}
		if filter.Name != "" && !strings.Contains(strings.ToLower(c.Name), strings.ToLower(filter.Name)) {
			continue
		}
		cp := *c
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

// put stores a campaign as is, bypassing the lifecycle
func (m *memoryCampaignStore) put(c *models.Campaign) *models.Campaign {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	c.ID = m.nextID
	if c.Version == 0 {
		c.Version = 1
	}
	cp := *c
	m.campaigns[c.ID] = &cp
	return c
}

func (m *memoryCampaignStore) state(id uint) models.CampaignState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.campaigns[id]; ok {
		return c.State
	}
	return ""
}

func (m *memoryCampaignStore) saveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

type memoryHistoryStore struct {
	mu      sync.Mutex
	entries []*models.CampaignHistory
	err     error
	delay   time.Duration
}

func (m *memoryHistoryStore) Create(ctx context.Context, entry *models.CampaignHistory) error {
	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.entries {
		if existing.EventID == entry.EventID {
			return nil
		}
	}
	entry.ID = uint(len(m.entries) + 1)
	cp := *entry
	m.entries = append(m.entries, &cp)
	return nil
}

func (m *memoryHistoryStore) List(_ context.Context, filter models.HistoryFilter) ([]*models.CampaignHistory, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CampaignHistory
	for _, e := range m.entries {
		if filter.CampaignID != 0 && e.CampaignID != filter.CampaignID {
			continue
		}
		if filter.Action != "" && e.Action != filter.Action {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

func (m *memoryHistoryStore) actions(campaignID uint) []models.ActionType {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ActionType
	for _, e := range m.entries {
		if e.CampaignID == campaignID {
			out = append(out, e.Action)
		}
	}
	return out
}

type memoryTemplateStore struct {
	mu        sync.Mutex
	templates map[uint]*models.CampaignTemplate
	nextID    uint
}

func newMemoryTemplateStore() *memoryTemplateStore {
	return &memoryTemplateStore{templates: make(map[uint]*models.CampaignTemplate)}
}

func (m *memoryTemplateStore) Create(_ context.Context, t *models.CampaignTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	t.ID = m.nextID
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memoryTemplateStore) GetByID(_ context.Context, id uint) (*models.CampaignTemplate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.templates[id]
	if !ok {
		return nil, models.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *memoryTemplateStore) Save(_ context.Context, t *models.CampaignTemplate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[t.ID]; !ok {
		return models.ErrTemplateNotFound
	}
	cp := *t
	m.templates[t.ID] = &cp
	return nil
}

func (m *memoryTemplateStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.templates[id]; !ok {
		return models.ErrTemplateNotFound
	}
	delete(m.templates, id)
	return nil
}

func (m *memoryTemplateStore) List(_ context.Context, name string, channel models.Channel, _, _ int) ([]*models.CampaignTemplate, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.CampaignTemplate
	for id := uint(1); id <= m.nextID; id++ {
		t, ok := m.templates[id]
		if !ok {
			continue
		}
		if channel != "" && t.Channel != channel {
			continue
		}
		if name != "" && !strings.Contains(strings.ToLower(t.Name), strings.ToLower(name)) {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out, int64(len(out)), nil
}

type fakeValidator struct {
	mu              sync.Mutex
	missingSegments map[uint]bool
	missingSurveys  map[uint]bool
	busyAgents      map[uint]bool
	err             error
	onAgentCheck    func()
}

func (f *fakeValidator) SegmentExists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return !f.missingSegments[id], nil
}

func (f *fakeValidator) SurveyExists(_ context.Context, id uint) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return false, f.err
	}
	return !f.missingSurveys[id], nil
}

func (f *fakeValidator) AgentAvailable(_ context.Context, id uint, _, _ time.Time) (bool, error) {
	f.mu.Lock()
	hook := f.onAgentCheck
	busy := f.busyAgents[id]
	err := f.err
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return false, err
	}
	return !busy, nil
}

// recordingExecutor counts the notifications it receives. Failures are injected per kind.
type recordingExecutor struct {
	mu      sync.Mutex
	calls   []NotificationKind
	reasons []string
	fail    map[NotificationKind]error
	block   chan struct{}
}

func newRecordingExecutor() *recordingExecutor {
	return &recordingExecutor{fail: make(map[NotificationKind]error)}
}

func (e *recordingExecutor) record(kind NotificationKind, reason string) error {
	e.mu.Lock()
	e.calls = append(e.calls, kind)
	e.reasons = append(e.reasons, reason)
	err := e.fail[kind]
	block := e.block
	e.mu.Unlock()
	if block != nil {
		<-block
	}
	return err
}

func (e *recordingExecutor) Schedule(_ context.Context, _ *models.Campaign) error {
	return e.record(NotifyProgrammed, "")
}

func (e *recordingExecutor) Activate(_ context.Context, _ *models.Campaign) error {
	return e.record(NotifyActivated, "")
}

func (e *recordingExecutor) NotifyPaused(_ context.Context, _ *models.Campaign, reason string) error {
	return e.record(NotifyPaused, reason)
}

func (e *recordingExecutor) NotifyCancelled(_ context.Context, _ *models.Campaign, reason string) error {
	return e.record(NotifyCancelled, reason)
}

func (e *recordingExecutor) NotifyResumed(_ context.Context, _ *models.Campaign) error {
	return e.record(NotifyResumed, "")
}

func (e *recordingExecutor) Reschedule(_ context.Context, _ *models.Campaign) error {
	return e.record(NotifyRescheduled, "")
}

func (e *recordingExecutor) failOn(kind NotificationKind, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.fail[kind] = err
}

func (e *recordingExecutor) count(kind NotificationKind) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, k := range e.calls {
		if k == kind {
			n++
		}
	}
	return n
}

func (e *recordingExecutor) kinds() []NotificationKind {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]NotificationKind(nil), e.calls...)
}

// syncRecorder stores events as they are recorded
type syncRecorder struct {
	mu     sync.Mutex
	events []TransitionEvent
}

func (r *syncRecorder) Record(event TransitionEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *syncRecorder) actions(campaignID uint) []models.ActionType {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.ActionType
	for _, e := range r.events {
		if e.CampaignID == campaignID {
			out = append(out, e.Action)
		}
	}
	return out
}

func (r *syncRecorder) last(campaignID uint) (TransitionEvent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.events) - 1; i >= 0; i-- {
		if r.events[i].CampaignID == campaignID {
			return r.events[i], true
		}
	}
	return TransitionEvent{}, false
}

type publishedMessage struct {
	queue     string
	messageID string
	payload   interface{}
}

type fakePublisher struct {
	mu       sync.Mutex
	messages []publishedMessage
	err      error
}

func (p *fakePublisher) Publish(_ context.Context, queue, messageID string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.messages = append(p.messages, publishedMessage{queue: queue, messageID: messageID, payload: payload})
	return nil
}

func (p *fakePublisher) sent() []publishedMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]publishedMessage(nil), p.messages...)
}

// testClock is wall time shifted by an adjustable offset
type testClock struct {
	mu     sync.Mutex
	offset time.Duration
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return time.Now().Add(c.offset)
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offset += d
}

var errExecutorDown = errors.New("executor unreachable")

// engine bundles a CampaignService with its in-memory collaborators
type engine struct {
	svc       *CampaignService
	store     *memoryCampaignStore
	history   *memoryHistoryStore
	templates *memoryTemplateStore
	validator *fakeValidator
	scheduler *ActivationScheduler
	executor  *recordingExecutor
	recorder  *syncRecorder
	clock     *testClock
}

func newEngine() *engine {
	e := &engine{
		store:     newMemoryCampaignStore(),
		history:   &memoryHistoryStore{},
		templates: newMemoryTemplateStore(),
		validator: &fakeValidator{},
		scheduler: NewActivationScheduler(5 * time.Second),
		executor:  newRecordingExecutor(),
		recorder:  &syncRecorder{},
		clock:     &testClock{},
	}
	e.scheduler.now = e.clock.Now
	router := NewChannelRouter(time.Second, map[models.Channel]ChannelExecutor{
		models.ChannelMailing: e.executor,
		models.ChannelCalls:   e.executor,
	})
	e.svc = NewCampaignService(e.store, e.templates, e.history, e.validator, e.scheduler, router, e.recorder)
	e.svc.now = e.clock.Now
	return e
}

func uintPtr(v uint) *uint { return &v }
