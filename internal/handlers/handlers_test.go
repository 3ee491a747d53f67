package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubCampaignStore struct {
	mu        sync.Mutex
	campaigns map[uint]*models.Campaign
	nextID    uint
}

func (s *stubCampaignStore) GetByID(_ context.Context, id uint) (*models.Campaign, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.campaigns[id]
	if !ok {
		return nil, models.ErrCampaignNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *stubCampaignStore) Create(_ context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	c.ID = s.nextID
	c.CreatedAt = time.Now()
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *stubCampaignStore) Save(_ context.Context, c *models.Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.Version++
	cp := *c
	s.campaigns[c.ID] = &cp
	return nil
}

func (s *stubCampaignStore) FindScheduledDueBy(context.Context, time.Time) ([]*models.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignStore) FindAllScheduled(context.Context) ([]*models.Campaign, error) {
	return nil, nil
}

func (s *stubCampaignStore) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.campaigns, id)
	return nil
}

func (s *stubCampaignStore) List(_ context.Context, filter models.CampaignFilter) ([]*models.Campaign, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Campaign
	for id := uint(1); id <= s.nextID; id++ {
		if c, ok := s.campaigns[id]; ok && (filter.State == "" || c.State == filter.State) {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, int64(len(out)), nil
}

// stubHistory stores events synchronously so responses can be checked right away
type stubHistory struct {
	mu      sync.Mutex
	entries []*models.CampaignHistory
}

func (h *stubHistory) Record(event services.TransitionEvent) {
	_ = h.Create(context.Background(), &models.CampaignHistory{
		EventID:    event.EventID,
		CampaignID: event.CampaignID,
		Action:     event.Action,
		OccurredAt: event.OccurredAt,
		Detail:     event.Detail(),
		Reason:     event.Reason,
	})
}

func (h *stubHistory) Create(_ context.Context, entry *models.CampaignHistory) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	entry.ID = uint(len(h.entries) + 1)
	h.entries = append(h.entries, entry)
	return nil
}

func (h *stubHistory) List(_ context.Context, filter models.HistoryFilter) ([]*models.CampaignHistory, int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	var out []*models.CampaignHistory
	for _, e := range h.entries {
		if filter.CampaignID == 0 || e.CampaignID == filter.CampaignID {
			out = append(out, e)
		}
	}
	return out, int64(len(out)), nil
}

type stubTemplates struct {
	mu        sync.Mutex
	templates map[uint]*models.CampaignTemplate
	nextID    uint
}

func (s *stubTemplates) Create(_ context.Context, t *models.CampaignTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t.ID = s.nextID
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *stubTemplates) GetByID(_ context.Context, id uint) (*models.CampaignTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, models.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *stubTemplates) Save(_ context.Context, t *models.CampaignTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *t
	s.templates[t.ID] = &cp
	return nil
}

func (s *stubTemplates) Delete(_ context.Context, id uint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.templates[id]; !ok {
		return models.ErrTemplateNotFound
	}
	delete(s.templates, id)
	return nil
}

func (s *stubTemplates) List(context.Context, string, models.Channel, int, int) ([]*models.CampaignTemplate, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.CampaignTemplate
	for _, t := range s.templates {
		out = append(out, t)
	}
	return out, int64(len(out)), nil
}

type allowAll struct{}

func (allowAll) SegmentExists(context.Context, uint) (bool, error) { return true, nil }
func (allowAll) SurveyExists(context.Context, uint) (bool, error)  { return true, nil }
func (allowAll) AgentAvailable(context.Context, uint, time.Time, time.Time) (bool, error) {
	return true, nil
}

func setupTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := &stubCampaignStore{campaigns: make(map[uint]*models.Campaign)}
	history := &stubHistory{}
	templates := &stubTemplates{templates: make(map[uint]*models.CampaignTemplate)}
	publisher := services.Publisher(nil)
	router := services.NewChannelRouter(time.Second, map[models.Channel]services.ChannelExecutor{
		models.ChannelMailing: services.NewMailingExecutor(publisher, "mailing"),
		models.ChannelCalls:   services.NewCallsExecutor(publisher, "calls"),
	})
	scheduler := services.NewActivationScheduler(time.Second)
	t.Cleanup(scheduler.Stop)

	campaignService := services.NewCampaignService(store, templates, history, allowAll{}, scheduler, router, history)
	campaignHandler := NewCampaignHandler(campaignService)
	historyHandler := NewHistoryHandler(campaignService, services.NewSSEHub())
	templateHandler := NewTemplateHandler(services.NewTemplateService(templates))

	r := gin.New()
	api := r.Group("/api/v1")
	api.POST("/campaigns", campaignHandler.CreateCampaign)
	api.GET("/campaigns", campaignHandler.ListCampaigns)
	api.POST("/campaigns/from-template/:templateId", campaignHandler.CreateFromTemplate)
	api.GET("/campaigns/:id", campaignHandler.GetCampaignByID)
	api.PUT("/campaigns/:id", campaignHandler.UpdateCampaign)
	api.DELETE("/campaigns/:id", campaignHandler.DeleteCampaign)
	api.POST("/campaigns/:id/schedule", campaignHandler.ScheduleCampaign)
	api.POST("/campaigns/:id/activate", campaignHandler.ActivateCampaign)
	api.POST("/campaigns/:id/pause", campaignHandler.PauseCampaign)
	api.POST("/campaigns/:id/cancel", campaignHandler.CancelCampaign)
	api.POST("/campaigns/:id/duplicate", campaignHandler.DuplicateCampaign)
	api.GET("/campaigns/:id/history", historyHandler.GetCampaignHistory)
	api.GET("/history", historyHandler.ListHistory)
	api.POST("/templates", templateHandler.CreateTemplate)
	api.GET("/templates/:id", templateHandler.GetTemplateByID)
	return r
}

func doJSON(r http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func createDraft(t *testing.T, r http.Handler) uint {
	t.Helper()
	w := doJSON(r, http.MethodPost, "/api/v1/campaigns", gin.H{
		"name":              "Spring promo",
		"theme":             "Enrollment",
		"execution_channel": "Mailing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return uint(decode(t, w)["id"].(float64))
}

func TestCampaignHandler_Create(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/campaigns", gin.H{
		"name":              "Spring promo",
		"theme":             "Enrollment",
		"execution_channel": "Calls",
		"priority":          "High",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	body := decode(t, w)
	assert.Equal(t, "Draft", body["state"])
	assert.Equal(t, "High", body["priority"])
	assert.Equal(t, []interface{}{"schedule", "edit", "delete"}, body["allowed_operations"])
}

func TestCampaignHandler_CreateInvalid(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/campaigns", gin.H{"name": "only a name"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/campaigns", gin.H{
		"name":              "Spring promo",
		"theme":             "Enrollment",
		"execution_channel": "Fax",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "execution_channel", decode(t, w)["field"])
}

func TestCampaignHandler_GetByID(t *testing.T) {
	r := setupTestRouter(t)
	id := createDraft(t, r)

	w := doJSON(r, http.MethodGet, "/api/v1/campaigns/"+itoa(id), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/campaigns/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/campaigns/0", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/campaigns/999", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaignHandler_Lifecycle(t *testing.T) {
	r := setupTestRouter(t)
	id := createDraft(t, r)
	base := "/api/v1/campaigns/" + itoa(id)

	start := time.Now().Add(time.Hour).UTC()
	w := doJSON(r, http.MethodPost, base+"/schedule", gin.H{
		"scheduled_start": start.Format(time.RFC3339),
		"scheduled_end":   start.Add(8 * time.Hour).Format(time.RFC3339),
		"agent_id":        7,
		"segment_id":      12,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Scheduled", decode(t, w)["state"])

	// Illegal in Scheduled
	w = doJSON(r, http.MethodPost, base+"/pause", nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doJSON(r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// Executors are unavailable: the campaign still goes Live
	w = doJSON(r, http.MethodPost, base+"/activate", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Live", decode(t, w)["state"])

	w = doJSON(r, http.MethodPost, base+"/pause", gin.H{"reason": "budget exhausted"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Paused", decode(t, w)["state"])

	w = doJSON(r, http.MethodGet, base+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	entries := body["data"].([]interface{})
	var actions []string
	for _, e := range entries {
		actions = append(actions, e.(map[string]interface{})["action"].(string))
	}
	assert.Contains(t, actions, "Created")
	assert.Contains(t, actions, "Scheduled")
	assert.Contains(t, actions, "Paused")
	assert.Contains(t, actions, "ExecutionError")
	assert.NotContains(t, actions, "Activated")
}

func TestCampaignHandler_ScheduleValidation(t *testing.T) {
	r := setupTestRouter(t)
	id := createDraft(t, r)

	past := time.Now().Add(-time.Hour).UTC()
	w := doJSON(r, http.MethodPost, "/api/v1/campaigns/"+itoa(id)+"/schedule", gin.H{
		"scheduled_start": past.Format(time.RFC3339),
		"scheduled_end":   past.Add(time.Hour).Format(time.RFC3339),
		"agent_id":        7,
		"segment_id":      12,
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "scheduled_start", decode(t, w)["field"])

	w = doJSON(r, http.MethodPost, "/api/v1/campaigns/"+itoa(id)+"/schedule", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCampaignHandler_UpdateDeleteDuplicate(t *testing.T) {
	r := setupTestRouter(t)
	id := createDraft(t, r)
	base := "/api/v1/campaigns/" + itoa(id)

	w := doJSON(r, http.MethodPut, base, gin.H{"name": "Autumn promo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Autumn promo", decode(t, w)["name"])

	w = doJSON(r, http.MethodPost, base+"/duplicate", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "Copy of Autumn promo", decode(t, w)["name"])

	w = doJSON(r, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCampaignHandler_List(t *testing.T) {
	r := setupTestRouter(t)
	createDraft(t, r)
	createDraft(t, r)

	w := doJSON(r, http.MethodGet, "/api/v1/campaigns?state=Draft&page=1&limit=10", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.EqualValues(t, 2, body["total"])
	assert.EqualValues(t, 10, body["limit"])
	assert.Len(t, body["data"], 2)

	w = doJSON(r, http.MethodGet, "/api/v1/campaigns?state=Sleeping", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHistoryHandler_ListHistory(t *testing.T) {
	r := setupTestRouter(t)
	id := createDraft(t, r)

	w := doJSON(r, http.MethodGet, "/api/v1/history?campaign_id="+itoa(id), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode(t, w)["total"])

	w = doJSON(r, http.MethodGet, "/api/v1/history?campaign_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/history?action=Exploded", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(r, http.MethodGet, "/api/v1/campaigns/999/history", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTemplateHandler_CreateAndInstantiate(t *testing.T) {
	r := setupTestRouter(t)

	w := doJSON(r, http.MethodPost, "/api/v1/templates", gin.H{
		"name":              "Monthly newsletter",
		"theme":             "Newsletter",
		"execution_channel": "Mailing",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	templateID := uint(decode(t, w)["id"].(float64))

	w = doJSON(r, http.MethodGet, "/api/v1/templates/"+itoa(templateID), nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodPost, "/api/v1/campaigns/from-template/"+itoa(templateID), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Monthly newsletter", body["name"])
	assert.EqualValues(t, templateID, body["template_id"])

	w = doJSON(r, http.MethodPost, "/api/v1/campaigns/from-template/77", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
