package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/services"

	"github.com/gin-gonic/gin"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
}

func NewCampaignHandler(campaignService *services.CampaignService) *CampaignHandler {
	return &CampaignHandler{
		campaignService: campaignService,
	}
}

// CreateCampaign godoc
// @Summary Create a new campaign
// @Description Create a new campaign in Draft state
// @Tags campaigns
// @Accept json
// @Produce json
// @Param request body models.CreateCampaignRequest true "Create campaign request"
// @Success 201 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [post]
func (h *CampaignHandler) CreateCampaign(c *gin.Context) {
	var req models.CreateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign, err := h.campaignService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "Failed to create campaign")
		return
	}

	c.JSON(http.StatusCreated, campaign.ToResponse())
}

// CreateFromTemplate godoc
// @Summary Create a campaign from a template
// @Description Create a Draft campaign pre-filled from a template. Name, priority and channel can be overridden.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param templateId path int true "Template ID"
// @Param request body models.FromTemplateRequest false "Overrides"
// @Success 201 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/from-template/{templateId} [post]
func (h *CampaignHandler) CreateFromTemplate(c *gin.Context) {
	templateID, ok := parseID(c, "templateId")
	if !ok {
		return
	}

	var req models.FromTemplateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
			return
		}
	}

	campaign, err := h.campaignService.CreateFromTemplate(c.Request.Context(), templateID, &req)
	if err != nil {
		respondError(c, err, "Failed to create campaign from template")
		return
	}

	c.JSON(http.StatusCreated, campaign.ToResponse())
}

// ListCampaigns godoc
// @Summary List campaigns
// @Description List campaigns with optional filters. Archived campaigns are hidden unless archived=true.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param name query string false "Name contains (case-insensitive)"
// @Param state query string false "State" Enums(Draft, Scheduled, Live, Paused, Cancelled, Finished)
// @Param priority query string false "Priority" Enums(High, Medium, Low)
// @Param execution_channel query string false "Channel" Enums(Mailing, Calls)
// @Param archived query bool false "Show archived campaigns instead"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns [get]
func (h *CampaignHandler) ListCampaigns(c *gin.Context) {
	page, pageSize := parsePagination(c)
	filter := models.CampaignFilter{
		Name:     c.Query("name"),
		State:    models.CampaignState(c.Query("state")),
		Priority: models.Priority(c.Query("priority")),
		Channel:  models.Channel(c.Query("execution_channel")),
		Page:     page,
		PageSize: pageSize,
	}
	if raw := c.Query("archived"); raw != "" {
		archived, err := strconv.ParseBool(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid archived flag", "details": err.Error()})
			return
		}
		filter.Archived = &archived
	}

	campaigns, total, err := h.campaignService.List(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list campaigns")
		return
	}

	responses := make([]*models.CampaignResponse, len(campaigns))
	for i, campaign := range campaigns {
		responses[i] = campaign.ToResponse()
	}

	c.JSON(http.StatusOK, paginatedResponse(responses, total, page, pageSize))
}

// GetCampaignByID godoc
// @Summary Get campaign by ID
// @Description Get a campaign with the operations currently allowed on it
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [get]
func (h *CampaignHandler) GetCampaignByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := h.campaignService.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to get campaign")
		return
	}

	c.JSON(http.StatusOK, campaign.ToResponse())
}

// UpdateCampaign godoc
// @Summary Edit campaign
// @Description Partially update a Draft or Paused campaign
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param request body models.UpdateCampaignRequest true "Fields to change"
// @Success 200 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [put]
func (h *CampaignHandler) UpdateCampaign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.UpdateCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign, err := h.campaignService.Edit(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to update campaign")
		return
	}

	c.JSON(http.StatusOK, campaign.ToResponse())
}

// DeleteCampaign godoc
// @Summary Delete campaign
// @Description Delete a Draft campaign. Campaigns that left Draft can only be archived.
// @Tags campaigns
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id} [delete]
func (h *CampaignHandler) DeleteCampaign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.campaignService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err, "Failed to delete campaign")
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Campaign deleted successfully"})
}

// ScheduleCampaign godoc
// @Summary Schedule campaign
// @Description Program a Draft campaign for automatic activation at its start date
// @Tags campaign-lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param request body models.ScheduleCampaignRequest true "Schedule request"
// @Success 200 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/schedule [post]
func (h *CampaignHandler) ScheduleCampaign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.ScheduleCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign, err := h.campaignService.Schedule(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to schedule campaign")
		return
	}

	c.JSON(http.StatusOK, campaign.ToResponse())
}

// ActivateCampaign godoc
// @Summary Activate campaign
// @Description Start a Scheduled campaign now
// @Tags campaign-lifecycle
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} models.CampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/activate [post]
func (h *CampaignHandler) ActivateCampaign(c *gin.Context) {
	h.simpleTransition(c, h.campaignService.Activate, "Failed to activate campaign")
}

// PauseCampaign godoc
// @Summary Pause campaign
// @Description Pause a Live campaign
// @Tags campaign-lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param request body models.ReasonRequest false "Reason"
// @Success 200 {object} models.CampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/pause [post]
func (h *CampaignHandler) PauseCampaign(c *gin.Context) {
	h.reasonTransition(c, h.campaignService.Pause, "Failed to pause campaign")
}

// ResumeCampaign godoc
// @Summary Resume campaign
// @Description Put a Paused campaign back to Live
// @Tags campaign-lifecycle
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} models.CampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/resume [post]
func (h *CampaignHandler) ResumeCampaign(c *gin.Context) {
	h.simpleTransition(c, h.campaignService.Resume, "Failed to resume campaign")
}

// CancelCampaign godoc
// @Summary Cancel campaign
// @Description Cancel a Scheduled, Live or Paused campaign permanently
// @Tags campaign-lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param request body models.ReasonRequest false "Reason"
// @Success 200 {object} models.CampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/cancel [post]
func (h *CampaignHandler) CancelCampaign(c *gin.Context) {
	h.reasonTransition(c, h.campaignService.Cancel, "Failed to cancel campaign")
}

// FinishCampaign godoc
// @Summary Finish campaign
// @Description Mark a Live campaign as finished
// @Tags campaign-lifecycle
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} models.CampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/finish [post]
func (h *CampaignHandler) FinishCampaign(c *gin.Context) {
	h.simpleTransition(c, h.campaignService.Finish, "Failed to finish campaign")
}

// RescheduleCampaign godoc
// @Summary Reschedule campaign
// @Description Move the execution window of a Scheduled or Paused campaign. The campaign ends up Scheduled.
// @Tags campaign-lifecycle
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param request body models.RescheduleCampaignRequest true "New window"
// @Success 200 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/reschedule [post]
func (h *CampaignHandler) RescheduleCampaign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.RescheduleCampaignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
		return
	}

	campaign, err := h.campaignService.Reschedule(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, err, "Failed to reschedule campaign")
		return
	}

	c.JSON(http.StatusOK, campaign.ToResponse())
}

// ArchiveCampaign godoc
// @Summary Archive campaign
// @Description Archive a Cancelled or Finished campaign
// @Tags campaign-lifecycle
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 200 {object} models.CampaignResponse
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/archive [post]
func (h *CampaignHandler) ArchiveCampaign(c *gin.Context) {
	h.simpleTransition(c, h.campaignService.Archive, "Failed to archive campaign")
}

// DuplicateCampaign godoc
// @Summary Duplicate campaign
// @Description Create a Draft copy of a campaign without its schedule or agent
// @Tags campaigns
// @Produce json
// @Param id path int true "Campaign ID"
// @Success 201 {object} models.CampaignResponse
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/duplicate [post]
func (h *CampaignHandler) DuplicateCampaign(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := h.campaignService.Duplicate(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "Failed to duplicate campaign")
		return
	}

	c.JSON(http.StatusCreated, campaign.ToResponse())
}

type transitionFunc func(ctx context.Context, id uint) (*models.Campaign, error)

type reasonTransitionFunc func(ctx context.Context, id uint, reason string) (*models.Campaign, error)

func (h *CampaignHandler) simpleTransition(c *gin.Context, fn transitionFunc, fallback string) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	campaign, err := fn(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, fallback)
		return
	}

	c.JSON(http.StatusOK, campaign.ToResponse())
}

func (h *CampaignHandler) reasonTransition(c *gin.Context, fn reasonTransitionFunc, fallback string) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req models.ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data", "details": err.Error()})
			return
		}
	}

	campaign, err := fn(c.Request.Context(), id, req.Reason)
	if err != nil {
		respondError(c, err, fallback)
		return
	}

	c.JSON(http.StatusOK, campaign.ToResponse())
}
