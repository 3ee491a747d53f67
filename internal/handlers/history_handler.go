package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/services"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const sseHeartbeatInterval = 30 * time.Second

type HistoryHandler struct {
	campaignService *services.CampaignService
	sseHub          *services.SSEHub
}

func NewHistoryHandler(campaignService *services.CampaignService, sseHub *services.SSEHub) *HistoryHandler {
	return &HistoryHandler{
		campaignService: campaignService,
		sseHub:          sseHub,
	}
}

// GetCampaignHistory godoc
// @Summary Get campaign history
// @Description Get the audit trail of a campaign, oldest first
// @Tags history
// @Accept json
// @Produce json
// @Param id path int true "Campaign ID"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/history [get]
func (h *HistoryHandler) GetCampaignHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, pageSize := parsePagination(c)

	entries, total, err := h.campaignService.History(c.Request.Context(), id, page, pageSize)
	if err != nil {
		respondError(c, err, "Failed to get campaign history")
		return
	}

	c.JSON(http.StatusOK, paginatedResponse(toHistoryResponses(entries), total, page, pageSize))
}

// ListHistory godoc
// @Summary List history
// @Description List history entries across campaigns
// @Tags history
// @Accept json
// @Produce json
// @Param campaign_id query int false "Campaign ID"
// @Param action query string false "Action type" Enums(Created, Edited, Scheduled, Rescheduled, Activated, Paused, Resumed, Cancelled, Finished, Archived, Duplicated, ExecutionError)
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /api/v1/history [get]
func (h *HistoryHandler) ListHistory(c *gin.Context) {
	campaignID, err := utils.StringToUint(c.Query("campaign_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid campaign_id", "details": err.Error()})
		return
	}
	page, pageSize := parsePagination(c)

	entries, total, err := h.campaignService.ListHistory(c.Request.Context(), models.HistoryFilter{
		CampaignID: campaignID,
		Action:     models.ActionType(c.Query("action")),
		Page:       page,
		PageSize:   pageSize,
	})
	if err != nil {
		respondError(c, err, "Failed to list history")
		return
	}

	c.JSON(http.StatusOK, paginatedResponse(toHistoryResponses(entries), total, page, pageSize))
}

// StreamCampaignHistory godoc
// @Summary Stream campaign history via Server-Sent Events (SSE)
// @Description Replay the latest history of a campaign, then stream new entries as they are recorded
// @Tags history
// @Produce text/event-stream
// @Param id path int true "Campaign ID"
// @Success 200 "SSE stream"
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/campaigns/{id}/history/stream [get]
func (h *HistoryHandler) StreamCampaignHistory(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	// Replay what is already stored so the client starts from a complete picture
	existing, _, err := h.campaignService.History(c.Request.Context(), id, 1, utils.MaxPageSize)
	if err != nil {
		respondError(c, err, "Failed to get campaign history")
		return
	}

	h.stream(c, services.CampaignKey(id), gin.H{
		"campaign_id": id,
		"message":     "Connected to campaign history stream",
	}, existing)
}

// StreamAllHistory godoc
// @Summary Stream all history via Server-Sent Events (SSE)
// @Description Stream history entries of every campaign as they are recorded
// @Tags history
// @Produce text/event-stream
// @Success 200 "SSE stream"
// @Router /api/v1/history/stream [get]
func (h *HistoryHandler) StreamAllHistory(c *gin.Context) {
	h.stream(c, services.AllCampaignsKey, gin.H{
		"message": "Connected to history stream",
	}, nil)
}

func (h *HistoryHandler) stream(c *gin.Context, key string, hello gin.H, replay []*models.CampaignHistory) {
	// Set headers for SSE
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // Disable buffering for nginx

	clientChan := h.sseHub.RegisterClient(key)
	defer h.sseHub.UnregisterClient(key, clientChan)

	c.SSEvent("connected", hello)
	c.Writer.Flush()

	for _, entry := range replay {
		entryJSON, err := json.Marshal(entry.ToResponse())
		if err != nil {
			continue
		}
		message := fmt.Sprintf("event: history\ndata: %s\n\n", string(entryJSON))
		if _, err := c.Writer.Write([]byte(message)); err != nil {
			return
		}
		c.Writer.Flush()
	}

	heartbeat := time.NewTicker(sseHeartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			logrus.Infof("SSE client disconnected: %s", key)
			return
		case <-heartbeat.C:
			h.sseHub.SendHeartbeat(key)
		case message, ok := <-clientChan:
			if !ok {
				return
			}
			if _, err := c.Writer.Write(message); err != nil {
				logrus.Errorf("Failed to write SSE message: %v", err)
				return
			}
			c.Writer.Flush()
		}
	}
}

func toHistoryResponses(entries []*models.CampaignHistory) []models.CampaignHistoryResponse {
	responses := make([]models.CampaignHistoryResponse, len(entries))
	for i, entry := range entries {
		responses[i] = entry.ToResponse()
	}
	return responses
}
