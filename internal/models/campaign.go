package models

import (
	"time"
)

// Priority of a campaign
type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// IsValid reports whether p is a known priority
func (p Priority) IsValid() bool {
	switch p {
	case PriorityHigh, PriorityMedium, PriorityLow:
		return true
	}
	return false
}

// Channel is the execution channel that runs a campaign downstream
type Channel string

const (
	ChannelMailing Channel = "Mailing"
	ChannelCalls   Channel = "Calls"
)

// IsValid reports whether c is a known channel
func (c Channel) IsValid() bool {
	return c == ChannelMailing || c == ChannelCalls
}

// Campaign is the aggregate governed by the lifecycle engine.
// State must only change through Apply.
type Campaign struct {
	ID          uint     `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string   `json:"name" gorm:"type:varchar(100);not null"`
	Theme       string   `json:"theme" gorm:"type:varchar(150);not null"`
	Description string   `json:"description" gorm:"type:text"`
	Priority    Priority `json:"priority" gorm:"type:varchar(10);not null;default:'Medium'"`
	Channel     Channel  `json:"execution_channel" gorm:"column:execution_channel;type:varchar(10);not null;index"`

	State CampaignState `json:"state" gorm:"type:varchar(20);not null;index"`

	// Scheduling
	ScheduledStart *time.Time `json:"scheduled_start" gorm:"index"`
	ScheduledEnd   *time.Time `json:"scheduled_end"`

	// Resources
	TemplateID *uint `json:"template_id" gorm:"index"`
	AgentID    *uint `json:"agent_id" gorm:"index"`
	SegmentID  *uint `json:"segment_id"`
	SurveyID   *uint `json:"survey_id"`

	Archived bool `json:"archived" gorm:"not null;default:false;index"`

	// Version is bumped on every save and checked by the store (optimistic locking)
	Version uint `json:"version" gorm:"not null;default:1"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for the Campaign model
func (Campaign) TableName() string {
	return "campaigns"
}

// NewDraftCampaign returns a campaign in its initial state
func NewDraftCampaign(name, theme string, channel Channel) *Campaign {
	return &Campaign{
		Name:     name,
		Theme:    theme,
		Channel:  channel,
		Priority: PriorityMedium,
		State:    StateDraft,
		Version:  1,
	}
}

// Apply moves the campaign through the transition table and returns the previous state.
// On an illegal operation the campaign is left unchanged.
func (c *Campaign) Apply(op Operation) (CampaignState, error) {
	prev := c.State
	next, err := prev.Next(op)
	if err != nil {
		return prev, err
	}
	c.State = next
	return prev, nil
}

// DueBy reports whether the campaign's scheduled start is at or before t
func (c *Campaign) DueBy(t time.Time) bool {
	return c.ScheduledStart != nil && !c.ScheduledStart.After(t)
}

// CampaignFilter holds optional list filters
type CampaignFilter struct {
	Name     string
	State    CampaignState
	Priority Priority
	Channel  Channel
	Archived *bool
	Page     int
	PageSize int
}

// CreateCampaignRequest represents the request to create a new campaign
type CreateCampaignRequest struct {
	Name        string   `json:"name" binding:"required,max=100" example:"Spring promo"`
	Theme       string   `json:"theme" binding:"required,max=150" example:"Enrollment"`
	Description string   `json:"description" example:"Outreach for the spring enrollment period"`
	Priority    Priority `json:"priority" example:"Medium"`
	Channel     Channel  `json:"execution_channel" binding:"required" example:"Mailing"`
	AgentID     *uint    `json:"agent_id" example:"7"`
	SegmentID   *uint    `json:"segment_id" example:"12"`
	SurveyID    *uint    `json:"survey_id" example:"3"`
}

// UpdateCampaignRequest is a partial update; nil fields are left as they are
type UpdateCampaignRequest struct {
	Name        *string   `json:"name" example:"Spring promo v2"`
	Theme       *string   `json:"theme" example:"Enrollment"`
	Description *string   `json:"description"`
	Priority    *Priority `json:"priority" example:"High"`
	Channel     *Channel  `json:"execution_channel" example:"Calls"`
	AgentID     *uint     `json:"agent_id"`
	SegmentID   *uint     `json:"segment_id"`
	SurveyID    *uint     `json:"survey_id"`
}

// ScheduleCampaignRequest represents the request to schedule a draft campaign
type ScheduleCampaignRequest struct {
	Start     *time.Time `json:"scheduled_start" binding:"required" example:"2025-08-14T09:00:00Z"`
	End       *time.Time `json:"scheduled_end" binding:"required" example:"2025-08-14T18:00:00Z"`
	AgentID   *uint      `json:"agent_id" binding:"required" example:"7"`
	SegmentID *uint      `json:"segment_id" binding:"required" example:"12"`
	SurveyID  *uint      `json:"survey_id" example:"3"`
}

// RescheduleCampaignRequest represents the request to move a campaign's window
type RescheduleCampaignRequest struct {
	Start *time.Time `json:"scheduled_start" binding:"required" example:"2025-08-15T09:00:00Z"`
	End   *time.Time `json:"scheduled_end" binding:"required" example:"2025-08-15T18:00:00Z"`
}

// ReasonRequest carries the operator's reason for pause/cancel
type ReasonRequest struct {
	Reason string `json:"reason" example:"budget exhausted"`
}

// CampaignResponse represents the response for campaign operations
type CampaignResponse struct {
	ID                uint          `json:"id" example:"42"`
	Name              string        `json:"name" example:"Spring promo"`
	Theme             string        `json:"theme" example:"Enrollment"`
	Description       string        `json:"description"`
	Priority          Priority      `json:"priority" example:"Medium"`
	Channel           Channel       `json:"execution_channel" example:"Mailing"`
	State             CampaignState `json:"state" example:"Scheduled"`
	AllowedOperations []Operation   `json:"allowed_operations"`
	ScheduledStart    *time.Time    `json:"scheduled_start"`
	ScheduledEnd      *time.Time    `json:"scheduled_end"`
	TemplateID        *uint         `json:"template_id"`
	AgentID           *uint         `json:"agent_id"`
	SegmentID         *uint         `json:"segment_id"`
	SurveyID          *uint         `json:"survey_id"`
	Archived          bool          `json:"archived"`
	CreatedAt         string        `json:"created_at" example:"2025-01-09T10:30:00Z"`
	UpdatedAt         string        `json:"updated_at" example:"2025-01-09T10:30:00Z"`
}

// ToResponse converts a Campaign to its response DTO
func (c *Campaign) ToResponse() *CampaignResponse {
	return &CampaignResponse{
		ID:                c.ID,
		Name:              c.Name,
		Theme:             c.Theme,
		Description:       c.Description,
		Priority:          c.Priority,
		Channel:           c.Channel,
		State:             c.State,
		AllowedOperations: c.State.AllowedOperations(),
		ScheduledStart:    c.ScheduledStart,
		ScheduledEnd:      c.ScheduledEnd,
		TemplateID:        c.TemplateID,
		AgentID:           c.AgentID,
		SegmentID:         c.SegmentID,
		SurveyID:          c.SurveyID,
		Archived:          c.Archived,
		CreatedAt:         c.CreatedAt.Format(time.RFC3339),
		UpdatedAt:         c.UpdatedAt.Format(time.RFC3339),
	}
}
