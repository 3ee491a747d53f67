package models

import (
	"time"
)

// ActionType is the kind of lifecycle action recorded in the history
type ActionType string

const (
	ActionCreated        ActionType = "Created"
	ActionEdited         ActionType = "Edited"
	ActionScheduled      ActionType = "Scheduled"
	ActionRescheduled    ActionType = "Rescheduled"
	ActionActivated      ActionType = "Activated"
	ActionPaused         ActionType = "Paused"
	ActionResumed        ActionType = "Resumed"
	ActionCancelled      ActionType = "Cancelled"
	ActionFinished       ActionType = "Finished"
	ActionArchived       ActionType = "Archived"
	ActionDuplicated     ActionType = "Duplicated"
	ActionExecutionError ActionType = "ExecutionError"
)

var actionDescriptions = map[ActionType]string{
	ActionCreated:        "A new campaign was created in Draft",
	ActionEdited:         "Campaign data was updated",
	ActionScheduled:      "The campaign was scheduled for automatic activation",
	ActionRescheduled:    "The scheduled execution window was changed",
	ActionActivated:      "The campaign went Live and started executing",
	ActionPaused:         "Campaign execution was paused",
	ActionResumed:        "Campaign execution was resumed",
	ActionCancelled:      "The campaign was cancelled permanently",
	ActionFinished:       "The campaign completed its execution",
	ActionArchived:       "The campaign was archived",
	ActionDuplicated:     "A copy of a campaign was created",
	ActionExecutionError: "The execution channel reported an error",
}

// Description returns the human readable meaning of the action
func (a ActionType) Description() string {
	if d, ok := actionDescriptions[a]; ok {
		return d
	}
	return string(a)
}

// IsValid reports whether a is a known action type
func (a ActionType) IsValid() bool {
	_, ok := actionDescriptions[a]
	return ok
}

// CampaignHistory is an append-only audit record of a lifecycle action.
// CampaignID is a key back-reference only.
type CampaignHistory struct {
	ID         uint       `json:"id" gorm:"primaryKey;autoIncrement"`
	EventID    string     `json:"event_id" gorm:"type:varchar(36);not null;uniqueIndex"`
	CampaignID uint       `json:"campaign_id" gorm:"not null;index"`
	Action     ActionType `json:"action" gorm:"type:varchar(30);not null;index"`
	OccurredAt time.Time  `json:"occurred_at" gorm:"not null;index"`
	Detail     string     `json:"detail" gorm:"type:text"`
	Reason     string     `json:"reason,omitempty" gorm:"type:text"`
	CreatedAt  time.Time  `json:"created_at"`
}

// TableName specifies the table name for the CampaignHistory model
func (CampaignHistory) TableName() string {
	return "campaign_history"
}

// HistoryFilter holds optional history list filters
type HistoryFilter struct {
	CampaignID uint
	Action     ActionType
	Page       int
	PageSize   int
}

// CampaignHistoryResponse represents a history entry in API responses
type CampaignHistoryResponse struct {
	ID                uint       `json:"id" example:"1001"`
	CampaignID        uint       `json:"campaign_id" example:"42"`
	Action            ActionType `json:"action" example:"Paused"`
	ActionDescription string     `json:"action_description" example:"Campaign execution was paused"`
	Detail            string     `json:"detail" example:"state: Live → Paused. Reason: budget exhausted"`
	Reason            string     `json:"reason,omitempty" example:"budget exhausted"`
	OccurredAt        string     `json:"occurred_at" example:"2025-01-09T10:30:00Z"`
}

// ToResponse converts a CampaignHistory to its response DTO
func (h *CampaignHistory) ToResponse() CampaignHistoryResponse {
	return CampaignHistoryResponse{
		ID:                h.ID,
		CampaignID:        h.CampaignID,
		Action:            h.Action,
		ActionDescription: h.Action.Description(),
		Detail:            h.Detail,
		Reason:            h.Reason,
		OccurredAt:        h.OccurredAt.Format(time.RFC3339),
	}
}
