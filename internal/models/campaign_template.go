package models

import (
	"time"
)

// CampaignTemplate is a reusable seed used to pre-fill new draft campaigns
type CampaignTemplate struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name        string    `json:"name" gorm:"type:varchar(100);not null"`
	Theme       string    `json:"theme" gorm:"type:varchar(150);not null"`
	Description string    `json:"description" gorm:"type:text"`
	Channel     Channel   `json:"execution_channel" gorm:"column:execution_channel;type:varchar(10);index"`
	SegmentID   *uint     `json:"segment_id"`
	SurveyID    *uint     `json:"survey_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for the CampaignTemplate model
func (CampaignTemplate) TableName() string {
	return "campaign_templates"
}

// TemplateRequest is used to create or replace a template
type TemplateRequest struct {
	Name        string  `json:"name" binding:"required,max=100" example:"Monthly newsletter"`
	Theme       string  `json:"theme" binding:"required,max=150" example:"Newsletter"`
	Description string  `json:"description"`
	Channel     Channel `json:"execution_channel" example:"Mailing"`
	SegmentID   *uint   `json:"segment_id" example:"12"`
	SurveyID    *uint   `json:"survey_id"`
}

// FromTemplateRequest optionally overrides template values when instantiating a campaign
type FromTemplateRequest struct {
	Name     *string   `json:"name"`
	Priority *Priority `json:"priority"`
	Channel  *Channel  `json:"execution_channel"`
}
