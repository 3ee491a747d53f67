package services

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/sirupsen/logrus"
)

type TemplateService struct {
	templates TemplateStore
}

func NewTemplateService(templates TemplateStore) *TemplateService {
	return &TemplateService{templates: templates}
}

// Create creates a new campaign template
func (s *TemplateService) Create(ctx context.Context, req *models.TemplateRequest) (*models.CampaignTemplate, error) {
	if err := validateTemplate(req); err != nil {
		return nil, err
	}

	template := &models.CampaignTemplate{}
	applyTemplateRequest(template, req)
	if err := s.templates.Create(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to create template: %w", err)
	}

	logrus.Infof("Template %d created: %s", template.ID, template.Name)
	return template, nil
}

// GetByID retrieves a template by ID
func (s *TemplateService) GetByID(ctx context.Context, id uint) (*models.CampaignTemplate, error) {
	return s.templates.GetByID(ctx, id)
}

// List retrieves templates with optional name and channel filters
func (s *TemplateService) List(ctx context.Context, name string, channel models.Channel, page, pageSize int) ([]*models.CampaignTemplate, int64, error) {
	if channel != "" && !channel.IsValid() {
		return nil, 0, models.NewValidationError("execution_channel", fmt.Sprintf("unknown channel %q", channel))
	}
	return s.templates.List(ctx, name, channel, page, pageSize)
}

// Update replaces a template's fields
func (s *TemplateService) Update(ctx context.Context, id uint, req *models.TemplateRequest) (*models.CampaignTemplate, error) {
	if err := validateTemplate(req); err != nil {
		return nil, err
	}

	template, err := s.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	applyTemplateRequest(template, req)
	if err := s.templates.Save(ctx, template); err != nil {
		return nil, fmt.Errorf("failed to update template: %w", err)
	}
	return template, nil
}

// Delete deletes a template. Campaigns created from it keep their template_id.
func (s *TemplateService) Delete(ctx context.Context, id uint) error {
	return s.templates.Delete(ctx, id)
}

func validateTemplate(req *models.TemplateRequest) error {
	if strings.TrimSpace(req.Name) == "" {
		return models.NewValidationError("name", "is required")
	}
	if utf8.RuneCountInString(req.Name) > maxNameLength {
		return models.NewValidationError("name", fmt.Sprintf("must be at most %d characters", maxNameLength))
	}
	if strings.TrimSpace(req.Theme) == "" {
		return models.NewValidationError("theme", "is required")
	}
	if utf8.RuneCountInString(req.Theme) > maxThemeLength {
		return models.NewValidationError("theme", fmt.Sprintf("must be at most %d characters", maxThemeLength))
	}
	if req.Channel != "" && !req.Channel.IsValid() {
		return models.NewValidationError("execution_channel", fmt.Sprintf("unknown channel %q", req.Channel))
	}
	return nil
}

func applyTemplateRequest(template *models.CampaignTemplate, req *models.TemplateRequest) {
	template.Name = strings.TrimSpace(req.Name)
	template.Theme = strings.TrimSpace(req.Theme)
	template.Description = req.Description
	template.Channel = req.Channel
	template.SegmentID = req.SegmentID
	template.SurveyID = req.SurveyID
}
