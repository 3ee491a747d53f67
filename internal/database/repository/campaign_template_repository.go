package repository

import (
	"context"
	"errors"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"

	"gorm.io/gorm"
)

type CampaignTemplateRepository struct {
	db *gorm.DB
}

func NewCampaignTemplateRepository(db *gorm.DB) *CampaignTemplateRepository {
	return &CampaignTemplateRepository{db: db}
}

// Create creates a new template
func (r *CampaignTemplateRepository) Create(ctx context.Context, template *models.CampaignTemplate) error {
	return r.db.WithContext(ctx).Create(template).Error
}

// GetByID retrieves a template by ID
func (r *CampaignTemplateRepository) GetByID(ctx context.Context, id uint) (*models.CampaignTemplate, error) {
	var template models.CampaignTemplate
	err := r.db.WithContext(ctx).First(&template, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrTemplateNotFound
		}
		return nil, err
	}
	return &template, nil
}

// Save updates a template
func (r *CampaignTemplateRepository) Save(ctx context.Context, template *models.CampaignTemplate) error {
	return r.db.WithContext(ctx).Save(template).Error
}

// Delete deletes a template
func (r *CampaignTemplateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.CampaignTemplate{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrTemplateNotFound
	}
	return nil
}

// List returns templates filtered by name and channel, newest first
func (r *CampaignTemplateRepository) List(ctx context.Context, name string, channel models.Channel, page, pageSize int) ([]*models.CampaignTemplate, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CampaignTemplate{})
	if name != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+name+"%")
	}
	if channel != "" {
		query = query.Where("execution_channel = ?", channel)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize = utils.ValidateAndNormalizePagination(page, pageSize)

	var templates []*models.CampaignTemplate
	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset(utils.CalculateOffset(page, pageSize)).
		Find(&templates).Error
	return templates, total, err
}
