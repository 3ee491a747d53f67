package repository

import (
	"context"
	"errors"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"

	"gorm.io/gorm"
)

type CampaignRepository struct {
	db *gorm.DB
}

func NewCampaignRepository(db *gorm.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create creates a new campaign
func (r *CampaignRepository) Create(ctx context.Context, campaign *models.Campaign) error {
	if campaign.Version == 0 {
		campaign.Version = 1
	}
	return r.db.WithContext(ctx).Create(campaign).Error
}

// GetByID retrieves a campaign by ID
func (r *CampaignRepository) GetByID(ctx context.Context, id uint) (*models.Campaign, error) {
	var campaign models.Campaign
	err := r.db.WithContext(ctx).First(&campaign, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.ErrCampaignNotFound
		}
		return nil, err
	}
	return &campaign, nil
}

// Save writes every column of the campaign if nobody else saved it since it was loaded.
// It returns models.ErrVersionConflict when the stored version moved on.
func (r *CampaignRepository) Save(ctx context.Context, campaign *models.Campaign) error {
	loaded := campaign.Version
	campaign.Version = loaded + 1

	result := r.db.WithContext(ctx).
		Model(&models.Campaign{}).
		Where("id = ? AND version = ?", campaign.ID, loaded).
		Select("*").
		Omit("id", "created_at").
		Updates(campaign)
	if result.Error != nil {
		campaign.Version = loaded
		return result.Error
	}
	if result.RowsAffected == 0 {
		campaign.Version = loaded
		return models.ErrVersionConflict
	}
	return nil
}

// FindScheduledDueBy returns Scheduled campaigns whose start is at or before t
func (r *CampaignRepository) FindScheduledDueBy(ctx context.Context, t time.Time) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.WithContext(ctx).
		Where("state = ? AND scheduled_start <= ?", models.StateScheduled, t).
		Order("scheduled_start ASC").
		Find(&campaigns).Error
	return campaigns, err
}

// FindAllScheduled returns every campaign in state Scheduled
func (r *CampaignRepository) FindAllScheduled(ctx context.Context) ([]*models.Campaign, error) {
	var campaigns []*models.Campaign
	err := r.db.WithContext(ctx).
		Where("state = ?", models.StateScheduled).
		Order("scheduled_start ASC").
		Find(&campaigns).Error
	return campaigns, err
}

// Delete removes a campaign row. Callers enforce the Draft-only rule.
func (r *CampaignRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Campaign{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrCampaignNotFound
	}
	return nil
}

// List returns a page of campaigns matching the filter and the total match count
func (r *CampaignRepository) List(ctx context.Context, filter models.CampaignFilter) ([]*models.Campaign, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Campaign{})

	if filter.Name != "" {
		query = query.Where("LOWER(name) LIKE LOWER(?)", "%"+filter.Name+"%")
	}
	if filter.State != "" {
		query = query.Where("state = ?", filter.State)
	}
	if filter.Priority != "" {
		query = query.Where("priority = ?", filter.Priority)
	}
	if filter.Channel != "" {
		query = query.Where("execution_channel = ?", filter.Channel)
	}
	if filter.Archived != nil {
		query = query.Where("archived = ?", *filter.Archived)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := utils.ValidateAndNormalizePagination(filter.Page, filter.PageSize)

	var campaigns []*models.Campaign
	err := query.
		Order("created_at DESC").
		Limit(pageSize).
		Offset(utils.CalculateOffset(page, pageSize)).
		Find(&campaigns).Error
	return campaigns, total, err
}
