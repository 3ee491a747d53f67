package repository

import (
	"context"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CampaignHistoryRepository struct {
	db *gorm.DB
}

func NewCampaignHistoryRepository(db *gorm.DB) *CampaignHistoryRepository {
	return &CampaignHistoryRepository{db: db}
}

// Create appends a history entry. A re-delivered event (same event_id) is ignored.
func (r *CampaignHistoryRepository) Create(ctx context.Context, entry *models.CampaignHistory) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "event_id"}}, DoNothing: true}).
		Create(entry).Error
}

// List retrieves history entries, oldest first within the requested page
func (r *CampaignHistoryRepository) List(ctx context.Context, filter models.HistoryFilter) ([]*models.CampaignHistory, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CampaignHistory{})
	if filter.CampaignID != 0 {
		query = query.Where("campaign_id = ?", filter.CampaignID)
	}
	if filter.Action != "" {
		query = query.Where("action = ?", filter.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := utils.ValidateAndNormalizePagination(filter.Page, filter.PageSize)

	var entries []*models.CampaignHistory
	err := query.
		Order("occurred_at ASC, id ASC").
		Limit(pageSize).
		Offset(utils.CalculateOffset(page, pageSize)).
		Find(&entries).Error
	return entries, total, err
}
