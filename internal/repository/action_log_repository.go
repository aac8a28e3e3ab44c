package repository

import (
	"context"

	"github.com/yukikurage/kanban-sync/internal/models"
	"gorm.io/gorm"
)

// GormActionLogRepository is a GORM implementation of ActionLogRepository
type GormActionLogRepository struct {
	db *gorm.DB
}

// NewActionLogRepository creates a new ActionLogRepository
func NewActionLogRepository(db *gorm.DB) ActionLogRepository {
	return &GormActionLogRepository{db: db}
}

// Create appends an audit entry
func (r *GormActionLogRepository) Create(ctx context.Context, entry *models.ActionLog) error {
	return r.db.WithContext(ctx).Omit("User").Create(entry).Error
}

// FindByID loads a single entry with its acting user
func (r *GormActionLogRepository) FindByID(ctx context.Context, id uint64) (*models.ActionLog, error) {
	var entry models.ActionLog
	if err := r.db.WithContext(ctx).Preload("User").First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Recent lists the newest entries first
func (r *GormActionLogRepository) Recent(ctx context.Context, limit int) ([]models.ActionLog, error) {
	var entries []models.ActionLog
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("timestamp DESC").
		Order("id DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}
