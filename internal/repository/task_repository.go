package repository

import (
	"context"

	"github.com/yukikurage/kanban-sync/internal/models"
	"gorm.io/gorm"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit("AssignedUser", "LastEditedBy").Create(task).Error
}

// FindByID finds a task by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx)

	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}

	return &task, nil
}

// List retrieves all tasks, newest first
func (r *GormTaskRepository) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Preload("AssignedUser").
		Preload("LastEditedBy").
		Order("created_at DESC").
		Order("id DESC").
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

// UpdateIfVersion is a compare-and-swap on the version column
func (r *GormTaskRepository) UpdateIfVersion(ctx context.Context, task *models.Task, expectedVersion int64) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Where("id = ? AND version = ?", task.ID, expectedVersion).
		Updates(map[string]interface{}{
			"title":             task.Title,
			"description":       task.Description,
			"assigned_user_id":  task.AssignedUserID,
			"status":            task.Status,
			"priority":          task.Priority,
			"updated_at":        task.UpdatedAt,
			"last_edited_by_id": task.LastEditedByID,
			"version":           task.Version,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Delete removes a task permanently
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	res := r.db.WithContext(ctx).Delete(&models.Task{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// TitleTaken checks title uniqueness against every other task
func (r *GormTaskRepository) TitleTaken(ctx context.Context, title string, excludeID uint64) (bool, error) {
	var count int64
	query := r.db.WithContext(ctx).Model(&models.Task{}).Where("title = ?", title)
	if excludeID != 0 {
		query = query.Where("id <> ?", excludeID)
	}
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// CountActiveByAssignee groups active tasks by assignee
func (r *GormTaskRepository) CountActiveByAssignee(ctx context.Context) (map[uint64]int64, error) {
	var rows []struct {
		AssignedUserID uint64
		Count          int64
	}

	err := r.db.WithContext(ctx).
		Model(&models.Task{}).
		Select("assigned_user_id, COUNT(*) AS count").
		Where("status IN ?", []models.TaskStatus{models.TaskStatusTodo, models.TaskStatusInProgress}).
		Group("assigned_user_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[uint64]int64, len(rows))
	for _, row := range rows {
		counts[row.AssignedUserID] = row.Count
	}
	return counts, nil
}
