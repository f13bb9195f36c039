package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/errors"
)

// thresholdRepository implements ThresholdRepository on GORM.
type thresholdRepository struct {
	db *gorm.DB
}

// NewThresholdRepository creates a new ThresholdRepository.
func NewThresholdRepository(db *gorm.DB) ThresholdRepository {
	return &thresholdRepository{db: db}
}

func (r *thresholdRepository) ListThresholds(ctx context.Context) ([]entities.AlertThreshold, error) {
	var thresholds []entities.AlertThreshold
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&thresholds).Error; err != nil {
		return nil, fmt.Errorf("failed to list thresholds: %w", err)
	}
	return thresholds, nil
}

func (r *thresholdRepository) GetThreshold(ctx context.Context, id uint) (*entities.AlertThreshold, error) {
	var threshold entities.AlertThreshold
	if err := r.db.WithContext(ctx).First(&threshold, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get threshold %d: %w", id, err)
	}
	return &threshold, nil
}

// SaveThreshold creates or updates a threshold configuration.
func (r *thresholdRepository) SaveThreshold(ctx context.Context, threshold *entities.AlertThreshold) error {
	if err := r.db.WithContext(ctx).Save(threshold).Error; err != nil {
		return fmt.Errorf("failed to save threshold: %w", err)
	}
	return nil
}

func (r *thresholdRepository) DeleteThreshold(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.AlertThreshold{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete threshold %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// batchRepository implements BatchRepository on GORM.
type batchRepository struct {
	db *gorm.DB
}

// NewBatchRepository creates a new BatchRepository.
func NewBatchRepository(db *gorm.DB) BatchRepository {
	return &batchRepository{db: db}
}

// SaveBatch inserts or updates a batch record by ID.
func (r *batchRepository) SaveBatch(ctx context.Context, batch *entities.AlertBatch) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(batch).Error
	if err != nil {
		return fmt.Errorf("failed to save batch %s: %w", batch.ID, err)
	}
	return nil
}

func (r *batchRepository) ListBatches(ctx context.Context, limit, offset int) ([]entities.AlertBatch, int64, error) {
	var batches []entities.AlertBatch
	var total int64

	if err := r.db.WithContext(ctx).Model(&entities.AlertBatch{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count batches: %w", err)
	}

	query := r.db.WithContext(ctx).Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}
	if err := query.Find(&batches).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list batches: %w", err)
	}
	return batches, total, nil
}
