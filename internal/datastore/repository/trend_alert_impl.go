package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/signalwatch/trendalert-go/internal/datastore/entities"
	"github.com/signalwatch/trendalert-go/internal/errors"
)

// trendAlertRepository implements TrendAlertRepository on GORM.
type trendAlertRepository struct {
	db *gorm.DB
}

// NewTrendAlertRepository creates a new TrendAlertRepository.
func NewTrendAlertRepository(db *gorm.DB) TrendAlertRepository {
	return &trendAlertRepository{db: db}
}

// SaveAlert inserts or updates an alert by ID.
func (r *trendAlertRepository) SaveAlert(ctx context.Context, alert *entities.TrendAlert) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(alert).Error
	if err != nil {
		return fmt.Errorf("failed to save alert %s: %w", alert.ID, err)
	}
	return nil
}

// GetAlert returns a single alert by ID. Returns ErrNotFound if absent.
func (r *trendAlertRepository) GetAlert(ctx context.Context, id string) (*entities.TrendAlert, error) {
	var alert entities.TrendAlert
	if err := r.db.WithContext(ctx).First(&alert, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert %s: %w", id, err)
	}
	return &alert, nil
}

// ListAlerts returns alerts matching the filter, newest first, with the
// total count before pagination.
func (r *trendAlertRepository) ListAlerts(ctx context.Context, filter TrendAlertFilter) ([]entities.TrendAlert, int64, error) {
	var alerts []entities.TrendAlert
	var total int64

	base := r.db.WithContext(ctx).Model(&entities.TrendAlert{})
	base = applyAlertFilter(base, filter)

	if err := base.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count alerts: %w", err)
	}

	query := applyAlertFilter(r.db.WithContext(ctx), filter).Order("triggered_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list alerts: %w", err)
	}
	return alerts, total, nil
}

func applyAlertFilter(q *gorm.DB, filter TrendAlertFilter) *gorm.DB {
	if filter.Symbol != "" {
		q = q.Where("symbol = ?", filter.Symbol)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.Priority != "" {
		q = q.Where("priority = ?", filter.Priority)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		q = q.Where("triggered_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("triggered_at < ?", filter.Until)
	}
	return q
}

// ListOpenAlerts returns pending and active alerts for restart recovery.
func (r *trendAlertRepository) ListOpenAlerts(ctx context.Context) ([]entities.TrendAlert, error) {
	var alerts []entities.TrendAlert
	err := r.db.WithContext(ctx).
		Where("status IN ?", []string{"pending", "active"}).
		Order("triggered_at ASC").
		Find(&alerts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open alerts: %w", err)
	}
	return alerts, nil
}

// DeleteResolvedBefore purges resolved alerts older than the cutoff.
func (r *trendAlertRepository) DeleteResolvedBefore(ctx context.Context, before time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND triggered_at < ?", "resolved", before).
		Delete(&entities.TrendAlert{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to purge resolved alerts before %v: %w", before, result.Error)
	}
	return result.RowsAffected, nil
}
