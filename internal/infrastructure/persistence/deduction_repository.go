package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/omnisync/backend/internal/domain/inventory"
	"github.com/omnisync/backend/internal/domain/shared"
	"github.com/omnisync/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormDeductionRepository implements inventory.DeductionRepository using GORM
type GormDeductionRepository struct {
	db *gorm.DB
}

// NewGormDeductionRepository creates a new GormDeductionRepository
func NewGormDeductionRepository(db *gorm.DB) *GormDeductionRepository {
	return &GormDeductionRepository{db: db}
}

// FindActiveSet returns the active set of an order with its records
func (r *GormDeductionRepository) FindActiveSet(ctx context.Context, orderKey string) (*inventory.DeductionSet, error) {
	var model models.DeductionSetModel
	if err := r.db.WithContext(ctx).
		Preload("Records").
		Where("order_key = ? AND status = ?", orderKey, string(inventory.DeductionActive)).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	set := model.ToDomain()
	return &set, nil
}

// FindSets returns every set of an order, newest first
func (r *GormDeductionRepository) FindSets(ctx context.Context, orderKey string) ([]inventory.DeductionSet, error) {
	var rows []models.DeductionSetModel
	if err := r.db.WithContext(ctx).
		Preload("Records").
		Where("order_key = ?", orderKey).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.DeductionSet, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// CreateSet stores the set with its records. The check for an existing
// active set is repeated here; Postgres also enforces it with a partial
// unique index, whose violation maps to shared.ErrAlreadyExists.
func (r *GormDeductionRepository) CreateSet(ctx context.Context, set *inventory.DeductionSet) error {
	db := r.db.WithContext(ctx)
	var count int64
	if err := db.Model(&models.DeductionSetModel{}).
		Where("order_key = ? AND status = ?", set.OrderKey, string(inventory.DeductionActive)).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return shared.ErrAlreadyExists.WithMessage("order " + set.OrderKey + " already has an active deduction")
	}
	if err := db.Create(models.DeductionSetModelFromDomain(set)).Error; err != nil {
		if isUniqueViolation(err) {
			return shared.ErrAlreadyExists.WithMessage("order " + set.OrderKey + " already has an active deduction")
		}
		return err
	}
	return nil
}

// MarkRolledBack flips an active set; false means it was no longer active
func (r *GormDeductionRepository) MarkRolledBack(ctx context.Context, setID uuid.UUID, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.DeductionSetModel{}).
		Where("id = ? AND status = ?", setID, string(inventory.DeductionActive)).
		Updates(map[string]any{
			"status":         string(inventory.DeductionRolledBack),
			"rolled_back_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// AppendHistory appends movement journal rows
func (r *GormDeductionRepository) AppendHistory(ctx context.Context, entries []inventory.History) error {
	if len(entries) == 0 {
		return nil
	}
	rows := make([]models.InventoryHistoryModel, 0, len(entries))
	for _, h := range entries {
		rows = append(rows, models.InventoryHistoryModelFromDomain(h))
	}
	return r.db.WithContext(ctx).Create(&rows).Error
}

// FindHistory returns the journal rows referencing an order, oldest first
func (r *GormDeductionRepository) FindHistory(ctx context.Context, orderKey string) ([]inventory.History, error) {
	var rows []models.InventoryHistoryModel
	if err := r.db.WithContext(ctx).
		Where("reference_type = ? AND reference_key = ?", inventory.ReferenceChannelOrder, orderKey).
		Order("created_at ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]inventory.History, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, nil
}

// isUniqueViolation recognises duplicate-key errors from postgres and sqlite
func isUniqueViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLSTATE 23505") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "UNIQUE constraint failed")
}

// Ensure GormDeductionRepository implements inventory.DeductionRepository
var _ inventory.DeductionRepository = (*GormDeductionRepository)(nil)
