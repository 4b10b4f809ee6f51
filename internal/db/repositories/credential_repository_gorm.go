package repositories

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	gormModels "pickup-dispatch/dispatch/internal/models/gorm"
)

// ErrSettingNotFound is returned when no value is stored under a key.
var ErrSettingNotFound = errors.New("setting not found")

type SettingsRepositoryGORM struct {
	db *gorm.DB
}

// NewSettingsRepositoryGORM creates a new GORM-based settings repository
func NewSettingsRepositoryGORM(db *gorm.DB) *SettingsRepositoryGORM {
	return &SettingsRepositoryGORM{db: db}
}

// Get returns the value stored under key.
func (r *SettingsRepositoryGORM) Get(ctx context.Context, key string) (string, error) {
	var setting gormModels.ClientSetting

	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		First(&setting).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrSettingNotFound
		}
		return "", fmt.Errorf("failed to fetch setting %s: %w", key, err)
	}

	return setting.Value, nil
}

// Put inserts or overwrites the value under key.
func (r *SettingsRepositoryGORM) Put(ctx context.Context, key, value string) error {
	setting := gormModels.ClientSetting{Key: key, Value: value}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&setting).Error

	if err != nil {
		return fmt.Errorf("failed to store setting %s: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (r *SettingsRepositoryGORM) Delete(ctx context.Context, key string) error {
	err := r.db.WithContext(ctx).
		Where("key = ?", key).
		Delete(&gormModels.ClientSetting{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}
