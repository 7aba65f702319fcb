package db

import (
	"errors"
	"fmt"

	"github.com/glebarez/sqlite"
	"github.com/pysugar/visionary-studio/internal/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// InitDB opens the SQLite database at dbPath and runs migrations.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&models.Setting{}); err != nil {
		return nil, err
	}
	return db, nil
}

// GetSetting returns the value stored under key. ok is false when the key
// has never been written.
func GetSetting(db *gorm.DB, key string) (value string, ok bool, err error) {
	var s models.Setting
	err = db.Where("key = ?", key).First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get setting %s: %w", key, err)
	}
	return s.Value, true, nil
}

// SetSetting upserts key.
func SetSetting(db *gorm.DB, key, value string) error {
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("set setting %s: %w", key, err)
	}
	return nil
}

// DeleteSetting removes key if present.
func DeleteSetting(db *gorm.DB, key string) error {
	if err := db.Where("key = ?", key).Delete(&models.Setting{}).Error; err != nil {
		return fmt.Errorf("delete setting %s: %w", key, err)
	}
	return nil
}
