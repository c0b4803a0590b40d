package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// kvEntry is one row of the SQLite key-value table.
type kvEntry struct {
	Key       string `gorm:"column:entry_key;primaryKey;size:512"`
	Value     []byte
	ExpiresAt int64 `gorm:"index"`
}

// TableName returns the table name.
func (kvEntry) TableName() string {
	return "kv_entries"
}

// SQLiteStorage is a Storage backed by a SQLite file through gorm.
type SQLiteStorage struct {
	db *gorm.DB
}

// NewSQLiteStorage opens (or creates) the database at path.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.AutoMigrate(&kvEntry{}); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// GetWithContext returns the value for key, or nil if it is missing or expired.
func (s *SQLiteStorage) GetWithContext(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	var entry kvEntry
	if err := s.db.WithContext(ctx).First(&entry, "entry_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get %q: %w", key, err)
	}

	if entry.ExpiresAt != 0 && entry.ExpiresAt <= time.Now().Unix() {
		if err := s.DeleteWithContext(ctx, key); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return entry.Value, nil
}

// SetWithContext stores val under key. A zero exp means no expiry.
func (s *SQLiteStorage) SetWithContext(ctx context.Context, key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	entry := kvEntry{Key: key, Value: val}
	if exp > 0 {
		entry.ExpiresAt = time.Now().Add(exp).Unix()
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "entry_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("failed to set %q: %w", key, err)
	}
	return nil
}

// DeleteWithContext removes key. Deleting a missing key is not an error.
func (s *SQLiteStorage) DeleteWithContext(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.db.WithContext(ctx).Delete(&kvEntry{}, "entry_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete %q: %w", key, err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database connection: %w", err)
	}
	return sqlDB.Close()
}
