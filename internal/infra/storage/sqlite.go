package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"bookwatch/internal/domain"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Storage persists market descriptions. Book snapshots are never written
// here; the latest decoded view lives only in memory.
type Storage struct {
	db *gorm.DB
}

// NewStorage creates a new SQLite storage instance
func NewStorage() (*Storage, error) {
	dbPath, err := getDBPath()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve DB path: %w", err)
	}
	return open(dbPath)
}

// NewStorageAt opens the database at an explicit path (used in tests).
func NewStorageAt(dbPath string) (*Storage, error) {
	return open(dbPath)
}

func open(dbPath string) (*Storage, error) {
	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto Migration
	if err := db.AutoMigrate(&domain.MarketRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Storage{db: db}, nil
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "BookWatch", "data", "bookwatch.db"), nil
}

// UpsertMarket creates or updates a market description
func (s *Storage) UpsertMarket(m *domain.MarketRecord) error {
	return s.db.Save(m).Error
}

// FindMarket returns the market with the given symbol, or nil when absent
func (s *Storage) FindMarket(symbol string) (*domain.MarketRecord, error) {
	var record domain.MarketRecord
	err := s.db.First(&record, "symbol = ?", symbol).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// FindAllMarkets returns all stored market descriptions
func (s *Storage) FindAllMarkets() ([]*domain.MarketRecord, error) {
	var records []*domain.MarketRecord
	if err := s.db.Order("symbol").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// FindActiveMarkets returns the markets flagged for watching
func (s *Storage) FindActiveMarkets() ([]*domain.MarketRecord, error) {
	var records []*domain.MarketRecord
	if err := s.db.Where("is_active = ?", true).Order("symbol").Find(&records).Error; err != nil {
		return nil, err
	}
	return records, nil
}

// Close closes the underlying database handle
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
