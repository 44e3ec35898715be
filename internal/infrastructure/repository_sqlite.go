package infrastructure

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yourusername/mediafetch-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteRepository implements JobRepository and EgressStatsRepository using SQLite
type SQLiteRepository struct {
	db *gorm.DB
}

// NewSQLiteRepository opens (creating if needed) the database at dbPath
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite allows one writer; concurrent jobs share this handle
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&domain.Job{}, &domain.EgressEndpoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

// Create creates a new job
func (r *SQLiteRepository) Create(job *domain.Job) error {
	return r.db.Create(job).Error
}

// Update updates an existing job
func (r *SQLiteRepository) Update(job *domain.Job) error {
	return r.db.Save(job).Error
}

// FindByID finds a job by ID
func (r *SQLiteRepository) FindByID(id string) (*domain.Job, error) {
	var job domain.Job
	err := r.db.First(&job, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &job, nil
}

// GetStats returns job counts by state
func (r *SQLiteRepository) GetStats() (*domain.JobStats, error) {
	stats := &domain.JobStats{}

	if err := r.db.Model(&domain.Job{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	stateCounts := []struct {
		State domain.JobState
		Count int64
	}{}

	if err := r.db.Model(&domain.Job{}).
		Select("state, count(*) as count").
		Group("state").
		Scan(&stateCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range stateCounts {
		switch sc.State {
		case domain.StateCompleted:
			stats.Completed = sc.Count
		case domain.StateFailed:
			stats.Failed = sc.Count
		default:
			stats.InProgress += sc.Count
		}
	}

	return stats, nil
}

// SaveEndpoint upserts the statistics of one egress endpoint
func (r *SQLiteRepository) SaveEndpoint(endpoint *domain.EgressEndpoint) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "address"}},
		DoUpdates: clause.AssignmentColumns([]string{"success_count", "failure_count", "last_failure_at", "updated_at"}),
	}).Create(endpoint).Error
}

// LoadEndpoints returns every stored egress endpoint
func (r *SQLiteRepository) LoadEndpoints() ([]*domain.EgressEndpoint, error) {
	var endpoints []*domain.EgressEndpoint
	err := r.db.Order("address ASC").Find(&endpoints).Error
	return endpoints, err
}

// Close closes the database connection
func (r *SQLiteRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
