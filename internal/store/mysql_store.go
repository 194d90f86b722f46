package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// CredentialModel is the GORM model for the credentials table
// GORM uses struct tags to map to database columns
type CredentialModel struct {
	SessionID string    `gorm:"column:session_id;primaryKey;size:64"`
	Email     string    `gorm:"column:email;size:320;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName specifies the table name for GORM
// By default, GORM would pluralize to "credential_models"
func (CredentialModel) TableName() string {
	return "credentials"
}

// MySQLStore implements Store using MySQL with GORM
// GORM provides ORM features like automatic query building and connection pooling
type MySQLStore struct {
	db *gorm.DB
}

// gormConfig is shared with tests so both build the same statements
func gormConfig() *gorm.Config {
	return &gorm.Config{
		Logger:                 logger.Default.LogMode(logger.Silent), // Set to Info for debugging
		SkipDefaultTransaction: true,                                  // single-statement writes
	}
}

// NewMySQLStore creates a new MySQL store using GORM and makes sure the table exists
//
// Parameters:
//   - dsn: Data Source Name (connection string)
//     Format: user:password@tcp(host:port)/dbname?parseTime=true
//     Example: root:password@tcp(localhost:3306)/geoflipper?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := gorm.Open(mysql.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MySQL with GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(5 * time.Minute)

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping MySQL database: %w", err)
	}

	if err := db.AutoMigrate(&CredentialModel{}); err != nil {
		return nil, fmt.Errorf("failed to migrate credentials table: %w", err)
	}

	return &MySQLStore{db: db}, nil
}

// GetEmail implements Store
//
// GORM query: SELECT * FROM credentials WHERE session_id = ? ORDER BY ... LIMIT 1
func (s *MySQLStore) GetEmail(ctx context.Context, sessionID string) (string, error) {
	var record CredentialModel

	result := s.db.WithContext(ctx).Where("session_id = ?", sessionID).First(&record)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("database query failed: %w", result.Error)
	}

	return record.Email, nil
}

// SaveEmail implements Store with an upsert
// (INSERT ... ON DUPLICATE KEY UPDATE on MySQL)
func (s *MySQLStore) SaveEmail(ctx context.Context, sessionID, email string) error {
	record := CredentialModel{
		SessionID: sessionID,
		Email:     email,
		UpdatedAt: time.Now().UTC(),
	}

	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(&record)
	if result.Error != nil {
		return fmt.Errorf("failed to save credential: %w", result.Error)
	}
	return nil
}

// ClearEmail implements Store
func (s *MySQLStore) ClearEmail(ctx context.Context, sessionID string) error {
	result := s.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&CredentialModel{})
	if result.Error != nil {
		return fmt.Errorf("failed to clear credential: %w", result.Error)
	}
	return nil
}

// Close closes the database connection
// Should be called when the application shuts down
func (s *MySQLStore) Close() error {
	if s.db != nil {
		sqlDB, err := s.db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return nil
}
