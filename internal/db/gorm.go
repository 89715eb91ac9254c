package db

import (
	"fmt"
	"log"
	"strings"

	"brd-generator/internal/config"
	"brd-generator/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// GormDB wraps the GORM database instance
type GormDB struct {
	*gorm.DB
}

// NewGorm opens Postgres and brings the schema up to date.
// Learning: GORM provides a higher-level abstraction over raw SQL, but the
// vector extension and the ANN index still need hand-written DDL.
func NewGorm(cfg *config.Config) (*GormDB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL()), &gorm.Config{
		Logger: logger.Default.LogMode(LogLevel(cfg.DBLogLevel)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	g := &GormDB{db}
	if err := g.Migrate(); err != nil {
		return nil, err
	}

	log.Println("✓ Database connected and migrated successfully")

	return g, nil
}

// Migrate enables pgvector, auto-migrates every model and creates the vector
// index. It is safe to run repeatedly.
func (db *GormDB) Migrate() error {
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable pgvector extension: %w", err)
	}

	// Learning: order matters, parents before the tables that reference them
	if err := db.AutoMigrate(
		&models.Project{},
		&models.Document{},
		&models.Chunk{},
		&models.Conversation{},
		&models.Message{},
		&models.BRD{},
	); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// HNSW needs no training data, unlike ivfflat, so it works on an empty table
	err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_chunks_embedding
		ON chunks USING hnsw (embedding vector_cosine_ops)
	`).Error
	if err != nil {
		return fmt.Errorf("failed to create vector index: %w", err)
	}

	return nil
}

// LogLevel maps DB_LOG_LEVEL to a GORM log level; unknown values mean warn.
func LogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	default:
		return logger.Warn
	}
}

// Close closes the database connection
func (db *GormDB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
