package repositories

import (
	"fmt"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/rental-insight/listings-backend/internal/entities"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {
	err := c.DB.AutoMigrate(entities.User{})
	if err != nil {
		return fmt.Errorf("failed to migrate User entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.UserFilter{})
	if err != nil {
		return fmt.Errorf("failed to migrate UserFilter entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.Listing{})
	if err != nil {
		return fmt.Errorf("failed to migrate Listing entity: %w", err)
	}

	err = c.DB.AutoMigrate(entities.ListingParameters{})
	if err != nil {
		return fmt.Errorf("failed to migrate ListingParameters entity: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
