package database

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/sangkips/pdv-engine/internal/config"
	"github.com/sangkips/pdv-engine/internal/domain/entity"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewPostgresDB creates a new PostgreSQL database connection
func NewPostgresDB(cfg *config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  cfg.DSN(),
		PreferSimpleProtocol: true, // disables implicit prepared statement usage
	}), &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying SQL DB to set connection pool settings
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// A store runs a handful of terminals; the pool stays small.
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetMaxOpenConns(25)

	slog.Info("connected to PostgreSQL", "host", cfg.Host, "db", cfg.Name)
	return db, nil
}

// AutoMigrate runs GORM auto-migration for all entities
func AutoMigrate(db *gorm.DB) error {
	slog.Info("running database migrations")

	err := db.AutoMigrate(
		// Catalog (read by the terminal, maintained elsewhere)
		&entity.Product{},
		&entity.Customer{},
		&entity.Promotion{},

		// Sales ledger
		&entity.Sale{},
		&entity.SaleItem{},
		&entity.Payment{},
		&entity.CashMovement{},

		// System entities
		&entity.IdempotencyKey{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	slog.Info("database migrations completed")
	return nil
}

// SeedDemoCatalog inserts a small catalog and one promotion when the product
// table is empty, so a fresh terminal can ring up a sale.
func SeedDemoCatalog(db *gorm.DB) error {
	var count int64
	if err := db.Model(&entity.Product{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		slog.Info("catalog already populated, skipping demo seed", "products", count)
		return nil
	}

	products := []entity.Product{
		{ID: uuid.New(), Code: "7891000100103", Name: "Cafe torrado 500g", Price: decimal.RequireFromString("6.99"), Active: true},
		{ID: uuid.New(), Code: "7891000053508", Name: "Leite integral 1L", Price: decimal.RequireFromString("4.79"), Active: true},
		{ID: uuid.New(), Code: "7894900011517", Name: "Refrigerante cola 2L", Price: decimal.RequireFromString("9.49"), Active: true},
		{ID: uuid.New(), Code: "7896004000015", Name: "Pao de forma", Price: decimal.RequireFromString("8.90"), Active: true},
	}

	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&products).Error; err != nil {
			return err
		}

		customer := entity.Customer{ID: uuid.New(), Name: "Consumidor Demo", Document: "52998224725"}
		if err := tx.Create(&customer).Error; err != nil {
			return err
		}

		promos := []entity.Promotion{
			{
				ID:         uuid.New(),
				Name:       "Leve 3 cafes, 10% no item",
				Kind:       entity.PromotionBuyXGetY,
				Conditions: entity.PromotionConditions{ProductIDs: []uuid.UUID{products[0].ID}, MinQuantity: 3},
				Benefit:    entity.PromotionBenefit{Kind: entity.DiscountPercentage, Value: decimal.NewFromInt(10), Scope: entity.ScopeItem},
				Active:     true,
			},
			{
				ID:         uuid.New(),
				Name:       "Cafe da manha",
				Kind:       entity.PromotionBundle,
				Conditions: entity.PromotionConditions{ProductIDs: []uuid.UUID{products[0].ID, products[1].ID, products[3].ID}},
				Benefit:    entity.PromotionBenefit{Kind: entity.DiscountFixed, Value: decimal.NewFromInt(2), Scope: entity.ScopeCart},
				Active:     true,
			},
		}
		if err := tx.Create(&promos).Error; err != nil {
			return err
		}

		slog.Info("demo catalog seeded", "products", len(products), "promotions", len(promos))
		return nil
	})
}
