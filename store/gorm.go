package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"payza-gateway/logging"
	"payza-gateway/models"
)

// GormOrderStore implements OrderStore on PostgreSQL using GORM.
type GormOrderStore struct {
	db *gorm.DB
}

// NewGormOrderStore creates a new GormOrderStore.
func NewGormOrderStore(db *gorm.DB) *GormOrderStore {
	return &GormOrderStore{db: db}
}

// Connect opens the database, retrying while it comes up, and migrates the
// order tables.
func Connect(dsn string) (*gorm.DB, error) {
	var db *gorm.DB
	var err error

	for i := 0; i < 5; i++ {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err == nil {
			sqlDB, poolErr := db.DB()
			if poolErr == nil {
				sqlDB.SetMaxOpenConns(25)
				sqlDB.SetMaxIdleConns(5)
				sqlDB.SetConnMaxLifetime(5 * time.Minute)
			}

			if err := db.AutoMigrate(&models.Order{}, &models.LineItem{}, &models.OrderNote{}); err != nil {
				return nil, fmt.Errorf("auto migrate failed: %w", err)
			}
			logging.Info("Connected to PostgreSQL")
			return db, nil
		}

		logging.Warn("DB connection failed, retrying",
			zap.Int("attempt", i+1),
			zap.Error(err),
		)
		time.Sleep(time.Duration(i+1) * 2 * time.Second)
	}

	return nil, fmt.Errorf("failed to connect to PostgreSQL after retries: %w", err)
}

func (s *GormOrderStore) CreatePending(ctx context.Context, order *models.Order) error {
	order.Status = models.StatusPending
	return s.db.WithContext(ctx).Create(order).Error
}

func (s *GormOrderStore) Get(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := s.db.WithContext(ctx).
		Preload("Items").
		First(&order, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// Update applies the status and reference change and the note in one
// transaction. The UnlessStatus precondition is part of the UPDATE statement,
// so concurrent updates cannot both pass it.
func (s *GormOrderStore) Update(ctx context.Context, id uuid.UUID, update models.OrderUpdate) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns := map[string]interface{}{}
		if update.Status != "" {
			columns["status"] = update.Status
		}
		if update.TransactionRef != nil {
			columns["transaction_ref"] = *update.TransactionRef
		}

		if len(columns) > 0 {
			query := tx.Model(&models.Order{}).Where("id = ?", id)
			if update.UnlessStatus != "" {
				query = query.Where("status <> ?", update.UnlessStatus)
			}
			res := query.Updates(columns)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return s.missedUpdate(tx, id, update)
			}
		}

		if update.Note != "" {
			if err := tx.Create(&models.OrderNote{OrderID: id, Body: update.Note}).Error; err != nil {
				return fmt.Errorf("failed to add order note: %w", err)
			}
		}
		return nil
	})
}

// missedUpdate tells a missing order apart from one whose status blocked the
// update.
func (s *GormOrderStore) missedUpdate(tx *gorm.DB, id uuid.UUID, update models.OrderUpdate) error {
	if update.UnlessStatus == "" {
		return ErrOrderNotFound
	}
	var count int64
	if err := tx.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return ErrOrderNotFound
	}
	return ErrStatusConflict
}
