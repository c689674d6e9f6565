package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"studiobook/internal/domain"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

type roomModel struct {
	ID         int64     `gorm:"column:id;primaryKey"`
	StudioID   int64     `gorm:"column:studio_id;index"`
	Name       string    `gorm:"column:name"`
	HourlyRate int64     `gorm:"column:hourly_rate"`
	IsActive   bool      `gorm:"column:is_active"`
	CreatedAt  time.Time `gorm:"column:created_at"`
	UpdatedAt  time.Time `gorm:"column:updated_at"`
}

func (roomModel) TableName() string { return "rooms" }

func (r *RoomRepository) FindByID(ctx context.Context, id int64) (*domain.Room, error) {
	var m roomModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}
	return &domain.Room{
		ID:         m.ID,
		StudioID:   m.StudioID,
		Name:       m.Name,
		HourlyRate: m.HourlyRate,
		IsActive:   m.IsActive,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}, nil
}
