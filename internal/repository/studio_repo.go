package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"studiobook/internal/domain"
)

type StudioRepository struct {
	db *gorm.DB
}

func NewStudioRepository(db *gorm.DB) *StudioRepository {
	return &StudioRepository{db: db}
}

type studioModel struct {
	ID                int64     `gorm:"column:id;primaryKey"`
	OwnerID           int64     `gorm:"column:owner_id;index"`
	Name              string    `gorm:"column:name"`
	Slug              string    `gorm:"column:slug"`
	AvatarURL         string    `gorm:"column:avatar_url"`
	City              string    `gorm:"column:city"`
	GatewayCustomerID string    `gorm:"column:gateway_customer_id"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (studioModel) TableName() string { return "studios" }

func toDomainStudio(m studioModel) *domain.Studio {
	return &domain.Studio{
		ID:                m.ID,
		OwnerID:           m.OwnerID,
		Name:              m.Name,
		Slug:              m.Slug,
		AvatarURL:         m.AvatarURL,
		City:              m.City,
		GatewayCustomerID: m.GatewayCustomerID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (r *StudioRepository) FindByID(ctx context.Context, id int64) (*domain.Studio, error) {
	var m studioModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainStudio(m), nil
}

func (r *StudioRepository) SaveGatewayCustomerID(ctx context.Context, studioID int64, customerID string) error {
	tx := r.db.WithContext(ctx).Model(&studioModel{}).
		Where("id = ?", studioID).
		Updates(map[string]any{
			"gateway_customer_id": customerID,
			"updated_at":          time.Now().UTC(),
		})
	return tx.Error
}
