package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"studiobook/internal/domain"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

type userModel struct {
	ID                int64     `gorm:"column:id;primaryKey"`
	Email             string    `gorm:"column:email;uniqueIndex"`
	Name              string    `gorm:"column:name"`
	Slug              string    `gorm:"column:slug"`
	AvatarURL         string    `gorm:"column:avatar_url"`
	Role              string    `gorm:"column:role"`
	GatewayCustomerID string    `gorm:"column:gateway_customer_id"`
	CreatedAt         time.Time `gorm:"column:created_at"`
	UpdatedAt         time.Time `gorm:"column:updated_at"`
}

func (userModel) TableName() string { return "users" }

func toDomainUser(m userModel) *domain.User {
	return &domain.User{
		ID:                m.ID,
		Email:             m.Email,
		Name:              m.Name,
		Slug:              m.Slug,
		AvatarURL:         m.AvatarURL,
		Role:              domain.UserRole(m.Role),
		GatewayCustomerID: m.GatewayCustomerID,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	var m userModel
	tx := r.db.WithContext(ctx).First(&m, id)
	if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if tx.Error != nil {
		return nil, tx.Error
	}
	return toDomainUser(m), nil
}

func (r *UserRepository) SaveGatewayCustomerID(ctx context.Context, userID int64, customerID string) error {
	tx := r.db.WithContext(ctx).Model(&userModel{}).
		Where("id = ?", userID).
		Updates(map[string]any{
			"gateway_customer_id": customerID,
			"updated_at":          time.Now().UTC(),
		})
	return tx.Error
}
