package repository

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Seed loads a small local-development fixture set: two artists, one studio
// owner, a studio with two rooms. Inserts are idempotent on primary key.
func Seed(db *gorm.DB) error {
	now := time.Now().UTC()

	users := []userModel{
		{ID: 1, Email: "mira@example.com", Name: "Mira Cole", Slug: "mira-cole", Role: "artist", CreatedAt: now, UpdatedAt: now},
		{ID: 2, Email: "devon@example.com", Name: "Devon Reyes", Slug: "devon-reyes", Role: "artist", CreatedAt: now, UpdatedAt: now},
		{ID: 3, Email: "owner@northside.example.com", Name: "Sam Ortiz", Slug: "sam-ortiz", Role: "studio_owner", CreatedAt: now, UpdatedAt: now},
	}
	studios := []studioModel{
		{ID: 1, OwnerID: 3, Name: "Northside Sound", Slug: "northside-sound", City: "Chicago", CreatedAt: now, UpdatedAt: now},
	}
	rooms := []roomModel{
		{ID: 1, StudioID: 1, Name: "Room A", HourlyRate: 10000, IsActive: true, CreatedAt: now, UpdatedAt: now},
		{ID: 2, StudioID: 1, Name: "Room B", HourlyRate: 7500, IsActive: true, CreatedAt: now, UpdatedAt: now},
	}

	onConflict := clause.OnConflict{DoNothing: true}
	if err := db.Clauses(onConflict).Create(&users).Error; err != nil {
		return err
	}
	if err := db.Clauses(onConflict).Create(&studios).Error; err != nil {
		return err
	}
	return db.Clauses(onConflict).Create(&rooms).Error
}
