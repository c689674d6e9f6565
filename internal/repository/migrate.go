package repository

import "gorm.io/gorm"

// Migrate creates the schema and the partial unique index that forbids two
// active bookings for the same room and start slot. Violations surface as
// unique-constraint errors named idx_no_double_booking.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&userModel{},
		&studioModel{},
		&roomModel{},
		&bookingModel{},
		&paymentEventModel{},
	); err != nil {
		return err
	}

	return db.Exec(`
CREATE UNIQUE INDEX IF NOT EXISTS idx_no_double_booking
ON bookings (room_id, date, start_time)
WHERE status IN ('pending', 'confirmed')
`).Error
}
