package repository

import "gorm.io/gorm"

// Migrate creates or updates every table the repositories read and write.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&accountModel{},
		&staffProfileModel{},
		&customerProfileModel{},
		&categoryModel{},
		&serviceModel{},
		&deviceModel{},
		&partModel{},
		&movementModel{},
		&repairModel{},
		&magicLinkModel{},
	)
}
