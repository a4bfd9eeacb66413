package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/yungbote/roomchat-backend/internal/domain"
)

// AutoMigrateAll migrates every model in order, naming the table that failed.
func AutoMigrateAll(db *gorm.DB) error {
	for _, model := range types.Models() {
		if err := db.AutoMigrate(model); err != nil {
			return fmt.Errorf("migrate %s: %w", tableOf(db, model), err)
		}
	}
	return nil
}

func tableOf(db *gorm.DB, model any) string {
	stmt := &gorm.Statement{DB: db}
	if err := stmt.Parse(model); err != nil || stmt.Schema == nil {
		return fmt.Sprintf("%T", model)
	}
	return stmt.Schema.Table
}
