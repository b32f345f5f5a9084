// Package migrations keeps the registry schema in sync with the gorm models.
package migrations

import (
	"fmt"

	"github.com/mcpjungle/toolbridge/internal/model"
	"gorm.io/gorm"
)

// Migrate creates or updates the tables for all registry models.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&model.McpServer{}, &model.Tool{}); err != nil {
		return fmt.Errorf("auto-migration failed: %w", err)
	}
	return nil
}
