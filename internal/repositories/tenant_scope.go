package repositories

import (
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// tenantScope restricts a query to one tenant. Every repository read and
// write goes through it before any primary key is consulted.
func tenantScope(tenantID uuid.UUID) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("tenant_id = ?", tenantID)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}
