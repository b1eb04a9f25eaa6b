package repository

import (
	"time"

	"github.com/sangkips/pdv-engine/pkg/pagination"
	"gorm.io/gorm"
)

// Paginate returns a GORM scope applying offset and limit. A nil params
// uses the default page.
func Paginate(params *pagination.PaginationParams) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if params == nil {
			params = pagination.DefaultPagination()
		}
		params.Validate()
		return db.Offset(params.Offset()).Limit(params.PerPage)
	}
}

// TerminalScope filters by terminal. An empty id matches every terminal.
func TerminalScope(terminalID string) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if terminalID == "" {
			return db
		}
		return db.Where("terminal_id = ?", terminalID)
	}
}

// CreatedBetween filters created_at by an optional inclusive range.
func CreatedBetween(start, end *time.Time) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if start != nil {
			db = db.Where("created_at >= ?", *start)
		}
		if end != nil {
			db = db.Where("created_at <= ?", *end)
		}
		return db
	}
}
