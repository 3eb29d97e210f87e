package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base is the shared foundation embedded by domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Tx returns a Base bound to the given transaction, or the receiver when tx is nil.
func (b Base) Tx(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
