package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type MenuItem struct {
	ID            int
	Name          string
	Description   string
	Price         decimal.Decimal
	Stock         *int
	ReservedStock *int
	VenueID       int
	Category      string
	IsActive      bool
	IsDeleted     bool
	HasStock      bool
	Stockeable    bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (m MenuItem) AvailableStock() int {
	if m.Stock == nil || m.ReservedStock == nil {
		return 0
	}
	available := *m.Stock - *m.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}
