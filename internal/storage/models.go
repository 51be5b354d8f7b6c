package storage

import (
	"time"

	"github.com/shopspring/decimal"
)

// AlertRecord captures one announced listing for auditing and export.
type AlertRecord struct {
	ID          int64
	ListingID   string
	Name        string
	Price       decimal.Decimal
	FloorPrice  decimal.Decimal
	DropPercent decimal.Decimal
	Backdrop    string
	PhotoURL    string
	CreatedAt   time.Time
}

// CycleRecord summarises one completed poll cycle.
type CycleRecord struct {
	ID        int64
	StartedAt time.Time
	Pulled    int
	Accepted  int
	Sent      int
	Status    string
	Error     *string
	CreatedAt time.Time
}
