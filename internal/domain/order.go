package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID          uint
	VenueID     int
	Status      string
	Lines       []OrderLine
	DeliveryFee decimal.Decimal
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const (
	OrderStatusPending   = "PENDING"
	OrderStatusReady     = "READY"
	OrderStatusCompleted = "COMPLETED"
	OrderStatusCancelled = "CANCELLED"
)

// Total is the sum of all line totals plus the delivery fee.
func (o Order) Total() decimal.Decimal {
	total := o.DeliveryFee
	for _, line := range o.Lines {
		total = total.Add(line.Total())
	}
	return total
}

// LineByID returns the line with the given backend identity, or nil.
func (o *Order) LineByID(lineID uint) *OrderLine {
	for i := range o.Lines {
		if o.Lines[i].ID == lineID {
			return &o.Lines[i]
		}
	}
	return nil
}

type OrderLine struct {
	ID          uint
	OrderID     uint
	MenuItemID  int
	Name        string
	Quantity    int
	UnitPrice   decimal.Decimal
	Notes       string
	Attachments []AddonAttachment
	CreatedAt   time.Time
}

func (l OrderLine) Total() decimal.Decimal {
	total := l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
	for _, att := range l.Attachments {
		total = total.Add(att.Total())
	}
	return total
}

// AddonTypeSet returns the set of addon types attached to the line.
func (l OrderLine) AddonTypeSet() map[string]bool {
	set := make(map[string]bool, len(l.Attachments))
	for _, att := range l.Attachments {
		set[att.AddonType] = true
	}
	return set
}

// AddonAttachment quantities are stored as absolute totals; the per-unit rate
// is recovered by dividing by the parent line quantity (see PerUnitQuantity).
type AddonAttachment struct {
	ID        uint
	LineID    uint
	AddonID   int
	AddonType string
	Quantity  int
	UnitPrice decimal.Decimal
}

func (a AddonAttachment) Total() decimal.Decimal {
	return a.UnitPrice.Mul(decimal.NewFromInt(int64(a.Quantity)))
}

// PerUnitQuantity derives the addon's rate per single unit of the parent line.
// Once a line is settled the invariant Quantity == rate × parentQuantity holds,
// so integer division is exact.
func (a AddonAttachment) PerUnitQuantity(parentQuantity int) int {
	if parentQuantity <= 0 {
		return 0
	}
	return a.Quantity / parentQuantity
}

// AddonAdjustment is one attachment's target quantity after a rescale.
type AddonAdjustment struct {
	AttachmentID uint
	Quantity     int
}
