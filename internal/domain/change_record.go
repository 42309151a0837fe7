package domain

import "time"

type ChangeType string

const (
	ChangeTypeNew    ChangeType = "NEW"
	ChangeTypeUpdate ChangeType = "UPDATE"
	ChangeTypeRemove ChangeType = "REMOVE"
)

// ChangeRecord is one ledger entry: everything the kitchen has not yet been
// told about one order line. BaselineQuantity is the quantity at the moment the
// line was first tracked and never moves afterwards; NetChange is always
// computed against it, so opposing changes cancel.
type ChangeRecord struct {
	ItemID           uint
	Name             string
	MenuItemID       int
	ChangeType       ChangeType
	BaselineQuantity int
	NetChange        int
	LastUpdatedAt    time.Time
}
