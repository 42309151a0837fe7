package domain

import "time"

type RemovalPolicy string

const (
	// RemovalPolicySuppress drops removed lines from the kitchen ticket.
	RemovalPolicySuppress RemovalPolicy = "SUPPRESS"
	// RemovalPolicyAudit prints removed lines on the ticket.
	RemovalPolicyAudit RemovalPolicy = "AUDIT"
)

func ParseRemovalPolicy(s string) (RemovalPolicy, bool) {
	switch RemovalPolicy(s) {
	case RemovalPolicySuppress, RemovalPolicyAudit:
		return RemovalPolicy(s), true
	}
	return "", false
}

type VenueConfig struct {
	ID                int
	VenueID           int
	HasStockControl   bool
	RemovalPolicy     RemovalPolicy
	KitchenRoutingKey string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
