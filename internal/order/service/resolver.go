package service

import (
	"strings"

	"comanda/internal/domain"
)

// ResolveRequest describes a requested item addition for merge-or-create.
type ResolveRequest struct {
	MenuItemID int
	Notes      string
	AddonTypes []string
}

// Resolver decides whether an item addition merges into an existing order
// line or needs a new one. Stateless.
type Resolver struct{}

// Resolve returns the existing line to merge into, or nil when a new line
// must be created. A line matches when the menu item, the trimmed notes, and
// the addon type-set are all equal. Addon quantities are deliberately ignored:
// they get rescaled together with the merged quantity.
func (Resolver) Resolve(order *domain.Order, req ResolveRequest) *domain.OrderLine {
	wantNotes := strings.TrimSpace(req.Notes)
	wantTypes := make(map[string]bool, len(req.AddonTypes))
	for _, t := range req.AddonTypes {
		wantTypes[t] = true
	}

	for i := range order.Lines {
		line := &order.Lines[i]
		if line.MenuItemID != req.MenuItemID {
			continue
		}
		if strings.TrimSpace(line.Notes) != wantNotes {
			continue
		}
		if !typeSetsEqual(line.AddonTypeSet(), wantTypes) {
			continue
		}
		return line
	}

	return nil
}

// typeSetsEqual checks bidirectional containment.
func typeSetsEqual(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for t := range a {
		if !b[t] {
			return false
		}
	}
	return true
}
