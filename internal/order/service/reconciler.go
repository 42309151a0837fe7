package service

import (
	"context"

	"go.uber.org/zap"

	"comanda/internal/domain"
)

type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID uint) (*domain.Order, error)
}

// Reconciler re-fetches authoritative order state after every mutation and
// re-identifies the line a create call just produced. The backend's immediate
// acknowledgment does not reliably carry the new line's identity, so location
// is heuristic; it lives behind this type so a backend-echoed correlation
// token can replace it without touching callers.
type Reconciler struct {
	gateway OrderFetcher
	logger  *zap.Logger
}

func NewReconciler(gateway OrderFetcher, logger *zap.Logger) *Reconciler {
	return &Reconciler{gateway: gateway, logger: logger}
}

func (r *Reconciler) Refresh(ctx context.Context, orderID uint) (*domain.Order, error) {
	order, err := r.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return order, nil
}

// LocateCreatedLine finds the line that was just added, in falling priority:
//
//  1. exact (menuItemID, quantity) match, latest such line,
//  2. the most recently created line with that menu item,
//  3. any line with that menu item, first in order position.
//
// With several lines for the same menu item added in rapid succession this
// can misidentify; callers must tolerate that.
func (r *Reconciler) LocateCreatedLine(order *domain.Order, menuItemID int, quantity int) *domain.OrderLine {
	for i := len(order.Lines) - 1; i >= 0; i-- {
		line := &order.Lines[i]
		if line.MenuItemID == menuItemID && line.Quantity == quantity {
			return line
		}
	}

	// recency needs a timestamp; lines from backends that omit it fall
	// through to the positional scan
	var latest *domain.OrderLine
	for i := range order.Lines {
		line := &order.Lines[i]
		if line.MenuItemID != menuItemID || line.CreatedAt.IsZero() {
			continue
		}
		if latest == nil || line.CreatedAt.After(latest.CreatedAt) {
			latest = line
		}
	}
	if latest != nil {
		r.logger.Warn("created line located by recency fallback",
			zap.Uint("orderId", order.ID),
			zap.Int("menuItemId", menuItemID),
			zap.Uint("lineId", latest.ID),
		)
		return latest
	}

	for i := range order.Lines {
		if order.Lines[i].MenuItemID == menuItemID {
			return &order.Lines[i]
		}
	}

	return nil
}
