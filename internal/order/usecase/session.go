package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/kitchen"
	"comanda/internal/ledger"
	"comanda/internal/order/service"
	"comanda/internal/queue"
	"comanda/internal/ticket"
)

type OrderGateway interface {
	CreateLine(ctx context.Context, orderID uint, menuItemID int, quantity int, addons []dto.AddonSelection, notes string, clientToken string) (uint, error)
	UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error
	RemoveLine(ctx context.Context, lineID uint) error
	ScaleAddons(ctx context.Context, lineID uint, adjustments []domain.AddonAdjustment) error
	GetOrder(ctx context.Context, orderID uint) (*domain.Order, error)
}

type MenuRepository interface {
	FindByID(ctx context.Context, menuItemID int) (*domain.MenuItem, error)
}

type KitchenNotifier interface {
	PublishTicket(ctx context.Context, n kitchen.Notification) error
}

type FlushJournal interface {
	FirstSeen(ctx context.Context, fingerprint string) (bool, error)
	Forget(ctx context.Context, fingerprint string) error
}

type MutationResult struct {
	LineID       uint
	Merged       bool
	Quantity     int
	ScaleWarning bool
}

type FlushResult struct {
	FlushID string
	Printed bool
	Lines   []string
}

// OrderSession owns one open order's mutation pipeline: the change ledger,
// the per-order mutation queue, and the cached copy of backend state. The
// ledger and the cached order are only written from inside queued tasks.
type OrderSession struct {
	orderID uint
	venue   domain.VenueConfig

	gateway    OrderGateway
	menuRepo   MenuRepository
	resolver   service.Resolver
	scaler     *service.AddonScaler
	reconciler *service.Reconciler
	notifier   KitchenNotifier
	journal    FlushJournal

	ledger *ledger.ChangeLedger
	queue  *queue.MutationQueue
	logger *zap.Logger

	mu    sync.Mutex
	order *domain.Order
}

// AddItem resolves a requested addition against current lines and either
// merges it into an existing line or creates a new one. Inventory is
// validated before the mutation is queued at all: an out-of-stock item never
// enters the pipeline.
func (s *OrderSession) AddItem(ctx context.Context, req dto.AddItemRequest) (*MutationResult, error) {
	if err := s.validateAvailability(ctx, req.MenuItemID, req.Quantity); err != nil {
		return nil, err
	}

	addonTypes := make([]string, len(req.Addons))
	for i, sel := range req.Addons {
		addonTypes[i] = sel.AddonType
	}

	var result MutationResult
	err := s.queue.Do(ctx, "add-item", func(taskCtx context.Context) error {
		order := s.cachedOrder()
		if err := requirePending(order); err != nil {
			return err
		}

		match := s.resolver.Resolve(order, service.ResolveRequest{
			MenuItemID: req.MenuItemID,
			Notes:      req.Notes,
			AddonTypes: addonTypes,
		})

		if match != nil {
			snapshot := *match
			newQuantity := snapshot.Quantity + req.Quantity

			if err := s.gateway.UpdateLineQuantity(taskCtx, snapshot.ID, newQuantity); err != nil {
				return err
			}
			s.ledger.TrackQuantityChange(snapshot.ID, snapshot.Name, snapshot.MenuItemID, snapshot.Quantity, newQuantity)

			if err := s.scaler.Rescale(taskCtx, snapshot, snapshot.Quantity, newQuantity); err != nil {
				result.ScaleWarning = true
			}

			if err := s.refresh(taskCtx); err != nil {
				return err
			}

			result.LineID = snapshot.ID
			result.Merged = true
			result.Quantity = newQuantity
			return nil
		}

		token := uuid.New().String()
		if _, err := s.gateway.CreateLine(taskCtx, s.orderID, req.MenuItemID, req.Quantity, req.Addons, req.Notes, token); err != nil {
			return err
		}

		if err := s.refresh(taskCtx); err != nil {
			return err
		}

		created := s.reconciler.LocateCreatedLine(s.cachedOrder(), req.MenuItemID, req.Quantity)
		if created == nil {
			s.logger.Warn("created line not found after refetch, change will not be tracked",
				zap.Uint("orderId", s.orderID),
				zap.Int("menuItemId", req.MenuItemID),
			)
			result.Quantity = req.Quantity
			return nil
		}

		s.ledger.TrackNewItem(created.ID, created.Name, created.MenuItemID, req.Quantity)
		result.LineID = created.ID
		result.Quantity = created.Quantity
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// ChangeQuantity updates a line's quantity, rescales its addons and tracks
// the net change.
func (s *OrderSession) ChangeQuantity(ctx context.Context, lineID uint, newQuantity int) (*MutationResult, error) {
	if newQuantity < 1 {
		return nil, apperrors.NewValidationError("invalid quantity", apperrors.ValidationDetail{
			Field:   "quantity",
			Message: "quantity must be a positive integer",
		})
	}

	if line := s.snapshotLine(lineID); line != nil && newQuantity > line.Quantity {
		if err := s.validateAvailability(ctx, line.MenuItemID, newQuantity-line.Quantity); err != nil {
			return nil, err
		}
	}

	var result MutationResult
	err := s.queue.Do(ctx, "change-quantity", func(taskCtx context.Context) error {
		order := s.cachedOrder()
		if err := requirePending(order); err != nil {
			return err
		}

		line := order.LineByID(lineID)
		if line == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("order line with id %d not found", lineID))
		}
		snapshot := *line

		result.LineID = lineID
		result.Quantity = newQuantity
		if snapshot.Quantity == newQuantity {
			return nil
		}

		if err := s.gateway.UpdateLineQuantity(taskCtx, lineID, newQuantity); err != nil {
			return err
		}
		s.ledger.TrackQuantityChange(lineID, snapshot.Name, snapshot.MenuItemID, snapshot.Quantity, newQuantity)

		if err := s.scaler.Rescale(taskCtx, snapshot, snapshot.Quantity, newQuantity); err != nil {
			result.ScaleWarning = true
		}

		return s.refresh(taskCtx)
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// RemoveItem deletes a line. A line that was added and removed before any
// flush leaves no trace in the ledger.
func (s *OrderSession) RemoveItem(ctx context.Context, lineID uint) (*MutationResult, error) {
	var result MutationResult
	err := s.queue.Do(ctx, "remove-item", func(taskCtx context.Context) error {
		order := s.cachedOrder()
		if err := requirePending(order); err != nil {
			return err
		}

		line := order.LineByID(lineID)
		if line == nil {
			return apperrors.NewNotFoundError(fmt.Sprintf("order line with id %d not found", lineID))
		}
		snapshot := *line

		if err := s.gateway.RemoveLine(taskCtx, lineID); err != nil {
			return err
		}
		s.ledger.TrackItemRemoval(lineID, snapshot.Name, snapshot.MenuItemID, snapshot.Quantity)

		result.LineID = lineID
		return s.refresh(taskCtx)
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// FlushTicket sends accumulated pending changes to the kitchen and clears the
// ledger. When filtering leaves nothing printable the ledger is still
// cleared so net-zero or decreases-only states never block further work.
func (s *OrderSession) FlushTicket(ctx context.Context, printerRef string) (*FlushResult, error) {
	var result FlushResult
	err := s.queue.Do(ctx, "flush-ticket", func(taskCtx context.Context) error {
		summary := s.ledger.Summary()
		if len(summary) == 0 {
			return nil
		}

		lines := ticket.Synthesize(summary, s.venue.RemovalPolicy)
		result.Lines = lines
		if len(lines) == 0 {
			s.ledger.Clear()
			return nil
		}

		routingKey := printerRef
		if routingKey == "" {
			routingKey = s.venue.KitchenRoutingKey
		}

		flushID := uuid.New().String()
		fingerprint := flushFingerprint(s.orderID, summary)

		first, err := s.journal.FirstSeen(taskCtx, fingerprint)
		if err != nil {
			// fail open: a dark journal must not block the kitchen
			s.logger.Warn("flush journal unavailable, publishing without dedup",
				zap.Uint("orderId", s.orderID), zap.Error(err))
			first = true
		}

		if first {
			notification := buildNotification(flushID, s.orderID, routingKey, summary, lines)
			if err := s.notifier.PublishTicket(taskCtx, notification); err != nil {
				if ferr := s.journal.Forget(taskCtx, fingerprint); ferr != nil {
					s.logger.Warn("failed to release flush fingerprint after publish error",
						zap.Uint("orderId", s.orderID), zap.Error(ferr))
				}
				return err
			}
		} else {
			s.logger.Info("duplicate flush suppressed",
				zap.Uint("orderId", s.orderID), zap.String("fingerprint", fingerprint))
		}

		s.ledger.Clear()
		result.FlushID = flushID
		result.Printed = true
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}

// Read-only views. Safe from any goroutine.

func (s *OrderSession) HasChanges() bool {
	return s.ledger.HasChanges()
}

func (s *OrderSession) ChangesSummary() []domain.ChangeRecord {
	return s.ledger.Summary()
}

func (s *OrderSession) CountByType() map[domain.ChangeType]int {
	return s.ledger.CountByType()
}

func (s *OrderSession) Processing() bool {
	return s.queue.Processing()
}

func (s *OrderSession) QueueLength() int {
	return s.queue.Len()
}

// Snapshot returns a copy of the cached order.
func (s *OrderSession) Snapshot() domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := *s.order
	snapshot.Lines = make([]domain.OrderLine, len(s.order.Lines))
	copy(snapshot.Lines, s.order.Lines)
	return snapshot
}

// Close stops the session's queue after draining pending tasks.
func (s *OrderSession) Close() {
	s.queue.Close()
}

func (s *OrderSession) validateAvailability(ctx context.Context, menuItemID int, quantity int) error {
	item, err := s.menuRepo.FindByID(ctx, menuItemID)
	if err != nil {
		return err
	}

	if !item.IsActive {
		return apperrors.NewValidationError("menu item is not available", apperrors.ValidationDetail{
			Field:   "menuItemId",
			Message: fmt.Sprintf("menu item %d is inactive", menuItemID),
		})
	}

	if s.venue.HasStockControl && item.HasStock && item.Stockeable {
		if item.AvailableStock() < quantity {
			return apperrors.NewValidationError("insufficient stock", apperrors.ValidationDetail{
				Field:   "quantity",
				Message: fmt.Sprintf("only %d units of menu item %d available", item.AvailableStock(), menuItemID),
			})
		}
	}

	return nil
}

func (s *OrderSession) cachedOrder() *domain.Order {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.order
}

func (s *OrderSession) snapshotLine(lineID uint) *domain.OrderLine {
	s.mu.Lock()
	defer s.mu.Unlock()

	line := s.order.LineByID(lineID)
	if line == nil {
		return nil
	}
	snapshot := *line
	return &snapshot
}

func (s *OrderSession) refresh(ctx context.Context) error {
	order, err := s.reconciler.Refresh(ctx, s.orderID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.order = order
	s.mu.Unlock()
	return nil
}

func requirePending(order *domain.Order) error {
	if order.Status != domain.OrderStatusPending {
		return apperrors.NewConflictError(fmt.Sprintf("order %d is not in PENDING status", order.ID))
	}
	return nil
}

// flushFingerprint identifies the exact pending-change set being flushed, so
// a retried flush of the same state is recognized as already published.
func flushFingerprint(orderID uint, summary []domain.ChangeRecord) string {
	h := sha256.New()
	fmt.Fprintf(h, "order:%d", orderID)
	for _, rec := range summary {
		fmt.Fprintf(h, "|%d:%s:%d:%d", rec.ItemID, rec.ChangeType, rec.BaselineQuantity, rec.NetChange)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func buildNotification(flushID string, orderID uint, routingKey string, summary []domain.ChangeRecord, lines []string) kitchen.Notification {
	var removed, changed []uint
	details := make([]kitchen.ChangeDetail, 0, len(summary))

	for _, rec := range summary {
		if rec.ChangeType == domain.ChangeTypeRemove {
			removed = append(removed, rec.ItemID)
		} else {
			changed = append(changed, rec.ItemID)
		}
		details = append(details, kitchen.ChangeDetail{
			LineID:     rec.ItemID,
			Name:       rec.Name,
			MenuItemID: rec.MenuItemID,
			ChangeType: string(rec.ChangeType),
			NetChange:  rec.NetChange,
		})
	}

	return kitchen.Notification{
		TicketID:       flushID,
		OrderID:        orderID,
		PrinterRef:     routingKey,
		RemovedLineIDs: removed,
		ChangedLineIDs: changed,
		Lines:          lines,
		Details:        details,
		IssuedAt:       time.Now().UTC(),
	}
}
