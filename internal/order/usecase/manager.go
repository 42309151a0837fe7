package usecase

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/ledger"
	"comanda/internal/order/service"
	"comanda/internal/queue"
)

type VenueConfigRepository interface {
	FindByVenueID(ctx context.Context, venueID int) (*domain.VenueConfig, error)
}

// SessionManager opens and caches one OrderSession per order, so every
// mutating intent for an order flows through the same queue regardless of
// which request started the session.
type SessionManager struct {
	gateway       OrderGateway
	menuRepo      MenuRepository
	venueRepo     VenueConfigRepository
	notifier      KitchenNotifier
	journal       FlushJournal
	defaultPolicy domain.RemovalPolicy
	logger        *zap.Logger

	mu       sync.Mutex
	sessions map[uint]*OrderSession
}

func NewSessionManager(
	gateway OrderGateway,
	menuRepo MenuRepository,
	venueRepo VenueConfigRepository,
	notifier KitchenNotifier,
	journal FlushJournal,
	defaultPolicy domain.RemovalPolicy,
	logger *zap.Logger,
) *SessionManager {
	return &SessionManager{
		gateway:       gateway,
		menuRepo:      menuRepo,
		venueRepo:     venueRepo,
		notifier:      notifier,
		journal:       journal,
		defaultPolicy: defaultPolicy,
		logger:        logger,
		sessions:      make(map[uint]*OrderSession),
	}
}

// Session returns the open session for orderID, opening one on first use.
// Opening fetches the authoritative order and the venue's kitchen policy.
func (m *SessionManager) Session(ctx context.Context, orderID uint) (*OrderSession, error) {
	m.mu.Lock()
	if session, ok := m.sessions[orderID]; ok {
		m.mu.Unlock()
		return session, nil
	}
	m.mu.Unlock()

	order, err := m.gateway.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	venue := domain.VenueConfig{
		VenueID:       order.VenueID,
		RemovalPolicy: m.defaultPolicy,
	}
	if cfg, err := m.venueRepo.FindByVenueID(ctx, order.VenueID); err == nil {
		venue = *cfg
	} else if _, ok := apperrors.IsNotFoundError(err); !ok {
		return nil, err
	} else {
		m.logger.Warn("no venue config, using default kitchen policy",
			zap.Int("venueId", order.VenueID))
	}

	logger := m.logger.With(zap.Uint("orderId", orderID))
	session := &OrderSession{
		orderID:    orderID,
		venue:      venue,
		gateway:    m.gateway,
		menuRepo:   m.menuRepo,
		scaler:     service.NewAddonScaler(m.gateway, logger),
		reconciler: service.NewReconciler(m.gateway, logger),
		notifier:   m.notifier,
		journal:    m.journal,
		ledger:     ledger.New(),
		queue:      queue.New(logger),
		logger:     logger,
		order:      order,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	// another request may have opened a session while we were fetching
	if existing, ok := m.sessions[orderID]; ok {
		session.Close()
		return existing, nil
	}
	m.sessions[orderID] = session
	return session, nil
}

// Operation facade. Each call opens (or reuses) the order's session and
// forwards to it, so HTTP handlers never hold session references.

func (m *SessionManager) AddItem(ctx context.Context, orderID uint, req dto.AddItemRequest) (*MutationResult, error) {
	session, err := m.Session(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return session.AddItem(ctx, req)
}

func (m *SessionManager) ChangeQuantity(ctx context.Context, orderID uint, lineID uint, quantity int) (*MutationResult, error) {
	session, err := m.Session(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return session.ChangeQuantity(ctx, lineID, quantity)
}

func (m *SessionManager) RemoveItem(ctx context.Context, orderID uint, lineID uint) (*MutationResult, error) {
	session, err := m.Session(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return session.RemoveItem(ctx, lineID)
}

func (m *SessionManager) FlushTicket(ctx context.Context, orderID uint, printerRef string) (*FlushResult, error) {
	session, err := m.Session(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return session.FlushTicket(ctx, printerRef)
}

// ChangesView is a point-in-time snapshot of an order's pending changes.
type ChangesView struct {
	HasChanges  bool
	Processing  bool
	QueueLength int
	Counts      map[domain.ChangeType]int
	Records     []domain.ChangeRecord
}

func (m *SessionManager) PendingChanges(ctx context.Context, orderID uint) (*ChangesView, error) {
	session, err := m.Session(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &ChangesView{
		HasChanges:  session.HasChanges(),
		Processing:  session.Processing(),
		QueueLength: session.QueueLength(),
		Counts:      session.CountByType(),
		Records:     session.ChangesSummary(),
	}, nil
}

// Release closes and forgets one order's session.
func (m *SessionManager) Release(orderID uint) {
	m.mu.Lock()
	session, ok := m.sessions[orderID]
	delete(m.sessions, orderID)
	m.mu.Unlock()

	if ok {
		session.Close()
	}
}

// Close drains and stops every open session.
func (m *SessionManager) Close() {
	m.mu.Lock()
	sessions := make([]*OrderSession, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.sessions = make(map[uint]*OrderSession)
	m.mu.Unlock()

	for _, s := range sessions {
		s.Close()
	}
}
