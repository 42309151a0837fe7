package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"go.uber.org/zap"

	"comanda/internal/domain"
	"comanda/internal/dto"
	apperrors "comanda/internal/errors"
	"comanda/internal/kitchen"
)

// fakeGateway is a stateful in-memory backend: mutations apply to its order,
// GetOrder returns deep copies, the same contract the real backend offers.
type fakeGateway struct {
	mu         sync.Mutex
	order      *domain.Order
	menuNames  map[int]string
	nextLineID uint

	failCreate error
	failUpdate error
	failRemove error
	failScale  error

	createCalls int
	updateCalls int
	scaleCalls  int
}

func newFakeGateway(order *domain.Order) *fakeGateway {
	next := uint(1)
	for _, l := range order.Lines {
		if l.ID >= next {
			next = l.ID + 1
		}
	}
	return &fakeGateway{
		order:      order,
		menuNames:  map[int]string{1: "Burger", 2: "Fries", 3: "Drink"},
		nextLineID: next,
	}
}

func (g *fakeGateway) CreateLine(ctx context.Context, orderID uint, menuItemID int, quantity int, addons []dto.AddonSelection, notes string, clientToken string) (uint, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	if g.failCreate != nil {
		return 0, g.failCreate
	}

	line := domain.OrderLine{
		ID:         g.nextLineID,
		OrderID:    orderID,
		MenuItemID: menuItemID,
		Name:       g.menuNames[menuItemID],
		Quantity:   quantity,
		Notes:      notes,
	}
	for i, sel := range addons {
		line.Attachments = append(line.Attachments, domain.AddonAttachment{
			ID:        g.nextLineID*100 + uint(i),
			LineID:    line.ID,
			AddonID:   sel.AddonID,
			AddonType: sel.AddonType,
			Quantity:  sel.Quantity * quantity,
		})
	}
	g.nextLineID++
	g.order.Lines = append(g.order.Lines, line)
	return line.ID, nil
}

func (g *fakeGateway) UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updateCalls++
	if g.failUpdate != nil {
		return g.failUpdate
	}
	line := g.order.LineByID(lineID)
	if line == nil {
		return apperrors.NewNotFoundError("line not found")
	}
	line.Quantity = quantity
	return nil
}

func (g *fakeGateway) RemoveLine(ctx context.Context, lineID uint) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.failRemove != nil {
		return g.failRemove
	}
	for i := range g.order.Lines {
		if g.order.Lines[i].ID == lineID {
			g.order.Lines = append(g.order.Lines[:i], g.order.Lines[i+1:]...)
			return nil
		}
	}
	return apperrors.NewNotFoundError("line not found")
}

func (g *fakeGateway) ScaleAddons(ctx context.Context, lineID uint, adjustments []domain.AddonAdjustment) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scaleCalls++
	if g.failScale != nil {
		return g.failScale
	}
	line := g.order.LineByID(lineID)
	if line == nil {
		return apperrors.NewNotFoundError("line not found")
	}
	for _, adj := range adjustments {
		for i := range line.Attachments {
			if line.Attachments[i].ID == adj.AttachmentID {
				line.Attachments[i].Quantity = adj.Quantity
			}
		}
	}
	return nil
}

func (g *fakeGateway) GetOrder(ctx context.Context, orderID uint) (*domain.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	snapshot := *g.order
	snapshot.Lines = make([]domain.OrderLine, len(g.order.Lines))
	for i, l := range g.order.Lines {
		copied := l
		copied.Attachments = append([]domain.AddonAttachment(nil), l.Attachments...)
		snapshot.Lines[i] = copied
	}
	return &snapshot, nil
}

type mockMenuRepo struct {
	FindByIDFunc func(ctx context.Context, menuItemID int) (*domain.MenuItem, error)
}

func (m *mockMenuRepo) FindByID(ctx context.Context, menuItemID int) (*domain.MenuItem, error) {
	return m.FindByIDFunc(ctx, menuItemID)
}

type mockVenueRepo struct {
	FindByVenueIDFunc func(ctx context.Context, venueID int) (*domain.VenueConfig, error)
}

func (m *mockVenueRepo) FindByVenueID(ctx context.Context, venueID int) (*domain.VenueConfig, error) {
	return m.FindByVenueIDFunc(ctx, venueID)
}

type mockNotifier struct {
	mu            sync.Mutex
	PublishFunc   func(ctx context.Context, n kitchen.Notification) error
	notifications []kitchen.Notification
}

func (m *mockNotifier) PublishTicket(ctx context.Context, n kitchen.Notification) error {
	m.mu.Lock()
	m.notifications = append(m.notifications, n)
	m.mu.Unlock()
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, n)
	}
	return nil
}

func (m *mockNotifier) published() []kitchen.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]kitchen.Notification(nil), m.notifications...)
}

type mockJournal struct {
	FirstSeenFunc func(ctx context.Context, fingerprint string) (bool, error)
	forgotten     []string
}

func (m *mockJournal) FirstSeen(ctx context.Context, fingerprint string) (bool, error) {
	if m.FirstSeenFunc != nil {
		return m.FirstSeenFunc(ctx, fingerprint)
	}
	return true, nil
}

func (m *mockJournal) Forget(ctx context.Context, fingerprint string) error {
	m.forgotten = append(m.forgotten, fingerprint)
	return nil
}

func unlimitedMenuRepo() *mockMenuRepo {
	return &mockMenuRepo{
		FindByIDFunc: func(ctx context.Context, menuItemID int) (*domain.MenuItem, error) {
			name := fmt.Sprintf("item-%d", menuItemID)
			return &domain.MenuItem{ID: menuItemID, Name: name, IsActive: true}, nil
		},
	}
}

func defaultVenueRepo() *mockVenueRepo {
	return &mockVenueRepo{
		FindByVenueIDFunc: func(ctx context.Context, venueID int) (*domain.VenueConfig, error) {
			return &domain.VenueConfig{
				VenueID:           venueID,
				HasStockControl:   true,
				RemovalPolicy:     domain.RemovalPolicySuppress,
				KitchenRoutingKey: "kitchen.main",
			}, nil
		},
	}
}

func newTestSession(t *testing.T, gateway *fakeGateway, menuRepo *mockMenuRepo, notifier *mockNotifier, journal *mockJournal) *OrderSession {
	t.Helper()

	manager := NewSessionManager(
		gateway,
		menuRepo,
		defaultVenueRepo(),
		notifier,
		journal,
		domain.RemovalPolicySuppress,
		zap.NewNop(),
	)
	t.Cleanup(manager.Close)

	session, err := manager.Session(context.Background(), gateway.order.ID)
	if err != nil {
		t.Fatalf("opening session: %v", err)
	}
	return session
}

func pendingOrder() *domain.Order {
	return &domain.Order{ID: 1, VenueID: 1, Status: domain.OrderStatusPending}
}

func TestAddItem_CreatesNewLine(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	result, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 2, Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Merged {
		t.Errorf("expected a new line, got a merge")
	}
	if result.Quantity != 2 {
		t.Errorf("expected quantity 2, got %d", result.Quantity)
	}

	snapshot := session.Snapshot()
	if len(snapshot.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(snapshot.Lines))
	}

	summary := session.ChangesSummary()
	if len(summary) != 1 {
		t.Fatalf("expected 1 ledger record, got %d", len(summary))
	}
	if summary[0].ChangeType != domain.ChangeTypeNew || summary[0].NetChange != 2 {
		t.Errorf("expected NEW record with net 2, got %s net %d", summary[0].ChangeType, summary[0].NetChange)
	}
}

func TestAddItem_MergeIdempotence(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	req := dto.AddItemRequest{
		MenuItemID: 1,
		Quantity:   1,
		Notes:      "no onion",
		Addons:     []dto.AddonSelection{{AddonID: 5, AddonType: "extra-cheese", Quantity: 1}},
	}

	first, err := session.AddItem(context.Background(), req)
	if err != nil {
		t.Fatalf("first add: %v", err)
	}

	req.Quantity = 2
	second, err := session.AddItem(context.Background(), req)
	if err != nil {
		t.Fatalf("second add: %v", err)
	}

	if !second.Merged {
		t.Errorf("expected second add to merge")
	}
	if second.LineID != first.LineID {
		t.Errorf("expected merge into line %d, got %d", first.LineID, second.LineID)
	}

	snapshot := session.Snapshot()
	if len(snapshot.Lines) != 1 {
		t.Fatalf("expected 1 line after merge, got %d", len(snapshot.Lines))
	}
	if snapshot.Lines[0].Quantity != 3 {
		t.Errorf("expected merged quantity 3, got %d", snapshot.Lines[0].Quantity)
	}

	// addons scaled with the merge: 1 per unit × 3 units
	if got := snapshot.Lines[0].Attachments[0].Quantity; got != 3 {
		t.Errorf("expected attachment quantity 3, got %d", got)
	}

	summary := session.ChangesSummary()
	if len(summary) != 1 {
		t.Fatalf("expected a single ledger record, got %d", len(summary))
	}
	if summary[0].ChangeType != domain.ChangeTypeNew || summary[0].NetChange != 3 {
		t.Errorf("expected NEW net 3, got %s net %d", summary[0].ChangeType, summary[0].NetChange)
	}
}

func TestAddItem_DifferentNotesCreateSeparateLines(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 1, Quantity: 1, Notes: "no onion"}); err != nil {
		t.Fatalf("first add: %v", err)
	}
	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 1, Quantity: 1, Notes: "extra rare"}); err != nil {
		t.Fatalf("second add: %v", err)
	}

	if got := len(session.Snapshot().Lines); got != 2 {
		t.Errorf("expected 2 lines, got %d", got)
	}
}

func TestAddItem_InsufficientStockBlocksBeforeQueue(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	stock, reserved := 1, 0
	menuRepo := &mockMenuRepo{
		FindByIDFunc: func(ctx context.Context, menuItemID int) (*domain.MenuItem, error) {
			return &domain.MenuItem{
				ID: menuItemID, Name: "Burger", IsActive: true,
				HasStock: true, Stockeable: true,
				Stock: &stock, ReservedStock: &reserved,
			}, nil
		},
	}
	session := newTestSession(t, gateway, menuRepo, &mockNotifier{}, &mockJournal{})

	_, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 1, Quantity: 2})

	if _, ok := apperrors.IsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if gateway.createCalls != 0 {
		t.Errorf("mutation must not reach the backend, got %d create calls", gateway.createCalls)
	}
	if session.HasChanges() {
		t.Errorf("ledger must stay empty")
	}
}

func TestAddItem_InactiveItemBlocked(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	menuRepo := &mockMenuRepo{
		FindByIDFunc: func(ctx context.Context, menuItemID int) (*domain.MenuItem, error) {
			return &domain.MenuItem{ID: menuItemID, Name: "Burger", IsActive: false}, nil
		},
	}
	session := newTestSession(t, gateway, menuRepo, &mockNotifier{}, &mockJournal{})

	_, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 1, Quantity: 1})

	if _, ok := apperrors.IsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestChangeQuantity_TracksNetChangeAndScalesAddons(t *testing.T) {
	order := pendingOrder()
	order.Lines = []domain.OrderLine{{
		ID: 7, OrderID: 1, MenuItemID: 1, Name: "Burger", Quantity: 2,
		Attachments: []domain.AddonAttachment{
			{ID: 70, LineID: 7, AddonType: "extra-cheese", Quantity: 4}, // 2 per unit
		},
	}}
	gateway := newFakeGateway(order)
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	result, err := session.ChangeQuantity(context.Background(), 7, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ScaleWarning {
		t.Errorf("unexpected scale warning")
	}

	snapshot := session.Snapshot()
	if snapshot.Lines[0].Quantity != 5 {
		t.Errorf("expected quantity 5, got %d", snapshot.Lines[0].Quantity)
	}
	if got := snapshot.Lines[0].Attachments[0].Quantity; got != 10 {
		t.Errorf("expected attachment scaled to 10, got %d", got)
	}

	summary := session.ChangesSummary()
	if len(summary) != 1 || summary[0].ChangeType != domain.ChangeTypeUpdate || summary[0].NetChange != 3 {
		t.Errorf("expected UPDATE net 3, got %+v", summary)
	}
}

func TestChangeQuantity_NetZeroLeavesNoRecord(t *testing.T) {
	order := pendingOrder()
	order.Lines = []domain.OrderLine{{ID: 7, OrderID: 1, MenuItemID: 1, Name: "Burger", Quantity: 2}}
	gateway := newFakeGateway(order)
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	if _, err := session.ChangeQuantity(context.Background(), 7, 5); err != nil {
		t.Fatalf("first change: %v", err)
	}
	if _, err := session.ChangeQuantity(context.Background(), 7, 2); err != nil {
		t.Fatalf("second change: %v", err)
	}

	if session.HasChanges() {
		t.Errorf("expected no pending changes after returning to baseline")
	}
	if got := len(session.ChangesSummary()); got != 0 {
		t.Errorf("expected empty summary, got %d records", got)
	}
}

func TestChangeQuantity_ScaleFailureIsNonFatal(t *testing.T) {
	order := pendingOrder()
	order.Lines = []domain.OrderLine{{
		ID: 7, OrderID: 1, MenuItemID: 1, Name: "Burger", Quantity: 2,
		Attachments: []domain.AddonAttachment{{ID: 70, LineID: 7, Quantity: 2}},
	}}
	gateway := newFakeGateway(order)
	gateway.failScale = errors.New("scale endpoint down")
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	result, err := session.ChangeQuantity(context.Background(), 7, 3)
	if err != nil {
		t.Fatalf("quantity change must not fail on scale error, got %v", err)
	}
	if !result.ScaleWarning {
		t.Errorf("expected a scale warning")
	}

	// the quantity change stands
	if got := session.Snapshot().Lines[0].Quantity; got != 3 {
		t.Errorf("expected quantity 3, got %d", got)
	}
	if !session.HasChanges() {
		t.Errorf("net change must still be tracked")
	}
}

func TestChangeQuantity_InvalidQuantity(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	_, err := session.ChangeQuantity(context.Background(), 7, 0)

	if _, ok := apperrors.IsValidationError(err); !ok {
		t.Fatalf("expected ValidationError, got %T", err)
	}
}

func TestChangeQuantity_UnknownLine(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	_, err := session.ChangeQuantity(context.Background(), 99, 2)

	if _, ok := apperrors.IsNotFoundError(err); !ok {
		t.Fatalf("expected NotFoundError, got %T", err)
	}
}

func TestRemoveItem_NewThenRemoveErasure(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	notifier := &mockNotifier{}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, &mockJournal{})

	result, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 2, Quantity: 1})
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if _, err := session.RemoveItem(context.Background(), result.LineID); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if session.HasChanges() {
		t.Errorf("expected no pending changes after new-then-remove")
	}

	flush, err := session.FlushTicket(context.Background(), "")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flush.Printed {
		t.Errorf("nothing should print")
	}
	if len(notifier.published()) != 0 {
		t.Errorf("kitchen must not be notified")
	}
}

func TestRemoveItem_TracksRemovalOfCommunicatedLine(t *testing.T) {
	order := pendingOrder()
	order.Lines = []domain.OrderLine{{ID: 7, OrderID: 1, MenuItemID: 1, Name: "Burger", Quantity: 3}}
	gateway := newFakeGateway(order)
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	if _, err := session.RemoveItem(context.Background(), 7); err != nil {
		t.Fatalf("remove: %v", err)
	}

	summary := session.ChangesSummary()
	if len(summary) != 1 || summary[0].ChangeType != domain.ChangeTypeRemove || summary[0].NetChange != -3 {
		t.Errorf("expected REMOVE net -3, got %+v", summary)
	}
	if got := len(session.Snapshot().Lines); got != 0 {
		t.Errorf("expected line gone from cached order, got %d lines", got)
	}
}

func TestMutationsRejectedWhenOrderNotPending(t *testing.T) {
	order := pendingOrder()
	order.Status = domain.OrderStatusCompleted
	gateway := newFakeGateway(order)
	session := newTestSession(t, gateway, unlimitedMenuRepo(), &mockNotifier{}, &mockJournal{})

	_, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 1, Quantity: 1})

	if _, ok := apperrors.IsConflictError(err); !ok {
		t.Fatalf("expected ConflictError, got %T (%v)", err, err)
	}
}

func TestFlushTicket_PublishesAndClears(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	notifier := &mockNotifier{}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, &mockJournal{})

	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 2, Quantity: 1}); err != nil {
		t.Fatalf("add fries: %v", err)
	}
	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 3, Quantity: 1}); err != nil {
		t.Fatalf("add drink: %v", err)
	}

	flush, err := session.FlushTicket(context.Background(), "")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if !flush.Printed {
		t.Fatalf("expected a printed ticket")
	}
	wantLines := map[string]bool{"1x FRIES": true, "1x DRINK": true}
	if len(flush.Lines) != 2 || !wantLines[flush.Lines[0]] || !wantLines[flush.Lines[1]] {
		t.Errorf("unexpected ticket lines: %v", flush.Lines)
	}

	published := notifier.published()
	if len(published) != 1 {
		t.Fatalf("expected 1 notification, got %d", len(published))
	}
	if published[0].PrinterRef != "kitchen.main" {
		t.Errorf("expected venue routing key, got %q", published[0].PrinterRef)
	}
	if len(published[0].ChangedLineIDs) != 2 || len(published[0].RemovedLineIDs) != 0 {
		t.Errorf("unexpected line id sets: %+v", published[0])
	}

	if session.HasChanges() {
		t.Errorf("ledger must be cleared after a successful flush")
	}
}

func TestFlushTicket_EmptyLedgerIsNoOp(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	notifier := &mockNotifier{}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, &mockJournal{})

	flush, err := session.FlushTicket(context.Background(), "")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}
	if flush.Printed || len(notifier.published()) != 0 {
		t.Errorf("expected no print for an empty ledger")
	}
}

func TestFlushTicket_DecreasesOnlyClearsWithoutPrinting(t *testing.T) {
	order := pendingOrder()
	order.Lines = []domain.OrderLine{{ID: 7, OrderID: 1, MenuItemID: 1, Name: "Burger", Quantity: 5}}
	gateway := newFakeGateway(order)
	notifier := &mockNotifier{}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, &mockJournal{})

	if _, err := session.ChangeQuantity(context.Background(), 7, 2); err != nil {
		t.Fatalf("change: %v", err)
	}

	flush, err := session.FlushTicket(context.Background(), "")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if flush.Printed {
		t.Errorf("decreases are not printable")
	}
	if len(notifier.published()) != 0 {
		t.Errorf("kitchen must not be notified of decreases")
	}
	if session.HasChanges() {
		t.Errorf("ledger must still be cleared")
	}
}

func TestFlushTicket_PublishFailureKeepsLedger(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	notifier := &mockNotifier{
		PublishFunc: func(ctx context.Context, n kitchen.Notification) error {
			return errors.New("broker down")
		},
	}
	journal := &mockJournal{}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, journal)

	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 2, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	_, err := session.FlushTicket(context.Background(), "")
	if err == nil {
		t.Fatalf("expected flush to fail")
	}

	if !session.HasChanges() {
		t.Errorf("ledger must survive a failed flush")
	}
	if len(journal.forgotten) != 1 {
		t.Errorf("flush fingerprint must be released after a failed publish, forgotten=%v", journal.forgotten)
	}
}

func TestFlushTicket_DuplicateFlushSuppressed(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	notifier := &mockNotifier{}
	journal := &mockJournal{
		FirstSeenFunc: func(ctx context.Context, fingerprint string) (bool, error) {
			return false, nil
		},
	}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, journal)

	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 2, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	flush, err := session.FlushTicket(context.Background(), "")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if len(notifier.published()) != 0 {
		t.Errorf("already-published flush must not hit the broker again")
	}
	if !flush.Printed {
		t.Errorf("a deduplicated flush still counts as printed")
	}
	if session.HasChanges() {
		t.Errorf("ledger must be cleared")
	}
}

func TestFlushTicket_JournalOutageFailsOpen(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	notifier := &mockNotifier{}
	journal := &mockJournal{
		FirstSeenFunc: func(ctx context.Context, fingerprint string) (bool, error) {
			return false, errors.New("redis unreachable")
		},
	}
	session := newTestSession(t, gateway, unlimitedMenuRepo(), notifier, journal)

	if _, err := session.AddItem(context.Background(), dto.AddItemRequest{MenuItemID: 2, Quantity: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	flush, err := session.FlushTicket(context.Background(), "")
	if err != nil {
		t.Fatalf("flush: %v", err)
	}

	if !flush.Printed || len(notifier.published()) != 1 {
		t.Errorf("journal outage must not block the kitchen")
	}
}

func TestSessionManager_ReusesSessionPerOrder(t *testing.T) {
	gateway := newFakeGateway(pendingOrder())
	manager := NewSessionManager(
		gateway, unlimitedMenuRepo(), defaultVenueRepo(),
		&mockNotifier{}, &mockJournal{},
		domain.RemovalPolicySuppress, zap.NewNop(),
	)
	defer manager.Close()

	first, err := manager.Session(context.Background(), 1)
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	second, err := manager.Session(context.Background(), 1)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}

	if first != second {
		t.Errorf("expected one session per order")
	}
}
