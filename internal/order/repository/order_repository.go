package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"math/rand"
	"sort"
	"time"

	gomysql "github.com/go-sql-driver/mysql"

	"comanda/internal/domain"
	"comanda/internal/dto"
	"comanda/internal/errors"
)

// MySQLOrderRepository is the backend gateway for order mutations. The core
// treats every call as a black-box request/response; any transient failure
// surfaces as an UnavailableError and is never retried here, except the
// multi-row addon rescale, which retries only on mysql deadlocks.
type MySQLOrderRepository struct {
	db               *sql.DB
	maxRetryAttempts int
}

func NewMySQLOrderRepository(db *sql.DB, maxRetryAttempts int) *MySQLOrderRepository {
	if maxRetryAttempts < 1 {
		maxRetryAttempts = 1
	}
	return &MySQLOrderRepository{db: db, maxRetryAttempts: maxRetryAttempts}
}

func (r *MySQLOrderRepository) GetOrder(ctx context.Context, orderID uint) (*domain.Order, error) {
	query := `
		SELECT id, venueId, status, deliveryFee, createdAt, updatedAt
		FROM Orders
		WHERE id = ?
	`

	var order domain.Order
	err := r.db.QueryRowContext(ctx, query, orderID).Scan(
		&order.ID, &order.VenueID, &order.Status, &order.DeliveryFee,
		&order.CreatedAt, &order.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("order with id %d not found", orderID))
	}
	if err != nil {
		return nil, errors.NewUnavailableError("querying order", err)
	}

	lines, err := r.linesForOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	order.Lines = lines

	return &order, nil
}

func (r *MySQLOrderRepository) linesForOrder(ctx context.Context, orderID uint) ([]domain.OrderLine, error) {
	query := `
		SELECT id, orderId, menuItemId, name, quantity, unitPrice, notes, createdAt
		FROM OrderLines
		WHERE orderId = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, orderID)
	if err != nil {
		return nil, errors.NewUnavailableError("querying order lines", err)
	}
	defer rows.Close()

	var lines []domain.OrderLine
	for rows.Next() {
		var line domain.OrderLine
		err := rows.Scan(
			&line.ID, &line.OrderID, &line.MenuItemID, &line.Name,
			&line.Quantity, &line.UnitPrice, &line.Notes, &line.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning order line row: %w", err)
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating order line rows: %w", err)
	}

	for i := range lines {
		attachments, err := r.attachmentsForLine(ctx, lines[i].ID)
		if err != nil {
			return nil, err
		}
		lines[i].Attachments = attachments
	}

	return lines, nil
}

func (r *MySQLOrderRepository) attachmentsForLine(ctx context.Context, lineID uint) ([]domain.AddonAttachment, error) {
	query := `
		SELECT id, lineId, addonId, addonType, quantity, unitPrice
		FROM AddonAttachments
		WHERE lineId = ?
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, lineID)
	if err != nil {
		return nil, errors.NewUnavailableError("querying addon attachments", err)
	}
	defer rows.Close()

	var attachments []domain.AddonAttachment
	for rows.Next() {
		var att domain.AddonAttachment
		err := rows.Scan(
			&att.ID, &att.LineID, &att.AddonID, &att.AddonType,
			&att.Quantity, &att.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning addon attachment row: %w", err)
		}
		attachments = append(attachments, att)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating addon attachment rows: %w", err)
	}

	return attachments, nil
}

// CreateLine persists a new line with its addon attachments. The returned id
// is a lightweight reference: callers must re-fetch the order for the
// authoritative line (see the reconciler). The client token is stored so a
// future backend can echo it back as a proper correlation key.
func (r *MySQLOrderRepository) CreateLine(
	ctx context.Context,
	orderID uint,
	menuItemID int,
	quantity int,
	addons []dto.AddonSelection,
	notes string,
	clientToken string,
) (uint, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.NewUnavailableError("beginning create-line transaction", err)
	}
	defer tx.Rollback()

	var name string
	var price string
	row := tx.QueryRowContext(ctx, `SELECT name, price FROM MenuItems WHERE id = ?`, menuItemID)
	if err := row.Scan(&name, &price); err != nil {
		if err == sql.ErrNoRows {
			return 0, errors.NewNotFoundError(fmt.Sprintf("menu item with id %d not found", menuItemID))
		}
		return 0, errors.NewUnavailableError("querying menu item for line", err)
	}

	insertLine := `
		INSERT INTO OrderLines (orderId, menuItemId, name, quantity, unitPrice, notes, clientToken)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	result, err := tx.ExecContext(ctx, insertLine, orderID, menuItemID, name, quantity, price, notes, clientToken)
	if err != nil {
		return 0, errors.NewUnavailableError("inserting order line", err)
	}

	lineID, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("getting last insert id: %w", err)
	}

	insertAttachment := `
		INSERT INTO AddonAttachments (lineId, addonId, addonType, quantity, unitPrice)
		VALUES (?, ?, ?, ?, (SELECT price FROM Addons WHERE id = ?))
	`
	for _, sel := range addons {
		// selection quantities are per unit of the parent line
		_, err := tx.ExecContext(ctx, insertAttachment,
			lineID, sel.AddonID, sel.AddonType, sel.Quantity*quantity, sel.AddonID)
		if err != nil {
			return 0, errors.NewUnavailableError("inserting addon attachment", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.NewUnavailableError("committing create-line transaction", err)
	}

	return uint(lineID), nil
}

func (r *MySQLOrderRepository) UpdateLineQuantity(ctx context.Context, lineID uint, quantity int) error {
	query := `UPDATE OrderLines SET quantity = ? WHERE id = ?`

	result, err := r.db.ExecContext(ctx, query, quantity, lineID)
	if err != nil {
		return errors.NewUnavailableError("updating line quantity", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// mysql reports zero affected rows for a same-value update too, so
		// confirm the line really is gone before calling it missing
		var exists int
		if err := r.db.QueryRowContext(ctx, `SELECT 1 FROM OrderLines WHERE id = ?`, lineID).Scan(&exists); err == sql.ErrNoRows {
			return errors.NewNotFoundError(fmt.Sprintf("order line with id %d not found", lineID))
		}
	}

	return nil
}

func (r *MySQLOrderRepository) RemoveLine(ctx context.Context, lineID uint) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM OrderLines WHERE id = ?`, lineID)
	if err != nil {
		return errors.NewUnavailableError("removing order line", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return errors.NewNotFoundError(fmt.Sprintf("order line with id %d not found", lineID))
	}

	return nil
}

// ScaleAddons writes every attachment's target quantity inside one
// transaction. Multi-row updates against hot lines are deadlock-prone, so this
// retries on mysql deadlock with jittered backoff.
func (r *MySQLOrderRepository) ScaleAddons(ctx context.Context, lineID uint, adjustments []domain.AddonAdjustment) error {
	if len(adjustments) == 0 {
		return nil
	}

	// lock rows in a stable order
	sorted := make([]domain.AddonAdjustment, len(adjustments))
	copy(sorted, adjustments)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].AttachmentID < sorted[j].AttachmentID })

	backoffs := []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}

	var lastErr error
	for attempt := 1; attempt <= r.maxRetryAttempts; attempt++ {
		lastErr = r.scaleAddonsOnce(ctx, lineID, sorted)
		if lastErr == nil {
			return nil
		}
		if !isDeadlockError(lastErr) {
			return lastErr
		}
		if attempt < r.maxRetryAttempts {
			idx := attempt - 1
			if idx >= len(backoffs) {
				idx = len(backoffs) - 1
			}
			jitter := time.Duration(float64(backoffs[idx]) * (0.8 + rand.Float64()*0.4))
			time.Sleep(jitter)
		}
	}

	return errors.NewUnavailableError("scaling addons: max deadlock retries exceeded", lastErr)
}

func (r *MySQLOrderRepository) scaleAddonsOnce(ctx context.Context, lineID uint, adjustments []domain.AddonAdjustment) error {
	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead})
	if err != nil {
		return errors.NewUnavailableError("beginning scale-addons transaction", err)
	}
	defer tx.Rollback()

	query := `UPDATE AddonAttachments SET quantity = ? WHERE id = ? AND lineId = ?`
	for _, adj := range adjustments {
		if _, err := tx.ExecContext(ctx, query, adj.Quantity, adj.AttachmentID, lineID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

func isDeadlockError(err error) bool {
	var mysqlErr *gomysql.MySQLError
	if stderrors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1213 || mysqlErr.Number == 1205
	}
	return false
}
