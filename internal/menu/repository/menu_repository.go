package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

type MySQLMenuRepository struct {
	db *sql.DB
}

func NewMySQLMenuRepository(db *sql.DB) *MySQLMenuRepository {
	return &MySQLMenuRepository{db: db}
}

func (r *MySQLMenuRepository) FindByID(ctx context.Context, menuItemID int) (*domain.MenuItem, error) {
	query := `
		SELECT id, name, description, price, stock, reserved_stock,
		       venueId, category, isActive, isDeleted, hasStock, stockeable,
		       createdAt, updatedAt
		FROM MenuItems
		WHERE id = ?
		  AND isDeleted = 0
	`

	var item domain.MenuItem
	err := r.db.QueryRowContext(ctx, query, menuItemID).Scan(
		&item.ID, &item.Name, &item.Description, &item.Price,
		&item.Stock, &item.ReservedStock,
		&item.VenueID, &item.Category,
		&item.IsActive, &item.IsDeleted, &item.HasStock, &item.Stockeable,
		&item.CreatedAt, &item.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("menu item with id %d not found", menuItemID))
	}
	if err != nil {
		return nil, errors.NewUnavailableError("querying menu item by id", err)
	}

	return &item, nil
}
