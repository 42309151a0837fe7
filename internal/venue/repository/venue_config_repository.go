package repository

import (
	"context"
	"database/sql"
	"fmt"

	"comanda/internal/domain"
	"comanda/internal/errors"
)

type MySQLVenueConfigRepository struct {
	db *sql.DB
}

func NewMySQLVenueConfigRepository(db *sql.DB) *MySQLVenueConfigRepository {
	return &MySQLVenueConfigRepository{db: db}
}

func (r *MySQLVenueConfigRepository) FindByVenueID(ctx context.Context, venueID int) (*domain.VenueConfig, error) {
	query := `
		SELECT id, venueId, hasStockControl, removalPolicy, kitchenRoutingKey, createdAt, updatedAt
		FROM VenueConfig
		WHERE venueId = ?
	`

	var cfg domain.VenueConfig
	var policy string
	err := r.db.QueryRowContext(ctx, query, venueID).Scan(
		&cfg.ID, &cfg.VenueID, &cfg.HasStockControl, &policy, &cfg.KitchenRoutingKey,
		&cfg.CreatedAt, &cfg.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError(fmt.Sprintf("venue config for venue id %d not found", venueID))
	}
	if err != nil {
		return nil, errors.NewUnavailableError("querying venue config by venue id", err)
	}

	parsed, ok := domain.ParseRemovalPolicy(policy)
	if !ok {
		parsed = domain.RemovalPolicySuppress
	}
	cfg.RemovalPolicy = parsed

	return &cfg, nil
}
