package order

import (
	"database/sql"

	"comanda/internal/config"
	"comanda/internal/domain"
	"comanda/internal/kitchen"
	menurepo "comanda/internal/menu/repository"
	"comanda/internal/order/controller"
	orderrepo "comanda/internal/order/repository"
	"comanda/internal/order/usecase"
	venuerepo "comanda/internal/venue/repository"

	"go.uber.org/zap"
)

type Module struct {
	Controller *controller.OrderController
	Sessions   *usecase.SessionManager
}

func NewModule(
	db *sql.DB,
	cfg *config.Config,
	notifier *kitchen.Publisher,
	journal *kitchen.FlushJournal,
	logger *zap.Logger,
) *Module {
	orderRepo := orderrepo.NewMySQLOrderRepository(db, cfg.Kitchen.ScaleRetryAttempts)
	menuRepo := menurepo.NewMySQLMenuRepository(db)
	venueRepo := venuerepo.NewMySQLVenueConfigRepository(db)

	defaultPolicy, ok := domain.ParseRemovalPolicy(cfg.Kitchen.RemovalPolicy)
	if !ok {
		logger.Warn("unrecognized removal policy, defaulting to SUPPRESS",
			zap.String("policy", cfg.Kitchen.RemovalPolicy))
		defaultPolicy = domain.RemovalPolicySuppress
	}

	sessions := usecase.NewSessionManager(
		orderRepo,
		menuRepo,
		venueRepo,
		notifier,
		journal,
		defaultPolicy,
		logger,
	)

	return &Module{
		Controller: controller.NewOrderController(sessions, logger),
		Sessions:   sessions,
	}
}
