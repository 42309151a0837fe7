package service

import (
	"context"

	"go.uber.org/zap"

	"comanda/internal/domain"
)

type AddonGateway interface {
	ScaleAddons(ctx context.Context, lineID uint, adjustments []domain.AddonAdjustment) error
}

// AddonScaler keeps attachment quantities proportional to their parent line.
// Scaling failures are the caller's warning, never a rollback: the quantity
// change already happened and availability wins over strict addon consistency.
type AddonScaler struct {
	gateway AddonGateway
	logger  *zap.Logger
}

func NewAddonScaler(gateway AddonGateway, logger *zap.Logger) *AddonScaler {
	return &AddonScaler{gateway: gateway, logger: logger}
}

// Rescale adjusts every attachment of line to perUnitRate × newQuantity. The
// per-unit rate is derived from the snapshot taken before the quantity change.
func (s *AddonScaler) Rescale(ctx context.Context, line domain.OrderLine, oldQuantity, newQuantity int) error {
	if len(line.Attachments) == 0 || oldQuantity == newQuantity {
		return nil
	}

	adjustments := make([]domain.AddonAdjustment, 0, len(line.Attachments))
	for _, att := range line.Attachments {
		target := att.PerUnitQuantity(oldQuantity) * newQuantity
		if target == att.Quantity {
			continue
		}
		adjustments = append(adjustments, domain.AddonAdjustment{
			AttachmentID: att.ID,
			Quantity:     target,
		})
	}

	if len(adjustments) == 0 {
		return nil
	}

	if err := s.gateway.ScaleAddons(ctx, line.ID, adjustments); err != nil {
		s.logger.Warn("addon rescale failed, line quantity and addon quantities are now inconsistent",
			zap.Uint("lineId", line.ID),
			zap.Int("oldQuantity", oldQuantity),
			zap.Int("newQuantity", newQuantity),
			zap.Error(err),
		)
		return err
	}

	return nil
}
