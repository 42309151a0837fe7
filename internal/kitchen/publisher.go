// Package kitchen delivers flushed tickets to the kitchen and guards against
// sending the same flush twice.
package kitchen

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"comanda/internal/errors"
)

// ChangeDetail is one ledger record as the kitchen consumer sees it.
type ChangeDetail struct {
	LineID     uint   `json:"line_id"`
	Name       string `json:"name"`
	MenuItemID int    `json:"menu_item_id"`
	ChangeType string `json:"change_type"`
	NetChange  int    `json:"net_change"`
}

// Notification is the wire payload for one kitchen ticket.
type Notification struct {
	TicketID       string         `json:"ticket_id"`
	OrderID        uint           `json:"order_id"`
	PrinterRef     string         `json:"printer_ref"`
	RemovedLineIDs []uint         `json:"removed_line_ids"`
	ChangedLineIDs []uint         `json:"changed_line_ids"`
	Lines          []string       `json:"lines"`
	Details        []ChangeDetail `json:"details"`
	IssuedAt       time.Time      `json:"issued_at"`
}

type Broker interface {
	Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table) error
}

// Publisher sends ticket notifications through the broker. The broker client
// waits for publisher confirms, so a nil return means the ticket is on the
// queue, not just on the socket.
type Publisher struct {
	broker   Broker
	exchange string
	logger   *zap.Logger
}

func NewPublisher(broker Broker, exchange string, logger *zap.Logger) *Publisher {
	return &Publisher{broker: broker, exchange: exchange, logger: logger}
}

func (p *Publisher) PublishTicket(ctx context.Context, n Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.NewInternalError("marshaling kitchen notification", err)
	}

	headers := amqp.Table{"x-ticket-id": n.TicketID}
	if err := p.broker.Publish(ctx, p.exchange, n.PrinterRef, body, headers); err != nil {
		return errors.NewUnavailableError("publishing kitchen notification", err)
	}

	p.logger.Info("kitchen ticket published",
		zap.String("ticketId", n.TicketID),
		zap.Uint("orderId", n.OrderID),
		zap.String("printerRef", n.PrinterRef),
		zap.Int("lineCount", len(n.Lines)),
	)

	return nil
}
