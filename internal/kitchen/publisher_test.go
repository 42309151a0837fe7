package kitchen

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	apperrors "comanda/internal/errors"
)

type mockBroker struct {
	PublishFunc func(ctx context.Context, exchange, key string, body []byte, headers amqp.Table) error

	exchange string
	key      string
	body     []byte
	headers  amqp.Table
}

func (m *mockBroker) Publish(ctx context.Context, exchange, key string, body []byte, headers amqp.Table) error {
	m.exchange = exchange
	m.key = key
	m.body = body
	m.headers = headers
	if m.PublishFunc != nil {
		return m.PublishFunc(ctx, exchange, key, body, headers)
	}
	return nil
}

func TestPublishTicket_RoutesAndEncodes(t *testing.T) {
	broker := &mockBroker{}
	pub := NewPublisher(broker, "kitchen_tickets", zap.NewNop())

	n := Notification{
		TicketID:       "t-1",
		OrderID:        42,
		PrinterRef:     "kitchen.grill",
		RemovedLineIDs: []uint{3},
		ChangedLineIDs: []uint{1, 2},
		Lines:          []string{"2x FRIES", "BURGER +1"},
		Details: []ChangeDetail{
			{LineID: 1, Name: "Fries", MenuItemID: 7, ChangeType: "NEW", NetChange: 2},
		},
		IssuedAt: time.Now().UTC(),
	}

	err := pub.PublishTicket(context.Background(), n)

	assert.NoError(t, err)
	assert.Equal(t, "kitchen_tickets", broker.exchange)
	assert.Equal(t, "kitchen.grill", broker.key)
	assert.Equal(t, "t-1", broker.headers["x-ticket-id"])

	var decoded Notification
	assert.NoError(t, json.Unmarshal(broker.body, &decoded))
	assert.Equal(t, uint(42), decoded.OrderID)
	assert.Equal(t, []string{"2x FRIES", "BURGER +1"}, decoded.Lines)
	assert.Equal(t, []uint{3}, decoded.RemovedLineIDs)
	assert.Len(t, decoded.Details, 1)
}

func TestPublishTicket_BrokerFailureIsUnavailable(t *testing.T) {
	broker := &mockBroker{
		PublishFunc: func(ctx context.Context, exchange, key string, body []byte, headers amqp.Table) error {
			return errors.New("publish NACK from broker")
		},
	}
	pub := NewPublisher(broker, "kitchen_tickets", zap.NewNop())

	err := pub.PublishTicket(context.Background(), Notification{TicketID: "t-2"})

	_, ok := apperrors.IsUnavailableError(err)
	assert.True(t, ok)
}
