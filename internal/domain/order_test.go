package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestOrderLine_Total(t *testing.T) {
	line := OrderLine{
		ID:        1,
		Quantity:  3,
		UnitPrice: decimal.RequireFromString("8.50"),
		Attachments: []AddonAttachment{
			{ID: 10, Quantity: 3, UnitPrice: decimal.RequireFromString("1.25")},
		},
	}

	// 3*8.50 + 3*1.25
	assert.True(t, line.Total().Equal(decimal.RequireFromString("29.25")))
}

func TestOrder_Total_IncludesDeliveryFee(t *testing.T) {
	order := Order{
		Status:      OrderStatusPending,
		DeliveryFee: decimal.RequireFromString("2.00"),
		Lines: []OrderLine{
			{Quantity: 2, UnitPrice: decimal.RequireFromString("5.00")},
			{Quantity: 1, UnitPrice: decimal.RequireFromString("3.50")},
		},
	}

	assert.True(t, order.Total().Equal(decimal.RequireFromString("15.50")))
}

func TestOrder_LineByID(t *testing.T) {
	order := Order{
		Lines: []OrderLine{
			{ID: 1, Name: "Burger"},
			{ID: 2, Name: "Fries"},
		},
	}

	line := order.LineByID(2)
	assert.NotNil(t, line)
	assert.Equal(t, "Fries", line.Name)

	assert.Nil(t, order.LineByID(99))
}

func TestOrderLine_AddonTypeSet(t *testing.T) {
	line := OrderLine{
		Attachments: []AddonAttachment{
			{AddonType: "extra-cheese"},
			{AddonType: "bacon"},
		},
	}

	set := line.AddonTypeSet()
	assert.Len(t, set, 2)
	assert.True(t, set["extra-cheese"])
	assert.True(t, set["bacon"])
	assert.False(t, set["onion"])
}

func TestAddonAttachment_PerUnitQuantity(t *testing.T) {
	att := AddonAttachment{Quantity: 6}

	assert.Equal(t, 2, att.PerUnitQuantity(3))
	assert.Equal(t, 0, att.PerUnitQuantity(0))
}

func TestMenuItem_AvailableStock(t *testing.T) {
	stock := 10
	reserved := 4
	item := MenuItem{Stock: &stock, ReservedStock: &reserved}

	assert.Equal(t, 6, item.AvailableStock())
}

func TestMenuItem_AvailableStock_NilPointers(t *testing.T) {
	item := MenuItem{}
	assert.Equal(t, 0, item.AvailableStock())
}

func TestMenuItem_AvailableStock_NeverNegative(t *testing.T) {
	stock := 2
	reserved := 5
	item := MenuItem{Stock: &stock, ReservedStock: &reserved}

	assert.Equal(t, 0, item.AvailableStock())
}

func TestParseRemovalPolicy(t *testing.T) {
	policy, ok := ParseRemovalPolicy("AUDIT")
	assert.True(t, ok)
	assert.Equal(t, RemovalPolicyAudit, policy)

	_, ok = ParseRemovalPolicy("whatever")
	assert.False(t, ok)
}
