package ticket

import (
	"strings"
	"testing"

	"comanda/internal/domain"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestSynthesize_NewItems(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Fries", ChangeType: domain.ChangeTypeNew, NetChange: 1},
		{Name: "Drink", ChangeType: domain.ChangeTypeNew, NetChange: 1},
	}

	lines := Synthesize(records, domain.RemovalPolicySuppress)

	assert.Equal(t, []string{"1x FRIES", "1x DRINK"}, lines)
}

func TestSynthesize_QuantityIncrease(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Burger", ChangeType: domain.ChangeTypeUpdate, NetChange: 3},
	}

	lines := Synthesize(records, domain.RemovalPolicySuppress)

	assert.Equal(t, []string{"BURGER +3"}, lines)
}

func TestSynthesize_QuantityDecreaseFiltered(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Burger", ChangeType: domain.ChangeTypeUpdate, NetChange: -2},
	}

	lines := Synthesize(records, domain.RemovalPolicySuppress)

	assert.Empty(t, lines)
}

func TestSynthesize_RemovalSuppressed(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Soup", ChangeType: domain.ChangeTypeRemove, NetChange: -2},
	}

	lines := Synthesize(records, domain.RemovalPolicySuppress)

	assert.Empty(t, lines)
}

func TestSynthesize_RemovalAudited(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Soup", ChangeType: domain.ChangeTypeRemove, NetChange: -2},
	}

	lines := Synthesize(records, domain.RemovalPolicyAudit)

	assert.Equal(t, []string{"❌ REMOVE: SOUP x2"}, lines)
}

func TestSynthesize_NewWithZeroNetFiltered(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Fries", ChangeType: domain.ChangeTypeNew, NetChange: 0},
	}

	lines := Synthesize(records, domain.RemovalPolicyAudit)

	assert.Empty(t, lines)
}

func TestSynthesize_NameNormalization(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "  caesar salad ", ChangeType: domain.ChangeTypeNew, NetChange: 2},
	}

	lines := Synthesize(records, domain.RemovalPolicySuppress)

	assert.Equal(t, []string{"2x CAESAR SALAD"}, lines)
}

func TestSynthesize_EmptyInput(t *testing.T) {
	assert.Empty(t, Synthesize(nil, domain.RemovalPolicySuppress))
}

func TestSynthesize_MixedTicketGolden(t *testing.T) {
	records := []domain.ChangeRecord{
		{Name: "Fries", ChangeType: domain.ChangeTypeNew, NetChange: 2},
		{Name: "Burger", ChangeType: domain.ChangeTypeUpdate, NetChange: 1},
		{Name: "Cola", ChangeType: domain.ChangeTypeUpdate, NetChange: -1},
		{Name: "Soup", ChangeType: domain.ChangeTypeRemove, NetChange: -2},
		{Name: "Drink", ChangeType: domain.ChangeTypeNew, NetChange: 1},
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	suppressed := Synthesize(records, domain.RemovalPolicySuppress)
	g.Assert(t, "ticket_suppress", []byte(strings.Join(suppressed, "\n")+"\n"))

	audited := Synthesize(records, domain.RemovalPolicyAudit)
	g.Assert(t, "ticket_audit", []byte(strings.Join(audited, "\n")+"\n"))
}
