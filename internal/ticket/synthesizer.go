// Package ticket renders a ledger snapshot into the text lines a kitchen
// printer receives. The transform is pure: filtering and formatting only, no
// ledger mutation.
package ticket

import (
	"fmt"
	"strings"

	"comanda/internal/domain"
)

// Synthesize maps pending change records to printable lines, in record order.
//
// Quantity decreases are never printed: a kitchen that already started cooking
// cannot un-cook. Removals follow the venue's policy; suppressed records still
// show up in change summaries, just not on the ticket.
func Synthesize(records []domain.ChangeRecord, policy domain.RemovalPolicy) []string {
	lines := make([]string, 0, len(records))

	for _, rec := range records {
		switch rec.ChangeType {
		case domain.ChangeTypeNew:
			if rec.NetChange > 0 {
				lines = append(lines, fmt.Sprintf("%dx %s", rec.NetChange, displayName(rec.Name)))
			}
		case domain.ChangeTypeUpdate:
			if rec.NetChange > 0 {
				lines = append(lines, fmt.Sprintf("%s +%d", displayName(rec.Name), rec.NetChange))
			}
		case domain.ChangeTypeRemove:
			if policy == domain.RemovalPolicyAudit {
				lines = append(lines, fmt.Sprintf("❌ REMOVE: %s x%d", displayName(rec.Name), abs(rec.NetChange)))
			}
		}
	}

	return lines
}

func displayName(name string) string {
	return strings.ToUpper(strings.TrimSpace(name))
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
