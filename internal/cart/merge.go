package cart

import (
	"encoding/json"
	"slices"

	"github.com/aarluxe/pos-cart/pkg/enums"
	"github.com/aarluxe/pos-cart/pkg/types"
	"github.com/shopspring/decimal"
)

// PricedLine is the server's verdict on one line of a quote.
type PricedLine struct {
	Key       Key
	OptionIDs []int64
	UnitPrice decimal.Decimal
	LineTotal *decimal.Decimal
	Status    enums.LineStatus
	Conflicts []json.RawMessage
}

// Merge stages the result of applying priced lines onto items without touching
// the originals. Matched lines take the server's price, total, status and
// conflicts; local-only fields are kept. Local lines the server did not return
// pass through unchanged and server lines without a local match are ignored.
func Merge(items []LineItem, priced []PricedLine) []LineItem {
	byKey := make(map[Key]PricedLine, len(priced))
	for _, line := range priced {
		if _, seen := byKey[line.Key]; seen {
			continue
		}
		byKey[line.Key] = line
	}

	out := make([]LineItem, len(items))
	for i, item := range items {
		staged := item.clone()
		if line, ok := byKey[item.Key()]; ok {
			staged.UnitPrice = types.ConfirmedPrice(line.UnitPrice)
			staged.LineTotal = nil
			if line.LineTotal != nil {
				total := *line.LineTotal
				staged.LineTotal = &total
			}
			staged.Status = line.Status
			staged.Conflicts = nil
			if len(line.Conflicts) > 0 {
				staged.Conflicts = make([]json.RawMessage, len(line.Conflicts))
				for j, c := range line.Conflicts {
					staged.Conflicts[j] = slices.Clone(c)
				}
			}
		}
		out[i] = staged
	}
	return out
}
