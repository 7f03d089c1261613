package gateway

import "github.com/avelinehq/cartside/pkg/types"

// MergeLines is the reference merge used by the local backends: union by
// product id, quantities summed on collision. Session lines come first and
// their price snapshots win, being the more recent adds. The remote HTTP
// backend owns its own merge semantics.
func MergeLines(session, user []types.CartLine) []types.CartLine {
	merged := types.CloneLines(session)
	index := make(map[string]int, len(merged))
	for i, line := range merged {
		index[line.ProductID] = i
	}
	for _, line := range user {
		if i, ok := index[line.ProductID]; ok {
			merged[i].Quantity += line.Quantity
			continue
		}
		merged = append(merged, line)
		index[line.ProductID] = len(merged) - 1
	}
	return merged
}
