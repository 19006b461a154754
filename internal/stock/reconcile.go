package stock

import "sort"

// Reconcile diffs an order's original line items against its edited set and
// returns the per-product stock deltas needed to move from one to the other.
// For a brand-new order pass nil as original: every quantity becomes a delta.
//
// Duplicate product rows within one list are summed. Deltas come back sorted
// by product so locks are always taken in the same order.
func Reconcile(original, updated []Line) []Delta {
	originalQty := sumByProduct(original)
	updatedQty := sumByProduct(updated)

	var deltas []Delta
	for productID, origQty := range originalQty {
		diff := updatedQty[productID] - origQty
		if diff != 0 {
			deltas = append(deltas, Delta{ProductID: productID, Change: diff})
		}
	}
	for productID, updQty := range updatedQty {
		if _, seen := originalQty[productID]; !seen && updQty != 0 {
			deltas = append(deltas, Delta{ProductID: productID, Change: updQty})
		}
	}

	sort.Slice(deltas, func(i, j int) bool { return deltas[i].ProductID < deltas[j].ProductID })
	return deltas
}

func sumByProduct(lines []Line) map[string]int64 {
	m := make(map[string]int64, len(lines))
	for _, line := range lines {
		m[line.ProductID] += line.Quantity
	}
	return m
}
