package gateway

import (
	"testing"

	"github.com/avelinehq/cartside/pkg/types"
	"github.com/shopspring/decimal"
)

func line(id string, price int64, qty int) types.CartLine {
	return types.CartLine{ProductID: id, UnitListPrice: decimal.NewFromInt(price), Quantity: qty}
}

func TestMergeLinesUnionKeepsOrder(t *testing.T) {
	t.Parallel()

	merged := MergeLines(
		[]types.CartLine{line("A", 1000, 1)},
		[]types.CartLine{line("B", 500, 2)},
	)

	if len(merged) != 2 {
		t.Fatalf("expected union of 2 lines, got %+v", merged)
	}
	if merged[0].ProductID != "A" || merged[1].ProductID != "B" {
		t.Fatalf("expected session lines first, got %+v", merged)
	}
}

func TestMergeLinesSumsQuantitiesSessionPriceWins(t *testing.T) {
	t.Parallel()

	merged := MergeLines(
		[]types.CartLine{line("A", 1200, 2)},
		[]types.CartLine{line("A", 1000, 3)},
	)

	if len(merged) != 1 {
		t.Fatalf("expected one merged line, got %+v", merged)
	}
	if merged[0].Quantity != 5 {
		t.Fatalf("expected summed quantity 5, got %d", merged[0].Quantity)
	}
	if !merged[0].UnitListPrice.Equal(decimal.NewFromInt(1200)) {
		t.Fatalf("session price should win, got %s", merged[0].UnitListPrice)
	}
}

func TestMergeLinesDoesNotMutateInputs(t *testing.T) {
	t.Parallel()

	session := []types.CartLine{line("A", 100, 1)}
	user := []types.CartLine{line("A", 90, 2)}

	merged := MergeLines(session, user)
	if merged[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", merged[0].Quantity)
	}
	if session[0].Quantity != 1 || user[0].Quantity != 2 {
		t.Fatalf("merge mutated its inputs: session=%+v user=%+v", session, user)
	}
}

func TestMergeLinesEmptySides(t *testing.T) {
	t.Parallel()

	if got := MergeLines(nil, nil); len(got) != 0 {
		t.Fatalf("expected empty merge, got %+v", got)
	}
	if got := MergeLines(nil, []types.CartLine{line("B", 1, 1)}); len(got) != 1 || got[0].ProductID != "B" {
		t.Fatalf("expected user-only merge, got %+v", got)
	}
}
