package slab

import (
	"errors"
	"testing"

	"bookwatch/internal/domain"

	"github.com/gagliardetto/solana-go"
	"github.com/shopspring/decimal"
)

// buildThreeLeafTree lays out prices 10, 20, 30 as:
//
//	root(0) -> [leaf10(1), inner(2)]
//	inner(2) -> [leaf20(3), leaf30(4)]
//
// Children[0] always holds the lesser-keyed subtree, matching the venue's
// maintenance invariant.
func buildThreeLeafTree(kind uint8) []byte {
	buf := newSlabBuf(kind, 5, 0, 3)
	putInner(buf, 0, 1, 2)
	putLeaf(buf, 1, 10, 1, ownerKey(1), 100, 1)
	putInner(buf, 2, 3, 4)
	putLeaf(buf, 3, 20, 2, ownerKey(2), 100, 2)
	putLeaf(buf, 4, 30, 3, ownerKey(3), 100, 3)
	return buf
}

func ownerKey(b byte) (pk solana.PublicKey) {
	pk[0] = b
	return
}

func prices(t *testing.T, side *BookSide) []decimal.Decimal {
	t.Helper()
	orders, err := side.AllOrders()
	if err != nil {
		t.Fatalf("Traversal failed: %v", err)
	}
	out := make([]decimal.Decimal, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.Price)
	}
	return out
}

func TestOrders_EmptyLeafCount(t *testing.T) {
	// Garbage root and free-list contents must be ignored when the tree is empty.
	buf := newSlabBuf(5, 3, 999999, 0)
	putFree(buf, 0, 1, false)
	putFree(buf, 1, 0, true)

	side, err := ParseBookSide(buf, testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	orders, err := side.AllOrders()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(orders) != 0 {
		t.Errorf("Expected empty sequence, got %d orders", len(orders))
	}
}

func TestOrders_ScalingExactness(t *testing.T) {
	// base_decimals=6, quote_decimals=6, base_lot=100, quote_lot=1:
	// native price 500 -> UI 5, native quantity 200 -> UI 0.02. Exact, no
	// float rounding.
	buf := newSlabBuf(5, 1, 0, 1)
	putLeaf(buf, 0, 500, 1, ownerKey(1), 200, 42)

	side, err := ParseBookSide(buf, testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	orders, err := side.AllOrders()
	if err != nil {
		t.Fatalf("Traversal failed: %v", err)
	}
	if len(orders) != 1 {
		t.Fatalf("Expected 1 order, got %d", len(orders))
	}

	if !orders[0].Price.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected price 5, got %s", orders[0].Price)
	}
	if !orders[0].Quantity.Equal(decimal.RequireFromString("0.02")) {
		t.Errorf("Expected quantity 0.02, got %s", orders[0].Quantity)
	}
	if orders[0].ClientOrderID != 42 {
		t.Errorf("Expected client order id 42, got %d", orders[0].ClientOrderID)
	}
	if orders[0].Type != domain.OrderTypeLimit {
		t.Errorf("Expected limit order, got %v", orders[0].Type)
	}
}

func TestOrders_BidsDescending(t *testing.T) {
	side, err := ParseBookSide(buildThreeLeafTree(5), testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if side.Side != domain.SideBids {
		t.Fatalf("Expected bids, got %v", side.Side)
	}

	got := prices(t, side)
	if len(got) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].GreaterThan(got[i-1]) {
			t.Fatalf("Bid prices must be non-increasing, got %v", got)
		}
	}
	if !got[0].Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Expected best bid 0.3, got %s", got[0])
	}
}

func TestOrders_AsksAscending(t *testing.T) {
	side, err := ParseBookSide(buildThreeLeafTree(6), testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if side.Side != domain.SideAsks {
		t.Fatalf("Expected asks, got %v", side.Side)
	}

	got := prices(t, side)
	if len(got) != 3 {
		t.Fatalf("Expected 3 orders, got %d", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].LessThan(got[i-1]) {
			t.Fatalf("Ask prices must be non-decreasing, got %v", got)
		}
	}
	if !got[0].Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("Expected best ask 0.1, got %s", got[0])
	}
}

func TestOrders_SamePriceStable(t *testing.T) {
	// Two leaves at the same price; the key's sequence component decides and
	// the traversal must not re-sort.
	buf := newSlabBuf(6, 3, 0, 2)
	putInner(buf, 0, 1, 2)
	putLeaf(buf, 1, 50, 1, ownerKey(1), 100, 111)
	putLeaf(buf, 2, 50, 2, ownerKey(2), 100, 222)

	side, err := ParseBookSide(buf, testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	orders, err := side.AllOrders()
	if err != nil {
		t.Fatalf("Traversal failed: %v", err)
	}
	if len(orders) != 2 {
		t.Fatalf("Expected 2 orders, got %d", len(orders))
	}
	// Asks visit Children[0] first.
	if orders[0].ClientOrderID != 111 || orders[1].ClientOrderID != 222 {
		t.Errorf("Expected order [111 222], got [%d %d]", orders[0].ClientOrderID, orders[1].ClientOrderID)
	}
}

func TestOrders_RoundTrip(t *testing.T) {
	// Five distinct prices in a hand-built tree; traversal must return
	// exactly the synthetic inputs in monotonic order.
	//
	//	root(0) -> [inner(1), inner(2)]
	//	inner(1) -> [leaf1(3), leaf2(4)]
	//	inner(2) -> [leaf3(5), inner(6)]
	//	inner(6) -> [leaf4(7), leaf5(8)]
	buf := newSlabBuf(6, 9, 0, 5)
	putInner(buf, 0, 1, 2)
	putInner(buf, 1, 3, 4)
	putInner(buf, 2, 5, 6)
	putInner(buf, 6, 7, 8)
	putLeaf(buf, 3, 100, 1, ownerKey(1), 10, 1)
	putLeaf(buf, 4, 200, 2, ownerKey(2), 10, 2)
	putLeaf(buf, 5, 300, 3, ownerKey(3), 10, 3)
	putLeaf(buf, 7, 400, 4, ownerKey(4), 10, 4)
	putLeaf(buf, 8, 500, 5, ownerKey(5), 10, 5)

	side, err := ParseBookSide(buf, testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	got := prices(t, side)
	want := []string{"1", "2", "3", "4", "5"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d orders, got %d", len(want), len(got))
	}
	for i, w := range want {
		if !got[i].Equal(decimal.RequireFromString(w)) {
			t.Errorf("Position %d: expected %s, got %s", i, w, got[i])
		}
	}
}

func TestOrders_Restartable(t *testing.T) {
	side, err := ParseBookSide(buildThreeLeafTree(5), testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	first, err := side.AllOrders()
	if err != nil {
		t.Fatalf("First traversal failed: %v", err)
	}
	second, err := side.AllOrders()
	if err != nil {
		t.Fatalf("Second traversal failed: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("Traversals disagree: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if !first[i].Price.Equal(second[i].Price) || first[i].ClientOrderID != second[i].ClientOrderID {
			t.Errorf("Position %d differs between traversals", i)
		}
	}
}

func TestOrders_EarlyStop(t *testing.T) {
	side, err := ParseBookSide(buildThreeLeafTree(5), testScaling())
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}

	count := 0
	for _, err := range side.Orders() {
		if err != nil {
			t.Fatalf("Traversal failed: %v", err)
		}
		count++
		if count == 1 {
			break
		}
	}
	if count != 1 {
		t.Errorf("Expected early stop after 1 order, got %d", count)
	}
}

func TestOrders_CorruptTree(t *testing.T) {
	corruptCases := []struct {
		name   string
		build  func() []byte
		reason string
	}{
		{
			name: "Child Out Of Range",
			build: func() []byte {
				buf := newSlabBuf(5, 2, 0, 1)
				putInner(buf, 0, 1, 500) // 500 >= bump index 2
				putLeaf(buf, 1, 10, 1, ownerKey(1), 1, 1)
				return buf
			},
		},
		{
			name: "Cycle",
			build: func() []byte {
				buf := newSlabBuf(5, 2, 0, 1)
				putInner(buf, 0, 1, 0) // Points back at itself
				putLeaf(buf, 1, 10, 1, ownerKey(1), 1, 1)
				return buf
			},
		},
		{
			name: "Cycle With Forged Huge Bump Index",
			build: func() []byte {
				// A maximal bump index must not widen the cycle bound past
				// the node array; this self-loop has to terminate promptly.
				buf := newSlabBuf(5, ^uint64(0), 0, 1)
				putInner(buf, 0, 0, 0)
				return buf
			},
		},
		{
			name: "Reachable Free Node",
			build: func() []byte {
				buf := newSlabBuf(5, 2, 0, 1)
				putInner(buf, 0, 1, 1)
				putFree(buf, 1, 0, true)
				return buf
			},
		},
		{
			name: "Reachable Uninitialized Node",
			build: func() []byte {
				// Root points at a slot that was never written.
				return newSlabBuf(5, 2, 1, 1)
			},
		},
	}

	for _, tc := range corruptCases {
		t.Run(tc.name, func(t *testing.T) {
			side, err := ParseBookSide(tc.build(), testScaling())
			if err != nil {
				t.Fatalf("Parse must succeed (corruption surfaces at traversal): %v", err)
			}

			_, err = side.AllOrders()
			if err == nil {
				t.Fatal("Expected CorruptTreeError")
			}
			var corrupt *domain.CorruptTreeError
			if !errors.As(err, &corrupt) {
				t.Fatalf("Expected CorruptTreeError, got %v", err)
			}
			if domain.IsRetriable(err) {
				t.Error("Corrupt tree errors must not be retriable")
			}
		})
	}
}
