package cart

import (
	"testing"

	"github.com/google/uuid"
)

func TestSnapshotRepeatAddIncrementsQuantity(t *testing.T) {
	t.Parallel()

	p1 := testProduct("p1", 999)
	var snapshot Snapshot

	snapshot.AddItem(p1, 1)
	snapshot.AddItem(p1, 2)

	if len(snapshot.Items) != 1 {
		t.Fatalf("expected one line item, got %d", len(snapshot.Items))
	}
	if snapshot.Items[0].Quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", snapshot.Items[0].Quantity)
	}
	if snapshot.SubtotalCents != 2997 {
		t.Fatalf("expected subtotal 2997, got %d", snapshot.SubtotalCents)
	}
	if snapshot.ItemCount != 3 {
		t.Fatalf("expected item count 3, got %d", snapshot.ItemCount)
	}
}

func TestSnapshotTotalsAlwaysRecomputed(t *testing.T) {
	t.Parallel()

	a := testProduct("a", 1000)
	b := testProduct("b", 250)
	var snapshot Snapshot

	snapshot.AddItem(a, 2)
	snapshot.AddItem(b, 4)
	snapshot.UpdateQuantity(a.ID, 1)
	snapshot.RemoveItem(b.ID)
	snapshot.AddItem(b, 3)

	wantSubtotal := 0
	wantCount := 0
	for _, item := range snapshot.Items {
		wantSubtotal += item.UnitPriceCents * item.Quantity
		wantCount += item.Quantity
	}
	if snapshot.SubtotalCents != wantSubtotal {
		t.Fatalf("subtotal %d != recomputed %d", snapshot.SubtotalCents, wantSubtotal)
	}
	if snapshot.ItemCount != wantCount {
		t.Fatalf("item count %d != recomputed %d", snapshot.ItemCount, wantCount)
	}
}

func TestSnapshotUpdateQuantityBelowOneIsNoOp(t *testing.T) {
	t.Parallel()

	p := testProduct("p", 500)
	var snapshot Snapshot
	snapshot.AddItem(p, 2)

	for _, quantity := range []int{0, -1, -100} {
		if snapshot.UpdateQuantity(p.ID, quantity) {
			t.Fatalf("quantity %d must be a no-op", quantity)
		}
		if snapshot.Items[0].Quantity != 2 {
			t.Fatalf("quantity changed to %d", snapshot.Items[0].Quantity)
		}
	}
}

func TestSnapshotUpdateQuantityMissingLine(t *testing.T) {
	t.Parallel()

	var snapshot Snapshot
	snapshot.AddItem(testProduct("p", 500), 1)

	if snapshot.UpdateQuantity(uuid.New(), 3) {
		t.Fatal("expected update of missing line to report false")
	}
}

func TestSnapshotRemoveItem(t *testing.T) {
	t.Parallel()

	a := testProduct("a", 1000)
	b := testProduct("b", 2000)
	var snapshot Snapshot
	snapshot.AddItem(a, 1)
	snapshot.AddItem(b, 1)

	if !snapshot.RemoveItem(a.ID) {
		t.Fatal("expected removal to succeed")
	}
	if snapshot.Find(a.ID) != nil {
		t.Fatal("line still present after removal")
	}
	if snapshot.SubtotalCents != 2000 || snapshot.ItemCount != 1 {
		t.Fatalf("totals not recomputed: subtotal=%d count=%d", snapshot.SubtotalCents, snapshot.ItemCount)
	}
	if snapshot.RemoveItem(a.ID) {
		t.Fatal("second removal should report false")
	}
}

func TestSnapshotMergeLineSumsQuantities(t *testing.T) {
	t.Parallel()

	p := testProduct("p", 1200)
	var user Snapshot
	user.AddItem(p, 2)

	guestLine := LineItem{ProductID: p.ID, Name: p.Name, UnitPriceCents: p.PriceCents, Quantity: 3, AddedOrdinal: 1}
	user.MergeLine(guestLine)

	if len(user.Items) != 1 || user.Items[0].Quantity != 5 {
		t.Fatalf("expected merged quantity 5, got %+v", user.Items)
	}

	other := LineItem{ProductID: uuid.New(), Name: "other", UnitPriceCents: 100, Quantity: 1, AddedOrdinal: 1}
	user.MergeLine(other)
	if len(user.Items) != 2 {
		t.Fatalf("expected new line for unseen product, got %+v", user.Items)
	}
	if user.Items[1].AddedOrdinal <= user.Items[0].AddedOrdinal {
		t.Fatalf("merged line must keep add order, got ordinals %d and %d", user.Items[0].AddedOrdinal, user.Items[1].AddedOrdinal)
	}
}

func TestSnapshotAddOrderPreserved(t *testing.T) {
	t.Parallel()

	var snapshot Snapshot
	first := testProduct("first", 100)
	second := testProduct("second", 200)
	third := testProduct("third", 300)

	snapshot.AddItem(first, 1)
	snapshot.AddItem(second, 1)
	snapshot.RemoveItem(first.ID)
	snapshot.AddItem(third, 1)

	if snapshot.Items[0].Name != "second" || snapshot.Items[1].Name != "third" {
		t.Fatalf("unexpected order: %+v", snapshot.Items)
	}
	if snapshot.Items[1].AddedOrdinal <= snapshot.Items[0].AddedOrdinal {
		t.Fatal("ordinals must stay increasing")
	}
}

func TestSnapshotClear(t *testing.T) {
	t.Parallel()

	var snapshot Snapshot
	snapshot.AddItem(testProduct("p", 100), 5)
	snapshot.Clear()

	if len(snapshot.Items) != 0 || snapshot.SubtotalCents != 0 || snapshot.ItemCount != 0 {
		t.Fatalf("cart not cleared: %+v", snapshot)
	}
}
