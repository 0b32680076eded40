package domain

import (
	"testing"
	"time"
)

func TestSaleNote_Subtotal(t *testing.T) {
	n := &SaleNote{Items: []SaleItem{
		{Quantity: 2, UnitPrice: 100},
		{Quantity: 1, UnitPrice: 49.50},
	}}
	if got := n.Subtotal(); got != 249.50 {
		t.Fatalf("Subtotal = %v; want 249.50", got)
	}
}

func TestSaleNote_ComputeTotal(t *testing.T) {
	cases := []struct {
		name     string
		note     SaleNote
		expected float64
	}{
		{
			name:     "no discount",
			note:     SaleNote{Items: []SaleItem{{Quantity: 1, UnitPrice: 200}}},
			expected: 200,
		},
		{
			name:     "percent discount",
			note:     SaleNote{DiscountPct: 10, Items: []SaleItem{{Quantity: 1, UnitPrice: 200}}},
			expected: 180,
		},
		{
			name:     "percent then flat",
			note:     SaleNote{DiscountPct: 10, DiscountAmount: 30, Items: []SaleItem{{Quantity: 1, UnitPrice: 200}}},
			expected: 150,
		},
		{
			name:     "floored at zero",
			note:     SaleNote{DiscountAmount: 500, Items: []SaleItem{{Quantity: 1, UnitPrice: 100}}},
			expected: 0,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.note.ComputeTotal(); got != tc.expected {
				t.Fatalf("ComputeTotal = %v; want %v", got, tc.expected)
			}
		})
	}
}

func TestCashMovement_Signed(t *testing.T) {
	in := CashMovement{Kind: MovementIncome, Amount: 25}
	out := CashMovement{Kind: MovementExpense, Amount: 25}
	if in.Signed() != 25 {
		t.Fatalf("income Signed = %v; want 25", in.Signed())
	}
	if out.Signed() != -25 {
		t.Fatalf("expense Signed = %v; want -25", out.Signed())
	}
}

func TestCashSession_Open(t *testing.T) {
	s := CashSession{}
	if !s.Open() {
		t.Fatal("session without ClosedAt should be open")
	}
	now := time.Now()
	s.ClosedAt = &now
	if s.Open() {
		t.Fatal("session with ClosedAt should be closed")
	}
}

func TestCampaign_ActiveAt(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 1, 0)
	c := Campaign{StartsAt: start, EndsAt: end}

	if !c.ActiveAt(start) || !c.ActiveAt(end) {
		t.Fatal("campaign should be active at window edges")
	}
	if c.ActiveAt(start.Add(-time.Second)) {
		t.Fatal("campaign should not be active before start")
	}
	if c.ActiveAt(end.Add(time.Second)) {
		t.Fatal("campaign should not be active after end")
	}
}
