package core

import "testing"

func TestVariantOf(t *testing.T) {
	tests := []struct {
		number string
		want   BillVariant
	}{
		{"EXCH-1", ExchangeBill},
		{"  EXCH-1", ExchangeBill},
		{"exch-1", RegularBill},
		{"B-1", RegularBill},
		{"", RegularBill},
		{"1-EXCH-", RegularBill},
	}

	for _, tt := range tests {
		t.Run(tt.number, func(t *testing.T) {
			if got := VariantOf(tt.number); got != tt.want {
				t.Errorf("VariantOf(%q) = %v, want %v", tt.number, got, tt.want)
			}
		})
	}
}

func TestEnsureExchangePrefix(t *testing.T) {
	if got := EnsureExchangePrefix("101"); got != "EXCH-101" {
		t.Errorf("EnsureExchangePrefix(101) = %q", got)
	}
	if got := EnsureExchangePrefix(EnsureExchangePrefix("101")); got != "EXCH-101" {
		t.Errorf("prefix applied twice: %q", got)
	}
}

func TestPartitionBills(t *testing.T) {
	bills := []Bill{
		{BillNumber: "B-1"},
		{BillNumber: "EXCH-1"},
		{BillNumber: "B-2"},
		{BillNumber: "EXCH-2"},
		{BillNumber: "EXCH-3"},
	}

	regular, exchange := PartitionBills(bills)

	if len(regular) != 2 || len(exchange) != 3 {
		t.Fatalf("partition sizes = %d/%d, want 2/3", len(regular), len(exchange))
	}
	for _, b := range regular {
		if b.Variant() != RegularBill {
			t.Errorf("exchange bill %q in regular set", b.BillNumber)
		}
	}
	for _, b := range exchange {
		if b.Variant() != ExchangeBill {
			t.Errorf("regular bill %q in exchange set", b.BillNumber)
		}
	}
}
