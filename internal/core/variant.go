package core

import "strings"

// ExchangePrefix marks a bill number as an exchange bill.
const ExchangePrefix = "EXCH-"

// BillVariant discriminates the two bill shapes stored in the bills table.
type BillVariant int

const (
	RegularBill BillVariant = iota
	ExchangeBill
)

func (v BillVariant) String() string {
	if v == ExchangeBill {
		return "exchange"
	}
	return "regular"
}

// VariantOf is the single discriminator between regular and exchange bills.
// Export partitioning, sheet routing and normalization all go through it.
func VariantOf(billNumber string) BillVariant {
	if strings.HasPrefix(strings.TrimSpace(billNumber), ExchangePrefix) {
		return ExchangeBill
	}
	return RegularBill
}

// EnsureExchangePrefix returns number with the exchange prefix applied exactly once.
func EnsureExchangePrefix(number string) string {
	number = strings.TrimSpace(number)
	if VariantOf(number) == ExchangeBill {
		return number
	}
	return ExchangePrefix + number
}

// PartitionBills splits bills into regular and exchange collections.
func PartitionBills(bills []Bill) (regular, exchange []Bill) {
	for _, b := range bills {
		if b.Variant() == ExchangeBill {
			exchange = append(exchange, b)
			continue
		}
		regular = append(regular, b)
	}
	return regular, exchange
}
