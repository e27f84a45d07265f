package core

import (
	"context"
	"strings"
	"time"
)

// EntityKind identifies one of the five record kinds carried by a workbook.
type EntityKind string

const (
	KindProducts      EntityKind = "products"
	KindCustomers     EntityKind = "customers"
	KindInvoices      EntityKind = "invoices"
	KindBills         EntityKind = "bills"
	KindExchangeBills EntityKind = "exchange_bills"
)

// Kinds lists every entity kind in workbook sheet order.
var Kinds = []EntityKind{KindProducts, KindCustomers, KindInvoices, KindBills, KindExchangeBills}

// ParseKind converts a user supplied kind ("invoices", "Exchange Bills", "exchange-bills") to an EntityKind.
func ParseKind(s string) (EntityKind, error) {
	norm := strings.ToLower(strings.TrimSpace(s))
	norm = strings.NewReplacer(" ", "_", "-", "_").Replace(norm)
	for _, k := range Kinds {
		if string(k) == norm {
			return k, nil
		}
	}
	return "", ErrUnknownKind
}

// StoreKind returns the kind the Store persists records of this kind under.
// Exchange bills share the bills table.
func (k EntityKind) StoreKind() EntityKind {
	if k == KindExchangeBills {
		return KindBills
	}
	return k
}

// Record is implemented by every persisted entity.
type Record interface {
	Kind() EntityKind
	RecordID() string
}

// Store is the CRUD persistence capability the core consumes.
// Insert ignores any id on rec and returns the record as persisted.
type Store interface {
	QueryAll(ctx context.Context, kind EntityKind) ([]Record, error)
	Insert(ctx context.Context, kind EntityKind, rec Record) (Record, error)
	Delete(ctx context.Context, kind EntityKind, id string) error
}

// Product is a stock item.
type Product struct {
	ID            string    `json:"id,omitempty"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	SKU           string    `json:"sku"`
	Barcode       string    `json:"barcode"`
	Weight        float64   `json:"weight"`
	Purity        string    `json:"purity"`
	MaterialType  string    `json:"material_type"`
	MakingCharge  float64   `json:"making_charge"`
	CurrentRate   float64   `json:"current_rate"`
	StockQuantity float64   `json:"stock_quantity"`
	MinStockLevel float64   `json:"min_stock_level"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Product) Kind() EntityKind   { return KindProducts }
func (p Product) RecordID() string { return p.ID }

// Customer is a buyer referenced by invoices.
type Customer struct {
	ID           string    `json:"id,omitempty"`
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	Email        string    `json:"email"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	GSTNumber    string    `json:"gst_number"`
	CustomerType string    `json:"customer_type"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Customer) Kind() EntityKind   { return KindCustomers }
func (c Customer) RecordID() string { return c.ID }

// LineItem is one sold product line on an invoice or bill.
type LineItem struct {
	ProductID    string  `json:"product_id,omitempty"`
	ProductName  string  `json:"product_name"`
	Quantity     float64 `json:"quantity"`
	Weight       float64 `json:"weight,omitempty"`
	Rate         float64 `json:"rate,omitempty"`
	MakingCharge float64 `json:"making_charge,omitempty"`
	Total        float64 `json:"total"`
}

// Amounts holds the money fields shared by invoices and bills.
type Amounts struct {
	Subtotal           float64 `json:"subtotal"`
	TaxPercentage      float64 `json:"tax_percentage"`
	TaxAmount          float64 `json:"tax_amount"`
	DiscountPercentage float64 `json:"discount_percentage"`
	DiscountAmount     float64 `json:"discount_amount"`
	TotalAmount        float64 `json:"total_amount"`
	PaymentMethod      string  `json:"payment_method"`
	PaymentStatus      string  `json:"payment_status"`
	AmountPaid         float64 `json:"amount_paid"`
}

// Invoice is a sale with a hard reference to a Customer.
type Invoice struct {
	ID            string `json:"id,omitempty"`
	InvoiceNumber string `json:"invoice_number"`
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Amounts
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (Invoice) Kind() EntityKind   { return KindInvoices }
func (i Invoice) RecordID() string { return i.ID }

// ExchangeDetails carries the old-item side of an exchange bill.
type ExchangeDetails struct {
	OldGoldWeight      float64 `json:"old_gold_weight"`
	OldGoldPurity      string  `json:"old_gold_purity"`
	OldGoldRate        float64 `json:"old_gold_rate"`
	OldGoldValue       float64 `json:"old_gold_value"`
	ExchangeRate       float64 `json:"exchange_rate"`
	ExchangeDifference float64 `json:"exchange_difference"`
}

// Bill is a walk-in sale that stores the customer name without a foreign key.
// Regular and exchange bills live in the same table; see Variant.
type Bill struct {
	ID            string `json:"id,omitempty"`
	BillNumber    string `json:"bill_number"`
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	Amounts
	Items     []LineItem `json:"items"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Exchange is non-nil for exchange bills.
	Exchange *ExchangeDetails `json:"exchange,omitempty"`
}

func (Bill) Kind() EntityKind   { return KindBills }
func (b Bill) RecordID() string { return b.ID }

// Variant reports whether b is a regular or exchange bill.
func (b Bill) Variant() BillVariant { return VariantOf(b.BillNumber) }

// Dataset is a full set of records, one collection per kind.
// A nil collection means the kind was absent from the source.
type Dataset struct {
	Products      []Product  `json:"products,omitempty"`
	Customers     []Customer `json:"customers,omitempty"`
	Invoices      []Invoice  `json:"invoices,omitempty"`
	Bills         []Bill     `json:"bills,omitempty"`
	ExchangeBills []Bill     `json:"exchangeBills,omitempty"`
}

// Len returns the number of records of kind k in the dataset.
func (d Dataset) Len(k EntityKind) int {
	switch k {
	case KindProducts:
		return len(d.Products)
	case KindCustomers:
		return len(d.Customers)
	case KindInvoices:
		return len(d.Invoices)
	case KindBills:
		return len(d.Bills)
	case KindExchangeBills:
		return len(d.ExchangeBills)
	}
	return 0
}

// Row is one raw tabular record keyed by display header or internal field name.
type Row map[string]any

// SheetRows holds raw rows per sheet name as read from a workbook.
type SheetRows map[string][]Row

// KindTally is the per-kind outcome of an import.
type KindTally struct {
	Total    int `json:"total"`
	Imported int `json:"imported"`
	Errors   int `json:"errors"`
}

// ImportResult contains the final result of an import, restore or clear operation.
type ImportResult struct {
	OperationID string                    `json:"operationId"`
	Operation   string                    `json:"operation"`
	Kinds       map[EntityKind]*KindTally `json:"kinds"`
	Total       int                       `json:"total"`
	Imported    int                       `json:"imported"`
	Errors      int                       `json:"errors"`
	Deleted     int                       `json:"deleted,omitempty"`
	DeleteFails int                       `json:"deleteFailures,omitempty"`
	Duration    time.Duration             `json:"duration"`
}

// Partial reports whether some but not all records were imported.
func (r *ImportResult) Partial() bool {
	return r.Errors > 0 && r.Imported > 0
}

func (r *ImportResult) tally(k EntityKind) *KindTally {
	if r.Kinds == nil {
		r.Kinds = make(map[EntityKind]*KindTally)
	}
	t, ok := r.Kinds[k]
	if !ok {
		t = &KindTally{}
		r.Kinds[k] = t
	}
	return t
}

func (r *ImportResult) recordSuccess(k EntityKind) {
	r.tally(k).Imported++
	r.tally(k).Total++
	r.Imported++
	r.Total++
}

func (r *ImportResult) recordFailure(k EntityKind) {
	r.tally(k).Errors++
	r.tally(k).Total++
	r.Errors++
	r.Total++
}
