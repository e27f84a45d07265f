package core

// normalize.go maps raw sheet rows onto canonical records.
//
// Every kind follows the same steps:
//  1. Recognize and discard the sentinel row an empty export carries
//  2. Read each field through the sheet's header/field mapping
//  3. Coerce numbers (0 fallback), strings (defaults) and dates (InterpretDate)
//  4. Repair what can be repaired, drop what cannot
//
// Dropped rows are counted but never reported individually.

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Defaults injected into records that arrive without a value.
const (
	DefaultCustomerName  = "Unknown Customer"
	DefaultPaymentMethod = "cash"
	DefaultPaymentStatus = "paid"
	DefaultPurity        = "22K"
	DefaultCategory      = "General"
	DefaultMaterialType  = "gold"
	DefaultStatus        = "active"
	DefaultCustomerType  = "individual"
	PlaceholderPhoneTag  = "PHONE-"
	GeneratedSKUTag      = "SKU-"
)

// Normalized is the result of normalizing a workbook.
// Collections for kinds absent from the input stay nil.
type Normalized struct {
	Dataset
	Dropped map[EntityKind]int
}

// DroppedCount returns the number of rows of kind that failed validation.
func (n Normalized) DroppedCount(kind EntityKind) int {
	return n.Dropped[kind]
}

func (n *Normalized) drop(kind EntityKind) {
	if n.Dropped == nil {
		n.Dropped = make(map[EntityKind]int)
	}
	n.Dropped[kind]++
}

// Normalizer converts raw rows into canonical records.
type Normalizer struct {
	// Now supplies the fallback for missing or unreadable dates.
	Now func() time.Time
	// NewID supplies suffixes for generated SKUs and placeholder phones.
	NewID func() string
}

// NewNormalizer returns a Normalizer using the wall clock and random ids.
func NewNormalizer() *Normalizer {
	return &Normalizer{
		Now:   time.Now,
		NewID: shortID,
	}
}

func shortID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

// Normalize converts every recognized sheet in sheets.
func (n *Normalizer) Normalize(sheets SheetRows) Normalized {
	var out Normalized
	for _, kind := range Kinds {
		rows, ok := RowsFor(sheets, kind)
		if !ok || len(rows) == 0 {
			continue
		}
		n.normalizeInto(&out, kind, rows)
	}
	return out
}

// NormalizeKind converts rows of a single kind.
func (n *Normalizer) NormalizeKind(kind EntityKind, rows []Row) Normalized {
	var out Normalized
	if len(rows) > 0 {
		n.normalizeInto(&out, kind, rows)
	}
	return out
}

func (n *Normalizer) normalizeInto(out *Normalized, kind EntityKind, rows []Row) {
	def := MustSheet(kind)
	now := n.Now()

	switch kind {
	case KindProducts:
		out.Products = make([]Product, 0, len(rows))
	case KindCustomers:
		out.Customers = make([]Customer, 0, len(rows))
	case KindInvoices:
		out.Invoices = make([]Invoice, 0, len(rows))
	case KindBills:
		out.Bills = make([]Bill, 0, len(rows))
	case KindExchangeBills:
		out.ExchangeBills = make([]Bill, 0, len(rows))
	}

	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		switch kind {
		case KindProducts:
			if def.IsSentinel(row) && def.Text(row, "sku") == "" {
				continue
			}
			if p, ok := n.product(def, row, now); ok {
				out.Products = append(out.Products, p)
			} else {
				out.drop(kind)
			}
		case KindCustomers:
			if def.IsSentinel(row) && def.Text(row, "phone") == "" {
				continue
			}
			if c, ok := n.customer(def, row, now); ok {
				out.Customers = append(out.Customers, c)
			} else {
				out.drop(kind)
			}
		case KindInvoices:
			if def.IsSentinel(row) && def.Text(row, "customer_name") == "" {
				continue
			}
			if inv, ok := n.invoice(def, row, now); ok {
				out.Invoices = append(out.Invoices, inv)
			} else {
				out.drop(kind)
			}
		case KindBills, KindExchangeBills:
			if def.IsSentinel(row) && def.Text(row, "customer_name") == "" {
				continue
			}
			b, ok := n.bill(def, row, now, kind == KindExchangeBills)
			switch {
			case !ok:
				out.drop(kind)
			case kind == KindExchangeBills:
				out.ExchangeBills = append(out.ExchangeBills, b)
			default:
				out.Bills = append(out.Bills, b)
			}
		}
	}
}

func (n *Normalizer) product(def SheetDefinition, row Row, now time.Time) (Product, bool) {
	p := Product{
		ID:            def.Text(row, "id"),
		Name:          def.Text(row, "name"),
		Category:      CoerceString(def.Value(row, "category"), DefaultCategory),
		SKU:           def.Text(row, "sku"),
		Barcode:       def.Text(row, "barcode"),
		Weight:        CoerceNumber(def.Value(row, "weight"), 0),
		Purity:        CoerceString(def.Value(row, "purity"), DefaultPurity),
		MaterialType:  CoerceString(def.Value(row, "material_type"), DefaultMaterialType),
		MakingCharge:  CoerceMoney(def.Value(row, "making_charge"), 0),
		CurrentRate:   CoerceMoney(def.Value(row, "current_rate"), 0),
		StockQuantity: CoerceNumber(def.Value(row, "stock_quantity"), 0),
		MinStockLevel: CoerceNumber(def.Value(row, "min_stock_level"), 0),
		Status:        CoerceString(def.Value(row, "status"), DefaultStatus),
	}
	p.CreatedAt = InterpretDate(def.Value(row, "created_at"), now)
	p.UpdatedAt = InterpretDate(def.Value(row, "updated_at"), p.CreatedAt)

	if p.Name == "" || p.Weight <= 0 {
		return Product{}, false
	}
	if p.SKU == "" {
		p.SKU = GeneratedSKUTag + n.NewID()
	}
	return p, true
}

func (n *Normalizer) customer(def SheetDefinition, row Row, now time.Time) (Customer, bool) {
	c := Customer{
		ID:           def.Text(row, "id"),
		Name:         def.Text(row, "name"),
		Phone:        def.Text(row, "phone"),
		Email:        def.Text(row, "email"),
		Address:      def.Text(row, "address"),
		City:         def.Text(row, "city"),
		State:        def.Text(row, "state"),
		Pincode:      def.Text(row, "pincode"),
		GSTNumber:    def.Text(row, "gst_number"),
		CustomerType: CoerceString(def.Value(row, "customer_type"), DefaultCustomerType),
		Status:       CoerceString(def.Value(row, "status"), DefaultStatus),
	}
	c.CreatedAt = InterpretDate(def.Value(row, "created_at"), now)
	c.UpdatedAt = InterpretDate(def.Value(row, "updated_at"), c.CreatedAt)

	if c.Name == "" {
		return Customer{}, false
	}
	if c.Phone == "" {
		c.Phone = PlaceholderPhoneTag + n.NewID()
	}
	return c, true
}

func readAmounts(def SheetDefinition, row Row) Amounts {
	return Amounts{
		Subtotal:           CoerceMoney(def.Value(row, "subtotal"), 0),
		TaxPercentage:      CoerceNumber(def.Value(row, "tax_percentage"), 0),
		TaxAmount:          CoerceMoney(def.Value(row, "tax_amount"), 0),
		DiscountPercentage: CoerceNumber(def.Value(row, "discount_percentage"), 0),
		DiscountAmount:     CoerceMoney(def.Value(row, "discount_amount"), 0),
		TotalAmount:        CoerceMoney(def.Value(row, "total_amount"), 0),
		PaymentMethod:      def.Text(row, "payment_method"),
		PaymentStatus:      def.Text(row, "payment_status"),
		AmountPaid:         CoerceMoney(def.Value(row, "amount_paid"), 0),
	}
}

func (n *Normalizer) invoice(def SheetDefinition, row Row, now time.Time) (Invoice, bool) {
	inv := Invoice{
		ID:            def.Text(row, "id"),
		InvoiceNumber: def.Text(row, "invoice_number"),
		CustomerID:    def.Text(row, "customer_id"),
		CustomerName:  def.Text(row, "customer_name"),
		CustomerPhone: def.Text(row, "customer_phone"),
		Amounts:       readAmounts(def, row),
		Items:         ParseItems(def.Value(row, "items")),
	}
	inv.CreatedAt = InterpretDate(def.Value(row, "created_at"), now)
	inv.UpdatedAt = InterpretDate(def.Value(row, "updated_at"), inv.CreatedAt)

	if inv.InvoiceNumber == "" {
		return Invoice{}, false
	}
	ApplyInvoiceDefaults(&inv)
	if inv.TotalAmount <= 0 {
		return Invoice{}, false
	}
	return inv, true
}

func (n *Normalizer) bill(def SheetDefinition, row Row, now time.Time, exchangeSheet bool) (Bill, bool) {
	b := Bill{
		ID:            def.Text(row, "id"),
		BillNumber:    def.Text(row, "bill_number"),
		CustomerName:  def.Text(row, "customer_name"),
		CustomerPhone: def.Text(row, "customer_phone"),
		Amounts:       readAmounts(def, row),
		Items:         ParseItems(def.Value(row, "items")),
	}
	b.CreatedAt = InterpretDate(def.Value(row, "created_at"), now)
	b.UpdatedAt = InterpretDate(def.Value(row, "updated_at"), b.CreatedAt)

	if b.BillNumber == "" {
		return Bill{}, false
	}
	if exchangeSheet {
		b.BillNumber = EnsureExchangePrefix(b.BillNumber)
	}
	if b.Variant() == ExchangeBill {
		// Exchange columns only exist on the exchange sheet; a prefixed row
		// from the plain sheet still becomes an exchange bill.
		xdef := MustSheet(KindExchangeBills)
		b.Exchange = &ExchangeDetails{
			OldGoldWeight:      CoerceNumber(xdef.Value(row, "old_gold_weight"), 0),
			OldGoldPurity:      xdef.Text(row, "old_gold_purity"),
			OldGoldRate:        CoerceMoney(xdef.Value(row, "old_gold_rate"), 0),
			OldGoldValue:       CoerceMoney(xdef.Value(row, "old_gold_value"), 0),
			ExchangeRate:       CoerceMoney(xdef.Value(row, "exchange_rate"), 0),
			ExchangeDifference: CoerceMoney(xdef.Value(row, "exchange_difference"), 0),
		}
	}

	ApplyBillDefaults(&b)
	if b.TotalAmount <= 0 {
		return Bill{}, false
	}
	return b, true
}

// ApplyInvoiceDefaults injects default text fields and recomputes a
// missing total. Safe to apply more than once.
func ApplyInvoiceDefaults(inv *Invoice) {
	inv.CustomerName = CoerceString(inv.CustomerName, DefaultCustomerName)
	inv.CustomerPhone = strings.TrimSpace(inv.CustomerPhone)
	applyAmountDefaults(&inv.Amounts)
	if inv.Items == nil {
		inv.Items = []LineItem{}
	}
}

// ApplyBillDefaults is ApplyInvoiceDefaults for bills.
func ApplyBillDefaults(b *Bill) {
	b.CustomerName = CoerceString(b.CustomerName, DefaultCustomerName)
	b.CustomerPhone = strings.TrimSpace(b.CustomerPhone)
	applyAmountDefaults(&b.Amounts)
	if b.Items == nil {
		b.Items = []LineItem{}
	}
}

func applyAmountDefaults(a *Amounts) {
	a.PaymentMethod = CoerceString(a.PaymentMethod, DefaultPaymentMethod)
	a.PaymentStatus = CoerceString(a.PaymentStatus, DefaultPaymentStatus)
	if a.TotalAmount <= 0 {
		a.TotalAmount = RecomputeTotal(a.Subtotal, a.TaxAmount, a.DiscountAmount)
	}
}

// ParseItems reads a line item list from a JSON cell, a decoded JSON
// array, or an already typed slice. Unreadable input yields no items.
func ParseItems(v any) []LineItem {
	switch val := v.(type) {
	case nil:
		return []LineItem{}
	case []LineItem:
		return val
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return []LineItem{}
		}
		var raw []map[string]any
		if err := json.Unmarshal([]byte(s), &raw); err != nil {
			return []LineItem{}
		}
		return itemsFromMaps(raw)
	case []map[string]any:
		return itemsFromMaps(val)
	case []any:
		raw := make([]map[string]any, 0, len(val))
		for _, e := range val {
			if m, ok := e.(map[string]any); ok {
				raw = append(raw, m)
			}
		}
		return itemsFromMaps(raw)
	}
	return []LineItem{}
}

func itemsFromMaps(raw []map[string]any) []LineItem {
	items := make([]LineItem, 0, len(raw))
	for _, m := range raw {
		item := LineItem{
			ProductID:    StringValue(m["product_id"]),
			ProductName:  CoerceString(m["product_name"], StringValue(m["name"])),
			Quantity:     CoerceNumber(m["quantity"], 1),
			Weight:       CoerceNumber(m["weight"], 0),
			Rate:         CoerceMoney(m["rate"], 0),
			MakingCharge: CoerceMoney(m["making_charge"], 0),
			Total:        CoerceMoney(m["total"], 0),
		}
		if item.ProductID == "" && item.ProductName == "" {
			continue
		}
		items = append(items, item)
	}
	return items
}

// EncodeItems renders items for the Items column.
func EncodeItems(items []LineItem) string {
	if len(items) == 0 {
		return "[]"
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(b)
}
