package core

import "time"

// ExportRows shapes one kind of ds into header-keyed rows ready for a sheet.
// An empty collection yields the single sentinel row.
func ExportRows(ds Dataset, kind EntityKind) []Row {
	def := MustSheet(kind)

	var rows []Row
	switch kind {
	case KindProducts:
		for _, p := range ds.Products {
			rows = append(rows, productRow(def, p))
		}
	case KindCustomers:
		for _, c := range ds.Customers {
			rows = append(rows, customerRow(def, c))
		}
	case KindInvoices:
		for _, inv := range ds.Invoices {
			rows = append(rows, invoiceRow(def, inv))
		}
	case KindBills:
		for _, b := range ds.Bills {
			rows = append(rows, billRow(def, b))
		}
	case KindExchangeBills:
		for _, b := range ds.ExchangeBills {
			rows = append(rows, exchangeRow(def, b))
		}
	}

	if len(rows) == 0 {
		return []Row{SentinelRow(def)}
	}
	return rows
}

// SentinelRow returns the placeholder row written for an empty collection.
func SentinelRow(def SheetDefinition) Row {
	header, _ := def.HeaderFor(def.Primary)
	return Row{header: def.Sentinel}
}

// rowBuilder writes field values under their display headers.
type rowBuilder struct {
	def SheetDefinition
	row Row
}

func newRow(def SheetDefinition) rowBuilder {
	return rowBuilder{def: def, row: make(Row, len(def.Fields))}
}

func (b rowBuilder) set(field string, v any) rowBuilder {
	header, ok := b.def.HeaderFor(field)
	if !ok {
		return b
	}
	if t, isTime := v.(time.Time); isTime {
		v = FormatLocaleDate(t)
	}
	b.row[header] = v
	return b
}

func productRow(def SheetDefinition, p Product) Row {
	return newRow(def).
		set("id", p.ID).
		set("name", p.Name).
		set("category", p.Category).
		set("sku", p.SKU).
		set("barcode", p.Barcode).
		set("weight", p.Weight).
		set("purity", p.Purity).
		set("material_type", p.MaterialType).
		set("making_charge", p.MakingCharge).
		set("current_rate", p.CurrentRate).
		set("stock_quantity", p.StockQuantity).
		set("min_stock_level", p.MinStockLevel).
		set("status", p.Status).
		set("created_at", p.CreatedAt).
		set("updated_at", p.UpdatedAt).
		row
}

func customerRow(def SheetDefinition, c Customer) Row {
	return newRow(def).
		set("id", c.ID).
		set("name", c.Name).
		set("phone", c.Phone).
		set("email", c.Email).
		set("address", c.Address).
		set("city", c.City).
		set("state", c.State).
		set("pincode", c.Pincode).
		set("gst_number", c.GSTNumber).
		set("customer_type", c.CustomerType).
		set("status", c.Status).
		set("created_at", c.CreatedAt).
		set("updated_at", c.UpdatedAt).
		row
}

func (b rowBuilder) amounts(a Amounts) rowBuilder {
	return b.
		set("subtotal", a.Subtotal).
		set("tax_percentage", a.TaxPercentage).
		set("tax_amount", a.TaxAmount).
		set("discount_percentage", a.DiscountPercentage).
		set("discount_amount", a.DiscountAmount).
		set("total_amount", a.TotalAmount).
		set("payment_method", a.PaymentMethod).
		set("payment_status", a.PaymentStatus).
		set("amount_paid", a.AmountPaid)
}

func invoiceRow(def SheetDefinition, inv Invoice) Row {
	return newRow(def).
		set("id", inv.ID).
		set("invoice_number", inv.InvoiceNumber).
		set("customer_id", inv.CustomerID).
		set("customer_name", inv.CustomerName).
		set("customer_phone", inv.CustomerPhone).
		amounts(inv.Amounts).
		set("items", EncodeItems(inv.Items)).
		set("created_at", inv.CreatedAt).
		set("updated_at", inv.UpdatedAt).
		row
}

func billRow(def SheetDefinition, b Bill) Row {
	return newRow(def).
		set("id", b.ID).
		set("bill_number", b.BillNumber).
		set("customer_name", b.CustomerName).
		set("customer_phone", b.CustomerPhone).
		amounts(b.Amounts).
		set("items", EncodeItems(b.Items)).
		set("created_at", b.CreatedAt).
		set("updated_at", b.UpdatedAt).
		row
}

func exchangeRow(def SheetDefinition, b Bill) Row {
	row := billRow(def, b)
	x := b.Exchange
	if x == nil {
		x = &ExchangeDetails{}
	}
	rb := rowBuilder{def: def, row: row}
	rb.set("old_gold_weight", x.OldGoldWeight).
		set("old_gold_purity", x.OldGoldPurity).
		set("old_gold_rate", x.OldGoldRate).
		set("old_gold_value", x.OldGoldValue).
		set("exchange_rate", x.ExchangeRate).
		set("exchange_difference", x.ExchangeDifference)
	return row
}
