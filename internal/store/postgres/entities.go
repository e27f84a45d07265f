package postgres

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ----------------------------------------------------------------------------
// Products
// ----------------------------------------------------------------------------

const productColumns = `id, name, category, sku, barcode, weight, purity, material_type,
	making_charge, current_rate, stock_quantity, min_stock_level, status, created_at, updated_at`

func (s *Store) queryProducts(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	return collectRows(rows, scanProduct)
}

func scanProduct(row pgx.Row) (core.Record, error) {
	var (
		p       core.Product
		id      pgtype.UUID
		created pgtype.Timestamptz
		updated pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &p.Name, &p.Category, &p.SKU, &p.Barcode, &p.Weight, &p.Purity, &p.MaterialType,
		&p.MakingCharge, &p.CurrentRate, &p.StockQuantity, &p.MinStockLevel, &p.Status,
		&created, &updated,
	)
	if err != nil {
		return nil, err
	}
	p.ID = UUIDString(id)
	p.CreatedAt, p.UpdatedAt = created.Time, updated.Time
	return p, nil
}

func (s *Store) insertProduct(ctx context.Context, p core.Product) (core.Record, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO products (name, category, sku, barcode, weight, purity, material_type,
			making_charge, current_rate, stock_quantity, min_stock_level, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now()), COALESCE($14, now()))
		RETURNING `+productColumns,
		p.Name, p.Category, p.SKU, p.Barcode, p.Weight, p.Purity, p.MaterialType,
		p.MakingCharge, p.CurrentRate, p.StockQuantity, p.MinStockLevel, p.Status,
		ToTimestamptz(p.CreatedAt), ToTimestamptz(p.UpdatedAt),
	)
	rec, err := scanProduct(row)
	if err != nil {
		return nil, fmt.Errorf("insert product %q: %w", p.Name, err)
	}
	return rec, nil
}

// ----------------------------------------------------------------------------
// Customers
// ----------------------------------------------------------------------------

const customerColumns = `id, name, phone, email, address, city, state, pincode, gst_number,
	customer_type, status, created_at, updated_at`

func (s *Store) queryCustomers(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.Query(ctx, "SELECT "+customerColumns+" FROM customers ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	return collectRows(rows, scanCustomer)
}

func scanCustomer(row pgx.Row) (core.Record, error) {
	var (
		c       core.Customer
		id      pgtype.UUID
		created pgtype.Timestamptz
		updated pgtype.Timestamptz
	)
	err := row.Scan(
		&id, &c.Name, &c.Phone, &c.Email, &c.Address, &c.City, &c.State, &c.Pincode,
		&c.GSTNumber, &c.CustomerType, &c.Status, &created, &updated,
	)
	if err != nil {
		return nil, err
	}
	c.ID = UUIDString(id)
	c.CreatedAt, c.UpdatedAt = created.Time, updated.Time
	return c, nil
}

func (s *Store) insertCustomer(ctx context.Context, c core.Customer) (core.Record, error) {
	row := s.db.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, address, city, state, pincode, gst_number,
			customer_type, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, COALESCE($11, now()), COALESCE($12, now()))
		RETURNING `+customerColumns,
		c.Name, c.Phone, c.Email, c.Address, c.City, c.State, c.Pincode, c.GSTNumber,
		c.CustomerType, c.Status, ToTimestamptz(c.CreatedAt), ToTimestamptz(c.UpdatedAt),
	)
	rec, err := scanCustomer(row)
	if err != nil {
		return nil, fmt.Errorf("insert customer %q: %w", c.Name, err)
	}
	return rec, nil
}

// ----------------------------------------------------------------------------
// Invoices
// ----------------------------------------------------------------------------

const amountColumns = `subtotal, tax_percentage, tax_amount, discount_percentage, discount_amount,
	total_amount, payment_method, payment_status, amount_paid`

const invoiceColumns = `id, invoice_number, customer_id, customer_name, customer_phone, ` +
	amountColumns + `, items, created_at, updated_at`

func amountDests(a *core.Amounts) []any {
	return []any{
		&a.Subtotal, &a.TaxPercentage, &a.TaxAmount, &a.DiscountPercentage, &a.DiscountAmount,
		&a.TotalAmount, &a.PaymentMethod, &a.PaymentStatus, &a.AmountPaid,
	}
}

func amountArgs(a core.Amounts) []any {
	return []any{
		a.Subtotal, a.TaxPercentage, a.TaxAmount, a.DiscountPercentage, a.DiscountAmount,
		a.TotalAmount, a.PaymentMethod, a.PaymentStatus, a.AmountPaid,
	}
}

func (s *Store) queryInvoices(ctx context.Context) ([]core.Record, error) {
	rows, err := s.db.Query(ctx, "SELECT "+invoiceColumns+" FROM invoices ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query invoices: %w", err)
	}
	return collectRows(rows, scanInvoice)
}

func scanInvoice(row pgx.Row) (core.Record, error) {
	var (
		inv        core.Invoice
		id         pgtype.UUID
		customerID pgtype.UUID
		items      []byte
		created    pgtype.Timestamptz
		updated    pgtype.Timestamptz
	)
	dest := []any{&id, &inv.InvoiceNumber, &customerID, &inv.CustomerName, &inv.CustomerPhone}
	dest = append(dest, amountDests(&inv.Amounts)...)
	dest = append(dest, &items, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	lines, err := DecodeItems(items)
	if err != nil {
		return nil, err
	}
	inv.ID = UUIDString(id)
	inv.CustomerID = UUIDString(customerID)
	inv.Items = lines
	inv.CreatedAt, inv.UpdatedAt = created.Time, updated.Time
	return inv, nil
}

func (s *Store) insertInvoice(ctx context.Context, inv core.Invoice) (core.Record, error) {
	items, err := EncodeItems(inv.Items)
	if err != nil {
		return nil, fmt.Errorf("insert invoice %q: %w", inv.InvoiceNumber, err)
	}

	args := []any{inv.InvoiceNumber, ToPgUUID(inv.CustomerID), inv.CustomerName, inv.CustomerPhone}
	args = append(args, amountArgs(inv.Amounts)...)
	args = append(args, items, ToTimestamptz(inv.CreatedAt), ToTimestamptz(inv.UpdatedAt))

	row := s.db.QueryRow(ctx, `
		INSERT INTO invoices (invoice_number, customer_id, customer_name, customer_phone, `+amountColumns+`,
			items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			COALESCE($15, now()), COALESCE($16, now()))
		RETURNING `+invoiceColumns, args...)
	rec, err := scanInvoice(row)
	if err != nil {
		return nil, fmt.Errorf("insert invoice %q: %w", inv.InvoiceNumber, err)
	}
	return rec, nil
}

// ----------------------------------------------------------------------------
// Bills
// ----------------------------------------------------------------------------

const billColumns = `id, bill_number, customer_name, customer_phone, ` +
	amountColumns + `, items, exchange, created_at, updated_at`

// queryBills returns every bill, or only one variant when variant is set.
func (s *Store) queryBills(ctx context.Context, variant *core.BillVariant) ([]core.Record, error) {
	rows, err := s.db.Query(ctx, "SELECT "+billColumns+" FROM bills ORDER BY created_at, id")
	if err != nil {
		return nil, fmt.Errorf("query bills: %w", err)
	}
	recs, err := collectRows(rows, scanBill)
	if err != nil || variant == nil {
		return recs, err
	}

	filtered := recs[:0]
	for _, rec := range recs {
		if rec.(core.Bill).Variant() == *variant {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

func scanBill(row pgx.Row) (core.Record, error) {
	var (
		b        core.Bill
		id       pgtype.UUID
		items    []byte
		exchange []byte
		created  pgtype.Timestamptz
		updated  pgtype.Timestamptz
	)
	dest := []any{&id, &b.BillNumber, &b.CustomerName, &b.CustomerPhone}
	dest = append(dest, amountDests(&b.Amounts)...)
	dest = append(dest, &items, &exchange, &created, &updated)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	lines, err := DecodeItems(items)
	if err != nil {
		return nil, err
	}
	x, err := DecodeExchange(exchange)
	if err != nil {
		return nil, err
	}
	b.ID = UUIDString(id)
	b.Items = lines
	b.Exchange = x
	b.CreatedAt, b.UpdatedAt = created.Time, updated.Time
	return b, nil
}

func (s *Store) insertBill(ctx context.Context, b core.Bill) (core.Record, error) {
	items, err := EncodeItems(b.Items)
	if err != nil {
		return nil, fmt.Errorf("insert bill %q: %w", b.BillNumber, err)
	}
	exchange, err := EncodeExchange(b.Exchange)
	if err != nil {
		return nil, fmt.Errorf("insert bill %q: %w", b.BillNumber, err)
	}

	args := []any{b.BillNumber, b.CustomerName, b.CustomerPhone}
	args = append(args, amountArgs(b.Amounts)...)
	args = append(args, items, exchange, ToTimestamptz(b.CreatedAt), ToTimestamptz(b.UpdatedAt))

	row := s.db.QueryRow(ctx, `
		INSERT INTO bills (bill_number, customer_name, customer_phone, `+amountColumns+`,
			items, exchange, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14,
			COALESCE($15, now()), COALESCE($16, now()))
		RETURNING `+billColumns, args...)
	rec, err := scanBill(row)
	if err != nil {
		return nil, fmt.Errorf("insert bill %q: %w", b.BillNumber, err)
	}
	return rec, nil
}

// ----------------------------------------------------------------------------
// Internal helper functions
// ----------------------------------------------------------------------------

func collectRows(rows pgx.Rows, scan func(pgx.Row) (core.Record, error)) ([]core.Record, error) {
	defer rows.Close()

	var recs []core.Record
	for rows.Next() {
		rec, err := scan(rows)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return recs, nil
}
