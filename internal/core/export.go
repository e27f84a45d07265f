package core

import (
	"context"
	"fmt"
	"time"
)

// DefaultDatasetName prefixes exported file names when none is configured.
const DefaultDatasetName = "ledger"

// Encoder turns a dataset into workbook bytes.
type Encoder interface {
	Encode(ds Dataset) ([]byte, error)
}

// ExportFileName returns "<dataset>-export-<YYYY-MM-DD>.xlsx".
func ExportFileName(dataset string, t time.Time) string {
	return fileName(dataset, "export", t)
}

// BackupFileName returns "<dataset>-backup-<YYYY-MM-DD>.xlsx".
func BackupFileName(dataset string, t time.Time) string {
	return fileName(dataset, "backup", t)
}

func fileName(dataset, purpose string, t time.Time) string {
	if dataset == "" {
		dataset = DefaultDatasetName
	}
	return fmt.Sprintf("%s-%s-%s.xlsx", dataset, purpose, t.Format("2006-01-02"))
}

// Exporter reads the full dataset from a Store and encodes it.
type Exporter struct {
	store   Store
	encoder Encoder
	dataset string
	now     func() time.Time
}

// NewExporter creates an Exporter. dataset prefixes generated file names.
func NewExporter(store Store, encoder Encoder, dataset string) *Exporter {
	if dataset == "" {
		dataset = DefaultDatasetName
	}
	return &Exporter{
		store:   store,
		encoder: encoder,
		dataset: dataset,
		now:     time.Now,
	}
}

// DatasetName returns the file name prefix.
func (e *Exporter) DatasetName() string {
	return e.dataset
}

// Export reads every kind from the Store. Bills are split into regular and
// exchange collections by their number prefix.
func (e *Exporter) Export(ctx context.Context) (Dataset, error) {
	var ds Dataset

	products, err := e.store.QueryAll(ctx, KindProducts)
	if err != nil {
		return Dataset{}, fmt.Errorf("query products: %w", err)
	}
	ds.Products = collect[Product](products)

	customers, err := e.store.QueryAll(ctx, KindCustomers)
	if err != nil {
		return Dataset{}, fmt.Errorf("query customers: %w", err)
	}
	ds.Customers = collect[Customer](customers)

	invoices, err := e.store.QueryAll(ctx, KindInvoices)
	if err != nil {
		return Dataset{}, fmt.Errorf("query invoices: %w", err)
	}
	ds.Invoices = collect[Invoice](invoices)

	bills, err := e.store.QueryAll(ctx, KindBills)
	if err != nil {
		return Dataset{}, fmt.Errorf("query bills: %w", err)
	}
	ds.Bills, ds.ExchangeBills = PartitionBills(collect[Bill](bills))

	return ds, nil
}

func collect[T Record](recs []Record) []T {
	out := make([]T, 0, len(recs))
	for _, rec := range recs {
		if v, ok := rec.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// Workbook exports and encodes the dataset. It returns the workbook bytes
// and the export file name.
func (e *Exporter) Workbook(ctx context.Context) ([]byte, string, error) {
	return e.encode(ctx, ExportFileName(e.dataset, e.now()))
}

// Backup is Workbook named as a backup file.
func (e *Exporter) Backup(ctx context.Context) ([]byte, string, error) {
	return e.encode(ctx, BackupFileName(e.dataset, e.now()))
}

func (e *Exporter) encode(ctx context.Context, name string) ([]byte, string, error) {
	ds, err := e.Export(ctx)
	if err != nil {
		return nil, "", err
	}
	data, err := e.encoder.Encode(ds)
	if err != nil {
		return nil, "", fmt.Errorf("encode workbook: %w", err)
	}
	if len(data) == 0 {
		return nil, "", ErrEmptyWorkbook
	}
	return data, name, nil
}
