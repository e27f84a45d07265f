package core

// orchestrator.go drives imports, restores and clears against a Store.
//
// Records are processed strictly one after another. The customer resolver
// index grows while invoices are processed, so invoice i+1 must see the
// customer created for invoice i. Every record gets exactly one Store call;
// a failure is logged, counted and skipped, never retried.
//
// Insert order: Products, Customers, Invoices, Bills (exchange bills included).
// Delete order is the exact reverse.

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/logging"
	"github.com/JonMunkholm/ledgersync/internal/metrics"
	"github.com/google/uuid"
)

// Operation names reported in results, progress and metrics.
const (
	OpImport     = "import"
	OpImportKind = "import_kind"
	OpRestore    = "restore"
	OpClear      = "clear"
	OpExport     = "export"
)

// deleteOrder is the reverse of insert order.
var deleteOrder = []EntityKind{KindBills, KindInvoices, KindCustomers, KindProducts}

// Importer is the import orchestrator. It holds no state between operations
// other than the progress tracker, and does not serialize callers: running
// two operations at once is unsupported.
type Importer struct {
	store      Store
	normalizer *Normalizer
	progress   *ProgressTracker
	newOpID    func() string
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithNormalizer replaces the default Normalizer.
func WithNormalizer(n *Normalizer) ImporterOption {
	return func(im *Importer) { im.normalizer = n }
}

// WithProgress shares a progress tracker with the caller.
func WithProgress(p *ProgressTracker) ImporterOption {
	return func(im *Importer) { im.progress = p }
}

// NewImporter creates an Importer over store.
func NewImporter(store Store, opts ...ImporterOption) *Importer {
	im := &Importer{
		store:      store,
		normalizer: NewNormalizer(),
		progress:   NewProgressTracker(0),
		newOpID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Progress returns the tracker operations report to.
func (im *Importer) Progress() *ProgressTracker {
	return im.progress
}

// ImportKind imports rows of a single kind without touching other kinds.
func (im *Importer) ImportKind(ctx context.Context, kind EntityKind, rows []Row) (*ImportResult, error) {
	if _, ok := Sheet(kind); !ok {
		return nil, fmt.Errorf("import %q: %w", kind, ErrUnknownKind)
	}

	run := im.begin(ctx, OpImportKind, PhaseForKind(kind))
	run.log = run.log.With("kind", kind)
	run.log.Info("import started", "rows", len(rows))

	n := im.normalizer.NormalizeKind(kind, rows)
	run.countDropped(n)

	var err error
	switch kind {
	case KindProducts:
		err = run.insertProducts(n.Products)
	case KindCustomers:
		_, err = run.insertCustomers(n.Customers)
	case KindInvoices:
		err = run.insertInvoices(n.Invoices, nil)
	case KindBills, KindExchangeBills:
		err = run.insertBills(n.Bills, n.ExchangeBills)
	}

	return run.finish(err)
}

// ImportWorkbook normalizes every recognized sheet and imports the result
// on top of existing data.
func (im *Importer) ImportWorkbook(ctx context.Context, sheets SheetRows) (*ImportResult, error) {
	n, err := im.normalizeWorkbook(sheets)
	if err != nil {
		return nil, err
	}
	return im.importNormalized(ctx, OpImport, n, false)
}

// ImportDataset imports already typed records on top of existing data.
func (im *Importer) ImportDataset(ctx context.Context, ds Dataset) (*ImportResult, error) {
	return im.importNormalized(ctx, OpImport, Normalized{Dataset: ds}, false)
}

// Restore replaces all data with the workbook's contents: every existing
// record is deleted, then the workbook is imported.
// A workbook without any recognized sheet fails before anything is deleted.
func (im *Importer) Restore(ctx context.Context, sheets SheetRows) (*ImportResult, error) {
	n, err := im.normalizeWorkbook(sheets)
	if err != nil {
		return nil, err
	}
	return im.importNormalized(ctx, OpRestore, n, true)
}

// ClearAll deletes every record, Bills first and Products last.
func (im *Importer) ClearAll(ctx context.Context) (*ImportResult, error) {
	ctx, err := destructive(ctx)
	if err != nil {
		return nil, err
	}
	run := im.begin(ctx, OpClear, PhaseClearing)
	run.log.Info("clear started")
	return run.finish(run.clear())
}

func (im *Importer) normalizeWorkbook(sheets SheetRows) (Normalized, error) {
	found := false
	for _, kind := range Kinds {
		if _, ok := RowsFor(sheets, kind); ok {
			found = true
			break
		}
	}
	if !found {
		return Normalized{}, ErrNoSheets
	}
	return im.normalizer.Normalize(sheets), nil
}

func (im *Importer) importNormalized(ctx context.Context, op string, n Normalized, clear bool) (*ImportResult, error) {
	phases := []Phase{PhaseProducts, PhaseCustomers, PhaseInvoices, PhaseBills}
	if clear {
		var err error
		if ctx, err = destructive(ctx); err != nil {
			return nil, err
		}
		phases = append([]Phase{PhaseClearing}, phases...)
	}

	run := im.begin(ctx, op, phases...)
	run.log.Info(op+" started",
		"products", len(n.Products),
		"customers", len(n.Customers),
		"invoices", len(n.Invoices),
		"bills", len(n.Bills),
		"exchange_bills", len(n.ExchangeBills),
	)

	if clear {
		if err := run.clear(); err != nil {
			return run.finish(err)
		}
	}

	run.countDropped(n)

	if err := run.insertProducts(n.Products); err != nil {
		return run.finish(err)
	}
	created, err := run.insertCustomers(n.Customers)
	if err != nil {
		return run.finish(err)
	}
	if err := run.insertInvoices(n.Invoices, created); err != nil {
		return run.finish(err)
	}
	return run.finish(run.insertBills(n.Bills, n.ExchangeBills))
}

// destructive detaches ctx from cancellation. Once a restore or clear has
// started deleting it runs to the end; a context that is already done
// keeps it from starting.
func destructive(ctx context.Context) (context.Context, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return context.WithoutCancel(ctx), nil
}

// operation is the state of one running import, restore or clear.
type operation struct {
	ctx      context.Context
	store    Store
	progress *ProgressTracker
	log      *slog.Logger
	result   *ImportResult
	started  time.Time
	track    func(time.Time, string)
}

func (im *Importer) begin(ctx context.Context, op string, phases ...Phase) *operation {
	id := im.newOpID()
	ctx = logging.WithOperationID(ctx, id)
	im.progress.Start(id, op, phases...)

	return &operation{
		ctx:      ctx,
		store:    im.store,
		progress: im.progress,
		log:      logging.WithFields(ctx, "operation", op),
		result:   &ImportResult{OperationID: id, Operation: op, Kinds: make(map[EntityKind]*KindTally)},
		started:  time.Now(),
		track:    metrics.TrackOperation(op),
	}
}

func (o *operation) finish(err error) (*ImportResult, error) {
	res := o.result
	res.Duration = time.Since(o.started)
	o.progress.Finish(err)

	outcome := metrics.OutcomeSuccess
	switch {
	case err != nil:
		outcome = metrics.OutcomeFailure
	case res.Errors > 0 || res.DeleteFails > 0:
		outcome = metrics.OutcomePartial
	}
	o.track(o.started, outcome)

	if err != nil {
		o.log.Error(res.Operation+" failed",
			"imported", res.Imported,
			"errors", res.Errors,
			"deleted", res.Deleted,
			"error", err,
		)
		return res, err
	}

	o.log.Info(res.Operation+" completed",
		"total", res.Total,
		"imported", res.Imported,
		"errors", res.Errors,
		"deleted", res.Deleted,
		"delete_failures", res.DeleteFails,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (o *operation) countDropped(n Normalized) {
	for _, kind := range Kinds {
		for i := 0; i < n.DroppedCount(kind); i++ {
			o.fail(kind, metrics.StageNormalize)
		}
	}
}

func (o *operation) fail(kind EntityKind, stage string) {
	o.result.recordFailure(kind)
	metrics.RecordsFailed.WithLabelValues(string(kind), stage).Inc()
}

func (o *operation) succeed(kind EntityKind) {
	o.result.recordSuccess(kind)
	metrics.RecordsImported.WithLabelValues(string(kind)).Inc()
}

// clear deletes every record in deleteOrder. All kinds are listed before
// anything is deleted so a failed listing leaves the data untouched.
func (o *operation) clear() error {
	pending := make(map[EntityKind][]Record, len(deleteOrder))
	total := 0
	for _, kind := range deleteOrder {
		recs, err := o.store.QueryAll(o.ctx, kind)
		if err != nil {
			return fmt.Errorf("list %s: %w", kind, err)
		}
		pending[kind] = recs
		total += len(recs)
	}

	done := 0
	o.progress.Advance(PhaseClearing, done, total)
	for _, kind := range deleteOrder {
		for _, rec := range pending[kind] {
			if err := o.ctx.Err(); err != nil {
				return err
			}
			if err := o.store.Delete(o.ctx, kind, rec.RecordID()); err != nil {
				o.log.Warn("delete failed", "kind", kind, "id", rec.RecordID(), "error", err)
				o.result.DeleteFails++
				metrics.RecordsFailed.WithLabelValues(string(kind), metrics.StageDelete).Inc()
			} else {
				o.result.Deleted++
				metrics.RecordsDeleted.WithLabelValues(string(kind)).Inc()
			}
			done++
			o.progress.Advance(PhaseClearing, done, total)
		}
	}

	o.log.Info("existing data cleared", "deleted", o.result.Deleted, "delete_failures", o.result.DeleteFails)
	return nil
}

func (o *operation) insertProducts(products []Product) error {
	for i, p := range products {
		if err := o.ctx.Err(); err != nil {
			return err
		}
		p.ID = ""
		if _, err := o.store.Insert(o.ctx, KindProducts, p); err != nil {
			o.log.Warn("insert failed",
				"kind", KindProducts,
				"row", i+1,
				"name", p.Name,
				"sku", p.SKU,
				"error", err,
			)
			o.fail(KindProducts, metrics.StageInsert)
		} else {
			o.succeed(KindProducts)
		}
		o.progress.Advance(PhaseProducts, i+1, len(products))
	}
	return nil
}

// insertCustomers returns the customers as persisted.
func (o *operation) insertCustomers(customers []Customer) ([]Customer, error) {
	created := make([]Customer, 0, len(customers))
	for i, c := range customers {
		if err := o.ctx.Err(); err != nil {
			return created, err
		}
		c.ID = ""
		rec, err := o.store.Insert(o.ctx, KindCustomers, c)
		if err != nil {
			o.log.Warn("insert failed",
				"kind", KindCustomers,
				"row", i+1,
				"name", c.Name,
				"phone", c.Phone,
				"error", err,
			)
			o.fail(KindCustomers, metrics.StageInsert)
		} else {
			o.succeed(KindCustomers)
			if persisted, ok := rec.(Customer); ok {
				created = append(created, persisted)
			}
		}
		o.progress.Advance(PhaseCustomers, i+1, len(customers))
	}
	return created, nil
}

// resolver builds the customer index from the Store. When the listing
// fails it falls back to the customers created in this pass.
func (o *operation) resolver(created []Customer) *CustomerResolver {
	r, err := LoadCustomerResolver(o.ctx, o.store)
	if err != nil {
		o.log.Warn("customer index load failed, using imported customers only", "error", err)
		r = NewCustomerResolver(o.store, created)
	}
	return r.WithLogger(o.log)
}

func (o *operation) insertInvoices(invoices []Invoice, created []Customer) error {
	if len(invoices) == 0 {
		return nil
	}
	resolver := o.resolver(created)

	for i, inv := range invoices {
		if err := o.ctx.Err(); err != nil {
			return err
		}
		o.insertInvoice(resolver, i, inv)
		o.progress.Advance(PhaseInvoices, i+1, len(invoices))
	}
	return nil
}

func (o *operation) insertInvoice(resolver *CustomerResolver, i int, inv Invoice) {
	inv.ID = ""
	ApplyInvoiceDefaults(&inv)
	if inv.InvoiceNumber == "" || inv.TotalAmount <= 0 {
		o.log.Warn("invoice invalid", "row", i+1, "number", inv.InvoiceNumber, "total", inv.TotalAmount)
		o.fail(KindInvoices, metrics.StageNormalize)
		return
	}

	c, err := resolver.Resolve(o.ctx, inv.CustomerName, inv.CustomerPhone)
	if err != nil {
		o.log.Warn("customer unresolved",
			"kind", KindInvoices,
			"row", i+1,
			"number", inv.InvoiceNumber,
			"customer", inv.CustomerName,
			"error", err,
		)
		o.fail(KindInvoices, metrics.StageResolve)
		return
	}
	inv.CustomerID = c.ID
	if inv.CustomerPhone == "" {
		inv.CustomerPhone = c.Phone
	}
	if inv.CustomerID == "" {
		o.fail(KindInvoices, metrics.StageResolve)
		return
	}

	if _, err := o.store.Insert(o.ctx, KindInvoices, inv); err != nil {
		o.log.Warn("insert failed",
			"kind", KindInvoices,
			"row", i+1,
			"number", inv.InvoiceNumber,
			"customer_id", inv.CustomerID,
			"error", err,
		)
		o.fail(KindInvoices, metrics.StageInsert)
		return
	}
	o.succeed(KindInvoices)
}

// sourcedBill remembers which sheet a bill came from for tallying.
type sourcedBill struct {
	Bill
	from EntityKind
}

// insertBills persists regular and exchange bills as one sequence.
func (o *operation) insertBills(bills, exchange []Bill) error {
	all := make([]sourcedBill, 0, len(bills)+len(exchange))
	for _, b := range bills {
		all = append(all, sourcedBill{Bill: b, from: KindBills})
	}
	for _, b := range exchange {
		b.BillNumber = EnsureExchangePrefix(b.BillNumber)
		all = append(all, sourcedBill{Bill: b, from: KindExchangeBills})
	}

	for i, sb := range all {
		if err := o.ctx.Err(); err != nil {
			return err
		}
		o.insertBill(i, sb)
		o.progress.Advance(PhaseBills, i+1, len(all))
	}
	return nil
}

func (o *operation) insertBill(i int, sb sourcedBill) {
	b := sb.Bill
	b.ID = ""
	ApplyBillDefaults(&b)

	number := strings.TrimPrefix(b.BillNumber, ExchangePrefix)
	if strings.TrimSpace(number) == "" || b.CustomerName == "" || b.TotalAmount <= 0 {
		o.log.Warn("bill invalid", "row", i+1, "number", b.BillNumber, "total", b.TotalAmount)
		o.fail(sb.from, metrics.StageNormalize)
		return
	}

	if _, err := o.store.Insert(o.ctx, KindBills, b); err != nil {
		o.log.Warn("insert failed",
			"kind", sb.from,
			"row", i+1,
			"number", b.BillNumber,
			"customer", b.CustomerName,
			"error", err,
		)
		o.fail(sb.from, metrics.StageInsert)
		return
	}
	o.succeed(sb.from)
}
