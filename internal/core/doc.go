// Package core provides the business logic for ledger import, export and restore.
//
// This package is the heart of ledgersync, containing all domain logic
// independent of any UI or transport layer. It can be used by web handlers,
// the CLI, the backup scheduler or tests without modification. Persistence
// is consumed through the [Store] interface only.
//
// # Architecture
//
// The package is organized around several key concepts:
//
//   - Sheet Definitions: one fixed column layout per [EntityKind], registered
//     at init time. Each maps display headers ("Weight (g)") to field names.
//   - Normalizer: turns raw header-or-field-keyed rows into typed records,
//     dropping sentinel and invalid rows.
//   - CustomerResolver: finds or creates the customer an invoice refers to.
//   - Importer: runs selective imports, full imports, restores and clears.
//   - Exporter: reads the Store and hands a [Dataset] to an [Encoder].
//
// # Sheet Registry
//
//	core.Register(SheetDefinition{
//	    Kind:      KindProducts,
//	    SheetName: "Products",
//	    Sentinel:  "No products found",
//	    Primary:   "name",
//	    Fields: []FieldSpec{
//	        {Header: "Product Name", Field: "name", Type: FieldText},
//	        {Header: "Weight (g)", Field: "weight", Type: FieldNumber},
//	    },
//	})
//
// # Import Flow
//
//  1. A codec decodes the workbook into [SheetRows]
//  2. [Normalizer.Normalize] produces typed collections plus drop counts
//  3. [Importer] inserts Products, Customers, Invoices, then Bills
//  4. Progress is broadcast to subscribers via [ProgressTracker.Subscribe]
//
// Restore deletes Bills, Invoices, Customers and Products, in that order,
// before step 3.
//
// # Error Handling
//
// Per-record failures are logged and counted in [ImportResult], never
// returned. Returned errors are structural (no sheets, listing failed,
// context cancelled). Technical errors are mapped to user-friendly messages
// using [MapError]:
//
//   - DB001-DB007: Database errors (duplicates, constraints, connections)
//   - VAL001-VAL003: Validation errors
//   - FILE001-FILE005: Workbook errors
//   - OPS001-OPS004: Operation errors (busy, unconfirmed, cancelled)
//   - AUTH001-AUTH003: Backup credential errors
package core
