// Package application runs ledger operations for the command line: the
// interactive menu, the confirmation prompt and the Runner they share.
package application

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/core"
)

// Importer runs imports, restores and clears.
type Importer interface {
	ImportWorkbook(ctx context.Context, sheets core.SheetRows) (*core.ImportResult, error)
	ImportKind(ctx context.Context, kind core.EntityKind, rows []core.Row) (*core.ImportResult, error)
	Restore(ctx context.Context, sheets core.SheetRows) (*core.ImportResult, error)
	ClearAll(ctx context.Context) (*core.ImportResult, error)
}

// Exporter encodes the full dataset as a workbook.
type Exporter interface {
	Workbook(ctx context.Context) ([]byte, string, error)
}

// Decoder parses workbooks.
type Decoder interface {
	Decode(data []byte) (core.SheetRows, error)
}

// Backup syncs to and restores from remote storage.
type Backup interface {
	Sync(ctx context.Context) (*backup.SyncResult, error)
	Restore(ctx context.Context) (*core.ImportResult, error)
}

// RunnerConfig wires a Runner.
type RunnerConfig struct {
	Importer Importer
	Exporter Exporter
	Decoder  Decoder
	Backup   Backup
	Limiter  *core.OperationLimiter

	// Timeout bounds each operation.
	Timeout time.Duration
}

// Runner executes one ledger operation at a time against local files.
type Runner struct {
	importer Importer
	exporter Exporter
	decoder  Decoder
	backup   Backup
	limiter  *core.OperationLimiter
	timeout  time.Duration
}

// NewRunner creates a Runner.
func NewRunner(cfg RunnerConfig) *Runner {
	if cfg.Limiter == nil {
		cfg.Limiter = core.NewOperationLimiter(0)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Minute
	}
	return &Runner{
		importer: cfg.Importer,
		exporter: cfg.Exporter,
		decoder:  cfg.Decoder,
		backup:   cfg.Backup,
		limiter:  cfg.Limiter,
		timeout:  cfg.Timeout,
	}
}

func (r *Runner) run(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if err := r.limiter.TryAcquire(op); err != nil {
		return err
	}
	defer r.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(ctx)
}

// Export writes the workbook into dir and returns its path.
func (r *Runner) Export(ctx context.Context, dir string) (string, error) {
	var path string
	err := r.run(ctx, core.OpExport, func(ctx context.Context) error {
		data, name, err := r.exporter.Workbook(ctx)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create export dir: %w", err)
		}
		path = filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		return nil
	})
	return path, err
}

// Import imports every recognized sheet of the workbook at path.
func (r *Runner) Import(ctx context.Context, path string) (*core.ImportResult, error) {
	sheets, err := r.readWorkbook(path)
	if err != nil {
		return nil, err
	}
	return r.runImport(ctx, core.OpImport, func(ctx context.Context) (*core.ImportResult, error) {
		return r.importer.ImportWorkbook(ctx, sheets)
	})
}

// ImportKind imports one kind from the workbook at path.
func (r *Runner) ImportKind(ctx context.Context, kind core.EntityKind, path string) (*core.ImportResult, error) {
	sheets, err := r.readWorkbook(path)
	if err != nil {
		return nil, err
	}
	rows, err := core.KindRows(sheets, kind)
	if err != nil {
		return nil, err
	}
	return r.runImport(ctx, core.OpImportKind, func(ctx context.Context) (*core.ImportResult, error) {
		return r.importer.ImportKind(ctx, kind, rows)
	})
}

// Restore replaces all data with the workbook at path.
func (r *Runner) Restore(ctx context.Context, path string) (*core.ImportResult, error) {
	sheets, err := r.readWorkbook(path)
	if err != nil {
		return nil, err
	}
	return r.runImport(ctx, core.OpRestore, func(ctx context.Context) (*core.ImportResult, error) {
		return r.importer.Restore(ctx, sheets)
	})
}

// Clear deletes all data.
func (r *Runner) Clear(ctx context.Context) (*core.ImportResult, error) {
	return r.runImport(ctx, core.OpClear, r.importer.ClearAll)
}

// BackupSync uploads the current ledger.
func (r *Runner) BackupSync(ctx context.Context) (*backup.SyncResult, error) {
	var result *backup.SyncResult
	err := r.run(ctx, backup.OpSync, func(ctx context.Context) error {
		var err error
		result, err = r.backup.Sync(ctx)
		return err
	})
	return result, err
}

// BackupRestore replaces all data with the remote backup.
func (r *Runner) BackupRestore(ctx context.Context) (*core.ImportResult, error) {
	return r.runImport(ctx, backup.OpRestore, r.backup.Restore)
}

func (r *Runner) runImport(ctx context.Context, op string, fn func(context.Context) (*core.ImportResult, error)) (*core.ImportResult, error) {
	var result *core.ImportResult
	err := r.run(ctx, op, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	return result, err
}

func (r *Runner) readWorkbook(path string) (core.SheetRows, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read workbook: %w", err)
	}
	return r.decoder.Decode(data)
}

// FormatResult renders an import result as one human readable line.
func FormatResult(res *core.ImportResult) string {
	if res == nil {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d of %d records imported", res.Operation, res.Imported, res.Total)
	if res.Errors > 0 {
		fmt.Fprintf(&b, ", %d errors", res.Errors)
	}
	if res.Deleted > 0 || res.DeleteFails > 0 {
		fmt.Fprintf(&b, ", %d deleted", res.Deleted)
		if res.DeleteFails > 0 {
			fmt.Fprintf(&b, " (%d failed)", res.DeleteFails)
		}
	}

	kinds := make([]string, 0, len(res.Kinds))
	for k, t := range res.Kinds {
		kinds = append(kinds, fmt.Sprintf("%s %d/%d", k, t.Imported, t.Total))
	}
	if len(kinds) > 0 {
		sort.Strings(kinds)
		fmt.Fprintf(&b, " [%s]", strings.Join(kinds, ", "))
	}
	return b.String()
}
