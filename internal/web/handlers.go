package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/logging"
)

// handleHealth reports liveness and the running operation, if any.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"operation": s.deps.Limiter.Status(),
	})
}

// handleCurrentOperation returns the limiter state and the latest progress.
func (s *Server) handleCurrentOperation(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"operation": s.deps.Limiter.Status(),
		"progress":  s.deps.Progress.Snapshot(),
	})
}

// handleExport streams the full dataset as a workbook download.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	var (
		data []byte
		name string
	)
	err := s.withOperation(r, core.OpExport, func(ctx context.Context) error {
		var err error
		data, name, err = s.deps.Exporter.Workbook(ctx)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("export sent", "file", name, "bytes", len(data))

	w.Header().Set("Content-Type", s.deps.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	w.Header().Set("Content-Length", fmt.Sprint(len(data)))
	w.Write(data)
}

// handleImport imports every recognized sheet of the uploaded workbook.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	sheets, err := s.readWorkbook(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.runImport(w, r, core.OpImport, func(ctx context.Context) (*core.ImportResult, error) {
		return s.deps.Importer.ImportWorkbook(ctx, sheets)
	})
}

// handleImportKind imports one kind from an uploaded workbook or from a
// JSON array of header-keyed rows.
func (s *Server) handleImportKind(w http.ResponseWriter, r *http.Request) {
	kind, err := core.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	var rows []core.Row
	if strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
		rows, err = s.readRows(w, r)
	} else {
		rows, err = s.readKindSheet(w, r, kind)
	}
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	s.runImport(w, r, core.OpImportKind, func(ctx context.Context) (*core.ImportResult, error) {
		return s.deps.Importer.ImportKind(ctx, kind, rows)
	})
}

// handleRestore replaces all data with the uploaded workbook.
func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	sheets, err := s.readWorkbook(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.runImport(w, r, core.OpRestore, func(ctx context.Context) (*core.ImportResult, error) {
		return s.deps.Importer.Restore(ctx, sheets)
	})
}

// handleClear deletes all data.
func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.runImport(w, r, core.OpClear, s.deps.Importer.ClearAll)
}

// readRows decodes a JSON array of rows from the request body.
func (s *Server) readRows(w http.ResponseWriter, r *http.Request) ([]core.Row, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Import.MaxFileSize)

	var rows []core.Row
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&rows); err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			return nil, bodyError(err)
		}
		return nil, fmt.Errorf("%w: invalid rows: %w", errBadRequest, err)
	}
	for _, row := range rows {
		for k, v := range row {
			if n, ok := v.(json.Number); ok {
				row[k] = n.String()
			}
		}
	}
	return rows, nil
}

// readKindSheet returns the rows for kind from an uploaded workbook.
func (s *Server) readKindSheet(w http.ResponseWriter, r *http.Request, kind core.EntityKind) ([]core.Row, error) {
	sheets, err := s.readWorkbook(w, r)
	if err != nil {
		return nil, err
	}
	return core.KindRows(sheets, kind)
}

// runImport runs fn under the operation limiter and writes its result.
func (s *Server) runImport(w http.ResponseWriter, r *http.Request, op string, fn func(context.Context) (*core.ImportResult, error)) {
	var result *core.ImportResult
	err := s.withOperation(r, op, func(ctx context.Context) error {
		var err error
		result, err = fn(ctx)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}
