package web

// handlers_common.go holds helpers shared by the operation handlers.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/JonMunkholm/ledgersync/internal/core"
)

// withOperation holds the operation slot while fn runs under IMPORT_TIMEOUT.
func (s *Server) withOperation(r *http.Request, op string, fn func(ctx context.Context) error) error {
	if err := s.deps.Limiter.Acquire(r.Context(), op); err != nil {
		return err
	}
	defer s.deps.Limiter.Release()

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Import.Timeout)
	defer cancel()
	return fn(ctx)
}

// readWorkbook reads the multipart "file" field and decodes it.
func (s *Server) readWorkbook(w http.ResponseWriter, r *http.Request) (core.SheetRows, error) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(maxSize); err != nil {
		return nil, bodyError(err)
	}
	defer r.MultipartForm.RemoveAll()

	file, _, err := r.FormFile("file")
	if err != nil {
		return nil, fmt.Errorf("%w: no file provided", errBadRequest)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, bodyError(err)
	}
	sheets, err := s.deps.Decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", err, errUnreadableWorkbook)
	}
	return sheets, nil
}

// bodyError classifies a request body read failure.
func bodyError(err error) error {
	var maxBytes *http.MaxBytesError
	if errors.As(err, &maxBytes) {
		return fmt.Errorf("file too large: %w", err)
	}
	return fmt.Errorf("%w: %w", errBadRequest, err)
}

// requireConfirmation rejects destructive requests without ?confirm=true.
func requireConfirmation(r *http.Request) error {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if !ok {
		return core.ErrConfirmationRequired
	}
	return nil
}

// writeJSON encodes v as JSON and writes it to w.
// Logs encoding errors since headers are already sent.
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
