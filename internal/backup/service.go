// Package backup copies the whole ledger to a remote file and restores it
// from there.
//
// A Sync exports the dataset as a workbook and uploads it, updating the
// remembered remote file when there is one. A Restore downloads that file
// and runs a destructive restore. Both require a live credential: a missing
// or expired token fails before any work starts, and a credential the remote
// rejects is cleared so the caller must reconnect.
package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/drive"
	"github.com/JonMunkholm/ledgersync/internal/logging"
	"github.com/JonMunkholm/ledgersync/internal/metrics"
	"github.com/google/uuid"
)

// Operation names used by the limiter, logs and metrics.
const (
	OpSync    = "backup_sync"
	OpRestore = "backup_restore"
)

var (
	// ErrReconnectRequired means the stored credential is gone or was
	// rejected; a new one must be stored through the session.
	ErrReconnectRequired = errors.New("reconnect required")

	// ErrNoBackupFile means no remote backup file has been recorded yet.
	ErrNoBackupFile = errors.New("no backup file")
)

// Transport moves workbook bytes to and from remote storage.
type Transport interface {
	UploadNew(ctx context.Context, data []byte, meta drive.Metadata) (string, error)
	UploadUpdate(ctx context.Context, fileID string, data []byte) error
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Exporter produces the backup workbook and its file name.
type Exporter interface {
	Backup(ctx context.Context) ([]byte, string, error)
}

// Decoder parses workbook bytes into sheet rows.
type Decoder interface {
	Decode(data []byte) (core.SheetRows, error)
}

// Restorer replaces all stored data with the given sheets.
type Restorer interface {
	Restore(ctx context.Context, sheets core.SheetRows) (*core.ImportResult, error)
}

// SyncResult describes one successful upload.
type SyncResult struct {
	FileID  string        `json:"fileId"`
	Name    string        `json:"name"`
	Bytes   int           `json:"bytes"`
	Created bool          `json:"created"`
	At      time.Time     `json:"at"`
	Elapsed time.Duration `json:"elapsed"`
}

// Service runs backup syncs and restores. It does not serialize callers;
// see core.OperationLimiter.
type Service struct {
	session   *SessionStore
	transport Transport
	exporter  Exporter
	decoder   Decoder
	restorer  Restorer
	folderID  string
	mimeType  string
}

// Config wires a Service.
type Config struct {
	Session   *SessionStore
	Transport Transport
	Exporter  Exporter
	Decoder   Decoder
	Restorer  Restorer

	// FolderID is the parent folder for newly created backup files.
	FolderID string
	// MimeType of uploaded workbooks.
	MimeType string
}

// NewService creates a Service.
func NewService(cfg Config) *Service {
	if cfg.MimeType == "" {
		cfg.MimeType = "application/octet-stream"
	}
	return &Service{
		session:   cfg.Session,
		transport: cfg.Transport,
		exporter:  cfg.Exporter,
		decoder:   cfg.Decoder,
		restorer:  cfg.Restorer,
		folderID:  cfg.FolderID,
		mimeType:  cfg.MimeType,
	}
}

// Session returns the session store.
func (s *Service) Session() *SessionStore {
	return s.session
}

// Sync exports the ledger and uploads it. The remembered file is updated in
// place; when there is none, or it was deleted remotely, a new file is
// created and remembered.
func (s *Service) Sync(ctx context.Context) (*SyncResult, error) {
	ctx = logging.WithOperationID(ctx, uuid.NewString())
	log := logging.WithFields(ctx, "operation", OpSync)
	track := metrics.TrackOperation(OpSync)
	start := time.Now()

	res, err := s.sync(ctx)
	if err != nil {
		track(start, metrics.OutcomeFailure)
		log.Error("backup sync failed", "error", err)
		return nil, err
	}

	res.Elapsed = time.Since(start)
	track(start, metrics.OutcomeSuccess)
	metrics.BackupLastSuccess.SetToCurrentTime()
	metrics.BackupBytes.Set(float64(res.Bytes))
	log.Info("backup sync completed",
		"file_id", res.FileID,
		"name", res.Name,
		"bytes", res.Bytes,
		"created", res.Created,
		"duration_ms", res.Elapsed.Milliseconds(),
	)
	return res, nil
}

func (s *Service) sync(ctx context.Context) (*SyncResult, error) {
	if !s.session.Connected() {
		return nil, ErrReconnectRequired
	}

	data, name, err := s.exporter.Backup(ctx)
	if err != nil {
		return nil, fmt.Errorf("export backup: %w", err)
	}
	if len(data) == 0 {
		return nil, core.ErrEmptyWorkbook
	}

	res := &SyncResult{Name: name, Bytes: len(data), At: time.Now()}

	if fileID := s.session.Get().FileID; fileID != "" {
		err := s.transport.UploadUpdate(ctx, fileID, data)
		switch {
		case err == nil:
			res.FileID = fileID
			return res, nil
		case errors.Is(err, drive.ErrFileNotFound):
			logging.FromContext(ctx).Warn("remembered backup file is gone, creating a new one", "file_id", fileID)
		default:
			return nil, s.transportError(ctx, "update backup", err)
		}
	}

	meta := drive.Metadata{Name: name, MimeType: s.mimeType}
	if s.folderID != "" {
		meta.Parents = []string{s.folderID}
	}
	fileID, err := s.transport.UploadNew(ctx, data, meta)
	if err != nil {
		return nil, s.transportError(ctx, "upload backup", err)
	}
	if err := s.session.SetFileID(fileID); err != nil {
		return nil, fmt.Errorf("remember backup file: %w", err)
	}

	res.FileID = fileID
	res.Created = true
	return res, nil
}

// Restore downloads the remembered backup and restores it.
func (s *Service) Restore(ctx context.Context) (*core.ImportResult, error) {
	log := logging.WithFields(ctx, "operation", OpRestore)

	if !s.session.Connected() {
		return nil, ErrReconnectRequired
	}
	fileID := s.session.Get().FileID
	if fileID == "" {
		return nil, ErrNoBackupFile
	}

	data, err := s.transport.Download(ctx, fileID)
	if err != nil {
		if errors.Is(err, drive.ErrFileNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoBackupFile, fileID)
		}
		return nil, s.transportError(ctx, "download backup", err)
	}
	if len(data) == 0 {
		return nil, core.ErrEmptyWorkbook
	}

	sheets, err := s.decoder.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("decode backup: %w", err)
	}

	log.Info("backup downloaded", "file_id", fileID, "bytes", len(data), "sheets", len(sheets))
	return s.restorer.Restore(ctx, sheets)
}

// transportError clears the credential when the remote rejected it.
func (s *Service) transportError(ctx context.Context, op string, err error) error {
	if !errors.Is(err, drive.ErrCredentialExpired) {
		return fmt.Errorf("%s: %w", op, err)
	}
	if clearErr := s.session.ClearCredential(); clearErr != nil {
		logging.FromContext(ctx).Error("clear expired credential failed", "error", clearErr)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrReconnectRequired, err)
}
