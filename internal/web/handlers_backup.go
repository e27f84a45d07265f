package web

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/logging"
)

// sessionRequest is the body of PUT /api/backup/session.
type sessionRequest struct {
	AccessToken string    `json:"accessToken"`
	Expiry      time.Time `json:"expiry"`
	ExpiresIn   int64     `json:"expiresIn"`
	FileID      string    `json:"fileId"`
}

// handleBackupSync exports the ledger and uploads it.
func (s *Server) handleBackupSync(w http.ResponseWriter, r *http.Request) {
	var result *backup.SyncResult
	err := s.withOperation(r, backup.OpSync, func(ctx context.Context) error {
		var err error
		result, err = s.deps.Backup.Sync(ctx)
		return err
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// handleBackupRestore downloads the remembered backup and restores it.
func (s *Server) handleBackupRestore(w http.ResponseWriter, r *http.Request) {
	if err := requireConfirmation(r); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.runImport(w, r, backup.OpRestore, s.deps.Backup.Restore)
}

// handleGetSession reports whether a credential is stored.
func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.deps.Session.Status())
}

// handlePutSession stores a bearer token and, optionally, the backup file id.
func (s *Server) handlePutSession(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 64<<10)

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, bodyError(err))
		return
	}
	req.AccessToken = strings.TrimSpace(req.AccessToken)
	if req.AccessToken == "" {
		s.respondError(w, r, fmt.Errorf("%w: accessToken is required", errBadRequest))
		return
	}

	expiry := req.Expiry
	if expiry.IsZero() && req.ExpiresIn > 0 {
		expiry = time.Now().Add(time.Duration(req.ExpiresIn) * time.Second)
	}

	if err := s.deps.Session.Connect(req.AccessToken, expiry, req.FileID); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("backup session connected", "expiry", expiry, "file_id", s.deps.Session.Status().FileID)
	writeJSON(w, s.deps.Session.Status())
}

// handleDeleteSession forgets the credential and the backup file.
func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.deps.Session.Disconnect(); err != nil {
		s.respondError(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("backup session disconnected")
	writeJSON(w, s.deps.Session.Status())
}

// handleProgress streams the tracker via Server-Sent Events until the
// client goes away. The event id is the percentage so reconnecting
// clients can skip what they already saw.
func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, fmt.Errorf("streaming not supported"))
		return
	}

	lastEventID := -1
	if id := r.Header.Get("Last-Event-ID"); id != "" {
		fmt.Sscan(id, &lastEventID)
	}

	progressCh, unsubscribe := s.deps.Progress.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case p, ok := <-progressCh:
			if !ok {
				return
			}
			if lastEventID >= 0 {
				if running(p.Phase) && p.Percent <= lastEventID {
					continue
				}
				lastEventID = -1
			}

			data, _ := json.Marshal(p)
			fmt.Fprintf(w, "id: %d\nevent: progress\ndata: %s\n\n", p.Percent, data)
			flusher.Flush()

		case <-s.stop:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func running(p core.Phase) bool {
	switch p {
	case core.PhaseIdle, core.PhaseComplete, core.PhaseFailed:
		return false
	}
	return true
}
