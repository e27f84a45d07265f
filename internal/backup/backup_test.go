package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/drive"
)

// ----------------------------------------------------------------------------
// Fakes
// ----------------------------------------------------------------------------

type fakeTransport struct {
	mu        sync.Mutex
	files     map[string][]byte
	metas     []drive.Metadata
	nextID    int
	updateErr error
	uploadErr error
	downErr   error
	updates   int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{files: make(map[string][]byte)}
}

func (f *fakeTransport) UploadNew(_ context.Context, data []byte, meta drive.Metadata) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.uploadErr != nil {
		return "", f.uploadErr
	}
	f.nextID++
	id := fmt.Sprintf("file-%d", f.nextID)
	f.files[id] = data
	f.metas = append(f.metas, meta)
	return id, nil
}

func (f *fakeTransport) UploadUpdate(_ context.Context, id string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates++
	if f.updateErr != nil {
		return f.updateErr
	}
	if _, ok := f.files[id]; !ok {
		return drive.ErrFileNotFound
	}
	f.files[id] = data
	return nil
}

func (f *fakeTransport) Download(_ context.Context, id string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.downErr != nil {
		return nil, f.downErr
	}
	data, ok := f.files[id]
	if !ok {
		return nil, drive.ErrFileNotFound
	}
	return data, nil
}

type fakeExporter struct {
	data []byte
	err  error
}

func (e fakeExporter) Backup(context.Context) ([]byte, string, error) {
	return e.data, "ledger-backup-2024-03-21.xlsx", e.err
}

type fakeDecoder struct{}

func (fakeDecoder) Decode(data []byte) (core.SheetRows, error) {
	return core.SheetRows{"Products": {{"Product Name": string(data)}}}, nil
}

type fakeRestorer struct {
	got core.SheetRows
}

func (r *fakeRestorer) Restore(_ context.Context, sheets core.SheetRows) (*core.ImportResult, error) {
	r.got = sheets
	return &core.ImportResult{Operation: core.OpRestore, Imported: 1, Total: 1}, nil
}

func connectedSession(t *testing.T) *SessionStore {
	t.Helper()
	s, err := OpenSessionStore("")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Connect("tok", time.Now().Add(time.Hour), ""); err != nil {
		t.Fatal(err)
	}
	return s
}

func newTestService(t *testing.T, tr *fakeTransport, session *SessionStore) (*Service, *fakeRestorer) {
	t.Helper()
	r := &fakeRestorer{}
	return NewService(Config{
		Session:   session,
		Transport: tr,
		Exporter:  fakeExporter{data: []byte("PK")},
		Decoder:   fakeDecoder{},
		Restorer:  r,
		FolderID:  "folder-1",
	}), r
}

// ============================================================================
// Session
// ============================================================================

func TestSessionStore_Persists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", "session.json")

	s, err := OpenSessionStore(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if s.Connected() {
		t.Fatal("new session should not be connected")
	}

	expiry := time.Now().Add(time.Hour).UTC().Truncate(time.Second)
	if err := s.Connect("tok", expiry, "file-9"); err != nil {
		t.Fatalf("Connect: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("perm = %v, want 0600", info.Mode().Perm())
	}

	reopened, err := OpenSessionStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.Get()
	if got.AccessToken != "tok" || got.FileID != "file-9" || !got.Expiry.Equal(expiry) {
		t.Errorf("reopened session = %+v", got)
	}
	if !reopened.Connected() {
		t.Error("reopened session should be connected")
	}
}

func TestSessionStore_Token(t *testing.T) {
	s, _ := OpenSessionStore("")

	if _, err := s.Token(); !errors.Is(err, drive.ErrCredentialExpired) {
		t.Errorf("empty Token() err = %v", err)
	}

	s.Connect("tok", time.Now().Add(-time.Minute), "")
	if _, err := s.Token(); !errors.Is(err, drive.ErrCredentialExpired) {
		t.Errorf("expired Token() err = %v", err)
	}

	s.Connect("tok", time.Time{}, "")
	tok, err := s.Token()
	if err != nil || tok.AccessToken != "tok" {
		t.Errorf("Token() = %v, %v", tok, err)
	}
}

func TestSessionStore_ClearCredentialKeepsFile(t *testing.T) {
	s, _ := OpenSessionStore("")
	s.Connect("tok", time.Time{}, "file-1")

	if err := s.ClearCredential(); err != nil {
		t.Fatal(err)
	}
	st := s.Status()
	if st.Connected || st.FileID != "file-1" {
		t.Errorf("status = %+v, want disconnected with file-1", st)
	}

	s.Disconnect()
	if got := s.Get(); got.AccessToken != "" || got.FileID != "" {
		t.Errorf("Disconnect left %+v", got)
	}
}

// ============================================================================
// Sync
// ============================================================================

func TestSync_CreatesThenUpdates(t *testing.T) {
	tr := newFakeTransport()
	session := connectedSession(t)
	svc, _ := newTestService(t, tr, session)

	first, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("first Sync: %v", err)
	}
	if !first.Created || first.FileID == "" {
		t.Fatalf("first = %+v, want created", first)
	}
	if session.Get().FileID != first.FileID {
		t.Errorf("session file = %q, want %q", session.Get().FileID, first.FileID)
	}
	if len(tr.metas) != 1 || tr.metas[0].Parents[0] != "folder-1" || tr.metas[0].Name != first.Name {
		t.Errorf("metadata = %+v", tr.metas)
	}

	second, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("second Sync: %v", err)
	}
	if second.Created || second.FileID != first.FileID || tr.updates != 1 {
		t.Errorf("second = %+v, updates = %d", second, tr.updates)
	}
}

func TestSync_RecreatesMissingFile(t *testing.T) {
	tr := newFakeTransport()
	session := connectedSession(t)
	session.SetFileID("file-gone")
	svc, _ := newTestService(t, tr, session)

	res, err := svc.Sync(context.Background())
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if !res.Created || session.Get().FileID == "file-gone" {
		t.Errorf("res = %+v, session file = %q", res, session.Get().FileID)
	}
}

func TestSync_NotConnected(t *testing.T) {
	session, _ := OpenSessionStore("")
	tr := newFakeTransport()
	svc, _ := newTestService(t, tr, session)

	if _, err := svc.Sync(context.Background()); !errors.Is(err, ErrReconnectRequired) {
		t.Errorf("err = %v, want ErrReconnectRequired", err)
	}
	if len(tr.files) != 0 {
		t.Error("uploaded without a credential")
	}
}

func TestSync_RejectedCredentialIsCleared(t *testing.T) {
	tr := newFakeTransport()
	tr.uploadErr = drive.ErrCredentialExpired
	session := connectedSession(t)
	svc, _ := newTestService(t, tr, session)

	_, err := svc.Sync(context.Background())
	if !errors.Is(err, ErrReconnectRequired) || !errors.Is(err, drive.ErrCredentialExpired) {
		t.Errorf("err = %v", err)
	}
	if session.Connected() {
		t.Error("credential not cleared")
	}
}

func TestSync_ExportFailure(t *testing.T) {
	tr := newFakeTransport()
	svc := NewService(Config{
		Session:   connectedSession(t),
		Transport: tr,
		Exporter:  fakeExporter{err: errors.New("connection refused")},
	})

	if _, err := svc.Sync(context.Background()); err == nil {
		t.Fatal("Sync = nil error")
	}
	if len(tr.files) != 0 {
		t.Error("uploaded after export failure")
	}
}

// ============================================================================
// Restore
// ============================================================================

func TestRestore(t *testing.T) {
	tr := newFakeTransport()
	tr.files["file-1"] = []byte("Ring")
	session := connectedSession(t)
	session.SetFileID("file-1")
	svc, r := newTestService(t, tr, session)

	res, err := svc.Restore(context.Background())
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if res.Imported != 1 {
		t.Errorf("result = %+v", res)
	}
	if r.got["Products"][0]["Product Name"] != "Ring" {
		t.Errorf("restored sheets = %v", r.got)
	}
}

func TestRestore_Preconditions(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(*SessionStore, *fakeTransport)
		wantErr error
	}{
		{"not connected", func(s *SessionStore, _ *fakeTransport) { s.ClearCredential() }, ErrReconnectRequired},
		{"no file", func(*SessionStore, *fakeTransport) {}, ErrNoBackupFile},
		{"file gone", func(s *SessionStore, _ *fakeTransport) { s.SetFileID("file-x") }, ErrNoBackupFile},
		{"rejected", func(s *SessionStore, tr *fakeTransport) {
			s.SetFileID("file-1")
			tr.downErr = drive.ErrCredentialExpired
		}, ErrReconnectRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := newFakeTransport()
			session := connectedSession(t)
			tt.setup(session, tr)
			svc, r := newTestService(t, tr, session)

			if _, err := svc.Restore(context.Background()); !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
			if r.got != nil {
				t.Error("restore ran")
			}
		})
	}
}

// ============================================================================
// Scheduler
// ============================================================================

type countingSyncer struct {
	calls int
	err   error
}

func (c *countingSyncer) Sync(context.Context) (*SyncResult, error) {
	c.calls++
	return &SyncResult{}, c.err
}

func TestScheduler_RunOnce(t *testing.T) {
	syncer := &countingSyncer{}
	session := connectedSession(t)
	limiter := core.NewOperationLimiter(time.Millisecond)
	s := NewScheduler(syncer, session, limiter, SchedulerConfig{Interval: time.Hour})

	if !s.runOnce(context.Background()) || syncer.calls != 1 {
		t.Fatalf("connected run: calls = %d", syncer.calls)
	}
	if limiter.Busy() {
		t.Error("limiter not released")
	}

	if err := limiter.TryAcquire(core.OpImport); err != nil {
		t.Fatal(err)
	}
	if s.runOnce(context.Background()) {
		t.Error("ran while another operation held the limiter")
	}
	limiter.Release()

	session.ClearCredential()
	if s.runOnce(context.Background()) || syncer.calls != 1 {
		t.Errorf("ran without credential: calls = %d", syncer.calls)
	}
}

func TestScheduler_RunStopsOnCancel(t *testing.T) {
	syncer := &countingSyncer{}
	session, _ := OpenSessionStore("")
	s := NewScheduler(syncer, session, core.NewOperationLimiter(0), SchedulerConfig{Interval: time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if syncer.calls != 0 {
		t.Errorf("calls = %d, want 0 without a credential", syncer.calls)
	}
}

func TestScheduler_Disabled(t *testing.T) {
	session, _ := OpenSessionStore("")
	s := NewScheduler(&countingSyncer{}, session, core.NewOperationLimiter(0), SchedulerConfig{})

	done := make(chan struct{})
	go func() {
		s.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("disabled scheduler did not return")
	}
}
