package web

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/config"
	"github.com/JonMunkholm/ledgersync/internal/core"
)

// =============================================================================
// Fakes
// =============================================================================

type fakeImporter struct {
	calls  []string
	kind   core.EntityKind
	rows   []core.Row
	sheets core.SheetRows
	err    error
}

func (f *fakeImporter) result(op string) (*core.ImportResult, error) {
	f.calls = append(f.calls, op)
	if f.err != nil {
		return nil, f.err
	}
	return &core.ImportResult{Operation: op, Total: 2, Imported: 2}, nil
}

func (f *fakeImporter) ImportWorkbook(_ context.Context, sheets core.SheetRows) (*core.ImportResult, error) {
	f.sheets = sheets
	return f.result(core.OpImport)
}

func (f *fakeImporter) ImportKind(_ context.Context, kind core.EntityKind, rows []core.Row) (*core.ImportResult, error) {
	f.kind, f.rows = kind, rows
	return f.result(core.OpImportKind)
}

func (f *fakeImporter) Restore(_ context.Context, sheets core.SheetRows) (*core.ImportResult, error) {
	f.sheets = sheets
	return f.result(core.OpRestore)
}

func (f *fakeImporter) ClearAll(context.Context) (*core.ImportResult, error) {
	return f.result(core.OpClear)
}

type fakeExporter struct {
	data []byte
	err  error
}

func (f *fakeExporter) Workbook(context.Context) ([]byte, string, error) {
	return f.data, "ledger-export-2024-03-15.xlsx", f.err
}

type fakeDecoder struct {
	got    []byte
	sheets core.SheetRows
	err    error
}

func (f *fakeDecoder) Decode(data []byte) (core.SheetRows, error) {
	f.got = data
	return f.sheets, f.err
}

type fakeBackup struct {
	syncErr    error
	restoreErr error
}

func (f *fakeBackup) Sync(context.Context) (*backup.SyncResult, error) {
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	return &backup.SyncResult{FileID: "file-1", Bytes: 42}, nil
}

func (f *fakeBackup) Restore(context.Context) (*core.ImportResult, error) {
	if f.restoreErr != nil {
		return nil, f.restoreErr
	}
	return &core.ImportResult{Operation: backup.OpRestore}, nil
}

// =============================================================================
// Helpers
// =============================================================================

type testEnv struct {
	srv      *Server
	importer *fakeImporter
	exporter *fakeExporter
	decoder  *fakeDecoder
	backup   *fakeBackup
	session  *backup.SessionStore
	limiter  *core.OperationLimiter
}

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 5 * time.Second},
		Import: config.ImportConfig{
			MaxFileSize:        1 << 20,
			Timeout:            5 * time.Second,
			ProgressResetDelay: time.Second,
			OperationWait:      20 * time.Millisecond,
		},
	}
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(cfg)
	}
	session, err := backup.OpenSessionStore("")
	if err != nil {
		t.Fatalf("OpenSessionStore: %v", err)
	}

	env := &testEnv{
		importer: &fakeImporter{},
		exporter: &fakeExporter{data: []byte("PK-workbook")},
		decoder:  &fakeDecoder{sheets: core.SheetRows{"Products": {{"Name": "Ring"}}}},
		backup:   &fakeBackup{},
		session:  session,
		limiter:  core.NewOperationLimiter(cfg.Import.OperationWait),
	}
	env.srv = NewServer(cfg, Deps{
		Importer:    env.importer,
		Exporter:    env.exporter,
		Decoder:     env.decoder,
		Backup:      env.backup,
		Session:     session,
		Limiter:     env.limiter,
		ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	})
	t.Cleanup(func() { env.srv.Shutdown(context.Background()) })
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.srv.Router().ServeHTTP(rec, req)
	return rec
}

func multipartRequest(t *testing.T, method, target, field string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, "ledger.xlsx")
		if err != nil {
			t.Fatalf("CreateFormFile: %v", err)
		}
		fw.Write(content)
	} else {
		mw.WriteField("note", "no file")
	}
	mw.Close()

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return resp
}

// =============================================================================
// Operations
// =============================================================================

func TestHealth(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func TestStart_ListensOnConfiguredAddr(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("reserve port: %v", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	env := newTestEnv(t, func(c *config.Config) {
		c.Server.Host = "127.0.0.1"
		c.Server.Port = port
	})
	done := make(chan error, 1)
	go func() { done <- env.srv.Start() }()

	url := fmt.Sprintf("http://127.0.0.1:%d/healthz", port)
	var resp *http.Response
	for i := 0; i < 50; i++ {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := env.srv.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}
	if err := <-done; !errors.Is(err, http.ErrServerClosed) {
		t.Errorf("Start returned %v, want http.ErrServerClosed", err)
	}
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("Content-Disposition"); got != `attachment; filename="ledger-export-2024-03-15.xlsx"` {
		t.Errorf("Content-Disposition = %q", got)
	}
	if got := rec.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Errorf("Content-Type = %q", got)
	}
	if rec.Body.String() != "PK-workbook" {
		t.Errorf("body = %q", rec.Body.String())
	}
	if env.limiter.Busy() {
		t.Error("limiter still held after export")
	}
}

func TestExport_EncodeFailure(t *testing.T) {
	env := newTestEnv(t, nil)
	env.exporter.err = fmt.Errorf("encode workbook: %w", core.ErrEmptyWorkbook)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/export", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if got := decodeError(t, rec).Code; got != "FILE003" {
		t.Errorf("code = %q, want FILE003", got)
	}
}

func TestImport(t *testing.T) {
	env := newTestEnv(t, nil)
	req := multipartRequest(t, http.MethodPost, "/api/import", "file", []byte("xlsx-bytes"))

	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if string(env.decoder.got) != "xlsx-bytes" {
		t.Errorf("decoder got %q", env.decoder.got)
	}
	if len(env.importer.calls) != 1 || env.importer.calls[0] != core.OpImport {
		t.Errorf("calls = %v", env.importer.calls)
	}

	var result core.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Imported != 2 {
		t.Errorf("Imported = %d, want 2", result.Imported)
	}
}

func TestImport_BadUploads(t *testing.T) {
	tests := []struct {
		name       string
		field      string
		decodeErr  error
		wantStatus int
		wantCode   string
	}{
		{"no file field", "", nil, http.StatusBadRequest, "FILE004"},
		{"no sheets", "file", core.ErrNoSheets, http.StatusBadRequest, "FILE002"},
		{"not a workbook", "file", errors.New("zip: not a valid zip file"), http.StatusBadRequest, "FILE005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.decoder.err = tt.decodeErr

			rec := env.do(multipartRequest(t, http.MethodPost, "/api/import", tt.field, []byte("x")))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
			if len(env.importer.calls) != 0 {
				t.Errorf("importer called: %v", env.importer.calls)
			}
		})
	}
}

func TestImportKind_JSONRows(t *testing.T) {
	env := newTestEnv(t, nil)
	body := `[{"Name":"Asha","Phone":9876543210},{"Name":"Ravi"}]`
	req := httptest.NewRequest(http.MethodPost, "/api/import/customers", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := env.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if env.importer.kind != core.KindCustomers {
		t.Errorf("kind = %q", env.importer.kind)
	}
	if len(env.importer.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(env.importer.rows))
	}
	// Numbers stay exact instead of becoming float64.
	if got := env.importer.rows[0]["Phone"]; got != "9876543210" {
		t.Errorf("Phone = %#v, want \"9876543210\"", got)
	}
}

func TestImportKind_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		maxSize    int64
		wantStatus int
		wantCode   string
	}{
		{"unknown kind", "/api/import/widgets", `[]`, 0, http.StatusBadRequest, "VAL001"},
		{"not an array", "/api/import/products", `{"Name":"Ring"}`, 0, http.StatusBadRequest, "VAL003"},
		{"too large", "/api/import/products", `[{"Name":"` + strings.Repeat("x", 256) + `"}]`, 64, http.StatusRequestEntityTooLarge, "FILE001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(c *config.Config) {
				if tt.maxSize > 0 {
					c.Import.MaxFileSize = tt.maxSize
				}
			})
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")

			rec := env.do(req)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if got := decodeError(t, rec).Code; got != tt.wantCode {
				t.Errorf("code = %q, want %q", got, tt.wantCode)
			}
		})
	}
}

func TestImportKind_WorkbookSheetSelection(t *testing.T) {
	products := core.MustSheet(core.KindProducts).SheetName
	customers := core.MustSheet(core.KindCustomers).SheetName

	tests := []struct {
		name     string
		sheets   core.SheetRows
		wantRows int
		wantErr  bool
	}{
		{
			name: "matching sheet among several",
			sheets: core.SheetRows{
				products:  {{"Name": "Ring"}, {"Name": "Chain"}},
				customers: {{"Name": "Asha"}},
			},
			wantRows: 2,
		},
		{
			name:     "single sheet with any name",
			sheets:   core.SheetRows{"Sheet1": {{"Name": "Ring"}}},
			wantRows: 1,
		},
		{
			name:    "several sheets none matching",
			sheets:  core.SheetRows{customers: {{"Name": "Asha"}}, "Other": {{"A": "b"}}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.decoder.sheets = tt.sheets

			rec := env.do(multipartRequest(t, http.MethodPost, "/api/import/products", "file", []byte("x")))
			if tt.wantErr {
				if rec.Code != http.StatusBadRequest {
					t.Fatalf("status = %d, want 400", rec.Code)
				}
				return
			}
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
			}
			if len(env.importer.rows) != tt.wantRows {
				t.Errorf("rows = %d, want %d", len(env.importer.rows), tt.wantRows)
			}
		})
	}
}

func TestDestructiveOperations_RequireConfirmation(t *testing.T) {
	tests := []struct {
		name  string
		path  string
		multi bool
	}{
		{"restore", "/api/restore", true},
		{"restore confirm false", "/api/restore?confirm=false", true},
		{"clear", "/api/clear", false},
		{"backup restore", "/api/backup/restore", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			req := httptest.NewRequest(http.MethodPost, tt.path, nil)
			if tt.multi {
				req = multipartRequest(t, http.MethodPost, tt.path, "file", []byte("x"))
			}

			rec := env.do(req)
			if rec.Code != http.StatusPreconditionRequired {
				t.Fatalf("status = %d, want 428", rec.Code)
			}
			if got := decodeError(t, rec).Code; got != "OPS002" {
				t.Errorf("code = %q, want OPS002", got)
			}
			if len(env.importer.calls) != 0 {
				t.Errorf("importer called: %v", env.importer.calls)
			}
		})
	}
}

func TestDestructiveOperations_Confirmed(t *testing.T) {
	env := newTestEnv(t, nil)

	rec := env.do(multipartRequest(t, http.MethodPost, "/api/restore?confirm=true", "file", []byte("x")))
	if rec.Code != http.StatusOK {
		t.Fatalf("restore status = %d: %s", rec.Code, rec.Body.String())
	}
	rec = env.do(httptest.NewRequest(http.MethodPost, "/api/clear?confirm=true", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("clear status = %d: %s", rec.Code, rec.Body.String())
	}

	want := []string{core.OpRestore, core.OpClear}
	if fmt.Sprint(env.importer.calls) != fmt.Sprint(want) {
		t.Errorf("calls = %v, want %v", env.importer.calls, want)
	}
}

func TestOperationInProgress(t *testing.T) {
	env := newTestEnv(t, nil)
	if err := env.limiter.TryAcquire(core.OpRestore); err != nil {
		t.Fatalf("TryAcquire: %v", err)
	}
	defer env.limiter.Release()

	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/api/export", nil),
		httptest.NewRequest(http.MethodPost, "/api/clear?confirm=true", nil),
		httptest.NewRequest(http.MethodPost, "/api/backup/sync", nil),
	}
	for _, req := range requests {
		rec := env.do(req)
		if rec.Code != http.StatusConflict {
			t.Errorf("%s: status = %d, want 409", req.URL.Path, rec.Code)
			continue
		}
		if got := decodeError(t, rec).Code; got != "OPS001" {
			t.Errorf("%s: code = %q, want OPS001", req.URL.Path, got)
		}
	}
	if len(env.importer.calls) != 0 {
		t.Errorf("importer called: %v", env.importer.calls)
	}
}

// =============================================================================
// Backup
// =============================================================================

func TestBackupEndpoints(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		syncErr    error
		restoreErr error
		wantStatus int
		wantCode   string
	}{
		{"sync ok", "/api/backup/sync", nil, nil, http.StatusOK, ""},
		{"sync not connected", "/api/backup/sync", backup.ErrReconnectRequired, nil, http.StatusUnauthorized, "AUTH002"},
		{"restore ok", "/api/backup/restore?confirm=true", nil, nil, http.StatusOK, ""},
		{"restore no file", "/api/backup/restore?confirm=true", nil, backup.ErrNoBackupFile, http.StatusNotFound, "AUTH003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			env.backup.syncErr = tt.syncErr
			env.backup.restoreErr = tt.restoreErr

			rec := env.do(httptest.NewRequest(http.MethodPost, tt.path, nil))
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", rec.Code, tt.wantStatus, rec.Body.String())
			}
			if tt.wantCode != "" {
				if got := decodeError(t, rec).Code; got != tt.wantCode {
					t.Errorf("code = %q, want %q", got, tt.wantCode)
				}
			}
		})
	}
}

func TestSessionLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	status := func() backup.SessionStatus {
		t.Helper()
		rec := env.do(httptest.NewRequest(http.MethodGet, "/api/backup/session", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("GET status = %d", rec.Code)
		}
		var st backup.SessionStatus
		if err := json.Unmarshal(rec.Body.Bytes(), &st); err != nil {
			t.Fatalf("decode status: %v", err)
		}
		return st
	}

	if status().Connected {
		t.Fatal("connected before PUT")
	}

	rec := env.do(httptest.NewRequest(http.MethodPut, "/api/backup/session",
		strings.NewReader(`{"accessToken":"ya29.token","expiresIn":3600,"fileId":"file-9"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d: %s", rec.Code, rec.Body.String())
	}
	if strings.Contains(rec.Body.String(), "ya29.token") {
		t.Error("token echoed in response")
	}

	st := status()
	if !st.Connected || st.FileID != "file-9" {
		t.Errorf("status = %+v, want connected with file-9", st)
	}

	rec = env.do(httptest.NewRequest(http.MethodDelete, "/api/backup/session", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("DELETE status = %d", rec.Code)
	}
	if st := status(); st.Connected || st.FileID != "" {
		t.Errorf("status after DELETE = %+v", st)
	}
}

func TestPutSession_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed", `{"accessToken":`},
		{"missing token", `{"fileId":"f"}`},
		{"blank token", `{"accessToken":"   "}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, nil)
			rec := env.do(httptest.NewRequest(http.MethodPut, "/api/backup/session", strings.NewReader(tt.body)))
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if env.session.Connected() {
				t.Error("session connected after invalid PUT")
			}
		})
	}
}

// =============================================================================
// Auth and progress
// =============================================================================

func TestAPIKeyAuth(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Security.RequireAPIKey = true
		c.Security.APIKeys = []string{"k1", "k2"}
	})

	tests := []struct {
		name       string
		path       string
		key        string
		wantStatus int
	}{
		{"missing key", "/api/backup/session", "", http.StatusUnauthorized},
		{"wrong key", "/api/backup/session", "nope", http.StatusForbidden},
		{"second key", "/api/backup/session", "k2", http.StatusOK},
		{"health is public", "/healthz", "", http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.key != "" {
				req.Header.Set("X-API-Key", tt.key)
			}
			if rec := env.do(req); rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t, func(c *config.Config) {
		c.Rate.Enabled = true
		c.Rate.RequestsPerMinute = 2
	})

	var codes []int
	for i := 0; i < 3; i++ {
		codes = append(codes, env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil)).Code)
	}
	want := []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}
	if fmt.Sprint(codes) != fmt.Sprint(want) {
		t.Errorf("codes = %v, want %v", codes, want)
	}
}

func TestProgressStream(t *testing.T) {
	env := newTestEnv(t, nil)
	ts := httptest.NewServer(env.srv.Router())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/api/operations/current/progress", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("Content-Type = %q", got)
	}

	progress := env.srv.deps.Progress
	progress.Start("op-1", core.OpImport, core.PhaseProducts)
	progress.Advance(core.PhaseProducts, 1, 2)

	scanner := bufio.NewScanner(resp.Body)
	var events []core.Progress
	for scanner.Scan() && len(events) < 3 {
		line := scanner.Text()
		data, ok := strings.CutPrefix(line, "data: ")
		if !ok {
			continue
		}
		var p core.Progress
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			t.Fatalf("decode event %q: %v", data, err)
		}
		events = append(events, p)
	}

	if len(events) != 3 {
		t.Fatalf("got %d events, want 3", len(events))
	}
	if events[0].Phase != core.PhaseIdle {
		t.Errorf("first event phase = %q, want idle snapshot", events[0].Phase)
	}
	if last := events[2]; last.Percent != 50 || last.OperationID != "op-1" {
		t.Errorf("last event = %+v, want 50%% of op-1", last)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{core.ErrOperationInProgress, http.StatusConflict},
		{fmt.Errorf("wrap: %w", core.ErrConfirmationRequired), http.StatusPreconditionRequired},
		{backup.ErrReconnectRequired, http.StatusUnauthorized},
		{backup.ErrNoBackupFile, http.StatusNotFound},
		{core.ErrNoSheets, http.StatusBadRequest},
		{core.ErrUnknownKind, http.StatusBadRequest},
		{fmt.Errorf("file too large: %w", &http.MaxBytesError{Limit: 1}), http.StatusRequestEntityTooLarge},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
