package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgersync/internal/application"
	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/core"
)

type fakeImporter struct {
	ops    []string
	errors int
}

func (f *fakeImporter) res(op string) (*core.ImportResult, error) {
	f.ops = append(f.ops, op)
	return &core.ImportResult{Operation: op, Total: 2, Imported: 2 - f.errors, Errors: f.errors}, nil
}

func (f *fakeImporter) ImportWorkbook(context.Context, core.SheetRows) (*core.ImportResult, error) {
	return f.res(core.OpImport)
}

func (f *fakeImporter) ImportKind(context.Context, core.EntityKind, []core.Row) (*core.ImportResult, error) {
	return f.res(core.OpImportKind)
}

func (f *fakeImporter) Restore(context.Context, core.SheetRows) (*core.ImportResult, error) {
	return f.res(core.OpRestore)
}

func (f *fakeImporter) ClearAll(context.Context) (*core.ImportResult, error) {
	return f.res(core.OpClear)
}

type fakeDecoder struct{}

func (fakeDecoder) Decode([]byte) (core.SheetRows, error) {
	return core.SheetRows{"Sheet1": {{"Name": "Ring"}}}, nil
}

type harness struct {
	importer *fakeImporter
	session  *backup.SessionStore
	closed   bool
	prompts  []string
	answer   bool
	workbook string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	session, err := backup.OpenSessionStore("")
	if err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(t.TempDir(), "ledger.xlsx")
	if err := os.WriteFile(path, []byte("xlsx"), 0o600); err != nil {
		t.Fatal(err)
	}
	return &harness{importer: &fakeImporter{}, session: session, workbook: path}
}

// execute runs ledgerctl with args against the harness fakes.
func (h *harness) execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	open := func(context.Context, string) (*env, error) {
		return &env{
			runner: application.NewRunner(application.RunnerConfig{
				Importer: h.importer,
				Decoder:  fakeDecoder{},
			}),
			session: h.session,
			close:   func() { h.closed = true },
		}, nil
	}

	root, cleanup := newRootCmd(open, withConfirm(func(_ *cobra.Command, prompt string) (bool, error) {
		h.prompts = append(h.prompts, prompt)
		return h.answer, nil
	}))
	defer cleanup()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestImportCommand(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute(t, "import", h.workbook)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !strings.Contains(out, "import: 2 of 2 records imported") {
		t.Errorf("output = %q", out)
	}
	if !h.closed {
		t.Error("env not closed")
	}
}

func TestImportCommand_PartialExitCode(t *testing.T) {
	h := newHarness(t)
	h.importer.errors = 1

	_, err := h.execute(t, "import", h.workbook)
	if exitCode(err) != exitPartial {
		t.Errorf("exit code = %d (%v), want %d", exitCode(err), err, exitPartial)
	}
}

func TestImportKindCommand_UnknownKind(t *testing.T) {
	h := newHarness(t)

	_, err := h.execute(t, "import-kind", "widgets", h.workbook)
	if !errors.Is(err, core.ErrUnknownKind) || exitCode(err) != exitUsage {
		t.Errorf("err = %v code = %d, want unknown kind usage error", err, exitCode(err))
	}
	if len(h.importer.ops) != 0 {
		t.Errorf("importer called: %v", h.importer.ops)
	}
}

func TestDestructiveCommands(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		answer      bool
		wantOps     int
		wantPrompts int
		wantCode    int
	}{
		{"clear declined", []string{"clear"}, false, 0, 1, exitDeclined},
		{"clear confirmed", []string{"clear"}, true, 1, 1, 0},
		{"clear with --yes", []string{"clear", "--yes"}, false, 1, 0, 0},
		{"restore declined", []string{"restore", "WORKBOOK"}, false, 0, 1, exitDeclined},
		{"restore with -y", []string{"restore", "-y", "WORKBOOK"}, false, 1, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.answer = tt.answer

			args := make([]string, len(tt.args))
			for i, a := range tt.args {
				if a == "WORKBOOK" {
					a = h.workbook
				}
				args[i] = a
			}

			_, err := h.execute(t, args...)
			if tt.wantCode == 0 && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantCode != 0 && exitCode(err) != tt.wantCode {
				t.Fatalf("exit code = %d (%v), want %d", exitCode(err), err, tt.wantCode)
			}
			if len(h.importer.ops) != tt.wantOps {
				t.Errorf("ops = %v, want %d", h.importer.ops, tt.wantOps)
			}
			if len(h.prompts) != tt.wantPrompts {
				t.Errorf("prompts = %v, want %d", h.prompts, tt.wantPrompts)
			}
		})
	}
}

func TestBackupSessionCommands(t *testing.T) {
	h := newHarness(t)

	out, err := h.execute(t, "backup", "connect", "--token", "tok", "--file-id", "file-7")
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	if !strings.Contains(out, "connected") || !strings.Contains(out, "file-7") {
		t.Errorf("connect output = %q", out)
	}

	out, err = h.execute(t, "backup", "status", "--json")
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	var st backup.SessionStatus
	if err := json.Unmarshal([]byte(out), &st); err != nil {
		t.Fatalf("decode status %q: %v", out, err)
	}
	if !st.Connected || st.FileID != "file-7" {
		t.Errorf("status = %+v", st)
	}

	if _, err := h.execute(t, "backup", "disconnect"); err != nil {
		t.Fatalf("disconnect: %v", err)
	}
	if h.session.Connected() {
		t.Error("still connected after disconnect")
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(errors.New("x")); got != exitFailure {
		t.Errorf("plain error = %d", got)
	}
	if got := exitCode(withCode(exitUsage, errors.New("x"))); got != exitUsage {
		t.Errorf("usage error = %d", got)
	}
	if withCode(exitUsage, nil) != nil {
		t.Error("withCode(nil) should stay nil")
	}
}
