package application

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/JonMunkholm/ledgersync/internal/core"
)

/* ----------------------------------------
	MESSAGES
---------------------------------------- */

// DoneMsg reports a finished action.
type DoneMsg string

// ErrMsg reports a failed action.
type ErrMsg struct{ Err error }

/* ----------------------------------------
	MENU TREE
---------------------------------------- */

type MenuItem struct {
	Label   string
	Submenu *Menu
	Action  func() tea.Cmd

	// Confirm, when set, is asked before Action runs.
	Confirm string
}

type Menu struct {
	Title  string
	Items  []MenuItem
	Parent *Menu
}

func linkParents(menu *Menu, parent *Menu) {
	menu.Parent = parent

	for i := range menu.Items {
		item := &menu.Items[i]

		if item.Label == "Back" {
			item.Submenu = parent
			continue
		}

		if item.Submenu != nil {
			linkParents(item.Submenu, menu)
		}
	}
}

/* ----------------------------------------
	MENU TREE DEFINITION
---------------------------------------- */

// Options are the local paths the menu's actions read and write.
type Options struct {
	// Workbook is read by import and restore.
	Workbook string
	// ExportDir receives exported workbooks.
	ExportDir string
}

func buildMenuTree(ctx context.Context, r *Runner, opts Options) *Menu {
	act := func(fn func(ctx context.Context) (string, error)) func() tea.Cmd {
		return func() tea.Cmd {
			return func() tea.Msg {
				out, err := fn(ctx)
				if err != nil {
					return ErrMsg{Err: err}
				}
				return DoneMsg(out)
			}
		}
	}
	result := func(res *core.ImportResult, err error) (string, error) {
		return FormatResult(res), err
	}

	importMenu := &Menu{Title: "Import", Items: []MenuItem{
		{Label: "All sheets", Action: act(func(ctx context.Context) (string, error) {
			return result(r.Import(ctx, opts.Workbook))
		})},
	}}
	for _, kind := range core.Kinds {
		importMenu.Items = append(importMenu.Items, MenuItem{
			Label: "Only " + core.MustSheet(kind).SheetName,
			Action: act(func(ctx context.Context) (string, error) {
				return result(r.ImportKind(ctx, kind, opts.Workbook))
			}),
		})
	}
	importMenu.Items = append(importMenu.Items, MenuItem{Label: "Back"})

	backupMenu := &Menu{Title: "Backup", Items: []MenuItem{
		{Label: "Sync now", Action: act(func(ctx context.Context) (string, error) {
			res, err := r.BackupSync(ctx)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("backup uploaded: %s (%d bytes)", res.FileID, res.Bytes), nil
		})},
		{
			Label:   "Restore from backup",
			Confirm: "Replace ALL data with the remote backup?",
			Action: act(func(ctx context.Context) (string, error) {
				return result(r.BackupRestore(ctx))
			}),
		},
		{Label: "Back"},
	}}

	root := &Menu{
		Title: "Ledger",
		Items: []MenuItem{
			{Label: "Export", Action: act(func(ctx context.Context) (string, error) {
				path, err := r.Export(ctx, opts.ExportDir)
				return "exported to " + path, err
			})},
			{Label: "Import ->", Submenu: importMenu},
			{
				Label:   "Restore",
				Confirm: "Replace ALL data with " + opts.Workbook + "?",
				Action: act(func(ctx context.Context) (string, error) {
					return result(r.Restore(ctx, opts.Workbook))
				}),
			},
			{
				Label:   "Clear all data",
				Confirm: "Delete ALL products, customers, invoices and bills?",
				Action: act(func(ctx context.Context) (string, error) {
					return result(r.Clear(ctx))
				}),
			},
			{Label: "Backup ->", Submenu: backupMenu},
		},
	}

	linkParents(root, nil)

	return root
}

/* ----------------------------------------
	MODEL
---------------------------------------- */

// Model is the interactive operations menu.
type Model struct {
	menu    *Menu
	cursor  int
	pending *MenuItem
	busy    bool
	status  string
	err     error
}

// NewModel builds the menu for r.
func NewModel(ctx context.Context, r *Runner, opts Options) Model {
	return Model{menu: buildMenuTree(ctx, r, opts)}
}

// Run shows the menu until the user quits.
func Run(ctx context.Context, r *Runner, opts Options, progOpts ...tea.ProgramOption) error {
	_, err := tea.NewProgram(NewModel(ctx, r, opts), progOpts...).Run()
	return err
}

func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DoneMsg:
		m.busy = false
		m.status, m.err = string(msg), nil
		return m, nil

	case ErrMsg:
		m.busy = false
		m.status, m.err = "", msg.Err
		return m, nil

	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if m.busy {
			return m, nil
		}
		if m.pending != nil {
			item := m.pending
			m.pending = nil
			if key == "y" || key == "Y" {
				return m.start(item)
			}
			m.status, m.err = "cancelled", nil
			return m, nil
		}
		return m.navigate(key)
	}
	return m, nil
}

func (m Model) navigate(key string) (tea.Model, tea.Cmd) {
	switch key {
	case "q":
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.menu.Items)-1 {
			m.cursor++
		}
	case "esc", "backspace":
		if m.menu.Parent != nil {
			m.menu, m.cursor = m.menu.Parent, 0
		}
	case "enter":
		item := &m.menu.Items[m.cursor]
		switch {
		case item.Submenu != nil:
			m.menu, m.cursor = item.Submenu, 0
		case item.Action != nil && item.Confirm != "":
			m.pending = item
		case item.Action != nil:
			return m.start(item)
		}
	}
	return m, nil
}

func (m Model) start(item *MenuItem) (tea.Model, tea.Cmd) {
	m.busy = true
	m.status, m.err = item.Label+"...", nil
	return m, item.Action()
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(m.menu.Title + "\n\n")
	for i, item := range m.menu.Items {
		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}
		b.WriteString(cursor + item.Label + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.pending != nil:
		b.WriteString(m.pending.Confirm + " [y/N]\n")
	case m.err != nil:
		msg := core.MapError(m.err)
		fmt.Fprintf(&b, "Error: %s (%s)\n%s\n", msg.Message, msg.Code, msg.Action)
	case m.status != "":
		b.WriteString(m.status + "\n")
	}

	b.WriteString("\nenter select - esc back - q quit\n")
	return b.String()
}
