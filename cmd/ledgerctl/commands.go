package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/ledgersync/internal/app"
	"github.com/JonMunkholm/ledgersync/internal/application"
	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/config"
	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/logging"
)

// env is what a command works against.
type env struct {
	runner  *application.Runner
	session *backup.SessionStore
	close   func()
}

type openFunc func(ctx context.Context, envFile string) (*env, error)

// defaultOpen loads configuration and connects to the database.
func defaultOpen(ctx context.Context, envFile string) (*env, error) {
	if envFile != "" {
		if err := godotenv.Overload(envFile); err != nil && !os.IsNotExist(err) {
			return nil, withCode(exitUsage, fmt.Errorf("load %s: %w", envFile, err))
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, withCode(exitUsage, err)
	}
	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	a, err := app.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return &env{
		runner: application.NewRunner(application.RunnerConfig{
			Importer: a.Importer,
			Exporter: a.Exporter,
			Decoder:  a.Codec,
			Backup:   a.Backup,
			Limiter:  a.Limiter,
			Timeout:  cfg.Import.Timeout,
		}),
		session: a.Session,
		close:   a.Close,
	}, nil
}

type rootOptions struct {
	envFile string
	yes     bool
	json    bool
}

type cli struct {
	open    openFunc
	opts    rootOptions
	env     *env
	confirm confirmFunc
}

type confirmFunc func(cmd *cobra.Command, prompt string) (bool, error)

// withConfirm replaces the interactive confirmation prompt.
func withConfirm(fn confirmFunc) func(*cli) {
	return func(c *cli) { c.confirm = fn }
}

// newRootCmd returns the command tree and a function releasing whatever
// the executed command opened.
func newRootCmd(open openFunc, opts ...func(*cli)) (*cobra.Command, func()) {
	c := &cli{open: open, confirm: promptConfirm}
	for _, opt := range opts {
		opt(c)
	}

	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Import, export, restore and back up the ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			e, err := c.open(cmd.Context(), c.opts.envFile)
			if err != nil {
				return err
			}
			c.env = e
			return nil
		},
	}

	root.PersistentFlags().StringVar(&c.opts.envFile, "env-file", ".env", "Environment file loaded before configuration")
	root.PersistentFlags().BoolVarP(&c.opts.yes, "yes", "y", false, "Skip confirmation of destructive operations")
	root.PersistentFlags().BoolVar(&c.opts.json, "json", false, "Print results as JSON")

	root.AddCommand(
		c.newExportCmd(),
		c.newImportCmd(),
		c.newImportKindCmd(),
		c.newRestoreCmd(),
		c.newClearCmd(),
		c.newBackupCmd(),
		c.newMenuCmd(),
	)
	return root, func() {
		if c.env != nil && c.env.close != nil {
			c.env.close()
		}
	}
}

func (c *cli) newExportCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the full ledger to a workbook",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := c.env.runner.Export(cmd.Context(), out)
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), map[string]string{"path": path}, "exported to "+path)
		},
	}
	cmd.Flags().StringVar(&out, "out", ".", "Directory the workbook is written to")
	return cmd
}

func (c *cli) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import every recognized sheet of a workbook on top of existing data",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.env.runner.Import(cmd.Context(), args[0])
			return c.printResult(cmd, res, err)
		},
	}
}

func (c *cli) newImportKindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import-kind KIND FILE",
		Short: "Import one sheet (products, customers, invoices, bills, exchange_bills)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := core.ParseKind(args[0])
			if err != nil {
				return withCode(exitUsage, fmt.Errorf("%q: %w", args[0], err))
			}
			res, err := c.env.runner.ImportKind(cmd.Context(), kind, args[1])
			return c.printResult(cmd, res, err)
		},
	}
}

func (c *cli) newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore FILE",
		Short: "Delete all data, then import the workbook",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.confirmed(cmd, "Replace ALL data with "+args[0]+"?"); err != nil {
				return err
			}
			res, err := c.env.runner.Restore(cmd.Context(), args[0])
			return c.printResult(cmd, res, err)
		},
	}
}

func (c *cli) newClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete all products, customers, invoices and bills",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.confirmed(cmd, "Delete ALL products, customers, invoices and bills?"); err != nil {
				return err
			}
			res, err := c.env.runner.Clear(cmd.Context())
			return c.printResult(cmd, res, err)
		},
	}
}

func (c *cli) newBackupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Sync the ledger to remote storage or restore from it",
	}

	sync := &cobra.Command{
		Use:   "sync",
		Short: "Export and upload the ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := c.env.runner.BackupSync(cmd.Context())
			if err != nil {
				return err
			}
			return c.print(cmd.OutOrStdout(), res, fmt.Sprintf("backup uploaded: %s (%d bytes)", res.FileID, res.Bytes))
		},
	}

	restore := &cobra.Command{
		Use:   "restore",
		Short: "Download the remote backup and restore it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.confirmed(cmd, "Replace ALL data with the remote backup?"); err != nil {
				return err
			}
			res, err := c.env.runner.BackupRestore(cmd.Context())
			return c.printResult(cmd, res, err)
		},
	}

	var (
		token     string
		expiresIn time.Duration
		fileID    string
	)
	connect := &cobra.Command{
		Use:   "connect",
		Short: "Store an access token for remote storage",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var expiry time.Time
			if expiresIn > 0 {
				expiry = time.Now().Add(expiresIn)
			}
			if err := c.env.session.Connect(token, expiry, fileID); err != nil {
				return err
			}
			return c.printStatus(cmd)
		},
	}
	connect.Flags().StringVar(&token, "token", "", "OAuth access token (required)")
	connect.Flags().DurationVar(&expiresIn, "expires-in", time.Hour, "Token lifetime; 0 for no expiry")
	connect.Flags().StringVar(&fileID, "file-id", "", "Existing backup file to keep writing to")
	_ = connect.MarkFlagRequired("token")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether a credential is stored",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.printStatus(cmd)
		},
	}

	disconnect := &cobra.Command{
		Use:   "disconnect",
		Short: "Forget the credential and the backup file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.env.session.Disconnect(); err != nil {
				return err
			}
			return c.printStatus(cmd)
		},
	}

	cmd.AddCommand(sync, restore, connect, status, disconnect)
	return cmd
}

func (c *cli) newMenuCmd() *cobra.Command {
	var opts application.Options
	cmd := &cobra.Command{
		Use:   "menu",
		Short: "Interactive operations menu",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// The menu owns the terminal; keep logs out of it.
			slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
			return application.Run(cmd.Context(), c.env.runner, opts,
				tea.WithContext(cmd.Context()),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
		},
	}
	cmd.Flags().StringVar(&opts.Workbook, "file", "ledger.xlsx", "Workbook used by import and restore")
	cmd.Flags().StringVar(&opts.ExportDir, "out", ".", "Directory exports are written to")
	return cmd
}

// confirmed asks before a destructive operation unless --yes was given.
func (c *cli) confirmed(cmd *cobra.Command, prompt string) error {
	if c.opts.yes {
		return nil
	}
	ok, err := c.confirm(cmd, prompt)
	if err != nil {
		return err
	}
	if !ok {
		return withCode(exitDeclined, core.ErrConfirmationRequired)
	}
	return nil
}

func promptConfirm(cmd *cobra.Command, prompt string) (bool, error) {
	return application.Confirm(prompt,
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
}

func (c *cli) printResult(cmd *cobra.Command, res *core.ImportResult, err error) error {
	if err != nil {
		return err
	}
	if perr := c.print(cmd.OutOrStdout(), res, application.FormatResult(res)); perr != nil {
		return perr
	}
	if res.Errors > 0 {
		return withCode(exitPartial, fmt.Errorf("%d of %d records failed", res.Errors, res.Total))
	}
	return nil
}

func (c *cli) printStatus(cmd *cobra.Command) error {
	st := c.env.session.Status()
	text := "not connected"
	if st.Connected {
		text = "connected"
		if !st.Expiry.IsZero() {
			text += ", expires " + st.Expiry.Format(time.RFC3339)
		}
	}
	if st.FileID != "" {
		text += ", backup file " + st.FileID
	}
	return c.print(cmd.OutOrStdout(), st, text)
}

func (c *cli) print(w io.Writer, v any, text string) error {
	if c.opts.json {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	_, err := fmt.Fprintln(w, text)
	return err
}
