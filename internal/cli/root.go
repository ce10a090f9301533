package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/appearance"
	"github.com/najahiiii/lunetctl/internal/config"
	"github.com/najahiiii/lunetctl/internal/i18n"
	"github.com/najahiiii/lunetctl/internal/logger"
	"github.com/najahiiii/lunetctl/internal/prefs"
	"github.com/najahiiii/lunetctl/internal/state"
	"github.com/najahiiii/lunetctl/internal/ui"
	"github.com/najahiiii/lunetctl/internal/views"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailed  = 1
	ExitSession = 2
)

// reportedError is a failure whose message was already printed as a status.
// It does not unwrap, so a rejected login never reads as an expired session.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }

var errNoSession = fmt.Errorf("no stored session: %w", api.ErrUnauthorized)

// app is built lazily: init and config set must work before a valid config exists.
type app struct {
	cfgPath  string
	logLevel string

	in     io.Reader
	out    io.Writer
	errOut io.Writer
	plain  bool

	cfg   *config.Config
	log   *slog.Logger
	st    *state.Store
	look  *appearance.Service
	prefs *prefs.Store
	toast *ui.Notifier
	api   *api.Client
}

func newApp(in io.Reader, out, errOut io.Writer) *app {
	return &app{
		cfgPath: config.DefaultPath(),
		in:      in,
		out:     out,
		errOut:  errOut,
		plain:   !isTerminal(out),
		log:     logger.NewWithWriter("", errOut),
	}
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	return run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
}

func run(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	a := newApp(in, out, errOut)
	root := a.rootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)
	return a.exitCode(root.ExecuteContext(ctx))
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "lunetctl",
		Short:         "Terminal client for the Lunet Xray panel",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&a.cfgPath, "config", a.cfgPath, "path to config.yaml")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	root.AddCommand(
		a.initCmd(),
		a.configCmd(),
		a.loginCmd(),
		a.logoutCmd(),
		a.dashboardCmd(),
		a.keysCmd(),
		a.resyncCmd(),
		a.resetUsersCmd(),
		a.graphsCmd(),
		a.xrayCmd(),
		a.resetsCmd(),
		a.settingsCmd(),
		a.langCmd(),
		a.themeCmd(),
		a.probeCmd(),
	)
	return root
}

func (a *app) exitCode(err error) int {
	var reported reportedError
	switch {
	case err == nil:
		return ExitOK
	case errors.As(err, &reported):
		a.log.Debug("command failed", "err", reported.err)
		return ExitFailed
	case errors.Is(err, api.ErrUnauthorized):
		if a.api != nil {
			if cerr := a.api.ClearSession(); cerr != nil {
				a.log.Warn("clear session", "err", cerr)
			}
		}
		tr := a.tr()
		a.printStatus(ui.Status{Kind: ui.Err, Message: tr.T("common.session_expired", "Session expired. Please login again.")})
		fmt.Fprintln(a.errOut, tr.T("cli.run_login", "Run `lunetctl login` to start a new session."))
		return ExitSession
	default:
		fmt.Fprintf(a.errOut, "error: %v\n", err)
		return ExitFailed
	}
}

// load reads the config and opens local state. Safe to call more than once.
func (a *app) load() error {
	if a.cfg != nil {
		return nil
	}
	cfg, err := config.Load(a.cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	level := cfg.Logging.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	log := logger.NewWithWriter(level, a.errOut)

	st, err := state.Open(cfg.StoragePath())
	if err != nil {
		return fmt.Errorf("open state: %w", err)
	}
	client, err := api.NewClient(cfg, st, log)
	if err != nil {
		return fmt.Errorf("api client: %w", err)
	}

	a.cfg = cfg
	a.log = log
	a.st = st
	a.look = appearance.New(st)
	a.prefs = prefs.NewStore(st)
	a.api = client
	a.toast = ui.NewNotifier(a.errOut, func() bool { return a.prefs.Get().ShowToasts }, a.palette)
	log.Debug("config loaded", "path", a.cfgPath, "base_url", cfg.Control.BaseURL, "state", st.Path())
	return nil
}

// session loads and insists on a stored session cookie.
func (a *app) session() error {
	if err := a.load(); err != nil {
		return err
	}
	if !a.api.HasSession() {
		return errNoSession
	}
	return nil
}

func (a *app) tr() i18n.Translator {
	if a.look == nil {
		return i18n.New(i18n.EN)
	}
	return a.look.Translator()
}

func (a *app) palette() appearance.Palette {
	if a.look == nil || a.plain {
		return appearance.Palette{}
	}
	return a.look.Palette()
}

// env is what views render with. Watched views clear the screen per frame.
func (a *app) env(watch bool) views.Env {
	return views.Env{
		Out:   a.out,
		Look:  a.look,
		Prefs: a.prefs,
		Toast: a.toast,
		Log:   a.log,
		Clear: watch && !a.plain,
		Plain: a.plain,
	}
}

// printStatus writes OK lines to stdout and the rest to stderr.
func (a *app) printStatus(st ui.Status) {
	if st.Message == "" {
		return
	}
	p := a.palette()
	w, code := a.errOut, p.Err
	switch st.Kind {
	case ui.OK:
		w, code = a.out, p.OK
	case ui.Warn:
		code = p.Warn
	case ui.Info:
		w, code = a.out, p.Info
	}
	fmt.Fprintln(w, p.Paint(code, st.Message))
}

// report prints the status of an action and turns it into the command's error.
// A 401 is passed through untouched so exitCode can clear the session.
func (a *app) report(st ui.Status, err error) error {
	if err != nil && errors.Is(err, api.ErrUnauthorized) {
		return err
	}
	a.printStatus(st)
	switch {
	case err != nil && st.Message == "":
		return err
	case err != nil:
		return reportedError{err}
	case st.Kind == ui.Err:
		return reportedError{errors.New(st.Message)}
	}
	return nil
}

// watch runs loops until ctx ends, following language and theme changes made
// by other lunetctl processes.
func (a *app) watch(ctx context.Context, onChange func(), loops ...views.Loop) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unbind := a.look.BindStorageSync()
	defer unbind()
	if onChange != nil {
		off := a.look.OnChange(func(appearance.Event) { onChange() })
		defer off()
	}
	go a.st.Watch(ctx, seconds(a.cfg.Intervals.StorageSyncSec))

	return views.Watch(ctx, a.log, loops...)
}

// hint prints the refresh line under a watched frame.
func (a *app) hint(every time.Duration) {
	p := a.palette()
	msg := a.tr().F("cli.watch_hint", "Refreshing every {sec}s, Ctrl+C to exit", "sec", int(every/time.Second))
	fmt.Fprintln(a.out, p.Paint(p.Muted, msg))
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
