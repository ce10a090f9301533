package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/editor"
	"github.com/najahiiii/lunetctl/internal/ui"
	"github.com/najahiiii/lunetctl/internal/views"
)

func (a *app) graphsCmd() *cobra.Command {
	var once bool
	var width, height int
	cmd := &cobra.Command{
		Use:   "graphs",
		Short: "Live server and xray charts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			g := views.NewGraphs(a.env(!once), a.api)
			g.Width, g.Height = width, height
			if once {
				// A failed poll already drew its status line.
				err := g.Poll(cmd.Context())
				if err != nil && !errors.Is(err, api.ErrUnauthorized) {
					return reportedError{err}
				}
				return err
			}
			return a.watch(cmd.Context(), func() { a.rerender(g.Render, g.Interval()) },
				views.Loop{
					Name:  "graphs",
					Every: g.Interval,
					Tick: func(ctx context.Context) error {
						err := g.Poll(ctx)
						a.hint(g.Interval())
						return err
					},
				},
			)
		},
	}
	f := cmd.Flags()
	f.BoolVar(&once, "once", false, "take one sample and exit")
	f.IntVar(&width, "width", views.DefaultChartWidth, "chart width in columns")
	f.IntVar(&height, "height", views.DefaultChartHeight, "chart height in rows")
	return cmd
}

func (a *app) xrayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "xray",
		Short: "Xray runtime settings and config",
	}
	cmd.AddCommand(a.xraySettingsCmd(), a.xrayRestartCmd(), a.xrayResyncCmd(), a.xrayConfigCmd())
	return cmd
}

func (a *app) xraySettingsCmd() *cobra.Command {
	var search, copyKey string
	var watch bool
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show runtime, dependencies, keys and API endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			x := views.NewXray(a.env(watch), a.api, ui.TerminalClipboard())
			x.SetSearch(search)

			if copyKey != "" {
				which := views.KeyMaterial(strings.ToLower(copyKey))
				switch which {
				case views.PublicKey, views.PrivateKey, views.ShortID:
				default:
					return fmt.Errorf("%q: %w", copyKey, views.ErrUnknownKeyMaterial)
				}
				if err := x.Load(cmd.Context()); err != nil {
					return err
				}
				return a.report(x.CopyKey(which))
			}

			if !watch {
				if err := x.Load(cmd.Context()); err != nil {
					return err
				}
				return x.Render()
			}
			every := func() time.Duration { return seconds(a.cfg.Intervals.SideStatusSec) }
			return a.watch(cmd.Context(), func() { a.rerender(x.Render, every()) },
				views.Loop{
					Name:  "xray settings",
					Every: every,
					Tick: func(ctx context.Context) error {
						if err := x.Load(ctx); err != nil {
							return err
						}
						return a.rerender(x.Render, every())
					},
				},
			)
		},
	}
	f := cmd.Flags()
	f.StringVarP(&search, "search", "s", "", "filter API endpoints")
	f.StringVar(&copyKey, "copy", "", "copy a key to the clipboard: public, private or short")
	f.BoolVarP(&watch, "watch", "w", false, "refresh until interrupted")
	return cmd
}

func (a *app) xrayRestartCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restart",
		Short: "Restart the xray service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			return a.report(views.NewXray(a.env(false), a.api, nil).Restart(cmd.Context()))
		},
	}
}

func (a *app) xrayResyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Push database keys into xray",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			return a.report(views.NewXray(a.env(false), a.api, nil).Resync(cmd.Context()))
		},
	}
}

func (a *app) xrayConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read, check and write the xray config JSON",
	}

	get := &cobra.Command{
		Use:   "get",
		Short: "Print the config",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			ed := editor.New(a.api, a.tr)
			st, err := ed.Load(cmd.Context())
			if err != nil || st.Kind == ui.Err {
				return a.report(st, err)
			}
			fmt.Fprintln(a.out, ed.Content())
			fmt.Fprintln(a.errOut, ed.Path())
			return nil
		},
	}

	format := &cobra.Command{
		Use:   "fmt [file|-]",
		Short: "Re-indent a config and print it",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.localEditor(args)
			if err != nil {
				return err
			}
			if st := ed.Format(); st.Kind != ui.OK {
				return a.report(st, nil)
			}
			fmt.Fprintln(a.out, ed.Content())
			return nil
		},
	}

	validate := &cobra.Command{
		Use:   "validate [file|-]",
		Short: "Check that a config parses as JSON",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ed, err := a.localEditor(args)
			if err != nil {
				return err
			}
			return a.report(ed.Validate(), nil)
		},
	}

	save := &cobra.Command{
		Use:   "save <file|->",
		Short: "Upload a config",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			text, err := a.readInput(args[0])
			if err != nil {
				return err
			}
			ed := editor.New(a.api, a.tr)
			ed.SetContent(text)
			return a.report(ed.Save(cmd.Context()))
		},
	}

	edit := &cobra.Command{
		Use:   "edit",
		Short: "Open the config in $EDITOR and save it when changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			ctx := cmd.Context()
			ed := editor.New(a.api, a.tr)
			st, err := ed.Load(ctx)
			if err != nil || st.Kind == ui.Err {
				return a.report(st, err)
			}
			before := ed.Content()
			after, err := a.editText(ctx, "xray-config-*.json", before)
			if err != nil {
				return err
			}
			if strings.TrimSpace(after) == strings.TrimSpace(before) {
				a.printStatus(ui.Status{Kind: ui.Info, Message: a.tr().T("cli.config_unchanged", "Config unchanged, nothing saved")})
				return nil
			}
			ed.SetContent(after)
			return a.report(ed.Save(ctx))
		},
	}

	cmd.AddCommand(get, format, validate, save, edit)
	return cmd
}

// localEditor holds text from a file or stdin for offline fmt and validate.
func (a *app) localEditor(args []string) (*editor.Editor, error) {
	src := "-"
	if len(args) == 1 {
		src = args[0]
	}
	text, err := a.readInput(src)
	if err != nil {
		return nil, err
	}
	ed := editor.New(nil, a.tr)
	ed.SetContent(text)
	return ed, nil
}

func (a *app) readInput(src string) (string, error) {
	var data []byte
	var err error
	if src == "-" {
		data, err = io.ReadAll(a.in)
	} else {
		data, err = os.ReadFile(src)
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", src, err)
	}
	return string(data), nil
}

// editText round-trips text through the user's editor in a private temp file.
func (a *app) editText(ctx context.Context, pattern, text string) (string, error) {
	dir, err := os.MkdirTemp("", "lunetctl-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, strings.Replace(pattern, "*", "edit", 1))
	if err := os.WriteFile(path, []byte(text), 0o600); err != nil {
		return "", err
	}

	argv := strings.Fields(editorCommand())
	c := exec.CommandContext(ctx, argv[0], append(argv[1:], path)...)
	c.Stdin, c.Stdout, c.Stderr = os.Stdin, os.Stdout, os.Stderr
	if f, ok := a.in.(*os.File); ok {
		c.Stdin = f
	}
	a.log.Debug("launching editor", "cmd", argv[0], "file", path)
	if err := c.Run(); err != nil {
		return "", fmt.Errorf("editor %s: %w", argv[0], err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(bytes.TrimRight(data, "\n")) + "\n", nil
}

func editorCommand() string {
	for _, env := range []string{"VISUAL", "EDITOR"} {
		if v := strings.TrimSpace(os.Getenv(env)); v != "" {
			return v
		}
	}
	return "vi"
}
