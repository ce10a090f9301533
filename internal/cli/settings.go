package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/najahiiii/lunetctl/internal/api"
	"github.com/najahiiii/lunetctl/internal/appearance"
	"github.com/najahiiii/lunetctl/internal/metrics"
	"github.com/najahiiii/lunetctl/internal/prefs"
	"github.com/najahiiii/lunetctl/internal/stats"
	"github.com/najahiiii/lunetctl/internal/ui"
	"github.com/najahiiii/lunetctl/internal/views"
)

func (a *app) panel() *views.Panel {
	return views.NewPanel(a.env(false), a.api, a.cfg.Secure())
}

func (a *app) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Local panel preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.panel().RenderPrefs()
		},
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print preferences, plus service status when logged in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			p := a.panel()
			if a.api.HasSession() {
				if err := p.LoadStatus(cmd.Context()); errors.Is(err, api.ErrUnauthorized) {
					return err
				} else if err != nil {
					a.log.Debug("panel status", "err", err)
				}
			}
			return p.Render()
		},
	}

	set := &cobra.Command{
		Use:   "set key=value...",
		Short: "Change preferences",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.report(a.panel().Set(args))
		},
	}

	reset := &cobra.Command{
		Use:   "reset",
		Short: "Restore default preferences",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if err := a.prefs.Reset(); err != nil {
				return err
			}
			return a.report(ui.Status{Kind: ui.OK, Message: a.tr().T("panel.saved_ok", "Panel settings saved")}, nil)
		},
	}

	edit := &cobra.Command{
		Use:   "edit",
		Short: "Edit all preferences as YAML in $EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			before, err := prefsForm(a.prefs.Get())
			if err != nil {
				return err
			}
			after, err := a.editText(cmd.Context(), "lunet-settings-*.yaml", before)
			if err != nil {
				return err
			}
			if strings.TrimSpace(after) == strings.TrimSpace(before) {
				a.printStatus(ui.Status{Kind: ui.Info, Message: a.tr().T("cli.config_unchanged", "Config unchanged, nothing saved")})
				return nil
			}
			input, err := parsePrefsForm(after)
			if err != nil {
				return err
			}
			return a.report(a.panel().SaveForm(input))
		},
	}

	var watch bool
	status := &cobra.Command{
		Use:   "status",
		Short: "Service status and load gauges",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			p := views.NewPanel(a.env(watch), a.api, a.cfg.Secure())
			if !watch {
				if err := p.LoadStatus(cmd.Context()); err != nil {
					return err
				}
				return p.RenderStatus()
			}
			every := func() time.Duration { return seconds(a.prefs.Get().DashboardRefresh()) }
			return a.watch(cmd.Context(), func() { a.rerender(p.RenderStatus, every()) },
				views.Loop{
					Name:  "panel status",
					Every: every,
					Tick: func(ctx context.Context) error {
						if err := p.LoadStatus(ctx); err != nil {
							return err
						}
						return a.rerender(p.RenderStatus, every())
					},
				},
			)
		},
	}
	status.Flags().BoolVarP(&watch, "watch", "w", false, "refresh until interrupted")

	cmd.AddCommand(show, set, reset, edit, status)
	return cmd
}

// prefsForm renders preferences as YAML in schema order.
func prefsForm(pr prefs.Prefs) (string, error) {
	values := views.FormValues(pr)
	doc := &yaml.Node{Kind: yaml.MappingNode}
	for _, f := range prefs.Schema {
		doc.Content = append(doc.Content,
			&yaml.Node{Kind: yaml.ScalarNode, Value: f.Key},
			&yaml.Node{Kind: yaml.ScalarNode, Value: values[f.Key]},
		)
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", fmt.Errorf("encode settings: %w", err)
	}
	return string(out), nil
}

func parsePrefsForm(text string) (map[string]string, error) {
	var raw map[string]any
	if err := yaml.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("parse settings: %w", err)
	}
	input := make(map[string]string, len(raw))
	for k, v := range raw {
		if v == nil {
			input[k] = ""
			continue
		}
		input[k] = fmt.Sprint(v)
	}
	return input, nil
}

func (a *app) langCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "lang [en|ru]",
		Short:     "Set or toggle the interface language",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"en", "ru"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			var err error
			if len(args) == 0 {
				_, err = a.look.ToggleLang()
			} else {
				_, err = a.look.SetLang(args[0])
			}
			if err != nil {
				return err
			}
			tr := a.tr()
			return a.report(ui.Status{Kind: ui.OK, Message: tr.F("cli.lang_set", "Language: {lang}", "lang", tr.Lang())}, nil)
		},
	}
}

func (a *app) themeCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "theme [dark|light]",
		Short:     "Set or toggle the colour theme",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"dark", "light"},
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			var th appearance.Theme
			var err error
			if len(args) == 0 {
				th, err = a.look.ToggleTheme()
			} else {
				th, err = a.look.SetTheme(args[0])
			}
			if err != nil {
				return err
			}
			tr := a.tr()
			label := tr.T("common.theme_dark", "Dark theme")
			if th == appearance.Light {
				label = tr.T("common.theme_light", "Light theme")
			}
			return a.report(ui.Status{Kind: ui.OK, Message: tr.F("cli.theme_set", "Theme: {theme}", "theme", label)}, nil)
		},
	}
}

func (a *app) probeCmd() *cobra.Command {
	var addr, tag string
	var watch bool
	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Read host load and xray stats directly over gRPC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			ctx := cmd.Context()
			if (addr == "" || tag == "") && a.api.HasSession() {
				s, err := a.api.XraySettings(ctx)
				switch {
				case errors.Is(err, api.ErrUnauthorized) && addr == "":
					return err
				case err != nil:
					a.log.Debug("probe settings", "err", err)
				default:
					if addr == "" {
						addr = s.XrayAddr
					}
					if tag == "" {
						tag = s.InboundTag
					}
					if tag == "" {
						tag = s.ConfigSummary.FirstInboundTag
					}
				}
			}
			if addr == "" {
				return errors.New("xray api address unknown: pass --addr or log in")
			}

			timeout := seconds(a.cfg.Control.TimeoutSec)
			p := views.NewProber(a.env(watch), metrics.New(a.log), stats.New(addr, timeout, a.log), addr, tag)
			if !watch {
				return p.Tick(ctx)
			}
			every := func() time.Duration { return seconds(a.cfg.Intervals.SideStatusSec) }
			return a.watch(ctx, nil, views.Loop{
				Name:  "probe",
				Every: every,
				Tick: func(ctx context.Context) error {
					return a.rerender(func() error { return p.Tick(ctx) }, every())
				},
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&addr, "addr", "", "xray API address host:port (default from panel settings)")
	f.StringVar(&tag, "tag", "", "inbound tag (default from panel settings)")
	f.BoolVarP(&watch, "watch", "w", false, "refresh until interrupted")
	return cmd
}
