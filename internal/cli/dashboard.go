package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/najahiiii/lunetctl/internal/clients"
	"github.com/najahiiii/lunetctl/internal/keys"
	"github.com/najahiiii/lunetctl/internal/ui"
	"github.com/najahiiii/lunetctl/internal/views"
)

const qrPNGSize = 512

func (a *app) dashboardCmd() *cobra.Command {
	var q clients.Query
	var watch bool
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash"},
		Short:   "Show summary, clients, online users and top users",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			d := views.NewDashboard(a.env(watch), a.api, q)
			if !watch {
				return d.Refresh(cmd.Context())
			}

			every := func() time.Duration { return seconds(a.prefs.Get().DashboardRefresh()) }
			return a.watch(cmd.Context(), func() { a.rerender(d.Relocalize, every()) },
				views.Loop{
					Name:  "dashboard",
					Every: every,
					Tick: func(ctx context.Context) error {
						if err := d.Load(ctx); err != nil {
							return err
						}
						return a.rerender(d.Render, every())
					},
				},
				views.Loop{
					Name:  "side status",
					Every: func() time.Duration { return seconds(a.cfg.Intervals.SideStatusSec) },
					Tick: func(ctx context.Context) error {
						if err := d.LoadSide(ctx); err != nil {
							return err
						}
						if d.State().Data == nil {
							return nil
						}
						return a.rerender(d.Render, every())
					},
				},
			)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&watch, "watch", "w", false, "refresh until interrupted")
	f.StringVarP(&q.Search, "search", "s", "", "match email, uuid, user id or key id")
	f.StringVar(&q.Filter, "filter", "", "all, online or offline (default clients_default_filter)")
	f.StringVar(&q.Sort, "sort", "", "online_desc, traffic_desc, traffic_asc, id_asc or id_desc (default clients_default_sort)")
	return cmd
}

// rerender draws a watched frame and the refresh hint under it.
func (a *app) rerender(render func() error, every time.Duration) error {
	if err := render(); err != nil {
		return err
	}
	a.hint(every)
	return nil
}

func (a *app) keysCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Client keys",
	}

	var userID, level, qrPNG string
	var suggest, showQR bool
	create := &cobra.Command{
		Use:   "create",
		Short: "Create a client key and print its URI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			ctx := cmd.Context()
			tr := a.tr()

			if userID == "" && suggest {
				d := views.NewDashboard(a.env(false), a.api, clients.Query{})
				if err := d.Load(ctx); err != nil {
					return err
				}
				userID = strconv.FormatInt(d.SuggestUserID(), 10)
				fmt.Fprintf(a.errOut, "user_id %s\n", userID)
			}

			req, err := keys.Validate(userID, level)
			if err != nil {
				var verr *keys.ValidationError
				if errors.As(err, &verr) {
					return a.report(ui.Status{Kind: ui.Err, Message: tr.T(verr.Key, verr.Fallback)}, err)
				}
				return err
			}

			creator := keys.NewCreator(a.api, ui.TerminalClipboard(),
				func() bool { return a.prefs.Get().AutoCopyURI }, a.tr, a.log)
			out, err := creator.Create(ctx, req)
			if err != nil {
				return a.report(ui.Status{Kind: out.Kind, Message: out.Message}, err)
			}

			if k := out.Key; k != nil {
				fmt.Fprintf(a.out, "id       %d\nuser_id  %d\nuuid     %s\nemail    %s\nstatus   %s\n", k.ID, k.UserID, k.UUID, k.Email, k.Status)
				if k.Note != "" {
					fmt.Fprintf(a.out, "note     %s\n", k.Note)
				}
				if k.URI != "" {
					fmt.Fprintf(a.out, "uri      %s\n", k.URI)
				}
			}
			if err := a.report(ui.Status{Kind: out.Kind, Message: out.Message}, nil); err != nil {
				return err
			}
			if out.CopyNote != "" {
				fmt.Fprintln(a.errOut, out.CopyNote)
			}
			if out.Key == nil || out.Key.URI == "" {
				return nil
			}
			if showQR {
				if err := keys.WriteQR(a.out, out.Key.URI); err != nil {
					return fmt.Errorf("render qr: %w", err)
				}
			}
			if qrPNG != "" {
				return writeQRFile(qrPNG, out.Key.URI)
			}
			return nil
		},
	}
	f := create.Flags()
	f.StringVar(&userID, "user-id", "", "user id (positive integer)")
	f.StringVar(&level, "level", "0", "xray user level 0..255")
	f.BoolVar(&suggest, "suggest", false, "use the next free user id when --user-id is empty")
	f.BoolVar(&showQR, "qr", false, "print the URI as a QR code")
	f.StringVar(&qrPNG, "qr-png", "", "also write the QR code to this PNG file")

	cmd.AddCommand(create)
	return cmd
}

func writeQRFile(path, uri string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if err := keys.WritePNG(f, uri, qrPNGSize); err != nil {
		f.Close()
		return fmt.Errorf("write qr png: %w", err)
	}
	return f.Close()
}

func (a *app) resyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resync",
		Short: "Push database users to xray",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			d := views.NewDashboard(a.env(false), a.api, clients.Query{})
			return a.report(d.Resync(cmd.Context()))
		},
	}
}

func (a *app) resetUsersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-users",
		Short: "Zero traffic counters of all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.session(); err != nil {
				return err
			}
			d := views.NewDashboard(a.env(false), a.api, clients.Query{})
			return a.report(d.ResetUsers(cmd.Context()))
		},
	}
}
