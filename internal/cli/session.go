package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/najahiiii/lunetctl/internal/setup"
	"github.com/najahiiii/lunetctl/internal/ui"
	"github.com/najahiiii/lunetctl/internal/views"
)

func (a *app) initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a sample config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, created, err := setup.Init(setup.InitOptions{ConfigPath: a.cfgPath, Force: force, Logger: a.log})
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintf(a.errOut, "%s already exists, use --force to overwrite\n", path)
				return nil
			}
			a.printStatus(ui.Status{Kind: ui.OK, Message: a.tr().F("cli.config_written", "Config written to {path}", "path", path)})
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func (a *app) configCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Edit the local config file",
	}

	var opts setup.UpdateControlOptions
	var insecure bool
	set := &cobra.Command{
		Use:   "set",
		Short: "Update control.* fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ConfigPath = a.cfgPath
			opts.Logger = a.log
			if cmd.Flags().Changed("tls-insecure") {
				opts.TLSInsecure = &insecure
			}
			if err := setup.UpdateControl(opts); err != nil {
				return err
			}
			a.printStatus(ui.Status{Kind: ui.OK, Message: a.tr().F("cli.config_written", "Config written to {path}", "path", a.cfgPath)})
			return nil
		},
	}
	f := set.Flags()
	f.StringVar(&opts.BaseURL, "base-url", "", "panel origin, e.g. https://panel.example.com")
	f.StringVar(&opts.BasePath, "base-path", "", "path prefix the panel is mounted under")
	f.StringVar(&opts.Nick, "nick", "", "login name")
	f.StringVar(&opts.Password, "password", "", "login password")
	f.StringVar(&opts.Proxy, "proxy", "", "socks5://host:port proxy for panel requests")
	f.BoolVar(&insecure, "tls-insecure", false, "skip TLS certificate verification")
	f.IntVar(&opts.TimeoutSec, "timeout", 0, "request timeout in seconds")

	cmd.AddCommand(set)
	return cmd
}

func (a *app) loginCmd() *cobra.Command {
	var nick, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			if nick == "" {
				nick = a.cfg.Control.Nick
			}
			if strings.TrimSpace(nick) == "" {
				return errors.New("nick required: pass --nick or set control.nick")
			}
			if password == "" {
				password = a.cfg.Control.Password
			}
			if password == "" {
				p, err := a.readPassword(a.tr().T("login.password", "Password") + ": ")
				if err != nil {
					return err
				}
				password = p
			}

			st, err := views.Login(cmd.Context(), a.env(false), a.api, nick, password)
			a.printStatus(st)
			if err != nil {
				return reportedError{err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&nick, "nick", "", "login name (default control.nick)")
	cmd.Flags().StringVar(&password, "password", "", "password (default control.password, else prompt)")
	return cmd
}

// readPassword prompts without echo on a terminal and reads one line otherwise.
func (a *app) readPassword(prompt string) (string, error) {
	if f, ok := a.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(a.errOut, prompt)
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(a.errOut)
		if err != nil {
			return "", fmt.Errorf("read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(a.in).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func (a *app) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and forget the cookie",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(); err != nil {
				return err
			}
			return a.report(views.Logout(cmd.Context(), a.env(false), a.api))
		},
	}
}

func (a *app) resetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resets",
		Short: "Traffic counter resets",
	}
	var scope string
	traffic := &cobra.Command{
		Use:   "traffic",
		Short: "Zero traffic counters for all, inbound or users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sc, err := views.ParseScope(scope)
			if err != nil {
				return err
			}
			if err := a.session(); err != nil {
				return err
			}
			return a.report(views.ResetTraffic(cmd.Context(), a.env(false), a.api, sc))
		},
	}
	traffic.Flags().StringVar(&scope, "scope", "all", "all, inbound or users")
	cmd.AddCommand(traffic)
	return cmd
}
