package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/llehouerou/lastcord/internal/errmsg"
	"github.com/llehouerou/lastcord/internal/gateway"
	"github.com/llehouerou/lastcord/internal/lastfm"
	"github.com/llehouerou/lastcord/internal/ui/login"
)

var errCanceled = errors.New("canceled")

func newAuthCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Link and inspect the Last.fm and Discord accounts",
	}

	cmd.AddCommand(
		newAuthLastfmCmd(app),
		newAuthDiscordCmd(app),
		newAuthStatusCmd(app),
		newAuthLogoutCmd(app),
	)

	return cmd
}

func (a *app) httpClient() *http.Client {
	return &http.Client{Timeout: a.cfg.HTTPTimeout()}
}

// prompt asks for the given fields in the terminal.
func prompt(cmd *cobra.Command, title string, fields ...login.Field) ([]string, error) {
	p := tea.NewProgram(login.New(title, fields...),
		tea.WithContext(cmd.Context()),
		tea.WithInput(cmd.InOrStdin()),
		tea.WithOutput(cmd.ErrOrStderr()),
	)
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	m, ok := final.(login.Model)
	if !ok || m.Canceled() || m.Values() == nil {
		return nil, errCanceled
	}
	return m.Values(), nil
}

func newAuthLastfmCmd(app *app) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "lastfm",
		Short: "Exchange a Last.fm username and password for a session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !app.cfg.HasLastfmConfig() {
				return errors.New("set lastfm.api_key and lastfm.api_secret in the config first")
			}
			if username == "" || password == "" {
				values, err := prompt(cmd, "Link Last.fm account",
					login.Field{Label: "Username", Placeholder: username},
					login.Field{Label: "Password", Secret: true},
				)
				if err != nil {
					return failed(errmsg.OpLastfmAuth, "", err)
				}
				username, password = values[0], values[1]
			}

			lc := app.cfg.GetLastfmConfig()
			client := lastfm.New(lc.APIKey, lc.APISecret,
				lastfm.WithEndpoint(lc.Endpoint),
				lastfm.WithHTTPClient(app.httpClient()),
			)
			sk, err := client.GetMobileSession(cmd.Context(), username, password)
			if err != nil {
				return failed(errmsg.OpLastfmAuth, username, err)
			}
			if err := app.state.SaveLastfmSession(cmd.Context(), username, sk); err != nil {
				return failed(errmsg.OpLastfmAuth, username, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "linked Last.fm account %s\n", username)
			return err
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Last.fm username")
	cmd.Flags().StringVar(&password, "password", "", "Last.fm password (prompted when empty)")

	return cmd
}

func newAuthDiscordCmd(app *app) *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "discord",
		Short: "Check and store a Discord token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if token == "" {
				values, err := prompt(cmd, "Link Discord account",
					login.Field{Label: "Token", Secret: true},
				)
				if err != nil {
					return failed(errmsg.OpDiscordAuth, "", err)
				}
				token = values[0]
			}

			user, err := app.validateDiscord(cmd.Context(), token)
			if err != nil {
				return failed(errmsg.OpDiscordAuth, "", err)
			}
			if err := app.state.SaveDiscordToken(cmd.Context(), user.Username, token); err != nil {
				return failed(errmsg.OpDiscordAuth, user.Username, err)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "linked Discord account %s\n", user.Username)
			return err
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Discord token (prompted when empty)")

	return cmd
}

func (a *app) validateDiscord(ctx context.Context, token string) (gateway.User, error) {
	dc := a.cfg.GetDiscordConfig()
	return gateway.ValidateToken(ctx, a.httpClient(), dc.APIURL, token)
}

func newAuthStatusCmd(app *app) *cobra.Command {
	var check bool

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the linked accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			out := cmd.OutOrStdout()

			sess, err := app.state.GetLastfmSession(ctx)
			if err != nil {
				return err
			}
			switch {
			case !app.cfg.HasLastfmConfig():
				_, _ = fmt.Fprintln(out, "last.fm:\tnot configured")
			case sess == nil:
				_, _ = fmt.Fprintln(out, "last.fm:\tnot linked")
			default:
				_, _ = fmt.Fprintf(out, "last.fm:\t%s (linked %s)\n", sess.Username, humanize.Time(sess.LinkedAt))
				if check {
					client, _, err := app.sessionClient(ctx, app.httpClient())
					if err == nil {
						_, err = client.ValidateSession(ctx)
					}
					_, _ = fmt.Fprintf(out, "\t%s\n", checkResult(errmsg.OpLastfmValidate, err))
				}
			}

			if app.cfg.Discord.Token != "" {
				_, _ = fmt.Fprintln(out, "discord:\ttoken from config")
			} else {
				tok, err := app.state.GetDiscordToken(ctx)
				if err != nil {
					return err
				}
				if tok == nil {
					_, _ = fmt.Fprintln(out, "discord:\tnot linked")
					return nil
				}
				_, _ = fmt.Fprintf(out, "discord:\t%s (linked %s)\n", tok.Username, humanize.Time(tok.LinkedAt))
			}
			if check {
				token, err := app.discordToken(ctx)
				if err != nil {
					return err
				}
				_, err = app.validateDiscord(ctx, token)
				_, _ = fmt.Fprintf(out, "\t%s\n", checkResult(errmsg.OpDiscordValidate, err))
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&check, "check", false, "Also validate the credentials online")

	return cmd
}

func checkResult(op errmsg.Op, err error) string {
	if err == nil {
		return "valid"
	}
	return errmsg.Format(op, err)
}

func newAuthLogoutCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:       "logout <lastfm|discord>",
		Short:     "Forget a stored credential",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"lastfm", "discord"},
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			switch args[0] {
			case "lastfm":
				err = app.state.DeleteLastfmSession(cmd.Context())
			case "discord":
				err = app.state.DeleteDiscordToken(cmd.Context())
			}
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "forgot %s credential\n", args[0])
			return err
		},
	}
}
