package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aussiebroadwan/nativeauth/pkg/nativeauth"
	"github.com/spf13/cobra"
)

var (
	ErrBrowserRequired = errors.New("this account has to continue in a browser")
	ErrNotSignedIn     = errors.New("not signed in")
)

// cli holds the state shared by every command in one run.
type cli struct {
	cfg    Config
	app    *Application
	prompt *Prompter
	out    io.Writer
	logOut io.Writer
}

// Run executes the command line in args. Logs go to stderr, prompts and
// results to stdout.
func Run(ctx context.Context, cfg Config, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	c := &cli{
		cfg:    cfg,
		prompt: NewPrompter(stdin, stdout),
		out:    stdout,
		logOut: stderr,
	}
	defer func() {
		if c.app != nil {
			c.app.Close()
		}
	}()

	root := c.rootCommand()
	root.SetArgs(args)
	root.SetIn(stdin)
	root.SetOut(stdout)
	root.SetErr(stderr)
	return root.ExecuteContext(ctx)
}

func (c *cli) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "nativeauth",
		Short:         "Sign up, sign in and reset passwords without a browser",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			app, err := New(cmd.Context(), c.cfg, c.logOut)
			if err != nil {
				return err
			}
			c.app = app
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&c.cfg.ClientID, "client-id", c.cfg.ClientID, "application (client) id (env NATIVEAUTH_CLIENT_ID)")
	flags.StringVar(&c.cfg.Authority, "authority", c.cfg.Authority, "tenant authority URL (env NATIVEAUTH_AUTHORITY)")
	flags.StringVar(&c.cfg.CacheDriver, "cache-driver", c.cfg.CacheDriver, "token cache: memory|sqlite|redis (env NATIVEAUTH_CACHE_DRIVER)")
	flags.StringVar(&c.cfg.CachePath, "cache-path", c.cfg.CachePath, "sqlite cache file (env NATIVEAUTH_CACHE_PATH)")
	flags.StringVar(&c.cfg.MetricsAddr, "metrics-addr", c.cfg.MetricsAddr, "serve Prometheus metrics on this address (env NATIVEAUTH_METRICS_ADDR)")

	root.AddCommand(
		c.signUpCommand(),
		c.signInCommand(),
		c.resetPasswordCommand(),
		c.tokenCommand(),
		c.accountCommand(),
		c.signOutCommand(),
	)
	return root
}

// ============================================================================
// Flows
// ============================================================================

func (c *cli) signInCommand() *cobra.Command {
	var (
		username string
		withCode bool
		scopes   []string
	)

	cmd := &cobra.Command{
		Use:   "signin",
		Short: "Sign in with a password or a one-time code",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			username, err := c.askIfEmpty(username, "Username")
			if err != nil {
				return err
			}

			var password string
			if !withCode {
				if password, err = c.prompt.Secret("Password"); err != nil {
					return err
				}
			}

			res, err := c.app.Client().SignIn(ctx, nativeauth.SignInParameters{
				Username: username,
				Password: password,
				Scopes:   scopes,
			})
			return c.driveSignIn(ctx, res, err)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username, usually an email address")
	cmd.Flags().BoolVar(&withCode, "code", false, "sign in with a one-time code instead of a password")
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "extra scopes to request")
	return cmd
}

func (c *cli) driveSignIn(ctx context.Context, res nativeauth.SignInResult, err error) error {
	for err == nil {
		switch r := res.(type) {
		case *nativeauth.SignInCodeRequired:
			code, perr := c.prompt.Text(codePrompt(r.CodeLength, r.SentTo))
			if perr != nil {
				return perr
			}
			res, err = r.State.SubmitCode(ctx, code)
		case *nativeauth.SignInPasswordRequired:
			password, perr := c.prompt.Secret("Password")
			if perr != nil {
				return perr
			}
			res, err = r.State.SubmitPassword(ctx, password)
		case *nativeauth.SignInCompleted:
			fmt.Fprintf(c.out, "Signed in as %s\n", r.Account.Username)
			return nil
		case *nativeauth.BrowserRequired:
			return browserRequired(r.CorrelationID)
		default:
			return fmt.Errorf("unexpected sign in result %T", res)
		}
	}
	return err
}

func (c *cli) signUpCommand() *cobra.Command {
	var (
		username   string
		attributes map[string]string
	)

	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Create an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			username, err := c.askIfEmpty(username, "Username")
			if err != nil {
				return err
			}
			password, err := c.prompt.Secret("Password (leave empty to verify your email first)")
			if err != nil {
				return err
			}

			res, err := c.app.Client().SignUp(ctx, nativeauth.SignUpParameters{
				Username:   username,
				Password:   password,
				Attributes: toAttributes(attributes),
			})
			return c.driveSignUp(ctx, res, err)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username, usually an email address")
	cmd.Flags().StringToStringVar(&attributes, "attr", nil, "user attribute as name=value, repeatable")
	return cmd
}

func (c *cli) driveSignUp(ctx context.Context, res nativeauth.SignUpResult, err error) error {
	for err == nil {
		switch r := res.(type) {
		case *nativeauth.SignUpCodeRequired:
			code, perr := c.prompt.Text(codePrompt(r.CodeLength, r.SentTo))
			if perr != nil {
				return perr
			}
			res, err = r.State.SubmitCode(ctx, code)
		case *nativeauth.SignUpPasswordRequired:
			password, perr := c.prompt.Secret("Choose a password")
			if perr != nil {
				return perr
			}
			res, err = r.State.SubmitPassword(ctx, password)
		case *nativeauth.SignUpAttributesRequired:
			attrs := make(map[string]any, len(r.Attributes))
			for _, name := range r.Attributes {
				value, perr := c.prompt.Text(name)
				if perr != nil {
					return perr
				}
				attrs[name] = value
			}
			res, err = r.State.SubmitAttributes(ctx, attrs)
		case *nativeauth.SignUpCompleted:
			fmt.Fprintln(c.out, "Account created")
			signedIn, serr := r.State.SignIn(ctx, nil)
			return c.driveSignIn(ctx, signedIn, serr)
		case *nativeauth.BrowserRequired:
			return browserRequired(r.CorrelationID)
		default:
			return fmt.Errorf("unexpected sign up result %T", res)
		}
	}
	return err
}

func (c *cli) resetPasswordCommand() *cobra.Command {
	var username string

	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Reset a forgotten password",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			username, err := c.askIfEmpty(username, "Username")
			if err != nil {
				return err
			}

			res, err := c.app.Client().ResetPassword(ctx, nativeauth.ResetPasswordParameters{Username: username})
			return c.driveResetPassword(ctx, res, err)
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "username, usually an email address")
	return cmd
}

func (c *cli) driveResetPassword(ctx context.Context, res nativeauth.ResetPasswordResult, err error) error {
	for err == nil {
		switch r := res.(type) {
		case *nativeauth.ResetPasswordCodeRequired:
			code, perr := c.prompt.Text(codePrompt(r.CodeLength, r.SentTo))
			if perr != nil {
				return perr
			}
			res, err = r.State.SubmitCode(ctx, code)
		case *nativeauth.ResetPasswordRequired:
			password, perr := c.prompt.Secret("New password")
			if perr != nil {
				return perr
			}
			res, err = r.State.SubmitPassword(ctx, password)
		case *nativeauth.ResetPasswordCompleted:
			fmt.Fprintln(c.out, "Password reset")
			signedIn, serr := r.State.SignIn(ctx, nil)
			return c.driveSignIn(ctx, signedIn, serr)
		case *nativeauth.BrowserRequired:
			return browserRequired(r.CorrelationID)
		default:
			return fmt.Errorf("unexpected reset password result %T", res)
		}
	}
	return err
}

// ============================================================================
// Cached account
// ============================================================================

func (c *cli) tokenCommand() *cobra.Command {
	var (
		scopes []string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print an access token for the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := c.currentAccount(cmd.Context())
			if err != nil {
				return err
			}
			tok, err := account.AccessToken(cmd.Context(), scopes, force)
			if err != nil {
				return err
			}
			fmt.Fprintln(c.out, tok.AccessToken)
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "scopes the token must cover")
	cmd.Flags().BoolVar(&force, "force", false, "refresh even when a cached token is still valid")
	return cmd
}

func (c *cli) accountCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show the signed-in account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := c.currentAccount(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.out, "username:        %s\n", account.Username)
			fmt.Fprintf(c.out, "name:            %s\n", account.Name)
			fmt.Fprintf(c.out, "home account id: %s\n", account.HomeAccountID)
			return nil
		},
	}
}

func (c *cli) signOutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "signout",
		Short: "Forget the signed-in account and its tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			account, err := c.currentAccount(cmd.Context())
			if err != nil {
				return err
			}
			if err := account.SignOut(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(c.out, "Signed out %s\n", account.Username)
			return nil
		},
	}
}

func (c *cli) currentAccount(ctx context.Context) (*nativeauth.UserAccount, error) {
	account, err := c.app.Client().CurrentAccount(ctx)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotSignedIn
	}
	return account, nil
}

// ============================================================================
// Helpers
// ============================================================================

func (c *cli) askIfEmpty(value, prompt string) (string, error) {
	if value != "" {
		return value, nil
	}
	return c.prompt.Text(prompt)
}

func codePrompt(length int, sentTo string) string {
	if sentTo == "" {
		return fmt.Sprintf("Enter the %d digit code", length)
	}
	return fmt.Sprintf("Enter the %d digit code sent to %s", length, sentTo)
}

func toAttributes(in map[string]string) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func browserRequired(correlationID string) error {
	return fmt.Errorf("%w (correlation id %s)", ErrBrowserRequired, correlationID)
}
