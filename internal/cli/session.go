package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/campus-market/internal/app"
	"github.com/rajivgeraev/campus-market/internal/backend"
	"github.com/rajivgeraev/campus-market/internal/models"
	"github.com/rajivgeraev/campus-market/internal/session"
	"github.com/rajivgeraev/campus-market/internal/user"
)

// Переменная окружения с паролем, чтобы не передавать его флагом
const passwordEnv = "CAMPUS_PASSWORD"

// LoginOptions содержит флаги команды login
type LoginOptions struct {
	*RootOptions
	Username string
	Password string
}

// NewLoginCommand создает команду login
func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LoginOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store the session",
		Long: `Log in through the backend and store the session in the shared store.

The password is read from --password or from the CAMPUS_PASSWORD variable.

Examples:
  campusctl login -u alice
  CAMPUS_PASSWORD=secret campusctl login -u alice --format json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(opts, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Username, "username", "u", "", "user name (required)")
	_ = cmd.MarkFlagRequired("username")
	cmd.Flags().StringVarP(&opts.Password, "password", "p", "", "password (defaults to $"+passwordEnv+")")

	return cmd
}

func runLogin(opts *LoginOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	password := opts.Password
	if password == "" {
		password = os.Getenv(passwordEnv)
	}
	if strings.TrimSpace(opts.Username) == "" || password == "" {
		return WrapExitError(ExitCommandError, "missing credentials", errors.New("请输入用户名和密码"))
	}

	a, err := opts.openApp(ctx, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	profile, err := a.Backend.Login(ctx, models.LoginRequest{Username: strings.TrimSpace(opts.Username), Password: password})
	if err != nil {
		return WrapExitError(ExitFailure, "login failed", backend.Describe(err, "登录失败"))
	}
	if err := a.Session.Login(ctx, profile); err != nil {
		return WrapExitError(ExitCommandError, "failed to store session", err)
	}

	return printProfile(opts.Printer(cmd), profile, a.Config.CreditBanThreshold)
}

// NewLogoutCommand создает команду logout
func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openApp(cmd.Context(), app.Options{})
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.Session.Logout(cmd.Context()); err != nil {
				return WrapExitError(ExitCommandError, "failed to clear session", err)
			}
			return rootOpts.Printer(cmd).Print(map[string]bool{"loggedOut": true}, func(w io.Writer) {
				fmt.Fprintln(w, "logged out")
			})
		},
	}
}

// NewWhoamiCommand создает команду whoami
func NewWhoamiCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the current user",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := rootOpts.openSession(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := requireIdentity(a); err != nil {
				return err
			}
			return printProfile(rootOpts.Printer(cmd), a.Session.Current(), a.Config.CreditBanThreshold)
		},
	}
}

type profileOut struct {
	User        models.UserProfile `json:"user"`
	Credit      user.CreditStatus  `json:"credit"`
	CreditLabel string             `json:"creditLabel"`
	Banned      bool               `json:"banned"`
}

func printProfile(p *Printer, profile *models.UserProfile, threshold int) error {
	public := profile.WithoutToken()
	credit := user.Credit(public.CreditScore)
	out := profileOut{
		User:        public,
		Credit:      credit,
		CreditLabel: credit.Label(),
		Banned:      user.Banned(&public, threshold),
	}
	return p.Print(out, func(w io.Writer) {
		fmt.Fprintf(w, "%s (id %d)\n", public.Username, public.UserID)
		fmt.Fprintf(w, "credit: %d %s\n", public.CreditScore, out.CreditLabel)
		if out.Banned {
			fmt.Fprintln(w, "account is restricted")
		}
	})
}

// SyncOptions содержит флаги команды sync
type SyncOptions struct {
	*RootOptions
	Once bool
}

// NewSyncCommand создает команду sync
func NewSyncCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SyncOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Keep the session in sync with the shared store",
		Long: `Run the session synchronizer and print every reconcile decision.

Without --once the command runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Once, "once", false, "reconcile once and exit")

	return cmd
}

type decisionOut struct {
	Decision      string    `json:"decision"`
	At            time.Time `json:"at"`
	Authenticated bool      `json:"authenticated"`
	UserID        int64     `json:"userId,omitempty"`
}

func runSync(opts *SyncOptions, cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	p := opts.Printer(cmd)
	var a *app.App
	report := func(d session.Decision) {
		out := decisionOut{Decision: d.String(), At: time.Now()}
		if profile := a.Session.Current(); profile != nil {
			out.Authenticated = true
			out.UserID = profile.UserID
		}
		_ = p.Print(out, func(w io.Writer) {
			fmt.Fprintf(w, "%s  %-8s authenticated=%t\n", out.At.Format(time.TimeOnly), out.Decision, out.Authenticated)
		})
	}

	var err error
	a, err = opts.openApp(ctx, app.Options{OnDecision: func(d session.Decision) {
		if d != session.DecisionNone {
			report(d)
		}
	}})
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.Once {
		decision, err := a.Session.Reconcile(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "reconcile failed", err)
		}
		a.Session.Wait()
		report(decision)
		return nil
	}

	if err := a.Session.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "synchronizer stopped", err)
	}
	return nil
}
