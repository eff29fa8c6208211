package cli

import (
	"context"
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/rajivgeraev/campus-market/internal/app"
	"github.com/rajivgeraev/campus-market/internal/config"
	"github.com/rajivgeraev/campus-market/internal/session"
	"github.com/rajivgeraev/campus-market/pkg/logger"
)

// Форматы вывода
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// ValidFormats - допустимые значения --format
var ValidFormats = []string{FormatText, FormatJSON, FormatYAML}

// Opener собирает клиент площадки
type Opener func(ctx context.Context, log *logger.Logger, opts app.Options) (*app.App, error)

// RootOptions содержит глобальные флаги
type RootOptions struct {
	Verbose bool
	Format  string

	open    Opener
	printer *Printer
}

// OpenFromEnv собирает клиент по переменным окружения, как шлюз
func OpenFromEnv(ctx context.Context, log *logger.Logger, opts app.Options) (*app.App, error) {
	return app.New(ctx, config.LoadConfig(), log, opts)
}

// NewRootCommand создает корневую команду campusctl
func NewRootCommand() *cobra.Command {
	return newRootCommand(OpenFromEnv)
}

func newRootCommand(open Opener) *cobra.Command {
	opts := &RootOptions{open: open}

	cmd := &cobra.Command{
		Use:   "campusctl",
		Short: "Campus market client",
		Long: `Command line client for the campus second-hand market.

Shares the session store with campus-gateway: a login here is picked up
by a running gateway and the other way round.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return WrapExitError(ExitCommandError, "invalid flag",
					fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			opts.printer = &Printer{
				Format:    opts.Format,
				Writer:    cmd.OutOrStdout(),
				ErrWriter: cmd.ErrOrStderr(),
				Verbose:   opts.Verbose,
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", FormatText, "output format (text|json|yaml)")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewWhoamiCommand(opts))
	cmd.AddCommand(NewSyncCommand(opts))
	cmd.AddCommand(NewTradesCommand(opts))
	cmd.AddCommand(NewInboxCommand(opts))
	cmd.AddCommand(NewGoodsCommand(opts))

	return cmd
}

// Printer возвращает настроенный вывод; до PersistentPreRunE пишет текстом в stdout
func (o *RootOptions) Printer(cmd *cobra.Command) *Printer {
	if o.printer == nil {
		return &Printer{Format: FormatText, Writer: cmd.OutOrStdout(), ErrWriter: cmd.ErrOrStderr()}
	}
	return o.printer
}

// openApp собирает клиент; в режиме --verbose логи идут в stderr
func (o *RootOptions) openApp(ctx context.Context, appOpts app.Options) (*app.App, error) {
	log := logger.NewNop()
	if o.Verbose {
		if dev, err := logger.New(logger.Options{Development: true, Output: "stderr", Service: "campusctl"}); err == nil {
			log = dev
		}
	}

	a, err := o.open(ctx, log, appOpts)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open session store", err)
	}
	return a, nil
}

// openSession собирает клиент и восстанавливает сессию из общего хранилища.
// Профиль проверяется запросом к бэкенду; отозванный токен завершает сессию.
func (o *RootOptions) openSession(cmd *cobra.Command) (*app.App, error) {
	ctx := cmd.Context()
	a, err := o.openApp(ctx, app.Options{})
	if err != nil {
		return nil, err
	}

	decision, err := a.Session.Reconcile(ctx)
	if err != nil {
		a.Close()
		return nil, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	a.Session.Wait()
	o.Printer(cmd).Logf("session: %s", decision)
	return a, nil
}

// requireIdentity превращает отсутствие сессии в понятную ошибку
func requireIdentity(a *app.App) error {
	if _, err := a.Session.Identity(); err != nil {
		return WrapExitError(ExitFailure, "not logged in", fmt.Errorf("%w: run campusctl login", session.ErrNotAuthenticated))
	}
	return nil
}
