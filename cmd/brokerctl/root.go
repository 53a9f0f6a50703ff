package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/estate-link/estate_link/internal/apiclient"
	"github.com/estate-link/estate_link/internal/config"
	"github.com/estate-link/estate_link/internal/logging"
	"github.com/estate-link/estate_link/internal/notification"
	"github.com/estate-link/estate_link/internal/session"
	"github.com/estate-link/estate_link/internal/store"
)

// errFailed is returned when an operation already reported its failure.
var errFailed = errors.New("operation failed")

// app holds what every session command needs. The hooks are nil in
// production and set by tests.
type app struct {
	httpClient *http.Client
	openStores func(ctx context.Context, cfg config.Client) (*store.Backends, error)

	cfg       config.Client
	logger    *slog.Logger
	backends  *store.Backends
	manager   *session.Manager
	presenter *notification.Presenter
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "brokerctl",
		Short:         "Sign in to the brokerage API and manage your broker profile",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		newStatusCmd(a),
		newLoginCmd(a),
		newOtpCmd(a),
		newRegisterCmd(a),
		newProfileCmd(a),
		newLogoutCmd(a),
		newPasswordCmd(a),
	)
	return root
}

// session wraps a command that talks to the API. It opens the stores,
// restores any saved session, and closes everything afterwards.
func (a *app) session(run func(cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		if err := a.open(cmd); err != nil {
			return err
		}
		defer a.close()
		return run(cmd, args)
	}
}

func (a *app) open(cmd *cobra.Command) error {
	ctx := cmd.Context()

	cfg, err := config.LoadClient()
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)

	openStores := a.openStores
	if openStores == nil {
		openStores = store.Open
	}
	backends, err := openStores(ctx, cfg)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.TokenStore, err)
	}

	client, err := apiclient.New(apiclient.Options{
		BaseURL:    cfg.APIURL,
		Timeout:    cfg.RequestTimeout,
		HTTPClient: a.httpClient,
		Logger:     a.logger,
	})
	if err != nil {
		backends.Close()
		return err
	}

	a.backends = backends
	a.manager = session.New(session.Options{
		API:     client,
		Tokens:  backends.Tokens,
		Pending: backends.Pending,
		Logger:  a.logger,
	})
	notices := notification.Fanout{
		notification.NewWriterNotifier(cmd.OutOrStdout()),
		notification.NewLoggerNotifier(a.logger),
	}
	a.presenter = notification.NewPresenter(notices, cfg.Profile)

	a.manager.Restore(ctx)
	return nil
}

func (a *app) close() {
	if a.backends != nil {
		a.backends.Close()
		a.backends = nil
	}
}

// report prints the notice for res and turns a failure into errFailed.
func (a *app) report(cmd *cobra.Command, res session.Result) error {
	if err := a.presenter.Present(cmd.Context(), res); err != nil {
		a.logger.Warn("print notice failed", slog.Any("error", err))
	}
	if !res.Success {
		for field, msg := range res.Fields {
			if msg != res.Message {
				fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", field, msg)
			}
		}
		return errFailed
	}
	return nil
}

// requireSession fails fast when no saved session could be restored.
func (a *app) requireSession(cmd *cobra.Command) error {
	if a.manager.Snapshot().Authenticated() {
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), "error: not signed in, run brokerctl login first")
	return errFailed
}
