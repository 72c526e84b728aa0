package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"time-nest/backend/internal/config"
	"time-nest/backend/internal/logging"
	"time-nest/backend/internal/repositories"
	"time-nest/backend/internal/routes"
	"time-nest/backend/internal/services"
)

const shutdownTimeout = 10 * time.Second

// app はコマンド間で共有する依存を保持します。
type app struct {
	loadConfig func() (*config.Config, error)
	openStore  func(ctx context.Context, cfg config.DatabaseConfig) (*repositories.Store, error)

	cfg *config.Config
}

func defaultApp() *app {
	return &app{
		loadConfig: config.Load,
		openStore:  repositories.Open,
	}
}

// newRootCmd はルートコマンドを作成します。サブコマンド無しの場合は serve と同じです。
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "timenest",
		Short:         "Time Nest API server",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			a.cfg = cfg
			logging.Init(logging.Config{
				Level:  cfg.Logging.Level,
				Format: cfg.Logging.Format,
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.serve(cmd.Context())
		},
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the HTTP server",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.serve(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "migrate",
			Short: "Create database indexes or tables",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.migrate(cmd)
			},
		},
		newTokenCmd(a),
	)
	return root
}

func newTokenCmd(a *app) *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for an existing user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.token(cmd, email)
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "email address of the user")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

// withStore はストアを開いて fn を実行し、最後に閉じます。
func (a *app) withStore(ctx context.Context, fn func(*repositories.Store) error) error {
	openCtx, cancel := context.WithTimeout(ctx, a.cfg.Database.Timeout)
	store, err := a.openStore(openCtx, a.cfg.Database)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", a.cfg.Database.Driver, err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logging.Warn().Err(err).Msg("failed to close store")
		}
	}()
	return fn(store)
}

// serve はHTTPサーバーを起動し、SIGINT/SIGTERMで graceful shutdown します。
func (a *app) serve(parent context.Context) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return a.withStore(ctx, func(store *repositories.Store) error {
		if err := store.Migrate(ctx); err != nil {
			// スキーマ作成の失敗では起動を止めない
			logging.Warn().Err(err).Str("driver", store.Driver).Msg("failed to ensure schema")
		}

		router, err := routes.SetupRouter(a.cfg, store)
		if err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              a.cfg.Server.Addr(),
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logging.Info().Str("addr", srv.Addr).Str("driver", store.Driver).Msg("server listening")
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server failed: %w", err)
		case <-ctx.Done():
		}

		logging.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})
}

func (a *app) migrate(cmd *cobra.Command) error {
	return a.withStore(cmd.Context(), func(store *repositories.Store) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), a.cfg.Database.Timeout)
		defer cancel()
		if err := store.Migrate(ctx); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logging.Info().Str("driver", store.Driver).Msg("migration completed")
		fmt.Fprintf(cmd.OutOrStdout(), "migrated %s store\n", store.Driver)
		return nil
	})
}

func (a *app) token(cmd *cobra.Command, email string) error {
	return a.withStore(cmd.Context(), func(store *repositories.Store) error {
		user, err := services.NewUserService(store.Users).FindByEmail(cmd.Context(), email)
		if err != nil {
			return fmt.Errorf("failed to find user %s: %w", email, err)
		}
		token, err := services.NewJWTService(a.cfg.Auth.JWTSecret, a.cfg.Auth.TokenLifetime()).GenerateToken(user.ID)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	})
}
