package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/darmiel/idgate/internal/api"
	"github.com/darmiel/idgate/internal/audit"
	"github.com/darmiel/idgate/internal/config"
	"github.com/darmiel/idgate/internal/core"
	"github.com/darmiel/idgate/internal/delegate"
	"github.com/darmiel/idgate/internal/engine"
	"github.com/darmiel/idgate/internal/service"
	"github.com/darmiel/idgate/internal/store"
	"github.com/darmiel/idgate/internal/token"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the idgate server",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := f.LoadServerConfig()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		handler, closeFn, err := buildServer(ctx, cfg)
		if err != nil {
			return err
		}
		defer closeFn()

		server := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().
				Str("addr", cfg.Server.Addr).
				Str("environment", cfg.Environment).
				Str("login_mode", cfg.Login.Mode).
				Msg("Starting server...")
			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
			close(errCh)
		}()

		select {
		case err := <-errCh:
			if err != nil {
				return fmt.Errorf("server crashed: %w", err)
			}
		case <-ctx.Done():
		}
		log.Info().Msg("Shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}

		log.Info().Msg("Server exited")
		return nil
	},
}

// buildServer wires the registries, stores and services described by cfg.
func buildServer(ctx context.Context, cfg *config.Config) (http.Handler, func(), error) {
	tokOpts := cfg.TokenOptions()
	issuer, err := token.NewIssuer(tokOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating token issuer: %w", err)
	}
	validator, err := token.NewValidator(tokOpts)
	if err != nil {
		return nil, nil, fmt.Errorf("creating token validator: %w", err)
	}

	log.Info().Msg("Initializing policies...")
	var extra []core.Policy
	if cfg.PoliciesFile != "" {
		extra, err = config.LoadPolicies(cfg.PoliciesFile)
		if err != nil {
			return nil, nil, err
		}
	}
	policies, err := engine.NewDefaultRegistry(extra...)
	if err != nil {
		return nil, nil, fmt.Errorf("building policy registry: %w", err)
	}
	log.Info().Strs("policies", policies.Names()).Msg("Policies registered")

	credStore, err := store.NewInMemoryCredentialStore()
	if err != nil {
		return nil, nil, fmt.Errorf("creating credential store: %w", err)
	}
	for _, u := range cfg.Users {
		acc, err := credStore.Register(ctx, u.Registration())
		if err != nil {
			return nil, nil, fmt.Errorf("seeding user '%s': %w", u.Email, err)
		}
		log.Debug().Str("email", acc.Email).Strs("roles", acc.Roles).Msg("seeded user")
	}

	auditor, err := audit.New(cfg.Audit.Type, cfg.Audit.Path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating auditor: %w", err)
	}
	closeFn := func() {
		if err := auditor.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close auditor")
		}
	}

	retries, err := cfg.RetryRegistry()
	if err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("building retry registry: %w", err)
	}

	var idp service.Delegate
	if cfg.Login.Mode == config.LoginModeDelegated {
		policy, ok := retries.Get(cfg.DelegateRetryPolicy())
		if !ok {
			closeFn()
			return nil, nil, fmt.Errorf("retry policy '%s' is not defined", cfg.DelegateRetryPolicy())
		}
		d, err := delegate.New(cfg.DelegateSettings(), policy)
		if err != nil {
			closeFn()
			return nil, nil, fmt.Errorf("creating identity delegate: %w", err)
		}
		idp = d
	}

	svc := service.NewAuthService(service.Options{
		Store:     credStore,
		Issuer:    issuer,
		Validator: validator,
		Policies:  policies,
		Delegate:  idp,
		Auditor:   auditor,
		TTL:       cfg.JWT.TTL,
	})

	handler, err := api.NewServer(api.ServerOptions{
		AuthService:    svc,
		Validator:      validator,
		Policies:       policies,
		Auditor:        auditor,
		LoginMode:      cfg.Login.Mode,
		ExposeDetail:   !cfg.IsProduction(),
		AllowedOrigins: cfg.CORS.AllowedOrigins,
	}).Routes()
	if err != nil {
		closeFn()
		return nil, nil, err
	}
	return handler, closeFn, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "address to listen on")
	bindFlag("server.addr", serveCmd.Flags(), "addr")

	serveCmd.Flags().String("login-mode", config.LoginModeLocal, "login strategy of /auth/login (local, delegated)")
	bindFlag("login.mode", serveCmd.Flags(), "login-mode")
}
