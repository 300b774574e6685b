package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Prot0type/portfolio-website/cognito"
	"github.com/Prot0type/portfolio-website/config"
	"github.com/Prot0type/portfolio-website/repositories/postgres"
	"github.com/spf13/cobra"
)

func newInitSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init-schema",
		Short: "Create the postgres project table if it does not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != config.BackendPostgres {
				return fmt.Errorf("init-schema requires DATA_BACKEND=postgres, got %q", cfg.Storage.Backend)
			}

			factory, err := postgres.NewRepositoryFactory(cfg.Storage, logger)
			if err != nil {
				return err
			}
			defer factory.Close()

			if err := factory.InitSchema(ctx); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema ready")
			return nil
		},
	}
}

func newVerifyTokenCmd() *cobra.Command {
	var issuer, clientID string

	cmd := &cobra.Command{
		Use:   "verify-token <token>",
		Short: "Verify a bearer token against the configured user pool and print its claims",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, logger, err := loadRuntime(ctx)
			if err != nil {
				return err
			}
			if issuer == "" {
				issuer = cfg.Auth.Issuer()
			}
			if clientID == "" {
				clientID = cfg.Auth.ClientID
			}

			keys := cognito.NewKeySetCache(cognito.KeySetCacheConfig{
				HTTPTimeout: cfg.Auth.JWKSTimeout,
			}, logger)
			claims, err := cognito.NewVerifier(keys, logger).Verify(ctx, args[0], issuer, clientID)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "rejected: %s\n", failureClass(err))
				return err
			}

			out, err := json.MarshalIndent(claims, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}

	cmd.Flags().StringVar(&issuer, "issuer", "", "expected issuer (defaults to the configured user pool)")
	cmd.Flags().StringVar(&clientID, "client-id", "", "expected app client id (defaults to COGNITO_APP_CLIENT_ID)")
	return cmd
}

// failureClass names the verification step that rejected a token
func failureClass(err error) string {
	classes := []struct {
		target error
		name   string
	}{
		{cognito.ErrKeyFetch, "key_fetch"},
		{cognito.ErrMalformedToken, "malformed"},
		{cognito.ErrUnknownKey, "unknown_key"},
		{cognito.ErrSignatureInvalid, "signature"},
		{cognito.ErrIssuerMismatch, "issuer"},
		{cognito.ErrTokenUseInvalid, "token_use"},
		{cognito.ErrTokenExpired, "expired"},
		{cognito.ErrAudienceMismatch, "audience"},
	}
	for _, c := range classes {
		if errors.Is(err, c.target) {
			return c.name
		}
	}
	return "unknown"
}
