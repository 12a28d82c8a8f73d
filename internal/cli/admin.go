package cli

import (
	"fmt"

	"exam-quiz-service/internal/config"
	"exam-quiz-service/internal/domain"
	"exam-quiz-service/internal/infra/postgres"
	transport "exam-quiz-service/internal/transport/http"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewTokenCmd prints a bearer token for a user, signed with the configured secret.
func NewTokenCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "token <userId>",
		Short: "Issue a bearer token for local testing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Auth.JWTSecret == "" {
				return fmt.Errorf("auth.jwtSecret not configured")
			}
			token, err := transport.IssueToken(cfg.Auth.JWTSecret, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
}

// NewSetTierCmd stores a user's subscription tier in Postgres.
func NewSetTierCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "set-tier <userId> <tier>",
		Short: "Set a user's subscription tier",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			tier := domain.Tier(args[1])
			if !tier.Valid() {
				return fmt.Errorf("unknown tier %q", args[1])
			}
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			db := openBun(cfg.Postgres.URL)
			defer db.Close()
			if err := postgres.NewTierStore(db).SetTier(cmd.Context(), args[0], tier); err != nil {
				return err
			}
			log.Info().Str("userId", args[0]).Str("tier", string(tier)).Msg("tier updated")
			return nil
		},
	}
}
