package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/roomchat-backend/internal/platform/envutil"
	"github.com/yungbote/roomchat-backend/internal/services"
)

// NewTokenCommand mints development credentials signed with the server's key.
func NewTokenCommand() *cobra.Command {
	var (
		secret string
		issuer string
		user   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Sign a development bearer token for a user id",
		RunE: func(cmd *cobra.Command, args []string) error {
			if secret == "" {
				return errors.New("--secret or JWT_SECRET_KEY is required")
			}
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("--user: %w", err)
			}
			tok, err := services.IssueToken(secret, issuer, userID, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	cmd.Flags().StringVar(&secret, "secret", envutil.String("JWT_SECRET_KEY", ""), "HS256 signing key")
	cmd.Flags().StringVar(&issuer, "issuer", envutil.String("JWT_ISSUER", ""), "token issuer")
	cmd.Flags().StringVar(&user, "user", "", "user id (uuid)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}
