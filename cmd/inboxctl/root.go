package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/yungbote/roomchat-backend/internal/inbox"
	"github.com/yungbote/roomchat-backend/internal/platform/envutil"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

// RootOptions holds flags shared by every command.
type RootOptions struct {
	Server  string
	Token   string
	LogMode string
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "inboxctl",
		Short:         "Inspect and drive a roomchat inbox from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Server, "server", envutil.String("ROOMCHAT_SERVER", "http://localhost:8080"), "server base URL")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", envutil.String("ROOMCHAT_TOKEN", ""), "bearer credential")
	cmd.PersistentFlags().StringVar(&opts.LogMode, "log-mode", envutil.String("LOG_MODE", "test"), "logger mode (production|development|test)")

	cmd.AddCommand(NewWatchCommand(opts))
	cmd.AddCommand(NewThreadsCommand(opts))
	cmd.AddCommand(NewPushCommand(opts))
	cmd.AddCommand(NewTokenCommand())

	return cmd
}

func (o *RootOptions) client() (*inbox.Client, error) {
	if strings.TrimSpace(o.Token) == "" {
		return nil, fmt.Errorf("--token or ROOMCHAT_TOKEN is required")
	}
	return inbox.NewClient(o.Server, o.Token, &http.Client{}), nil
}

func (o *RootOptions) logger() (*logger.Logger, error) {
	return logger.New(o.LogMode)
}

// viewer reads the user id from the token subject. The server verifies the
// token; the client only needs to know whose inbox it is rendering.
func (o *RootOptions) viewer() (uuid.UUID, error) {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(o.Token, &claims); err != nil {
		return uuid.Nil, fmt.Errorf("read token: %w", err)
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("token subject is not a user id: %w", err)
	}
	return id, nil
}
