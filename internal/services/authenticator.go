package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/data/repos"
	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type AuthReason string

const (
	AuthMissingCredential AuthReason = "missing_credential"
	AuthInvalidCredential AuthReason = "invalid_credential"
	AuthUnknownUser       AuthReason = "unknown_user"
)

type AuthError struct {
	Reason AuthReason
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("authentication failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("authentication failed (%s)", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// AuthReasonOf returns the reason of an *AuthError in err's chain.
func AuthReasonOf(err error) (AuthReason, bool) {
	var ae *AuthError
	if errors.As(err, &ae) {
		return ae.Reason, true
	}
	return "", false
}

// ConnectionAuthenticator resolves the credential presented at connection
// setup. Nothing may be joined until it has returned a user id.
type ConnectionAuthenticator interface {
	Authenticate(ctx context.Context, rawCredential string) (uuid.UUID, error)
}

type connectionAuthenticator struct {
	log      *logger.Logger
	verifier CredentialVerifier
	userRepo repos.UserRepo
}

func NewConnectionAuthenticator(log *logger.Logger, verifier CredentialVerifier, userRepo repos.UserRepo) ConnectionAuthenticator {
	return &connectionAuthenticator{
		log:      log.With("service", "ConnectionAuthenticator"),
		verifier: verifier,
		userRepo: userRepo,
	}
}

func (a *connectionAuthenticator) Authenticate(ctx context.Context, rawCredential string) (uuid.UUID, error) {
	userID, err := a.authenticate(ctx, rawCredential)
	if err != nil {
		if reason, ok := AuthReasonOf(err); ok {
			observability.Current().ConnectionRejected(string(reason))
		}
		return uuid.Nil, err
	}
	return userID, nil
}

func (a *connectionAuthenticator) authenticate(ctx context.Context, rawCredential string) (uuid.UUID, error) {
	raw := bareCredential(rawCredential)
	if raw == "" {
		return uuid.Nil, &AuthError{Reason: AuthMissingCredential}
	}
	userID, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		a.log.Debug("credential rejected", "error", err)
		return uuid.Nil, &AuthError{Reason: AuthInvalidCredential, Err: err}
	}
	exists, err := a.userRepo.Exists(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("user lookup: %w", err)
	}
	if !exists {
		a.log.Info("credential for unknown user", "user_id", userID)
		return uuid.Nil, &AuthError{Reason: AuthUnknownUser}
	}
	return userID, nil
}

// bareCredential strips an optional "Bearer" scheme, in any case. A scheme
// with nothing after it is a missing credential.
func bareCredential(raw string) string {
	raw = strings.TrimSpace(raw)
	const scheme = "bearer"
	if len(raw) >= len(scheme) && strings.EqualFold(raw[:len(scheme)], scheme) {
		rest := raw[len(scheme):]
		if rest == "" || rest[0] == ' ' || rest[0] == '\t' {
			raw = strings.TrimSpace(rest)
		}
	}
	return raw
}
