package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/yungbote/roomchat-backend/internal/data/repos"
	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/observability"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/apierr"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type PushPermission string

const (
	PushPermissionGranted PushPermission = "granted"
	PushPermissionDenied  PushPermission = "denied"
)

type RegisterOutcome string

const (
	PushRegistered       RegisterOutcome = "registered"
	PushSkippedNoConsent RegisterOutcome = "skipped_permission_denied"
)

var ErrMissingPushToken = errors.New("missing push token")

// PushRegistrar persists device token associations for the push gateway.
type PushRegistrar interface {
	// Register upserts token for userID. A denied permission is reported as
	// PushSkippedNoConsent, not as an error.
	Register(ctx context.Context, userID uuid.UUID, token, platform string, permission PushPermission) (RegisterOutcome, error)
	Unregister(ctx context.Context, userID uuid.UUID, token string) error
	TokensFor(ctx context.Context, userID uuid.UUID) ([]string, error)
}

type pushRegistrar struct {
	log  *logger.Logger
	repo repos.PushTokenRepo
}

func NewPushRegistrar(log *logger.Logger, repo repos.PushTokenRepo) PushRegistrar {
	return &pushRegistrar{log: log.With("service", "PushRegistrar"), repo: repo}
}

func (p *pushRegistrar) Register(ctx context.Context, userID uuid.UUID, token, platform string, permission PushPermission) (RegisterOutcome, error) {
	if PushPermission(strings.ToLower(strings.TrimSpace(string(permission)))) != PushPermissionGranted {
		observability.Current().PushRegistration(string(PushSkippedNoConsent))
		return PushSkippedNoConsent, nil
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apierr.BadRequest("missing_token", ErrMissingPushToken)
	}
	row := &types.PushToken{
		Token:    token,
		UserID:   userID,
		Platform: strings.ToLower(strings.TrimSpace(platform)),
	}
	if err := p.repo.Upsert(dbctx.Context{Ctx: ctx}, row); err != nil {
		observability.Current().PushRegistration("error")
		p.log.Warn("push token registration failed", "user_id", userID, "error", err)
		return "", fmt.Errorf("register push token: %w", err)
	}
	observability.Current().PushRegistration(string(PushRegistered))
	return PushRegistered, nil
}

// Unregister drops token only if it belongs to userID. Unknown tokens are not an error.
func (p *pushRegistrar) Unregister(ctx context.Context, userID uuid.UUID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apierr.BadRequest("missing_token", ErrMissingPushToken)
	}
	if userID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	if _, err := p.repo.Delete(dbctx.Context{Ctx: ctx}, token, userID); err != nil {
		return fmt.Errorf("unregister push token: %w", err)
	}
	return nil
}

func (p *pushRegistrar) TokensFor(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := p.repo.ListByUser(dbctx.Context{Ctx: ctx}, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Token)
	}
	return out, nil
}
