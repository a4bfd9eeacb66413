package push

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type PushTokenRepo interface {
	// Upsert stores token for userID. A token already held by another user
	// is moved to userID.
	Upsert(dbc dbctx.Context, row *types.PushToken) error
	// Delete removes token if it is held by userID; uuid.Nil matches any owner.
	Delete(dbc dbctx.Context, token string, userID uuid.UUID) (bool, error)
	ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PushToken, error)
}

type pushTokenRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPushTokenRepo(db *gorm.DB, baseLog *logger.Logger) PushTokenRepo {
	return &pushTokenRepo{db: db, log: baseLog.With("repo", "PushTokenRepo")}
}

func (r *pushTokenRepo) Upsert(dbc dbctx.Context, row *types.PushToken) error {
	if row == nil || strings.TrimSpace(row.Token) == "" {
		return fmt.Errorf("missing push token")
	}
	if row.UserID == uuid.Nil {
		return fmt.Errorf("missing user_id")
	}
	now := time.Now().UTC()
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	row.UpdatedAt = now
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"user_id", "platform", "updated_at"}),
		}).
		Create(row).Error
}

func (r *pushTokenRepo) Delete(dbc dbctx.Context, token string, userID uuid.UUID) (bool, error) {
	q := dbc.DB(r.db).Where("token = ?", token)
	if userID != uuid.Nil {
		q = q.Where("user_id = ?", userID)
	}
	res := q.Delete(&types.PushToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *pushTokenRepo) ListByUser(dbc dbctx.Context, userID uuid.UUID) ([]*types.PushToken, error) {
	var out []*types.PushToken
	if userID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("user_id = ?", userID).
		Order("token ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
