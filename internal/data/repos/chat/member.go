package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type ChatThreadMemberRepo interface {
	EnsureMembers(dbc dbctx.Context, threadID uuid.UUID, userIDs []uuid.UUID) error
	Get(dbc dbctx.Context, threadID, userID uuid.UUID) (*types.ChatThreadMember, error)
	// BumpUnread increments unread counts for everyone but senderID and
	// resurfaces the thread for viewers who had deleted it.
	BumpUnread(dbc dbctx.Context, threadID, senderID uuid.UUID, at time.Time) error
	Restore(dbc dbctx.Context, threadID, userID uuid.UUID) error
	MarkRead(dbc dbctx.Context, threadID, userID uuid.UUID, at time.Time) (bool, error)
	SoftDelete(dbc dbctx.Context, threadID, userID uuid.UUID, at time.Time) (bool, error)
}

type chatThreadMemberRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatThreadMemberRepo(db *gorm.DB, log *logger.Logger) ChatThreadMemberRepo {
	return &chatThreadMemberRepo{db: db, log: log.With("repo", "ChatThreadMemberRepo")}
}

func (r *chatThreadMemberRepo) EnsureMembers(dbc dbctx.Context, threadID uuid.UUID, userIDs []uuid.UUID) error {
	if threadID == uuid.Nil {
		return fmt.Errorf("missing thread id")
	}
	if len(userIDs) == 0 {
		return nil
	}
	rows := make([]*types.ChatThreadMember, 0, len(userIDs))
	for _, uid := range userIDs {
		rows = append(rows, &types.ChatThreadMember{ThreadID: threadID, UserID: uid})
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&rows).Error
}

func (r *chatThreadMemberRepo) Get(dbc dbctx.Context, threadID, userID uuid.UUID) (*types.ChatThreadMember, error) {
	var out types.ChatThreadMember
	if err := dbc.DB(r.db).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatThreadMemberRepo) BumpUnread(dbc dbctx.Context, threadID, senderID uuid.UUID, at time.Time) error {
	return dbc.DB(r.db).
		Model(&types.ChatThreadMember{}).
		Where("thread_id = ? AND user_id <> ?", threadID, senderID).
		Updates(map[string]interface{}{
			"unread_count": gorm.Expr("unread_count + 1"),
			"deleted_at":   nil,
			"updated_at":   at.UTC(),
		}).Error
}

// Restore clears the viewer's soft delete so the thread is listed again.
func (r *chatThreadMemberRepo) Restore(dbc dbctx.Context, threadID, userID uuid.UUID) error {
	return dbc.DB(r.db).
		Model(&types.ChatThreadMember{}).
		Where("thread_id = ? AND user_id = ? AND deleted_at IS NOT NULL", threadID, userID).
		Update("deleted_at", nil).Error
}

// MarkRead reports false when the viewer is not a member of the thread.
func (r *chatThreadMemberRepo) MarkRead(dbc dbctx.Context, threadID, userID uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.ChatThreadMember{}).
		Where("thread_id = ? AND user_id = ?", threadID, userID).
		Updates(map[string]interface{}{
			"unread_count": 0,
			"last_read_at": at.UTC(),
			"updated_at":   at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// SoftDelete hides the thread for one viewer. It reports false when the
// viewer is not a member or had already deleted it.
func (r *chatThreadMemberRepo) SoftDelete(dbc dbctx.Context, threadID, userID uuid.UUID, at time.Time) (bool, error) {
	res := dbc.DB(r.db).
		Model(&types.ChatThreadMember{}).
		Where("thread_id = ? AND user_id = ? AND deleted_at IS NULL", threadID, userID).
		Updates(map[string]interface{}{
			"deleted_at":   at.UTC(),
			"unread_count": 0,
			"updated_at":   at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
