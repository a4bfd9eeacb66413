package chat

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type ChatThreadRepo interface {
	Create(dbc dbctx.Context, rows []*types.ChatThread) ([]*types.ChatThread, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatThread, error)
	GetByListingAndInquirer(dbc dbctx.Context, listingID, inquirerID uuid.UUID) (*types.ChatThread, error)
	ListSummariesForUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ThreadSummary, error)
	TouchLastMessage(dbc dbctx.Context, id uuid.UUID, text string, at time.Time) error
	NextMessageSeq(dbc dbctx.Context, id uuid.UUID) (int64, error)
}

type chatThreadRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatThreadRepo(db *gorm.DB, log *logger.Logger) ChatThreadRepo {
	return &chatThreadRepo{db: db, log: log.With("repo", "ChatThreadRepo")}
}

func (r *chatThreadRepo) Create(dbc dbctx.Context, rows []*types.ChatThread) ([]*types.ChatThread, error) {
	if len(rows) == 0 {
		return []*types.ChatThread{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *chatThreadRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.ChatThread, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing thread id")
	}
	var out types.ChatThread
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *chatThreadRepo) GetByListingAndInquirer(dbc dbctx.Context, listingID, inquirerID uuid.UUID) (*types.ChatThread, error) {
	var out types.ChatThread
	if err := dbc.DB(r.db).
		Where("listing_id = ? AND inquirer_id = ?", listingID, inquirerID).
		Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}

// ListSummariesForUser returns the viewer's visible threads joined with
// listing titles and participant names, newest activity first. A limit of
// zero or less returns every visible thread.
func (r *chatThreadRepo) ListSummariesForUser(dbc dbctx.Context, userID uuid.UUID, limit int) ([]*types.ThreadSummary, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("missing user_id")
	}
	var out []*types.ThreadSummary
	q := dbc.DB(r.db).
		Table("chat_thread AS t").
		Select(`t.id AS id,
			t.listing_id AS listing_id,
			COALESCE(l.title, '') AS listing_title,
			t.owner_id AS owner_id,
			COALESCE(o.display_name, '') AS owner_name,
			t.inquirer_id AS inquirer_id,
			COALESCE(i.display_name, '') AS inquirer_name,
			t.last_message_text AS last_message_text,
			t.last_message_at AS last_message_at,
			m.unread_count AS unread_count`).
		Joins("JOIN chat_thread_member AS m ON m.thread_id = t.id AND m.user_id = ? AND m.deleted_at IS NULL", userID).
		Joins("LEFT JOIN listing AS l ON l.id = t.listing_id").
		Joins("LEFT JOIN app_user AS o ON o.id = t.owner_id").
		Joins("LEFT JOIN app_user AS i ON i.id = t.inquirer_id").
		Order("t.last_message_at DESC").
		Order("t.id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// TouchLastMessage moves the thread's last-message fields forward. An older
// timestamp never overwrites a newer one.
func (r *chatThreadRepo) TouchLastMessage(dbc dbctx.Context, id uuid.UUID, text string, at time.Time) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing thread id")
	}
	return dbc.DB(r.db).
		Model(&types.ChatThread{}).
		Where("id = ? AND last_message_at <= ?", id, at.UTC()).
		Updates(map[string]interface{}{
			"last_message_text": text,
			"last_message_at":   at.UTC(),
			"updated_at":        time.Now().UTC(),
		}).Error
}

// NextMessageSeq increments the thread's message counter and returns the new
// value. Call it inside the append transaction; the row update serializes
// concurrent appends to one thread.
func (r *chatThreadRepo) NextMessageSeq(dbc dbctx.Context, id uuid.UUID) (int64, error) {
	if id == uuid.Nil {
		return 0, fmt.Errorf("missing thread id")
	}
	tx := dbc.DB(r.db)
	res := tx.Model(&types.ChatThread{}).
		Where("id = ?", id).
		UpdateColumn("message_seq", gorm.Expr("message_seq + 1"))
	if res.Error != nil {
		return 0, res.Error
	}
	if res.RowsAffected == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	var seq int64
	if err := tx.Model(&types.ChatThread{}).Where("id = ?", id).Select("message_seq").Scan(&seq).Error; err != nil {
		return 0, err
	}
	return seq, nil
}
