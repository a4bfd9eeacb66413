package chat

import (
	"fmt"
	"slices"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

const (
	DefaultMessagePage = 50
	MaxMessagePage     = 200
)

// MessagePage selects a window of history. BeforeSeq is an exclusive cursor
// on ChatMessage.Seq; zero means the newest messages.
type MessagePage struct {
	Limit     int
	BeforeSeq int64
}

func (p MessagePage) limit() int {
	if p.Limit <= 0 || p.Limit > MaxMessagePage {
		return DefaultMessagePage
	}
	return p.Limit
}

type ChatMessageRepo interface {
	// Create inserts rows. A row with Seq zero is numbered after the
	// thread's current highest Seq.
	Create(dbc dbctx.Context, rows []*types.ChatMessage) ([]*types.ChatMessage, error)
	// ListByThread returns the page oldest first.
	ListByThread(dbc dbctx.Context, threadID uuid.UUID, page MessagePage) ([]*types.ChatMessage, error)
}

type chatMessageRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChatMessageRepo(db *gorm.DB, log *logger.Logger) ChatMessageRepo {
	return &chatMessageRepo{db: db, log: log.With("repo", "ChatMessageRepo")}
}

func (r *chatMessageRepo) Create(dbc dbctx.Context, rows []*types.ChatMessage) ([]*types.ChatMessage, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	for _, m := range rows {
		if m.ThreadID == uuid.Nil || m.SenderID == uuid.Nil {
			return nil, fmt.Errorf("message needs thread and sender")
		}
	}
	if err := r.assignSeq(dbc, rows); err != nil {
		return nil, err
	}
	if err := dbc.DB(r.db).CreateInBatches(rows, 100).Error; err != nil {
		return nil, fmt.Errorf("insert messages: %w", err)
	}
	return rows, nil
}

func (r *chatMessageRepo) ListByThread(dbc dbctx.Context, threadID uuid.UUID, page MessagePage) ([]*types.ChatMessage, error) {
	if threadID == uuid.Nil {
		return nil, fmt.Errorf("missing thread id")
	}
	q := dbc.DB(r.db).Where(&types.ChatMessage{ThreadID: threadID})
	if page.BeforeSeq > 0 {
		q = q.Where("seq < ?", page.BeforeSeq)
	}
	var rows []*types.ChatMessage
	err := q.Order("seq DESC").Limit(page.limit()).Find(&rows).Error
	if err != nil {
		return nil, err
	}
	slices.Reverse(rows)
	return rows, nil
}

func (r *chatMessageRepo) assignSeq(dbc dbctx.Context, rows []*types.ChatMessage) error {
	next := map[uuid.UUID]int64{}
	for _, m := range rows {
		if m.Seq > 0 {
			if m.Seq > next[m.ThreadID] {
				next[m.ThreadID] = m.Seq
			}
			continue
		}
		last, ok := next[m.ThreadID]
		if !ok {
			var top int64
			err := dbc.DB(r.db).
				Model(&types.ChatMessage{}).
				Where("thread_id = ?", m.ThreadID).
				Select("COALESCE(MAX(seq), 0)").
				Scan(&top).Error
			if err != nil {
				return fmt.Errorf("read message seq: %w", err)
			}
			last = top
		}
		m.Seq = last + 1
		next[m.ThreadID] = m.Seq
	}
	return nil
}
