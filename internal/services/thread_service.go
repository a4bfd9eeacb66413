package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/db"
	"github.com/yungbote/roomchat-backend/internal/data/repos"
	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/ctxutil"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/pkg/httpx"
	"github.com/yungbote/roomchat-backend/internal/platform/apierr"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

var (
	ErrThreadNotFound  = errors.New("thread not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrEmptyMessage    = errors.New("message body is empty")
	ErrOwnListing      = errors.New("cannot start a thread on your own listing")
)

const (
	maxTxAttempts   = 3
	maxMessageRunes = 4000
)

// ThreadService is the Thread Store facade. Every mutation commits first and
// then hands the affected scope to the ActivityPublisher.
type ThreadService interface {
	ListThreads(ctx context.Context, userID uuid.UUID) ([]*types.ThreadSummary, error)
	StartThread(ctx context.Context, inquirerID, listingID uuid.UUID, body string) (*types.ChatThread, *types.ChatMessage, error)
	AppendMessage(ctx context.Context, senderID, threadID uuid.UUID, body string, metadata map[string]any) (*types.ChatMessage, error)
	ListMessages(ctx context.Context, userID, threadID uuid.UUID, limit int, beforeSeq int64) ([]*types.ChatMessage, error)
	MarkRead(ctx context.Context, userID, threadID uuid.UUID) error
	DeleteThread(ctx context.Context, userID, threadID uuid.UUID) error
	IsParticipant(ctx context.Context, userID, threadID uuid.UUID) (bool, error)
}

type threadService struct {
	db          *gorm.DB
	log         *logger.Logger
	listingRepo repos.ListingRepo
	threadRepo  repos.ChatThreadRepo
	memberRepo  repos.ChatThreadMemberRepo
	messageRepo repos.ChatMessageRepo
	publisher   ActivityPublisher
	now         func() time.Time
}

func NewThreadService(
	db *gorm.DB,
	log *logger.Logger,
	listingRepo repos.ListingRepo,
	threadRepo repos.ChatThreadRepo,
	memberRepo repos.ChatThreadMemberRepo,
	messageRepo repos.ChatMessageRepo,
	publisher ActivityPublisher,
) ThreadService {
	return &threadService{
		db:          db,
		log:         log.With("service", "ThreadService"),
		listingRepo: listingRepo,
		threadRepo:  threadRepo,
		memberRepo:  memberRepo,
		messageRepo: messageRepo,
		publisher:   publisher,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *threadService) ListThreads(ctx context.Context, userID uuid.UUID) ([]*types.ThreadSummary, error) {
	if userID == uuid.Nil {
		return nil, apierr.New(http.StatusUnauthorized, "unauthorized", fmt.Errorf("missing user"))
	}
	rows, err := s.threadRepo.ListSummariesForUser(dbctx.Context{Ctx: ctx}, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	types.SortSummaries(rows)
	return rows, nil
}

func (s *threadService) StartThread(ctx context.Context, inquirerID, listingID uuid.UUID, body string) (*types.ChatThread, *types.ChatMessage, error) {
	body, err := normalizeBody(body)
	if err != nil {
		return nil, nil, err
	}
	var (
		thread *types.ChatThread
		msg    *types.ChatMessage
	)
	err = s.mutate(ctx, func(dbc dbctx.Context) error {
		listing, err := s.listingRepo.GetByID(dbc, listingID)
		if err != nil {
			if db.IsNotFound(err) {
				return apierr.NotFound("listing_not_found", ErrListingNotFound)
			}
			return err
		}
		if listing.OwnerID == inquirerID {
			return apierr.BadRequest("own_listing", ErrOwnListing)
		}

		thread, err = s.threadRepo.GetByListingAndInquirer(dbc, listingID, inquirerID)
		switch {
		case err == nil:
			if err := s.memberRepo.Restore(dbc, thread.ID, inquirerID); err != nil {
				return err
			}
		case db.IsNotFound(err):
			created, err := s.threadRepo.Create(dbc, []*types.ChatThread{{
				ListingID:     listing.ID,
				OwnerID:       listing.OwnerID,
				InquirerID:    inquirerID,
				LastMessageAt: s.now(),
			}})
			if err != nil {
				return err
			}
			thread = created[0]
			if err := s.memberRepo.EnsureMembers(dbc, thread.ID, thread.Participants()); err != nil {
				return err
			}
		default:
			return err
		}

		msg, err = s.appendInTx(dbc, thread, inquirerID, body, nil)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	return thread, msg, nil
}

func (s *threadService) AppendMessage(ctx context.Context, senderID, threadID uuid.UUID, body string, metadata map[string]any) (*types.ChatMessage, error) {
	body, err := normalizeBody(body)
	if err != nil {
		return nil, err
	}
	var msg *types.ChatMessage
	err = s.mutate(ctx, func(dbc dbctx.Context) error {
		thread, err := s.participantThread(dbc, senderID, threadID)
		if err != nil {
			return err
		}
		if err := s.memberRepo.Restore(dbc, thread.ID, senderID); err != nil {
			return err
		}
		msg, err = s.appendInTx(dbc, thread, senderID, body, metadata)
		return err
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// appendInTx writes the message, advances the thread's last-message fields,
// bumps the other participants' unread counts and records the activity.
func (s *threadService) appendInTx(dbc dbctx.Context, thread *types.ChatThread, senderID uuid.UUID, body string, metadata map[string]any) (*types.ChatMessage, error) {
	at := s.now()
	seq, err := s.threadRepo.NextMessageSeq(dbc, thread.ID)
	if err != nil {
		return nil, err
	}
	msg := &types.ChatMessage{
		ThreadID:  thread.ID,
		Seq:       seq,
		SenderID:  senderID,
		Body:      body,
		CreatedAt: at,
	}
	if len(metadata) > 0 {
		raw, err := json.Marshal(metadata)
		if err != nil {
			return nil, apierr.BadRequest("invalid_metadata", err)
		}
		msg.Metadata = datatypes.JSON(raw)
	}
	if _, err := s.messageRepo.Create(dbc, []*types.ChatMessage{msg}); err != nil {
		return nil, err
	}
	if err := s.threadRepo.TouchLastMessage(dbc, thread.ID, body, at); err != nil {
		return nil, err
	}
	if err := s.memberRepo.BumpUnread(dbc, thread.ID, senderID, at); err != nil {
		return nil, err
	}
	ctxutil.GetPendingActivity(dbc.Ctx).Append(ctxutil.ActivityScope{
		ThreadID:      thread.ID,
		Participants:  thread.Participants(),
		ThreadChannel: true,
	})
	return msg, nil
}

func (s *threadService) ListMessages(ctx context.Context, userID, threadID uuid.UUID, limit int, beforeSeq int64) ([]*types.ChatMessage, error) {
	dbc := dbctx.Context{Ctx: ctx}
	if _, err := s.participantThread(dbc, userID, threadID); err != nil {
		return nil, err
	}
	return s.messageRepo.ListByThread(dbc, threadID, repos.MessagePage{Limit: limit, BeforeSeq: beforeSeq})
}

func (s *threadService) MarkRead(ctx context.Context, userID, threadID uuid.UUID) error {
	return s.mutate(ctx, func(dbc dbctx.Context) error {
		thread, err := s.participantThread(dbc, userID, threadID)
		if err != nil {
			return err
		}
		ok, err := s.memberRepo.MarkRead(dbc, thread.ID, userID, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return apierr.NotFound("thread_not_found", ErrThreadNotFound)
		}
		ctxutil.GetPendingActivity(dbc.Ctx).Append(ctxutil.ActivityScope{
			ThreadID:     thread.ID,
			Participants: thread.Participants(),
		})
		return nil
	})
}

// DeleteThread hides the thread for userID only. Deleting a thread the user
// cannot see is not found.
func (s *threadService) DeleteThread(ctx context.Context, userID, threadID uuid.UUID) error {
	return s.mutate(ctx, func(dbc dbctx.Context) error {
		thread, err := s.participantThread(dbc, userID, threadID)
		if err != nil {
			return err
		}
		deleted, err := s.memberRepo.SoftDelete(dbc, thread.ID, userID, s.now())
		if err != nil {
			return err
		}
		if !deleted {
			return apierr.NotFound("thread_not_found", ErrThreadNotFound)
		}
		ctxutil.GetPendingActivity(dbc.Ctx).Append(ctxutil.ActivityScope{
			ThreadID:     thread.ID,
			Participants: thread.Participants(),
		})
		return nil
	})
}

func (s *threadService) IsParticipant(ctx context.Context, userID, threadID uuid.UUID) (bool, error) {
	_, err := s.participantThread(dbctx.Context{Ctx: ctx}, userID, threadID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrThreadNotFound) {
		return false, nil
	}
	return false, err
}

// participantThread loads the thread, hiding its existence from non-participants.
func (s *threadService) participantThread(dbc dbctx.Context, userID, threadID uuid.UUID) (*types.ChatThread, error) {
	if threadID == uuid.Nil {
		return nil, apierr.NotFound("thread_not_found", ErrThreadNotFound)
	}
	thread, err := s.threadRepo.GetByID(dbc, threadID)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, apierr.NotFound("thread_not_found", ErrThreadNotFound)
		}
		return nil, err
	}
	if !thread.HasParticipant(userID) {
		return nil, apierr.NotFound("thread_not_found", ErrThreadNotFound)
	}
	return thread, nil
}

// mutate runs fn in a transaction, retrying serialization failures, and
// publishes the collected activity only after the commit succeeded.
func (s *threadService) mutate(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	ctx, pa := ctxutil.WithPendingActivity(ctx)
	var err error
	for attempt := 1; attempt <= maxTxAttempts; attempt++ {
		err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return fn(dbctx.Context{Ctx: ctx, Tx: tx})
		})
		if err == nil {
			break
		}
		pa.Discard()
		if attempt == maxTxAttempts || !(db.IsRetryable(err) || db.IsDuplicate(err)) {
			return err
		}
		s.log.Warn("thread mutation conflict; retrying", "attempt", attempt, "error", err)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(httpx.Backoff(attempt-1, 20*time.Millisecond, 250*time.Millisecond)):
		}
	}
	s.publisher.Flush(ctx, pa)
	return nil
}

func normalizeBody(body string) (string, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return "", apierr.BadRequest("empty_message", ErrEmptyMessage)
	}
	if n := len([]rune(body)); n > maxMessageRunes {
		return "", apierr.BadRequest("message_too_long", fmt.Errorf("message has %d characters, limit %d", n, maxMessageRunes))
	}
	return body, nil
}
