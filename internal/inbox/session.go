package inbox

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/roomchat-backend/internal/pkg/httpx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
	"github.com/yungbote/roomchat-backend/internal/realtime"
)

var ErrNotConnected = errors.New("inbox stream not connected")

type SessionConfig struct {
	// RefreshInterval re-fetches on a timer, standing in for focus changes.
	// Zero uses the default; negative disables it.
	RefreshInterval time.Duration
	ReconnectBase   time.Duration
	ReconnectMax    time.Duration
	Log             *logger.Logger
}

type pushRequest struct {
	token    string
	platform string
}

// Session connects a Reconciler to a server: it keeps the event stream open,
// turns signals into re-fetches, and applies the viewer's edits optimistically.
type Session struct {
	client *Client
	rec    *Reconciler
	log    *logger.Logger
	cfg    SessionConfig

	mu           sync.Mutex
	connectionID uuid.UUID
	pushDenied   bool
	pendingPush  *pushRequest
	stop         context.CancelFunc
	stopped      chan struct{}
}

func NewSession(client *Client, rec *Reconciler, cfg SessionConfig) *Session {
	if cfg.RefreshInterval == 0 {
		cfg.RefreshInterval = time.Minute
	}
	if cfg.ReconnectBase <= 0 {
		cfg.ReconnectBase = 500 * time.Millisecond
	}
	if cfg.ReconnectMax <= 0 {
		cfg.ReconnectMax = 30 * time.Second
	}
	log := cfg.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Session{
		client: client,
		rec:    rec,
		log:    log.With("component", "InboxSession"),
		cfg:    cfg,
	}
}

func (s *Session) Reconciler() *Reconciler { return s.rec }

func (s *Session) ConnectionID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connectionID
}

// Run keeps the session live until ctx ends, SignOut is called, or the
// server rejects the credential. The reconciler is closed and the stream
// dropped on return. A session runs at most once.
func (s *Session) Run(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	if s.stopped != nil || s.rec.Ended() {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.stop = cancel
	s.stopped = make(chan struct{})
	stopped := s.stopped
	s.mu.Unlock()
	defer close(stopped)
	defer s.rec.Close()

	g, gctx := errgroup.WithContext(runCtx)
	g.Go(func() error { return s.streamLoop(gctx) })
	if s.cfg.RefreshInterval > 0 {
		g.Go(func() error { return s.refreshLoop(gctx) })
	}
	err := g.Wait()
	if runCtx.Err() != nil && errors.Is(err, runCtx.Err()) {
		return nil
	}
	return err
}

// halt cancels a running session and waits for Run to return or ctx to end.
func (s *Session) halt(ctx context.Context) error {
	s.mu.Lock()
	stop, stopped := s.stop, s.stopped
	s.mu.Unlock()
	if stop == nil {
		return nil
	}
	stop()
	select {
	case <-stopped:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Session) streamLoop(ctx context.Context) error {
	attempt := 0
	for {
		err := s.streamOnce(ctx, &attempt)
		s.setConnection(uuid.Nil)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if httpx.AuthRejected(err) {
			return fmt.Errorf("inbox stream rejected: %w", err)
		}
		delay := httpx.Backoff(attempt, s.cfg.ReconnectBase, s.cfg.ReconnectMax)
		attempt++
		s.log.Warn("inbox stream dropped, reconnecting", "error", err, "delay", delay.String())
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Session) streamOnce(ctx context.Context, attempt *int) error {
	body, err := s.client.Stream(ctx)
	if err != nil {
		return err
	}
	defer body.Close()

	return ReadEvents(ctx, body, func(ev Event) error {
		sig, ok, err := DecodeSignal(ev)
		if err != nil {
			s.log.Warn("skipping bad inbox frame", "event", ev.Name, "error", err)
			return nil
		}
		if !ok {
			return nil
		}
		switch sig.Kind {
		case realtime.SSEEventConnected:
			*attempt = 0
			s.setConnection(sig.ConnectionID)
			s.log.Debug("inbox stream connected", "connection_id", sig.ConnectionID.String())
			s.retryPush(ctx)
			s.rec.Notify()
		case realtime.SSEEventChatActivity:
			s.rec.Notify()
		}
		return nil
	})
}

func (s *Session) refreshLoop(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.rec.Notify()
		}
	}
}

func (s *Session) setConnection(id uuid.UUID) {
	s.mu.Lock()
	s.connectionID = id
	s.mu.Unlock()
}

// Focus is called when the inbox becomes visible again.
func (s *Session) Focus() { s.rec.Notify() }

// Delete hides the thread at once and asks the server to delete it for the
// viewer. A thread the server no longer shows counts as deleted.
func (s *Session) Delete(ctx context.Context, threadID uuid.UUID) error {
	s.rec.DeleteLocal(threadID)
	err := s.client.DeleteThread(ctx, threadID)
	if err == nil || httpx.Status(err) == http.StatusNotFound {
		return nil
	}
	s.rec.RevertDelete(threadID)
	return err
}

func (s *Session) MarkRead(ctx context.Context, threadID uuid.UUID) error {
	s.rec.MarkReadLocal(threadID)
	if err := s.client.MarkRead(ctx, threadID); err != nil {
		s.rec.RevertRead(threadID)
		return err
	}
	return nil
}

// OpenThread joins the thread channel on the current stream connection.
func (s *Session) OpenThread(ctx context.Context, threadID uuid.UUID) error {
	conn := s.ConnectionID()
	if conn == uuid.Nil {
		return ErrNotConnected
	}
	return s.client.JoinThread(ctx, conn, threadID)
}

func (s *Session) CloseThread(ctx context.Context, threadID uuid.UUID) error {
	conn := s.ConnectionID()
	if conn == uuid.Nil {
		return nil
	}
	return s.client.LeaveThread(ctx, conn, threadID)
}

// RegisterPush records the device token once the viewer granted notification
// permission. A denial is final for the session and returns
// ErrPermissionDenied. Server failures are logged and retried on the next
// stream connect.
func (s *Session) RegisterPush(ctx context.Context, token, platform string, granted bool) error {
	s.mu.Lock()
	if !granted {
		s.pushDenied = true
		s.pendingPush = nil
	}
	denied := s.pushDenied
	s.mu.Unlock()
	if denied {
		return ErrPermissionDenied
	}
	s.registerPush(ctx, pushRequest{token: token, platform: platform})
	return nil
}

func (s *Session) registerPush(ctx context.Context, req pushRequest) {
	outcome, err := s.client.RegisterPush(ctx, req.token, req.platform, true)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.log.Warn("push registration failed, will retry", "error", err)
		s.pendingPush = &req
		return
	}
	s.pendingPush = nil
	s.log.Debug("push token registered", "outcome", outcome)
}

func (s *Session) retryPush(ctx context.Context) {
	s.mu.Lock()
	req := s.pendingPush
	denied := s.pushDenied
	s.mu.Unlock()
	if req == nil || denied {
		return
	}
	s.registerPush(ctx, *req)
}

// SignOut drops the device token from the server, then ends the session:
// the reconciler stops accepting results and the stream is closed, which
// releases every channel membership server-side. It returns once Run has
// returned or ctx ends.
func (s *Session) SignOut(ctx context.Context, token string) error {
	var err error
	if token != "" {
		err = s.client.UnregisterPush(ctx, token)
	}
	s.rec.Close()
	return errors.Join(err, s.halt(ctx))
}
