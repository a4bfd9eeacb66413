package ctxutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
)

func TestPendingActivityDrainAndDiscard(t *testing.T) {
	ctx, pa := WithPendingActivity(context.Background())
	if GetPendingActivity(ctx) != pa {
		t.Fatalf("pending activity not attached to context")
	}
	id := uuid.New()
	pa.Append(ActivityScope{ThreadID: id})
	pa.Append(ActivityScope{ThreadID: id, ThreadChannel: true})

	got := pa.Drain()
	if len(got) != 2 || !got[1].ThreadChannel {
		t.Fatalf("unexpected drain: %+v", got)
	}
	if again := pa.Drain(); len(again) != 0 {
		t.Fatalf("drain should reset, got %d", len(again))
	}

	pa.Append(ActivityScope{ThreadID: id})
	pa.Discard()
	if len(pa.Drain()) != 0 {
		t.Fatalf("discard should drop pending scopes")
	}
}

func TestUserIDWithoutRequestData(t *testing.T) {
	if got := UserID(context.Background()); got != uuid.Nil {
		t.Fatalf("want nil uuid, got %s", got)
	}
	uid := uuid.New()
	ctx := WithRequestData(context.Background(), &RequestData{UserID: uid})
	if got := UserID(ctx); got != uid {
		t.Fatalf("want %s got %s", uid, got)
	}
}
