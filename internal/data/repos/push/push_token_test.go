package push

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/roomchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
)

func TestPushTokenUpsertIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewPushTokenRepo(db, testutil.Logger(t))
	user := uuid.New()

	require.NoError(t, repo.Upsert(dbc, &types.PushToken{Token: "tok-1", UserID: user, Platform: "fcm"}))
	require.NoError(t, repo.Upsert(dbc, &types.PushToken{Token: "tok-1", UserID: user, Platform: "fcm"}))

	rows, err := repo.ListByUser(dbc, user)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "tok-1", rows[0].Token)
}

func TestPushTokenMovesToNewUser(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewPushTokenRepo(db, testutil.Logger(t))
	first, second := uuid.New(), uuid.New()

	require.NoError(t, repo.Upsert(dbc, &types.PushToken{Token: "shared", UserID: first, Platform: "apns"}))
	require.NoError(t, repo.Upsert(dbc, &types.PushToken{Token: "shared", UserID: second, Platform: "apns"}))

	prev, err := repo.ListByUser(dbc, first)
	require.NoError(t, err)
	assert.Empty(t, prev)
	cur, err := repo.ListByUser(dbc, second)
	require.NoError(t, err)
	assert.Len(t, cur, 1)

	removed, err := repo.Delete(dbc, "shared", first)
	require.NoError(t, err)
	assert.False(t, removed, "previous owner cannot evict a reassigned token")

	removed, err = repo.Delete(dbc, "shared", second)
	require.NoError(t, err)
	assert.True(t, removed)
}

func TestPushTokenUpsertValidates(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewPushTokenRepo(db, testutil.Logger(t))

	assert.Error(t, repo.Upsert(dbc, &types.PushToken{Token: " ", UserID: uuid.New()}))
	assert.Error(t, repo.Upsert(dbc, &types.PushToken{Token: "x"}))
}
