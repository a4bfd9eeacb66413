package user

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/roomchat-backend/internal/data/repos/testutil"
	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
)

func TestUserRepo(t *testing.T) {
	db := testutil.DB(t)
	dbc := dbctx.Context{Ctx: context.Background()}
	repo := NewUserRepo(db, testutil.Logger(t))

	created, err := repo.Create(dbc, []*types.User{{DisplayName: "Ada"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(created) != 1 || created[0].ID == uuid.Nil {
		t.Fatalf("Create: expected generated id, got %+v", created)
	}

	got, err := repo.GetByIDs(dbc, []uuid.UUID{created[0].ID})
	if err != nil {
		t.Fatalf("GetByIDs: %v", err)
	}
	if len(got) != 1 || got[0].DisplayName != "Ada" {
		t.Fatalf("GetByIDs: unexpected result: %+v", got)
	}

	ok, err := repo.Exists(dbc, created[0].ID)
	if err != nil || !ok {
		t.Fatalf("Exists: ok=%v err=%v", ok, err)
	}
	ok, err = repo.Exists(dbc, uuid.New())
	if err != nil || ok {
		t.Fatalf("Exists unknown: ok=%v err=%v", ok, err)
	}
	if _, err := repo.Exists(dbc, uuid.Nil); err == nil {
		t.Fatalf("Exists nil id: expected error")
	}
}

func TestListingRepo(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	owner := testutil.SeedUser(t, ctx, db, "Owner")

	repo := NewListingRepo(db, testutil.Logger(t))
	rows, err := repo.Create(dbc, []*types.Listing{{OwnerID: owner.ID, Title: "Room A"}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(dbc, rows[0].ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Title != "Room A" || got.OwnerID != owner.ID {
		t.Fatalf("GetByID: unexpected %+v", got)
	}
	if _, err := repo.GetByID(dbc, uuid.New()); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("GetByID unknown: want ErrRecordNotFound, got %v", err)
	}
}

func TestUserRepoSoftDeletedDoesNotExist(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewUserRepo(db, testutil.Logger(t))

	u := testutil.SeedUser(t, ctx, db, "Gone")
	if err := db.WithContext(ctx).Delete(&types.User{}, "id = ?", u.ID).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}
	ok, err := repo.Exists(dbc, u.ID)
	if err != nil || ok {
		t.Fatalf("Exists after delete: ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByIDs(dbc, []uuid.UUID{u.ID, u.ID, uuid.Nil})
	if err != nil || len(got) != 0 {
		t.Fatalf("GetByIDs after delete: got=%v err=%v", got, err)
	}
}
