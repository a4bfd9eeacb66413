package user

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/roomchat-backend/internal/domain"
	"github.com/yungbote/roomchat-backend/internal/pkg/dbctx"
	"github.com/yungbote/roomchat-backend/internal/platform/logger"
)

type ListingRepo interface {
	Create(dbc dbctx.Context, rows []*types.Listing) ([]*types.Listing, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Listing, error)
}

type listingRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewListingRepo(db *gorm.DB, baseLog *logger.Logger) ListingRepo {
	return &listingRepo{db: db, log: baseLog.With("repo", "ListingRepo")}
}

func (r *listingRepo) Create(dbc dbctx.Context, rows []*types.Listing) ([]*types.Listing, error) {
	if len(rows) == 0 {
		return []*types.Listing{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// GetByID returns gorm.ErrRecordNotFound when the listing does not exist.
func (r *listingRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Listing, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing listing id")
	}
	var out types.Listing
	if err := dbc.DB(r.db).Where("id = ?", id).Take(&out).Error; err != nil {
		return nil, err
	}
	return &out, nil
}
