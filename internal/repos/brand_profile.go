package repos

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

type BrandProfileRepo interface {
	Upsert(ctx context.Context, tx *gorm.DB, profile *types.BrandProfile) (*types.BrandProfile, error)
	GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.BrandProfile, error)
}

type brandProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBrandProfileRepo(db *gorm.DB, baseLog *logger.Logger) BrandProfileRepo {
	return &brandProfileRepo{db: db, log: baseLog.With("repo", "BrandProfileRepo")}
}

func (r *brandProfileRepo) Upsert(ctx context.Context, tx *gorm.DB, profile *types.BrandProfile) (*types.BrandProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if profile == nil {
		return nil, nil
	}
	existing, err := r.GetByUser(ctx, transaction, profile.UserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		profile.ID = existing.ID
		if err := transaction.WithContext(ctx).Save(profile).Error; err != nil {
			return nil, err
		}
		return profile, nil
	}
	if err := transaction.WithContext(ctx).Create(profile).Error; err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *brandProfileRepo) GetByUser(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*types.BrandProfile, error) {
	transaction := tx
	if transaction == nil {
		transaction = r.db
	}
	if userID == uuid.Nil {
		return nil, nil
	}
	var profile types.BrandProfile
	err := transaction.WithContext(ctx).
		Where("user_id = ?", userID).
		Limit(1).
		Find(&profile).Error
	if err != nil {
		return nil, err
	}
	if profile.ID == uuid.Nil {
		return nil, nil
	}
	return &profile, nil
}
