package repositories

import (
	"context"

	"github.com/anonto42/nano-forum/backend/internal/models"
	"gorm.io/gorm"
)

// LikeRepository defines the interface for like data operations
type LikeRepository interface {
	CreateLike(ctx context.Context, like *models.Like) error
	GetLike(ctx context.Context, userID uint, targetID, targetType string) (*models.Like, error)
	DeleteLike(ctx context.Context, id uint) error
	CountByTarget(ctx context.Context, targetID, targetType string) (int64, error)
	GetLikesByUser(ctx context.Context, userID uint, targetType string) ([]models.Like, error)
	DeleteByTargets(ctx context.Context, targetType string, targetIDs []string) (int64, error)
	DeleteByUser(ctx context.Context, userID uint) (int64, error)
}

// PostgresLikeRepository implements LikeRepository on GORM
type PostgresLikeRepository struct {
	db *gorm.DB
}

// NewPostgresLikeRepository creates a new PostgresLikeRepository
func NewPostgresLikeRepository(db *gorm.DB) *PostgresLikeRepository {
	return &PostgresLikeRepository{db: db}
}

// CreateLike returns ErrDuplicate when the tuple already exists
func (r *PostgresLikeRepository) CreateLike(ctx context.Context, like *models.Like) error {
	return translate(r.db.WithContext(ctx).Create(like).Error)
}

func (r *PostgresLikeRepository) GetLike(ctx context.Context, userID uint, targetID, targetType string) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_id = ? AND target_type = ?", userID, targetID, targetType).
		First(&like).Error
	if err != nil {
		return nil, translate(err)
	}
	return &like, nil
}

func (r *PostgresLikeRepository) DeleteLike(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Like{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresLikeRepository) CountByTarget(ctx context.Context, targetID, targetType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Like{}).
		Where("target_id = ? AND target_type = ?", targetID, targetType).
		Count(&count).Error
	return count, err
}

// GetLikesByUser returns the user's likes of one target type, newest first
func (r *PostgresLikeRepository) GetLikesByUser(ctx context.Context, userID uint, targetType string) ([]models.Like, error) {
	var likes []models.Like
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND target_type = ?", userID, targetType).
		Order("created_at DESC").
		Find(&likes).Error
	return likes, err
}

func (r *PostgresLikeRepository) DeleteByTargets(ctx context.Context, targetType string, targetIDs []string) (int64, error) {
	if len(targetIDs) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Where("target_type = ? AND target_id IN ?", targetType, targetIDs).
		Delete(&models.Like{})
	return res.RowsAffected, res.Error
}

func (r *PostgresLikeRepository) DeleteByUser(ctx context.Context, userID uint) (int64, error) {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&models.Like{})
	return res.RowsAffected, res.Error
}
