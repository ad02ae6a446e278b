package posts

import (
	"context"

	"gorm.io/gorm"

	"blogapi/common"
	"blogapi/models"
)

// Repository abstracts post persistence. Soft-deleted posts are invisible to
// every method.
type Repository interface {
	List(ctx context.Context, req common.PageRequest) (common.Page[models.Post], error)
	Create(ctx context.Context, p *models.Post) error
	// FindByID returns the post with its owner loaded, or gorm.ErrRecordNotFound.
	FindByID(ctx context.Context, id uint) (*models.Post, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	// DeleteWithComments soft-deletes the post and its comments in one transaction.
	DeleteWithComments(ctx context.Context, id uint) error
}

type GormRepository struct{ DB *gorm.DB }

func withOwner(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Order("posts.id ASC")
}

func (r *GormRepository) List(ctx context.Context, req common.PageRequest) (common.Page[models.Post], error) {
	return common.Paginate[models.Post](r.DB.WithContext(ctx).Model(&models.Post{}), req, withOwner)
}

func (r *GormRepository) Create(ctx context.Context, p *models.Post) error {
	return r.DB.WithContext(ctx).Omit("User").Create(p).Error
}

func (r *GormRepository) FindByID(ctx context.Context, id uint) (*models.Post, error) {
	var p models.Post
	if err := r.DB.WithContext(ctx).Preload("User").First(&p, id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	return r.DB.WithContext(ctx).Model(&models.Post{ID: id}).Updates(fields).Error
}

func (r *GormRepository) DeleteWithComments(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// the post row goes first so comment inserts locking it are ordered
		// before or after the whole cascade
		res := tx.Delete(&models.Post{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error
	})
}
