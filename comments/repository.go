package comments

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"blogapi/common"
	"blogapi/models"
)

// Repository abstracts comment persistence. Soft-deleted comments and posts
// are invisible to every method.
type Repository interface {
	ListForPost(ctx context.Context, postID uint, req common.PageRequest) (common.Page[models.Comment], error)
	// CreateOnPost inserts c under the post in one transaction, holding a lock
	// on the post row so a concurrent cascade delete cannot miss the comment.
	// It returns the post with its owner loaded, or gorm.ErrRecordNotFound.
	CreateOnPost(ctx context.Context, postID uint, c *models.Comment) (*models.Post, error)
	// FindByID returns the comment with its author loaded, or gorm.ErrRecordNotFound.
	FindByID(ctx context.Context, id uint) (*models.Comment, error)
	// FindPost returns the post with its owner loaded, or gorm.ErrRecordNotFound.
	FindPost(ctx context.Context, postID uint) (*models.Post, error)
	Update(ctx context.Context, id uint, fields map[string]any) error
	Delete(ctx context.Context, id uint) error
}

type GormRepository struct{ DB *gorm.DB }

func withAuthor(db *gorm.DB) *gorm.DB {
	return db.Preload("User").Order("comments.id ASC")
}

func (r *GormRepository) ListForPost(ctx context.Context, postID uint, req common.PageRequest) (common.Page[models.Comment], error) {
	query := r.DB.WithContext(ctx).Model(&models.Comment{}).Where("post_id = ?", postID)
	return common.Paginate[models.Comment](query, req, withAuthor)
}

func (r *GormRepository) CreateOnPost(ctx context.Context, postID uint, c *models.Comment) (*models.Post, error) {
	var p models.Post
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&p, postID).Error; err != nil {
			return err
		}
		if err := tx.Preload("User").First(&p, p.ID).Error; err != nil {
			return err
		}
		c.PostID = p.ID
		return tx.Omit("User").Create(c).Error
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) FindByID(ctx context.Context, id uint) (*models.Comment, error) {
	var c models.Comment
	if err := r.DB.WithContext(ctx).Preload("User").First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *GormRepository) FindPost(ctx context.Context, postID uint) (*models.Post, error) {
	var p models.Post
	if err := r.DB.WithContext(ctx).Preload("User").First(&p, postID).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *GormRepository) Update(ctx context.Context, id uint, fields map[string]any) error {
	return r.DB.WithContext(ctx).Model(&models.Comment{ID: id}).Updates(fields).Error
}

func (r *GormRepository) Delete(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Comment{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
