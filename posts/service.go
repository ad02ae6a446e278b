package posts

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"blogapi/common"
	"blogapi/models"
	"blogapi/policy"
)

const MsgNotFound = "Post not found."

type CreateInput struct {
	Title   string
	Content string
}

// UpdateInput holds a partial update; nil fields are left unchanged.
type UpdateInput struct {
	Title   *string
	Content *string
}

type Service struct {
	repo  Repository
	guard *policy.Guard
}

func NewService(repo Repository, guard *policy.Guard) *Service {
	return &Service{repo: repo, guard: guard}
}

func (s *Service) List(ctx context.Context, req common.PageRequest) (common.Page[models.Post], error) {
	page, err := s.repo.List(ctx, req)
	if err != nil {
		return common.Page[models.Post]{}, fail("list", err)
	}
	return page, nil
}

// Create stores a post owned by actor. Ownership never comes from the input.
func (s *Service) Create(ctx context.Context, in CreateInput, actor *models.User) (*models.Post, error) {
	post := &models.Post{
		Title:   in.Title,
		Content: in.Content,
		UserID:  actor.ID,
	}
	if err := s.repo.Create(ctx, post); err != nil {
		return nil, fail("create", err)
	}
	return post, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Post, error) {
	post, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundError(MsgNotFound)
	}
	if err != nil {
		return nil, fail("get", err)
	}
	return post, nil
}

func (s *Service) Update(ctx context.Context, actor *models.User, post *models.Post, in UpdateInput) (*models.Post, error) {
	if err := s.guard.Authorize(actor, policy.Update, post); err != nil {
		return nil, err
	}

	fields := map[string]any{}
	if in.Title != nil {
		fields["title"] = *in.Title
	}
	if in.Content != nil {
		fields["content"] = *in.Content
	}
	if len(fields) == 0 {
		return post, nil
	}

	if err := s.repo.Update(ctx, post.ID, fields); err != nil {
		return nil, fail("update", err)
	}
	return s.Get(ctx, post.ID)
}

// Delete soft-deletes post together with all of its comments.
func (s *Service) Delete(ctx context.Context, actor *models.User, post *models.Post) error {
	if err := s.guard.Authorize(actor, policy.Delete, post); err != nil {
		return err
	}

	err := s.repo.DeleteWithComments(ctx, post.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NotFoundError(MsgNotFound)
	}
	if err != nil {
		return fail("delete", err)
	}
	return nil
}

func fail(op string, err error) error {
	slog.Error("post operation failed", "event", "posts_"+op+"_failed", "module", "posts", "error", err)
	return common.ProcessingError(err)
}
