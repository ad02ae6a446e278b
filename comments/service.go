package comments

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"blogapi/common"
	"blogapi/models"
	"blogapi/notify"
	"blogapi/policy"
)

const (
	MsgNotFound     = "Comment not found."
	MsgPostNotFound = "Post not found."
)

// Notifier accepts comment notifications without blocking.
type Notifier interface {
	Enqueue(n notify.Notification) bool
}

type UpdateInput struct {
	Content *string
}

type Service struct {
	repo     Repository
	guard    *policy.Guard
	notifier Notifier
}

// NewService builds the comment service. notifier may be nil, in which case
// no notifications are sent.
func NewService(repo Repository, guard *policy.Guard, notifier Notifier) *Service {
	return &Service{repo: repo, guard: guard, notifier: notifier}
}

func (s *Service) ListForPost(ctx context.Context, postID uint, req common.PageRequest) (common.Page[models.Comment], error) {
	if _, err := s.post(ctx, postID); err != nil {
		return common.Page[models.Comment]{}, err
	}

	page, err := s.repo.ListForPost(ctx, postID, req)
	if err != nil {
		return common.Page[models.Comment]{}, fail("list", err)
	}
	return page, nil
}

// Create stores a comment by actor on the post and queues a notification
// for the post owner. Notification problems never fail the call.
func (s *Service) Create(ctx context.Context, postID uint, content string, actor *models.User) (*models.Comment, error) {
	comment := &models.Comment{
		Content: content,
		UserID:  actor.ID,
	}
	post, err := s.repo.CreateOnPost(ctx, postID, comment)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundError(MsgPostNotFound)
	}
	if err != nil {
		return nil, fail("create", err)
	}

	if s.notifier != nil {
		s.notifier.Enqueue(notify.NewCommentNotification(*post, *comment, *actor))
	}
	return comment, nil
}

func (s *Service) Get(ctx context.Context, id uint) (*models.Comment, error) {
	comment, err := s.repo.FindByID(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundError(MsgNotFound)
	}
	if err != nil {
		return nil, fail("get", err)
	}
	return comment, nil
}

func (s *Service) Update(ctx context.Context, actor *models.User, comment *models.Comment, in UpdateInput) (*models.Comment, error) {
	if err := s.guard.Authorize(actor, policy.Update, comment); err != nil {
		return nil, err
	}
	if in.Content == nil {
		return comment, nil
	}

	if err := s.repo.Update(ctx, comment.ID, map[string]any{"content": *in.Content}); err != nil {
		return nil, fail("update", err)
	}
	return s.Get(ctx, comment.ID)
}

func (s *Service) Delete(ctx context.Context, actor *models.User, comment *models.Comment) error {
	if err := s.guard.Authorize(actor, policy.Delete, comment); err != nil {
		return err
	}

	err := s.repo.Delete(ctx, comment.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return common.NotFoundError(MsgNotFound)
	}
	if err != nil {
		return fail("delete", err)
	}
	return nil
}

func (s *Service) post(ctx context.Context, postID uint) (*models.Post, error) {
	post, err := s.repo.FindPost(ctx, postID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, common.NotFoundError(MsgPostNotFound)
	}
	if err != nil {
		return nil, fail("find_post", err)
	}
	return post, nil
}

func fail(op string, err error) error {
	slog.Error("comment operation failed", "event", "comments_"+op+"_failed", "module", "comments", "error", err)
	return common.ProcessingError(err)
}
