package notify

import (
	"context"
	"errors"
	"log/slog"

	"blogapi/email"
)

// LogSink writes each notification as a log line. It is the default sink
// when no mail server is configured.
type LogSink struct {
	Logger *slog.Logger
}

func (s LogSink) Deliver(ctx context.Context, n Notification) error {
	logger := s.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "new comment on post",
		"event", "notify_comment",
		"module", "notify",
		"notification_id", n.ID,
		"post_id", n.Post.ID,
		"post_title", n.Post.Title,
		"owner_id", n.Post.OwnerID,
		"comment_id", n.Comment.ID,
		"comment", n.Comment.Content,
		"author", n.Comment.AuthorName,
	)
	return nil
}

type Mailer interface {
	SendCommentNotification(ctx context.Context, msg email.CommentNotice) error
}

// EmailSink mails the post owner.
type EmailSink struct {
	Mailer Mailer
}

var ErrNoRecipient = errors.New("post owner has no email address")

func (s EmailSink) Deliver(ctx context.Context, n Notification) error {
	if n.Post.OwnerEmail == "" {
		return ErrNoRecipient
	}
	// Owners commenting on their own posts are not mailed.
	if n.Comment.AuthorID == n.Post.OwnerID {
		return nil
	}
	return s.Mailer.SendCommentNotification(ctx, email.CommentNotice{
		To:         n.Post.OwnerEmail,
		OwnerName:  n.Post.OwnerName,
		PostTitle:  n.Post.Title,
		AuthorName: n.Comment.AuthorName,
		Comment:    n.Comment.Content,
	})
}
