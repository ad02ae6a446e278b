package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"blogapi/models"
)

type State string

const (
	Queued    State = "queued"
	Delivered State = "delivered"
	Failed    State = "failed"
)

const defaultDeliveryTimeout = 10 * time.Second

type PostSnapshot struct {
	ID         uint
	Title      string
	OwnerID    uint
	OwnerName  string
	OwnerEmail string
}

type CommentSnapshot struct {
	ID         uint
	Content    string
	AuthorID   uint
	AuthorName string
}

// Notification tells a post owner about a new comment. It carries copies of
// the rows as they were when the comment was created.
type Notification struct {
	ID       string
	Post     PostSnapshot
	Comment  CommentSnapshot
	QueuedAt time.Time
}

// NewCommentNotification snapshots post (with its owner loaded) and comment.
func NewCommentNotification(post models.Post, comment models.Comment, author models.User) Notification {
	snap := Notification{
		ID: uuid.NewString(),
		Post: PostSnapshot{
			ID:      post.ID,
			Title:   post.Title,
			OwnerID: post.UserID,
		},
		Comment: CommentSnapshot{
			ID:         comment.ID,
			Content:    comment.Content,
			AuthorID:   comment.UserID,
			AuthorName: author.Name,
		},
		QueuedAt: time.Now(),
	}
	if post.User != nil {
		snap.Post.OwnerName = post.User.Name
		snap.Post.OwnerEmail = post.User.Email
	}
	return snap
}

// Result is reported once per notification after the worker is done with it.
type Result struct {
	Notification Notification
	State        State
	Err          error
}

type Sink interface {
	Deliver(ctx context.Context, n Notification) error
}

type SinkFunc func(ctx context.Context, n Notification) error

func (f SinkFunc) Deliver(ctx context.Context, n Notification) error { return f(ctx, n) }

// Dispatcher is a bounded FIFO queue drained by a single background worker.
// Enqueue never blocks and delivery errors never reach the caller.
type Dispatcher struct {
	queue    chan Notification
	sink     Sink
	logger   *slog.Logger
	timeout  time.Duration
	onResult func(Result)

	mu      sync.RWMutex
	stopped bool
	started bool
	done    chan struct{}
}

type Option func(*Dispatcher)

// WithResultHook registers fn to observe every finished delivery. It runs on
// the worker goroutine.
func WithResultHook(fn func(Result)) Option {
	return func(d *Dispatcher) { d.onResult = fn }
}

func WithDeliveryTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

func NewDispatcher(sink Sink, size int, logger *slog.Logger, opts ...Option) *Dispatcher {
	if size <= 0 {
		size = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	d := &Dispatcher{
		queue:   make(chan Notification, size),
		sink:    sink,
		logger:  logger,
		timeout: defaultDeliveryTimeout,
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Enqueue hands n to the worker. It returns false, after logging, when the
// queue is full or the dispatcher has been stopped.
func (d *Dispatcher) Enqueue(n Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		d.logger.Warn("dropping notification, dispatcher stopped",
			"event", "notify_drop_stopped",
			"module", "notify",
			"notification_id", n.ID,
		)
		return false
	}

	select {
	case d.queue <- n:
		d.logger.Debug("notification queued",
			"event", "notify_queued",
			"module", "notify",
			"notification_id", n.ID,
			"post_id", n.Post.ID,
			"comment_id", n.Comment.ID,
			"state", Queued,
		)
		return true
	default:
		d.logger.Warn("dropping notification, queue full",
			"event", "notify_drop_full",
			"module", "notify",
			"notification_id", n.ID,
			"capacity", cap(d.queue),
		)
		return false
	}
}

// Start launches the worker. Calling it more than once has no effect.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.mu.Unlock()

	go d.run(ctx)
}

// Stop closes the queue and waits for the worker to drain what is left.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	started := d.started
	close(d.queue)
	d.mu.Unlock()

	if started {
		<-d.done
	}
}

func (d *Dispatcher) run(ctx context.Context) {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-d.queue:
			if !ok {
				return
			}
			d.deliver(ctx, n)
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	res := Result{Notification: n, State: Delivered}

	func() {
		defer func() {
			if r := recover(); r != nil {
				res.Err = fmt.Errorf("sink panic: %v", r)
			}
		}()
		dctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		res.Err = d.sink.Deliver(dctx, n)
	}()

	if res.Err != nil {
		res.State = Failed
		d.logger.Error("notification delivery failed",
			"event", "notify_failed",
			"module", "notify",
			"notification_id", n.ID,
			"post_id", n.Post.ID,
			"comment_id", n.Comment.ID,
			"state", Failed,
			"error", res.Err,
		)
	} else {
		d.logger.Info("notification delivered",
			"event", "notify_delivered",
			"module", "notify",
			"notification_id", n.ID,
			"post_id", n.Post.ID,
			"comment_id", n.Comment.ID,
			"state", Delivered,
			"queued_for_ms", time.Since(n.QueuedAt).Milliseconds(),
		)
	}

	if d.onResult != nil {
		d.onResult(res)
	}
}
