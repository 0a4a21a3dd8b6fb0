// Package notify keeps short-lived user-facing notifications about
// connection and refresh outcomes.
package notify

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"revdash/internal/amqp"
	"revdash/internal/cache"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

const (
	DefaultTTL = 10 * time.Second
	maxEntries = 100

	// publishQueue bounds notifications waiting for the publisher.
	publishQueue   = 64
	publishTimeout = 10 * time.Second
)

type Notification struct {
	ID        string    `json:"id"`
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Publisher forwards notifications to other processes. *amqp.Client
// satisfies it.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// Center stores notifications and forwards them to an optional publisher.
// Publishing happens on a single background goroutine so a slow or
// unreachable broker never blocks the caller; when the queue is full the
// message is dropped and counted.
type Center struct {
	entries   *cache.LRUCache[Notification]
	ttl       time.Duration
	now       func() time.Time
	publisher Publisher
	logger    *slog.Logger

	queue     chan *amqp.NotificationMessage
	stop      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
	dropped   int64
}

type Option func(*Center)

func WithPublisher(p Publisher) Option {
	return func(c *Center) { c.publisher = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Center) { c.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(c *Center) { c.now = now }
}

func NewCenter(ttl time.Duration, opts ...Option) *Center {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	c := &Center{
		ttl:    ttl,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.entries = cache.NewLRUCache[Notification](maxEntries, ttl).WithClock(c.now)
	if c.publisher != nil {
		c.queue = make(chan *amqp.NotificationMessage, publishQueue)
		c.stop = make(chan struct{})
		c.done = make(chan struct{})
		go c.publishLoop()
	}
	return c
}

func (c *Center) publishLoop() {
	defer close(c.done)
	for {
		select {
		case <-c.stop:
			return
		case msg := <-c.queue:
			ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
			if err := c.publisher.PublishNotification(ctx, msg); err != nil {
				c.logger.WarnContext(ctx, "Failed to publish notification", "id", msg.ID, "error", err)
			}
			cancel()
		}
	}
}

// Close stops the publisher goroutine. Queued messages that were not yet
// published are discarded.
func (c *Center) Close() {
	if c == nil || c.stop == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.stop)
		<-c.done
	})
}

// Dropped counts notifications not published because the queue was full.
func (c *Center) Dropped() int64 {
	if c == nil {
		return 0
	}
	return atomic.LoadInt64(&c.dropped)
}

// Cache exposes the backing store so a cache.Manager can sweep it.
func (c *Center) Cache() cache.Cleaner { return c.entries }

// Post records a notification and queues it for the publisher if one is
// configured. Publish errors are logged only. Posting to a nil Center is a
// no-op.
func (c *Center) Post(ctx context.Context, level Level, source, message string) Notification {
	if c == nil {
		return Notification{}
	}
	now := c.now()
	n := Notification{
		ID:        uuid.NewString(),
		Level:     level,
		Message:   message,
		Source:    source,
		CreatedAt: now,
		ExpiresAt: now.Add(c.ttl),
	}
	c.entries.Set(n.ID, n)

	if c.queue != nil {
		msg := &amqp.NotificationMessage{
			ID:        n.ID,
			Level:     string(n.Level),
			Message:   n.Message,
			Source:    n.Source,
			CreatedAt: n.CreatedAt,
		}
		select {
		case c.queue <- msg:
		default:
			atomic.AddInt64(&c.dropped, 1)
			c.logger.WarnContext(ctx, "Notification queue full, dropping publish", "id", n.ID)
		}
	}
	return n
}

func (c *Center) Info(ctx context.Context, source, message string) Notification {
	return c.Post(ctx, LevelInfo, source, message)
}

func (c *Center) Success(ctx context.Context, source, message string) Notification {
	return c.Post(ctx, LevelSuccess, source, message)
}

func (c *Center) Error(ctx context.Context, source, message string) Notification {
	return c.Post(ctx, LevelError, source, message)
}

// List returns the live notifications, newest first.
func (c *Center) List() []Notification {
	entries := c.entries.Entries()
	out := make([]Notification, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Value)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Dismiss removes a notification. It reports false when the id is unknown
// or already expired.
func (c *Center) Dismiss(id string) bool {
	return c.entries.Delete(id)
}
