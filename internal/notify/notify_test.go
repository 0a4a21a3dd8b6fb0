package notify

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"revdash/internal/amqp"
	"revdash/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

type recordingPublisher struct {
	mu   sync.Mutex
	msgs []*amqp.NotificationMessage
	err  error
}

func (p *recordingPublisher) PublishNotification(_ context.Context, msg *amqp.NotificationMessage) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs = append(p.msgs, msg)
	return p.err
}

func TestCenterPostAndList(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
	c := NewCenter(10*time.Second, WithClock(clk.Now))

	first := c.Success(context.Background(), "refresh", "Data refreshed")
	clk.Advance(time.Second)
	second := c.Error(context.Background(), "refresh", "Sync failed")

	list := c.List()
	if len(list) != 2 {
		t.Fatalf("len = %d", len(list))
	}
	if list[0].ID != second.ID || list[1].ID != first.ID {
		t.Fatalf("expected newest first, got %+v", list)
	}
	if first.ID == second.ID || first.ID == "" {
		t.Fatal("ids should be unique and non-empty")
	}
	if !first.ExpiresAt.Equal(first.CreatedAt.Add(10 * time.Second)) {
		t.Fatalf("expiresAt = %v", first.ExpiresAt)
	}
}

func TestCenterExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC)}
	c := NewCenter(10*time.Second, WithClock(clk.Now))
	c.Info(context.Background(), "connect", "Connecting")

	clk.Advance(11 * time.Second)
	if got := c.List(); len(got) != 0 {
		t.Fatalf("expected expired notification to be hidden, got %+v", got)
	}

	m := cache.NewManager(nil)
	m.Register(c.Cache())
	if n := m.CleanNow(); n != 1 {
		t.Fatalf("cleaned %d, want 1", n)
	}
}

func TestCenterDismiss(t *testing.T) {
	c := NewCenter(0)
	n := c.Info(context.Background(), "connect", "Connected")
	if !c.Dismiss(n.ID) {
		t.Fatal("dismiss of live notification should succeed")
	}
	if c.Dismiss(n.ID) {
		t.Fatal("second dismiss should report false")
	}
	if len(c.List()) != 0 {
		t.Fatal("list should be empty")
	}
}

func (p *recordingPublisher) published() []*amqp.NotificationMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*amqp.NotificationMessage(nil), p.msgs...)
}

func waitForPublished(t *testing.T, p *recordingPublisher, n int) []*amqp.NotificationMessage {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if msgs := p.published(); len(msgs) >= n {
			return msgs
		}
		if time.Now().After(deadline) {
			t.Fatalf("published %d messages, want %d", len(p.published()), n)
		}
		time.Sleep(time.Millisecond)
	}
}

func TestCenterPublishes(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCenter(time.Minute, WithPublisher(pub))
	defer c.Close()

	n := c.Error(context.Background(), "refresh", "Sync failed")
	msg := waitForPublished(t, pub, 1)[0]
	if msg.ID != n.ID || msg.Level != "error" || msg.Source != "refresh" || msg.Message != "Sync failed" {
		t.Fatalf("unexpected message %+v", msg)
	}
	if len(c.List()) != 1 {
		t.Fatal("publish failure must not drop the notification")
	}
}

// stuckPublisher blocks every publish until release is closed.
type stuckPublisher struct {
	release chan struct{}
	calls   int32
}

func (p *stuckPublisher) PublishNotification(ctx context.Context, _ *amqp.NotificationMessage) error {
	atomic.AddInt32(&p.calls, 1)
	select {
	case <-p.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func TestCenterPostDoesNotWaitForPublisher(t *testing.T) {
	pub := &stuckPublisher{release: make(chan struct{})}
	c := NewCenter(time.Minute, WithPublisher(pub))

	start := time.Now()
	for i := 0; i < publishQueue+10; i++ {
		c.Info(context.Background(), "refresh", "Data refreshed")
	}
	if took := time.Since(start); took > time.Second {
		t.Fatalf("posting took %v with a stuck publisher", took)
	}
	if c.Dropped() == 0 {
		t.Fatal("overflowing the queue should drop messages")
	}
	if len(c.List()) != publishQueue+10 {
		t.Fatalf("every notification is still listed, got %d", len(c.List()))
	}

	close(pub.release)
	c.Close()
	c.Close()
	if atomic.LoadInt32(&pub.calls) == 0 {
		t.Fatal("publisher was never called")
	}
}

func TestNilCenter(t *testing.T) {
	var c *Center
	if n := c.Success(context.Background(), "connect", "Connected"); n.ID != "" {
		t.Fatalf("nil center returned %+v", n)
	}
	if c.Dropped() != 0 {
		t.Fatal("nil center has nothing dropped")
	}
	c.Close()
}
