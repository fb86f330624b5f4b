// Package notify forwards dispatch events to a Discord webhook.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"chime/scheduler"

	"github.com/disgoorg/disgo/webhook"
)

const queueSize = 32

// Webhook posts dispatch events to Discord without blocking the caller.
// Events are dropped when the queue is full.
type Webhook struct {
	logger *slog.Logger
	post   func(content string) error
	close  func()

	mu     sync.Mutex
	closed bool
	queue  chan string
	done   chan struct{}
}

var _ scheduler.Reporter = (*Webhook)(nil)

// NewWebhook creates a reporter for the given Discord webhook URL
func NewWebhook(url string) (*Webhook, error) {
	client, err := webhook.NewWithURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid discord webhook: %w", err)
	}

	post := func(content string) error {
		_, err := client.CreateContent(content)
		return err
	}
	closeClient := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		client.Close(ctx)
	}

	return newWebhook(post, closeClient), nil
}

func newWebhook(post func(string) error, closeFn func()) *Webhook {
	w := &Webhook{
		logger: slog.With("component", "webhook"),
		post:   post,
		close:  closeFn,
		queue:  make(chan string, queueSize),
		done:   make(chan struct{}),
	}
	go w.run()
	return w
}

func (w *Webhook) run() {
	defer close(w.done)
	for content := range w.queue {
		if err := w.post(content); err != nil {
			w.logger.Error("Failed to send Discord notification", slog.Any("error", err))
			continue
		}
		w.logger.Debug("Sent Discord notification")
	}
}

// Report queues a message describing d
func (w *Webhook) Report(d scheduler.Dispatch) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	select {
	case w.queue <- Format(d):
	default:
		w.logger.Warn("Notification queue full, dropping event", slog.String("sound", d.Sound))
	}
}

// Close flushes queued messages and releases the client
func (w *Webhook) Close() {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.closed = true
	close(w.queue)
	w.mu.Unlock()

	<-w.done
	if w.close != nil {
		w.close()
	}
}

// Format renders a dispatch as a Discord message
func Format(d scheduler.Dispatch) string {
	at := d.At.Format(time.TimeOnly)

	var what string
	switch d.Kind {
	case scheduler.KindOneShot:
		what = fmt.Sprintf("scheduled sound `%s` (%s)", d.Sound, d.Trigger)
	case scheduler.KindPeriodic:
		what = fmt.Sprintf("periodic sound `%s`", d.Sound)
	default:
		what = fmt.Sprintf("sound `%s`", d.Sound)
	}

	if d.Err != nil {
		return fmt.Sprintf("❌ %s failed at %s: %v", what, at, d.Err)
	}
	if d.Queued {
		return fmt.Sprintf("🕒 Queued %s at %s", what, at)
	}
	return fmt.Sprintf("🔔 Played %s at %s", what, at)
}
