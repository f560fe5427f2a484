package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/yuin/goldmark"
	"golang.org/x/text/language"

	"github.com/forgo/muster/internal/i18n"
	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/internal/notify"
)

// ErrDispatcherFull is returned when the promotion queue has no room
var ErrDispatcherFull = errors.New("promotion queue full")

// HubNotifier pushes promotions to the promoted user's SSE channel
type HubNotifier struct {
	hub *RosterHub
}

// NewHubNotifier creates a notifier backed by hub
func NewHubNotifier(hub *RosterHub) *HubNotifier {
	return &HubNotifier{hub: hub}
}

// NotifyPromoted implements PromotionNotifier
func (n *HubNotifier) NotifyPromoted(_ context.Context, p model.Promotion) error {
	n.hub.SendToUser(p.Member.UserID, &Event{
		Type:     EventRosterPromoted,
		RosterID: p.RosterID,
		Data:     p,
	})
	return nil
}

// EmailNotifier e-mails promoted members that have an address
type EmailNotifier struct {
	sender   notify.Sender
	lang     language.Tag
	markdown goldmark.Markdown
}

// EmailNotifierConfig holds configuration for the e-mail notifier
type EmailNotifierConfig struct {
	Sender   notify.Sender
	Language language.Tag // optional, defaults to i18n.Default()
}

// NewEmailNotifier creates a new e-mail notifier
func NewEmailNotifier(cfg EmailNotifierConfig) *EmailNotifier {
	lang := cfg.Language
	if lang == language.Und {
		lang = i18n.Default()
	}
	return &EmailNotifier{
		sender:   cfg.Sender,
		lang:     i18n.Match(lang),
		markdown: goldmark.New(),
	}
}

// NotifyPromoted implements PromotionNotifier
func (n *EmailNotifier) NotifyPromoted(ctx context.Context, p model.Promotion) error {
	if p.Member.Email == "" {
		return nil
	}

	printer := i18n.Printer(n.lang)
	var body bytes.Buffer
	text := printer.Sprintf(i18n.KeyPromotedBody, i18n.EscapeMarkdown(p.Member.Label()), i18n.EscapeMarkdown(p.RosterName))
	if err := n.markdown.Convert([]byte(text), &body); err != nil {
		return fmt.Errorf("rendering promotion e-mail: %w", err)
	}

	_, err := n.sender.Send(ctx, notify.Message{
		To:      []string{p.Member.Email},
		Subject: printer.Sprintf(i18n.KeyPromotedSubject, p.RosterName),
		HTML:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("sending promotion e-mail: %w", err)
	}
	return nil
}

// MultiNotifier fans a promotion out to several notifiers
type MultiNotifier []PromotionNotifier

// NotifyPromoted calls every notifier and joins their errors
func (m MultiNotifier) NotifyPromoted(ctx context.Context, p model.Promotion) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyPromoted(ctx, p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PromotionDispatcher queues promotions and delivers them on its own
// goroutine so request handlers never wait on delivery.
type PromotionDispatcher struct {
	next  PromotionNotifier
	queue chan model.Promotion

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// PromotionDispatcherConfig holds configuration for the dispatcher
type PromotionDispatcherConfig struct {
	Notifier  PromotionNotifier
	QueueSize int
}

// NewPromotionDispatcher creates a dispatcher; call Start to begin delivery
func NewPromotionDispatcher(cfg PromotionDispatcherConfig) *PromotionDispatcher {
	size := cfg.QueueSize
	if size <= 0 {
		size = 256
	}
	return &PromotionDispatcher{
		next:  cfg.Notifier,
		queue: make(chan model.Promotion, size),
	}
}

// NotifyPromoted enqueues p. A full queue drops the promotion.
func (d *PromotionDispatcher) NotifyPromoted(_ context.Context, p model.Promotion) error {
	select {
	case d.queue <- p:
		return nil
	default:
		slog.Warn("promotion_dropped",
			"roster_id", p.RosterID,
			"user_id", p.Member.UserID,
			"reason", "queue full",
		)
		return ErrDispatcherFull
	}
}

// Start begins delivering queued promotions
func (d *PromotionDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.running {
		return
	}
	d.running = true
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})

	go d.run(d.stopCh, d.doneCh)
	slog.Info("promotion dispatcher started", "queue_size", cap(d.queue))
}

// Stop delivers whatever is already queued, then stops the worker
func (d *PromotionDispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	close(d.stopCh)
	done := d.doneCh
	d.mu.Unlock()

	<-done
	slog.Info("promotion dispatcher stopped")
}

// IsRunning returns whether the dispatcher worker is running
func (d *PromotionDispatcher) IsRunning() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Pending returns the number of queued promotions
func (d *PromotionDispatcher) Pending() int {
	return len(d.queue)
}

func (d *PromotionDispatcher) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	for {
		select {
		case p := <-d.queue:
			d.deliver(p)
		case <-stop:
			for {
				select {
				case p := <-d.queue:
					d.deliver(p)
				default:
					return
				}
			}
		}
	}
}

func (d *PromotionDispatcher) deliver(p model.Promotion) {
	if d.next == nil {
		return
	}
	if err := d.next.NotifyPromoted(context.Background(), p); err != nil {
		slog.Warn("promotion_delivery_failed",
			"roster_id", p.RosterID,
			"user_id", p.Member.UserID,
			"error", err,
		)
	}
}
