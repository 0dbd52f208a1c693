package telegram

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"
)

const (
	queueSize = 64
	// repeatWindow is how long a repeated warning is held back after it was sent.
	repeatWindow = time.Minute
)

var _ slog.Handler = &SlogHandler{}

type broadcaster interface {
	BroadcastSlogRecord(context.Context, slog.Record, []slog.Attr) error
}

type broadcast struct {
	record slog.Record
	attrs  []slog.Attr
}

// sender is shared by a handler and everything derived from it with WithAttrs
// and WithGroup.
type sender struct {
	bot      broadcaster
	fallback slog.Handler
	queue    chan broadcast
	now      func() time.Time

	guard      sync.Mutex
	lastSent   map[string]time.Time
	suppressed map[string]int
}

// enqueue never blocks. Records repeating a message sent less than
// repeatWindow ago are counted instead of sent, and records that do not fit
// into the queue are dropped.
func (s *sender) enqueue(r slog.Record, attrs []slog.Attr) {
	key := r.Level.String() + " " + r.Message
	now := s.now()

	s.guard.Lock()
	if last, ok := s.lastSent[key]; ok && now.Sub(last) < repeatWindow {
		s.suppressed[key]++
		s.guard.Unlock()
		return
	}
	s.lastSent[key] = now
	suppressed := s.suppressed[key]
	delete(s.suppressed, key)
	s.guard.Unlock()

	record := r.Clone()
	if suppressed > 0 {
		record.AddAttrs(slog.Int("suppressed", suppressed))
	}
	select {
	case s.queue <- broadcast{record: record, attrs: attrs}:
	default:
	}
}

// SlogHandler forwards every record to next and broadcasts warnings and errors
// to Telegram. Broadcasts are sent by Run.
type SlogHandler struct {
	sender *sender
	next   slog.Handler
	attrs  []slog.Attr
}

func NewSlogHandler(bot *Bot, next slog.Handler) *SlogHandler {
	return newSlogHandler(bot, next, time.Now)
}

func newSlogHandler(bot broadcaster, next slog.Handler, now func() time.Time) *SlogHandler {
	return &SlogHandler{
		sender: &sender{
			bot:        bot,
			fallback:   next,
			queue:      make(chan broadcast, queueSize),
			now:        now,
			lastSent:   make(map[string]time.Time),
			suppressed: make(map[string]int),
		},
		next: next,
	}
}

// Run sends queued broadcasts until ctx is done.
func (h *SlogHandler) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case b := <-h.sender.queue:
			if err := h.sender.bot.BroadcastSlogRecord(ctx, b.record, b.attrs); err != nil {
				// logging through h would queue the failure again
				record := slog.NewRecord(time.Now(), slog.LevelError, "broadcast log record", 0)
				record.AddAttrs(slog.String("error", err.Error()))
				h.sender.fallback.Handle(ctx, record)
			}
		}
	}
}

func (h *SlogHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return l >= slog.LevelWarn || h.next.Enabled(ctx, l)
}

func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		h.sender.enqueue(r, h.attrs)
	}
	if h.next.Enabled(ctx, r.Level) {
		return h.next.Handle(ctx, r)
	}
	return nil
}

func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &SlogHandler{
		sender: h.sender,
		next:   h.next.WithAttrs(attrs),
		attrs:  append(slices.Clip(h.attrs), attrs...),
	}
}

func (h *SlogHandler) WithGroup(name string) slog.Handler {
	return &SlogHandler{
		sender: h.sender,
		next:   h.next.WithGroup(name),
		attrs:  h.attrs,
	}
}
