// Package notify arms one-shot timers that deliver due notifications.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"
)

// Notification is a single message addressed to one user. Tag is the dedup
// key: scheduling a tag that is already pending replaces it.
type Notification struct {
	Tag    string `json:"tag"`
	Type   string `json:"type"`
	UserID string `json:"user_id"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	URL    string `json:"url,omitempty"`
}

func ChoreTag(id string) string    { return fmt.Sprintf("chore-%s-due", id) }
func ReminderTag(id string) string { return fmt.Sprintf("reminder-%s-due", id) }

// Deliverer sends notifications. Permitted is asked once and cached.
type Deliverer interface {
	Permitted() bool
	Deliver(ctx context.Context, n Notification) error
}

const deliverTimeout = 30 * time.Second

type pending struct {
	timer *time.Timer
	seq   uint64
}

// Scheduler holds one timer per tag. Construct one per process and share it.
type Scheduler struct {
	deliverer Deliverer
	logger    *slog.Logger
	now       func() time.Time

	permOnce  sync.Once
	permitted bool

	mu      sync.Mutex
	seq     uint64
	timers  map[string]pending
	stopped bool
}

func NewScheduler(d Deliverer, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		deliverer: d,
		logger:    logger,
		now:       time.Now,
		timers:    make(map[string]pending),
	}
}

// Permitted reports the cached delivery permission.
func (s *Scheduler) Permitted() bool {
	s.permOnce.Do(func() {
		s.permitted = s.deliverer.Permitted()
	})
	return s.permitted
}

// Schedule arms n to fire at at. It reports false, arming nothing, when at
// is not in the future, delivery is not permitted, or the scheduler stopped.
func (s *Scheduler) Schedule(n Notification, at time.Time) bool {
	delay := at.Sub(s.now())
	if delay <= 0 {
		return false
	}
	if !s.Permitted() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return false
	}
	if p, ok := s.timers[n.Tag]; ok {
		p.timer.Stop()
	}
	s.seq++
	seq := s.seq
	timer := time.AfterFunc(delay, func() { s.fire(n, seq) })
	s.timers[n.Tag] = pending{timer: timer, seq: seq}
	return true
}

func (s *Scheduler) fire(n Notification, seq uint64) {
	s.mu.Lock()
	p, ok := s.timers[n.Tag]
	if !ok || p.seq != seq {
		s.mu.Unlock()
		return
	}
	delete(s.timers, n.Tag)
	s.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	if err := s.deliverer.Deliver(ctx, n); err != nil {
		s.logger.Error("deliver notification", "tag", n.Tag, "user_id", n.UserID, "error", err)
		return
	}
	s.logger.Debug("notification delivered", "tag", n.Tag, "user_id", n.UserID)
}

// Cancel disarms tag and reports whether it was pending.
func (s *Scheduler) Cancel(tag string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.timers[tag]
	if !ok {
		return false
	}
	p.timer.Stop()
	delete(s.timers, tag)
	return true
}

// Pending returns the armed tags in sorted order.
func (s *Scheduler) Pending() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	tags := make([]string, 0, len(s.timers))
	for tag := range s.timers {
		tags = append(tags, tag)
	}
	slices.Sort(tags)
	return tags
}

// Stop disarms every timer. Later calls to Schedule are no-ops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopped = true
	for tag, p := range s.timers {
		p.timer.Stop()
		delete(s.timers, tag)
	}
}
