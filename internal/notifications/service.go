// Package notifications keeps the short-lived toast messages the POS surfaces
// to staff, such as cart invalidation and checkout results.
package notifications

import (
	"sync"
	"time"

	"github.com/aarluxe/pos-cart/pkg/enums"
	"github.com/google/uuid"
)

const (
	DefaultDuration = 3 * time.Second
	maxActive       = 20
)

// Notification is one toast. A zero ExpiresAt never expires.
type Notification struct {
	ID        uuid.UUID              `json:"id"`
	Type      enums.NotificationType `json:"type"`
	Message   string                 `json:"message"`
	CreatedAt time.Time              `json:"created_at"`
	ExpiresAt time.Time              `json:"expires_at,omitempty"`
}

// Notifier is the write side used by the reconcile engine and checkout.
type Notifier interface {
	Notify(kind enums.NotificationType, message string) Notification
}

// Service defines toast operations.
type Service interface {
	Notifier
	NotifyFor(kind enums.NotificationType, message string, duration time.Duration) Notification
	Dismiss(id uuid.UUID) bool
	Active() []Notification
}

type service struct {
	mu       sync.Mutex
	items    []Notification
	duration time.Duration
	now      func() time.Time
}

// NewService builds an in-memory toast store. A non-positive duration falls
// back to DefaultDuration.
func NewService(duration time.Duration) Service {
	return newService(duration, time.Now)
}

func newService(duration time.Duration, now func() time.Time) *service {
	if duration <= 0 {
		duration = DefaultDuration
	}
	return &service{duration: duration, now: now}
}

func (s *service) Notify(kind enums.NotificationType, message string) Notification {
	return s.NotifyFor(kind, message, s.duration)
}

// NotifyFor stores a toast; duration < 0 keeps it until dismissed, 0 uses the default.
func (s *service) NotifyFor(kind enums.NotificationType, message string, duration time.Duration) Notification {
	if !kind.IsValid() {
		kind = enums.NotificationTypeInfo
	}
	if duration == 0 {
		duration = s.duration
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	n := Notification{
		ID:        uuid.New(),
		Type:      kind,
		Message:   message,
		CreatedAt: now,
	}
	if duration > 0 {
		n.ExpiresAt = now.Add(duration)
	}

	s.pruneLocked(now)
	s.items = append(s.items, n)
	if len(s.items) > maxActive {
		s.items = s.items[len(s.items)-maxActive:]
	}
	return n
}

func (s *service) Dismiss(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, n := range s.items {
		if n.ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

// Active returns unexpired toasts, oldest first.
func (s *service) Active() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked(s.now())
	out := make([]Notification, len(s.items))
	copy(out, s.items)
	return out
}

func (s *service) pruneLocked(now time.Time) {
	kept := s.items[:0]
	for _, n := range s.items {
		if n.ExpiresAt.IsZero() || now.Before(n.ExpiresAt) {
			kept = append(kept, n)
		}
	}
	s.items = kept
}
