package events

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"

	"go.uber.org/zap"

	"surveybot/internal/logger"
)

var ErrBusClosed = errors.New("event bus is closed")

// MemoryBus delivers events to in-process subscribers, each on its own goroutine
type MemoryBus struct {
	mu     sync.RWMutex
	subs   map[string][]*memorySubscription
	logger *logger.Logger
	closed bool
}

type memorySubscription struct {
	bus     *MemoryBus
	subject string
	pattern *regexp.Regexp
	handler Handler

	mu     sync.Mutex
	active bool
}

// NewMemoryBus creates an in-memory bus
func NewMemoryBus(log *logger.Logger) *MemoryBus {
	return &MemoryBus{
		subs:   make(map[string][]*memorySubscription),
		logger: log,
	}
}

// Publish hands the event to every matching subscriber
func (b *MemoryBus) Publish(ctx context.Context, subject string, event *Event) error {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return ErrBusClosed
	}

	for pattern, subs := range b.subs {
		for _, sub := range subs {
			if !sub.IsValid() || !matches(subject, pattern, sub.pattern) {
				continue
			}
			go func(s *memorySubscription) {
				if err := s.handler(context.WithoutCancel(ctx), event); err != nil {
					b.logger.Error("Event handler error",
						zap.String("subject", subject),
						zap.Error(err))
				}
			}(sub)
		}
	}

	b.logger.Debug("Published event",
		zap.String("subject", subject),
		zap.String("event_id", event.ID))
	return nil
}

// Subscribe registers handler for subject, which may contain wildcards
func (b *MemoryBus) Subscribe(subject string, handler Handler) (Subscription, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, ErrBusClosed
	}

	sub := &memorySubscription{
		bus:     b,
		subject: subject,
		pattern: compilePattern(subject),
		handler: handler,
		active:  true,
	}
	b.subs[subject] = append(b.subs[subject], sub)
	return sub, nil
}

// Close deactivates all subscriptions
func (b *MemoryBus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, subs := range b.subs {
		for _, sub := range subs {
			sub.mu.Lock()
			sub.active = false
			sub.mu.Unlock()
		}
	}
	b.subs = make(map[string][]*memorySubscription)
}

// IsConnected reports whether the bus is still open
func (b *MemoryBus) IsConnected() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return !b.closed
}

func (s *memorySubscription) Unsubscribe() error {
	s.mu.Lock()
	s.active = false
	s.mu.Unlock()

	s.bus.mu.Lock()
	defer s.bus.mu.Unlock()
	subs := s.bus.subs[s.subject]
	for i, sub := range subs {
		if sub == s {
			s.bus.subs[s.subject] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	return nil
}

func (s *memorySubscription) IsValid() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func matches(subject, pattern string, re *regexp.Regexp) bool {
	if re == nil {
		return subject == pattern
	}
	return re.MatchString(subject)
}

// compilePattern turns a NATS wildcard subject into an anchored regexp, nil for literals
func compilePattern(pattern string) *regexp.Regexp {
	if !strings.ContainsAny(pattern, "*>") {
		return nil
	}
	escaped := regexp.QuoteMeta(pattern)
	escaped = strings.ReplaceAll(escaped, `\*`, `[^.]+`)
	escaped = strings.ReplaceAll(escaped, `>`, `.+`)
	re, err := regexp.Compile("^" + escaped + "$")
	if err != nil {
		return nil
	}
	return re
}
