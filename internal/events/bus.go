// Package events carries conversation lifecycle events to operators and other processes.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Subjects published by the bot
const (
	SubjectSurveyStarted      = "survey.started"
	SubjectSurveyCompleted    = "survey.completed"
	SubjectSurveyExportFailed = "survey.export_failed"
	SubjectSurveyReset        = "survey.reset"

	// SubjectSurveyAll matches every survey subject
	SubjectSurveyAll = "survey.>"
)

const source = "surveybot"

// Event is a message on the bus
type Event struct {
	ID        string         `json:"id"`
	Type      string         `json:"type"`
	Source    string         `json:"source"`
	Timestamp time.Time      `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// NewEvent creates an event with a fresh id and the current time
func NewEvent(eventType string, data map[string]any) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Type:      eventType,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// Handler processes one event
type Handler func(ctx context.Context, event *Event) error

// Subscription is an active subscription
type Subscription interface {
	Unsubscribe() error
	IsValid() bool
}

// Bus publishes events and fans them out to subscribers. Subjects use NATS syntax,
// with * matching one token and > matching the rest.
type Bus interface {
	Publish(ctx context.Context, subject string, event *Event) error
	Subscribe(subject string, handler Handler) (Subscription, error)
	Close()
	IsConnected() bool
}

// Publisher is the publishing half of Bus
type Publisher interface {
	Publish(ctx context.Context, subject string, event *Event) error
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, *Event) error { return nil }

// NopPublisher discards events
func NopPublisher() Publisher {
	return nopPublisher{}
}
