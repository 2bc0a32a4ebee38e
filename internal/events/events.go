// Package events records domain events such as campaign.launched. Recording
// is fire-and-forget at call sites: a failing sink is logged, never returned.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/walidhousni/glavito-sub011/pkg/logx"
	"github.com/walidhousni/glavito-sub011/pkg/metrics"
	"github.com/walidhousni/glavito-sub011/pkg/model"
)

type Event struct {
	EventID     string
	EventType   string
	AggregateID string
	TenantID    string
	EventData   any
	Timestamp   time.Time
}

func New(eventType, aggregateID, tenantID string, data any, at time.Time) Event {
	return Event{
		EventID:     uuid.NewString(),
		EventType:   eventType,
		AggregateID: aggregateID,
		TenantID:    tenantID,
		EventData:   data,
		Timestamp:   at.UTC(),
	}
}

// Envelope is the stored and published form of e.
func (e Event) Envelope() (model.EventEnvelope, error) {
	data, err := json.Marshal(e.EventData)
	if err != nil {
		return model.EventEnvelope{}, err
	}
	return model.EventEnvelope{
		EventID:     e.EventID,
		EventType:   e.EventType,
		AggregateID: e.AggregateID,
		TenantID:    e.TenantID,
		Timestamp:   e.Timestamp,
		Data:        data,
	}, nil
}

type Sink interface {
	SaveEvent(ctx context.Context, e Event) error
}

// EnvelopeStore is the persistence side of StoreSink.
type EnvelopeStore interface {
	SaveEvent(ctx context.Context, env model.EventEnvelope) error
}

type StoreSink struct {
	Store EnvelopeStore
}

func (s StoreSink) SaveEvent(ctx context.Context, e Event) error {
	env, err := e.Envelope()
	if err != nil {
		return err
	}
	return s.Store.SaveEvent(ctx, env)
}

type Publisher interface {
	PublishTyped(ctx context.Context, msgType, msgID string, body []byte) error
}

// PublisherSink publishes the JSON envelope with the event type as the AMQP
// type property and the event id as message id.
type PublisherSink struct {
	Pub Publisher
}

func (p PublisherSink) SaveEvent(ctx context.Context, e Event) error {
	env, err := e.Envelope()
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return p.Pub.PublishTyped(ctx, e.EventType, e.EventID, body)
}

// Multi attempts every sink and joins their errors.
type Multi []Sink

func (m Multi) SaveEvent(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range m {
		if err := s.SaveEvent(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Record saves e to s and swallows the outcome.
func Record(ctx context.Context, s Sink, e Event) {
	if s == nil {
		return
	}
	if err := s.SaveEvent(ctx, e); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(e.EventType, "error").Inc()
		logx.L().Warnw("event_record_failed",
			"event_type", e.EventType, "aggregate_id", e.AggregateID, "err", err)
		return
	}
	metrics.EventsPublishedTotal.WithLabelValues(e.EventType, "ok").Inc()
}
