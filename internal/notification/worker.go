package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"chemviz-backend/internal/logging"
	"chemviz-backend/internal/model"
	"chemviz-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// Event announces a committed dataset to push subscribers.
type Event struct {
	DatasetID    string `json:"dataset_id"`
	Filename     string `json:"filename"`
	TotalRecords int    `json:"total_records"`
}

type payload struct {
	Title string `json:"title"`
	Body  string `json:"body"`
	Event
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan Event
	store   store.Store
	webpush *webpush.Options
	sender  NotificationSender
	log     zerolog.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s store.Store, webpushOptions *webpush.Options) *WorkerPool {
	if size < 1 {
		size = 1
	}
	return &WorkerPool{
		size:    size,
		jobs:    make(chan Event, size*4),
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
		log:     logging.With("notification"),
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.log.With().Int("worker", id).Logger()
	log.Debug().Msg("worker started")
	for {
		select {
		case ev := <-wp.jobs:
			wp.notifySubscribers(ctx, ev)
		case <-ctx.Done():
			log.Debug().Msg("worker shutting down")
			return
		}
	}
}

// Dispatch queues an event without blocking. It reports false when the
// queue is full and the event was dropped.
func (wp *WorkerPool) Dispatch(ev Event) bool {
	select {
	case wp.jobs <- ev:
		return true
	default:
		wp.log.Warn().Str("dataset_id", ev.DatasetID).Msg("notification queue full, event dropped")
		return false
	}
}

// DatasetIngested queues a notification for a committed dataset. It has the
// shape of a service commit listener.
func (wp *WorkerPool) DatasetIngested(ds *model.Dataset) {
	wp.Dispatch(Event{
		DatasetID:    ds.ID,
		Filename:     ds.Filename,
		TotalRecords: ds.TotalRecords,
	})
}

func (wp *WorkerPool) notifySubscribers(ctx context.Context, ev Event) {
	subscriptions, err := wp.store.ListSubscriptions(ctx)
	if err != nil {
		wp.log.Error().Err(err).Str("dataset_id", ev.DatasetID).Msg("list subscriptions")
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	body, err := json.Marshal(payload{
		Title: "New dataset ingested",
		Body:  fmt.Sprintf("%s: %d records", ev.Filename, ev.TotalRecords),
		Event: ev,
	})
	if err != nil {
		wp.log.Error().Err(err).Msg("encode notification")
		return
	}

	wp.log.Info().
		Str("dataset_id", ev.DatasetID).
		Int("subscribers", len(subscriptions)).
		Msg("sending notifications")
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, body)
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, body []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(body, wpSub, wp.webpush)
	if err != nil {
		wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("send notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.log.Error().Err(err).Str("endpoint", sub.Endpoint).Msg("delete expired subscription")
		}
	}
}
