package client

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"

	"github.com/axonhq/axonmail/internal/mailstore"
	"github.com/axonhq/axonmail/internal/models"
)

// Feed subscribes to the backend's websocket change stream. A dropped
// connection is retried with exponential backoff; after every reconnect the
// optional OnReconnect hook runs so the consumer can reload the collection it
// may have drifted from while offline.
type Feed struct {
	url         string
	dialer      *websocket.Dialer
	OnReconnect func(ctx context.Context)
}

// NewFeed creates a feed for the websocket endpoint at url
// (e.g. ws://localhost:8080/ws).
func NewFeed(url string) *Feed {
	return &Feed{
		url:    url,
		dialer: websocket.DefaultDialer,
	}
}

type feedSubscription struct {
	cancel context.CancelFunc
	once   sync.Once
	done   chan struct{}
}

func (s *feedSubscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

// Subscribe connects and delivers change events to handler until the
// subscription is closed or ctx is cancelled. The initial connection is made
// synchronously so a dead backend is reported to the caller instead of being
// retried silently.
func (f *Feed) Subscribe(ctx context.Context, handler func(models.ChangeEvent)) (mailstore.Subscription, error) {
	conn, _, err := f.dialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return nil, err
	}

	runCtx, cancel := context.WithCancel(ctx)
	sub := &feedSubscription{
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go func() {
		defer close(sub.done)
		f.run(runCtx, conn, handler)
	}()

	return sub, nil
}

func (f *Feed) run(ctx context.Context, conn *websocket.Conn, handler func(models.ChangeEvent)) {
	for {
		f.readLoop(ctx, conn, handler)
		if ctx.Err() != nil {
			return
		}

		log.Printf("Feed: connection lost, reconnecting")
		conn = f.reconnect(ctx)
		if conn == nil {
			return
		}
		if f.OnReconnect != nil {
			f.OnReconnect(ctx)
		}
	}
}

// readLoop consumes events until the connection drops or ctx is cancelled.
func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn, handler func(models.ChangeEvent)) {
	defer conn.Close()

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var event models.ChangeEvent
		if err := json.Unmarshal(message, &event); err != nil {
			log.Printf("Feed: failed to decode event: %v", err)
			continue
		}
		handler(event)
	}
}

// reconnect dials with exponential backoff until a connection is established
// or ctx is cancelled.
func (f *Feed) reconnect(ctx context.Context) *websocket.Conn {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Second
	policy.MaxInterval = 30 * time.Second
	policy.MaxElapsedTime = 0

	var conn *websocket.Conn
	operation := func() error {
		var err error
		conn, _, err = f.dialer.DialContext(ctx, f.url, nil)
		return err
	}

	if err := backoff.Retry(operation, backoff.WithContext(policy, ctx)); err != nil {
		return nil
	}
	return conn
}
