// Package stream sustains the live HMC notification stream across
// disconnects and decodes notifications into tagged record batches.
package stream

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
)

// notificationTypeLogEntry is the only notification type carrying log
// records; everything else on the channel is discarded with a warning.
const notificationTypeLogEntry = "log-entry"

// DefaultReconnectDelay is the pause before re-entering the receive loop
// after an unexpected disconnect.
const DefaultReconnectDelay = 5 * time.Second

// Notification is one message from the notification channel: STOMP-style
// headers plus the decoded JSON body. A non-nil Err reports a transient
// channel fault; the controller reconnects on it.
type Notification struct {
	Headers map[string]string
	Message map[string]any
	Err     error
}

// NotificationStream is one live subscription. Notifications starts (or
// after a disconnect, restarts) a receive session; the returned channel
// closes when the session ends. The same stream object is reused across
// reconnects; subscriptions are not re-issued.
type NotificationStream interface {
	Notifications(ctx context.Context) <-chan Notification
	Close() error
}

// Subscriber creates the subscription for a set of topic names. A creation
// failure is fatal, not retriable.
type Subscriber interface {
	Subscribe(topics []string) (NotificationStream, error)
}

// Controller drives the live notification stream. It subscribes to one
// topic per required log type, decodes incoming log-entry notifications
// into tagged batches, and keeps the receive loop alive across transient
// disconnects with a fixed reconnect delay.
type Controller struct {
	sub            Subscriber
	topics         map[string]model.LogType
	reconnectDelay time.Duration
	logger         *selflog.Logger
	batches        chan []model.TaggedRecord
}

// NewController creates a Controller. topics maps each subscribed topic
// name to the log type its records carry; an empty map makes Run a no-op.
func NewController(sub Subscriber, topics map[string]model.LogType, logger *selflog.Logger) *Controller {
	return &Controller{
		sub:            sub,
		topics:         topics,
		reconnectDelay: DefaultReconnectDelay,
		logger:         logger,
		batches:        make(chan []model.TaggedRecord),
	}
}

// SetReconnectDelay overrides the reconnect pause; used by tests.
func (c *Controller) SetReconnectDelay(d time.Duration) { c.reconnectDelay = d }

// Batches returns the channel of decoded live batches. It closes when Run
// returns.
func (c *Controller) Batches() <-chan []model.TaggedRecord { return c.batches }

// Run subscribes and receives until ctx is cancelled. A subscription
// creation failure aborts immediately and is returned as fatal. Any other
// stream fault (a channel error, or the receive loop ending without an
// explicit close) triggers a logged reconnect, never a process failure.
// The stream handle is always closed on the way out; a close failure is
// only a warning.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.batches)

	if len(c.topics) == 0 {
		c.logger.Infof("no notification topics match the configured logs; live mode is a no-op")
		return nil
	}

	names := make([]string, 0, len(c.topics))
	for name := range c.topics {
		names = append(names, name)
	}
	sort.Strings(names)

	stream, err := c.sub.Subscribe(names)
	if err != nil {
		return fmt.Errorf("creating notification subscription: %w", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			c.logger.Warnf("ignoring error when closing notification stream: %v", err)
		}
	}()

	c.logger.Infof("starting to wait for future log entries (topics: %s)",
		strings.Join(names, ", "))

	for {
		c.receive(ctx, stream)
		if ctx.Err() != nil {
			c.logger.Infof("stopping to wait for future log entries")
			return nil
		}
		c.logger.Warnf("notification receiver has disconnected - reopening")
		select {
		case <-ctx.Done():
			c.logger.Infof("stopping to wait for future log entries")
			return nil
		case <-time.After(c.reconnectDelay):
		}
	}
}

// receive drains one receive session. Returning means the session ended:
// either ctx was cancelled (orderly close) or the channel closed or
// reported an error (disconnect; the caller reconnects).
func (c *Controller) receive(ctx context.Context, stream NotificationStream) {
	ch := stream.Notifications(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if n.Err != nil {
				c.logger.Warnf("notification channel error: %v", n.Err)
				return
			}
			c.handle(ctx, n)
		}
	}
}

func (c *Controller) handle(ctx context.Context, n Notification) {
	if typ := n.Headers["notification-type"]; typ != notificationTypeLogEntry {
		c.logger.Warnf("ignoring invalid notification type: %q", typ)
		return
	}

	topic := topicName(n.Headers["destination"])
	logType, ok := c.topics[topic]
	if !ok {
		c.logger.Warnf("ignoring invalid topic name: %q", topic)
		return
	}

	batch := decodeBatch(n.Message, logType)
	if len(batch) == 0 {
		return
	}
	select {
	case c.batches <- batch:
	case <-ctx.Done():
	}
}

// topicName extracts the topic from a destination header such as
// "/topic/security-log.3f2a".
func topicName(destination string) string {
	if i := strings.LastIndexByte(destination, '/'); i >= 0 {
		return destination[i+1:]
	}
	return destination
}

func decodeBatch(message map[string]any, logType model.LogType) []model.TaggedRecord {
	raw, _ := message["log-entries"].([]any)
	batch := make([]model.TaggedRecord, 0, len(raw))
	for _, r := range raw {
		fields, ok := r.(map[string]any)
		if !ok {
			continue
		}
		batch = append(batch, model.TaggedRecord{Log: logType, Raw: model.RawRecord(fields)})
	}
	return batch
}
