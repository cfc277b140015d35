package hmc

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"net"
	"strconv"
	"sync"

	"github.com/go-stomp/stomp/v3"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
	"github.com/zhmctools/hmclogfwd/internal/stream"
)

// Subscribe creates the live notification subscription for the given topic
// names. The HMC delivers notifications over STOMP, authenticated with the
// userid and the API session id. A creation failure here is fatal to live
// mode; later disconnects are handled by the receiver itself.
func (s *Session) Subscribe(topics []string) (stream.NotificationStream, error) {
	r := &Receiver{
		addr:      net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.StompPort)),
		login:     s.cfg.UserID,
		passcode:  s.sessionID,
		verifyTLS: s.cfg.VerifyTLS,
		topics:    topics,
		logger:    s.logger,
	}
	if err := r.connect(); err != nil {
		return nil, err
	}
	return r, nil
}

// Receiver is a live STOMP subscription to one or more notification
// topics. One Receiver is reused across disconnects: each Notifications
// call re-enters the receive loop, re-dialing only if the previous session
// died.
type Receiver struct {
	addr      string
	login     string
	passcode  string
	verifyTLS bool
	topics    []string
	logger    *selflog.Logger

	mu   sync.Mutex
	conn *stomp.Conn
	subs []*stomp.Subscription
}

func (r *Receiver) connect() error {
	sock, err := tls.Dial("tcp", r.addr, &tls.Config{InsecureSkipVerify: !r.verifyTLS})
	if err != nil {
		return &model.StreamError{
			Msg: "cannot connect to notification port " + r.addr,
			Err: err,
		}
	}
	conn, err := stomp.Connect(sock, stomp.ConnOpt.Login(r.login, r.passcode))
	if err != nil {
		sock.Close()
		return &model.StreamError{
			Msg: "STOMP connect to " + r.addr + " failed",
			Err: err,
		}
	}

	subs := make([]*stomp.Subscription, 0, len(r.topics))
	for _, topic := range r.topics {
		sub, err := conn.Subscribe("/topic/"+topic, stomp.AckAuto)
		if err != nil {
			conn.Disconnect()
			return &model.StreamError{
				Msg: "cannot subscribe to notification topic " + topic,
				Err: err,
			}
		}
		subs = append(subs, sub)
	}

	r.mu.Lock()
	r.conn = conn
	r.subs = subs
	r.mu.Unlock()
	return nil
}

// drop tears down a dead session so the next Notifications call re-dials.
func (r *Receiver) drop() {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.subs = nil
	r.mu.Unlock()
	if conn != nil {
		_ = conn.Disconnect()
	}
}

// Close disconnects the receiver for good.
func (r *Receiver) Close() error {
	r.mu.Lock()
	conn := r.conn
	r.conn = nil
	r.subs = nil
	r.mu.Unlock()
	if conn == nil {
		return nil
	}
	return conn.Disconnect()
}

// Notifications starts one receive session. The returned channel closes
// when the session ends: on context cancellation (orderly) or when the
// broker connection dies (the controller then reconnects).
func (r *Receiver) Notifications(ctx context.Context) <-chan stream.Notification {
	out := make(chan stream.Notification)
	go r.run(ctx, out)
	return out
}

func (r *Receiver) run(ctx context.Context, out chan<- stream.Notification) {
	defer close(out)

	r.mu.Lock()
	connected := r.conn != nil
	subs := r.subs
	r.mu.Unlock()

	if !connected {
		if err := r.connect(); err != nil {
			select {
			case out <- stream.Notification{Err: err}:
			case <-ctx.Done():
			}
			return
		}
		r.mu.Lock()
		subs = r.subs
		r.mu.Unlock()
	}

	sessionCtx, endSession := context.WithCancel(ctx)
	defer endSession()

	merged := make(chan stream.Notification)
	var wg sync.WaitGroup
	for _, sub := range subs {
		wg.Add(1)
		go func(sub *stomp.Subscription) {
			defer wg.Done()
			r.pump(sessionCtx, sub, merged, endSession)
		}(sub)
	}
	go func() {
		wg.Wait()
		close(merged)
	}()

	disconnected := false
	for n := range merged {
		if n.Err != nil {
			disconnected = true
		}
		select {
		case out <- n:
		case <-ctx.Done():
		}
	}
	if disconnected || ctx.Err() == nil {
		// The session ended without an explicit close; drop the dead
		// connection so the next session re-dials.
		r.drop()
	}
}

// pump forwards one subscription's messages into the merged channel until
// the session ends.
func (r *Receiver) pump(ctx context.Context, sub *stomp.Subscription, merged chan<- stream.Notification, endSession func()) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.C:
			if !ok {
				endSession()
				return
			}
			if msg.Err != nil {
				select {
				case merged <- stream.Notification{Err: &model.StreamError{
					Msg: "notification subscription fault",
					Err: msg.Err,
				}}:
				case <-ctx.Done():
				}
				endSession()
				return
			}
			select {
			case merged <- r.decode(msg):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (r *Receiver) decode(msg *stomp.Message) stream.Notification {
	headers := map[string]string{
		"destination": msg.Destination,
	}
	if msg.Header != nil {
		if t := msg.Header.Get("notification-type"); t != "" {
			headers["notification-type"] = t
		}
	}

	var body map[string]any
	if len(msg.Body) > 0 {
		if err := json.Unmarshal(msg.Body, &body); err != nil {
			r.logger.Warnf("discarding notification with undecodable body: %v", err)
			body = nil
		}
	}
	return stream.Notification{Headers: headers, Message: body}
}
