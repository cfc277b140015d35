// Package hmc implements the management-endpoint collaborator: session
// lifecycle, historical log retrieval, and the live notification stream
// (JMS over STOMP) the stream controller consumes.
package hmc

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
)

const (
	// DefaultAPIPort is the HMC web-services API port.
	DefaultAPIPort = 6794

	// DefaultStompPort is the HMC notification (STOMP) port.
	DefaultStompPort = 61612
)

const sessionHeader = "X-API-Session"

// Config identifies the HMC and the credentials to log on with.
type Config struct {
	Host      string
	APIPort   int
	StompPort int
	UserID    string
	Password  string

	// VerifyTLS enables certificate verification. HMCs commonly run with
	// self-signed certificates, so the default is off.
	VerifyTLS bool
}

// Topic is one entry from the HMC's notification topic inventory.
type Topic struct {
	Name string
	Type string
}

// Session is a logged-on HMC API session. It must be released with Logoff
// on every exit path.
type Session struct {
	cfg       Config
	http      *http.Client
	sessionID string
	logger    *selflog.Logger
}

// Logon opens a session against the HMC.
func Logon(ctx context.Context, cfg Config, logger *selflog.Logger) (*Session, error) {
	if cfg.APIPort == 0 {
		cfg.APIPort = DefaultAPIPort
	}
	if cfg.StompPort == 0 {
		cfg.StompPort = DefaultStompPort
	}

	s := &Session{
		cfg: cfg,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !cfg.VerifyTLS},
			},
		},
		logger: logger,
	}

	body, err := json.Marshal(map[string]string{
		"userid":   cfg.UserID,
		"password": cfg.Password,
	})
	if err != nil {
		return nil, err
	}
	var resp map[string]any
	if err := s.do(ctx, http.MethodPost, "/api/sessions", body, &resp); err != nil {
		return nil, &model.ConnectionError{
			Msg: fmt.Sprintf("cannot log on to HMC %s", cfg.Host),
			Err: err,
		}
	}
	id, _ := resp["api-session"].(string)
	if id == "" {
		return nil, &model.ConnectionError{
			Msg: fmt.Sprintf("HMC %s logon response carried no session id", cfg.Host),
		}
	}
	s.sessionID = id
	return s, nil
}

// Logoff releases the session. Safe to call once on any exit path.
func (s *Session) Logoff(ctx context.Context) error {
	return s.do(ctx, http.MethodDelete, "/api/sessions/this-session", nil, nil)
}

// FetchHistory retrieves the requested logs since the given point in time.
// A zero since means all available past entries. Records come back tagged
// with their log type.
func (s *Session) FetchHistory(ctx context.Context, logs []model.LogType, since time.Time) ([]model.TaggedRecord, error) {
	operations := map[model.LogType]string{
		model.LogAudit:    "/api/console/operations/get-audit-log",
		model.LogSecurity: "/api/console/operations/get-security-log",
	}

	var records []model.TaggedRecord
	for _, logType := range logs {
		uri, ok := operations[logType]
		if !ok {
			continue
		}
		if !since.IsZero() {
			uri += "?begin-time=" + strconv.FormatInt(since.UnixMilli(), 10)
		}
		var resp map[string]any
		if err := s.do(ctx, http.MethodGet, uri, nil, &resp); err != nil {
			return nil, &model.ConnectionError{
				Msg: fmt.Sprintf("cannot retrieve %s log from HMC %s", logType, s.cfg.Host),
				Err: err,
			}
		}
		items, _ := resp["log-items"].([]any)
		for _, it := range items {
			fields, ok := it.(map[string]any)
			if !ok {
				continue
			}
			records = append(records, model.TaggedRecord{
				Log: logType,
				Raw: model.RawRecord(fields),
			})
		}
	}
	return records, nil
}

// NotificationTopics lists the notification topics available to this
// session.
func (s *Session) NotificationTopics(ctx context.Context) ([]Topic, error) {
	var resp map[string]any
	if err := s.do(ctx, http.MethodGet, "/api/sessions/operations/get-notification-topics", nil, &resp); err != nil {
		return nil, &model.ConnectionError{
			Msg: fmt.Sprintf("cannot list notification topics on HMC %s", s.cfg.Host),
			Err: err,
		}
	}
	items, _ := resp["topics"].([]any)
	topics := make([]Topic, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		name, _ := m["topic-name"].(string)
		typ, _ := m["topic-type"].(string)
		if name != "" {
			topics = append(topics, Topic{Name: name, Type: typ})
		}
	}
	return topics, nil
}

func (s *Session) baseURL() string {
	return "https://" + net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.APIPort))
}

func (s *Session) do(ctx context.Context, method, uri string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, s.baseURL()+uri, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.sessionID != "" {
		req.Header.Set(sessionHeader, s.sessionID)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s %s: HTTP %d: %s", method, uri, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
