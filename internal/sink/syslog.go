package sink

import (
	"fmt"
	"net"
	"strconv"

	"github.com/RackSec/srslog"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

// facilities maps syslog facility names to their numeric codes. The set
// matches what the config schema accepts; "security" is the traditional
// alias for the auth facility.
var facilities = map[string]srslog.Priority{
	"user":     srslog.LOG_USER,
	"auth":     srslog.LOG_AUTH,
	"authpriv": srslog.LOG_AUTHPRIV,
	"security": srslog.LOG_AUTH,
	"local0":   srslog.LOG_LOCAL0,
	"local1":   srslog.LOG_LOCAL1,
	"local2":   srslog.LOG_LOCAL2,
	"local3":   srslog.LOG_LOCAL3,
	"local4":   srslog.LOG_LOCAL4,
	"local5":   srslog.LOG_LOCAL5,
	"local6":   srslog.LOG_LOCAL6,
	"local7":   srslog.LOG_LOCAL7,
}

// ValidFacility reports whether name is a recognized syslog facility.
func ValidFacility(name string) bool {
	_, ok := facilities[name]
	return ok
}

// SyslogConfig describes one syslog destination.
type SyslogConfig struct {
	Host      string
	Port      int
	Transport string // "tcp" or "udp"
	Facility  string
}

// Syslog forwards rendered lines to a remote syslog server over TCP or
// UDP. Delivery is best effort: write failures are surfaced as
// ConnectionError, never retried at this level.
type Syslog struct {
	cfg    SyslogConfig
	writer *srslog.Writer
}

// NewSyslog creates a syslog sink; the connection is opened by Open.
func NewSyslog(cfg SyslogConfig) *Syslog {
	return &Syslog{cfg: cfg}
}

// Open resolves the facility name and connects to the server. The rendered
// line already carries its own time field, so the wire formatter emits the
// message body verbatim after the priority header.
func (s *Syslog) Open() error {
	facility, ok := facilities[s.cfg.Facility]
	if !ok {
		return model.Userf("unrecognized syslog facility %q", s.cfg.Facility)
	}

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	w, err := srslog.Dial(s.cfg.Transport, addr, facility|srslog.LOG_INFO, "")
	if err != nil {
		return &model.ConnectionError{
			Msg: fmt.Sprintf("cannot connect to syslog server at %s/%s",
				addr, s.cfg.Transport),
			Err: err,
		}
	}
	w.SetFormatter(func(p srslog.Priority, _, _, content string) string {
		return fmt.Sprintf("<%d>%s", p, content)
	})
	s.writer = w
	return nil
}

// Write sends one line to the server.
func (s *Syslog) Write(line string) error {
	if err := s.writer.Info(line); err != nil {
		return &model.ConnectionError{
			Msg: fmt.Sprintf("cannot write log entry to syslog server at %s:%d/%s",
				s.cfg.Host, s.cfg.Port, s.cfg.Transport),
			Err: err,
		}
	}
	return nil
}

// Close releases the socket.
func (s *Syslog) Close() error {
	if s.writer == nil {
		return nil
	}
	return s.writer.Close()
}
