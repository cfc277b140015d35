package sink

import (
	"errors"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

func TestSyslog_UDPWireFormat(t *testing.T) {
	t.Parallel()
	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	port := conn.LocalAddr().(*net.UDPAddr).Port

	s := NewSyslog(SyslogConfig{
		Host:      "127.0.0.1",
		Port:      port,
		Transport: "udp",
		Facility:  "user",
	})
	if err := s.Open(); err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer s.Close()

	line := "2019-08-09 12:46:38.550000+0200 HMC1 security 1408 alice User alice has logged on"
	if err := s.Write(line); err != nil {
		t.Fatalf("Write returned error: %v", err)
	}

	buf := make([]byte, 4096)
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	n, _, err := conn.ReadFrom(buf)
	if err != nil {
		t.Fatalf("reading datagram: %v", err)
	}

	// facility user (8) + severity info (6) = priority 14; the body follows
	// verbatim because the rendered line already carries its time field.
	got := strings.TrimRight(string(buf[:n]), "\n")
	want := "<14>" + line
	if got != want {
		t.Errorf("wire message = %q, want %q", got, want)
	}
}

func TestSyslog_OpenBadFacility(t *testing.T) {
	t.Parallel()
	s := NewSyslog(SyslogConfig{Host: "127.0.0.1", Port: 514, Transport: "udp", Facility: "kern"})
	err := s.Open()
	if err == nil {
		t.Fatal("Open should fail for an unrecognized facility")
	}
	var uerr *model.UserError
	if !errors.As(err, &uerr) {
		t.Errorf("error should be a UserError, got %T: %v", err, err)
	}
}

func TestSyslog_OpenConnectFailure(t *testing.T) {
	t.Parallel()
	// Grab a free TCP port and close it again so the dial is refused.
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	l.Close()

	s := NewSyslog(SyslogConfig{Host: "127.0.0.1", Port: port, Transport: "tcp", Facility: "user"})
	err = s.Open()
	if err == nil {
		s.Close()
		t.Fatal("Open should fail when the server is unreachable")
	}
	var cerr *model.ConnectionError
	if !errors.As(err, &cerr) {
		t.Errorf("error should be a ConnectionError, got %T: %v", err, err)
	}
	if !strings.Contains(err.Error(), "127.0.0.1:"+strconv.Itoa(port)) {
		t.Errorf("error should name the server address: %v", err)
	}
}
