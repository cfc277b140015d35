// Package sink provides the destinations rendered log output is written
// to: console streams and remote syslog servers.
package sink

// Sink accepts rendered output lines for one forwarding. A forwarding owns
// exactly one sink for the process lifetime: Open is called once before the
// first batch, Close once on shutdown.
type Sink interface {
	Open() error
	Write(line string) error
	Close() error
}
