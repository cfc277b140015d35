// Command hmclogfwd forwards HMC security and audit log entries to
// console streams or syslog servers, as formatted lines or CADF events,
// for a historical window and optionally as an unbounded live stream.
package main

import (
	"flag"
	"fmt"
	"os"
)

// Build variables - set by ldflags during build.
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	var (
		configPath     string
		showVersion    bool
		debug          bool
		helpConfigFile bool
		helpFormatLine bool
		helpTimeFormat bool
	)

	flag.StringVar(&configPath, "config", "", "config file path (required)")
	flag.BoolVar(&showVersion, "version", false, "print version information")
	flag.BoolVar(&debug, "debug", false, "show debug self-log messages")
	flag.BoolVar(&helpConfigFile, "help-config-file", false, "show help about the config file and exit")
	flag.BoolVar(&helpFormatLine, "help-format-line", false, "show help about the 'line' output format and exit")
	flag.BoolVar(&helpTimeFormat, "help-time-format", false, "show help about time field formatting and exit")
	flag.Parse()

	switch {
	case showVersion:
		fmt.Printf("hmclogfwd %s (commit %s, built %s)\n", version, commit, buildTime)
		return
	case helpConfigFile:
		fmt.Print(helpConfigFileText)
		return
	case helpFormatLine:
		fmt.Print(helpFormatLineText)
		return
	case helpTimeFormat:
		fmt.Printf("%s", helpTimeFormatText)
		return
	}

	if configPath == "" {
		fmt.Fprintln(os.Stderr, "Error: the -config option is required")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := runForwarder(cfg, debug); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

const helpConfigFileText = `The config file is YAML. Top-level parameters:

  hmc_host:        IP address or hostname of the HMC (required)
  hmc_user:        HMC userid (required)
  hmc_password:    HMC password (required)
  hmc_api_port:    HMC API port (default 6794)
  hmc_stomp_port:  HMC notification port (default 61612)
  hmc_verify_tls:  verify the HMC TLS certificate (default false)
  label:           label for the HMC, shown as the 'label' output field
  since:           'now', 'all', or an explicit local date/time
                   (e.g. "2026-08-11 16:00", "13:00")
  future:          wait for future log entries (default false)
  selflog_dest:    destination for self-log messages: stdout or stderr
  message_catalog: path of the HMC message catalog file (required for cadf)
  check_data:      object attached to every CADF event as x_check_data
  cadf_include_optional: always emit optional CADF sections (default false)
  status_addr:     listen address for the status HTTP endpoint (off if empty)

  forwardings:     list of log forwardings, each with:
    name:            unique name of the forwarding (required)
    logs:            subset of [security, audit] (default both)
    dest:            stdout, stderr, or syslog (required)
    syslog_host:     syslog server (for dest syslog)
    syslog_port:     syslog port (default 514)
    syslog_porttype: tcp or udp (default tcp)
    syslog_facility: syslog facility name (default user)
    format:          line or cadf (default line)
    line_format:     field template for the line format
    time_format:     format of the 'time' field
`

const helpFormatLineText = `For output format 'line', each log record is one line whose content is
defined by the 'line_format' parameter, a template with named fields in
braces. An optional width follows the field name ("{user:20}" pads right
to 20 columns, "{id:>4}" pads left).

Supported fields:

  time        time stamp of the log entry, as reported by the HMC
  label       the label configured for this HMC
  log         the HMC log this entry belongs to: security, audit
  name        name of the log entry, empty if it has none
  id          message id of the log entry
  user        HMC userid associated with the entry, empty if none
  msg         fully formatted log message
  var_values  message substitution variable values, by slot number
  var_types   message substitution variable types (long, float, string)

Example:

  line_format: '{time:32} {label} {log:8} {name:12} {id:>4} {user:20} {msg}'
`

const helpTimeFormatText = `The 'time_format' parameter controls the 'time' output field:

  iso8601   ISO 8601 with 'T' delimiter, e.g. 2026-08-09T12:46:38.550000+02:00
  iso8601b  ISO 8601 with ' ' delimiter, e.g. 2026-08-09 12:46:38.550000+02:00
  syslog    classic syslog header time, e.g. Aug 09 12:46:38

Any other value is interpreted as a strftime-style pattern with the usual
conversions (%Y %m %d %H %M %S %f %z %Z %a %A %b %B %I %j %p %y %e %%).
%f (microseconds) must directly follow '.'. Times are rendered in the
local timezone of the system running the forwarder.

Example:

  time_format: '%Y-%m-%d %H:%M:%S.%f%z'
`
