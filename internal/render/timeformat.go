package render

import (
	"strings"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

// Named time format modes. Anything else is treated as a strftime-style
// pattern and translated to a Go layout at construction time.
const (
	TimeISO8601  = "iso8601"  // 2019-08-09T12:46:38.550000+02:00
	TimeISO8601B = "iso8601b" // 2019-08-09 12:46:38.550000+02:00
	TimeSyslog   = "syslog"   // Aug 09 12:46:38
)

const (
	layoutISO8601  = "2006-01-02T15:04:05.000000-07:00"
	layoutISO8601B = "2006-01-02 15:04:05.000000-07:00"
	layoutSyslog   = "Jan 02 15:04:05"
)

// timeFormatter formats entry timestamps for one forwarding.
type timeFormatter func(time.Time) string

// newTimeFormatter resolves a time_format config value. An unknown strftime
// verb is a UserError, caught here so it surfaces at startup rather than on
// the first rendered entry.
func newTimeFormatter(format string) (timeFormatter, error) {
	switch format {
	case TimeISO8601:
		return func(t time.Time) string { return t.Format(layoutISO8601) }, nil
	case TimeISO8601B:
		return func(t time.Time) string { return t.Format(layoutISO8601B) }, nil
	case TimeSyslog:
		return func(t time.Time) string { return t.Format(layoutSyslog) }, nil
	}
	layout, err := strftimeLayout(format)
	if err != nil {
		return nil, err
	}
	return func(t time.Time) string { return t.Format(layout) }, nil
}

// strftimeVerbs maps strftime conversion characters to Go layout tokens.
// %f (fractional seconds) is handled separately because Go layouts only
// recognize a fraction token directly after a '.' or ','.
var strftimeVerbs = map[byte]string{
	'a': "Mon",
	'A': "Monday",
	'b': "Jan",
	'B': "January",
	'd': "02",
	'e': "_2",
	'H': "15",
	'I': "03",
	'j': "002",
	'm': "01",
	'M': "04",
	'p': "PM",
	'S': "05",
	'y': "06",
	'Y': "2006",
	'z': "-0700",
	'Z': "MST",
	'%': "%",
}

// strftimeLayout translates a strftime pattern into a Go time layout.
func strftimeLayout(pattern string) (string, error) {
	var b strings.Builder
	for i := 0; i < len(pattern); i++ {
		c := pattern[i]
		if c != '%' {
			b.WriteByte(c)
			continue
		}
		i++
		if i >= len(pattern) {
			return "", model.Userf("time format %q ends with a bare '%%'", pattern)
		}
		verb := pattern[i]
		if verb == 'f' {
			// Valid only directly after a '.' (e.g. "%S.%f"), where the
			// dot and the zeros combine into a Go fraction token.
			out := b.String()
			if !strings.HasSuffix(out, ".") {
				return "", model.Userf(
					"time format %q: %%f must directly follow '.'", pattern)
			}
			b.WriteString("000000")
			continue
		}
		tok, ok := strftimeVerbs[verb]
		if !ok {
			return "", model.Userf(
				"time format %q contains unsupported conversion %%%c", pattern, verb)
		}
		b.WriteString(tok)
	}
	return b.String(), nil
}
