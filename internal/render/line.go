package render

import (
	"encoding/json"
	"strconv"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

// lineFields is the closed enumeration of field names a line format string
// may reference.
var lineFields = []string{
	"time", "label", "log", "name", "id", "user", "msg",
	"var_values", "var_types",
}

// lineHeaders are the column titles printed by console sinks.
var lineHeaders = map[string]string{
	"time":       "Time",
	"label":      "Label",
	"log":        "Log",
	"name":       "Name",
	"id":         "ID",
	"user":       "Userid",
	"msg":        "Message",
	"var_values": "Message variables",
	"var_types":  "Variable types",
}

// LineConfig configures a Line renderer for one forwarding.
type LineConfig struct {
	Format     string // named-field template, e.g. "{time:32} {label} {msg}"
	TimeFormat string // iso8601, iso8601b, syslog, or a strftime pattern
	Label      string // operator label for the source HMC
}

// Line renders entries as single formatted lines.
type Line struct {
	tmpl       *template
	formatTime timeFormatter

	// label and labelHeader are padded to a shared column width so the
	// label column lines up for the whole forwarding.
	label       string
	labelHeader string
}

// NewLine parses and validates the format and time format. All validation
// errors are UserError values raised before the first entry is rendered.
func NewLine(cfg LineConfig) (*Line, error) {
	tmpl, err := parseTemplate(cfg.Format, lineFields)
	if err != nil {
		return nil, err
	}
	formatTime, err := newTimeFormatter(cfg.TimeFormat)
	if err != nil {
		return nil, err
	}

	width := len("Label")
	if len(cfg.Label) > width {
		width = len(cfg.Label)
	}
	return &Line{
		tmpl:        tmpl,
		formatTime:  formatTime,
		label:       padRight(cfg.Label, width),
		labelHeader: padRight("Label", width),
	}, nil
}

// Render formats one entry as a line.
func (l *Line) Render(e *model.LogEntry) (string, error) {
	varValues, err := json.Marshal(e.VarValues)
	if err != nil {
		return "", err
	}
	varTypes, err := json.Marshal(e.VarTypes)
	if err != nil {
		return "", err
	}
	return l.tmpl.render(map[string]string{
		"time":       l.formatTime(e.Time),
		"label":      l.label,
		"log":        string(e.Log),
		"name":       e.Name,
		"id":         strconv.Itoa(e.ID),
		"user":       e.UserName,
		"msg":        e.Message,
		"var_values": string(varValues),
		"var_types":  string(varTypes),
	}), nil
}

// Header returns the column header line matching the configured format.
func (l *Line) Header() string {
	values := make(map[string]string, len(lineHeaders))
	for f, h := range lineHeaders {
		values[f] = h
	}
	values["label"] = l.labelHeader
	return l.tmpl.render(values)
}

func padRight(s string, width int) string {
	for len(s) < width {
		s += " "
	}
	return s
}
