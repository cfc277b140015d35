package render

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/zhmctools/hmclogfwd/internal/catalog"
	"github.com/zhmctools/hmclogfwd/internal/model"
)

// cadfFields is the field enumeration for the outer CADF output template.
var cadfFields = []string{"time", "label", "cadf"}

// DefaultCADFFormat is the canonical outer template for CADF forwardings.
const DefaultCADFFormat = "{time} {label} {cadf}"

const (
	cadfEventTypeURI     = "http://schemas.dmtf.org/cloud/audit/1.0/event"
	cadfObserverID       = "hmc"
	cadfObserverTypeURI  = "service/security/logging"
	cadfInitiatorTypeURI = "data/security/account/user"
)

// cadfEvent is the DMTF CADF event shape. Field order is fixed by this
// struct so output does not depend on map iteration order.
type cadfEvent struct {
	ID             string          `json:"id"`
	TypeURI        string          `json:"typeURI"`
	EventTime      string          `json:"eventTime"`
	EventType      string          `json:"eventType"`
	Action         string          `json:"action"`
	XEventCategory string          `json:"x_eventCategory"`
	XEventType     string          `json:"x_eventType"`
	Outcome        string          `json:"outcome"`
	Observer       cadfObserver    `json:"observer"`
	XMessage       cadfMessage     `json:"x_message"`
	XCheckData     model.CheckData `json:"x_check_data"`
	Initiator      *cadfInitiator  `json:"initiator,omitempty"`
	Target         *cadfTarget     `json:"target,omitempty"`
}

type cadfObserver struct {
	ID      string `json:"id"`
	TypeURI string `json:"typeURI"`
	Name    string `json:"name"`
	XLabel  string `json:"x_label"`
}

type cadfMessage struct {
	Number    int       `json:"number"`
	Log       string    `json:"log"`
	Text      string    `json:"text"`
	VarValues []any     `json:"var_values"`
	VarTypes  []*string `json:"var_types"`
}

type cadfInitiator struct {
	ID      string `json:"id"`
	TypeURI string `json:"typeURI"`
	Name    string `json:"name"`
	Address string `json:"address"`
}

type cadfTarget struct {
	ID      string `json:"id"`
	TypeURI string `json:"typeURI"`
	Name    string `json:"name"`
	XClass  string `json:"x_class"`
}

// CADFConfig configures a CADF renderer for one forwarding.
type CADFConfig struct {
	Format       string // outer template; empty means DefaultCADFFormat
	TimeFormat   string // for the outer {time} field
	Label        string
	ObserverName string // HMC host, reported as observer.name

	// IncludeOptional forces the optional initiator and target sections
	// onto every event, not only those with an associated user.
	IncludeOptional bool

	Catalog   *catalog.Catalog
	CheckData model.CheckData
}

// CADF renders entries as single-line CADF JSON events wrapped in the
// outer output template.
type CADF struct {
	cfg        CADFConfig
	tmpl       *template
	formatTime timeFormatter
	label      string
	newID      func() string
}

// NewCADF parses and validates the outer template and time format.
func NewCADF(cfg CADFConfig) (*CADF, error) {
	format := cfg.Format
	if format == "" {
		format = DefaultCADFFormat
	}
	tmpl, err := parseTemplate(format, cadfFields)
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
	return &CADF{
		cfg:        cfg,
		tmpl:       tmpl,
		formatTime: formatTime,
		label:      padRight(cfg.Label, width),
		newID:      uuid.NewString,
	}, nil
}

// Render produces one CADF JSON line for the entry. Every call generates a
// fresh event id; retries are distinct events.
func (c *CADF) Render(e *model.LogEntry) (string, error) {
	ce, found := c.cfg.Catalog.Lookup(e.ID)
	if !found {
		ce = catalog.Unknown(e.ID)
	}

	event := cadfEvent{
		ID:             c.newID(),
		TypeURI:        cadfEventTypeURI,
		EventTime:      e.Time.Format(layoutISO8601),
		EventType:      "activity",
		Action:         ce.Action,
		XEventCategory: string(e.Log),
		XEventType:     e.Name,
		Outcome:        ce.Outcome,
		Observer: cadfObserver{
			ID:      cadfObserverID,
			TypeURI: cadfObserverTypeURI,
			Name:    c.cfg.ObserverName,
			XLabel:  e.Label,
		},
		XMessage: cadfMessage{
			Number:    e.ID,
			Log:       string(e.Log),
			Text:      e.Message,
			VarValues: e.VarValues,
			VarTypes:  e.VarTypes,
		},
		XCheckData: c.cfg.CheckData,
	}

	if e.UserName != "" || c.cfg.IncludeOptional {
		event.Initiator = &cadfInitiator{
			ID:      orUnknown(e.UserID),
			TypeURI: cadfInitiatorTypeURI,
			Name:    e.UserName,
			Address: initiatorAddress(ce, e),
		}
		event.Target = target(ce)
	}

	line, err := json.Marshal(event)
	if err != nil {
		return "", fmt.Errorf("marshalling CADF event for message %d: %w", e.ID, err)
	}
	return c.tmpl.render(map[string]string{
		"time":  c.formatTime(e.Time),
		"label": c.label,
		"cadf":  string(line),
	}), nil
}

// Header returns "": the CADF format has no tabular header.
func (c *CADF) Header() string { return "" }

// initiatorAddress resolves the initiator address from the catalogued
// substitution variable slot. Values mentioning the console or an unknown
// origin collapse to the bare "console"/"unknown" tokens.
func initiatorAddress(ce catalog.Entry, e *model.LogEntry) string {
	if ce.InitiatorAddrItem == nil {
		return "unknown"
	}
	slot := *ce.InitiatorAddrItem
	if slot < 0 || slot >= len(e.VarValues) || e.VarValues[slot] == nil {
		return "unknown"
	}
	addr := stringify(e.VarValues[slot])
	lower := strings.ToLower(addr)
	switch {
	case strings.Contains(lower, "console"):
		return "console"
	case strings.Contains(lower, "unknown"):
		return "unknown"
	}
	return addr
}

func target(ce catalog.Entry) *cadfTarget {
	t := &cadfTarget{
		TypeURI: ce.TargetType,
		XClass:  ce.TargetClass,
	}
	if ce.TargetType == "console" {
		t.ID = "console"
		t.Name = "console"
		return t
	}
	// TODO: resolve id/name of non-console targets via an HMC resource
	// lookup; until then they stay "unknown" placeholders.
	t.ID = "unknown"
	t.Name = "unknown"
	return t
}

func orUnknown(s string) string {
	if s == "" {
		return "unknown"
	}
	return s
}

func stringify(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}
