package model

import "time"

// LogType identifies which HMC log a record came from.
type LogType string

const (
	LogSecurity LogType = "security"
	LogAudit    LogType = "audit"
)

// ValidLogType reports whether s names a known HMC log.
func ValidLogType(s string) bool {
	return LogType(s) == LogSecurity || LogType(s) == LogAudit
}

// RawRecord is one log record exactly as the HMC returned it.
// Field names are the HMC's own ("event-time", "event-id", ...).
type RawRecord map[string]any

// TaggedRecord is a raw record tagged with the log it was read from.
// Tagging happens at the fetch/receive boundary because the records
// themselves do not carry their log type.
type TaggedRecord struct {
	Log LogType
	Raw RawRecord
}

// VarTypeLong, VarTypeFloat and VarTypeString are the type tags the HMC
// uses for message substitution variables.
const (
	VarTypeLong   = "long"
	VarTypeFloat  = "float"
	VarTypeString = "string"
)

// LogEntry is the canonical form of one log record, independent of any
// output format. Entries are built per batch and discarded after rendering.
//
// VarValues and VarTypes are index-correlated: index i is substitution
// variable slot i. Gaps in the HMC's item-number sequence are kept as nil
// in both slices so that slot addressing (used by the CADF renderer to
// locate e.g. the initiator address) stays stable.
type LogEntry struct {
	Time      time.Time
	Label     string
	Log       LogType
	Name      string
	ID        int
	UserName  string
	UserID    string
	Message   string
	VarValues []any
	VarTypes  []*string

	// Raw is the original record, retained only for debug rendering.
	Raw RawRecord
}

// CheckData is the operator-supplied auxiliary object attached unchanged to
// every CADF event (x_check_data). Read-only for the process lifetime.
type CheckData map[string]any
