package normalize

import (
	"fmt"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

// Normalizer maps raw HMC log records onto canonical LogEntry values.
type Normalizer struct {
	label string
	loc   *time.Location
}

// New creates a Normalizer. label is the operator-supplied identifier for
// the source HMC; loc is the timezone used for the entry timestamps (nil
// means the local timezone, matching what the HMC GUI shows).
func New(label string, loc *time.Location) *Normalizer {
	if loc == nil {
		loc = time.Local
	}
	return &Normalizer{label: label, loc: loc}
}

// Entry converts one tagged raw record into a LogEntry.
//
// Tolerated: absent user, absent entry name, empty or non-contiguous
// data-item numbers. A record missing its timestamp or event id is
// malformed and returns an error; the caller drops it with a warning
// instead of failing the batch.
func (n *Normalizer) Entry(rec model.TaggedRecord) (*model.LogEntry, error) {
	raw := rec.Raw

	ts, ok := numField(raw, "event-time")
	if !ok {
		return nil, fmt.Errorf("record has no usable event-time field")
	}
	id, ok := numField(raw, "event-id")
	if !ok {
		return nil, fmt.Errorf("record has no usable event-id field")
	}

	entry := &model.LogEntry{
		// event-time is milliseconds since the epoch; present it in the
		// configured zone so it matches the HMC GUI.
		Time:     time.UnixMilli(int64(ts)).In(n.loc),
		Label:    n.label,
		Log:      rec.Log,
		Name:     strField(raw, "event-name"),
		ID:       int(id),
		UserName: strField(raw, "user-name"),
		UserID:   strField(raw, "user-id"),
		Message:  strField(raw, "event-message"),
		Raw:      raw,
	}

	entry.VarValues, entry.VarTypes = dataItems(raw)
	return entry, nil
}

// dataItems builds the slot-indexed substitution variable slices. The
// resulting slices always have equal length max(item-number)+1; holes in
// the item-number sequence stay nil at both positions.
func dataItems(raw model.RawRecord) ([]any, []*string) {
	items, _ := raw["event-data-items"].([]any)
	maxSlot := -1
	type item struct {
		slot  int
		value any
		typ   string
	}
	parsed := make([]item, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		num, ok := numField(m, "data-item-number")
		if !ok {
			continue
		}
		slot := int(num)
		if slot < 0 {
			continue
		}
		parsed = append(parsed, item{
			slot:  slot,
			value: m["data-item-value"],
			typ:   strField(m, "data-item-type"),
		})
		if slot > maxSlot {
			maxSlot = slot
		}
	}
	if maxSlot < 0 {
		return nil, nil
	}

	values := make([]any, maxSlot+1)
	types := make([]*string, maxSlot+1)
	for _, it := range parsed {
		values[it.slot] = it.value
		if it.typ != "" {
			t := it.typ
			types[it.slot] = &t
		}
	}
	return values, types
}

// numField reads a numeric field that may arrive as a JSON number or a
// numeric string.
func numField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case string:
		var f float64
		if _, err := fmt.Sscanf(v, "%f", &f); err == nil {
			return f, true
		}
	}
	return 0, false
}

func strField(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}
