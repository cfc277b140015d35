package normalize

import (
	"testing"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

func record(fields map[string]any) model.TaggedRecord {
	return model.TaggedRecord{Log: model.LogSecurity, Raw: fields}
}

func TestEntry_Basic(t *testing.T) {
	t.Parallel()
	n := New("myhmc", time.UTC)

	e, err := n.Entry(record(map[string]any{
		"event-time":    float64(1704067200000), // 2024-01-01T00:00:00Z
		"event-id":      float64(1408),
		"event-name":    "user-logon",
		"event-message": "User alice has logged on",
		"user-name":     "alice",
		"user-id":       "user-7",
	}))
	if err != nil {
		t.Fatalf("Entry returned error: %v", err)
	}
	if got := e.Time.UTC().Format(time.RFC3339); got != "2024-01-01T00:00:00Z" {
		t.Errorf("time = %s, want 2024-01-01T00:00:00Z", got)
	}
	if e.Label != "myhmc" {
		t.Errorf("label = %q, want myhmc", e.Label)
	}
	if e.Log != model.LogSecurity {
		t.Errorf("log = %q, want security", e.Log)
	}
	if e.ID != 1408 {
		t.Errorf("id = %d, want 1408", e.ID)
	}
	if e.UserName != "alice" || e.UserID != "user-7" {
		t.Errorf("user = %q/%q, want alice/user-7", e.UserName, e.UserID)
	}
}

func TestEntry_AbsentUserAndName(t *testing.T) {
	t.Parallel()
	n := New("hmc", time.UTC)

	e, err := n.Entry(record(map[string]any{
		"event-time": float64(1),
		"event-id":   float64(2),
	}))
	if err != nil {
		t.Fatalf("Entry returned error: %v", err)
	}
	if e.Name != "" || e.UserName != "" || e.UserID != "" {
		t.Errorf("absent fields should be empty strings, got name=%q user=%q id=%q",
			e.Name, e.UserName, e.UserID)
	}
}

func TestEntry_Malformed(t *testing.T) {
	t.Parallel()
	n := New("hmc", time.UTC)

	tests := []struct {
		name   string
		fields map[string]any
	}{
		{"missing event-time", map[string]any{"event-id": float64(5)}},
		{"missing event-id", map[string]any{"event-time": float64(5)}},
		{"non-numeric event-time", map[string]any{"event-time": "soon", "event-id": float64(5)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := n.Entry(record(tt.fields)); err == nil {
				t.Error("Entry should fail for malformed record")
			}
		})
	}
}

func TestEntry_DataItemSlots(t *testing.T) {
	t.Parallel()
	n := New("hmc", time.UTC)

	// Items arrive unordered with a hole at slot 1.
	e, err := n.Entry(record(map[string]any{
		"event-time": float64(1),
		"event-id":   float64(2),
		"event-data-items": []any{
			map[string]any{"data-item-number": float64(2), "data-item-value": "192.0.2.1", "data-item-type": "string"},
			map[string]any{"data-item-number": float64(0), "data-item-value": float64(42), "data-item-type": "long"},
		},
	}))
	if err != nil {
		t.Fatalf("Entry returned error: %v", err)
	}

	if len(e.VarValues) != len(e.VarTypes) {
		t.Fatalf("len(VarValues)=%d != len(VarTypes)=%d", len(e.VarValues), len(e.VarTypes))
	}
	if len(e.VarValues) != 3 {
		t.Fatalf("len(VarValues) = %d, want 3 (max slot + 1)", len(e.VarValues))
	}
	if e.VarValues[1] != nil || e.VarTypes[1] != nil {
		t.Error("slot 1 is a hole and must stay nil in both slices")
	}
	if e.VarValues[2] != "192.0.2.1" {
		t.Errorf("slot 2 value = %v, want 192.0.2.1", e.VarValues[2])
	}
	if e.VarTypes[0] == nil || *e.VarTypes[0] != model.VarTypeLong {
		t.Errorf("slot 0 type = %v, want long", e.VarTypes[0])
	}
}

func TestEntry_NoDataItems(t *testing.T) {
	t.Parallel()
	n := New("hmc", time.UTC)

	e, err := n.Entry(record(map[string]any{
		"event-time": float64(1),
		"event-id":   float64(2),
	}))
	if err != nil {
		t.Fatalf("Entry returned error: %v", err)
	}
	if len(e.VarValues) != 0 || len(e.VarTypes) != 0 {
		t.Errorf("expected empty slot slices, got %v / %v", e.VarValues, e.VarTypes)
	}
}
