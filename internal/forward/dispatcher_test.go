package forward

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/normalize"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
)

func rawRecord(id int, sec int) model.RawRecord {
	return model.RawRecord{
		"event-time": float64(time.Date(2024, 1, 1, 0, 0, sec, 0, time.UTC).UnixMilli()),
		"event-id":   float64(id),
	}
}

type fakeBatchSource struct {
	ch chan []model.TaggedRecord
}

func (s *fakeBatchSource) Batches() <-chan []model.TaggedRecord { return s.ch }

func TestNormalize_DropsMalformed(t *testing.T) {
	t.Parallel()
	var logbuf bytes.Buffer
	d := NewDispatcher(nil, normalize.New("hmc", time.UTC), selflog.New(&logbuf, false))

	batch := []model.TaggedRecord{
		{Log: model.LogSecurity, Raw: rawRecord(1, 10)},
		{Log: model.LogAudit, Raw: model.RawRecord{"event-id": float64(2)}}, // no event-time
		{Log: model.LogSecurity, Raw: rawRecord(3, 30)},
	}
	entries := d.Normalize(batch)
	if len(entries) != 2 {
		t.Fatalf("Normalize kept %d entries, want 2", len(entries))
	}
	if entries[0].ID != 1 || entries[1].ID != 3 {
		t.Errorf("kept ids = %d, %d", entries[0].ID, entries[1].ID)
	}
	if !strings.Contains(logbuf.String(), "dropping malformed audit log record") {
		t.Errorf("missing drop warning, log: %s", logbuf.String())
	}
}

func TestRunOnce(t *testing.T) {
	t.Parallel()
	secSink := &fakeSink{}
	audSink := &fakeSink{}
	fwds := []*Forwarding{
		New("sec", []model.LogType{model.LogSecurity}, fakeRenderer{}, secSink),
		New("aud", []model.LogType{model.LogAudit}, fakeRenderer{}, audSink),
	}
	d := NewDispatcher(fwds, normalize.New("hmc", time.UTC), selflog.Discard())

	history := []model.TaggedRecord{
		{Log: model.LogSecurity, Raw: rawRecord(1, 10)},
		{Log: model.LogAudit, Raw: rawRecord(2, 20)},
		{Log: model.LogSecurity, Raw: rawRecord(3, 30)},
	}
	if err := d.RunOnce(history); err != nil {
		t.Fatalf("RunOnce returned error: %v", err)
	}
	if len(secSink.lines) != 2 {
		t.Errorf("security forwarding wrote %v, want 2 lines", secSink.lines)
	}
	if len(audSink.lines) != 1 || audSink.lines[0] != "2 audit" {
		t.Errorf("audit forwarding wrote %v, want [2 audit]", audSink.lines)
	}
}

func TestRunOnce_SurfacesError(t *testing.T) {
	t.Parallel()
	dest := &fakeSink{writeErr: context.DeadlineExceeded}
	d := NewDispatcher(
		[]*Forwarding{New("f", []model.LogType{model.LogSecurity}, fakeRenderer{}, dest)},
		normalize.New("hmc", time.UTC), selflog.Discard())

	err := d.RunOnce([]model.TaggedRecord{{Log: model.LogSecurity, Raw: rawRecord(1, 10)}})
	if err == nil {
		t.Fatal("RunOnce should surface the forwarding error")
	}
}

func TestRunLive(t *testing.T) {
	t.Parallel()
	dest := &fakeSink{}
	d := NewDispatcher(
		[]*Forwarding{New("f", []model.LogType{model.LogSecurity, model.LogAudit}, fakeRenderer{}, dest)},
		normalize.New("hmc", time.UTC), selflog.Discard())

	src := &fakeBatchSource{ch: make(chan []model.TaggedRecord, 2)}
	src.ch <- []model.TaggedRecord{{Log: model.LogSecurity, Raw: rawRecord(1, 10)}}
	src.ch <- []model.TaggedRecord{{Log: model.LogAudit, Raw: rawRecord(2, 20)}}
	close(src.ch)

	if err := d.RunLive(context.Background(), src); err != nil {
		t.Fatalf("RunLive returned error: %v", err)
	}
	want := []string{"1 security", "2 audit"}
	if len(dest.lines) != len(want) {
		t.Fatalf("wrote %v, want %v", dest.lines, want)
	}
	for i, w := range want {
		if dest.lines[i] != w {
			t.Errorf("line[%d] = %q, want %q", i, dest.lines[i], w)
		}
	}
}

func TestRunLive_ContinuesAfterForwardingError(t *testing.T) {
	t.Parallel()
	var logbuf bytes.Buffer
	dest := &fakeSink{writeErr: context.DeadlineExceeded} // fails once, then recovers
	d := NewDispatcher(
		[]*Forwarding{New("f", []model.LogType{model.LogSecurity}, fakeRenderer{}, dest)},
		normalize.New("hmc", time.UTC), selflog.New(&logbuf, false))

	src := &fakeBatchSource{ch: make(chan []model.TaggedRecord, 2)}
	src.ch <- []model.TaggedRecord{{Log: model.LogSecurity, Raw: rawRecord(1, 10)}}
	src.ch <- []model.TaggedRecord{{Log: model.LogSecurity, Raw: rawRecord(2, 20)}}
	close(src.ch)

	if err := d.RunLive(context.Background(), src); err != nil {
		t.Fatalf("RunLive returned error: %v", err)
	}
	if !strings.Contains(logbuf.String(), "live dispatch") {
		t.Errorf("missing error log, got: %s", logbuf.String())
	}
	if len(dest.lines) != 1 || dest.lines[0] != "2 security" {
		t.Errorf("second batch should still be delivered, got %v", dest.lines)
	}
}

func TestRunLive_ContextCancel(t *testing.T) {
	t.Parallel()
	d := NewDispatcher(nil, normalize.New("hmc", time.UTC), selflog.Discard())
	src := &fakeBatchSource{ch: make(chan []model.TaggedRecord)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := d.RunLive(ctx, src); err != nil {
		t.Fatalf("RunLive returned error: %v", err)
	}
}
