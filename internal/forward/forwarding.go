// Package forward binds log-type filters, renderers and sinks into
// forwardings and dispatches normalized batches to all of them.
package forward

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/render"
	"github.com/zhmctools/hmclogfwd/internal/sink"
)

// Forwarding is one configured (log-type filter, renderer, destination)
// binding. It owns its sink for the process lifetime: Begin opens it once
// before the first batch, End closes it on shutdown.
type Forwarding struct {
	name      string
	logs      map[model.LogType]bool
	renderer  render.Renderer
	dest      sink.Sink
	delivered atomic.Int64
}

// New creates a Forwarding. logs must be a non-empty subset of
// {security, audit}; the config layer has validated that already.
func New(name string, logs []model.LogType, r render.Renderer, dest sink.Sink) *Forwarding {
	set := make(map[model.LogType]bool, len(logs))
	for _, l := range logs {
		set[l] = true
	}
	return &Forwarding{name: name, logs: set, renderer: r, dest: dest}
}

// Name returns the forwarding's configured name.
func (f *Forwarding) Name() string { return f.name }

// Delivered returns the number of lines written to the sink so far.
func (f *Forwarding) Delivered() int64 { return f.delivered.Load() }

// Begin opens the destination and writes any opening framing.
func (f *Forwarding) Begin() error {
	if err := f.dest.Open(); err != nil {
		return fmt.Errorf("forwarding %q: %w", f.name, err)
	}
	return nil
}

// End writes any trailing framing and closes the destination.
func (f *Forwarding) End() error {
	if err := f.dest.Close(); err != nil {
		return fmt.Errorf("forwarding %q: %w", f.name, err)
	}
	return nil
}

// OutputEntries forwards one batch: entries are filtered to the
// forwarding's log types, sorted by time ascending (stable, so ties keep
// their batch order), rendered, and written in order. A render that yields
// no output is skipped without writing. The first write error aborts the
// batch and is surfaced to the caller.
func (f *Forwarding) OutputEntries(batch []*model.LogEntry) error {
	selected := make([]*model.LogEntry, 0, len(batch))
	for _, e := range batch {
		if f.logs[e.Log] {
			selected = append(selected, e)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].Time.Before(selected[j].Time)
	})

	for _, e := range selected {
		line, err := f.renderer.Render(e)
		if err != nil {
			return fmt.Errorf("forwarding %q: rendering entry id %d: %w", f.name, e.ID, err)
		}
		if line == "" {
			continue
		}
		if err := f.dest.Write(line); err != nil {
			return fmt.Errorf("forwarding %q: %w", f.name, err)
		}
		f.delivered.Add(1)
	}
	return nil
}
