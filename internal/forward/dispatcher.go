package forward

import (
	"context"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/normalize"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
)

// BatchSource yields decoded live batches. The channel closes when the
// source is exhausted (stream closed for good).
type BatchSource interface {
	Batches() <-chan []model.TaggedRecord
}

// Dispatcher owns the active forwardings and pushes every batch, the
// one-shot historical one and each live one, through all of them.
type Dispatcher struct {
	forwardings []*Forwarding
	norm        *normalize.Normalizer
	logger      *selflog.Logger
}

// NewDispatcher creates a Dispatcher over the given forwardings.
func NewDispatcher(fwds []*Forwarding, norm *normalize.Normalizer, logger *selflog.Logger) *Dispatcher {
	return &Dispatcher{forwardings: fwds, norm: norm, logger: logger}
}

// Forwardings returns the active forwardings.
func (d *Dispatcher) Forwardings() []*Forwarding { return d.forwardings }

// Normalize converts a raw batch into canonical entries. Malformed records
// are dropped with a warning; they never fail the batch.
func (d *Dispatcher) Normalize(batch []model.TaggedRecord) []*model.LogEntry {
	entries := make([]*model.LogEntry, 0, len(batch))
	for _, rec := range batch {
		e, err := d.norm.Entry(rec)
		if err != nil {
			d.logger.Warnf("dropping malformed %s log record: %v", rec.Log, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries
}

// RunOnce pushes the historical batch through every forwarding. The first
// forwarding error (e.g. a syslog connection failure) is surfaced.
func (d *Dispatcher) RunOnce(history []model.TaggedRecord) error {
	entries := d.Normalize(history)
	for _, f := range d.forwardings {
		if err := f.OutputEntries(entries); err != nil {
			return err
		}
	}
	return nil
}

// RunLive consumes decoded batches from src until it is exhausted or ctx
// is cancelled. Unlike the historical pass, per-forwarding errors are
// logged and the loop continues: losing one syslog write must not stop the
// live stream for the other destinations.
func (d *Dispatcher) RunLive(ctx context.Context, src BatchSource) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch, ok := <-src.Batches():
			if !ok {
				return nil
			}
			entries := d.Normalize(batch)
			for _, f := range d.forwardings {
				if err := f.OutputEntries(entries); err != nil {
					d.logger.Errorf("live dispatch: %v", err)
				}
			}
		}
	}
}
