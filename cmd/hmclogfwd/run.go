package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/zhmctools/hmclogfwd/internal/catalog"
	"github.com/zhmctools/hmclogfwd/internal/forward"
	"github.com/zhmctools/hmclogfwd/internal/hmc"
	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/normalize"
	"github.com/zhmctools/hmclogfwd/internal/render"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
	"github.com/zhmctools/hmclogfwd/internal/sink"
	"github.com/zhmctools/hmclogfwd/internal/status"
	"github.com/zhmctools/hmclogfwd/internal/stream"
)

// runForwarder drives one forwarder run: historical pass first, then the
// live stream when 'future' is configured.
func runForwarder(cfg appConfig, debug bool) error {
	var selflogW io.Writer = os.Stdout
	if cfg.SelflogDest == "stderr" {
		selflogW = os.Stderr
	}
	logger := selflog.New(selflogW, debug)

	logger.Infof("hmclogfwd starting")
	logger.Infof("hmclogfwd version: %s", version)
	logger.Infof("HMC: %s, Userid: %s, Label: %s", cfg.HMCHost, cfg.HMCUser, cfg.Label)
	sinceStr := "all"
	if !cfg.SinceTime.IsZero() {
		sinceStr = cfg.SinceTime.Format("2006-01-02 15:04:05 -07:00")
	}
	logger.Infof("Since: %s, Future: %t", sinceStr, cfg.Future)
	logger.Debugf("effective config: %s", redactedConfig(cfg))

	var cat *catalog.Catalog
	if needsCatalog(cfg) {
		var err error
		cat, err = catalog.Load(cfg.MessageCatalog)
		if err != nil {
			return err
		}
		logger.Infof("Loaded message catalog %s (%d messages, HMC version %s)",
			cfg.MessageCatalog, cat.Len(), cat.HMCVersion)
	}

	fwds, allLogs, err := buildForwardings(cfg, cat, logger)
	if err != nil {
		return err
	}
	logger.Infof("Collecting these logs altogether: %s", joinLogs(allLogs))

	norm := normalize.New(cfg.Label, nil)
	dispatcher := forward.NewDispatcher(fwds, norm, logger)

	// An interrupt during live mode is a graceful shutdown request, not an
	// error; the context unblocks the receive loop promptly.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := hmc.Logon(ctx, hmc.Config{
		Host:      cfg.HMCHost,
		APIPort:   cfg.HMCAPIPort,
		StompPort: cfg.HMCStompPort,
		UserID:    cfg.HMCUser,
		Password:  cfg.HMCPassword,
		VerifyTLS: cfg.HMCVerifyTLS,
	}, logger)
	if err != nil {
		return err
	}
	// The session must be released on every exit path, including fatal
	// errors below. The run context may already be cancelled by then, so
	// logoff gets its own deadline.
	defer func() {
		logger.Infof("Logging off from HMC")
		logoffCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := session.Logoff(logoffCtx); err != nil {
			logger.Warnf("ignoring error when logging off from HMC: %v", err)
		}
	}()

	var liveState atomic.Value
	liveState.Store("historical")

	if cfg.StatusAddr != "" {
		statusServer := status.NewServer(cfg.StatusAddr, func() status.Snapshot {
			snap := status.Snapshot{
				Version:   version,
				HMC:       cfg.HMCHost,
				Label:     cfg.Label,
				LiveState: liveState.Load().(string),
			}
			for _, f := range fwds {
				snap.Forwardings = append(snap.Forwardings, status.ForwardingStatus{
					Name:      f.Name(),
					Delivered: f.Delivered(),
				})
			}
			return snap
		})
		if err := statusServer.Start(); err != nil {
			logger.Warnf("cannot start status endpoint on %s: %v", cfg.StatusAddr, err)
		} else {
			logger.Infof("Status endpoint listening on %s", cfg.StatusAddr)
			defer statusServer.Stop()
		}
	}

	for _, f := range fwds {
		if err := f.Begin(); err != nil {
			return err
		}
	}
	// Trailing output must be flushed on every exit path, before logoff
	// (deferred calls run in reverse order).
	defer func() {
		for _, f := range fwds {
			if err := f.End(); err != nil {
				logger.Warnf("ignoring error when closing forwarding output: %v", err)
			}
		}
	}()

	history, err := session.FetchHistory(ctx, allLogs, cfg.SinceTime)
	if err != nil {
		return err
	}
	logger.Infof("Retrieved %d past log entries", len(history))
	if err := dispatcher.RunOnce(history); err != nil {
		return err
	}

	if !cfg.Future {
		logger.Infof("hmclogfwd stopped")
		return nil
	}

	topics, err := session.NotificationTopics(ctx)
	if err != nil {
		return err
	}
	ctrl := stream.NewController(session, matchTopics(topics, allLogs), logger)

	liveState.Store("live")
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return ctrl.Run(gctx) })
	g.Go(func() error { return dispatcher.RunLive(gctx, ctrl) })
	err = g.Wait()
	liveState.Store("stopped")
	if err != nil {
		return err
	}

	logger.Infof("hmclogfwd stopped")
	return nil
}

func needsCatalog(cfg appConfig) bool {
	for _, f := range cfg.Forwardings {
		if f.Format == "cadf" {
			return true
		}
	}
	return false
}

// buildForwardings turns the validated config into runtime Forwarding
// objects and returns the union of all configured log types.
func buildForwardings(cfg appConfig, cat *catalog.Catalog, logger *selflog.Logger) ([]*forward.Forwarding, []model.LogType, error) {
	fwds := make([]*forward.Forwarding, 0, len(cfg.Forwardings))
	union := make(map[model.LogType]bool)

	for _, fc := range cfg.Forwardings {
		renderer, err := buildRenderer(cfg, fc, cat)
		if err != nil {
			return nil, nil, fmt.Errorf("forwarding %q: %w", fc.Name, err)
		}
		dest, destStr := buildSink(fc, renderer)

		logger.Infof("Forwarding: %q; Logs: %s; Destination: %s; Format: %s",
			fc.Name, strings.Join(fc.Logs, ", "), destStr, fc.Format)

		logs := fc.logTypes()
		fwds = append(fwds, forward.New(fc.Name, logs, renderer, dest))
		for _, l := range logs {
			union[l] = true
		}
	}

	// Deterministic fetch order: security before audit.
	all := make([]model.LogType, 0, len(union))
	for _, l := range []model.LogType{model.LogSecurity, model.LogAudit} {
		if union[l] {
			all = append(all, l)
		}
	}
	return fwds, all, nil
}

func buildRenderer(cfg appConfig, fc forwardingConfig, cat *catalog.Catalog) (render.Renderer, error) {
	switch fc.Format {
	case "cadf":
		return render.NewCADF(render.CADFConfig{
			TimeFormat:      fc.TimeFormat,
			Label:           cfg.Label,
			ObserverName:    cfg.HMCHost,
			IncludeOptional: cfg.CADFIncludeOptional,
			Catalog:         cat,
			CheckData:       model.CheckData(cfg.CheckData),
		})
	default:
		return render.NewLine(render.LineConfig{
			Format:     fc.LineFormat,
			TimeFormat: fc.TimeFormat,
			Label:      cfg.Label,
		})
	}
}

func buildSink(fc forwardingConfig, renderer render.Renderer) (sink.Sink, string) {
	switch fc.Dest {
	case "syslog":
		destStr := fmt.Sprintf("syslog (server %s, port %d/%s, facility %s)",
			fc.SyslogHost, fc.SyslogPort, fc.SyslogPortType, fc.SyslogFacility)
		return sink.NewSyslog(sink.SyslogConfig{
			Host:      fc.SyslogHost,
			Port:      fc.SyslogPort,
			Transport: fc.SyslogPortType,
			Facility:  fc.SyslogFacility,
		}), destStr
	case "stderr":
		return sink.NewConsole(os.Stderr, renderer.Header()), "stderr"
	default:
		return sink.NewConsole(os.Stdout, renderer.Header()), "stdout"
	}
}

// matchTopics picks the notification topic for each required log type.
func matchTopics(topics []hmc.Topic, logs []model.LogType) map[string]model.LogType {
	want := make(map[model.LogType]bool, len(logs))
	for _, l := range logs {
		want[l] = true
	}
	matched := make(map[string]model.LogType)
	for _, t := range topics {
		switch {
		case t.Type == "security-notification" && want[model.LogSecurity]:
			matched[t.Name] = model.LogSecurity
		case t.Type == "audit-notification" && want[model.LogAudit]:
			matched[t.Name] = model.LogAudit
		}
	}
	return matched
}

func joinLogs(logs []model.LogType) string {
	names := make([]string, 0, len(logs))
	for _, l := range logs {
		names = append(names, string(l))
	}
	return strings.Join(names, ", ")
}

// redactedConfig renders the config for debug output with the password
// blanked.
func redactedConfig(cfg appConfig) string {
	cfg.HMCPassword = "********"
	return fmt.Sprintf("%+v", cfg)
}
