package main

import (
	"strings"
	"testing"

	"github.com/zhmctools/hmclogfwd/internal/hmc"
	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/selflog"
)

func TestMatchTopics(t *testing.T) {
	t.Parallel()
	topics := []hmc.Topic{
		{Name: "sec.1", Type: "security-notification"},
		{Name: "aud.1", Type: "audit-notification"},
		{Name: "obj.1", Type: "object-notification"},
	}

	tests := []struct {
		name string
		logs []model.LogType
		want map[string]model.LogType
	}{
		{
			"both logs",
			[]model.LogType{model.LogSecurity, model.LogAudit},
			map[string]model.LogType{"sec.1": model.LogSecurity, "aud.1": model.LogAudit},
		},
		{
			"security only",
			[]model.LogType{model.LogSecurity},
			map[string]model.LogType{"sec.1": model.LogSecurity},
		},
		{
			"no logs",
			nil,
			map[string]model.LogType{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := matchTopics(topics, tt.logs)
			if len(got) != len(tt.want) {
				t.Fatalf("matched %v, want %v", got, tt.want)
			}
			for name, logType := range tt.want {
				if got[name] != logType {
					t.Errorf("topic %q = %q, want %q", name, got[name], logType)
				}
			}
		})
	}
}

func TestNeedsCatalog(t *testing.T) {
	t.Parallel()
	cfg := appConfig{Forwardings: []forwardingConfig{{Format: "line"}}}
	if needsCatalog(cfg) {
		t.Error("line-only config must not require a catalog")
	}
	cfg.Forwardings = append(cfg.Forwardings, forwardingConfig{Format: "cadf"})
	if !needsCatalog(cfg) {
		t.Error("a cadf forwarding requires the catalog")
	}
}

func TestRedactedConfig(t *testing.T) {
	t.Parallel()
	cfg := appConfig{HMCHost: "10.11.12.13", HMCPassword: "topsecret"}
	out := redactedConfig(cfg)
	if strings.Contains(out, "topsecret") {
		t.Error("password leaked into the debug config dump")
	}
	if !strings.Contains(out, "10.11.12.13") {
		t.Error("host missing from the debug config dump")
	}
}

func TestBuildForwardings(t *testing.T) {
	t.Parallel()
	cfg := appConfig{
		Label: "HMC1",
		Forwardings: []forwardingConfig{
			{
				Name:       "audit console",
				Logs:       []string{"audit"},
				Dest:       "stdout",
				Format:     "line",
				LineFormat: defaultLineFormat,
				TimeFormat: defaultTimeFormat,
			},
			{
				Name:       "security console",
				Logs:       []string{"security"},
				Dest:       "stderr",
				Format:     "line",
				LineFormat: defaultLineFormat,
				TimeFormat: defaultTimeFormat,
			},
		},
	}

	fwds, all, err := buildForwardings(cfg, nil, selflog.Discard())
	if err != nil {
		t.Fatalf("buildForwardings returned error: %v", err)
	}
	if len(fwds) != 2 {
		t.Fatalf("built %d forwardings, want 2", len(fwds))
	}
	if fwds[0].Name() != "audit console" || fwds[1].Name() != "security console" {
		t.Errorf("names = %q, %q", fwds[0].Name(), fwds[1].Name())
	}
	// Union in fetch order: security before audit.
	if len(all) != 2 || all[0] != model.LogSecurity || all[1] != model.LogAudit {
		t.Errorf("log union = %v", all)
	}
}

func TestBuildForwardings_BadFormat(t *testing.T) {
	t.Parallel()
	cfg := appConfig{
		Forwardings: []forwardingConfig{
			{
				Name:       "broken",
				Logs:       []string{"audit"},
				Dest:       "stdout",
				Format:     "line",
				LineFormat: "{bogus}",
				TimeFormat: defaultTimeFormat,
			},
		},
	}
	_, _, err := buildForwardings(cfg, nil, selflog.Discard())
	if err == nil {
		t.Fatal("buildForwardings should fail for an invalid line format")
	}
	if !strings.Contains(err.Error(), `forwarding "broken"`) {
		t.Errorf("error should name the forwarding: %v", err)
	}
}
