package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/zhmctools/hmclogfwd/internal/model"
	"github.com/zhmctools/hmclogfwd/internal/sink"
)

const (
	defaultLineFormat = "{time:32} {label} {log:8} {name:12} {id:>4} {user:20} {msg}"
	defaultTimeFormat = "%Y-%m-%d %H:%M:%S.%f%z"
)

// appConfig is the validated configuration for one forwarder run.
type appConfig struct {
	HMCHost      string `mapstructure:"hmc_host"`
	HMCUser      string `mapstructure:"hmc_user"`
	HMCPassword  string `mapstructure:"hmc_password"`
	HMCAPIPort   int    `mapstructure:"hmc_api_port"`
	HMCStompPort int    `mapstructure:"hmc_stomp_port"`
	HMCVerifyTLS bool   `mapstructure:"hmc_verify_tls"`

	Label  string `mapstructure:"label"`
	Since  string `mapstructure:"since"`
	Future bool   `mapstructure:"future"`

	SelflogDest string `mapstructure:"selflog_dest"`

	// MessageCatalog is the path of the HMC message catalog file; required
	// when any forwarding uses the cadf format.
	MessageCatalog string `mapstructure:"message_catalog"`

	// CheckData is attached unchanged to every CADF event (x_check_data).
	CheckData map[string]any `mapstructure:"check_data"`

	// CADFIncludeOptional forces initiator/target onto every CADF event.
	CADFIncludeOptional bool `mapstructure:"cadf_include_optional"`

	// StatusAddr enables the status HTTP endpoint when non-empty.
	StatusAddr string `mapstructure:"status_addr"`

	Forwardings []forwardingConfig `mapstructure:"forwardings"`

	ConfigPath string `mapstructure:"-"`

	// SinceTime is the resolved history window start; zero means all
	// available past entries.
	SinceTime time.Time `mapstructure:"-"`
}

// forwardingConfig is one entry of the forwardings list.
type forwardingConfig struct {
	Name           string   `mapstructure:"name"`
	Logs           []string `mapstructure:"logs"`
	Dest           string   `mapstructure:"dest"` // stdout, stderr, syslog
	SyslogHost     string   `mapstructure:"syslog_host"`
	SyslogPort     int      `mapstructure:"syslog_port"`
	SyslogPortType string   `mapstructure:"syslog_porttype"` // tcp, udp
	SyslogFacility string   `mapstructure:"syslog_facility"`
	Format         string   `mapstructure:"format"` // line, cadf
	LineFormat     string   `mapstructure:"line_format"`
	TimeFormat     string   `mapstructure:"time_format"`
}

func loadConfig(configPath string) (appConfig, error) {
	var cfg appConfig

	v := viper.New()
	v.SetEnvPrefix("HMCLOGFWD")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))

	v.SetDefault("since", "now")
	v.SetDefault("future", false)
	v.SetDefault("selflog_dest", "stdout")
	v.SetDefault("cadf_include_optional", false)

	v.SetConfigFile(configPath)
	if err := v.ReadInConfig(); err != nil {
		if os.IsNotExist(err) {
			return cfg, model.Userf("config file %s does not exist", configPath)
		}
		return cfg, &model.UserError{
			Msg: fmt.Sprintf("cannot load config file %s", configPath),
			Err: err,
		}
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, &model.UserError{
			Msg: fmt.Sprintf("config file %s has an invalid structure", configPath),
			Err: err,
		}
	}
	cfg.ConfigPath = v.ConfigFileUsed()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *appConfig) validate() error {
	if c.HMCHost == "" {
		return model.Userf("config parameter 'hmc_host' is required")
	}
	if c.HMCUser == "" {
		return model.Userf("config parameter 'hmc_user' is required")
	}
	if c.HMCPassword == "" {
		return model.Userf("config parameter 'hmc_password' is required")
	}
	if c.SelflogDest != "stdout" && c.SelflogDest != "stderr" {
		return model.Userf("config parameter 'selflog_dest' must be stdout or stderr, got %q",
			c.SelflogDest)
	}

	since, err := parseSince(c.Since)
	if err != nil {
		return err
	}
	c.SinceTime = since

	names := make(map[string]bool, len(c.Forwardings))
	needCatalog := false
	for i := range c.Forwardings {
		f := &c.Forwardings[i]
		if err := f.normalize(); err != nil {
			return err
		}
		if names[f.Name] {
			return model.Userf("forwarding name %q is used more than once", f.Name)
		}
		names[f.Name] = true
		if f.Format == "cadf" {
			needCatalog = true
		}
	}
	if needCatalog && c.MessageCatalog == "" {
		return model.Userf(
			"config parameter 'message_catalog' is required when a forwarding uses the cadf format")
	}
	return nil
}

// normalize applies per-forwarding defaults and validates the entry.
func (f *forwardingConfig) normalize() error {
	if f.Name == "" {
		return model.Userf("a forwarding is missing its 'name'")
	}
	if len(f.Logs) == 0 {
		f.Logs = []string{string(model.LogSecurity), string(model.LogAudit)}
	}
	for _, l := range f.Logs {
		if !model.ValidLogType(l) {
			return model.Userf("forwarding %q lists unknown log %q (valid: security, audit)",
				f.Name, l)
		}
	}

	switch f.Dest {
	case "stdout", "stderr":
	case "syslog":
		if f.SyslogHost == "" {
			return model.Userf("forwarding %q has dest syslog but no 'syslog_host'", f.Name)
		}
		if f.SyslogPort == 0 {
			f.SyslogPort = 514
		}
		if f.SyslogPort < 1 || f.SyslogPort > 65535 {
			return model.Userf("forwarding %q has invalid syslog_port %d", f.Name, f.SyslogPort)
		}
		if f.SyslogPortType == "" {
			f.SyslogPortType = "tcp"
		}
		if f.SyslogPortType != "tcp" && f.SyslogPortType != "udp" {
			return model.Userf("forwarding %q has invalid syslog_porttype %q (valid: tcp, udp)",
				f.Name, f.SyslogPortType)
		}
		if f.SyslogFacility == "" {
			f.SyslogFacility = "user"
		}
		if !sink.ValidFacility(f.SyslogFacility) {
			return model.Userf("forwarding %q has unrecognized syslog_facility %q",
				f.Name, f.SyslogFacility)
		}
	case "":
		return model.Userf("forwarding %q is missing its 'dest'", f.Name)
	default:
		return model.Userf("forwarding %q has invalid dest %q (valid: stdout, stderr, syslog)",
			f.Name, f.Dest)
	}

	switch f.Format {
	case "":
		f.Format = "line"
	case "line", "cadf":
	default:
		return model.Userf("forwarding %q has invalid format %q (valid: line, cadf)",
			f.Name, f.Format)
	}

	if f.LineFormat == "" {
		f.LineFormat = defaultLineFormat
	}
	if f.TimeFormat == "" {
		f.TimeFormat = defaultTimeFormat
	}
	return nil
}

func (f *forwardingConfig) logTypes() []model.LogType {
	logs := make([]model.LogType, 0, len(f.Logs))
	for _, l := range f.Logs {
		logs = append(logs, model.LogType(l))
	}
	return logs
}

// sinceLayouts are the accepted explicit forms of the 'since' parameter,
// interpreted in the local timezone.
var sinceLayouts = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"15:04:05",
	"15:04",
}

// parseSince resolves the 'since' config parameter. The zero time means
// all available past entries.
func parseSince(since string) (time.Time, error) {
	switch since {
	case "all":
		return time.Time{}, nil
	case "now", "":
		return time.Now(), nil
	}
	for _, layout := range sinceLayouts {
		t, err := time.ParseInLocation(layout, since, time.Local)
		if err != nil {
			continue
		}
		// Time-only layouts mean "today at that time".
		if t.Year() == 0 {
			now := time.Now()
			t = time.Date(now.Year(), now.Month(), now.Day(),
				t.Hour(), t.Minute(), t.Second(), 0, time.Local)
		}
		return t, nil
	}
	return time.Time{}, model.Userf(
		"config parameter 'since' has an invalid date & time value: %q", since)
}
