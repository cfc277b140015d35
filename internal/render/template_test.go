package render

import (
	"errors"
	"testing"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

func TestParseTemplate(t *testing.T) {
	t.Parallel()
	fields := []string{"time", "label", "msg", "id", "user"}

	tests := []struct {
		name   string
		format string
		values map[string]string
		want   string
	}{
		{
			"plain fields",
			"{time} {label} {msg}",
			map[string]string{"time": "T", "label": "L", "msg": "M"},
			"T L M",
		},
		{
			"right pad",
			"{user:6}|",
			map[string]string{"user": "bob"},
			"bob   |",
		},
		{
			"left pad",
			"{id:>4}|",
			map[string]string{"id": "17"},
			"  17|",
		},
		{
			"explicit left align",
			"{user:<5}|",
			map[string]string{"user": "bob"},
			"bob  |",
		},
		{
			"value wider than width",
			"{user:2}|",
			map[string]string{"user": "longname"},
			"longname|",
		},
		{
			"literal tail",
			"msg={msg} end",
			map[string]string{"msg": "x"},
			"msg=x end",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpl, err := parseTemplate(tt.format, fields)
			if err != nil {
				t.Fatalf("parseTemplate(%q) returned error: %v", tt.format, err)
			}
			if got := tmpl.render(tt.values); got != tt.want {
				t.Errorf("render = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseTemplate_Invalid(t *testing.T) {
	t.Parallel()
	fields := []string{"time", "msg"}

	tests := []struct {
		name   string
		format string
	}{
		{"unknown field", "{time} {bogus}"},
		{"unclosed brace", "{time} {msg"},
		{"bad width", "{time:abc}"},
		{"negative width", "{time:>-3}"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTemplate(tt.format, fields)
			if err == nil {
				t.Fatalf("parseTemplate(%q) should fail", tt.format)
			}
			var uerr *model.UserError
			if !errors.As(err, &uerr) {
				t.Errorf("error should be a UserError, got %T: %v", err, err)
			}
		})
	}
}
