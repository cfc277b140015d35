package render

import (
	"strconv"
	"strings"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

// A template is a parsed named-field format string such as
// "{time:32} {label} {log:8} {id:>4} {msg}". Recognized field names are a
// fixed enumeration supplied at parse time; anything else is a UserError
// raised at forwarding construction, never at render time.
//
// The optional suffix after ':' controls padding: "{user:20}" pads right
// to 20 columns, "{id:>4}" pads left.
type template struct {
	segments []segment
}

type segment struct {
	literal string

	field      string
	width      int
	rightAlign bool
}

func parseTemplate(format string, fields []string) (*template, error) {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f] = true
	}

	var t template
	var lit strings.Builder
	rest := format
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			lit.WriteString(rest)
			break
		}
		lit.WriteString(rest[:open])
		rest = rest[open+1:]

		close := strings.IndexByte(rest, '}')
		if close < 0 {
			return nil, model.Userf("format string has an unclosed '{'")
		}
		ref := rest[:close]
		rest = rest[close+1:]

		name := ref
		spec := ""
		if i := strings.IndexByte(ref, ':'); i >= 0 {
			name, spec = ref[:i], ref[i+1:]
		}
		if !known[name] {
			return nil, model.Userf(
				"format string specifies an invalid field: %q (valid fields: %s)",
				name, strings.Join(fields, ", "))
		}

		seg := segment{field: name}
		if spec != "" {
			if strings.HasPrefix(spec, ">") {
				seg.rightAlign = true
				spec = spec[1:]
			} else {
				spec = strings.TrimPrefix(spec, "<")
			}
			w, err := strconv.Atoi(spec)
			if err != nil || w < 0 {
				return nil, model.Userf(
					"format string has an invalid width spec for field %q", name)
			}
			seg.width = w
		}

		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
		t.segments = append(t.segments, seg)
	}
	if lit.Len() > 0 {
		t.segments = append(t.segments, segment{literal: lit.String()})
	}
	return &t, nil
}

// render substitutes field values. values must cover every field name the
// template was parsed with.
func (t *template) render(values map[string]string) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.field == "" {
			b.WriteString(seg.literal)
			continue
		}
		v := values[seg.field]
		if pad := seg.width - len(v); pad > 0 {
			if seg.rightAlign {
				v = strings.Repeat(" ", pad) + v
			} else {
				v += strings.Repeat(" ", pad)
			}
		}
		b.WriteString(v)
	}
	return b.String()
}
