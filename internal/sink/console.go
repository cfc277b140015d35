package sink

import (
	"fmt"
	"io"
	"strings"
)

// ruleWidth is the width of the rule lines bracketing console batches.
const ruleWidth = 120

// Console writes rendered lines to stdout or stderr. For line-format
// forwardings a column header and rule bracket the output; CADF output has
// no tabular header, so header stays empty and nothing is printed around it.
type Console struct {
	w      io.Writer
	header string
}

// NewConsole creates a console sink. header is the column header line, or
// "" for formats without one.
func NewConsole(w io.Writer, header string) *Console {
	return &Console{w: w, header: header}
}

// Open prints the header and opening rule, if the format has a header.
func (c *Console) Open() error {
	if c.header == "" {
		return nil
	}
	fmt.Fprintln(c.w, c.header)
	fmt.Fprintln(c.w, strings.Repeat("-", ruleWidth))
	return nil
}

// Write prints one rendered line.
func (c *Console) Write(line string) error {
	_, err := fmt.Fprintln(c.w, line)
	return err
}

// Close prints the trailing rule, if the format has a header.
func (c *Console) Close() error {
	if c.header == "" {
		return nil
	}
	fmt.Fprintln(c.w, strings.Repeat("-", ruleWidth))
	return nil
}
