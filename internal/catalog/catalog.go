// Package catalog provides the static HMC message catalog: semantic
// metadata (action, outcome, target) per HMC message number, used by the
// CADF renderer. The catalog is loaded once at startup and never mutated.
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/zhmctools/hmclogfwd/internal/model"
)

// Entry is the catalog record for one HMC message number.
type Entry struct {
	Number            int    `yaml:"number"`
	Message           string `yaml:"message"`
	Action            string `yaml:"action"`
	Outcome           string `yaml:"outcome"`
	TargetType        string `yaml:"target_type"`
	TargetClass       string `yaml:"target_class"`
	InitiatorAddrItem *int   `yaml:"initiator_address_item"`
}

// Catalog is an immutable lookup from HMC message number to Entry.
type Catalog struct {
	HMCVersion string
	entries    map[int]Entry
}

type catalogFile struct {
	HMCVersion string  `yaml:"hmc_version"`
	Messages   []Entry `yaml:"messages"`
}

// Load reads and validates a message catalog file. Any read or schema
// failure is a UserError: the catalog ships with the program and a broken
// one is an installation problem, not a runtime condition.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.UserError{
			Msg: fmt.Sprintf("cannot open message catalog %s", path),
			Err: err,
		}
	}
	defer f.Close()

	var doc catalogFile
	dec := yaml.NewDecoder(f)
	// Unknown top-level or per-message fields are load-time errors.
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, &model.UserError{
			Msg: fmt.Sprintf("message catalog %s is not valid", path),
			Err: err,
		}
	}

	if doc.HMCVersion == "" {
		return nil, model.Userf("message catalog %s is missing hmc_version", path)
	}

	entries := make(map[int]Entry, len(doc.Messages))
	for i, e := range doc.Messages {
		if err := validateEntry(e); err != nil {
			return nil, model.Userf(
				"message catalog %s: message[%d] (number %d): %v", path, i, e.Number, err)
		}
		entries[e.Number] = e
	}

	return &Catalog{HMCVersion: doc.HMCVersion, entries: entries}, nil
}

func validateEntry(e Entry) error {
	switch {
	case e.Number <= 0:
		return fmt.Errorf("number is required and must be positive")
	case e.Message == "":
		return fmt.Errorf("message is required")
	case e.Action == "":
		return fmt.Errorf("action is required")
	case e.Outcome == "":
		return fmt.Errorf("outcome is required")
	case e.TargetType == "":
		return fmt.Errorf("target_type is required")
	case e.TargetClass == "":
		return fmt.Errorf("target_class is required")
	}
	return nil
}

// Lookup returns the entry for an HMC message number.
func (c *Catalog) Lookup(number int) (Entry, bool) {
	e, ok := c.entries[number]
	return e, ok
}

// Len returns the number of catalogued messages.
func (c *Catalog) Len() int { return len(c.entries) }

// Unknown is the fallback entry for message numbers the catalog does not
// know. Rendering must not fail on unknown numbers, so action and outcome
// carry the literal "unknown" and everything else stays empty.
func Unknown(number int) Entry {
	return Entry{
		Number:  number,
		Action:  "unknown",
		Outcome: "unknown",
	}
}
