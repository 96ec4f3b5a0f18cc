package normalize

import (
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// Parser resolves a free-form temporal phrase relative to a base instant.
// Implementations report ok=false on a miss instead of returning an error;
// the normalizer degrades every miss to the UNKNOWN sentinel.
type Parser interface {
	Parse(phrase string, base time.Time) (time.Time, bool)
}

type naturalParser struct {
	w *when.Parser
}

// NewNaturalParser returns a Parser backed by the olebedev/when
// natural-language rules for English.
func NewNaturalParser() Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &naturalParser{w: w}
}

// Parse accepts a result only when the match covers the entire phrase, so
// partial hits fall through to the normalizer's own rules.
func (p *naturalParser) Parse(phrase string, base time.Time) (time.Time, bool) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return time.Time{}, false
	}
	r, err := p.w.Parse(phrase, base)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	if strings.TrimSpace(r.Text) != phrase {
		return time.Time{}, false
	}
	return r.Time, true
}
