// Package filters implements the composable suppression chain applied at the
// file, line and secret checkpoints of a scan.
package filters

import (
	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/rs/zerolog/log"
)

// Param names one contextual value a filter can declare a need for.
type Param string

const (
	ParamFilename Param = "filename"
	ParamLine     Param = "line"
	ParamSecret   Param = "secret"
	ParamContext  Param = "context"
	ParamPlugin   Param = "plugin"
)

// Request carries the contextual values available at the current checkpoint.
// Only the fields the caller explicitly set count as supplied; a filter that
// declares a parameter missing from the request is skipped.
type Request struct {
	Filename string
	Line     string
	Secret   string
	Context  *types.CodeSnippet
	Plugin   plugins.Plugin

	supplied map[Param]bool
}

// NewRequest starts an empty request; chain the With* setters to mark values
// as supplied.
func NewRequest() Request {
	return Request{supplied: map[Param]bool{}}
}

func (r Request) WithFilename(filename string) Request {
	r.Filename = filename
	r.supplied[ParamFilename] = true
	return r
}

func (r Request) WithLine(line string) Request {
	r.Line = line
	r.supplied[ParamLine] = true
	return r
}

func (r Request) WithSecret(secret string) Request {
	r.Secret = secret
	r.supplied[ParamSecret] = true
	return r
}

func (r Request) WithContext(snippet *types.CodeSnippet) Request {
	r.Context = snippet
	r.supplied[ParamContext] = true
	return r
}

func (r Request) WithPlugin(p plugins.Plugin) Request {
	r.Plugin = p
	r.supplied[ParamPlugin] = true
	return r
}

// Has reports whether a value for p was supplied.
func (r Request) Has(p Param) bool {
	return r.supplied[p]
}

// Filter is a named predicate plus the parameters it declares needing.
// Returning true means "suppress".
type Filter struct {
	Name       string
	Parameters []Param
	Predicate  func(Request) (bool, error)
}

func (f Filter) declares(p Param) bool {
	for _, param := range f.Parameters {
		if param == p {
			return true
		}
	}
	return false
}

// Chain is the resolved list of active filters for a scan run.
type Chain struct {
	filters []Filter
}

// NewChain builds a chain preserving registration order.
func NewChain(filters ...Filter) *Chain {
	return &Chain{filters: filters}
}

// Filters returns the active filters in order.
func (c *Chain) Filters() []Filter {
	return c.filters
}

// Without derives a chain with the named filters removed. The receiver is
// left untouched, so scan modes can disable filters without racing each
// other.
func (c *Chain) Without(names ...string) *Chain {
	out := make([]Filter, 0, len(c.filters))
	for _, f := range c.filters {
		removed := false
		for _, name := range names {
			if f.Name == name {
				removed = true
				break
			}
		}
		if !removed {
			out = append(out, f)
		}
	}
	return &Chain{filters: out}
}

// eligible returns the filters whose declared parameter set is a superset of
// the required minimal set. A filter needing {filename, secret} runs when
// {secret} is required, but not when only {line} is: filters depending on
// not-yet-available context must wait for their checkpoint, and this also
// avoids invoking the same filter at several checkpoints.
func (c *Chain) eligible(required []Param) []Filter {
	out := []Filter{}
	for _, f := range c.filters {
		covers := true
		for _, p := range required {
			if !f.declares(p) {
				covers = false
				break
			}
		}
		if covers {
			out = append(out, f)
		}
	}
	return out
}

// IsFilteredOut runs the filters eligible for the required parameter set and
// short-circuits on the first suppression. A filter whose declared values are
// not all supplied, or whose predicate errors, counts as "does not suppress".
func (c *Chain) IsFilteredOut(req Request, required ...Param) bool {
	for _, f := range c.eligible(required) {
		applicable := true
		for _, p := range f.Parameters {
			if !req.Has(p) {
				applicable = false
				break
			}
		}
		if !applicable {
			continue
		}

		suppress, err := f.Predicate(req)
		if err != nil {
			log.Trace().Err(err).Str("filter", f.Name).Msg("Filter not applicable to supplied context")
			continue
		}
		if suppress {
			traceSuppression(f.Name, req)
			return true
		}
	}
	return false
}

func traceSuppression(name string, req Request) {
	event := log.Debug().Str("filter", name)
	switch {
	case req.Has(ParamSecret):
		event.Str("secret", req.Secret).Msg("Skipping secret")
	case req.Has(ParamLine):
		event.Msg("Skipping line")
	default:
		event.Str("filename", req.Filename).Msg("Skipping file")
	}
}
