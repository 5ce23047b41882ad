// Package audit reconciles hash-only baseline records back into raw secret
// values by replaying detection against the files on disk.
package audit

import (
	"os"
	"strings"
	"sync"

	"github.com/CompassSecurity/codeleak/pkg/scanner/transformers"
)

// LineGetter caches the logical lines of one file across the reconciliation
// of every secret recorded in it.
//
// A scan may have found a secret under either transformation mode, and the
// baseline does not record which one. The getter therefore starts in the
// default mode and lets the reconciler flip it to eager; the flip invalidates
// the transformed-lines cache while the raw lines, which are mode
// independent, stay cached.
type LineGetter struct {
	filename     string
	transformers *transformers.Registry

	mu          sync.Mutex
	raw         []string
	rawLoaded   bool
	lines       []string
	linesLoaded bool
	eager       bool
}

// NewLineGetter builds an uncached getter; most callers want a
// LineGetterCache instead so two secrets in the same file share one getter.
func NewLineGetter(filename string, tr *transformers.Registry) *LineGetter {
	return &LineGetter{filename: filename, transformers: tr}
}

// RawLines returns the untouched file content, newline-stripped.
func (g *LineGetter) RawLines() ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rawLinesLocked()
}

func (g *LineGetter) rawLinesLocked() ([]string, error) {
	if g.rawLoaded {
		return g.raw, nil
	}

	data, err := os.ReadFile(g.filename)
	if err != nil {
		return nil, err
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	g.raw = lines
	g.rawLoaded = true
	return g.raw, nil
}

// Lines returns the transformed lines under the current mode, falling back
// to the raw lines when no transformer applies.
func (g *LineGetter) Lines() ([]string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.linesLoaded {
		return g.lines, nil
	}

	raw, err := g.rawLinesLocked()
	if err != nil {
		return nil, err
	}

	f, err := os.Open(g.filename)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	lines := g.transformers.Transform(g.filename, f, g.eager)
	if lines == nil {
		lines = raw
	}
	g.lines = lines
	g.linesLoaded = true
	return g.lines, nil
}

// HasCachedLines reports whether a transformed result is currently cached.
func (g *LineGetter) HasCachedLines() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.linesLoaded
}

// UseEagerTransformers reports the current transformation mode.
func (g *LineGetter) UseEagerTransformers() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.eager
}

// SetUseEagerTransformers switches the transformation mode. A mode change
// invalidates the transformed-lines cache; the raw lines always survive.
func (g *LineGetter) SetUseEagerTransformers(eager bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.eager == eager {
		return
	}
	g.eager = eager
	g.lines = nil
	g.linesLoaded = false
}

// LineGetterCache memoizes one LineGetter per filename for the lifetime of
// an audit session.
type LineGetterCache struct {
	transformers *transformers.Registry

	mu      sync.Mutex
	getters map[string]*LineGetter
}

func NewLineGetterCache(tr *transformers.Registry) *LineGetterCache {
	return &LineGetterCache{
		transformers: tr,
		getters:      map[string]*LineGetter{},
	}
}

// Open returns the cached getter for filename, creating it on first use.
func (c *LineGetterCache) Open(filename string) *LineGetter {
	c.mu.Lock()
	defer c.mu.Unlock()

	getter, ok := c.getters[filename]
	if !ok {
		getter = NewLineGetter(filename, c.transformers)
		c.getters[filename] = getter
	}
	return getter
}
