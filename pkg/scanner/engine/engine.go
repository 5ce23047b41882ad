// Package engine drives scans: it combines transformers, detector plugins
// and the filter chain over files, diffs and ad-hoc strings.
package engine

import (
	"context"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/CompassSecurity/codeleak/pkg/config"
	"github.com/CompassSecurity/codeleak/pkg/scanner/filters"
	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/transformers"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/acarl005/stripansi"
	"github.com/h2non/filetype"
	"github.com/rs/zerolog/log"
	"github.com/wandb/parallel"
)

// AdhocFilename is the synthetic filename attached to string scans.
const AdhocFilename = "adhoc-string-scan"

// Scanner is the orchestrator. All collaborators are injected; the engine
// holds no ambient global state.
type Scanner struct {
	plugins      *plugins.Registry
	filters      *filters.Chain
	transformers *transformers.Registry
	opts         config.ScanOptions
}

// New wires a scanner from its collaborators.
func New(reg *plugins.Registry, chain *filters.Chain, tr *transformers.Registry, opts config.ScanOptions) *Scanner {
	return &Scanner{
		plugins:      reg,
		filters:      chain,
		transformers: tr,
		opts:         opts,
	}
}

// numberedLine pairs a logical line with its 1-based source line number.
type numberedLine struct {
	number int
	text   string
}

// ScanFile scans one file. Unreadable or binary files are skipped with a
// warning, not an error. Scanning stops after the first pass that produced
// any secret; the eager transformer pass only runs when the default pass
// found nothing at all.
func (s *Scanner) ScanFile(ctx context.Context, filename string) ([]*types.PotentialSecret, error) {
	if len(s.plugins.Plugins()) == 0 {
		log.Error().Msg("No plugins to scan with!")
		return nil, nil
	}

	if s.filters.IsFilteredOut(filters.NewRequest().WithFilename(filename), filters.ParamFilename) {
		return nil, nil
	}

	f, err := os.Open(filename)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Unable to open file")
		return nil, nil
	}
	defer func() { _ = f.Close() }()

	raw, ok := readRawLines(f, filename)
	if !ok {
		return nil, nil
	}

	log.Debug().Str("filename", filename).Msg("Checking file")

	// Default pass: lazy transformers, raw lines as fallback.
	lines := s.transformers.Transform(filename, f, false)
	scanLines := lines
	if scanLines == nil {
		scanLines = raw
	}
	secrets := s.processLines(ctx, s.filters, filename, enumerate(scanLines), raw, false)
	if len(secrets) > 0 {
		return secrets, ctx.Err()
	}

	// The default pass proved fruitless; retry with eager transformers.
	lines = s.transformers.Transform(filename, f, true)
	if lines == nil {
		return secrets, ctx.Err()
	}
	return s.processLines(ctx, s.filters, filename, enumerate(lines), raw, false), ctx.Err()
}

// ScanFiles scans the given files on a bounded worker pool. Ordering across
// files is not significant; ordering within each file follows line order.
func (s *Scanner) ScanFiles(ctx context.Context, filenames []string) ([]*types.PotentialSecret, error) {
	group := parallel.Collect[[]*types.PotentialSecret](parallel.Limited(ctx, s.opts.MaxScanWorkers))

	for _, filename := range filenames {
		group.Go(func(ctx context.Context) ([]*types.PotentialSecret, error) {
			return s.ScanFile(ctx, filename)
		})
	}

	results, err := group.Wait()
	if err != nil {
		return nil, err
	}
	// Equivalent of slices.Concat(results...); stdlib slices.Concat needs Go 1.22.
	var combined []*types.PotentialSecret
	for _, r := range results {
		combined = append(combined, r...)
	}
	return combined, nil
}

// ScanString scans a literal string as a single synthetic line: no file
// context, so file-level filtering is off and eager search is forced.
func (s *Scanner) ScanString(ctx context.Context, line string) []*types.PotentialSecret {
	chain := s.filters.Without(filters.InvalidFileName, filters.BaselineFileName)
	snippet := types.NewCodeSnippet([]string{line}, 1, s.opts.SnippetContextLines)

	out := []*types.PotentialSecret{}
	for _, plugin := range s.plugins.Plugins() {
		for _, secret := range s.scanLine(ctx, chain, plugin, AdhocFilename, line, 0, snippet, nil, true) {
			req := filters.NewRequest().
				WithFilename(secret.Filename).
				WithSecret(secret.SecretValue).
				WithPlugin(plugin).
				WithLine(line).
				WithContext(snippet)
			if !chain.IsFilteredOut(req, filters.ParamContext) {
				out = append(out, secret)
			}
		}
	}
	return out
}

// processLines is the shared per-line pipeline: clean the line, prefilter by
// length, build the snippet window, apply line-level filters, then run every
// plugin. Plugins are the inner loop so a line-level suppression skips all
// of them at once.
func (s *Scanner) processLines(
	ctx context.Context,
	chain *filters.Chain,
	filename string,
	lines []numberedLine,
	rawLines []string,
	eagerSearch bool,
) []*types.PotentialSecret {
	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.text
	}

	out := []*types.PotentialSecret{}
	for i, line := range lines {
		if ctx.Err() != nil {
			return out
		}

		text := strings.TrimSpace(stripansi.Strip(line.text))
		if len(text) < s.opts.MinLineLength {
			continue
		}

		snippet := types.NewCodeSnippet(texts, i+1, s.opts.SnippetContextLines)
		var rawSnippet *types.CodeSnippet
		if rawLines != nil && line.number >= 1 && line.number <= len(rawLines) {
			rawSnippet = types.NewCodeSnippet(rawLines, line.number, s.opts.SnippetContextLines)
		}

		lineReq := filters.NewRequest().
			WithFilename(filename).
			WithLine(text).
			WithContext(snippet)
		if chain.IsFilteredOut(lineReq, filters.ParamLine) {
			continue
		}

		for _, plugin := range s.plugins.Plugins() {
			for _, secret := range s.scanLine(ctx, chain, plugin, filename, text, line.number, snippet, rawSnippet, eagerSearch) {
				req := filters.NewRequest().
					WithFilename(secret.Filename).
					WithSecret(secret.SecretValue).
					WithPlugin(plugin).
					WithLine(text).
					WithContext(snippet)
				if !chain.IsFilteredOut(req, filters.ParamContext) {
					out = append(out, secret)
				}
			}
		}
	}
	return out
}

// scanLine runs one plugin over one line and applies secret-level filtering.
func (s *Scanner) scanLine(
	ctx context.Context,
	chain *filters.Chain,
	plugin plugins.Plugin,
	filename, line string,
	lineNumber int,
	snippet, rawSnippet *types.CodeSnippet,
	eagerSearch bool,
) []*types.PotentialSecret {
	secrets := plugin.AnalyzeLine(ctx, plugins.AnalyzeRequest{
		Filename:    filename,
		Line:        line,
		LineNumber:  lineNumber,
		Context:     snippet,
		RawContext:  rawSnippet,
		EagerSearch: eagerSearch,
		Verify:      s.opts.Verify,
	})

	out := []*types.PotentialSecret{}
	for _, secret := range secrets {
		req := filters.NewRequest().
			WithFilename(secret.Filename).
			WithSecret(secret.SecretValue).
			WithPlugin(plugin).
			WithLine(line)
		if !chain.IsFilteredOut(req, filters.ParamSecret) {
			out = append(out, secret)
		}
	}
	return out
}

func enumerate(lines []string) []numberedLine {
	out := make([]numberedLine, len(lines))
	for i, line := range lines {
		out[i] = numberedLine{number: i + 1, text: line}
	}
	return out
}

// readRawLines slurps the file, rejecting binary content, and rewinds the
// stream for the transformer passes.
func readRawLines(f io.ReadSeeker, filename string) ([]string, bool) {
	data, err := io.ReadAll(f)
	if err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Unable to read file")
		return nil, false
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		log.Warn().Err(err).Str("filename", filename).Msg("Unable to rewind file")
		return nil, false
	}

	if kind, _ := filetype.Match(data); kind != filetype.Unknown {
		log.Debug().Str("filename", filename).Str("type", kind.MIME.Value).Msg("Skipping binary file")
		return nil, false
	}
	if !utf8.Valid(data) {
		log.Debug().Str("filename", filename).Msg("Skipping file with non-text content")
		return nil, false
	}

	lines := strings.Split(strings.TrimSuffix(string(data), "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, "\r")
	}
	return lines, true
}
