package engine

import (
	"context"
	"os"
	"strings"

	"github.com/CompassSecurity/codeleak/pkg/scanner/filters"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/rs/zerolog/log"
)

// ScanAllowlistedFile surfaces secrets hiding behind allowlist pragmas.
// Developers can mute individual lines with `pragma: allowlist secret`; this
// mode scans exactly those lines with the allowlist filter disabled, to
// audit that no real secret slipped into the codebase through the allowlist
// mechanism itself.
func (s *Scanner) ScanAllowlistedFile(ctx context.Context, filename string) ([]*types.PotentialSecret, error) {
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

	// We already know which lines we want, so eager transformers never help
	// here: only the default pass runs.
	lines := s.transformers.Transform(filename, f, false)
	if lines == nil {
		lines = raw
	}
	return s.scanAllowlistedLines(ctx, filename, enumerate(lines)), ctx.Err()
}

// ScanAllowlistedDiff is the diff-shaped variant of ScanAllowlistedFile.
func (s *Scanner) ScanAllowlistedDiff(ctx context.Context, diff string) ([]*types.PotentialSecret, error) {
	out := []*types.PotentialSecret{}
	for _, file := range parseAddedLines(diff) {
		if s.filters.IsFilteredOut(filters.NewRequest().WithFilename(file.name), filters.ParamFilename) {
			continue
		}
		out = append(out, s.scanAllowlistedLines(ctx, file.name, file.lines)...)
	}
	return out, ctx.Err()
}

func (s *Scanner) scanAllowlistedLines(ctx context.Context, filename string, lines []numberedLine) []*types.PotentialSecret {
	chain := s.filters.Without(filters.LineAllowlistedName)

	texts := make([]string, len(lines))
	for i, line := range lines {
		texts[i] = line.text
	}

	out := []*types.PotentialSecret{}
	for i, line := range lines {
		if ctx.Err() != nil {
			return out
		}

		text := strings.TrimRight(line.text, " \t")
		snippet := types.NewCodeSnippet(texts, i+1, s.opts.SnippetContextLines)

		req := filters.NewRequest().
			WithFilename(filename).
			WithLine(text).
			WithContext(snippet)
		if !filters.IsLineAllowlisted(req) {
			continue
		}
		if chain.IsFilteredOut(req, filters.ParamLine) {
			continue
		}

		for _, plugin := range s.plugins.Plugins() {
			out = append(out, s.scanLine(ctx, chain, plugin, filename, text, line.number, snippet, nil, false)...)
		}
	}
	return out
}
