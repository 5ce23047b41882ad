package engine

import (
	"context"
	"fmt"
	"strings"

	"github.com/CompassSecurity/codeleak/pkg/scanner/filters"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/gitleaks/go-gitdiff/gitdiff"
)

// ScanDiff scans the added lines of a unified diff. Files suppressed at the
// filename level are skipped before any line extraction.
func (s *Scanner) ScanDiff(ctx context.Context, diff string) ([]*types.PotentialSecret, error) {
	out := []*types.PotentialSecret{}
	for _, file := range parseAddedLines(diff) {
		if s.filters.IsFilteredOut(filters.NewRequest().WithFilename(file.name), filters.ParamFilename) {
			continue
		}
		out = append(out, s.processLines(ctx, s.filters, file.name, file.lines, nil, false)...)
	}
	return out, ctx.Err()
}

type diffFile struct {
	name  string
	lines []numberedLine
}

// parseAddedLines extracts (filename, added lines) pairs from a unified
// diff, restricted to the incoming side of each hunk.
func parseAddedLines(diff string) []diffFile {
	files, err := gitdiff.Parse(strings.NewReader(diff))
	if err != nil {
		// Malformed diff text carries nothing scannable.
		return nil
	}

	out := []diffFile{}
	for file := range files {
		if file.IsDelete || file.IsBinary {
			continue
		}

		name := file.NewName
		if name == "" {
			name = file.OldName
		}

		lines := []numberedLine{}
		for _, fragment := range file.TextFragments {
			lineNumber := int(fragment.NewPosition)
			for _, line := range fragment.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					lines = append(lines, numberedLine{
						number: lineNumber,
						text:   strings.TrimSuffix(line.Line, "\n"),
					})
					lineNumber++
				case gitdiff.OpContext:
					lineNumber++
				}
			}
		}
		if len(lines) > 0 {
			out = append(out, diffFile{name: name, lines: lines})
		}
	}
	return out
}

// FormatDiffStats summarizes what a diff scan looked at, for debug logging.
func FormatDiffStats(diff string) string {
	files := parseAddedLines(diff)
	total := 0
	for _, f := range files {
		total += len(f.lines)
	}
	return fmt.Sprintf("%d files, %d added lines", len(files), total)
}
