package audit

import (
	"context"
	"errors"
	"fmt"

	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
)

// ErrNoLineNumber means a single-value recovery was requested for a record
// that never had a line number, so a match cannot be disambiguated.
var ErrNoLineNumber = errors.New("audit: no line number recorded for secret")

// SecretNotFoundError means the file no longer yields the recorded secret at
// the expected location: the baseline and the file have drifted apart.
type SecretNotFoundError struct {
	Filename string
	Line     int
}

func (e *SecretNotFoundError) Error() string {
	return fmt.Sprintf("audit: secret not found in %q on line %d", e.Filename, e.Line)
}

// Reconciler recovers raw secret values from hash-only baseline records by
// re-running the one plugin that originally classified each record.
type Reconciler struct {
	plugins *plugins.Registry
	cache   *LineGetterCache
}

func NewReconciler(reg *plugins.Registry, cache *LineGetterCache) *Reconciler {
	return &Reconciler{plugins: reg, cache: cache}
}

// RawSecretsFromFile searches the recorded file for every occurrence of the
// given secret: at the recorded line when one is known, otherwise across the
// whole file. When the default transformation yields nothing on the first
// visit of a file, the line cache flips to eager mode and the search runs
// exactly once more; the winning mode stays cached for later lookups in the
// same file.
func (r *Reconciler) RawSecretsFromFile(ctx context.Context, secret *types.PotentialSecret) ([]*types.PotentialSecret, error) {
	plugin, ok := r.plugins.FromSecretType(secret.Type)
	if !ok {
		return nil, fmt.Errorf("audit: no plugin registered for secret type %q", secret.Type)
	}

	getter := r.cache.Open(secret.Filename)
	firstOpen := !getter.HasCachedLines()

	for {
		lines, err := getter.Lines()
		if err != nil {
			return nil, fmt.Errorf("audit: reading %q: %w", secret.Filename, err)
		}

		targets := lines
		offset := 0
		if secret.LineNumber > 0 {
			if secret.LineNumber > len(lines) {
				return nil, &SecretNotFoundError{Filename: secret.Filename, Line: secret.LineNumber}
			}
			targets = lines[secret.LineNumber-1 : secret.LineNumber]
			offset = secret.LineNumber - 1
		}

		found := []*types.PotentialSecret{}
		for i, line := range targets {
			lineNumber := offset + i + 1
			identified := plugin.AnalyzeLine(ctx, plugins.AnalyzeRequest{
				Filename:   secret.Filename,
				Line:       line,
				LineNumber: lineNumber,
				Context:    types.NewCodeSnippet(lines, lineNumber, types.SnippetContextLines),
				// The baseline asserts a secret exists here, so search as
				// hard as possible.
				EagerSearch: secret.LineNumber > 0,
			})
			for _, candidate := range identified {
				if candidate.Equal(secret) {
					found = append(found, candidate)
				}
			}
		}

		if len(found) == 0 && firstOpen && !getter.UseEagerTransformers() {
			getter.SetUseEagerTransformers(true)
			continue
		}
		return found, nil
	}
}

// RawSecretFromFile recovers the literal value of one baseline record. It
// fails explicitly when no line number was recorded or when the recorded
// line no longer produces the secret.
func (r *Reconciler) RawSecretFromFile(ctx context.Context, secret *types.PotentialSecret) (string, error) {
	if secret.LineNumber == 0 {
		return "", ErrNoLineNumber
	}

	found, err := r.RawSecretsFromFile(ctx, secret)
	if err != nil {
		return "", err
	}
	if len(found) == 0 {
		return "", &SecretNotFoundError{Filename: secret.Filename, Line: secret.LineNumber}
	}
	return found[0].SecretValue, nil
}
