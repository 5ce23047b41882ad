// Package plugins defines the detector contract and its two canonical
// families: regex-based and entropy-based detection.
package plugins

import (
	"context"
	"sort"

	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/rs/zerolog/log"
	"github.com/rxwycdh/rxhash"
)

// AnalyzeRequest carries the per-line context handed to a detector.
type AnalyzeRequest struct {
	Filename   string
	Line       string
	LineNumber int
	// Context is the snippet window around Line, built from the same
	// (possibly transformed) lines the detector sees.
	Context *types.CodeSnippet
	// RawContext is the snippet built from the untransformed file content.
	RawContext *types.CodeSnippet
	// EagerSearch asks entropy detectors to retry without requiring quotes
	// when the default pattern finds nothing.
	EagerSearch bool
	// Verify enables the best-effort verification step for detectors that
	// implement Verifier.
	Verify bool
}

// Plugin is the capability interface every detector implements.
type Plugin interface {
	// SecretType is the unique, user-facing identity of this detector.
	// Baselines key on it, so changing it invalidates recorded findings.
	SecretType() string

	// AnalyzeString yields every raw candidate substring within s.
	AnalyzeString(s string) []string

	// AnalyzeLine examines one line and returns candidate records. It never
	// fails: malformed input yields an empty result.
	AnalyzeLine(ctx context.Context, req AnalyzeRequest) []*types.PotentialSecret

	// Describe returns the deterministic configuration of this detector,
	// recorded in baselines to fingerprint a scan run.
	Describe() Description
}

// Verifier is implemented by detectors that can check a candidate against a
// live service. Verification is best-effort: the engine downgrades any error
// to Unverified and never lets it abort a scan.
type Verifier interface {
	Verify(ctx context.Context, secret string, snippet *types.CodeSnippet) (types.VerifiedResult, error)
}

// Description is the serializable configuration of a detector.
type Description struct {
	Name  string  `json:"name"`
	Limit float64 `json:"limit,omitempty"`
}

// Fingerprint returns a stable hash of the description, used to detect
// configuration drift between a baseline and the current scan setup.
func (d Description) Fingerprint() string {
	hash, err := rxhash.HashStruct(d)
	if err != nil {
		return d.Name
	}
	return hash
}

// buildSecrets turns raw matches into deduplicated records, running the
// optional verification step per match.
func buildSecrets(ctx context.Context, p Plugin, matches []string, req AnalyzeRequest) []*types.PotentialSecret {
	seen := map[string]bool{}
	out := []*types.PotentialSecret{}
	for _, match := range matches {
		if match == "" || seen[match] {
			continue
		}
		seen[match] = true

		verified := types.Unverified
		if req.Verify {
			if verifier, ok := p.(Verifier); ok {
				result, err := verifier.Verify(ctx, match, req.Context)
				if err != nil {
					log.Debug().Err(err).Str("type", p.SecretType()).Msg("Verification failed, keeping candidate unverified")
				} else {
					verified = result
				}
			}
		}

		out = append(out, types.NewPotentialSecret(p.SecretType(), req.Filename, match, req.LineNumber, verified))
	}
	return out
}

// Registry holds the active detectors for one scan run. It is constructed at
// startup and passed by reference, never looked up through globals.
type Registry struct {
	plugins []Plugin
	byType  map[string]Plugin
}

// NewRegistry builds a registry from the given detectors. Later registrations
// with a duplicate secret type are dropped with a warning.
func NewRegistry(detectors ...Plugin) *Registry {
	r := &Registry{byType: map[string]Plugin{}}
	for _, p := range detectors {
		if _, ok := r.byType[p.SecretType()]; ok {
			log.Warn().Str("type", p.SecretType()).Msg("Duplicate detector registration dropped")
			continue
		}
		r.byType[p.SecretType()] = p
		r.plugins = append(r.plugins, p)
	}
	return r
}

// Plugins returns the detectors in registration order.
func (r *Registry) Plugins() []Plugin {
	return r.plugins
}

// FromSecretType resolves the one detector that produces records of the given
// type. The audit engine uses this to replay a baseline record.
func (r *Registry) FromSecretType(secretType string) (Plugin, bool) {
	p, ok := r.byType[secretType]
	return p, ok
}

// Descriptions returns the configuration of every registered detector,
// sorted by name for reproducible baselines.
func (r *Registry) Descriptions() []Description {
	out := make([]Description, 0, len(r.plugins))
	for _, p := range r.plugins {
		out = append(out, p.Describe())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
