// Package baseline persists accepted findings as hash-only records.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/perimeterx/marshmallow"
)

// ErrInvalidBaseline flags a baseline file that cannot be used at all, as
// opposed to one that merely drifted from the files on disk.
var ErrInvalidBaseline = errors.New("baseline: not a valid baseline file")

// Version is written into new baselines.
const Version = "1.0.0"

// Baseline is a snapshot of previously recorded findings, keyed by filename.
// Records never carry raw secret values, only hashes.
type Baseline struct {
	Version     string                `json:"version"`
	GeneratedAt string                `json:"generated_at,omitempty"`
	Plugins     []plugins.Description `json:"plugins_used"`

	Results map[string][]*types.PotentialSecret `json:"results"`
}

// Load reads and decodes a baseline. Unknown fields are tolerated so newer
// tool versions can extend the format without breaking older readers;
// anything structurally unusable returns ErrInvalidBaseline.
func Load(filename string) (*Baseline, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}

	var b Baseline
	if _, err := marshmallow.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBaseline, err)
	}
	if b.Results == nil {
		return nil, fmt.Errorf("%w: missing results", ErrInvalidBaseline)
	}

	for filename, secrets := range b.Results {
		for _, secret := range secrets {
			if secret == nil || secret.SecretHash == "" || secret.Type == "" {
				return nil, fmt.Errorf("%w: malformed record under %q", ErrInvalidBaseline, filename)
			}
			if secret.Filename == "" {
				secret.Filename = filename
			}
		}
	}
	return &b, nil
}

// Save writes the baseline deterministically: filenames sort through JSON
// map encoding, records sort by line then hash.
func (b *Baseline) Save(filename string) error {
	for _, secrets := range b.Results {
		sort.Slice(secrets, func(i, j int) bool {
			if secrets[i].LineNumber != secrets[j].LineNumber {
				return secrets[i].LineNumber < secrets[j].LineNumber
			}
			return secrets[i].SecretHash < secrets[j].SecretHash
		})
	}

	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding baseline: %w", err)
	}
	return os.WriteFile(filename, append(data, '\n'), 0o644)
}

// FromSecrets groups live scan results into a fresh baseline.
func FromSecrets(secrets []*types.PotentialSecret, descriptions []plugins.Description) *Baseline {
	results := map[string][]*types.PotentialSecret{}
	for _, secret := range secrets {
		results[secret.Filename] = append(results[secret.Filename], secret)
	}
	return &Baseline{
		Version:     Version,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
		Plugins:     descriptions,
		Results:     results,
	}
}

// Filenames returns the recorded filenames in sorted order.
func (b *Baseline) Filenames() []string {
	out := make([]string, 0, len(b.Results))
	for filename := range b.Results {
		out = append(out, filename)
	}
	sort.Strings(out)
	return out
}
