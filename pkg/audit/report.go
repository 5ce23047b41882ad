package audit

import (
	"context"
	"sort"

	"github.com/CompassSecurity/codeleak/pkg/baseline"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/rs/zerolog/log"
)

// SecretClass splits reported findings into the two buckets an auditor cares
// about.
type SecretClass int

const (
	// AnySecret disables class filtering.
	AnySecret SecretClass = iota
	// RealSecret covers unverified and verified-true records.
	RealSecret
	// FalsePositive covers verified-false records.
	FalsePositive
)

// ClassOf maps a verification outcome onto a report class.
func ClassOf(v types.VerifiedResult) SecretClass {
	if v == types.VerifiedFalse {
		return FalsePositive
	}
	return RealSecret
}

// ReportEntry aggregates every occurrence of one secret in one file.
type ReportEntry struct {
	SecretValue string         `json:"secret"`
	Filename    string         `json:"filename"`
	Lines       map[int]string `json:"lines"`
	Types       []string       `json:"types"`
	Category    string         `json:"category"`

	hash     string
	category types.VerifiedResult
}

// GenerateReport reconciles every baseline record and aggregates the
// recovered occurrences per (secret, file). Records whose file drifted away
// are logged and skipped, not fatal: the per-record errors are exactly what
// the interactive recovery path surfaces instead.
func (r *Reconciler) GenerateReport(ctx context.Context, b *baseline.Baseline, class SecretClass) ([]ReportEntry, error) {
	entries := map[string]*ReportEntry{}

	for _, filename := range b.Filenames() {
		for _, secret := range b.Results[filename] {
			verified := secret.IsVerified
			if verified == 0 {
				verified = types.Unverified
			}
			if class != AnySecret && ClassOf(verified) != class {
				continue
			}

			// Zero the recorded line so the search covers the whole file and
			// reports every occurrence, not just the recorded one.
			probe := *secret
			probe.LineNumber = 0

			detections, err := r.RawSecretsFromFile(ctx, &probe)
			if err != nil {
				log.Warn().Err(err).Str("filename", filename).Msg("Skipping unreconcilable baseline record")
				continue
			}

			lines, err := r.cache.Open(filename).Lines()
			if err != nil {
				log.Warn().Err(err).Str("filename", filename).Msg("Skipping unreadable file")
				continue
			}

			for _, detection := range detections {
				key := secret.SecretHash + ":" + filename
				entry, ok := entries[key]
				if !ok {
					entry = &ReportEntry{
						SecretValue: detection.SecretValue,
						Filename:    filename,
						Lines:       map[int]string{},
						hash:        secret.SecretHash,
						category:    verified,
					}
					entries[key] = entry
				}

				if detection.LineNumber >= 1 && detection.LineNumber <= len(lines) {
					entry.Lines[detection.LineNumber] = lines[detection.LineNumber-1]
				}
				if !containsString(entry.Types, secret.Type) {
					entry.Types = append(entry.Types, secret.Type)
				}
				entry.category = types.PrioritizedVerifiedResult(entry.category, verified)
			}
		}
	}

	out := make([]ReportEntry, 0, len(entries))
	for _, entry := range entries {
		entry.Category = entry.category.String()
		sort.Strings(entry.Types)
		out = append(out, *entry)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Filename != out[j].Filename {
			return out[i].Filename < out[j].Filename
		}
		return out[i].hash < out[j].hash
	})
	return out, nil
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
