// Package config provides shared configuration types and validation helpers
// for codeleak. This package centralizes option handling across the scan and
// audit entry points.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// ScanOptions contains the tunables of a scan run.
type ScanOptions struct {
	// MinLineLength skips lines with fewer non-whitespace characters;
	// anything shorter is not worth scanning.
	MinLineLength int `validate:"gte=0"`
	// SnippetContextLines is the window captured on each side of a target
	// line for filter context and display.
	SnippetContextLines int `validate:"gte=1,lte=25"`
	// MaxScanWorkers bounds the number of files scanned concurrently.
	MaxScanWorkers int `validate:"gte=1"`
	// Verify enables best-effort secret verification calls.
	Verify bool
	// VerifyTimeout bounds each verification call.
	VerifyTimeout time.Duration `validate:"gt=0"`
	// BaselineFile is the baseline path, used both for persistence and to
	// keep the baseline itself out of scan results.
	BaselineFile string
}

// DefaultScanOptions returns sensible default values.
func DefaultScanOptions() ScanOptions {
	return ScanOptions{
		MinLineLength:       5,
		SnippetContextLines: 4,
		MaxScanWorkers:      4,
		Verify:              false,
		VerifyTimeout:       10 * time.Second,
	}
}

var validate = validator.New()

// Validate checks the option invariants and returns the first violation.
func (o ScanOptions) Validate() error {
	return validate.Struct(o)
}
