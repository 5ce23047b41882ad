package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDefaultScanOptionsValidate(t *testing.T) {
	assert.NoError(t, DefaultScanOptions().Validate())
}

func TestScanOptionsValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*ScanOptions)
		expectErr bool
	}{
		{
			name:      "negative min line length",
			mutate:    func(o *ScanOptions) { o.MinLineLength = -1 },
			expectErr: true,
		},
		{
			name:   "zero min line length",
			mutate: func(o *ScanOptions) { o.MinLineLength = 0 },
		},
		{
			name:      "zero snippet context",
			mutate:    func(o *ScanOptions) { o.SnippetContextLines = 0 },
			expectErr: true,
		},
		{
			name:      "oversized snippet context",
			mutate:    func(o *ScanOptions) { o.SnippetContextLines = 26 },
			expectErr: true,
		},
		{
			name:   "maximum snippet context",
			mutate: func(o *ScanOptions) { o.SnippetContextLines = 25 },
		},
		{
			name:      "zero workers",
			mutate:    func(o *ScanOptions) { o.MaxScanWorkers = 0 },
			expectErr: true,
		},
		{
			name:      "zero verify timeout",
			mutate:    func(o *ScanOptions) { o.VerifyTimeout = 0 },
			expectErr: true,
		},
		{
			name:   "custom but valid",
			mutate: func(o *ScanOptions) { o.MaxScanWorkers = 32; o.VerifyTimeout = time.Second },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultScanOptions()
			tt.mutate(&opts)

			err := opts.Validate()
			if tt.expectErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
