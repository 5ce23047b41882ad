// Package result reports scan findings to the user.
package result

import (
	"github.com/CompassSecurity/codeleak/pkg/logging"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
)

// ReportSecrets emits one hit event per finding.
func ReportSecrets(secrets []*types.PotentialSecret) {
	for _, secret := range secrets {
		ReportSecret(secret)
	}
}

// ReportSecret emits a single finding. The raw value is deliberately not
// logged: the hash identifies the finding without leaking it into terminal
// scrollback or log archives.
func ReportSecret(secret *types.PotentialSecret) {
	logging.Hit().
		Str("type", secret.Type).
		Str("filename", secret.Filename).
		Int("line", secret.LineNumber).
		Str("hash", secret.SecretHash).
		Str("verified", secret.IsVerified.String()).
		Msg("SECRET")
}
