package plugins

import (
	"regexp"
	"time"
)

// The stock regex detector catalog. Each constructor panics never: the
// patterns are compile-time constants, so MustCompile is safe.

// NewAWSKeyDetector matches AWS access key IDs and assigned secret access
// keys.
func NewAWSKeyDetector() *RegexPlugin {
	p, _ := NewRegexPlugin(
		"AWS Access Key",
		regexp.MustCompile(`(?:A3T[A-Z0-9]|AKIA|ASIA|ABIA|ACCA)[A-Z0-9]{16}`),
		AssignmentPattern(`aws`, `(?:secret|session)?.{0,2}(?:access)?.{0,2}(?:key|token)`, `[A-Za-z0-9/+=]{40}`),
	)
	return p
}

// NewBasicAuthDetector matches credentials embedded in URLs.
func NewBasicAuthDetector() *RegexPlugin {
	p, _ := NewRegexPlugin(
		"Basic Auth Credentials",
		regexp.MustCompile(`://[^\s:@]+:([^\s:@]+)@`),
	)
	return p
}

// NewPrivateKeyDetector matches PEM private key headers.
func NewPrivateKeyDetector() *RegexPlugin {
	p, _ := NewRegexPlugin(
		"Private Key",
		regexp.MustCompile(`BEGIN (?:DSA|EC|OPENSSH|PGP|RSA)? ?PRIVATE KEY`),
	)
	return p
}

// NewKeywordDetector matches values assigned to credential-looking keywords.
func NewKeywordDetector() *RegexPlugin {
	p, _ := NewRegexPlugin(
		"Secret Keyword",
		AssignmentPattern(``, `(?:api_?key|auth_?token|password|passwd|pwd|secrete?|token)`, `[^\s"']{5,}`),
	)
	return p
}

// DefaultRegistry returns the stock detector set: the regex catalog plus the
// two entropy detectors at their tuned limits.
func DefaultRegistry() (*Registry, error) {
	return defaultRegistry(nil)
}

// DefaultRegistryWithVerification additionally arms the detectors that know
// how to verify their candidates against a live service.
func DefaultRegistryWithVerification(timeout time.Duration) (*Registry, error) {
	return defaultRegistry(NewBasicAuthVerifier(timeout))
}

func defaultRegistry(basicAuthVerifier Verifier) (*Registry, error) {
	base64Plugin, err := NewBase64HighEntropyPlugin(DefaultBase64EntropyLimit)
	if err != nil {
		return nil, err
	}
	hexPlugin, err := NewHexHighEntropyPlugin(DefaultHexEntropyLimit)
	if err != nil {
		return nil, err
	}

	basicAuth := NewBasicAuthDetector()
	if basicAuthVerifier != nil {
		basicAuth = basicAuth.WithVerifier(basicAuthVerifier)
	}

	return NewRegistry(
		NewAWSKeyDetector(),
		basicAuth,
		NewPrivateKeyDetector(),
		NewKeywordDetector(),
		base64Plugin,
		hexPlugin,
	), nil
}
