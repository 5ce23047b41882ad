package plugins

import (
	"context"
	"fmt"
	"regexp"

	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
)

// RegexPlugin detects secrets with an ordered set of compiled patterns.
type RegexPlugin struct {
	secretType string
	denylist   []*regexp.Regexp
	verifier   Verifier
}

// NewRegexPlugin builds a pattern-based detector.
func NewRegexPlugin(secretType string, denylist ...*regexp.Regexp) (*RegexPlugin, error) {
	if secretType == "" {
		return nil, fmt.Errorf("plugins: a regex detector needs a secret type")
	}
	if len(denylist) == 0 {
		return nil, fmt.Errorf("plugins: detector %q has no patterns", secretType)
	}
	return &RegexPlugin{secretType: secretType, denylist: denylist}, nil
}

// WithVerifier attaches a best-effort verification step.
func (p *RegexPlugin) WithVerifier(v Verifier) *RegexPlugin {
	p.verifier = v
	return p
}

func (p *RegexPlugin) SecretType() string {
	return p.secretType
}

// AnalyzeString applies every pattern in order. Patterns without groups yield
// the whole match, a single capture group yields that group, and patterns
// with several groups yield each non-empty submatch.
func (p *RegexPlugin) AnalyzeString(s string) []string {
	out := []string{}
	for _, re := range p.denylist {
		for _, match := range re.FindAllStringSubmatch(s, -1) {
			switch len(match) {
			case 1:
				out = append(out, match[0])
			case 2:
				out = append(out, match[1])
			default:
				for _, sub := range match[1:] {
					if sub != "" {
						out = append(out, sub)
					}
				}
			}
		}
	}
	return out
}

func (p *RegexPlugin) AnalyzeLine(ctx context.Context, req AnalyzeRequest) []*types.PotentialSecret {
	return buildSecrets(ctx, p, p.AnalyzeString(req.Line), req)
}

func (p *RegexPlugin) Verify(ctx context.Context, secret string, snippet *types.CodeSnippet) (types.VerifiedResult, error) {
	if p.verifier == nil {
		return types.Unverified, nil
	}
	return p.verifier.Verify(ctx, secret, snippet)
}

func (p *RegexPlugin) Describe() Description {
	return Description{Name: p.secretType}
}

// AssignmentPattern builds a case-insensitive pattern matching
//
//	<prefix>(-|_|)<keyword> <assignment> <value>
//
// where assignment is one of =, :, :=, =>, ::, the key side allows optional
// quotes and square brackets, and the value side allows optional quotes. A
// bare whitespace separator is only accepted when the value is quoted, so
// `aws_secret ABCDEFGH` stays unmatched while `aws_secret "ABCDEFGH"` hits.
// The value shape always ends up in a capture group.
func AssignmentPattern(prefix, keyword, value string) *regexp.Regexp {
	const (
		begin           = `(?:^|\W)`
		optQuote        = `(?:"|'|)`
		optOpenBracket  = `(?:\[|)`
		optCloseBracket = `(?:\]|)`
		optDash         = `(?:_|-|)`
		optSpace        = `(?: *)`
		assignment      = `(?:=>|:=|::|=|:)`
	)

	key := optOpenBracket + optQuote + prefix + optDash + keyword + optQuote + optCloseBracket
	assigned := optSpace + assignment + optSpace + optQuote + `(` + value + `)` + optQuote
	quotedOnly := ` +(?:"(` + value + `)"|'(` + value + `)')`

	return regexp.MustCompile(`(?i)` + begin + key + `(?:` + assigned + `|` + quotedOnly + `)`)
}
