package plugins

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
)

const (
	base64Charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789+/-_="
	hexCharset    = "0123456789abcdefABCDEF"
)

// HighEntropyPlugin flags strings whose Shannon entropy over a fixed charset
// exceeds a configured limit.
type HighEntropyPlugin struct {
	secretType string
	charset    string
	limit      float64

	// quoted is the default pattern; requiring quote delimiters keeps the
	// noise down on ordinary prose.
	quoted *regexp.Regexp
	// bare matches charset runs without quotes, used for eager searches.
	bare *regexp.Regexp
	// bareExact anchors the bare pattern to the whole string.
	bareExact *regexp.Regexp

	// entropy overrides the plain Shannon computation for charset-specific
	// corrections (see NewHexHighEntropyPlugin).
	entropy func(string) float64
}

func newHighEntropyPlugin(secretType, charset string, limit float64) (*HighEntropyPlugin, error) {
	if limit < 0 || limit > 8 {
		return nil, fmt.Errorf("plugins: entropy limit for %q must be within [0.0, 8.0], got %v", secretType, limit)
	}

	class := `[` + escapeCharClass(charset) + `]+`
	p := &HighEntropyPlugin{
		secretType: secretType,
		charset:    charset,
		limit:      limit,
		quoted:     regexp.MustCompile(`"(` + class + `)"|'(` + class + `)'`),
		bare:       regexp.MustCompile(`(` + class + `)`),
		bareExact:  regexp.MustCompile(`^(` + class + `)$`),
	}
	p.entropy = p.shannonEntropy
	return p, nil
}

// NewBase64HighEntropyPlugin scans for random-looking base64-ish strings,
// covering the regular, URL-safe and padded alphabets.
func NewBase64HighEntropyPlugin(limit float64) (*HighEntropyPlugin, error) {
	return newHighEntropyPlugin("Base64 High Entropy String", base64Charset, limit)
}

// NewHexHighEntropyPlugin scans for random-looking hex strings. Strings that
// parse entirely as decimal integers get an entropy penalty of
// 1.2/log2(length): all-digit hex strings are disproportionately false
// positives, and the shrinking penalty biases toward flagging longer numeric
// strings as real.
func NewHexHighEntropyPlugin(limit float64) (*HighEntropyPlugin, error) {
	p, err := newHighEntropyPlugin("Hex High Entropy String", hexCharset, limit)
	if err != nil {
		return nil, err
	}
	p.entropy = func(data string) float64 {
		entropy := p.shannonEntropy(data)
		if len(data) > 1 && isAllDigits(data) {
			entropy -= 1.2 / math.Log2(float64(len(data)))
		}
		return entropy
	}
	return p, nil
}

// DefaultBase64EntropyLimit and DefaultHexEntropyLimit are the tuned
// thresholds for the two stock entropy detectors.
const (
	DefaultBase64EntropyLimit = 4.5
	DefaultHexEntropyLimit    = 3.0
)

func (p *HighEntropyPlugin) SecretType() string {
	return p.secretType
}

// Charset returns the symbol set entropy is computed over.
func (p *HighEntropyPlugin) Charset() string {
	return p.charset
}

// Limit returns the configured entropy threshold.
func (p *HighEntropyPlugin) Limit() float64 {
	return p.limit
}

// AnalyzeString yields quote-delimited charset runs. The entropy cutoff is
// deliberately not applied here so ad-hoc callers can inspect candidates that
// fell below the limit.
func (p *HighEntropyPlugin) AnalyzeString(s string) []string {
	return matchCandidates(p.quoted, s)
}

// AnalyzeBare yields charset runs without requiring quote delimiters. With
// exact set, the whole input must be a single run.
func (p *HighEntropyPlugin) AnalyzeBare(s string, exact bool) []string {
	re := p.bare
	if exact {
		re = p.bareExact
	}
	return matchCandidates(re, s)
}

// AnalyzeLine applies the quoted pattern and keeps candidates above the
// entropy limit. When that finds nothing and an eager search was requested,
// it retries without requiring quotes and returns those candidates
// unfiltered, so the caller can see what the cutoff would have dropped.
func (p *HighEntropyPlugin) AnalyzeLine(ctx context.Context, req AnalyzeRequest) []*types.PotentialSecret {
	output := buildSecrets(ctx, p, p.AnalyzeString(req.Line), req)
	if len(output) > 0 || !req.EagerSearch {
		kept := output[:0]
		for _, secret := range output {
			if p.EntropyOf(secret.SecretValue) > p.limit {
				kept = append(kept, secret)
			}
		}
		return kept
	}

	return buildSecrets(ctx, p, p.AnalyzeBare(req.Line, false), req)
}

// EntropyOf computes the (charset-corrected) Shannon entropy of data.
func (p *HighEntropyPlugin) EntropyOf(data string) float64 {
	return p.entropy(data)
}

func (p *HighEntropyPlugin) shannonEntropy(data string) float64 {
	if data == "" {
		return 0
	}

	entropy := 0.0
	length := float64(len(data))
	for _, symbol := range p.charset {
		px := float64(strings.Count(data, string(symbol))) / length
		if px > 0 {
			entropy += -px * math.Log2(px)
		}
	}
	return entropy
}

func (p *HighEntropyPlugin) Describe() Description {
	return Description{Name: p.secretType, Limit: p.limit}
}

func matchCandidates(re *regexp.Regexp, s string) []string {
	out := []string{}
	for _, match := range re.FindAllStringSubmatch(s, -1) {
		for _, sub := range match[1:] {
			if sub != "" {
				out = append(out, sub)
			}
		}
	}
	return out
}

func isAllDigits(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return s != ""
}

// escapeCharClass escapes the characters that are special inside a regexp
// character class.
func escapeCharClass(charset string) string {
	var b strings.Builder
	for _, r := range charset {
		switch r {
		case '\\', ']', '^', '-':
			b.WriteByte('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}
