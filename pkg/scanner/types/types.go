// Package types contains the shared data model of the detection core.
package types

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"strings"
)

// VerifiedResult classifies the outcome of an (optional) secret verification.
type VerifiedResult int

const (
	// VerifiedFalse means a verification call proved the candidate invalid.
	VerifiedFalse VerifiedResult = iota + 1
	// Unverified means no verification happened, or it failed to complete.
	Unverified
	// VerifiedTrue means a verification call proved the candidate valid.
	VerifiedTrue
)

func (v VerifiedResult) String() string {
	switch v {
	case VerifiedFalse:
		return "verified-false"
	case VerifiedTrue:
		return "verified-true"
	default:
		return "unverified"
	}
}

// PrioritizedVerifiedResult returns the stronger of two verification outcomes.
func PrioritizedVerifiedResult(a, b VerifiedResult) VerifiedResult {
	if a > b {
		return a
	}
	return b
}

// PotentialSecret is a single candidate finding produced by a detector.
//
// Identity is (Type, Filename, SecretHash) only. Line numbers shift as files
// are edited and the raw value is never written to a baseline, so neither may
// take part in equality.
type PotentialSecret struct {
	Type       string         `json:"type"`
	Filename   string         `json:"filename"`
	LineNumber int            `json:"line_number,omitempty"`
	SecretHash string         `json:"hashed_secret"`
	IsVerified VerifiedResult `json:"is_verified,omitempty"`

	// SecretValue holds the raw text during live scanning. It is absent when a
	// record is rehydrated from a baseline, until audit reconciliation
	// recovers it.
	SecretValue string `json:"-"`
}

// NewPotentialSecret builds a record for a freshly detected raw value.
func NewPotentialSecret(secretType, filename, secret string, lineNumber int, verified VerifiedResult) *PotentialSecret {
	return &PotentialSecret{
		Type:        secretType,
		Filename:    filename,
		LineNumber:  lineNumber,
		SecretHash:  HashSecret(secret),
		SecretValue: secret,
		IsVerified:  verified,
	}
}

// HashSecret computes the durable one-way identity of a raw secret value.
func HashSecret(secret string) string {
	sum := sha1.Sum([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// Equal reports whether two records describe the same secret.
func (s *PotentialSecret) Equal(other *PotentialSecret) bool {
	if other == nil {
		return false
	}
	return s.Type == other.Type &&
		s.Filename == other.Filename &&
		s.SecretHash == other.SecretHash
}

// Fingerprint returns a stable map key over the identity fields.
func (s *PotentialSecret) Fingerprint() string {
	return fmt.Sprintf("%s:%s:%s", s.SecretHash, s.Filename, s.Type)
}

func (s *PotentialSecret) String() string {
	return fmt.Sprintf("secret type=%q filename=%q line=%d hash=%s", s.Type, s.Filename, s.LineNumber, s.SecretHash)
}

// CodeSnippet is a small window of lines around a detection target, used both
// as filter context and for human display during audits.
type CodeSnippet struct {
	// Lines are the window contents, newline-free.
	Lines []string
	// Start is the 1-based line number of Lines[0] in the source file.
	Start int
	// Target is the 1-based line number the snippet centers on.
	Target int
}

// SnippetContextLines is the number of lines captured on each side of the
// target line.
const SnippetContextLines = 4

// NewCodeSnippet extracts a window around lineNumber (1-based) from lines.
func NewCodeSnippet(lines []string, lineNumber, contextLines int) *CodeSnippet {
	if contextLines <= 0 {
		contextLines = SnippetContextLines
	}

	start := lineNumber - 1 - contextLines
	if start < 0 {
		start = 0
	}
	end := lineNumber + contextLines
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		start = end
	}

	window := make([]string, end-start)
	copy(window, lines[start:end])
	return &CodeSnippet{
		Lines:  window,
		Start:  start + 1,
		Target: lineNumber,
	}
}

// TargetLine returns the centered line, or "" when the target lies outside
// the captured window.
func (c *CodeSnippet) TargetLine() string {
	idx := c.Target - c.Start
	if idx < 0 || idx >= len(c.Lines) {
		return ""
	}
	return c.Lines[idx]
}

// PreviousLine returns the line right before the target, when captured.
func (c *CodeSnippet) PreviousLine() string {
	idx := c.Target - c.Start - 1
	if idx < 0 || idx >= len(c.Lines) {
		return ""
	}
	return c.Lines[idx]
}

func (c *CodeSnippet) String() string {
	return strings.Join(c.Lines, "\n")
}

// StringWithLineNumbers renders the window with 1-based line number prefixes.
func (c *CodeSnippet) StringWithLineNumbers() string {
	var b strings.Builder
	for i, line := range c.Lines {
		fmt.Fprintf(&b, "%d: %s", c.Start+i, line)
		if i != len(c.Lines)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}
