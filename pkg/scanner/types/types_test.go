package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashSecret(t *testing.T) {
	// sha1 of the empty string is a well-known constant.
	assert.Equal(t, "da39a3ee5e6b4b0d3255bfef95601890afd80709", HashSecret(""))
	assert.Equal(t, HashSecret("hunter2"), HashSecret("hunter2"))
	assert.NotEqual(t, HashSecret("hunter2"), HashSecret("hunter3"))
}

func TestPotentialSecretEqual(t *testing.T) {
	a := NewPotentialSecret("Secret Keyword", "config.yml", "hunter2", 3, Unverified)

	t.Run("identity ignores line number", func(t *testing.T) {
		b := NewPotentialSecret("Secret Keyword", "config.yml", "hunter2", 42, Unverified)
		assert.True(t, a.Equal(b))
	})

	t.Run("identity ignores verification status", func(t *testing.T) {
		b := NewPotentialSecret("Secret Keyword", "config.yml", "hunter2", 3, VerifiedTrue)
		assert.True(t, a.Equal(b))
	})

	t.Run("type takes part in identity", func(t *testing.T) {
		b := NewPotentialSecret("Hex High Entropy String", "config.yml", "hunter2", 3, Unverified)
		assert.False(t, a.Equal(b))
	})

	t.Run("filename takes part in identity", func(t *testing.T) {
		b := NewPotentialSecret("Secret Keyword", "other.yml", "hunter2", 3, Unverified)
		assert.False(t, a.Equal(b))
	})

	t.Run("value takes part in identity through its hash", func(t *testing.T) {
		b := NewPotentialSecret("Secret Keyword", "config.yml", "hunter3", 3, Unverified)
		assert.False(t, a.Equal(b))
	})

	t.Run("nil never equals", func(t *testing.T) {
		assert.False(t, a.Equal(nil))
	})
}

func TestPotentialSecretJSONNeverCarriesRawValue(t *testing.T) {
	secret := NewPotentialSecret("Secret Keyword", "config.yml", "hunter2", 3, Unverified)
	data, err := json.Marshal(secret)
	assert.NoError(t, err)
	assert.NotContains(t, string(data), "hunter2")
	assert.Contains(t, string(data), secret.SecretHash)
}

func TestPrioritizedVerifiedResult(t *testing.T) {
	assert.Equal(t, VerifiedTrue, PrioritizedVerifiedResult(VerifiedTrue, Unverified))
	assert.Equal(t, VerifiedTrue, PrioritizedVerifiedResult(VerifiedFalse, VerifiedTrue))
	assert.Equal(t, Unverified, PrioritizedVerifiedResult(Unverified, VerifiedFalse))
	assert.Equal(t, Unverified, PrioritizedVerifiedResult(Unverified, Unverified))
}

func TestNewCodeSnippet(t *testing.T) {
	lines := []string{"one", "two", "three", "four", "five", "six", "seven"}

	t.Run("window in the middle", func(t *testing.T) {
		snippet := NewCodeSnippet(lines, 4, 2)
		assert.Equal(t, []string{"two", "three", "four", "five", "six"}, snippet.Lines)
		assert.Equal(t, 2, snippet.Start)
		assert.Equal(t, "four", snippet.TargetLine())
		assert.Equal(t, "three", snippet.PreviousLine())
	})

	t.Run("window clamped at the top", func(t *testing.T) {
		snippet := NewCodeSnippet(lines, 1, 2)
		assert.Equal(t, []string{"one", "two", "three"}, snippet.Lines)
		assert.Equal(t, 1, snippet.Start)
		assert.Equal(t, "one", snippet.TargetLine())
		assert.Equal(t, "", snippet.PreviousLine())
	})

	t.Run("window clamped at the bottom", func(t *testing.T) {
		snippet := NewCodeSnippet(lines, 7, 2)
		assert.Equal(t, []string{"five", "six", "seven"}, snippet.Lines)
		assert.Equal(t, 5, snippet.Start)
		assert.Equal(t, "seven", snippet.TargetLine())
	})

	t.Run("default context size", func(t *testing.T) {
		snippet := NewCodeSnippet(lines, 4, 0)
		assert.Len(t, snippet.Lines, 7)
		assert.Equal(t, 1, snippet.Start)
	})

	t.Run("copy does not alias the source slice", func(t *testing.T) {
		snippet := NewCodeSnippet(lines, 2, 1)
		snippet.Lines[0] = "mutated"
		assert.Equal(t, "one", lines[0])
	})
}

func TestCodeSnippetStringWithLineNumbers(t *testing.T) {
	snippet := NewCodeSnippet([]string{"a", "b", "c"}, 2, 1)
	assert.Equal(t, "1: a\n2: b\n3: c", snippet.StringWithLineNumbers())
}
