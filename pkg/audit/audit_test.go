package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/CompassSecurity/codeleak/pkg/scanner/plugins"
	"github.com/CompassSecurity/codeleak/pkg/scanner/transformers"
	"github.com/CompassSecurity/codeleak/pkg/scanner/types"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	zerolog.SetGlobalLevel(zerolog.Disabled)
}

const (
	hexSecretType = "Hex High Entropy String"
	hexSecret     = "0123456789abcdef0123456789abcdef"
)

func hexRegistry(t *testing.T) *plugins.Registry {
	t.Helper()
	hex, err := plugins.NewHexHighEntropyPlugin(plugins.DefaultHexEntropyLimit)
	require.NoError(t, err)
	return plugins.NewRegistry(hex)
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// baselineRecord mimics a record rehydrated from disk: hash only, no raw
// value.
func baselineRecord(filename string, lineNumber int) *types.PotentialSecret {
	return &types.PotentialSecret{
		Type:       hexSecretType,
		Filename:   filename,
		LineNumber: lineNumber,
		SecretHash: types.HashSecret(hexSecret),
	}
}

func TestRawSecretsFromFile(t *testing.T) {
	ctx := context.Background()

	t.Run("unquoted value is recovered through the eager flip", func(t *testing.T) {
		path := writeFile(t, "creds.txt",
			"# leading comment\n"+
				"token = "+hexSecret+"\n")

		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		found, err := reconciler.RawSecretsFromFile(ctx, baselineRecord(path, 0))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, hexSecret, found[0].SecretValue)
		assert.Equal(t, 2, found[0].LineNumber)

		// The winning mode stays cached for the rest of the session.
		assert.True(t, reconciler.cache.Open(path).UseEagerTransformers())

		// A second lookup hits the cached eager lines and succeeds again.
		found, err = reconciler.RawSecretsFromFile(ctx, baselineRecord(path, 0))
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("recorded line number forces an eager search", func(t *testing.T) {
		path := writeFile(t, "creds.txt", "token = "+hexSecret+"\n")

		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		found, err := reconciler.RawSecretsFromFile(ctx, baselineRecord(path, 1))
		require.NoError(t, err)
		require.Len(t, found, 1)
		assert.Equal(t, hexSecret, found[0].SecretValue)

		// The eager search on the raw line already matched, so the
		// transformation mode never needed to flip.
		assert.False(t, reconciler.cache.Open(path).UseEagerTransformers())
	})

	t.Run("line number beyond the file", func(t *testing.T) {
		path := writeFile(t, "creds.txt", "token = "+hexSecret+"\n")

		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		_, err := reconciler.RawSecretsFromFile(ctx, baselineRecord(path, 99))
		var notFound *SecretNotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, 99, notFound.Line)
	})

	t.Run("unknown secret type", func(t *testing.T) {
		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		record := &types.PotentialSecret{Type: "Nope", Filename: "x", SecretHash: "abc"}
		_, err := reconciler.RawSecretsFromFile(ctx, record)
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		_, err := reconciler.RawSecretsFromFile(ctx, baselineRecord(filepath.Join(t.TempDir(), "gone.txt"), 0))
		assert.Error(t, err)
	})
}

func TestRawSecretFromFile(t *testing.T) {
	ctx := context.Background()

	t.Run("recovers the literal value", func(t *testing.T) {
		path := writeFile(t, "creds.txt", `token = "`+hexSecret+`"`+"\n")

		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		value, err := reconciler.RawSecretFromFile(ctx, baselineRecord(path, 1))
		require.NoError(t, err)
		assert.Equal(t, hexSecret, value)
	})

	t.Run("refuses records without a line number", func(t *testing.T) {
		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		_, err := reconciler.RawSecretFromFile(ctx, baselineRecord("whatever.txt", 0))
		assert.ErrorIs(t, err, ErrNoLineNumber)
	})

	t.Run("drifted file yields a not found error", func(t *testing.T) {
		path := writeFile(t, "creds.txt", "nothing secret here anymore\n")

		reconciler := NewReconciler(hexRegistry(t), NewLineGetterCache(transformers.DefaultRegistry()))

		_, err := reconciler.RawSecretFromFile(ctx, baselineRecord(path, 1))
		var notFound *SecretNotFoundError
		assert.ErrorAs(t, err, &notFound)
	})
}

func TestLineGetter(t *testing.T) {
	t.Run("raw lines strip trailing whitespace", func(t *testing.T) {
		path := writeFile(t, "a.txt", "one  \ntwo\t\r\n")
		getter := NewLineGetter(path, transformers.DefaultRegistry())

		lines, err := getter.RawLines()
		require.NoError(t, err)
		assert.Equal(t, []string{"one", "two"}, lines)
	})

	t.Run("mode flip invalidates transformed lines only", func(t *testing.T) {
		path := writeFile(t, "creds.txt", "token = "+hexSecret+"\n")
		getter := NewLineGetter(path, transformers.DefaultRegistry())

		lines, err := getter.Lines()
		require.NoError(t, err)
		assert.Equal(t, []string{"token = " + hexSecret}, lines)
		assert.True(t, getter.HasCachedLines())

		getter.SetUseEagerTransformers(true)
		assert.False(t, getter.HasCachedLines())
		assert.True(t, getter.UseEagerTransformers())

		lines, err = getter.Lines()
		require.NoError(t, err)
		assert.Equal(t, []string{`token: "` + hexSecret + `"`}, lines)
	})

	t.Run("setting the current mode again keeps the cache", func(t *testing.T) {
		path := writeFile(t, "a.txt", "plain line\n")
		getter := NewLineGetter(path, transformers.DefaultRegistry())

		_, err := getter.Lines()
		require.NoError(t, err)

		getter.SetUseEagerTransformers(false)
		assert.True(t, getter.HasCachedLines())
	})
}

func TestLineGetterCache(t *testing.T) {
	cache := NewLineGetterCache(transformers.DefaultRegistry())

	a := cache.Open("one.txt")
	b := cache.Open("one.txt")
	c := cache.Open("two.txt")

	assert.Same(t, a, b)
	assert.NotSame(t, a, c)
}

func TestSecretNotFoundErrorMessage(t *testing.T) {
	err := &SecretNotFoundError{Filename: "creds.txt", Line: 3}
	assert.Contains(t, err.Error(), "creds.txt")
	assert.True(t, errors.As(error(err), new(*SecretNotFoundError)))
}
